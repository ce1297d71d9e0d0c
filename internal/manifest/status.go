package manifest

// Status is the upload_status column value for a manifest row. Rows advance
// pending → in_progress → one terminal state; in_progress is transient and
// never written to disk in the common case.
type Status string

const (
	StatusPending      Status = "pending"
	StatusInProgress   Status = "in_progress"
	StatusUploaded     Status = "uploaded"
	StatusFailed       Status = "failed"
	StatusSkippedAuth  Status = "skipped_auth_fail"
	StatusSkippedQuota Status = "skipped_quota"
)

// ParseStatus maps a raw column value to a Status. Empty means pending
// (an operator filling in new rows leaves the column blank). Unknown values
// pass through untouched: they are not pending, so the runner never picks
// them up, and a rewrite preserves them byte for byte.
func ParseStatus(raw string) Status {
	if raw == "" {
		return StatusPending
	}

	return Status(raw)
}

// Pending reports whether the row is still waiting to be processed.
func (s Status) Pending() bool {
	return s == StatusPending
}

// Terminal reports whether no further processing is attempted for the row
// in this or any subsequent run.
func (s Status) Terminal() bool {
	switch s {
	case StatusUploaded, StatusFailed, StatusSkippedAuth, StatusSkippedQuota:
		return true
	default:
		return false
	}
}
