package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tonimelisma/ytup-go/internal/history"
	"github.com/tonimelisma/ytup-go/internal/manifest"
	"github.com/tonimelisma/ytup-go/internal/quota"
	"github.com/tonimelisma/ytup-go/internal/youtube"
)

// Authenticator yields a token source per account.
type Authenticator interface {
	Authenticate(ctx context.Context, email string) (youtube.TokenSource, error)
}

// RowUploader publishes one manifest row. Precheck validates the row
// locally without touching credentials or the network.
type RowUploader interface {
	Precheck(entry *manifest.Entry) error
	Upload(ctx context.Context, ts youtube.TokenSource, entry *manifest.Entry) (string, error)
}

// Recorder persists attempt history. *history.Ledger satisfies it.
type Recorder interface {
	Record(ctx context.Context, a *history.Attempt) error
}

// Summary tallies one completed pass over the manifest.
type Summary struct {
	RunID        string
	Processed    int
	Uploaded     int
	Failed       int
	SkippedAuth  int
	SkippedQuota int
	QuotaUsed    int
}

// RunnerConfig wires a Runner. Ledger may be nil to disable history.
type RunnerConfig struct {
	ManifestPath string
	Broker       Authenticator
	Executor     RowUploader
	Guard        *quota.Guard
	Ledger       Recorder
	RunID        string
	Logger       *slog.Logger
}

// Runner drives one sequential pass over the manifest. Rows are processed
// strictly in file order, one at a time, and the manifest is rewritten
// after every row so an interrupted run resumes where it stopped.
type Runner struct {
	manifestPath string
	broker       Authenticator
	executor     RowUploader
	guard        *quota.Guard
	ledger       Recorder
	runID        string
	logger       *slog.Logger
}

// NewRunner builds a runner from cfg.
func NewRunner(cfg RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		manifestPath: cfg.ManifestPath,
		broker:       cfg.Broker,
		executor:     cfg.Executor,
		guard:        cfg.Guard,
		ledger:       cfg.Ledger,
		runID:        cfg.RunID,
		logger:       logger,
	}
}

// Run processes every pending row and returns a summary of the pass.
// A quota verdict marks all remaining pending rows skipped and ends the
// pass early; that is still a completed pass, not an error.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	m, err := manifest.Load(r.manifestPath)
	if err != nil {
		return nil, err
	}

	pending := m.Pending()

	r.logger.Info("run starting",
		slog.String("run_id", r.runID),
		slog.Int("rows", len(m.Entries)),
		slog.Int("pending", len(pending)),
		slog.Int("estimated_units", quota.Estimate(len(pending))),
	)

	summary := &Summary{RunID: r.runID}

	for _, entry := range pending {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		halt, err := r.processRow(ctx, m, entry, summary)
		if err != nil {
			return summary, err
		}

		if halt {
			if err := r.haltForQuota(m, summary); err != nil {
				return summary, err
			}

			break
		}
	}

	summary.QuotaUsed = r.guard.Used()

	r.logger.Info("run complete",
		slog.String("run_id", r.runID),
		slog.Int("processed", summary.Processed),
		slog.Int("uploaded", summary.Uploaded),
		slog.Int("failed", summary.Failed),
		slog.Int("skipped_auth", summary.SkippedAuth),
		slog.Int("skipped_quota", summary.SkippedQuota),
		slog.Int("quota_used", summary.QuotaUsed),
	)

	return summary, nil
}

// processRow runs one row to a terminal status and persists it. The
// returned halt flag requests the quota sweep. Fatal errors leave the row
// pending on disk so a restart retries it.
func (r *Runner) processRow(ctx context.Context, m *manifest.Manifest, entry *manifest.Entry, summary *Summary) (bool, error) {
	summary.Processed++
	entry.Status = manifest.StatusInProgress
	started := time.Now()
	halt := false

	r.logger.Info("processing row",
		slog.String("filename", entry.Filename),
		slog.String("account", entry.Account),
	)

	var rowErr error

	// Rows that cannot possibly upload (missing file, missing required
	// fields) fail here, before any credential or network work.
	if preErr := r.executor.Precheck(entry); preErr != nil {
		entry.Status = manifest.StatusFailed
		summary.Failed++
		rowErr = preErr

		return halt, r.finishRow(ctx, m, entry, started, rowErr)
	}

	ts, authErr := r.broker.Authenticate(ctx, entry.Account)

	switch {
	case authErr != nil && errors.Is(authErr, ErrAuthFailed):
		entry.Status = manifest.StatusSkippedAuth
		summary.SkippedAuth++
		rowErr = authErr
	case authErr != nil:
		entry.Status = manifest.StatusPending
		return false, authErr
	default:
		var videoID string
		videoID, rowErr = r.executor.Upload(ctx, ts, entry)

		switch {
		case rowErr == nil:
			entry.Status = manifest.StatusUploaded
			entry.VideoID = videoID
			summary.Uploaded++
		case errors.Is(rowErr, ErrStore),
			errors.Is(rowErr, context.Canceled),
			errors.Is(rowErr, context.DeadlineExceeded):
			entry.Status = manifest.StatusPending
			return false, rowErr
		case r.guard.Classify(rowErr) == quota.VerdictQuota:
			entry.Status = manifest.StatusSkippedQuota
			summary.SkippedQuota++
			halt = true
		default:
			entry.Status = manifest.StatusFailed
			summary.Failed++

			if videoID != "" {
				// Transfer landed but metadata did not: keep the orphaned
				// video's ID so the operator can find it on the platform.
				entry.VideoID = videoID
			}
		}
	}

	return halt, r.finishRow(ctx, m, entry, started, rowErr)
}

// finishRow logs the outcome, records the attempt, and persists the manifest.
func (r *Runner) finishRow(ctx context.Context, m *manifest.Manifest, entry *manifest.Entry, started time.Time, rowErr error) error {
	if rowErr != nil {
		r.logger.Warn("row did not complete",
			slog.String("filename", entry.Filename),
			slog.String("status", string(entry.Status)),
			slog.String("error", rowErr.Error()),
		)
	}

	if err := r.record(ctx, entry, started, rowErr); err != nil {
		return err
	}

	return m.Save(r.manifestPath)
}

func (r *Runner) record(ctx context.Context, entry *manifest.Entry, started time.Time, rowErr error) error {
	if r.ledger == nil {
		return nil
	}

	a := &history.Attempt{
		RunID:     r.runID,
		StartedAt: started,
		Duration:  time.Since(started),
		Filename:  entry.Filename,
		Account:   entry.Account,
		Status:    string(entry.Status),
		VideoID:   entry.VideoID,
	}

	if rowErr != nil {
		a.Error = rowErr.Error()
	}

	if err := r.ledger.Record(ctx, a); err != nil {
		return fmt.Errorf("%w: recording attempt: %v", ErrStore, err)
	}

	return nil
}

// haltForQuota marks every still-pending row skipped and persists the
// sweep in one write. Nothing after a quota verdict touches the network.
func (r *Runner) haltForQuota(m *manifest.Manifest, summary *Summary) error {
	marked := 0

	for _, e := range m.Entries {
		if e.Status.Pending() {
			e.Status = manifest.StatusSkippedQuota
			summary.SkippedQuota++
			marked++
		}
	}

	r.logger.Warn("quota exhausted, remaining rows skipped",
		slog.Int("marked", marked),
	)

	if marked == 0 {
		return nil
	}

	return m.Save(r.manifestPath)
}
