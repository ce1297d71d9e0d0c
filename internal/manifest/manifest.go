// Package manifest reads and rewrites the CSV work table that drives a batch
// run. The manifest is both input and output: each row's terminal status is
// written back after processing, and the whole file is rewritten atomically
// so a crash between rows never leaves a half-written table. The manifest is
// the authoritative per-row record; logs are supplementary.
package manifest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Required columns, in the order they are written when a new header is built.
var requiredColumns = []string{
	"filename",
	"title",
	"description",
	"tags",
	"privacy_status",
	"made_for_kids_flag",
	"uploader_account_email",
	"upload_status",
}

// videoIDColumn records the platform-assigned media identifier alongside the
// status. Appended to the header automatically when the input lacks it.
const videoIDColumn = "video_id"

// tagSeparator delimits tags within the single tags field.
const tagSeparator = ","

// filePerms for the rewritten manifest (owner rw, group/other r).
const filePerms = 0o644

// Entry is one manifest row: a video file plus the metadata to publish it
// under and the account that owns the upload.
type Entry struct {
	Filename    string
	Title       string
	Description string
	Tags        []string
	Privacy     string
	MadeForKids bool
	Account     string
	Status      Status
	VideoID     string

	// extra preserves columns this tool does not interpret, so operator
	// spreadsheets survive a rewrite intact.
	extra map[string]string
}

// Manifest is the ordered row set plus the original header, retained so
// rewrites keep the operator's column order.
type Manifest struct {
	header  []string
	Entries []*Entry
}

// Load reads and validates a manifest CSV. Missing required columns are an
// error naming every absent column. Extra columns are preserved.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // validated against the header below

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("manifest: parsing %s: %w", path, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("manifest: %s is empty (missing header row)", path)
	}

	header := records[0]

	if err := checkHeader(path, header); err != nil {
		return nil, err
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}

	m := &Manifest{header: header}
	if _, ok := col[videoIDColumn]; !ok {
		m.header = append(append([]string{}, header...), videoIDColumn)
	}

	for rowNum, record := range records[1:] {
		if len(record) > len(header) {
			return nil, fmt.Errorf("manifest: %s row %d has %d fields, header has %d",
				path, rowNum+2, len(record), len(header))
		}

		m.Entries = append(m.Entries, parseEntry(header, col, record))
	}

	return m, nil
}

// checkHeader verifies every required column is present.
func checkHeader(path string, header []string) error {
	present := make(map[string]bool, len(header))
	for _, name := range header {
		present[name] = true
	}

	var missing []string

	for _, name := range requiredColumns {
		if !present[name] {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("manifest: %s missing required columns: %s",
			path, strings.Join(missing, ", "))
	}

	return nil
}

// parseEntry builds an Entry from one record. Short records (trailing empty
// fields omitted by spreadsheet exports) read as empty strings.
func parseEntry(header []string, col map[string]int, record []string) *Entry {
	field := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}

		return record[i]
	}

	e := &Entry{
		Filename:    strings.TrimSpace(field("filename")),
		Title:       field("title"),
		Description: field("description"),
		Tags:        SplitTags(field("tags")),
		Privacy:     strings.TrimSpace(field("privacy_status")),
		MadeForKids: strings.EqualFold(strings.TrimSpace(field("made_for_kids_flag")), "true"),
		Account:     strings.TrimSpace(field("uploader_account_email")),
		Status:      ParseStatus(strings.TrimSpace(field("upload_status"))),
		VideoID:     strings.TrimSpace(field(videoIDColumn)),
	}

	known := map[string]bool{
		videoIDColumn: true,
	}
	for _, name := range requiredColumns {
		known[name] = true
	}

	for i, name := range header {
		if known[name] || i >= len(record) {
			continue
		}

		if e.extra == nil {
			e.extra = make(map[string]string)
		}

		e.extra[name] = record[i]
	}

	return e
}

// SplitTags parses the delimiter-separated tags field, dropping empties.
func SplitTags(raw string) []string {
	var tags []string

	for _, t := range strings.Split(raw, tagSeparator) {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	return tags
}

// Save rewrites the whole manifest atomically: temp file in the same
// directory, fsync, rename. This is the durability contract — after Save
// returns, every row's recorded status survives a crash.
func (m *Manifest) Save(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".manifest-*.tmp")
	if err != nil {
		return fmt.Errorf("manifest: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, filePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("manifest: setting permissions: %w", err)
	}

	w := csv.NewWriter(tmp)

	if err := w.Write(m.header); err != nil {
		tmp.Close()
		return fmt.Errorf("manifest: writing header: %w", err)
	}

	for _, e := range m.Entries {
		if err := w.Write(m.record(e)); err != nil {
			tmp.Close()
			return fmt.Errorf("manifest: writing row: %w", err)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("manifest: flushing rows: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("manifest: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("manifest: closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("manifest: renaming: %w", err)
	}

	success = true

	return nil
}

// record serializes an Entry in header column order.
func (m *Manifest) record(e *Entry) []string {
	out := make([]string, len(m.header))

	for i, name := range m.header {
		switch name {
		case "filename":
			out[i] = e.Filename
		case "title":
			out[i] = e.Title
		case "description":
			out[i] = e.Description
		case "tags":
			out[i] = strings.Join(e.Tags, tagSeparator)
		case "privacy_status":
			out[i] = e.Privacy
		case "made_for_kids_flag":
			if e.MadeForKids {
				out[i] = "true"
			} else {
				out[i] = "false"
			}
		case "uploader_account_email":
			out[i] = e.Account
		case "upload_status":
			out[i] = string(e.Status)
		case videoIDColumn:
			out[i] = e.VideoID
		default:
			out[i] = e.extra[name]
		}
	}

	return out
}

// Pending returns the rows still waiting to be processed, in manifest order.
func (m *Manifest) Pending() []*Entry {
	var pending []*Entry

	for _, e := range m.Entries {
		if e.Status.Pending() {
			pending = append(pending, e)
		}
	}

	return pending
}

// Summary counts rows per status.
func (m *Manifest) Summary() map[Status]int {
	counts := make(map[Status]int)

	for _, e := range m.Entries {
		counts[e.Status]++
	}

	return counts
}

// ValidateRequired checks the per-row required fields the way the state
// machine expects: a row missing any of these fails without a network call.
func (e *Entry) ValidateRequired() error {
	var missing []string

	if e.Filename == "" {
		missing = append(missing, "filename")
	}

	if e.Title == "" {
		missing = append(missing, "title")
	}

	if e.Account == "" {
		missing = append(missing, "uploader_account_email")
	}

	if len(missing) > 0 {
		return fmt.Errorf("manifest: row %q missing required fields: %s",
			e.Filename, strings.Join(missing, ", "))
	}

	return nil
}
