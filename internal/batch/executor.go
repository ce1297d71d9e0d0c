package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tonimelisma/ytup-go/internal/manifest"
	"github.com/tonimelisma/ytup-go/internal/quota"
	"github.com/tonimelisma/ytup-go/internal/youtube"
)

// allowedExtensions maps accepted video file extensions to upload content
// types. Anything else fails the row before any network traffic.
var allowedExtensions = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
}

// Uploader is the platform surface one row needs.
type Uploader interface {
	UploadFile(ctx context.Context, video *youtube.Video, content io.ReaderAt, size int64, contentType string, progress youtube.ProgressFunc) (*youtube.Video, error)
	UpdateVideo(ctx context.Context, video *youtube.Video) (*youtube.Video, error)
}

// ClientFactory builds an authenticated platform client. One client per
// account keeps credentials from crossing accounts.
type ClientFactory func(ts youtube.TokenSource) Uploader

// Executor publishes one manifest row: local validation first, then the
// resumable transfer, then the metadata update. An invalid row costs no
// network call and no quota.
type Executor struct {
	mediaDir string
	factory  ClientFactory
	guard    *quota.Guard
	logger   *slog.Logger

	// Progress, when set, receives transfer progress for every row.
	Progress youtube.ProgressFunc

	// DefaultPrivacy applies to rows whose privacy_status column is blank.
	// Empty means private.
	DefaultPrivacy string
}

// NewExecutor builds an executor resolving filenames against mediaDir.
func NewExecutor(mediaDir string, factory ClientFactory, guard *quota.Guard, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		mediaDir: mediaDir,
		factory:  factory,
		guard:    guard,
		logger:   logger,
	}
}

// Upload publishes the row's video and returns its platform ID. When the
// transfer succeeded but attaching metadata failed, the ID is returned
// alongside the error so the caller can record the orphaned video.
func (e *Executor) Upload(ctx context.Context, ts youtube.TokenSource, entry *manifest.Entry) (string, error) {
	if err := e.Precheck(entry); err != nil {
		return "", err
	}

	path, contentType, err := e.resolveFile(entry.Filename)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	client := e.factory(ts)
	video := buildVideo(entry, e.DefaultPrivacy)

	e.logger.Info("starting upload",
		slog.String("filename", entry.Filename),
		slog.String("account", entry.Account),
		slog.Int64("size", info.Size()),
	)

	e.guard.Charge(quota.InsertCost)

	uploaded, err := client.UploadFile(ctx, video, f, info.Size(), contentType, e.Progress)
	if err != nil {
		return "", fmt.Errorf("transfer of %s: %w", entry.Filename, err)
	}

	video.ID = uploaded.ID

	e.guard.Charge(quota.UpdateCost)

	if _, err := client.UpdateVideo(ctx, video); err != nil {
		return uploaded.ID, fmt.Errorf("metadata for %s (video %s): %w", entry.Filename, uploaded.ID, err)
	}

	e.logger.Info("upload complete",
		slog.String("filename", entry.Filename),
		slog.String("video_id", uploaded.ID),
	)

	return uploaded.ID, nil
}

// Precheck runs the local-only validations Upload performs before touching
// the network: required fields, supported extension, file present and
// non-empty. A dry run uses it to report per-row problems.
func (e *Executor) Precheck(entry *manifest.Entry) error {
	if err := entry.ValidateRequired(); err != nil {
		return err
	}

	path, _, err := e.resolveFile(entry.Filename)
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("batch: %s not found in %s", entry.Filename, e.mediaDir)
		}

		return fmt.Errorf("stat %s: %w", path, err)
	}

	if info.IsDir() {
		return fmt.Errorf("batch: %s is a directory", entry.Filename)
	}

	if info.Size() == 0 {
		return fmt.Errorf("batch: %s is empty", entry.Filename)
	}

	return nil
}

// resolveFile validates the manifest filename and joins it under mediaDir.
// Filenames are bare names; path components are rejected so a manifest can
// never reach outside the media directory.
func (e *Executor) resolveFile(filename string) (string, string, error) {
	if filepath.Base(filename) != filename || filename == "." || filename == ".." {
		return "", "", fmt.Errorf("batch: filename %q must not contain a path", filename)
	}

	ext := strings.ToLower(filepath.Ext(filename))

	contentType, ok := allowedExtensions[ext]
	if !ok {
		return "", "", fmt.Errorf("batch: %s: extension %q is not a supported video format", filename, ext)
	}

	return filepath.Join(e.mediaDir, filename), contentType, nil
}

func buildVideo(entry *manifest.Entry, defaultPrivacy string) *youtube.Video {
	privacy := entry.Privacy
	if privacy == "" {
		privacy = defaultPrivacy
	}

	if privacy == "" {
		privacy = "private"
	}

	return &youtube.Video{
		Snippet: &youtube.Snippet{
			Title:       entry.Title,
			Description: entry.Description,
			Tags:        entry.Tags,
			CategoryID:  youtube.DefaultCategoryID,
			Localized: &youtube.Localized{
				Title:       entry.Title,
				Description: entry.Description,
			},
		},
		Status: &youtube.Status{
			PrivacyStatus:           privacy,
			SelfDeclaredMadeForKids: entry.MadeForKids,
		},
	}
}
