// Package tokenstore persists one OAuth2 token per uploader account, keyed by
// the account's email address. It is a leaf package: the auth broker and the
// CLI both read and write tokens through it, and nothing here knows about the
// YouTube API. Files are written atomically so a crash mid-save never leaves
// a truncated token on disk.
package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"
)

// FilePerms restricts token files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the tokens directory.
const DirPerms = 0o700

// Store maps account emails to token files under a single directory.
type Store struct {
	dir string
}

// New creates a Store rooted at dir. The directory is created lazily on the
// first Put.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the token file path for an account email.
func (s *Store) Path(email string) string {
	return filepath.Join(s.dir, "token_"+sanitize(email)+".json")
}

// sanitize maps an email to a filesystem-safe filename fragment. The mapping
// only needs to be stable and collision-free for real email addresses.
func sanitize(email string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "@", "_at_")
	return r.Replace(email)
}

// Get reads the saved token for an account. Returns (nil, nil) if no token
// has been stored for the account.
func (s *Store) Get(email string) (*oauth2.Token, error) {
	data, err := os.ReadFile(s.Path(email))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("tokenstore: reading token for %s: %w", email, err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("tokenstore: decoding token for %s: %w", email, err)
	}

	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, fmt.Errorf("tokenstore: token for %s is empty (re-login required)", email)
	}

	return &tok, nil
}

// Put writes the token for an account atomically (write-to-temp + rename)
// with 0600 permissions. A refreshed token replaces the previous file; there
// is never more than one live token per account. Never logs token values.
func (s *Store) Put(email string, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenstore: encoding token for %s: %w", email, err)
	}

	if mkErr := os.MkdirAll(s.dir, DirPerms); mkErr != nil {
		return fmt.Errorf("tokenstore: creating directory %s: %w", s.dir, mkErr)
	}

	// Atomic write: temp file in the same directory, then rename.
	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(s.dir, ".token-*.tmp")
	if err != nil {
		return fmt.Errorf("tokenstore: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenstore: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenstore: writing: %w", err)
	}

	// Flush to stable storage before rename so a power loss between close and
	// rename cannot leave an empty or partial token file at the final path.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenstore: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tokenstore: closing: %w", err)
	}

	if err := os.Rename(tmpPath, s.Path(email)); err != nil {
		return fmt.Errorf("tokenstore: renaming: %w", err)
	}

	success = true

	return nil
}

// Delete removes the stored token for an account. Returns nil if no token
// exists (already logged out).
func (s *Store) Delete(email string) error {
	err := os.Remove(s.Path(email))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("tokenstore: removing token for %s: %w", email, err)
	}

	return nil
}

// List returns the emails of all accounts with a stored token, in directory
// order. A missing tokens directory yields an empty list.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("tokenstore: reading directory %s: %w", s.dir, err)
	}

	var emails []string

	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "token_") || !strings.HasSuffix(name, ".json") {
			continue
		}

		frag := strings.TrimSuffix(strings.TrimPrefix(name, "token_"), ".json")
		emails = append(emails, strings.ReplaceAll(frag, "_at_", "@"))
	}

	return emails, nil
}
