package main

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

const lockFilePermissions = 0o644

const lockDirPermissions = 0o755

// acquireRunLock takes an exclusive flock on a lock file next to the
// manifest, so two runs can never interleave rewrites of the same manifest.
// Returns a cleanup function that releases the lock. The lock file itself
// stays on disk: unlinking it would let a third run lock a fresh file at
// the same path while a second run still holds the old inode.
func acquireRunLock(manifestPath string) (cleanup func(), err error) {
	if manifestPath == "" {
		return nil, fmt.Errorf("manifest path is empty")
	}

	lockPath := manifestPath + ".lock"

	dir := filepath.Dir(lockPath)
	if mkdirErr := os.MkdirAll(dir, lockDirPermissions); mkdirErr != nil {
		return nil, fmt.Errorf("creating lock directory: %w", mkdirErr)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, lockFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	// Non-blocking exclusive lock — fails immediately if another run holds it.
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()

		return nil, fmt.Errorf("another run is already processing %s (could not lock %s)", manifestPath, lockPath)
	}

	if err := f.Truncate(0); err != nil {
		f.Close()

		return nil, fmt.Errorf("truncating lock file: %w", err)
	}

	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		f.Close()

		return nil, fmt.Errorf("writing lock file: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()

		return nil, fmt.Errorf("syncing lock file: %w", err)
	}

	return func() {
		f.Close()
	}, nil
}
