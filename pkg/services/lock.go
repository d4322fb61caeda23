package services

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFilename = ".tankobon.lock"

// AcquireLock takes an exclusive lock on the download directory so two
// runs never stage into the same tree at once. The caller must Unlock.
func AcquireLock(downloadDir string) (*flock.Flock, error) {
	if err := os.MkdirAll(downloadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}
	lock := flock.New(filepath.Join(downloadDir, lockFilename))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another instance is already running against %s", downloadDir)
	}
	return lock, nil
}
