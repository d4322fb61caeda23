package services

import (
	"fmt"
	"os"
	"path/filepath"
)

// Janitor removes a volume's staging tree (raw, enhanced and prepress
// directories) once its archives have been written. Finished artifacts live
// next to the staging directory, never inside it, so they survive cleanup.
type Janitor struct {
	downloadDir string
}

func NewJanitor(downloadDir string) *Janitor {
	return &Janitor{downloadDir: downloadDir}
}

// Cleanup deletes the staging directory for one volume.
func (j *Janitor) Cleanup(mangaID, volumeLabel string) error {
	dir := filepath.Join(j.downloadDir, mangaID, volumeLabel)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clean up %s: %w", dir, err)
	}
	return nil
}
