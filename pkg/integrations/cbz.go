package integrations

import (
	"archive/zip"
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CBZPackager writes a comic archive. Entries are renamed to a zero-padded
// global counter so any reader listing the archive lexically reproduces the
// intended page order.
type CBZPackager struct{}

func (CBZPackager) Format() string { return "cbz" }

func (CBZPackager) Pack(images []string, outPath string) error {
	if len(images) == 0 {
		return fmt.Errorf("no images to package")
	}

	tmpPath := outPath + ".tmp"
	if err := writeCBZ(images, tmpPath); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

func writeCBZ(images []string, path string) error {
	zipFile, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer zipFile.Close()

	buffered := bufio.NewWriterSize(zipFile, 4*1024*1024)
	zipWriter := zip.NewWriter(buffered)

	for i, imgPath := range images {
		ext := strings.ToLower(filepath.Ext(imgPath))
		if ext == "" {
			ext = ".jpg"
		}
		// Page images are already compressed, store them as-is
		entry, err := zipWriter.CreateHeader(&zip.FileHeader{
			Name:   fmt.Sprintf("%04d%s", i+1, ext),
			Method: zip.Store,
		})
		if err != nil {
			return fmt.Errorf("failed to create entry for %s: %w", imgPath, err)
		}

		src, err := os.Open(imgPath)
		if err != nil {
			return fmt.Errorf("failed to read image %s: %w", imgPath, err)
		}
		_, err = io.Copy(entry, src)
		src.Close()
		if err != nil {
			return fmt.Errorf("failed to write entry for %s: %w", imgPath, err)
		}
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}
	if err := buffered.Flush(); err != nil {
		return fmt.Errorf("failed to flush archive: %w", err)
	}
	return nil
}
