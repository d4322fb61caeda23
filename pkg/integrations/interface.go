package integrations

import (
	"context"
	"path/filepath"
	"strings"
)

// Enhancer is the external AI engine boundary: an opaque batch transform
// over a directory of images. It either succeeds for every image or fails
// as a whole; on failure the returned directory must not be consumed.
type Enhancer interface {
	Enhance(ctx context.Context, srcDir string) (string, error)
}

// Packager serializes an already-ordered image list into one artifact.
// Implementations write to a temporary path and rename atomically so no
// partial artifact ever exists at outPath.
type Packager interface {
	Format() string
	Pack(images []string, outPath string) error
}

// IsImageFile checks if a file has an image extension.
func IsImageFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	}
	return false
}

// SanitizeFilename removes characters that are invalid in filenames.
func SanitizeFilename(name string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	result := name
	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}
	result = strings.TrimSpace(result)
	result = strings.Trim(result, ".")
	return result
}
