package integrations

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFPackager lays out one page per image at the image's native pixel size,
// so mixed portrait/landscape pages keep their aspect ratio.
type PDFPackager struct{}

func (PDFPackager) Format() string { return "pdf" }

func (PDFPackager) Pack(images []string, outPath string) error {
	if len(images) == 0 {
		return fmt.Errorf("no images to package")
	}

	tmpPath := outPath + ".tmp"
	conf := model.NewDefaultConfiguration()
	if err := api.ImportImagesFile(images, tmpPath, nil, conf); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to build pdf: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize pdf: %w", err)
	}
	return nil
}
