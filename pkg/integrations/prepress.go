package integrations

import (
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

// PrepressSettings bound image size and quality before packaging. Upscaled
// output from the enhancer can be far larger than any reader needs.
type PrepressSettings struct {
	MaxWidth  int
	MaxHeight int
	Quality   int // JPEG quality (1-100)
	Grayscale bool
}

// Prepress normalizes a staging directory of images into a sibling
// directory, preserving the natural-order file naming.
type Prepress struct {
	settings PrepressSettings
}

func NewPrepress(settings PrepressSettings) *Prepress {
	return &Prepress{settings: settings}
}

// Normalize processes every image in srcDir into a "prepress" sibling
// directory and returns its path. Output files keep their base name with a
// .jpg extension so ordering is unchanged.
func (p *Prepress) Normalize(srcDir string) (string, error) {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return "", fmt.Errorf("failed to read staging directory: %w", err)
	}

	outDir := filepath.Join(filepath.Dir(srcDir), "prepress")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create prepress directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !IsImageFile(entry.Name()) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())) + ".jpg"
		if err := p.processFile(filepath.Join(srcDir, entry.Name()), filepath.Join(outDir, name)); err != nil {
			os.RemoveAll(outDir)
			return "", err
		}
	}
	return outDir, nil
}

func (p *Prepress) processFile(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", srcPath, err)
	}
	defer src.Close()

	img, _, err := image.Decode(src)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", srcPath, err)
	}

	bounds := img.Bounds()
	width, height := p.fitDimensions(bounds.Dx(), bounds.Dy())
	if width != bounds.Dx() || height != bounds.Dy() {
		img = resize(img, width, height)
	}
	if p.settings.Grayscale {
		img = toGrayscale(img)
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dstPath, err)
	}
	defer dst.Close()

	if err := jpeg.Encode(dst, img, &jpeg.Options{Quality: p.settings.Quality}); err != nil {
		return fmt.Errorf("failed to encode %s: %w", dstPath, err)
	}
	return nil
}

// fitDimensions scales down to fit within the configured bounds while
// maintaining aspect ratio. Images already within bounds are untouched.
func (p *Prepress) fitDimensions(width, height int) (int, int) {
	if width <= p.settings.MaxWidth && height <= p.settings.MaxHeight {
		return width, height
	}

	widthScale := float64(p.settings.MaxWidth) / float64(width)
	heightScale := float64(p.settings.MaxHeight) / float64(height)
	scale := widthScale
	if heightScale < widthScale {
		scale = heightScale
	}

	return int(float64(width) * scale), int(float64(height) * scale)
}

func resize(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

func toGrayscale(img image.Image) image.Image {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}
	return gray
}
