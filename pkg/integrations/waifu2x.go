package integrations

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

var commandContext = exec.CommandContext

// Waifu2x wraps the waifu2x-ncnn-vulkan command-line upscaler as a
// directory-in/directory-out batch transform. The engine's exit status is
// the only success signal; there is no per-image error reporting.
type Waifu2x struct {
	binary  string
	noise   int
	scale   int
	model   string
	timeout time.Duration
}

// Option configures the CLI adapter.
type Option func(*Waifu2x)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(w *Waifu2x) {
		if binary != "" {
			w.binary = binary
		}
	}
}

// WithModel selects the engine model.
func WithModel(model string) Option {
	return func(w *Waifu2x) {
		w.model = model
	}
}

// WithSettings sets noise reduction level and upscaling ratio.
func WithSettings(noise, scale int) Option {
	return func(w *Waifu2x) {
		w.noise = noise
		w.scale = scale
	}
}

// WithTimeout bounds a single batch invocation.
func WithTimeout(timeout time.Duration) Option {
	return func(w *Waifu2x) {
		if timeout > 0 {
			w.timeout = timeout
		}
	}
}

func NewWaifu2x(opts ...Option) *Waifu2x {
	w := &Waifu2x{
		binary:  "waifu2x-ncnn-vulkan",
		noise:   2,
		scale:   2,
		timeout: time.Hour,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Enhance runs the engine over srcDir, producing a sibling "enhanced"
// directory. All-or-nothing: on any failure the partial output is removed
// and the returned path must not be used.
func (w *Waifu2x) Enhance(ctx context.Context, srcDir string) (string, error) {
	if srcDir == "" {
		return "", fmt.Errorf("source directory required")
	}

	outDir := filepath.Join(filepath.Dir(srcDir), "enhanced")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create enhanced directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	args := []string{
		"-i", srcDir,
		"-o", outDir,
		"-n", strconv.Itoa(w.noise),
		"-s", strconv.Itoa(w.scale),
	}
	if w.model != "" {
		args = append(args, "-m", w.model)
	}

	cmd := commandContext(ctx, w.binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		os.RemoveAll(outDir)
		return "", fmt.Errorf("%s failed: %w: %s", w.binary, err, firstLine(output))
	}
	return outDir, nil
}

func firstLine(output []byte) string {
	for i, b := range output {
		if b == '\n' {
			return string(output[:i])
		}
	}
	return string(output)
}

var _ Enhancer = (*Waifu2x)(nil)
