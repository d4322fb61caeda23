package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kerbaras/tankobon/pkg/data"
	"github.com/kerbaras/tankobon/pkg/integrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// capturePackager records the images it was asked to pack and writes a
// placeholder artifact.
type capturePackager struct {
	images [][]string
}

func (p *capturePackager) Format() string { return "cbz" }

func (p *capturePackager) Pack(images []string, outPath string) error {
	p.images = append(p.images, images)
	return os.WriteFile(outPath, []byte("archive"), 0644)
}

func newTestPipeline(t *testing.T, opts ...PipelineOption) (*Pipeline, *capturePackager, *mockRepo, string) {
	t.Helper()
	dir := t.TempDir()
	downloader := NewDownloader(pagedSource(2), dir, 2)
	t.Cleanup(downloader.Close)

	packager := &capturePackager{}
	repo := &mockRepo{}
	opts = append([]PipelineOption{WithLogger(quietLogger())}, opts...)
	return NewPipeline(downloader, []integrations.Packager{packager}, repo, dir, opts...), packager, repo, dir
}

func TestPipelinePackagesVolume(t *testing.T) {
	p, packager, repo, dir := newTestPipeline(t)

	results := p.Run(context.Background(), "manga-1", []data.Volume{testVolume()})

	require.Len(t, results, 1)
	assert.Equal(t, StateDone, results[0].State)
	assert.Equal(t, 4, results[0].Pages)
	require.Len(t, results[0].Artifacts, 1)

	artifactPath := filepath.Join(dir, "manga-1", "vol-1.cbz")
	assert.Equal(t, artifactPath, results[0].Artifacts[0].Path)
	_, err := os.Stat(artifactPath)
	assert.NoError(t, err)

	// Staging is gone, the artifact next to it survives.
	_, err = os.Stat(filepath.Join(dir, "manga-1", "vol-1"))
	assert.True(t, os.IsNotExist(err))

	require.Len(t, packager.images, 1)
	assert.Len(t, packager.images[0], 4)

	require.Len(t, repo.artifacts, 1)
	require.Len(t, repo.runs, 1)
	assert.Equal(t, "done", repo.runs[0].State)
}

func TestPipelineEnhancementFailureFallsBackToRaw(t *testing.T) {
	enhancer := &mockEnhancer{
		EnhanceFunc: func(ctx context.Context, srcDir string) (string, error) {
			return "", errors.New("engine crashed")
		},
	}
	p, packager, repo, _ := newTestPipeline(t, WithMode(ModeEnhance), WithEnhancer(enhancer))

	results := p.Run(context.Background(), "manga-1", []data.Volume{testVolume()})

	require.Len(t, results, 1)
	assert.Equal(t, StateDone, results[0].State)
	assert.Equal(t, 4, results[0].Pages)

	// The raw pages got packaged instead.
	require.Len(t, packager.images, 1)
	for _, image := range packager.images[0] {
		assert.Contains(t, image, string(filepath.Separator)+"raw"+string(filepath.Separator))
	}
	assert.Equal(t, "done", repo.runs[0].State)
}

func TestPipelinePackagesEnhancedPages(t *testing.T) {
	enhancer := &mockEnhancer{
		EnhanceFunc: func(ctx context.Context, srcDir string) (string, error) {
			outDir := filepath.Join(filepath.Dir(srcDir), "enhanced")
			if err := os.MkdirAll(outDir, 0755); err != nil {
				return "", err
			}
			entries, err := os.ReadDir(srcDir)
			if err != nil {
				return "", err
			}
			for _, entry := range entries {
				if err := os.WriteFile(filepath.Join(outDir, entry.Name()), []byte("upscaled"), 0644); err != nil {
					return "", err
				}
			}
			return outDir, nil
		},
	}
	p, packager, _, _ := newTestPipeline(t, WithMode(ModeEnhance), WithEnhancer(enhancer))

	results := p.Run(context.Background(), "manga-1", []data.Volume{testVolume()})

	require.Len(t, results, 1)
	assert.Equal(t, StateDone, results[0].State)
	require.Len(t, packager.images, 1)
	for _, image := range packager.images[0] {
		assert.Contains(t, image, string(filepath.Separator)+"enhanced"+string(filepath.Separator))
	}
}

func TestPipelinePackagingFailurePreservesStaging(t *testing.T) {
	dir := t.TempDir()
	downloader := NewDownloader(pagedSource(2), dir, 2)
	defer downloader.Close()

	packager := &mockPackager{
		format: "cbz",
		PackFunc: func(images []string, outPath string) error {
			return errors.New("disk full")
		},
	}
	repo := &mockRepo{}
	p := NewPipeline(downloader, []integrations.Packager{packager}, repo, dir, WithLogger(quietLogger()))

	results := p.Run(context.Background(), "manga-1", []data.Volume{testVolume()})

	require.Len(t, results, 1)
	assert.Equal(t, StateFailed, results[0].State)
	assert.Contains(t, results[0].Reason, "disk full")

	// Staging must survive a packaging failure so a retry can skip the
	// downloads.
	entries, err := os.ReadDir(filepath.Join(dir, "manga-1", "vol-1", "raw"))
	require.NoError(t, err)
	assert.Len(t, entries, 4)

	require.Len(t, repo.runs, 1)
	assert.Equal(t, "failed", repo.runs[0].State)
}

func TestPipelineIsolatesVolumeFailures(t *testing.T) {
	dir := t.TempDir()
	source := pagedSource(1)
	fetch := source.FetchPageFunc
	source.FetchPageFunc = func(url string) ([]byte, error) {
		if strings.Contains(url, "ch-bad") {
			return nil, errors.New("not found upstream")
		}
		return fetch(url)
	}
	downloader := NewDownloader(source, dir, 1)
	defer downloader.Close()

	packager := &capturePackager{}
	repo := &mockRepo{}
	p := NewPipeline(downloader, []integrations.Packager{packager}, repo, dir, WithLogger(quietLogger()))

	volumes := []data.Volume{
		{Label: "vol-1", Chapters: []data.Chapter{{ID: "ch-bad", Number: "1"}}},
		{Label: "vol-2", Chapters: []data.Chapter{{ID: "ch-ok", Number: "2"}}},
	}
	results := p.Run(context.Background(), "manga-1", volumes)

	require.Len(t, results, 2)
	assert.Equal(t, StateFailed, results[0].State)
	assert.Equal(t, StateDone, results[1].State)
	assert.True(t, Failed(results))
}

func TestPipelineFirstVolumeEnhanceFailureStillYieldsAllArtifacts(t *testing.T) {
	dir := t.TempDir()
	downloader := NewDownloader(pagedSource(2), dir, 2)
	defer downloader.Close()

	var enhanced int
	enhancer := &mockEnhancer{
		EnhanceFunc: func(ctx context.Context, srcDir string) (string, error) {
			enhanced++
			if enhanced == 1 {
				return "", errors.New("out of GPU memory")
			}
			outDir := filepath.Join(filepath.Dir(srcDir), "enhanced")
			if err := os.CopyFS(outDir, os.DirFS(srcDir)); err != nil {
				return "", err
			}
			return outDir, nil
		},
	}
	repo := &mockRepo{}
	p := NewPipeline(downloader, []integrations.Packager{integrations.CBZPackager{}}, repo, dir,
		WithMode(ModeEnhance), WithEnhancer(enhancer), WithLogger(quietLogger()))

	chapters := []data.Chapter{
		{ID: "ch-1", Number: "1"},
		{ID: "ch-2", Number: "2"},
		{ID: "ch-10", Number: "10"},
	}
	volumes := GroupVolumes(chapters, 2)
	require.Len(t, volumes, 2)

	results := p.Run(context.Background(), "manga-1", volumes)

	require.Len(t, results, 2)
	for i, result := range results {
		assert.Equal(t, StateDone, result.State, "volume %d", i)
		require.Len(t, result.Artifacts, 1)
		_, err := os.Stat(result.Artifacts[0].Path)
		assert.NoError(t, err)
	}
	assert.Equal(t, 2, enhanced)
}

func TestPipelineDownloadModeKeepsStaging(t *testing.T) {
	p, packager, _, dir := newTestPipeline(t, WithMode(ModeDownload))

	results := p.Run(context.Background(), "manga-1", []data.Volume{testVolume()})

	require.Len(t, results, 1)
	assert.Equal(t, StateDone, results[0].State)
	assert.Empty(t, results[0].Artifacts)
	assert.Empty(t, packager.images)

	entries, err := os.ReadDir(filepath.Join(dir, "manga-1", "vol-1", "raw"))
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestPipelinePublishesProgress(t *testing.T) {
	p, _, _, _ := newTestPipeline(t)

	results := p.Run(context.Background(), "manga-1", []data.Volume{testVolume()})
	require.Len(t, results, 1)

	var states []State
	for event := range p.Progress() {
		states = append(states, event.State)
	}
	assert.Contains(t, states, StateDownloading)
	assert.Contains(t, states, StatePackaging)
	assert.Contains(t, states, StateDone)
}

func TestPipelinePublishesFailedState(t *testing.T) {
	dir := t.TempDir()
	downloader := NewDownloader(pagedSource(2), dir, 2)
	defer downloader.Close()

	packager := &mockPackager{
		format: "cbz",
		PackFunc: func(images []string, outPath string) error {
			return errors.New("disk full")
		},
	}
	p := NewPipeline(downloader, []integrations.Packager{packager}, &mockRepo{}, dir, WithLogger(quietLogger()))

	results := p.Run(context.Background(), "manga-1", []data.Volume{testVolume()})
	require.Len(t, results, 1)
	require.Equal(t, StateFailed, results[0].State)

	// Consumers watching the channel must see the failure, not a volume
	// stuck at its last good state.
	var failed *Progress
	for event := range p.Progress() {
		if event.State == StateFailed {
			event := event
			failed = &event
		}
	}
	require.NotNil(t, failed, "expected a failed event on the progress channel")
	assert.Equal(t, "manga-1", failed.MangaID)
	assert.Equal(t, "vol-1", failed.VolumeLabel)
	assert.Contains(t, failed.Message, "disk full")
}

func TestFailed(t *testing.T) {
	assert.False(t, Failed(nil))
	assert.False(t, Failed([]VolumeResult{{State: StateDone}}))
	assert.True(t, Failed([]VolumeResult{{State: StateDone}, {State: StateFailed}}))
}
