package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kerbaras/tankobon/pkg/data"
	"github.com/kerbaras/tankobon/pkg/integrations"
	"github.com/kerbaras/tankobon/pkg/natsort"
)

// State is the lifecycle stage of one volume inside a run.
type State string

const (
	StatePending     State = "pending"
	StateDownloading State = "downloading"
	StateEnhancing   State = "enhancing"
	StatePackaging   State = "packaging"
	StateCleaningUp  State = "cleaning_up"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Mode selects how far the pipeline carries each volume.
type Mode string

const (
	// ModeDownload stops after staging raw pages. Nothing is packaged
	// and nothing is cleaned up.
	ModeDownload Mode = "download"
	// ModePackage downloads and packages the raw pages directly.
	ModePackage Mode = "package"
	// ModeEnhance runs the external enhancer between download and
	// packaging, falling back to raw pages if it fails.
	ModeEnhance Mode = "enhance"
)

// Progress is one pipeline event, published as each volume changes state
// and as pages land during a download.
type Progress struct {
	MangaID     string
	VolumeLabel string
	State       State
	PagesDone   int
	PagesTotal  int
	Message     string
}

// Repository is the bookkeeping surface the pipeline writes to.
type Repository interface {
	SaveArtifact(artifact *data.Artifact) error
	RecordRun(record *data.RunRecord) error
}

// VolumeResult is the terminal outcome of one volume.
type VolumeResult struct {
	Volume    data.Volume
	State     State
	Pages     int
	Artifacts []data.Artifact
	Reason    string
}

// Failed reports whether any result in the slice ended in failure.
func Failed(results []VolumeResult) bool {
	for _, r := range results {
		if r.State == StateFailed {
			return true
		}
	}
	return false
}

// Pipeline drives volumes through download, enhancement, packaging and
// cleanup. Volumes are processed strictly one at a time so at most one
// staging tree is in flight; concurrency lives inside the page downloads.
type Pipeline struct {
	downloader  *Downloader
	enhancer    integrations.Enhancer
	prepress    *integrations.Prepress
	packagers   []integrations.Packager
	repo        Repository
	janitor     *Janitor
	downloadDir string
	mode        Mode
	logger      *slog.Logger
	progress    chan Progress
}

type PipelineOption func(*Pipeline)

func WithEnhancer(e integrations.Enhancer) PipelineOption {
	return func(p *Pipeline) { p.enhancer = e }
}

func WithPrepress(pp *integrations.Prepress) PipelineOption {
	return func(p *Pipeline) { p.prepress = pp }
}

func WithMode(mode Mode) PipelineOption {
	return func(p *Pipeline) { p.mode = mode }
}

func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = logger }
}

func NewPipeline(downloader *Downloader, packagers []integrations.Packager, repo Repository, downloadDir string, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		downloader:  downloader,
		packagers:   packagers,
		repo:        repo,
		janitor:     NewJanitor(downloadDir),
		downloadDir: downloadDir,
		mode:        ModePackage,
		logger:      slog.Default(),
		progress:    make(chan Progress, 100),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Progress returns the event channel. Events are dropped, never blocked
// on, when the consumer falls behind.
func (p *Pipeline) Progress() <-chan Progress {
	return p.progress
}

func (p *Pipeline) publish(event Progress) {
	select {
	case p.progress <- event:
	default:
	}
}

// Run processes each volume in order and returns one result per volume.
// A failed volume never stops the run; context cancellation does.
func (p *Pipeline) Run(ctx context.Context, mangaID string, volumes []data.Volume) []VolumeResult {
	results := make([]VolumeResult, 0, len(volumes))
	for _, volume := range volumes {
		if ctx.Err() != nil {
			break
		}
		result := p.runVolume(ctx, mangaID, volume)
		results = append(results, result)
		p.record(mangaID, result)
	}
	close(p.progress)
	return results
}

func (p *Pipeline) record(mangaID string, result VolumeResult) {
	record := &data.RunRecord{
		MangaID:     mangaID,
		VolumeLabel: result.Volume.Label,
		State:       string(result.State),
		Reason:      result.Reason,
		Pages:       result.Pages,
	}
	if err := p.repo.RecordRun(record); err != nil {
		p.logger.Warn("failed to record run", "volume", result.Volume.Label, "error", err)
	}
}

func (p *Pipeline) fail(mangaID string, volume data.Volume, pages int, err error) VolumeResult {
	p.logger.Error("volume failed", "volume", volume.Label, "error", err)
	p.publish(Progress{
		MangaID:     mangaID,
		VolumeLabel: volume.Label,
		State:       StateFailed,
		PagesDone:   pages,
		PagesTotal:  pages,
		Message:     err.Error(),
	})
	return VolumeResult{Volume: volume, State: StateFailed, Pages: pages, Reason: err.Error()}
}

func (p *Pipeline) runVolume(ctx context.Context, mangaID string, volume data.Volume) VolumeResult {
	logger := p.logger.With("manga", mangaID, "volume", volume.Label)

	p.publish(Progress{MangaID: mangaID, VolumeLabel: volume.Label, State: StateDownloading})
	logger.Info("downloading volume", "chapters", len(volume.Chapters))
	rawDir, pages, err := p.downloader.DownloadVolume(ctx, mangaID, volume, func(done, total int) {
		p.publish(Progress{
			MangaID:     mangaID,
			VolumeLabel: volume.Label,
			State:       StateDownloading,
			PagesDone:   done,
			PagesTotal:  total,
		})
	})
	if err != nil {
		return p.fail(mangaID, volume, 0, fmt.Errorf("download failed: %w", err))
	}

	if p.mode == ModeDownload {
		p.publish(Progress{MangaID: mangaID, VolumeLabel: volume.Label, State: StateDone, PagesDone: pages, PagesTotal: pages})
		return VolumeResult{Volume: volume, State: StateDone, Pages: pages}
	}

	// Enhancement failure is not fatal: the volume falls back to its raw
	// pages and still gets packaged.
	imageDir := rawDir
	if p.mode == ModeEnhance && p.enhancer != nil {
		p.publish(Progress{MangaID: mangaID, VolumeLabel: volume.Label, State: StateEnhancing, PagesTotal: pages})
		logger.Info("enhancing volume", "pages", pages)
		enhancedDir, err := p.enhancer.Enhance(ctx, rawDir)
		if err != nil {
			logger.Warn("enhancement failed, packaging raw pages", "error", err)
		} else {
			imageDir = enhancedDir
		}
	}

	if p.prepress != nil {
		normalizedDir, err := p.prepress.Normalize(imageDir)
		if err != nil {
			logger.Warn("prepress failed, packaging unprocessed pages", "error", err)
		} else {
			imageDir = normalizedDir
		}
	}

	images, err := listImages(imageDir)
	if err != nil {
		return p.fail(mangaID, volume, pages, fmt.Errorf("packaging failed: %w", err))
	}
	if len(images) == 0 {
		return p.fail(mangaID, volume, pages, fmt.Errorf("packaging failed: no images in %s", imageDir))
	}

	p.publish(Progress{MangaID: mangaID, VolumeLabel: volume.Label, State: StatePackaging, PagesDone: pages, PagesTotal: pages})
	artifacts := make([]data.Artifact, 0, len(p.packagers))
	for _, packager := range p.packagers {
		outPath := filepath.Join(p.downloadDir, mangaID, volume.Label+"."+packager.Format())
		logger.Info("packaging volume", "format", packager.Format(), "pages", len(images))
		if err := packager.Pack(images, outPath); err != nil {
			// Staging stays on disk so a later run can retry without
			// re-downloading.
			return p.fail(mangaID, volume, pages, fmt.Errorf("packaging %s failed: %w", packager.Format(), err))
		}
		artifact := data.Artifact{
			MangaID:     mangaID,
			VolumeLabel: volume.Label,
			Format:      packager.Format(),
			Path:        outPath,
		}
		artifacts = append(artifacts, artifact)
		if err := p.repo.SaveArtifact(&artifact); err != nil {
			logger.Warn("failed to save artifact record", "format", packager.Format(), "error", err)
		}
	}

	p.publish(Progress{MangaID: mangaID, VolumeLabel: volume.Label, State: StateCleaningUp, PagesDone: pages, PagesTotal: pages})
	if err := p.janitor.Cleanup(mangaID, volume.Label); err != nil {
		// The artifacts exist and are valid; leftover staging is only a
		// disk-space problem, so the volume still counts as done.
		logger.Warn("cleanup failed", "error", err)
	}

	p.publish(Progress{MangaID: mangaID, VolumeLabel: volume.Label, State: StateDone, PagesDone: pages, PagesTotal: pages})
	logger.Info("volume done", "pages", pages, "artifacts", len(artifacts))
	return VolumeResult{Volume: volume, State: StateDone, Pages: pages, Artifacts: artifacts}
}

// listImages returns the image files of a directory in natural order, the
// same order the page filenames encode and the packagers preserve.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var images []string
	for _, entry := range entries {
		if entry.IsDir() || !integrations.IsImageFile(entry.Name()) {
			continue
		}
		images = append(images, filepath.Join(dir, entry.Name()))
	}
	natsort.SortBy(images, filepath.Base)
	return images, nil
}
