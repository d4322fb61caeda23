package services

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/kerbaras/tankobon/pkg/config"
	"github.com/kerbaras/tankobon/pkg/data"
	"github.com/kerbaras/tankobon/pkg/integrations"
	"github.com/kerbaras/tankobon/pkg/sources"
)

// Controller owns the wired pipeline for one run: source, repository,
// downloader, packagers and the download-directory lock.
type Controller struct {
	cfg        *config.Config
	source     sources.Source
	repo       *data.Repository
	downloader *Downloader
	pipeline   *Pipeline
	lock       *flock.Flock
	logger     *slog.Logger
}

// NewController builds the full pipeline from configuration and takes the
// download-directory lock. Close releases everything.
func NewController(cfg *config.Config, mode Mode, formats []string, logger *slog.Logger) (*Controller, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(formats) == 0 {
		formats = cfg.Output.Formats
	}

	lock, err := AcquireLock(cfg.Paths.DownloadDir)
	if err != nil {
		return nil, err
	}

	repo, err := data.NewRepository(cfg.Paths.LibraryDB)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("failed to open library: %w", err)
	}

	source := sources.NewMangaDex(cfg.Download.DataSaver)
	downloader := NewDownloader(source, cfg.Paths.DownloadDir, cfg.Download.PageConcurrency)

	packagers := make([]integrations.Packager, 0, len(formats))
	for _, format := range formats {
		switch format {
		case "cbz":
			packagers = append(packagers, integrations.CBZPackager{})
		case "pdf":
			packagers = append(packagers, integrations.PDFPackager{})
		case "epub":
			packagers = append(packagers, integrations.EPUBPackager{})
		default:
			lock.Unlock()
			repo.Close()
			downloader.Close()
			return nil, fmt.Errorf("unknown output format %q", format)
		}
	}

	opts := []PipelineOption{WithMode(mode), WithLogger(logger)}
	if mode == ModeEnhance {
		opts = append(opts, WithEnhancer(integrations.NewWaifu2x(
			integrations.WithBinary(cfg.Enhancer.Binary),
			integrations.WithModel(cfg.Enhancer.Model),
			integrations.WithSettings(cfg.Enhancer.NoiseLevel, cfg.Enhancer.Scale),
			integrations.WithTimeout(time.Duration(cfg.Enhancer.TimeoutSeconds)*time.Second),
		)))
	}
	if cfg.Prepress.Enabled {
		opts = append(opts, WithPrepress(integrations.NewPrepress(integrations.PrepressSettings{
			MaxWidth:  cfg.Prepress.MaxWidth,
			MaxHeight: cfg.Prepress.MaxHeight,
			Quality:   cfg.Prepress.Quality,
			Grayscale: cfg.Prepress.Grayscale,
		})))
	}

	return &Controller{
		cfg:        cfg,
		source:     source,
		repo:       repo,
		downloader: downloader,
		pipeline:   NewPipeline(downloader, packagers, repo, cfg.Paths.DownloadDir, opts...),
		lock:       lock,
		logger:     logger,
	}, nil
}

func (c *Controller) Pipeline() *Pipeline {
	return c.pipeline
}

func (c *Controller) Repository() *data.Repository {
	return c.repo
}

func (c *Controller) Source() sources.Source {
	return c.source
}

// PrepareVolumes resolves a manga, fetches its chapter feed, records both in
// the library and groups the chapters into volumes.
func (c *Controller) PrepareVolumes(mangaID string) (*data.Manga, []data.Volume, error) {
	manga, err := c.source.GetManga(mangaID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve manga %s: %w", mangaID, err)
	}
	if err := c.repo.SaveManga(manga); err != nil {
		c.logger.Warn("failed to save manga record", "manga", manga.ID, "error", err)
	}

	chapters, err := c.source.GetChapters(manga, c.cfg.Download.Language)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	SortChapters(chapters)
	for i := range chapters {
		if err := c.repo.SaveChapter(&chapters[i]); err != nil {
			c.logger.Warn("failed to save chapter record", "chapter", chapters[i].ID, "error", err)
		}
	}

	return manga, GroupVolumes(chapters, c.cfg.Download.BatchSize), nil
}

func (c *Controller) Close() error {
	c.downloader.Close()
	if err := c.repo.Close(); err != nil {
		c.lock.Unlock()
		return err
	}
	return c.lock.Unlock()
}
