package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kerbaras/tankobon/pkg/data"
	"github.com/kerbaras/tankobon/pkg/sources"
	"golang.org/x/sync/errgroup"
)

// pageJob is one page to place into the raw staging directory. The target
// filename embeds chapter rank and page index so plain natural ordering of
// the directory reproduces reading order without extra metadata.
type pageJob struct {
	url  string
	path string
}

// Downloader pulls a volume's pages into its raw staging directory.
type Downloader struct {
	source      sources.Source
	downloadDir string
	concurrency int
	rateLimiter *time.Ticker
}

func NewDownloader(source sources.Source, downloadDir string, concurrency int) *Downloader {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Downloader{
		source:      source,
		downloadDir: downloadDir,
		concurrency: concurrency,
		rateLimiter: time.NewTicker(250 * time.Millisecond), // 4 req/sec
	}
}

// Close stops the rate limiter.
func (d *Downloader) Close() {
	d.rateLimiter.Stop()
}

// RawDir returns the raw staging directory for a volume.
func (d *Downloader) RawDir(mangaID, volumeLabel string) string {
	return filepath.Join(d.downloadDir, mangaID, volumeLabel, "raw")
}

// DownloadVolume downloads every page of every chapter in the volume into
// its raw staging directory. Page writes are idempotent: existing non-empty
// files are skipped, so an interrupted run resumes where it stopped. Any
// single page failure fails the whole volume download.
func (d *Downloader) DownloadVolume(ctx context.Context, mangaID string, volume data.Volume, onPage func(done, total int)) (string, int, error) {
	rawDir := d.RawDir(mangaID, volume.Label)
	if err := os.MkdirAll(rawDir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create staging directory: %w", err)
	}

	jobs, err := d.listPages(volume, rawDir)
	if err != nil {
		return "", 0, err
	}
	total := len(jobs)

	var done atomic.Int64
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(d.concurrency)
	for _, job := range jobs {
		job := job
		group.Go(func() error {
			if err := d.fetchPage(ctx, job); err != nil {
				return err
			}
			if onPage != nil {
				onPage(int(done.Add(1)), total)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return "", 0, err
	}
	return rawDir, total, nil
}

// listPages enumerates every page of the volume and its target path.
func (d *Downloader) listPages(volume data.Volume, rawDir string) ([]pageJob, error) {
	var jobs []pageJob
	for rank, chapter := range volume.Chapters {
		pages, err := d.source.GetPages(&chapter)
		if err != nil {
			return nil, fmt.Errorf("failed to list pages for chapter %s: %w", chapter.Number, err)
		}
		for i, page := range pages {
			ext := strings.ToLower(filepath.Ext(page.Filename))
			if ext == "" {
				ext = ".jpg"
			}
			name := fmt.Sprintf("c%04d_p%03d%s", rank+1, i+1, ext)
			jobs = append(jobs, pageJob{url: page.URL, path: filepath.Join(rawDir, name)})
		}
	}
	return jobs, nil
}

func (d *Downloader) fetchPage(ctx context.Context, job pageJob) error {
	// Idempotent resume: a page already on disk is not re-fetched.
	if info, err := os.Stat(job.path); err == nil && info.Size() > 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-d.rateLimiter.C:
	}

	content, err := d.source.FetchPage(job.url)
	if err != nil {
		return fmt.Errorf("failed to download page %s: %w", filepath.Base(job.path), err)
	}
	if len(content) == 0 {
		return fmt.Errorf("empty page %s", filepath.Base(job.path))
	}

	// Write through a partial file so a crashed run never leaves a
	// truncated page that the resume check would accept.
	partial := job.path + ".part"
	if err := os.WriteFile(partial, content, 0644); err != nil {
		return fmt.Errorf("failed to write page %s: %w", filepath.Base(job.path), err)
	}
	if err := os.Rename(partial, job.path); err != nil {
		os.Remove(partial)
		return fmt.Errorf("failed to finalize page %s: %w", filepath.Base(job.path), err)
	}
	return nil
}
