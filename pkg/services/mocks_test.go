package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/kerbaras/tankobon/pkg/data"
	"github.com/kerbaras/tankobon/pkg/sources"
)

type mockSource struct {
	SearchFunc      func(query string) ([]data.Manga, error)
	GetMangaFunc    func(id string) (*data.Manga, error)
	GetChaptersFunc func(manga *data.Manga, language string) ([]data.Chapter, error)
	GetPagesFunc    func(chapter *data.Chapter) ([]sources.Page, error)
	FetchPageFunc   func(url string) ([]byte, error)
}

func (m *mockSource) Search(query string) ([]data.Manga, error) {
	return m.SearchFunc(query)
}

func (m *mockSource) GetManga(id string) (*data.Manga, error) {
	return m.GetMangaFunc(id)
}

func (m *mockSource) GetChapters(manga *data.Manga, language string) ([]data.Chapter, error) {
	return m.GetChaptersFunc(manga, language)
}

func (m *mockSource) GetPages(chapter *data.Chapter) ([]sources.Page, error) {
	return m.GetPagesFunc(chapter)
}

func (m *mockSource) FetchPage(url string) ([]byte, error) {
	return m.FetchPageFunc(url)
}

// pagedSource serves a fixed number of pages per chapter with fake content.
func pagedSource(pagesPerChapter int) *mockSource {
	return &mockSource{
		GetPagesFunc: func(chapter *data.Chapter) ([]sources.Page, error) {
			pages := make([]sources.Page, pagesPerChapter)
			for i := range pages {
				pages[i] = sources.Page{
					Filename: fmt.Sprintf("%d.jpg", i+1),
					URL:      fmt.Sprintf("https://uploads.example/%s/%d.jpg", chapter.ID, i+1),
				}
			}
			return pages, nil
		},
		FetchPageFunc: func(url string) ([]byte, error) {
			return []byte("image data for " + url), nil
		},
	}
}

type mockRepo struct {
	mu        sync.Mutex
	artifacts []data.Artifact
	runs      []data.RunRecord
}

func (m *mockRepo) SaveArtifact(artifact *data.Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifacts = append(m.artifacts, *artifact)
	return nil
}

func (m *mockRepo) RecordRun(record *data.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *record)
	return nil
}

type mockEnhancer struct {
	EnhanceFunc func(ctx context.Context, srcDir string) (string, error)
}

func (m *mockEnhancer) Enhance(ctx context.Context, srcDir string) (string, error) {
	return m.EnhanceFunc(ctx, srcDir)
}

type mockPackager struct {
	format   string
	PackFunc func(images []string, outPath string) error
}

func (m *mockPackager) Format() string { return m.format }

func (m *mockPackager) Pack(images []string, outPath string) error {
	return m.PackFunc(images, outPath)
}
