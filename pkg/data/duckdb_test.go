package data

import (
	"os"
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "tankobon-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	repo, err := NewRepository(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to init DB: %v", err)
	}

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}

	return repo, cleanup
}

func TestSaveAndGetManga(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	manga := &Manga{
		ID:          "test-manga-1",
		Name:        "Test Manga",
		Description: "A test manga description",
		CoverURL:    "https://example.com/cover.jpg",
		Source:      "mangadex",
		Status:      "completed",
	}

	if err := repo.SaveManga(manga); err != nil {
		t.Fatalf("Failed to save manga: %v", err)
	}

	retrieved, err := repo.GetManga("test-manga-1")
	if err != nil {
		t.Fatalf("Failed to get manga: %v", err)
	}
	if retrieved == nil {
		t.Fatal("Expected manga to be found")
	}
	if retrieved.ID != manga.ID {
		t.Errorf("Expected ID %s, got %s", manga.ID, retrieved.ID)
	}
	if retrieved.Name != manga.Name {
		t.Errorf("Expected Name %s, got %s", manga.Name, retrieved.Name)
	}
	if retrieved.Status != manga.Status {
		t.Errorf("Expected Status %s, got %s", manga.Status, retrieved.Status)
	}
}

func TestGetManga_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	manga, err := repo.GetManga("missing")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if manga != nil {
		t.Errorf("Expected nil for missing manga, got %+v", manga)
	}
}

func TestListMangas(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	mangas, err := repo.ListMangas()
	if err != nil {
		t.Fatalf("Failed to list mangas: %v", err)
	}
	if len(mangas) != 0 {
		t.Errorf("Expected 0 mangas, got %d", len(mangas))
	}

	for i := 1; i <= 3; i++ {
		manga := &Manga{
			ID:     string(rune('a' + i - 1)),
			Name:   string(rune('A'+i-1)) + " Manga",
			Source: "mangadex",
		}
		if err := repo.SaveManga(manga); err != nil {
			t.Fatalf("Failed to save manga %d: %v", i, err)
		}
	}

	mangas, err = repo.ListMangas()
	if err != nil {
		t.Fatalf("Failed to list mangas: %v", err)
	}
	if len(mangas) != 3 {
		t.Errorf("Expected 3 mangas, got %d", len(mangas))
	}
}

func TestSaveAndGetChapters(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	manga := &Manga{ID: "manga-1", Name: "Test Manga", Source: "mangadex"}
	repo.SaveManga(manga)

	chapters := []*Chapter{
		{ID: "ch-1", MangaID: "manga-1", Title: "Chapter 1", Language: "en", Volume: "1", Number: "1"},
		{ID: "ch-2", MangaID: "manga-1", Title: "Chapter 2", Language: "en", Volume: "1", Number: "2"},
	}
	for _, ch := range chapters {
		if err := repo.SaveChapter(ch); err != nil {
			t.Fatalf("Failed to save chapter: %v", err)
		}
	}

	retrieved, err := repo.GetChapters("manga-1")
	if err != nil {
		t.Fatalf("Failed to get chapters: %v", err)
	}
	if len(retrieved) != 2 {
		t.Errorf("Expected 2 chapters, got %d", len(retrieved))
	}
}

func TestSaveArtifactOverwrite(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	artifact := &Artifact{MangaID: "m1", VolumeLabel: "1", Format: "cbz", Path: "/out/1.cbz"}
	if err := repo.SaveArtifact(artifact); err != nil {
		t.Fatalf("Failed to save artifact: %v", err)
	}

	// Regenerating the same (volume, format) replaces the row
	artifact.Path = "/out/1-v2.cbz"
	if err := repo.SaveArtifact(artifact); err != nil {
		t.Fatalf("Failed to overwrite artifact: %v", err)
	}

	artifacts, err := repo.ListArtifacts("m1")
	if err != nil {
		t.Fatalf("Failed to list artifacts: %v", err)
	}
	if len(artifacts) != 1 {
		t.Fatalf("Expected 1 artifact, got %d", len(artifacts))
	}
	if artifacts[0].Path != "/out/1-v2.cbz" {
		t.Errorf("Expected overwritten path, got %s", artifacts[0].Path)
	}
}

func TestRecordAndListRuns(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	runs := []*RunRecord{
		{MangaID: "m1", VolumeLabel: "1", State: "done", Pages: 40},
		{MangaID: "m1", VolumeLabel: "2", State: "failed", Reason: "packaging: disk full", Pages: 38},
	}
	for _, run := range runs {
		if err := repo.RecordRun(run); err != nil {
			t.Fatalf("Failed to record run: %v", err)
		}
	}

	listed, err := repo.ListRuns(10)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(listed))
	}
}
