package data

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
)

const schema = `
CREATE TABLE IF NOT EXISTS mangas (
	id VARCHAR PRIMARY KEY,
	name VARCHAR,
	description VARCHAR,
	cover_url VARCHAR,
	source VARCHAR,
	status VARCHAR
);
CREATE TABLE IF NOT EXISTS chapters (
	id VARCHAR PRIMARY KEY,
	manga_id VARCHAR,
	title VARCHAR,
	language VARCHAR,
	volume VARCHAR,
	number VARCHAR
);
CREATE TABLE IF NOT EXISTS artifacts (
	manga_id VARCHAR,
	volume_label VARCHAR,
	format VARCHAR,
	path VARCHAR,
	created_at TIMESTAMP,
	PRIMARY KEY (manga_id, volume_label, format)
);
CREATE TABLE IF NOT EXISTS runs (
	manga_id VARCHAR,
	volume_label VARCHAR,
	state VARCHAR,
	reason VARCHAR,
	pages INTEGER,
	finished_at TIMESTAMP
);
`

func InitDuckDB(path string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

// Repository is the library bookkeeping layer. It records what was fetched
// and produced; pipeline work itself is always re-derived from disk.
type Repository struct {
	db *sql.DB
}

func NewRepository(path string) (*Repository, error) {
	db, err := InitDuckDB(path)
	if err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) SaveManga(manga *Manga) error {
	_, err := r.db.Exec(`INSERT OR REPLACE INTO mangas (id, name, description, cover_url, source, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		manga.ID, manga.Name, manga.Description, manga.CoverURL, manga.Source, manga.Status)
	if err != nil {
		return fmt.Errorf("failed to save manga: %w", err)
	}
	return nil
}

func (r *Repository) GetManga(id string) (*Manga, error) {
	row := r.db.QueryRow(`SELECT id, name, description, cover_url, source, status FROM mangas WHERE id = ?`, id)
	var m Manga
	if err := row.Scan(&m.ID, &m.Name, &m.Description, &m.CoverURL, &m.Source, &m.Status); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get manga: %w", err)
	}
	return &m, nil
}

func (r *Repository) ListMangas() ([]*Manga, error) {
	rows, err := r.db.Query(`SELECT id, name, description, cover_url, source, status FROM mangas ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list mangas: %w", err)
	}
	defer rows.Close()

	var mangas []*Manga
	for rows.Next() {
		var m Manga
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.CoverURL, &m.Source, &m.Status); err != nil {
			return nil, err
		}
		mangas = append(mangas, &m)
	}
	return mangas, rows.Err()
}

func (r *Repository) DeleteManga(mangaID string) error {
	if _, err := r.db.Exec(`DELETE FROM chapters WHERE manga_id = ?`, mangaID); err != nil {
		return fmt.Errorf("failed to delete chapters: %w", err)
	}
	if _, err := r.db.Exec(`DELETE FROM mangas WHERE id = ?`, mangaID); err != nil {
		return fmt.Errorf("failed to delete manga: %w", err)
	}
	return nil
}

func (r *Repository) SaveChapter(chapter *Chapter) error {
	_, err := r.db.Exec(`INSERT OR REPLACE INTO chapters (id, manga_id, title, language, volume, number)
		VALUES (?, ?, ?, ?, ?, ?)`,
		chapter.ID, chapter.MangaID, chapter.Title, chapter.Language, chapter.Volume, chapter.Number)
	if err != nil {
		return fmt.Errorf("failed to save chapter: %w", err)
	}
	return nil
}

func (r *Repository) GetChapters(mangaID string) ([]*Chapter, error) {
	rows, err := r.db.Query(`SELECT id, manga_id, title, language, volume, number FROM chapters WHERE manga_id = ?`, mangaID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chapters: %w", err)
	}
	defer rows.Close()

	var chapters []*Chapter
	for rows.Next() {
		var c Chapter
		if err := rows.Scan(&c.ID, &c.MangaID, &c.Title, &c.Language, &c.Volume, &c.Number); err != nil {
			return nil, err
		}
		chapters = append(chapters, &c)
	}
	return chapters, rows.Err()
}

func (r *Repository) SaveArtifact(artifact *Artifact) error {
	_, err := r.db.Exec(`INSERT OR REPLACE INTO artifacts (manga_id, volume_label, format, path, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		artifact.MangaID, artifact.VolumeLabel, artifact.Format, artifact.Path, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save artifact: %w", err)
	}
	return nil
}

func (r *Repository) ListArtifacts(mangaID string) ([]*Artifact, error) {
	rows, err := r.db.Query(`SELECT manga_id, volume_label, format, path FROM artifacts WHERE manga_id = ? ORDER BY volume_label, format`, mangaID)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*Artifact
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.MangaID, &a.VolumeLabel, &a.Format, &a.Path); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, &a)
	}
	return artifacts, rows.Err()
}

func (r *Repository) RecordRun(run *RunRecord) error {
	_, err := r.db.Exec(`INSERT INTO runs (manga_id, volume_label, state, reason, pages, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.MangaID, run.VolumeLabel, run.State, run.Reason, run.Pages, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

func (r *Repository) ListRuns(limit int) ([]*RunRecord, error) {
	rows, err := r.db.Query(`SELECT manga_id, volume_label, state, reason, pages FROM runs ORDER BY finished_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		var run RunRecord
		if err := rows.Scan(&run.MangaID, &run.VolumeLabel, &run.State, &run.Reason, &run.Pages); err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}
