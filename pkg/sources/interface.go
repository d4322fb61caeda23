package sources

import (
	"errors"

	"github.com/kerbaras/tankobon/pkg/data"
)

// Remote failure taxonomy. No retry happens at this layer.
var (
	ErrNotFound    = errors.New("not found")
	ErrRateLimited = errors.New("rate limited")
	ErrUnavailable = errors.New("source unavailable")
)

// Page is one page of a chapter as listed by the source, in reading order.
type Page struct {
	Filename string
	URL      string
}

type Source interface {
	Search(query string) ([]data.Manga, error)
	GetManga(id string) (*data.Manga, error)
	GetChapters(manga *data.Manga, language string) ([]data.Chapter, error)
	GetPages(chapter *data.Chapter) ([]Page, error)
	FetchPage(url string) ([]byte, error)
}
