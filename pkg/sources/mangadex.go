package sources

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/kerbaras/tankobon/pkg/data"
	"github.com/kerbaras/tankobon/pkg/utils"
)

type Manga struct {
	ID         string `json:"id"`
	Attributes struct {
		Title       map[string]string `json:"title"`
		Description map[string]string `json:"description"`
	} `json:"attributes"`
}

func (m *Manga) ToManga() *data.Manga {
	name := m.Attributes.Title["en"]
	if name == "" {
		for _, title := range m.Attributes.Title {
			name = title
			break
		}
	}
	return &data.Manga{
		ID:          m.ID,
		Name:        name,
		Description: m.Attributes.Description["en"],
		Source:      "mangadex",
	}
}

type Chapter struct {
	ID         string `json:"id"`
	Attributes struct {
		Title    string `json:"title"`
		Language string `json:"translatedLanguage"`
		Volume   string `json:"volume"`
		Number   string `json:"chapter"`
	} `json:"attributes"`
}

func (c *Chapter) ToChapter(mangaID string) data.Chapter {
	return data.Chapter{
		ID:       c.ID,
		MangaID:  mangaID,
		Title:    c.Attributes.Title,
		Language: c.Attributes.Language,
		Volume:   c.Attributes.Volume,
		Number:   c.Attributes.Number,
	}
}

type MangaDex struct {
	api       *utils.API
	client    *http.Client
	dataSaver bool
}

func NewMangaDex(dataSaver bool) *MangaDex {
	return NewMangaDexAt("https://api.mangadex.org", dataSaver)
}

// NewMangaDexAt points the client at an alternate API base URL. Used by
// tests against a local server.
func NewMangaDexAt(baseURL string, dataSaver bool) *MangaDex {
	return &MangaDex{
		api:       utils.NewAPI(baseURL),
		client:    http.DefaultClient,
		dataSaver: dataSaver,
	}
}

// mapErr translates HTTP status failures onto the source error taxonomy.
func mapErr(err error) error {
	var httpErr *utils.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case httpErr.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		case httpErr.StatusCode >= 500:
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func (m *MangaDex) Search(query string) ([]data.Manga, error) {
	var mangas struct {
		Data []Manga `json:"data"`
	}
	params := url.Values{}
	params.Set("title", query)
	if err := m.api.Get("/manga", params, &mangas); err != nil {
		return nil, mapErr(err)
	}
	out := make([]data.Manga, len(mangas.Data))
	for i, manga := range mangas.Data {
		out[i] = *manga.ToManga()
	}
	return out, nil
}

func (m *MangaDex) GetManga(id string) (*data.Manga, error) {
	var manga struct {
		Data Manga `json:"data"`
	}
	if err := m.api.Get(fmt.Sprintf("/manga/%s", id), nil, &manga); err != nil {
		return nil, mapErr(err)
	}
	return manga.Data.ToManga(), nil
}

// GetChapters returns the manga feed in ascending chapter order.
func (m *MangaDex) GetChapters(manga *data.Manga, language string) ([]data.Chapter, error) {
	var feed struct {
		Data []Chapter `json:"data"`
	}
	params := url.Values{}
	params.Set("translatedLanguage[]", language)
	params.Set("order[chapter]", "asc")
	if err := m.api.Get(fmt.Sprintf("/manga/%s/feed", manga.ID), params, &feed); err != nil {
		return nil, mapErr(err)
	}
	out := make([]data.Chapter, len(feed.Data))
	for i, chapter := range feed.Data {
		out[i] = chapter.ToChapter(manga.ID)
	}
	return out, nil
}

func (m *MangaDex) GetPages(chapter *data.Chapter) ([]Page, error) {
	var server struct {
		BaseURL string `json:"baseUrl"`
		Chapter struct {
			Hash      string   `json:"hash"`
			Data      []string `json:"data"`
			DataSaver []string `json:"dataSaver"`
		} `json:"chapter"`
	}
	if err := m.api.Get(fmt.Sprintf("/at-home/server/%s", chapter.ID), nil, &server); err != nil {
		return nil, mapErr(err)
	}

	quality := "data"
	filenames := server.Chapter.Data
	if m.dataSaver && len(server.Chapter.DataSaver) > 0 {
		quality = "data-saver"
		filenames = server.Chapter.DataSaver
	}

	pages := make([]Page, len(filenames))
	for i, filename := range filenames {
		pages[i] = Page{
			Filename: filename,
			URL:      fmt.Sprintf("%s/%s/%s/%s", server.BaseURL, quality, server.Chapter.Hash, filename),
		}
	}
	return pages, nil
}

func (m *MangaDex) FetchPage(pageURL string) ([]byte, error) {
	resp, err := m.client.Get(pageURL)
	if err != nil {
		return nil, mapErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, mapErr(&utils.HTTPError{StatusCode: resp.StatusCode})
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read page body: %v", ErrUnavailable, err)
	}
	return content, nil
}

var _ Source = (*MangaDex)(nil)
