package integrations

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-shiori/go-epub"
)

// EPUBPackager compiles a volume's pages into a single EPUB section.
type EPUBPackager struct {
	Title  string
	Author string
}

func (EPUBPackager) Format() string { return "epub" }

func (p EPUBPackager) Pack(images []string, outPath string) error {
	if len(images) == 0 {
		return fmt.Errorf("no images to package")
	}

	title := p.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(outPath), filepath.Ext(outPath))
	}

	e, err := epub.NewEpub(title)
	if err != nil {
		return fmt.Errorf("failed to create EPub: %w", err)
	}
	if p.Author != "" {
		e.SetAuthor(p.Author)
	}
	e.SetLang("en")

	var htmlContent strings.Builder
	htmlContent.WriteString(fmt.Sprintf("<h1>%s</h1>\n", title))

	for i, imgPath := range images {
		ext := strings.ToLower(filepath.Ext(imgPath))
		internalPath, err := e.AddImage(imgPath, fmt.Sprintf("page_%04d%s", i+1, ext))
		if err != nil {
			return fmt.Errorf("failed to add image %s: %w", filepath.Base(imgPath), err)
		}
		htmlContent.WriteString(fmt.Sprintf(
			`<div class="page"><img src="%s" alt="Page %d" style="width:100%%;height:auto;"/></div>%s`,
			internalPath, i+1, "\n",
		))
	}

	if _, err := e.AddSection(htmlContent.String(), title, "", ""); err != nil {
		return fmt.Errorf("failed to add section: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := e.Write(tmpPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write EPub: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize EPub: %w", err)
	}
	return nil
}
