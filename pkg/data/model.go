package data

import "strconv"

type Manga struct {
	ID          string
	Name        string
	Description string
	CoverURL    string
	Source      string
	Status      string // "downloading", "completed", "partial", "error"
}

type Chapter struct {
	ID       string
	MangaID  string
	Title    string
	Language string
	Volume   string // volume label from the source, may be empty
	Number   string // decimal chapter number as reported, e.g. "10.5"
}

// NumberValue parses the chapter number for ordering. Chapters with
// unparseable numbers ("extra", "oneshot") return ok=false and are ordered
// by name instead.
func (c Chapter) NumberValue() (float64, bool) {
	n, err := strconv.ParseFloat(c.Number, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Volume is one pipeline unit of work: a label and its chapters, sorted by
// chapter number ascending. A Volume is never empty.
type Volume struct {
	Label    string
	Chapters []Chapter
}

// Artifact is the final packaged output for a volume. Terminal: never
// mutated, only overwritten by a regeneration.
type Artifact struct {
	MangaID     string
	VolumeLabel string
	Format      string // "cbz", "pdf", "epub"
	Path        string
}

// RunRecord is the persisted outcome of one volume's pipeline run.
type RunRecord struct {
	MangaID     string
	VolumeLabel string
	State       string // terminal pipeline state: "done" or "failed"
	Reason      string // failure reason, empty on success
	Pages       int
}
