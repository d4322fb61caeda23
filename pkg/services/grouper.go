package services

import (
	"fmt"
	"sort"

	"github.com/kerbaras/tankobon/pkg/data"
	"github.com/kerbaras/tankobon/pkg/integrations"
	"github.com/kerbaras/tankobon/pkg/natsort"
)

// SortChapters orders chapters by chapter number ascending. Numbers that do
// not parse ("extra", "oneshot") sort after the numbered chapters, among
// themselves in natural order of the raw number string. The sort is stable
// so chapters the source lists in order stay in order.
func SortChapters(chapters []data.Chapter) {
	sort.SliceStable(chapters, func(i, j int) bool {
		a, aok := chapters[i].NumberValue()
		b, bok := chapters[j].NumberValue()
		switch {
		case aok && bok:
			return a < b
		case aok:
			return true
		case bok:
			return false
		}
		return natsort.Less(chapters[i].Number, chapters[j].Number)
	})
}

// GroupVolumes partitions an ordered chapter list into pipeline units.
// Chapters carrying a volume label are grouped under that label in order of
// first appearance; unlabeled chapters fill fixed-size batches in the order
// encountered. Concatenating the result reproduces the input order, and no
// returned volume is empty. Zero chapters yields zero volumes.
func GroupVolumes(chapters []data.Chapter, batchSize int) []data.Volume {
	if batchSize < 1 {
		batchSize = 1
	}

	var volumes []data.Volume
	labelIndex := make(map[string]int)
	var batch []data.Chapter
	batchCount := 0

	flushBatch := func() {
		if len(batch) == 0 {
			return
		}
		batchCount++
		volumes = append(volumes, data.Volume{
			Label:    fmt.Sprintf("batch-%03d", batchCount),
			Chapters: batch,
		})
		batch = nil
	}

	for _, chapter := range chapters {
		if chapter.Volume == "" {
			batch = append(batch, chapter)
			if len(batch) == batchSize {
				flushBatch()
			}
			continue
		}

		label := "vol-" + integrations.SanitizeFilename(chapter.Volume)
		if idx, ok := labelIndex[label]; ok {
			volumes[idx].Chapters = append(volumes[idx].Chapters, chapter)
			continue
		}
		flushBatch()
		labelIndex[label] = len(volumes)
		volumes = append(volumes, data.Volume{
			Label:    label,
			Chapters: []data.Chapter{chapter},
		})
	}
	flushBatch()

	return volumes
}
