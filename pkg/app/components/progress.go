package components

import (
	"fmt"
	"strings"

	"github.com/kerbaras/tankobon/pkg/app/styles"
	"github.com/kerbaras/tankobon/pkg/services"
)

// VolumeTracker keeps the latest pipeline event per volume and renders them
// in first-seen order, which matches the pipeline's processing order.
type VolumeTracker struct {
	order   []string
	volumes map[string]services.Progress
	width   int
}

func NewVolumeTracker(width int) *VolumeTracker {
	return &VolumeTracker{
		volumes: make(map[string]services.Progress),
		width:   width,
	}
}

func (v *VolumeTracker) SetWidth(width int) {
	v.width = width
}

func (v *VolumeTracker) Update(progress services.Progress) {
	if _, seen := v.volumes[progress.VolumeLabel]; !seen {
		v.order = append(v.order, progress.VolumeLabel)
	}
	v.volumes[progress.VolumeLabel] = progress
}

// Done counts volumes that reached a terminal state.
func (v *VolumeTracker) Done() int {
	count := 0
	for _, progress := range v.volumes {
		if progress.State == services.StateDone || progress.State == services.StateFailed {
			count++
		}
	}
	return count
}

func (v *VolumeTracker) View() string {
	if len(v.order) == 0 {
		return styles.MutedStyle.Render("Waiting for the first volume...")
	}

	var b strings.Builder
	for _, label := range v.order {
		progress := v.volumes[label]

		status := string(progress.State)
		if progress.PagesTotal > 0 && progress.State == services.StateDownloading {
			status = fmt.Sprintf("%s (%d/%d pages)", progress.State, progress.PagesDone, progress.PagesTotal)
		}

		b.WriteString(styles.TextStyle.Render(label))
		b.WriteString("  ")
		b.WriteString(styles.StatusStyle(string(progress.State)).Render(status))
		b.WriteString("\n")

		if progress.PagesTotal > 0 && progress.State == services.StateDownloading {
			b.WriteString(renderProgressBar(progress.PagesDone, progress.PagesTotal, v.width-4))
			b.WriteString("\n")
		}
		if progress.Message != "" {
			b.WriteString(styles.MutedStyle.Render(progress.Message))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderProgressBar(current, total, width int) string {
	if total == 0 || width < 1 {
		return ""
	}

	filled := int(float64(current) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return styles.ProgressBarStyle.Render(bar)
}
