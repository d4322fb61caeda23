// Package app renders the live pipeline dashboard.
package app

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/tankobon/pkg/app/components"
	"github.com/kerbaras/tankobon/pkg/app/styles"
	"github.com/kerbaras/tankobon/pkg/services"
)

type progressMsg services.Progress

// finishedMsg is sent when the pipeline closes its event channel.
type finishedMsg struct{}

type Dashboard struct {
	title    string
	total    int
	events   <-chan services.Progress
	tracker  *components.VolumeTracker
	spinner  spinner.Model
	finished bool
}

func NewDashboard(title string, totalVolumes int, events <-chan services.Progress) *Dashboard {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.StatusActive
	return &Dashboard{
		title:   title,
		total:   totalVolumes,
		events:  events,
		tracker: components.NewVolumeTracker(60),
		spinner: s,
	}
}

func (d *Dashboard) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-d.events
		if !ok {
			return finishedMsg{}
		}
		return progressMsg(event)
	}
}

func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(d.spinner.Tick, d.waitForEvent())
}

func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return d, tea.Quit
		}
	case tea.WindowSizeMsg:
		d.tracker.SetWidth(msg.Width - 8)
	case progressMsg:
		d.tracker.Update(services.Progress(msg))
		return d, d.waitForEvent()
	case finishedMsg:
		d.finished = true
		return d, tea.Quit
	default:
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		return d, cmd
	}
	return d, nil
}

func (d *Dashboard) View() string {
	header := styles.TitleStyle.Render(d.title)
	progress := styles.SubtitleStyle.Render(
		fmt.Sprintf("%s %d/%d volumes", d.spinner.View(), d.tracker.Done(), d.total))
	body := styles.CardStyle.Render(d.tracker.View())
	help := styles.HelpStyle.Render("q to quit")
	return fmt.Sprintf("%s\n%s\n%s\n%s\n", header, progress, body, help)
}

// Run drives the dashboard until the event channel closes or the user quits.
func Run(title string, totalVolumes int, events <-chan services.Progress) error {
	p := tea.NewProgram(NewDashboard(title, totalVolumes, events), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
