package cmd

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/tankobon/pkg/data"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all manga in your library",
	Long:  "Display every manga the pipeline has touched, with chapter and artifact counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		repo, err := data.NewRepository(cfg.Paths.LibraryDB)
		if err != nil {
			return err
		}
		defer repo.Close()

		mangas, err := repo.ListMangas()
		if err != nil {
			return err
		}

		if len(mangas) == 0 {
			fmt.Println("📚 Library is empty. Use 'tankobon search' to find something to download.")
			return nil
		}

		columns := []table.Column{
			{Title: "Name", Width: 40},
			{Title: "ID", Width: 36},
			{Title: "Chapters", Width: 10},
			{Title: "Artifacts", Width: 10},
		}

		rows := []table.Row{}
		for _, manga := range mangas {
			chapters, _ := repo.GetChapters(manga.ID)
			artifacts, _ := repo.ListArtifacts(manga.ID)

			rows = append(rows, table.Row{
				truncateString(manga.Name, 38),
				manga.ID,
				fmt.Sprintf("%d", len(chapters)),
				fmt.Sprintf("%d", len(artifacts)),
			})
		}

		t := table.New(
			table.WithColumns(columns),
			table.WithRows(rows),
			table.WithFocused(false),
			table.WithHeight(len(rows)),
		)

		s := table.DefaultStyles()
		s.Header = s.Header.
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			BorderBottom(true).
			Bold(true)
		s.Selected = s.Selected.
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Bold(false)
		t.SetStyles(s)

		fmt.Printf("\n📚 Library (%d manga)\n\n", len(mangas))
		fmt.Println(t.View())
		return nil
	},
}
