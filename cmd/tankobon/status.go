package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/kerbaras/tankobon/pkg/data"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent pipeline runs",
	Long:  "Display the most recent volume runs with their terminal state and failure reasons",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		repo, err := data.NewRepository(cfg.Paths.LibraryDB)
		if err != nil {
			return err
		}
		defer repo.Close()

		runs, err := repo.ListRuns(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Manga", "Volume", "State", "Pages", "Reason"})
		for _, run := range runs {
			t.AppendRow(table.Row{
				truncateString(run.MangaID, 36),
				run.VolumeLabel,
				run.State,
				run.Pages,
				truncateString(run.Reason, 50),
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}

func init() {
	statusCmd.Flags().Int("limit", 20, "maximum number of runs to show")
}
