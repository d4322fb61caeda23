package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/kerbaras/tankobon/pkg/app"
	"github.com/kerbaras/tankobon/pkg/services"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download [manga-id]",
	Short: "Download a manga and package its volumes",
	Long:  "Download every chapter of a manga, group them into volumes and produce one archive per volume",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mangaID := args[0]
		enhance, _ := cmd.Flags().GetBool("enhance")
		noPackage, _ := cmd.Flags().GetBool("no-package")
		formats, _ := cmd.Flags().GetStringSlice("format")
		useTUI, _ := cmd.Flags().GetBool("tui")

		if enhance && noPackage {
			return fmt.Errorf("--enhance and --no-package are mutually exclusive")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if language, _ := cmd.Flags().GetString("language"); language != "" {
			cfg.Download.Language = language
		}
		if batchSize, _ := cmd.Flags().GetInt("batch-size"); batchSize > 0 {
			cfg.Download.BatchSize = batchSize
		}
		if dataSaver, _ := cmd.Flags().GetBool("data-saver"); dataSaver {
			cfg.Download.DataSaver = true
		}

		mode := services.ModePackage
		switch {
		case enhance:
			mode = services.ModeEnhance
		case noPackage:
			mode = services.ModeDownload
		}

		controller, err := services.NewController(cfg, mode, formats, nil)
		if err != nil {
			return err
		}
		defer controller.Close()

		manga, volumes, err := controller.PrepareVolumes(mangaID)
		if err != nil {
			return err
		}
		if len(volumes) == 0 {
			fmt.Printf("📚 %s has no chapters in %s, nothing to do\n", manga.Name, cfg.Download.Language)
			return nil
		}
		fmt.Printf("📚 %s: %d volumes to process\n", manga.Name, len(volumes))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		pipeline := controller.Pipeline()
		resultsCh := make(chan []services.VolumeResult, 1)
		go func() {
			resultsCh <- pipeline.Run(ctx, mangaID, volumes)
		}()

		if useTUI {
			if err := app.Run(manga.Name, len(volumes), pipeline.Progress()); err != nil {
				return err
			}
		} else {
			printProgress(pipeline.Progress())
		}

		results := <-resultsCh
		printSummary(results)

		if services.Failed(results) {
			return fmt.Errorf("%d of %d volumes failed", countFailed(results), len(results))
		}
		return nil
	},
}

func init() {
	downloadCmd.Flags().StringP("language", "l", "", "language code (e.g. en, ja, es)")
	downloadCmd.Flags().Bool("enhance", false, "upscale pages with the configured enhancer before packaging")
	downloadCmd.Flags().Bool("no-package", false, "stop after downloading raw pages")
	downloadCmd.Flags().StringSliceP("format", "f", nil, "output formats (cbz, pdf, epub)")
	downloadCmd.Flags().Int("batch-size", 0, "chapters per volume when the source has no volume labels")
	downloadCmd.Flags().Bool("data-saver", false, "download compressed page variants")
	downloadCmd.Flags().Bool("tui", false, "show a live dashboard instead of plain progress")
}

// printProgress consumes pipeline events until the channel closes, drawing
// one progress bar per downloading volume.
func printProgress(events <-chan services.Progress) {
	var bar *progressbar.ProgressBar
	var barVolume string
	for event := range events {
		switch event.State {
		case services.StateDownloading:
			if event.PagesTotal == 0 {
				continue
			}
			if bar == nil || barVolume != event.VolumeLabel {
				bar = progressbar.NewOptions(event.PagesTotal,
					progressbar.OptionSetDescription(event.VolumeLabel),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionClearOnFinish(),
					progressbar.OptionShowCount(),
				)
				barVolume = event.VolumeLabel
			}
			bar.Set(event.PagesDone)
		case services.StateEnhancing:
			fmt.Printf("✨ %s: enhancing %d pages\n", event.VolumeLabel, event.PagesTotal)
		case services.StatePackaging:
			fmt.Printf("📦 %s: packaging\n", event.VolumeLabel)
		case services.StateDone:
			fmt.Printf("✅ %s: done\n", event.VolumeLabel)
		case services.StateFailed:
			fmt.Printf("❌ %s: failed\n", event.VolumeLabel)
		}
	}
}

func printSummary(results []services.VolumeResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Volume", "State", "Pages", "Artifacts"})
	for _, result := range results {
		detail := artifactList(result)
		if result.State == services.StateFailed {
			detail = truncateString(result.Reason, 60)
		}
		t.AppendRow(table.Row{result.Volume.Label, string(result.State), result.Pages, detail})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func artifactList(result services.VolumeResult) string {
	formats := make([]string, len(result.Artifacts))
	for i, artifact := range result.Artifacts {
		formats[i] = artifact.Format
	}
	return strings.Join(formats, ", ")
}

func countFailed(results []services.VolumeResult) int {
	failed := 0
	for _, result := range results {
		if result.State == services.StateFailed {
			failed++
		}
	}
	return failed
}
