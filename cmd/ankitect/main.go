package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"codeberg.org/snonux/ankitect/internal/anki"
	"codeberg.org/snonux/ankitect/internal/archive"
	"codeberg.org/snonux/ankitect/internal/cache"
	"codeberg.org/snonux/ankitect/internal/cli"
	"codeberg.org/snonux/ankitect/internal/fetcher"
	"codeberg.org/snonux/ankitect/internal/logger"
	"codeberg.org/snonux/ankitect/internal/pipeline"
	"codeberg.org/snonux/ankitect/internal/ratesignal"
	"codeberg.org/snonux/ankitect/internal/vocab"
)

func main() {
	// Local .env is optional.
	_ = godotenv.Load()

	flags := cli.NewFlags()
	rootCmd := cli.CreateRootCommand(flags)

	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
	})

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, args, flags)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCommand(cmd *cobra.Command, args []string, flags *cli.Flags) error {
	log := logger.New()

	rows, err := vocab.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read vocabulary file: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("no vocabulary rows in %s", args[0])
	}

	for _, dir := range []string{flags.OutputDir, flags.MediaDir, flags.CacheDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	tracker := ratesignal.New()

	var imageFetcher, audioFetcher fetcher.Fetcher
	if !flags.SkipImages {
		imageFetcher, err = fetcher.NewImageProvider(flags.ImageProviderConfig(cli.GetImageKey(flags.ImageProvider)), tracker.RecordOutcome)
		if err != nil {
			return fmt.Errorf("failed to create image fetcher: %w", err)
		}
	}
	if !flags.SkipAudio {
		audioFetcher, err = fetcher.NewAudioFetcher(flags.AudioConfig(cli.GetOpenAIKey()), tracker.RecordOutcome)
		if err != nil {
			return fmt.Errorf("failed to create audio fetcher: %w", err)
		}
	}

	ledger := cache.New(flags.LedgerPath(), flags.MediaDir)

	progress := pipeline.NewProgressQueue()
	go consumeProgress(progress, len(rows))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	builder := pipeline.NewBuilder(flags.PipelineConfig(), ledger, tracker, imageFetcher, audioFetcher, progress, log)
	result, err := builder.Run(ctx, rows)
	progress.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Build interrupted: %v (keeping fetched media)\n", err)
	}
	if result == nil || len(result.Cards) == 0 {
		return fmt.Errorf("no cards produced")
	}

	deck := anki.NewDeck(flags.DeckTitle(), flags.PipelineConfig().Language, flags.MediaDir)
	for _, card := range result.Cards {
		deck.AddCard(card)
	}

	outputPath := flags.OutputPath()
	if backup, err := archive.BackupExisting(outputPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	} else if backup != "" {
		fmt.Printf("Previous deck backed up to: %s\n", backup)
	}

	if flags.AnkiCSV {
		err = deck.ExportCSV(outputPath)
	} else {
		err = deck.ExportAPKG(outputPath)
	}
	if err != nil {
		return fmt.Errorf("failed to export deck: %w", err)
	}

	if err := archive.CleanupBackups(outputPath, flags.KeepBackups); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to clean up backups: %v\n", err)
	}

	printSummary(result, deck, outputPath)
	return nil
}

func consumeProgress(progress *pipeline.ProgressQueue, total int) {
	for ev := range progress.Events() {
		switch ev.Kind {
		case pipeline.EventLog:
			fmt.Println(ev.Message)
		case pipeline.EventProgress:
			fmt.Printf("[%d/%d]\n", ev.Value, total)
		}
	}
}

func printSummary(result *pipeline.BuildResult, deck *anki.Deck, outputPath string) {
	total, withAudio, withImages := deck.Stats()

	fmt.Println()
	fmt.Println("============================================================")
	fmt.Println("BUILD STATISTICS")
	fmt.Println("============================================================")
	fmt.Print(result.Stats.Summary())
	fmt.Printf("Notes exported:   %d (%d with audio, %d with images)\n", total, withAudio, withImages)
	if result.RateAdjustments > 0 {
		fmt.Printf("Rate backoffs:    %d\n", result.RateAdjustments)
	}
	fmt.Printf("Output file:      %s\n", outputPath)
	fmt.Println("============================================================")
}
