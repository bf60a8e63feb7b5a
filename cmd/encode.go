package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode the dataset into known faces",
	Long: `Encode every image under the dataset directory and replace the stored
known faces with the result. The dataset holds one directory per person:

  dataset/
    Alice/alice_20240506_093000.jpg
    Bob/bob_1.png

Images without a detectable face are skipped and listed at the end.

Examples:
  # Encode the dataset configured by DATASET_DIR
  face-attendance encode

  # Encode another directory with more workers
  face-attendance encode --dataset ./people --workers 8`,
	RunE: runEncode,
}

func init() {
	rootCmd.AddCommand(encodeCmd)

	encodeCmd.Flags().String("dataset", "", "Dataset directory (defaults to DATASET_DIR)")
	encodeCmd.Flags().Int("workers", 0, "Number of parallel workers (defaults to ENCODE_WORKERS)")
}

func runEncode(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if dir := mustGetString(cmd, "dataset"); dir != "" {
		cfg.Gallery.DatasetDir = dir
	}
	if workers := mustGetInt(cmd, "workers"); workers > 0 {
		cfg.Gallery.EncodeWorkers = workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	fmt.Printf("Encoding dataset %s with %d workers\n\n", cfg.Gallery.DatasetDir, cfg.Gallery.EncodeWorkers)

	var (
		mu  sync.Mutex
		bar *progressbar.ProgressBar
	)
	result, err := rt.service.Enroll(ctx, func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Encoding faces"),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("images"),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetPredictTime(true),
				progressbar.OptionFullWidth(),
			)
		}
		// Workers finish out of order, never move the bar backwards.
		if int64(done) > bar.State().CurrentNum {
			_ = bar.Set(done)
		}
	})
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}
	if err != nil {
		return fmt.Errorf("encoding failed: %w", err)
	}

	rt.saveIndex(cfg.Gallery.HNSWIndexPath)

	fmt.Printf("\nEncoded %d faces of %d people from %d images\n", result.Faces, result.People, result.Images)
	if len(result.Skipped) > 0 {
		fmt.Printf("\nSkipped %d images:\n", len(result.Skipped))
		for _, s := range result.Skipped {
			fmt.Printf("  %s: %s\n", s.Path, s.Reason)
		}
	}
	return nil
}
