package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database/local"
	"github.com/spf13/cobra"
)

var fetchEncodingsCmd = &cobra.Command{
	Use:   "fetch-encodings",
	Short: "Download the encodings file from ENCODINGS_URL",
	Long: `Download the encodings document from ENCODINGS_URL and store it at
ENCODINGS_PATH, replacing the existing file. The document is validated
before it is written.`,
	RunE: runFetchEncodings,
}

func init() {
	rootCmd.AddCommand(fetchEncodingsCmd)

	fetchEncodingsCmd.Flags().String("url", "", "Source URL (defaults to ENCODINGS_URL)")
}

func runFetchEncodings(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	url := mustGetString(cmd, "url")
	if url == "" {
		url = cfg.Gallery.EncodingsURL
	}
	if url == "" {
		return errors.New("ENCODINGS_URL environment variable or --url is required")
	}

	fmt.Printf("Downloading encodings from %s...\n", url)
	n, err := local.Download(context.Background(), url, cfg.Gallery.EncodingsPath)
	if err != nil {
		return err
	}
	fmt.Printf("Saved %d known faces to %s\n", n, cfg.Gallery.EncodingsPath)
	return nil
}
