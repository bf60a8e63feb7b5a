package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/imaging"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
	"github.com/spf13/cobra"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Recognize faces in an image",
	Long: `Detect faces in an image and match them against the known faces.
An annotated copy is written next to the image as recognized_<name>.jpg.

Examples:
  # Recognize and write the annotated copy
  face-attendance recognize group.jpg

  # Only print the names and mark attendance
  face-attendance recognize group.jpg --no-save --attendance`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().Bool("no-save", false, "Do not write the annotated image")
	recognizeCmd.Flags().Bool("attendance", false, "Mark attendance for recognized people")
}

// annotatedPath returns the output path for the annotated copy of path.
func annotatedPath(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(path), "recognized_"+stem+".jpg")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	noSave := mustGetBool(cmd, "no-save")
	markAttendance := mustGetBool(cmd, "attendance")
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	ctx := context.Background()
	cfg := config.Load()

	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	rec, err := rt.service.Recognize(ctx, data, recognizer.RecognizeOptions{MarkAttendance: markAttendance})
	if err != nil {
		return fmt.Errorf("recognition failed: %w", err)
	}

	if len(rec.Faces) == 0 {
		fmt.Println("No faces found")
	} else {
		fmt.Printf("Found %d face(s):\n", len(rec.Faces))
	}
	for _, f := range rec.Faces {
		if !f.Known {
			fmt.Println("→ Unknown person")
			continue
		}
		line := fmt.Sprintf("→ %s (%.1f%% confident)", f.Name, f.Confidence)
		if f.Marked {
			line += " [attendance marked]"
		}
		fmt.Println(line)
	}

	if noSave {
		return nil
	}

	quality := cfg.Recognition.JPEGQuality
	if quality <= 0 {
		quality = constants.DefaultJPEGQuality
	}
	out, err := imaging.JPEGBytes(imaging.Annotate(rec.Image, recognizer.Boxes(rec.Faces)), quality)
	if err != nil {
		return fmt.Errorf("failed to encode annotated image: %w", err)
	}
	outPath := annotatedPath(path)
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	fmt.Printf("Annotated image saved to %s\n", outPath)
	return nil
}
