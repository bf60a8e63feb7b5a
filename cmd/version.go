package cmd

import (
	"fmt"
	"runtime"

	"github.com/kozaktomas/face-attendance/internal/engine/dlib"
	"github.com/spf13/cobra"
)

// Build metadata variables, set by -ldflags at compile time.
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Run: func(cmd *cobra.Command, args []string) {
		engines := "remote"
		if dlib.Available {
			engines = "dlib, remote"
		}
		fmt.Printf("face-attendance %s\n", Version)
		fmt.Printf("  Commit:  %s\n", CommitSHA)
		fmt.Printf("  Built:   %s\n", BuildDate)
		fmt.Printf("  Go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		fmt.Printf("  Engines: %s\n", engines)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
