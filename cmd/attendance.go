package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/spf13/cobra"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Print the attendance log",
	Long: `Print the attendance log, optionally limited to a single day.

Examples:
  # Print every recorded day
  face-attendance attendance

  # Print one day
  face-attendance attendance --date 2024-05-06`,
	RunE: runAttendance,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)

	attendanceCmd.Flags().String("date", "", "Day to print (YYYY-MM-DD)")
}

func runAttendance(cmd *cobra.Command, args []string) error {
	day := mustGetString(cmd, "date")

	ctx := context.Background()
	rt, err := newRuntime(ctx, config.Load())
	if err != nil {
		return err
	}
	defer rt.Close()

	records, err := rt.service.Attendance(ctx, day)
	if err != nil {
		return fmt.Errorf("failed to read attendance: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No attendance records")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDATE\tTIME")
	fmt.Fprintln(w, "----\t----\t----")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.Date, r.Time)
	}
	w.Flush()
	fmt.Printf("\nTotal: %d records\n", len(records))
	return nil
}
