package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/spf13/cobra"
)

var peopleCmd = &cobra.Command{
	Use:   "people",
	Short: "List enrolled people",
	RunE:  runPeople,
}

func init() {
	rootCmd.AddCommand(peopleCmd)
}

func runPeople(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(context.Background(), config.Load())
	if err != nil {
		return err
	}
	defer rt.Close()

	people := rt.service.People()
	if len(people) == 0 {
		fmt.Println("No people enrolled")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSAMPLES")
	fmt.Fprintln(w, "----\t-------")
	for _, p := range people {
		fmt.Fprintf(w, "%s\t%d\n", p.Name, p.Samples)
	}
	w.Flush()
	fmt.Printf("\nTotal: %d people, %d faces\n", len(people), rt.gallery.Len())
	return nil
}
