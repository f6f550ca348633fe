package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Advance every instrument price once",
	Long: `Run a single simulator tick and print the resulting prices.

Example:
  trader tick --count 10`,
	Args: cobra.NoArgs,
	RunE: runTick,
}

var tickCount int

func init() {
	rootCmd.AddCommand(tickCmd)

	tickCmd.Flags().IntVarP(&tickCount, "count", "n", 1, "number of ticks to run")
}

func runTick(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := newSimulator(a)
	if err != nil {
		return err
	}

	for i := 0; i < tickCount; i++ {
		report := s.Tick(ctx)
		if report.Failed > 0 {
			fmt.Printf("tick %d: %d updated, %d failed\n", i+1, report.Updated, report.Failed)
		}
	}

	return printInstruments(cmd, a)
}
