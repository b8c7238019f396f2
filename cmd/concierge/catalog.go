package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"concierge/internal/remote"
)

var catalogStats bool

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List registered capabilities, static and remote",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, cleanup, err := buildRegistry(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCATEGORY\tORIGIN\tDESCRIPTION")
		for _, d := range registry.List(cmd.Context()) {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Name, d.Category, d.Origin, d.Description)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if catalogStats {
			return printUsageStats(cmd)
		}
		return nil
	},
}

func printUsageStats(cmd *cobra.Command) error {
	if !cfg.Remote.Enabled || cfg.Remote.StorePath == "" {
		fmt.Fprintln(os.Stderr, "no catalog store configured; usage stats unavailable")
		return nil
	}
	store, err := remote.NewStore(cfg.Remote.StorePath)
	if err != nil {
		return fmt.Errorf("failed to open catalog store: %w", err)
	}
	defer store.Close()

	stats, err := store.Stats(cmd.Context())
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		fmt.Println("\nno remote invocations recorded yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\nNAME\tCALLS\tOK\tAVG MS")
	for _, st := range stats {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", st.Name, st.UsageCount, st.SuccessCount, st.AvgLatencyMs)
	}
	return w.Flush()
}

func init() {
	catalogCmd.Flags().BoolVar(&catalogStats, "stats", false, "also show remote usage statistics")
}
