package main

import (
	"fmt"
	"io"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"coselect/internal/bench"
)

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List configured scenarios",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		source := "built-in defaults"
		if cfg.Path != "" {
			source = cfg.Path
		}
		quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
		if err != nil {
			return err
		}
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "scenarios from %s:\n", source)
		}
		renderScenarios(cmd.OutOrStdout(), cfg.Scenarios)
		return nil
	},
}

func renderScenarios(out io.Writer, scenarios []bench.Scenario) {
	nameWidth := len("name")
	for _, sc := range scenarios {
		nameWidth = max(nameWidth, runewidth.StringWidth(sc.Key()))
	}
	fmt.Fprintf(out, "%s  %8s  %6s  %9s  %8s  %6s\n",
		runewidth.FillRight("name", nameWidth), "branches", "cycles", "threshold", "latency", "order")
	for _, sc := range scenarios {
		fmt.Fprintf(out, "%s  %8d  %6d  %9d  %8s  %6s\n",
			runewidth.FillRight(sc.Key(), nameWidth), sc.Branches, sc.Cycles, sc.Threshold, sc.Latency, sc.Order)
	}
}
