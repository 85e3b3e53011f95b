// Package main is the entry point for the agroplan command.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abutispinach/agroplan/internal/log"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		verbose    bool
	)

	rootCmd := &cobra.Command{
		Use:   "agroplan",
		Short: "Agroplan plans a crop season with weather, expert advice and a calendar",
		Long: `Agroplan takes a location, a crop and a planting start date, looks up the
current weather, asks a sequence of farming experts for advice and turns the
planner's answer into a dated calendar you can export as CSV. Answers can be
read aloud.

Use "plan" for a single run in the terminal or "serve" to answer /plan
commands from Telegram and Discord.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetVerbose(verbose)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json", "Config file path (JSON)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging and event output")

	rootCmd.AddCommand(planCmd(&configPath, &verbose))
	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(historyCmd(&configPath))
	rootCmd.AddCommand(stepsCmd(&configPath))

	return rootCmd.Execute()
}
