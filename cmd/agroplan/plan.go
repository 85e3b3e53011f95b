package main

import (
	"errors"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abutispinach/agroplan/internal/agent"
	"github.com/abutispinach/agroplan/internal/calendar"
)

func planCmd(configPath *string, verbose *bool) *cobra.Command {
	var (
		location string
		crop     string
		start    string
		export   string
		speak    bool
		plain    bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Run the advisory pipeline once in the terminal",
		Example: `  agroplan plan --location Nairobi --crop maize --start 2024-04-01
  agroplan plan -l Nairobi -p maize -s tomorrow --export . --speak`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			now := time.Now()
			startDate, err := agent.ParseDate(start, now)
			if err != nil {
				return err
			}
			form := agent.Form{Location: location, Crop: crop, StartDate: startDate}
			// fail on bad input before any client is built
			if _, err := agent.BuildContext(form, now); err != nil {
				return err
			}

			var events io.Writer
			if *verbose {
				events = os.Stderr
			}
			a, err := newApp(ctx, *configPath, appOptions{events: events, narrate: speak})
			if err != nil {
				return err
			}
			defer a.Close()

			if export != "" {
				if info, err := os.Stat(export); err == nil && info.IsDir() {
					export = filepath.Join(export, calendar.FileName(crop, now))
				}
			}

			sink := newConsoleSink(ctx, cmd.OutOrStdout(), plain, a.cfg.Speech.Player, export)
			_, err = a.runner.Run(ctx, agent.Request{Form: form}, sink)
			if err != nil {
				return errors.New(agent.Describe(err))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&location, "location", "l", "", "Farm location, e.g. a city name (required)")
	cmd.Flags().StringVarP(&crop, "crop", "p", "", "Crop to plant (required)")
	cmd.Flags().StringVarP(&start, "start", "s", "", "Planting start date: YYYY-MM-DD, today or tomorrow (required)")
	cmd.Flags().StringVarP(&export, "export", "e", "", "Write the calendar CSV to this file or directory")
	cmd.Flags().BoolVar(&speak, "speak", false, "Read answers aloud through the configured player")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print without colors or markdown rendering")
	_ = cmd.MarkFlagRequired("location")
	_ = cmd.MarkFlagRequired("crop")
	_ = cmd.MarkFlagRequired("start")

	return cmd
}
