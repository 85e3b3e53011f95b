package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/abutispinach/agroplan/internal/log"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
)

func historyCmd(configPath *string) *cobra.Command {
	var (
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHistory(*configPath)
			if err != nil {
				return err
			}
			defer func() { log.CloseError("history", h.Close()) }()
			out := cmd.OutOrStdout()

			if runID != "" {
				steps, err := h.RunSteps(cmd.Context(), runID)
				if err != nil {
					return err
				}
				if len(steps) == 0 {
					return fmt.Errorf("no steps recorded for run %s", runID)
				}
				for _, s := range steps {
					fmt.Fprintln(out, roleStyle.Render(fmt.Sprintf("%d. %s (%s, %dms)", s.Position+1, s.Role, s.StepID, s.ElapsedMS)))
					fmt.Fprintln(out, s.Output)
				}
				return nil
			}

			runs, err := h.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "no runs recorded yet")
				return nil
			}
			for _, r := range runs {
				status := okStyle.Render(r.Status)
				if r.Status != "completed" {
					status = failStyle.Render(r.Status)
				}
				source := r.Channel
				if source == "" {
					source = "cli"
				}
				fmt.Fprintf(out, "%s  %s  %-10s %s in %s from %s  steps:%d calendar:%d (fallback %d)  %s\n",
					faintStyle.Render(r.StartedAt.Local().Format("2006-01-02 15:04")),
					r.RunID, status, r.Crop, r.Location, r.StartDate,
					r.Steps, r.Entries, r.Fallbacks, faintStyle.Render(source))
				if r.Error != "" {
					fmt.Fprintln(out, "    "+failStyle.Render(r.Error))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "Show the step outputs of one run")
	return cmd
}
