package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abutispinach/agroplan/internal/agent"
	"github.com/abutispinach/agroplan/pkg/config"
)

func stepsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "Print the configured advisory steps in execution order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			catalog, err := agent.LoadCatalog(cfg.App.StepsFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, s := range catalog.Steps() {
				marker := ""
				if s.Planner {
					marker = " [calendar]"
				}
				fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%d. %s%s", i+1, s.ID, marker)))
				fmt.Fprintln(out, "   as:   "+catalog.Persona(s).Role)
				fmt.Fprintln(out, "   task: "+s.Template)
				if s.Research != "" {
					fmt.Fprintf(out, "   research (%s): %s\n", s.Tool, s.Research)
				}
			}
			return nil
		},
	}
}
