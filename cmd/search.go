package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/vzahanych/weather-widget/internal/config"
	"github.com/vzahanych/weather-widget/internal/console"
	"github.com/vzahanych/weather-widget/internal/widget"
)

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <city...>",
		Short: "Show the weather for one city and exit",
		Example: `  weather search London
  weather search New York`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(config.GetConfig(), log.Zap(), tele, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			state, err := a.ctrl.Submit(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			console.Print(cmd.OutOrStdout(), a.ctrl.Describe(state))
			if state.Phase == widget.PhaseError {
				return errReported
			}
			return nil
		},
	}
}
