package cmd

import (
	"github.com/spf13/cobra"
	"github.com/vzahanych/weather-widget/internal/config"
	"github.com/vzahanych/weather-widget/internal/console"
)

func interactiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"i"},
		Short:   "Search the weather from the terminal",
		Long: `Read city names line by line and show current conditions and the forecast.
Commands: :recent lists recent searches, :N re-runs entry N, :clear empties the list, :quit exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			con := console.New(cmd.InOrStdin(), cmd.OutOrStdout(), log.Zap())

			a, err := newApp(config.GetConfig(), log.Zap(), tele, con)
			if err != nil {
				return err
			}
			defer a.Close()

			return con.Run(cmd.Context(), a.ctrl)
		},
	}
}
