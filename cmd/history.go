package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vzahanych/weather-widget/internal/config"
	"github.com/vzahanych/weather-widget/internal/console"
	"github.com/vzahanych/weather-widget/internal/recent"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent searches, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(config.GetConfig(), log.Zap(), tele, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			console.PrintRecent(cmd.OutOrStdout(), a.history.Load(cmd.Context()))
			return nil
		},
	}

	cmd.AddCommand(historyClearCmd())
	return cmd
}

func historyClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all recent searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(config.GetConfig(), log.Zap(), tele, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			a.history.Load(cmd.Context())

			var confirm recent.Confirmer
			if yes {
				confirm = recent.ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
			} else {
				confirm = console.New(cmd.InOrStdin(), cmd.OutOrStdout(), log.Zap())
			}

			cleared, err := a.ctrl.ClearHistory(cmd.Context(), confirm)
			if err != nil {
				return fmt.Errorf("failed to clear recent searches: %w", err)
			}
			if cleared {
				fmt.Fprintln(cmd.OutOrStdout(), "Search history cleared.")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Search history kept.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "clear without asking")
	return cmd
}
