package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sherlouk/internal/syncconfig"
)

func (a *app) syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Database synchronization settings",
	}
	cmd.AddCommand(a.syncCheckCmd())
	return cmd
}

func (a *app) syncCheckCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check [SETTINGS_FILE]",
		Short: "Validate sync settings without connecting",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}

			s, err := syncconfig.Load(path)
			if err != nil {
				return err
			}
			sum, err := s.Check()
			if err != nil {
				return fmt.Errorf("sync settings: %w", err)
			}
			a.log.Info("sync settings ok", zap.String("backend", sum.Backend), zap.String("table", sum.Table))

			if asJSON {
				return writeJSON(cmd, sum)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), sum.String())
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}
