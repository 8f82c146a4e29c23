package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sherlouk/internal/ingest"
)

func (a *app) parseCmd() *cobra.Command {
	var (
		pf     parseFlags
		report bool
	)

	cmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse a file and print columns, inferred types and a preview",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.parseOptions(cmd, &pf)
			if err != nil {
				return err
			}

			out, _ := a.load(cmd.Context(), args[0], opts)
			if !out.Success {
				if report {
					fmt.Fprintf(cmd.OutOrStdout(), "error (%s): %s\n", out.Kind, out.Error)
					return errReported
				}
				return a.reportFailure(cmd, out)
			}

			if report {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), ingest.FormatReport(out.Result))
				return err
			}
			return writeJSON(cmd, out)
		},
	}

	addParseFlags(cmd, &pf)
	cmd.Flags().BoolVar(&report, "report", false, "print a plain-text schema report instead of JSON")
	return cmd
}
