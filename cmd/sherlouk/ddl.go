package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sherlouk/internal/ddl"
	"sherlouk/internal/ingest"
	"sherlouk/internal/storage"
	_ "sherlouk/internal/storage/all"
	"sherlouk/internal/storage/sqlite"
)

func (a *app) ddlCmd() *cobra.Command {
	var (
		pf        parseFlags
		dialect   string
		table     string
		key       string
		inserts   bool
		validate  bool
		overrides map[string]string
	)

	cmd := &cobra.Command{
		Use:   "ddl FILE",
		Short: "Print the CREATE TABLE statements a file would load into",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.parseOptions(cmd, &pf)
			if err != nil {
				return err
			}

			opt := ddl.Options{
				Table:       a.cfg.DDL.Table,
				Dialect:     a.cfg.DDL.Dialect,
				PrimaryKey:  a.cfg.DDL.PrimaryKey,
				WithInserts: inserts,
			}
			if cmd.Flags().Changed("dialect") {
				opt.Dialect = dialect
			}
			if cmd.Flags().Changed("table") {
				opt.Table = table
			}
			if cmd.Flags().Changed("primary-key") {
				opt.PrimaryKey = key
			}
			if len(overrides) > 0 {
				opt.Overrides = make(map[string]ingest.DataType, len(overrides))
				for col, typ := range overrides {
					opt.Overrides[col] = ingest.DataType(strings.ToLower(strings.TrimSpace(typ)))
				}
			}
			if _, err := storage.Lookup(opt.Dialect); err != nil {
				return err
			}

			out, _ := a.load(cmd.Context(), args[0], opts)
			if !out.Success {
				return a.reportFailure(cmd, out)
			}

			script, err := ddl.Preview(out.Result, opt)
			if err != nil {
				return err
			}

			if validate {
				check := opt
				check.Dialect = sqlite.Kind
				check.WithInserts = true
				stmts, err := ddl.Statements(out.Result, check)
				if err != nil {
					return err
				}
				if err := sqlite.Validate(cmd.Context(), stmts); err != nil {
					return fmt.Errorf("dry run: %w", err)
				}
				a.log.Info("ddl dry run passed", zap.Int("statements", len(stmts)))
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), script)
			return err
		},
	}

	addParseFlags(cmd, &pf)
	fs := cmd.Flags()
	fs.StringVar(&dialect, "dialect", ddl.DefaultDialect, "target dialect: "+strings.Join(storage.Kinds(), ", "))
	fs.StringVar(&table, "table", ddl.DefaultTable, "target table, optionally schema-qualified")
	fs.StringVar(&key, "primary-key", ddl.KeyAuto, "auto, none, suggest or a column name")
	fs.BoolVar(&inserts, "inserts", false, "append an INSERT of the preview rows")
	fs.BoolVar(&validate, "validate", false, "dry-run the statements on an in-memory SQLite database")
	fs.StringToStringVar(&overrides, "type", nil, "override a column type, e.g. --type zip=text")
	return cmd
}
