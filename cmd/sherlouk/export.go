package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sherlouk/internal/decode"
	"sherlouk/internal/ingest"
	"sherlouk/internal/transformer"
	"sherlouk/internal/upload"
)

func (a *app) exportCmd() *cobra.Command {
	var (
		pf         parseFlags
		output     string
		hashColumn string
		hashOf     []string
	)

	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Write every data row as JSON lines keyed by column name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.parseOptions(cmd, &pf)
			if err != nil {
				return err
			}

			out, data := a.load(cmd.Context(), args[0], opts)
			if !out.Success {
				return a.reportFailure(cmd, out)
			}

			var hash func([]string) string
			if hashColumn != "" {
				header := make([]string, len(out.Columns))
				for i, c := range out.Columns {
					header[i] = c.Name
				}
				hash, err = transformer.RowHash{Columns: hashOf, IncludeNames: true, TrimSpace: true}.Bind(header)
				if err != nil {
					return err
				}
			}

			enc, err := decode.Normalize(opts.Encoding)
			if err != nil {
				return err
			}
			text, err := upload.ToText(filepath.Base(args[0]), data, enc)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				w = f
			}

			n, ragged, err := a.exportRows(cmd, text, out.Result, w, hashColumn, hash)
			if err != nil {
				return err
			}
			a.log.Info("export done", zap.Int("rows", n), zap.Int("ragged", ragged))
			return nil
		},
	}

	addParseFlags(cmd, &pf)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&hashColumn, "hash-column", "", "add a SHA-256 row fingerprint under this key")
	cmd.Flags().StringSliceVar(&hashOf, "hash-of", nil, "columns to fingerprint (default all)")
	return cmd
}

// exportRows streams rows from text through a channel into w. With a
// non-nil hash each record also carries its fingerprint under hashColumn.
func (a *app) exportRows(
	cmd *cobra.Command,
	text string,
	res *ingest.Result,
	w io.Writer,
	hashColumn string,
	hash func([]string) string,
) (n, ragged int, err error) {
	rows := make(chan ingest.Row, 64)
	g, ctx := errgroup.WithContext(cmd.Context())

	g.Go(func() error {
		defer close(rows)
		return ingest.StreamRows(ctx, text, res, rows, func(line int, err error) {
			ragged++
			a.log.Debug("ragged row", zap.Int("line", line), zap.Error(err))
		})
	})

	g.Go(func() error {
		bw := bufio.NewWriter(w)
		enc := json.NewEncoder(bw)
		for row := range rows {
			rec := make(map[string]string, len(res.Columns))
			for i, c := range res.Columns {
				rec[c.Name] = row.Values[i]
			}
			if hash != nil {
				rec[hashColumn] = hash(row.Values)
			}
			if err := enc.Encode(rec); err != nil {
				return fmt.Errorf("write line %d: %w", row.Line, err)
			}
			n++
		}
		return bw.Flush()
	})

	err = g.Wait()
	return n, ragged, err
}
