package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sherlouk/internal/ingest"
	"sherlouk/internal/session"
)

// parseFlags are the per-invocation parse options. Only flags the user
// set override the configured defaults.
type parseFlags struct {
	delimiter  string
	encoding   string
	noHeaders  bool
	skipRows   int
	duplicates string
}

func addParseFlags(cmd *cobra.Command, f *parseFlags) {
	fs := cmd.Flags()
	fs.StringVarP(&f.delimiter, "delimiter", "d", ingest.DelimiterAuto, `field delimiter: "," ";" "\t" "|" or auto`)
	fs.StringVarP(&f.encoding, "encoding", "e", "utf-8", "text encoding of the input")
	fs.BoolVar(&f.noHeaders, "no-headers", false, "treat the first row as data")
	fs.IntVar(&f.skipRows, "skip-rows", 0, "non-empty lines to drop before the header")
	fs.StringVar(&f.duplicates, "duplicates", string(ingest.DuplicateSuffix), "duplicate header policy: suffix or overwrite")
}

func (a *app) parseOptions(cmd *cobra.Command, f *parseFlags) (ingest.ParseConfig, error) {
	opts := a.cfg.ParseOptions()
	fs := cmd.Flags()
	if fs.Changed("delimiter") {
		if !ingest.ValidDelimiter(f.delimiter) {
			return opts, fmt.Errorf("--delimiter must be one of auto , ; tab |, got %q", f.delimiter)
		}
		opts.Delimiter = f.delimiter
	}
	if fs.Changed("encoding") {
		opts.Encoding = f.encoding
	}
	if fs.Changed("no-headers") {
		opts.HasHeaders = !f.noHeaders
	}
	if fs.Changed("skip-rows") {
		if f.skipRows < 0 {
			return opts, fmt.Errorf("--skip-rows must be >= 0")
		}
		opts.SkipRows = f.skipRows
	}
	if fs.Changed("duplicates") {
		switch p := ingest.DuplicatePolicy(f.duplicates); p {
		case ingest.DuplicateSuffix, ingest.DuplicateOverwrite:
			opts.Duplicates = p
		default:
			return opts, fmt.Errorf("--duplicates must be suffix or overwrite, got %q", f.duplicates)
		}
	}
	return opts, nil
}

// load reads path under the configured upload policy and parses it through
// a session. data is nil when the file could not be read.
func (a *app) load(ctx context.Context, path string, opts ingest.ParseConfig) (out ingest.Outcome, data []byte) {
	name := filepath.Base(path)
	policy := a.cfg.UploadPolicy()

	f, err := os.Open(path)
	if err != nil {
		a.log.Warn("open input", zap.String("file", path), zap.Error(err))
		return ingest.NewOutcome(nil, ingest.ReadFailure(err)), nil
	}
	defer f.Close()

	data, err = policy.Read(name, f)
	if err != nil {
		a.log.Warn("read input", zap.String("file", path), zap.Error(err))
		return ingest.NewOutcome(nil, ingest.ReadFailure(err)), nil
	}

	// One invocation per command, so nothing here is ever superseded.
	s := session.New(session.WithLogger(a.log), session.WithPolicy(policy))
	out, _ = s.Load(ctx, name, data, opts)
	return out, data
}

// reportFailure prints a failed outcome as JSON to stdout.
func (a *app) reportFailure(cmd *cobra.Command, out ingest.Outcome) error {
	if err := writeJSON(cmd, out); err != nil {
		return err
	}
	return errReported
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
