// Package session keeps one uploaded file and its latest parse outcome.
//
// Every upload and every configuration change re-parses the retained bytes
// from scratch. Invocations may overlap; only the most recently started one
// is applied. Older invocations still run to completion and return their
// outcome, but Current never reflects them once a newer one has started.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"sherlouk/internal/decode"
	"sherlouk/internal/ingest"
	"sherlouk/internal/metrics"
	"sherlouk/internal/upload"

	"go.uber.org/zap"
)

// ErrNoUpload is reported (as a ReadFailure outcome) by Reconfigure before
// any file was loaded.
var ErrNoUpload = errors.New("no file uploaded")

// Session is safe for concurrent use.
type Session struct {
	log    *zap.Logger
	policy upload.Policy

	mu      sync.Mutex
	name    string
	data    []byte
	loaded  bool
	gen     uint64 // latest started invocation
	current ingest.Outcome

	// afterParse runs between parsing and applying; tests use it to force
	// interleavings.
	afterParse func(gen uint64)
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithPolicy sets the upload policy checked by Load.
func WithPolicy(p upload.Policy) Option {
	return func(s *Session) { s.policy = p }
}

// New returns an empty session.
func New(opts ...Option) *Session {
	s := &Session{
		log:    zap.NewNop(),
		policy: upload.DefaultPolicy(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load retains a new upload and parses it with cfg. The bool reports
// whether the outcome became current. A file rejected by the upload policy
// is not retained; the previous upload stays available to Reconfigure.
func (s *Session) Load(ctx context.Context, name string, data []byte, cfg ingest.ParseConfig) (ingest.Outcome, bool) {
	checkErr := s.policy.Check(name, int64(len(data)))

	s.mu.Lock()
	s.gen++
	gen := s.gen
	if checkErr == nil {
		s.name = name
		s.data = data
		s.loaded = true
	}
	s.mu.Unlock()

	if checkErr != nil {
		return s.finish(gen, name, time.Now(), nil, ingest.ReadFailure(checkErr))
	}
	metrics.ObserveHistogram(metrics.UploadBytes, float64(len(data)), metrics.Labels{"status": "ok"})

	return s.run(ctx, gen, name, data, cfg)
}

// Reconfigure re-parses the retained upload with cfg. Without a prior
// upload it yields a ReadFailure outcome.
func (s *Session) Reconfigure(ctx context.Context, cfg ingest.ParseConfig) (ingest.Outcome, bool) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	name, data, loaded := s.name, s.data, s.loaded
	s.mu.Unlock()

	if !loaded {
		return s.finish(gen, "", time.Now(), nil, ingest.ReadFailure(ErrNoUpload))
	}
	return s.run(ctx, gen, name, data, cfg)
}

// Current returns the outcome of the latest applied invocation. Before any
// invocation it is a zero (unsuccessful, empty) Outcome.
func (s *Session) Current() ingest.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Generation returns the number of invocations started so far.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *Session) run(ctx context.Context, gen uint64, name string, data []byte, cfg ingest.ParseConfig) (ingest.Outcome, bool) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return s.finish(gen, name, start, nil, ingest.ReadFailure(err))
	}

	enc, err := decode.Normalize(cfg.Encoding)
	if err != nil {
		return s.finish(gen, name, start, nil, ingest.ReadFailure(err))
	}
	cfg.Encoding = enc

	text, err := upload.ToText(name, data, enc)
	if err != nil {
		return s.finish(gen, name, start, nil, ingest.ReadFailure(err))
	}

	res, err := ingest.Parse(text, cfg)
	return s.finish(gen, name, start, res, err)
}

// finish records metrics and applies the outcome if gen is still the
// latest started invocation.
func (s *Session) finish(gen uint64, name string, start time.Time, res *ingest.Result, err error) (ingest.Outcome, bool) {
	out := ingest.NewOutcome(res, err)
	elapsed := time.Since(start)
	record(out, elapsed)

	if s.afterParse != nil {
		s.afterParse(gen)
	}

	s.mu.Lock()
	applied := gen == s.gen
	if applied {
		s.current = out
	}
	latest := s.gen
	s.mu.Unlock()

	fields := []zap.Field{
		zap.Uint64("generation", gen),
		zap.String("file", name),
		zap.Bool("success", out.Success),
		zap.Duration("elapsed", elapsed),
	}
	if out.Success {
		fields = append(fields, zap.Int("columns", len(out.Columns)), zap.Int("total_rows", out.TotalRows))
	} else {
		fields = append(fields, zap.String("kind", string(out.Kind)), zap.String("error", out.Error))
	}

	if !applied {
		s.log.Debug("parse superseded", append(fields, zap.Uint64("latest", latest))...)
		return out, false
	}
	s.log.Info("parse applied", fields...)
	return out, true
}

func record(out ingest.Outcome, elapsed time.Duration) {
	status := "ok"
	labels := metrics.Labels{"status": status}
	if !out.Success {
		status = "error"
		labels = metrics.Labels{"status": status, "kind": string(out.Kind)}
	}
	metrics.IncCounter(metrics.ParseTotal, 1, labels)
	metrics.ObserveHistogram(metrics.ParseDurationSeconds, elapsed.Seconds(), metrics.Labels{"status": status})
	if out.Success {
		metrics.IncCounter(metrics.RowsTotal, float64(out.TotalRows), metrics.Labels{"kind": "total"})
		metrics.IncCounter(metrics.RowsTotal, float64(len(out.Preview)), metrics.Labels{"kind": "preview"})
	}
}
