// Package metrics is the backend-agnostic metrics facade used by the ingest
// pipeline.
//
// Core code only calls the package-level helpers (IncCounter,
// ObserveHistogram, Flush). A concrete backend (for example
// internal/metrics/datadog) is installed once by the command via SetBackend.
// Until then a no-op backend is active, so library code and tests never need
// to care whether metrics are configured.
//
// Metric names used across the repo:
//
//   - sherlouk_parse_total{status,kind}       parses by outcome
//   - sherlouk_rows_total{kind}               rows seen (preview, total, streamed)
//   - sherlouk_parse_duration_seconds{status} wall time per parse
//   - sherlouk_upload_bytes{status}           accepted upload sizes
package metrics

import "sync"

// Labels are metric dimensions. Backends may ignore labels they do not know.
type Labels map[string]string

// Backend receives metric events.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
}

// Flusher is implemented by backends that buffer events.
type Flusher interface {
	Flush() error
}

const (
	ParseTotal           = "sherlouk_parse_total"
	RowsTotal            = "sherlouk_rows_total"
	ParseDurationSeconds = "sherlouk_parse_duration_seconds"
	UploadBytes          = "sherlouk_upload_bytes"
)

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b as the process-wide backend. A nil b restores the
// no-op backend.
func SetBackend(b Backend) {
	if b == nil {
		b = nopBackend{}
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter forwards to the active backend.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram forwards to the active backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush flushes the active backend if it buffers; otherwise it is a no-op.
func Flush() error {
	if f, ok := current().(Flusher); ok {
		return f.Flush()
	}
	return nil
}
