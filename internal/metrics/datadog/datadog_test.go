package datadog

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"runtime"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"sherlouk/internal/metrics"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

// fakeSubmitter captures payloads submitted by Backend.Flush().
type fakeSubmitter struct {
	mu       sync.Mutex
	payloads []datadogV2.MetricPayload
	err      error
}

func (f *fakeSubmitter) SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, body)
	return datadogV2.IntakePayloadAccepted{}, nil, f.err
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func (f *fakeSubmitter) last() (datadogV2.MetricPayload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.payloads) == 0 {
		return datadogV2.MetricPayload{}, false
	}
	return f.payloads[len(f.payloads)-1], true
}

// quietOptions returns options whose ticker never fires during a test.
func quietOptions(fs *fakeSubmitter) Options {
	return Options{
		JobName:    "job1",
		FlushEvery: 24 * time.Hour,
		submitter:  fs,
		now:        func() time.Time { return time.Unix(1000, 0) },
		newTicker:  func(d time.Duration) *time.Ticker { return time.NewTicker(24 * time.Hour) },
	}
}

// TestResolveEnvTag verifies environment-tag precedence and defaults.
func TestResolveEnvTag(t *testing.T) {
	tests := []struct {
		name string
		env  string
		dd   string
		want string
	}{
		{name: "ENV_wins", env: "prod", dd: "stage", want: "env:prod"},
		{name: "DD_ENV_used_when_ENV_empty", env: "", dd: "stage", want: "env:stage"},
		{name: "whitespace_ignored", env: "   ", dd: "\n\t", want: "env:unknown"},
		{name: "default_unknown", env: "", dd: "", want: "env:unknown"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("ENV", tc.env)
			t.Setenv("DD_ENV", tc.dd)
			if got := resolveEnvTag(); got != tc.want {
				t.Fatalf("resolveEnvTag()=%q, want %q", got, tc.want)
			}
		})
	}
}

func TestWrapInitErr(t *testing.T) {
	if got := wrapInitErr(nil); got != nil {
		t.Fatalf("wrapInitErr(nil)=%v, want nil", got)
	}

	in := errors.New("boom")
	got := wrapInitErr(in)
	if !strings.Contains(got.Error(), "datadog metrics init:") {
		t.Fatalf("wrapInitErr prefix missing: %v", got)
	}
	if !errors.Is(got, in) {
		t.Fatalf("wrapInitErr did not wrap original error: got=%v", got)
	}
}

func TestStatusKindKeyRoundTrip(t *testing.T) {
	tests := []struct {
		status string
		kind   string
	}{
		{"ok", ""},
		{"error", "EmptyInput"},
		{"", ""},
	}
	for _, tc := range tests {
		status, kind := splitStatusKindKey(statusKindKey(tc.status, tc.kind))
		if status != tc.status || kind != tc.kind {
			t.Fatalf("roundtrip got=(%q,%q), want=(%q,%q)", status, kind, tc.status, tc.kind)
		}
	}

	if status, kind := splitStatusKindKey("no-sep"); status != "no-sep" || kind != "" {
		t.Fatalf("splitStatusKindKey(no-sep)=(%q,%q)", status, kind)
	}
}

// TestWithTags verifies tag concatenation does not alias the base slice.
func TestWithTags(t *testing.T) {
	base := []string{"env:test", "job:sherlouk"}
	got := withTags(base, "status:ok")
	want := []string{"env:test", "job:sherlouk", "status:ok"}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("withTags()=%v, want %v", got, want)
	}
	got[0] = "env:mutated"
	if base[0] == "env:mutated" {
		t.Fatalf("withTags output aliases base slice")
	}
}

func TestPercentileNearestRank(t *testing.T) {
	tests := []struct {
		name string
		s    []float64
		p    float64
		want float64
	}{
		{name: "empty", s: nil, p: 0.50, want: 0},
		{name: "single", s: []float64{7}, p: 0.95, want: 7},
		{name: "p_le_0", s: []float64{1, 2, 3}, p: -1, want: 1},
		{name: "p_ge_1", s: []float64{1, 2, 3}, p: 2, want: 3},
		{name: "median", s: []float64{1, 2, 3, 4, 5}, p: 0.50, want: 3},
		{name: "p90_small_n", s: []float64{1, 2, 3, 4, 5}, p: 0.90, want: 5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := percentileNearestRank(tc.s, tc.p); got != tc.want {
				t.Fatalf("percentileNearestRank(%v,%v)=%v, want %v", tc.s, tc.p, got, tc.want)
			}
		})
	}
}

// TestAddPercentiles verifies the six gauges and that input is not mutated.
func TestAddPercentiles(t *testing.T) {
	orig := []float64{5, 1, 3, 2, 4}
	in := append([]float64(nil), orig...)

	var series []datadogV2.MetricSeries
	addPercentiles(&series, []string{"status:ok"}, "sherlouk.parse.duration_seconds", in, 999)

	if len(series) != 6 {
		t.Fatalf("series.len=%d, want 6", len(series))
	}
	if !reflect.DeepEqual(in, orig) {
		t.Fatalf("samples mutated: got %v, want %v", in, orig)
	}
	for _, s := range series {
		if s.Type == nil || *s.Type != datadogV2.METRICINTAKETYPE_GAUGE {
			t.Fatalf("%s: Type=%v, want GAUGE", s.Metric, s.Type)
		}
		if s.Metric == "sherlouk.parse.duration_seconds.max" && *s.Points[0].Value != 5 {
			t.Fatalf("max=%v, want 5", *s.Points[0].Value)
		}
	}
}

func TestNewBackend_Defaults(t *testing.T) {
	fs := &fakeSubmitter{}
	opts := quietOptions(fs)
	opts.JobName = ""
	opts.FlushEvery = 0
	opts.Tags = []string{"team:data"}

	b, err := NewBackend(context.Background(), opts)
	if err != nil {
		t.Fatalf("NewBackend() err=%v, want nil", err)
	}
	defer func() { _ = b.Close() }()

	if !contains(b.baseTags, "job:sherlouk") {
		t.Fatalf("baseTags missing job:sherlouk: %v", b.baseTags)
	}
	if !contains(b.baseTags, "team:data") {
		t.Fatalf("baseTags missing team:data: %v", b.baseTags)
	}
	if b.flushEvery != 60*time.Second {
		t.Fatalf("flushEvery=%s, want 60s", b.flushEvery)
	}
}

func TestFlush_SubmitsAndResets(t *testing.T) {
	fs := &fakeSubmitter{}
	b, err := NewBackend(context.Background(), quietOptions(fs))
	if err != nil {
		t.Fatalf("NewBackend() err=%v", err)
	}
	defer func() { _ = b.Close() }()

	b.IncCounter(metrics.ParseTotal, 1, metrics.Labels{"status": "ok"})
	b.IncCounter(metrics.ParseTotal, 1, metrics.Labels{"status": "error", "kind": "EmptyInput"})
	b.IncCounter(metrics.RowsTotal, 42, metrics.Labels{"kind": "total"})
	b.ObserveHistogram(metrics.ParseDurationSeconds, 0.5, metrics.Labels{"status": "ok"})
	b.ObserveHistogram(metrics.UploadBytes, 2048, metrics.Labels{"status": "ok"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() err=%v, want nil", err)
	}
	if fs.count() != 1 {
		t.Fatalf("submit calls=%d, want 1", fs.count())
	}
	if len(b.parseCounts) != 0 || len(b.rowCounts) != 0 || len(b.parseSeconds) != 0 || len(b.uploadBytes) != 0 {
		t.Fatalf("buffers not reset after Flush")
	}

	payload, _ := fs.last()
	var names []string
	var sawKind bool
	for _, s := range payload.Series {
		names = append(names, s.Metric)
		if s.Metric == "sherlouk.parse.total" && contains(s.Tags, "kind:EmptyInput") {
			sawKind = true
		}
	}
	sort.Strings(names)

	for _, w := range []string{
		"sherlouk.parse.total",
		"sherlouk.rows.total",
		"sherlouk.parse.duration_seconds.p50",
		"sherlouk.parse.duration_seconds.samples",
		"sherlouk.upload.bytes.max",
	} {
		if !contains(names, w) {
			t.Fatalf("payload missing metric %q; got=%v", w, names)
		}
	}
	if !sawKind {
		t.Fatalf("expected parse.total series tagged kind:EmptyInput")
	}
}

func TestFlush_WrapsSubmitError(t *testing.T) {
	fs := &fakeSubmitter{err: errors.New("403 forbidden")}
	b, err := NewBackend(context.Background(), quietOptions(fs))
	if err != nil {
		t.Fatalf("NewBackend() err=%v", err)
	}
	defer func() { _ = b.Close() }()

	b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{"kind": "preview"})
	err = b.Flush()
	if err == nil || !strings.Contains(err.Error(), "datadog submit") {
		t.Fatalf("Flush() err=%v, want wrapped submit error", err)
	}
}

func TestFlush_NoDataDoesNotSubmit(t *testing.T) {
	fs := &fakeSubmitter{}
	b, err := NewBackend(context.Background(), quietOptions(fs))
	if err != nil {
		t.Fatalf("NewBackend() err=%v", err)
	}
	defer func() { _ = b.Close() }()

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() err=%v, want nil", err)
	}
	if fs.count() != 0 {
		t.Fatalf("unexpected submission count=%d, want 0", fs.count())
	}
}

// TestLoopAndClose verifies the periodic flush and the final flush on Close.
func TestLoopAndClose(t *testing.T) {
	fs := &fakeSubmitter{}
	b, err := NewBackend(context.Background(), Options{
		JobName:    "job1",
		FlushEvery: 5 * time.Millisecond,
		submitter:  fs,
		now:        func() time.Time { return time.Unix(2000, 0) },
	})
	if err != nil {
		t.Fatalf("NewBackend() err=%v", err)
	}

	b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{"kind": "streamed"})

	deadline := time.Now().Add(250 * time.Millisecond)
	for time.Now().Before(deadline) && fs.count() < 1 {
		time.Sleep(2 * time.Millisecond)
	}
	if fs.count() < 1 {
		_ = b.Close()
		t.Fatalf("expected at least one background Flush submission; got %d", fs.count())
	}

	b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{"kind": "streamed"})
	if err := b.Close(); err != nil {
		t.Fatalf("Close() err=%v, want nil", err)
	}
	if fs.count() < 2 {
		t.Fatalf("expected at least 2 submissions after Close; got %d", fs.count())
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second Close() err=%v, want nil", err)
	}
}

func TestBackend_ConcurrentAccess(t *testing.T) {
	fs := &fakeSubmitter{}
	b, err := NewBackend(context.Background(), quietOptions(fs))
	if err != nil {
		t.Fatalf("NewBackend() err=%v", err)
	}
	defer func() { _ = b.Close() }()

	workers := runtime.GOMAXPROCS(0) * 4
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 2000; j++ {
				b.IncCounter(metrics.ParseTotal, 1, metrics.Labels{"status": "ok"})
				b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{"kind": "total"})
				b.ObserveHistogram(metrics.ParseDurationSeconds, 0.01, metrics.Labels{"status": "ok"})
			}
		}()
	}
	wg.Wait()

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() err=%v, want nil", err)
	}
	payload, _ := fs.last()
	for _, s := range payload.Series {
		if s.Metric == "sherlouk.rows.total" {
			if got, want := *s.Points[0].Value, float64(workers*2000); got != want {
				t.Fatalf("rows.total=%v, want %v", got, want)
			}
		}
	}
}

// TestIncCounterAndObserveHistogram_EdgeCases verifies ignored paths and defaults.
func TestIncCounterAndObserveHistogram_EdgeCases(t *testing.T) {
	fs := &fakeSubmitter{}
	b, err := NewBackend(context.Background(), quietOptions(fs))
	if err != nil {
		t.Fatalf("NewBackend() err=%v", err)
	}
	defer func() { _ = b.Close() }()

	b.IncCounter(metrics.ParseTotal, 0, nil)
	b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{})
	b.IncCounter("unknown_total", 1, metrics.Labels{"x": "y"})
	b.ObserveHistogram(metrics.ParseDurationSeconds, -1, metrics.Labels{"status": "ok"})
	b.IncCounter(metrics.ParseTotal, 1, nil)
	b.ObserveHistogram(metrics.UploadBytes, 10, nil)

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() err=%v, want nil", err)
	}
	payload, ok := fs.last()
	if !ok {
		t.Fatalf("missing payload")
	}

	var sawCount, sawBytes bool
	for _, s := range payload.Series {
		if s.Metric == "sherlouk.rows.total" {
			t.Fatalf("rows.total without kind should be dropped")
		}
		if s.Metric == "sherlouk.parse.total" && contains(s.Tags, "status:unknown") {
			sawCount = true
		}
		if s.Metric == "sherlouk.upload.bytes.p50" && contains(s.Tags, "status:unknown") {
			sawBytes = true
		}
	}
	if !sawCount || !sawBytes {
		t.Fatalf("expected status:unknown defaults; count=%v bytes=%v", sawCount, sawBytes)
	}
}

func contains[T comparable](xs []T, v T) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func TestParseTagsCSV(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty_returns_nil", in: "", want: nil},
		{
			name: "trims_and_skips_empty_segments",
			in:   " env:prod , ,team:data,  ,service:sherlouk ",
			want: []string{"env:prod", "team:data", "service:sherlouk"},
		},
		{name: "single_tag", in: "team:data", want: []string{"team:data"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ParseTagsCSV(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ParseTagsCSV(%q)=%v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
