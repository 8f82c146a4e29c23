package session

import (
	"context"
	"sync"
	"testing"

	"sherlouk/internal/ingest"
	"sherlouk/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const people = "name,age\nAnn,30\nBob,25\n"

func TestLoadAppliesOutcome(t *testing.T) {
	s := New(WithLogger(zaptest.NewLogger(t)))

	out, applied := s.Load(context.Background(), "people.csv", []byte(people), ingest.DefaultParseConfig())
	require.True(t, applied)
	require.True(t, out.Success, out.Error)
	assert.Equal(t, 2, out.TotalRows)
	assert.Equal(t, "utf-8", out.Encoding)
	assert.Equal(t, out, s.Current())
	assert.Equal(t, uint64(1), s.Generation())
}

func TestReconfigureReparsesRetainedUpload(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, applied := s.Load(ctx, "people.csv", []byte(people), ingest.DefaultParseConfig())
	require.True(t, applied)

	cfg := ingest.DefaultParseConfig()
	cfg.HasHeaders = false
	out, applied := s.Reconfigure(ctx, cfg)
	require.True(t, applied)
	require.True(t, out.Success)
	assert.Equal(t, 3, out.TotalRows)
	assert.Equal(t, "Column_1", out.Columns[0].Name)
}

func TestReconfigureWithoutUpload(t *testing.T) {
	s := New()

	out, applied := s.Reconfigure(context.Background(), ingest.DefaultParseConfig())
	assert.True(t, applied)
	assert.False(t, out.Success)
	assert.Equal(t, ingest.KindReadFailure, out.Kind)
	assert.Contains(t, out.Error, ErrNoUpload.Error())
}

func TestLoadFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("empty file", func(t *testing.T) {
		s := New()
		out, applied := s.Load(ctx, "empty.csv", nil, ingest.DefaultParseConfig())
		assert.True(t, applied)
		assert.Equal(t, ingest.KindEmptyInput, out.Kind)
	})

	t.Run("unknown encoding", func(t *testing.T) {
		s := New()
		cfg := ingest.DefaultParseConfig()
		cfg.Encoding = "ebcdic-42"
		out, _ := s.Load(ctx, "people.csv", []byte(people), cfg)
		assert.Equal(t, ingest.KindReadFailure, out.Kind)
	})

	t.Run("cancelled context", func(t *testing.T) {
		s := New()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		out, _ := s.Load(cctx, "people.csv", []byte(people), ingest.DefaultParseConfig())
		assert.Equal(t, ingest.KindReadFailure, out.Kind)
	})

	t.Run("rejected file keeps previous upload", func(t *testing.T) {
		s := New()
		_, _ = s.Load(ctx, "people.csv", []byte(people), ingest.DefaultParseConfig())

		out, applied := s.Load(ctx, "people.pdf", []byte("%PDF"), ingest.DefaultParseConfig())
		assert.True(t, applied)
		assert.Equal(t, ingest.KindReadFailure, out.Kind)
		assert.False(t, s.Current().Success)

		again, _ := s.Reconfigure(ctx, ingest.DefaultParseConfig())
		require.True(t, again.Success)
		assert.Equal(t, 2, again.TotalRows)
	})
}

// loadBlocked starts a Load for generation 1 that stops right before it is
// applied. It returns a release func and a channel yielding the result.
func loadBlocked(t *testing.T, s *Session, data string) (release func(), result <-chan bool) {
	t.Helper()

	reached := make(chan struct{})
	gate := make(chan struct{})
	s.afterParse = func(gen uint64) {
		if gen == 1 {
			close(reached)
			<-gate
		}
	}

	done := make(chan bool, 1)
	go func() {
		_, applied := s.Load(context.Background(), "first.csv", []byte(data), ingest.DefaultParseConfig())
		done <- applied
	}()
	<-reached

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }, done
}

func TestStaleSuccessIsDiscarded(t *testing.T) {
	s := New()
	release, staleApplied := loadBlocked(t, s, people)
	defer release()

	newer, applied := s.Load(context.Background(), "second.csv", []byte("id\n1\n"), ingest.DefaultParseConfig())
	require.True(t, applied)

	release()
	assert.False(t, <-staleApplied)
	assert.Equal(t, newer, s.Current())
	assert.Equal(t, "id", s.Current().Columns[0].Name)
}

func TestNewerFailureBeatsStaleSuccess(t *testing.T) {
	s := New()
	release, staleApplied := loadBlocked(t, s, people)
	defer release()

	failed, applied := s.Load(context.Background(), "blank.csv", []byte("\n\n"), ingest.DefaultParseConfig())
	require.True(t, applied)
	require.False(t, failed.Success)

	release()
	assert.False(t, <-staleApplied)
	assert.False(t, s.Current().Success)
	assert.Equal(t, ingest.KindEmptyInput, s.Current().Kind)
}

type countingBackend struct {
	mu       sync.Mutex
	counters map[string]float64
	samples  map[string]int
}

func (c *countingBackend) IncCounter(name string, delta float64, labels metrics.Labels) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name+"|"+labels["status"]+"|"+labels["kind"]] += delta
}

func (c *countingBackend) ObserveHistogram(name string, _ float64, _ metrics.Labels) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples[name]++
}

// Not parallel: swaps the global metrics backend.
func TestMetricsRecorded(t *testing.T) {
	b := &countingBackend{counters: map[string]float64{}, samples: map[string]int{}}
	metrics.SetBackend(b)
	t.Cleanup(func() { metrics.SetBackend(nil) })

	s := New()
	ctx := context.Background()
	_, _ = s.Load(ctx, "people.csv", []byte(people), ingest.DefaultParseConfig())
	_, _ = s.Load(ctx, "blank.csv", []byte(" \n"), ingest.DefaultParseConfig())

	assert.Equal(t, 1.0, b.counters[metrics.ParseTotal+"|ok|"])
	assert.Equal(t, 1.0, b.counters[metrics.ParseTotal+"|error|EmptyInput"])
	assert.Equal(t, 2.0, b.counters[metrics.RowsTotal+"||total"])
	assert.Equal(t, 2, b.samples[metrics.ParseDurationSeconds])
	assert.Equal(t, 2, b.samples[metrics.UploadBytes])
}
