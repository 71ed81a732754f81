package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecorder() *Recorder {
	return NewRecorder(zerolog.Nop())
}

func TestRecorder_EmptySnapshot(t *testing.T) {
	assert.Empty(t, newTestRecorder().Snapshot())
}

func TestRecorder_Aggregates(t *testing.T) {
	r := newTestRecorder()
	r.Record("research", 100*time.Millisecond, true)
	r.Record("research", 300*time.Millisecond, true)
	r.Record("research", 200*time.Millisecond, false)

	stats := r.Snapshot()
	require.Len(t, stats, 1)

	s := stats[0]
	assert.Equal(t, "research", s.Stage)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 2, s.Successes)
	assert.Equal(t, 1, s.Failures)
	assert.Equal(t, int64(200), s.AvgMillis)
	assert.Equal(t, int64(100), s.MinMillis)
	assert.Equal(t, int64(300), s.MaxMillis)
	assert.Equal(t, int64(200), s.P50Millis)
}

func TestRecorder_EvictsOldestBeyondHistorySize(t *testing.T) {
	r := newTestRecorder()
	// The first sample is slow; all later ones are fast. Once the history
	// overflows, the slow sample falls out of the window.
	r.Record("draft", time.Hour, true)
	for i := 0; i < HistorySize; i++ {
		r.Record("draft", 10*time.Millisecond, true)
	}

	stats := r.Snapshot()
	require.Len(t, stats, 1)
	assert.Equal(t, HistorySize, stats[0].Count)
	assert.Equal(t, int64(10), stats[0].MaxMillis)
}

func TestRecorder_SortedByStage(t *testing.T) {
	r := newTestRecorder()
	r.Record("validate", time.Second, true)
	r.Record("brief", time.Second, true)
	r.Record("research", time.Second, true)

	stats := r.Snapshot()
	require.Len(t, stats, 3)
	assert.Equal(t, "brief", stats[0].Stage)
	assert.Equal(t, "research", stats[1].Stage)
	assert.Equal(t, "validate", stats[2].Stage)
}

func TestRecorder_ConcurrentRecording(t *testing.T) {
	r := newTestRecorder()
	done := make(chan struct{})
	for g := 0; g < 4; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 20; i++ {
				r.Record(fmt.Sprintf("stage-%d", g), time.Millisecond, true)
			}
		}(g)
	}
	for g := 0; g < 4; g++ {
		<-done
	}

	stats := r.Snapshot()
	require.Len(t, stats, 4)
	for _, s := range stats {
		assert.Equal(t, 20, s.Count)
	}
}
