// Package metrics records per-stage pipeline timings in memory and
// exposes aggregate statistics for the metrics endpoint.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// HistorySize is how many samples are retained per stage.
const HistorySize = 50

// Sample is one recorded stage execution.
type Sample struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"-"`
	Millis   int64         `json:"millis"`
	Success  bool          `json:"success"`
	At       time.Time     `json:"at"`
}

// StageStats aggregates the retained samples of one stage.
type StageStats struct {
	Stage     string `json:"stage"`
	Count     int    `json:"count"`
	Successes int    `json:"successes"`
	Failures  int    `json:"failures"`
	AvgMillis int64  `json:"avgMillis"`
	MinMillis int64  `json:"minMillis"`
	MaxMillis int64  `json:"maxMillis"`
	P50Millis int64  `json:"p50Millis"`
}

// Recorder keeps a bounded per-stage sample history. Safe for concurrent
// use.
type Recorder struct {
	mu      sync.Mutex
	samples map[string][]Sample
	logger  zerolog.Logger
	now     func() time.Time
}

// NewRecorder creates an empty recorder. Recorded samples are also
// emitted on logger as structured events.
func NewRecorder(logger zerolog.Logger) *Recorder {
	return &Recorder{
		samples: make(map[string][]Sample),
		logger:  logger,
		now:     time.Now,
	}
}

// Record stores one stage execution, evicting the oldest sample once the
// stage history is full.
func (r *Recorder) Record(stage string, d time.Duration, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sample := Sample{
		Stage:    stage,
		Duration: d,
		Millis:   d.Milliseconds(),
		Success:  success,
		At:       r.now(),
	}

	history := append(r.samples[stage], sample)
	if len(history) > HistorySize {
		history = history[len(history)-HistorySize:]
	}
	r.samples[stage] = history

	r.logger.Info().
		Str("stage", stage).
		Int64("durationMs", sample.Millis).
		Bool("success", success).
		Msg("stage completed")
}

// Snapshot returns aggregate statistics per stage, sorted by stage name.
func (r *Recorder) Snapshot() []StageStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := make([]StageStats, 0, len(r.samples))
	for stage, history := range r.samples {
		if len(history) == 0 {
			continue
		}

		s := StageStats{Stage: stage, Count: len(history)}
		millis := make([]int64, 0, len(history))
		var total int64
		s.MinMillis = history[0].Millis
		for _, sample := range history {
			millis = append(millis, sample.Millis)
			total += sample.Millis
			if sample.Success {
				s.Successes++
			} else {
				s.Failures++
			}
			if sample.Millis < s.MinMillis {
				s.MinMillis = sample.Millis
			}
			if sample.Millis > s.MaxMillis {
				s.MaxMillis = sample.Millis
			}
		}
		s.AvgMillis = total / int64(len(history))

		sort.Slice(millis, func(i, j int) bool { return millis[i] < millis[j] })
		s.P50Millis = millis[len(millis)/2]

		stats = append(stats, s)
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].Stage < stats[j].Stage })
	return stats
}
