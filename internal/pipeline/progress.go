// Package pipeline orchestrates the blog article generation stages:
// research, brief, draft, and validation.
package pipeline

// ProgressEvent represents a progress update during stage execution
type ProgressEvent struct {
	Stage   string `json:"stage"`
	Status  string `json:"status"` // started | progress | completed | failed
	Message string `json:"message"`
	JobID   string `json:"jobId,omitempty"`
	Content any    `json:"content,omitempty"`
}

// Progress statuses.
const (
	StatusStarted   = "started"
	StatusProgress  = "progress"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ProgressCallback is called when stage progress occurs
type ProgressCallback func(event ProgressEvent)

// ProgressSink is a bounded event queue between stage code and the
// transport. Stage code never touches the HTTP response directly; the
// transport drains Events into SSE frames.
type ProgressSink struct {
	ch chan ProgressEvent
}

// NewProgressSink creates a sink buffering up to size events.
func NewProgressSink(size int) *ProgressSink {
	if size <= 0 {
		size = 32
	}
	return &ProgressSink{ch: make(chan ProgressEvent, size)}
}

// Emit queues an event. A full sink drops the event rather than blocking
// the stage; progress is advisory, results are not.
func (s *ProgressSink) Emit(event ProgressEvent) {
	select {
	case s.ch <- event:
	default:
	}
}

// Callback adapts the sink to a ProgressCallback.
func (s *ProgressSink) Callback() ProgressCallback {
	return s.Emit
}

// Events returns the drain side of the sink.
func (s *ProgressSink) Events() <-chan ProgressEvent {
	return s.ch
}

// Close closes the event channel. Call only after the producing stage
// has returned.
func (s *ProgressSink) Close() {
	close(s.ch)
}

func emit(cb ProgressCallback, stage, status, message, jobID string, content any) {
	if cb != nil {
		cb(ProgressEvent{
			Stage:   stage,
			Status:  status,
			Message: message,
			JobID:   jobID,
			Content: content,
		})
	}
}
