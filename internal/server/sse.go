package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// SSEWriter emits Server-Sent Events for the streaming stage endpoints.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter prepares w for an SSE stream. Fails when the underlying
// writer cannot flush.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends one named event with a JSON payload.
func (s *SSEWriter) WriteEvent(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteResult sends the terminal result event.
func (s *SSEWriter) WriteResult(data any) {
	s.WriteEvent("result", data) //nolint:errcheck
}

// WriteError sends the terminal error event. The payload carries the
// client-safe message and, for precondition failures, the error code.
func (s *SSEWriter) WriteError(err error) {
	body := map[string]string{"error": SafeMessage(err)}
	if code := ErrorCode(err); code != "" {
		body["code"] = code
	}
	s.WriteEvent("error", body) //nolint:errcheck
}
