package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// SSE event names used by the streaming chat endpoint.
const (
	eventDelta = "delta"
	eventDone  = "done"
	eventError = "error"
)

// sseWriter frames JSON payloads as Server-Sent Events and flushes
// after each event so fragments reach the client immediately.
type sseWriter struct {
	w       io.Writer
	flusher http.Flusher
}

// newSSEWriter sets the SSE headers and commits them. After this point
// the response status is fixed and errors can only travel in-band.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support flushing")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &sseWriter{w: w, flusher: flusher}, nil
}

// writeEvent sends one named event with a JSON payload. The payloads
// here never contain newlines, so a single data line suffices.
func (s *sseWriter) writeEvent(ctx context.Context, event string, v any) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("write %s event: %w", event, err)
	}

	s.flusher.Flush()
	return nil
}

func (s *sseWriter) delta(ctx context.Context, text string) error {
	return s.writeEvent(ctx, eventDelta, map[string]string{"delta": text})
}

func (s *sseWriter) done(ctx context.Context) error {
	return s.writeEvent(ctx, eventDone, map[string]bool{"done": true})
}

func (s *sseWriter) error(ctx context.Context, msg string) error {
	return s.writeEvent(ctx, eventError, map[string]string{"error": msg})
}
