// Package sse writes Server-Sent Events frames to an http.ResponseWriter.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Writer frames events and flushes after each one. It is not safe for
// concurrent use; one goroutine owns the stream.
type Writer struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

// NewWriter sets the SSE headers and sends the status line
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no") // Disable nginx buffering

	sw := &Writer{w: w, rc: http.NewResponseController(w)}

	w.WriteHeader(http.StatusOK)
	if err := sw.rc.Flush(); err != nil {
		return nil, fmt.Errorf("streaming unsupported: %w", err)
	}
	return sw, nil
}

// WriteEvent writes one named event with a JSON data line
func (s *Writer) WriteEvent(name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", name, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, payload); err != nil {
		return fmt.Errorf("write event %s: %w", name, err)
	}
	return s.rc.Flush()
}

// WriteKeepAlive writes an SSE comment (: keepalive\n\n) and flushes.
// Lines starting with : are ignored by clients.
func (s *Writer) WriteKeepAlive() error {
	if _, err := fmt.Fprint(s.w, ": keepalive\n\n"); err != nil {
		return fmt.Errorf("write keepalive failed: %w", err)
	}
	return s.rc.Flush()
}
