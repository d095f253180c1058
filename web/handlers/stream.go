package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// StreamData is one SSE event sent to the frontend.
type StreamData struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// sseWriter serializes SSE writes from stream callbacks onto one
// response body.
type sseWriter struct {
	ctx context.Context
	w   http.ResponseWriter
	mu  sync.Mutex
}

func newSSEWriter(ctx context.Context, w http.ResponseWriter) *sseWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return &sseWriter{ctx: ctx, w: w}
}

// write sends one SSE event. Safe from any goroutine; drops the write if
// the client is gone.
func (s *sseWriter) write(data StreamData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", jsonData); err != nil {
		return err
	}

	if flusher, ok := s.w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}
