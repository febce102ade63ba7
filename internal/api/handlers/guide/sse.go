package guide

import (
	"fmt"
	"net/http"

	"meal-prep-planner/internal/pkg/common"
)

// sseEmitter writes session events as server-sent events. Headers go out
// with the first event, so a parsing failure can still be answered with a
// plain JSON error response. Every event is flushed immediately; chunk
// delivery must not be batched.
type sseEmitter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func newSSEEmitter(w http.ResponseWriter) (*sseEmitter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	return &sseEmitter{w: w, flusher: flusher}, nil
}

func (e *sseEmitter) writeEvent(event string, payload interface{}) error {
	if !e.started {
		e.w.Header().Set("Content-Type", "text/event-stream")
		e.w.Header().Set("Cache-Control", "no-cache")
		e.w.Header().Set("Connection", "keep-alive")
		e.w.Header().Set("X-Accel-Buffering", "no")
		e.w.WriteHeader(http.StatusOK)
		e.started = true
	}

	data, err := common.ToJSON(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}

func (e *sseEmitter) Metadata(recipes []common.RecipeMetadata) error {
	return e.writeEvent("metadata", map[string]interface{}{"recipes": recipes})
}

func (e *sseEmitter) Chunk(chunk string) error {
	return e.writeEvent("chunk", map[string]string{"chunk": chunk})
}

func (e *sseEmitter) Done(savedFilename string) error {
	payload := map[string]string{}
	if savedFilename != "" {
		payload["savedFilename"] = savedFilename
	}
	return e.writeEvent("done", payload)
}

func (e *sseEmitter) Error(message string) error {
	return e.writeEvent("error", map[string]string{"error": message})
}
