package dash

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/opsdeck/console/internal/deploy"
)

// sseHeaders prepares a response for server-sent events.
func sseHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Keep reverse proxies from buffering the transcript.
	w.Header().Set("X-Accel-Buffering", "no")
}

// serveStream relays a pipeline stream to the client, one SSE frame per
// event, flushing after each so the transcript is live. It returns when
// the stream closes or the client goes away; the request context carries
// the disconnect to the pipeline.
func serveStream(w http.ResponseWriter, r *http.Request, stream *deploy.Stream) {
	sseHeaders(w)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	for ev := range stream.Events() {
		var frame string
		switch ev.Kind {
		case deploy.EventLine:
			frame = ev.Payload
		case deploy.EventSection:
			frame = "--- " + ev.Payload + " ---"
		case deploy.EventDone:
			frame = "--- " + ev.Payload + " ---"
		case deploy.EventError:
			frame = "Error: " + ev.Payload
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", frame); err != nil {
			// Client disconnected; drain so the producer observes the
			// cancelled context and stops.
			slog.DebugContext(r.Context(), "stream consumer went away", "err", err)
			for range stream.Events() {
			}
			return
		}
		flusher.Flush()
	}
}

// sseError emits a single error frame for failures detected after the
// stream response has to be SSE-shaped (resolution errors).
func sseError(w http.ResponseWriter, msg string) {
	sseHeaders(w)
	fmt.Fprintf(w, "data: Error: %s\n\n", msg)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
