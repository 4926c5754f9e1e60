package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/teemow/meetgate/internal/events"
	"github.com/teemow/meetgate/internal/logging"
)

// keepAliveInterval is how often an idle event stream gets a comment line.
const keepAliveInterval = 15 * time.Second

// handleEvents streams a job's events as server-sent events. The job id comes
// from the path or the jobId query parameter. A newer subscriber for the same
// job ends this stream.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("jobId")
	if id == "" {
		id = r.URL.Query().Get("jobId")
	}
	if err := requireFields("jobId", id); err != nil {
		a.sendError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		a.sendError(w, r, fmt.Errorf("streaming not supported"))
		return
	}

	sub, err := a.orch.Subscribe(r.Context(), id)
	if err != nil {
		a.sendError(w, r, err)
		return
	}
	defer sub.Detach()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-a.sc.Context().Done():
			return
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case e, ok := <-sub.Events():
			if !ok {
				a.logger.Debug("event stream ended", logging.JobID(id), "sub_id", sub.ID())
				return
			}
			if err := writeSSEEvent(w, e); err != nil {
				a.logger.Warn("failed to write event", logging.JobID(id), logging.Err(err))
				return
			}
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes e as one SSE frame named after its type, with the
// payload as JSON data.
func writeSSEEvent(w http.ResponseWriter, e events.Event) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", e.Type, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data); err != nil {
		return err
	}
	return nil
}

