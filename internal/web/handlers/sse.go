package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// sseKeepAlive is how often a comment line is written to idle streams so
// proxies do not drop the connection.
const sseKeepAlive = 15 * time.Second

// isJobTerminal returns true if the job status is a terminal state
func isJobTerminal(status JobStatus) bool {
	return status == JobStatusCompleted || status == JobStatusFailed || status == JobStatusCancelled
}

// isTerminalEvent reports whether a job event is the last one a job sends.
func isTerminalEvent(eventType string) bool {
	return isJobTerminal(JobStatus(eventType))
}

// streamJobEvents writes the job snapshot as a "status" event, then relays
// job events until the completed, failed or cancelled event has been written
// or the client goes away.
func streamJobEvents(w http.ResponseWriter, r *http.Request, job *EncodeJob) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// A job that already finished has nothing left to relay.
	if isJobTerminal(job.GetStatus()) {
		sendSSEEvent(w, flusher, "status", job.Snapshot())
		return
	}

	eventCh := job.AddListener()
	defer job.RemoveListener(eventCh)

	snap := job.Snapshot()
	sendSSEEvent(w, flusher, "status", snap)
	if isJobTerminal(snap.Status) {
		// Finished while subscribing: relay whatever is already buffered.
		for {
			select {
			case event := <-eventCh:
				sendSSEEvent(w, flusher, event.Type, event)
			default:
				return
			}
		}
	}

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			// The final event can be dropped when the listener buffer is
			// full; the snapshot still carries the outcome.
			if isJobTerminal(job.GetStatus()) {
				sendSSEEvent(w, flusher, "status", job.Snapshot())
				return
			}
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, event.Type, event)
			if isTerminalEvent(event.Type) {
				return
			}
		}
	}
}

// sendSSEEvent writes a single named SSE event and flushes it.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		payload = []byte(`{}`)
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload)
	flusher.Flush()
}
