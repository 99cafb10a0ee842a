package devgateway

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mathmaster/mathmaster-go/internal/gateway"
)

const (
	// Time between keepalive pings
	pingPeriod = 15 * time.Second

	// Buffer size for outgoing events
	sendBufferSize = 64
)

// feed handles GET /feed: a long-lived SSE stream of change events for one
// table and user.
func (h *handlers) feed(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	table := r.URL.Query().Get("table")
	userID := r.URL.Query().Get("user_id")
	if table == "" || userID == "" {
		WriteError(w, NewInvalidRequestError("table and user_id are required"))
		return
	}
	types := parseChangeTypes(r.URL.Query().Get("types"))

	// Events arrive from the backend's delivery goroutine; buffer them for
	// the write loop. A slow consumer drops events rather than blocking the
	// publisher.
	events := make(chan gateway.ChangeEvent, sendBufferSize)
	sub, err := h.backend.Subscribe(r.Context(), table, userID, types, func(event gateway.ChangeEvent) {
		select {
		case events <- event:
		default:
			h.logger.Warn("dropping feed event for slow consumer",
				slog.String("table", table),
				slog.String("user_id", userID))
		}
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	defer sub.Unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	_, _ = w.Write([]byte("event: connected\ndata: {\"status\":\"connected\"}\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event := <-events:
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("feed event marshal failed", slog.Any("error", err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: change\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// parseChangeTypes parses the comma-separated types parameter; an empty
// parameter means all change types.
func parseChangeTypes(raw string) []gateway.ChangeType {
	if raw == "" {
		return []gateway.ChangeType{gateway.ChangeInsert, gateway.ChangeUpdate}
	}
	var types []gateway.ChangeType
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			types = append(types, gateway.ChangeType(part))
		}
	}
	return types
}
