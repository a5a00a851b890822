package handlers

import (
	"log/slog"
	"net/http"
	"time"

	middleware "clientdesk/middlewares"
	"clientdesk/realtime"
	"clientdesk/services"

	"github.com/gin-contrib/sse"
)

const heartbeatInterval = 25 * time.Second

// EventHandler streams change notifications as server-sent events, one
// CloudEvent per change.
type EventHandler struct {
	workspaces
	hub *realtime.Hub
}

func NewEventHandler(registry *services.Registry, hub *realtime.Hub, logger *slog.Logger) *EventHandler {
	return &EventHandler{workspaces: workspaces{registry: registry, logger: logger}, hub: hub}
}

func (h *EventHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.workspace(w, r); !ok {
		return
	}
	userID := middleware.GetUserIDFromContext(r.Context())
	rc := http.NewResponseController(w)

	changes, cancel := h.hub.Subscribe(64)
	defer cancel()

	w.Header().Set("Content-Type", sse.ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.Error("event stream cannot flush", "error", err)
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if err := sse.Encode(w, sse.Event{Event: "ping", Data: time.Now().UTC().Format(time.RFC3339)}); err != nil {
				return
			}
		case c, ok := <-changes:
			if !ok {
				return
			}
			if c.Operation == realtime.OpResync {
				if err := sse.Encode(w, sse.Event{Event: realtime.OpResync, Data: c.At.UTC().Format(time.RFC3339)}); err != nil {
					return
				}
				break
			}
			// the registry may have rebuilt the workspace since the last change
			ws, err := h.registry.For(r.Context(), userID)
			if err != nil {
				h.logger.Warn("event stream closed", "user_id", userID, "error", err)
				return
			}
			if !ws.Sees(r.Context(), c) {
				continue
			}
			event, err := realtime.ToCloudEvent(c)
			if err != nil {
				h.logger.Error("failed to encode change", "collection", c.Collection, "error", err)
				continue
			}
			if err := sse.Encode(w, sse.Event{Id: event.ID(), Event: event.Type(), Data: event}); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
