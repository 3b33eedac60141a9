package handler

import (
	"log/slog"
	"net/http"
	"time"

	"foldervault/internal/handler/sse"
	"foldervault/internal/httputil"
	"foldervault/internal/service/progress"
)

// ProgressHandler streams upload progress over Server-Sent Events
type ProgressHandler struct {
	hub    *progress.Hub
	config *sse.Config
	logger *slog.Logger
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(hub *progress.Hub, config *sse.Config, logger *slog.Logger) *ProgressHandler {
	if config == nil || config.KeepAliveInterval <= 0 {
		config = sse.DefaultConfig()
	}
	return &ProgressHandler{
		hub:    hub,
		config: config,
		logger: logger,
	}
}

// Stream subscribes to a session and forwards its events until the client
// goes away. The session comes from the socket-id header or ?session=.
// GET /api/progress
func (h *ProgressHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(SessionHeader)
	if sessionID == "" {
		sessionID = r.URL.Query().Get("session")
	}
	if sessionID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "session is required")
		return
	}

	// Subscribe before the status line goes out so a client that has seen
	// the response misses nothing published afterwards
	sub := h.hub.Subscribe(sessionID)
	defer sub.Close()

	stream, err := sse.NewWriter(w)
	if err != nil {
		h.logger.Error("failed to start progress stream",
			"session_id", sessionID,
			"error", err,
		)
		return
	}

	h.logger.Debug("progress stream established", "session_id", sessionID)

	ticker := time.NewTicker(h.config.KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("progress client disconnected", "session_id", sessionID)
			return

		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := stream.WriteEvent(event.Name, event.Data); err != nil {
				h.logger.Info("client disconnected during event write",
					"session_id", sessionID,
					"error", err,
				)
				return
			}

		case <-ticker.C:
			if err := stream.WriteKeepAlive(); err != nil {
				h.logger.Info("client disconnected during keepalive",
					"session_id", sessionID,
					"error", err,
				)
				return
			}
		}
	}
}
