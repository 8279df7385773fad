package handler

import (
	"net/http"

	"github.com/ct-jyjntc/ai-discussion/internal/handler/sse"
	"github.com/ct-jyjntc/ai-discussion/internal/httputil"
)

// StreamDiscussion streams session events via Server-Sent Events.
// A subscriber attached mid-session receives events from that point on;
// the full transcript is always available via GetDiscussion.
// GET /api/discussions/{id}/stream
func (h *DiscussionHandler) StreamDiscussion(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	events, unsubscribe, err := h.service.Subscribe(sessionID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	defer unsubscribe()

	writer, err := sse.NewEventWriter(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.Info("SSE stream established", "session_id", sessionID)

	keepAlive := sse.NewTickerKeepAlive(sse.DefaultConfig().KeepAliveInterval)
	kaStopped := keepAlive.Start(writer, h.logger)
	defer keepAlive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				// Session settled, all events delivered.
				h.logger.Debug("event channel closed, ending stream", "session_id", sessionID)
				return
			}
			if err := writer.WriteEvent(string(event.Type), event); err != nil {
				h.logger.Info("client disconnected during event write",
					"session_id", sessionID, "error", err)
				return
			}

		case <-kaStopped:
			// Keep-alive already detected a dead connection.
			return

		case <-r.Context().Done():
			h.logger.Debug("SSE client went away", "session_id", sessionID)
			return
		}
	}
}
