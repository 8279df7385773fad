package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ct-jyjntc/ai-discussion/internal/cache"
	model "github.com/ct-jyjntc/ai-discussion/internal/domain/models/discussion"
	discussionRepo "github.com/ct-jyjntc/ai-discussion/internal/domain/repositories/discussion"
	"github.com/ct-jyjntc/ai-discussion/internal/httputil"
	discussionSvc "github.com/ct-jyjntc/ai-discussion/internal/service/discussion"
)

// DiscussionService is the orchestrator surface the HTTP layer needs.
type DiscussionService interface {
	StartSession(question string) (string, error)
	GetTranscript(sessionID string) (model.Transcript, error)
	Cancel(sessionID string) error
	Subscribe(sessionID string) (<-chan discussionSvc.Event, func(), error)
	ListTranscripts() []model.Transcript
}

// DiscussionHandler handles discussion HTTP requests
type DiscussionHandler struct {
	service DiscussionService
	archive discussionRepo.SessionRepository // nil when no database is configured
	cache   *cache.Cache
	logger  *slog.Logger
}

// NewDiscussionHandler creates a new discussion handler
func NewDiscussionHandler(service DiscussionService, archive discussionRepo.SessionRepository, responseCache *cache.Cache, logger *slog.Logger) *DiscussionHandler {
	return &DiscussionHandler{
		service: service,
		archive: archive,
		cache:   responseCache,
		logger:  logger,
	}
}

// StartDiscussion starts a new discussion session
// POST /api/discussions
func (h *DiscussionHandler) StartDiscussion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID, err := h.service.StartSession(req.Question)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, map[string]string{
		"session_id": sessionID,
	})
}

// GetDiscussion retrieves a transcript snapshot, readable mid-flight.
// Falls back to the archive for sessions evicted from memory.
// GET /api/discussions/{id}
func (h *DiscussionHandler) GetDiscussion(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	transcript, err := h.service.GetTranscript(sessionID)
	if err == nil {
		httputil.RespondJSON(w, http.StatusOK, transcript)
		return
	}
	if h.archive != nil {
		archived, archiveErr := h.archive.GetSession(r.Context(), sessionID)
		if archiveErr == nil {
			httputil.RespondJSON(w, http.StatusOK, archived)
			return
		}
	}
	handleError(w, h.logger, err)
}

// CancelDiscussion cancels a running session
// POST /api/discussions/{id}/cancel
func (h *DiscussionHandler) CancelDiscussion(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Cancel(r.PathValue("id")); err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusAccepted, map[string]string{
		"status": "cancelling",
	})
}

// ListDiscussions lists archived sessions, newest first. Without a
// database it lists the in-memory sessions instead.
// GET /api/discussions
func (h *DiscussionHandler) ListDiscussions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httputil.RespondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	if h.archive == nil {
		httputil.RespondJSON(w, http.StatusOK, h.service.ListTranscripts())
		return
	}

	sessions, err := h.archive.ListSessions(r.Context(), limit)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, sessions)
}

// HealthCheck reports server liveness
// GET /health
func (h *DiscussionHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CacheStats reports response cache hit/miss accounting
// GET /api/stats/cache
func (h *DiscussionHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		httputil.RespondJSON(w, http.StatusOK, cache.Stats{})
		return
	}
	httputil.RespondJSON(w, http.StatusOK, h.cache.Stats())
}
