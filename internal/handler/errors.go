package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ct-jyjntc/ai-discussion/internal/domain"
	"github.com/ct-jyjntc/ai-discussion/internal/httputil"
)

// handleError maps domain errors to RFC 7807 problem responses.
// Unrecognized errors become opaque 500s; the detail is logged, not leaked.
func handleError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		httputil.RespondError(w, httpErr.StatusCode(), httpErr.Error())
		return
	}

	var modelErr *domain.ModelError
	if errors.As(err, &modelErr) {
		httputil.RespondErrorWithExtras(w, http.StatusBadGateway, "upstream model call failed",
			map[string]interface{}{"provider": modelErr.Provider})
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrSessionFinished):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	default:
		logger.Error("unhandled error", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
