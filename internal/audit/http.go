package audit

import (
	"log/slog"
	"net/http"

	"feedback-service/common/httputil"
	"feedback-service/internal/apperr"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	repo   Repository
	logger *slog.Logger
}

func NewHandler(repo Repository, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

// RegisterAdminRoutes mounts the activity log. The caller restricts the router to admins.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/activity", h.Recent)
	r.Get("/activity/feedback/{id}", h.ByFeedback)
}

func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.QueryInt(r, "limit", defaultRecentLimit)
	if err != nil || limit < 1 || limit > defaultRecentLimit {
		apperr.Respond(w, r, h.logger, apperr.Validation("limit must be between 1 and %d", defaultRecentLimit))
		return
	}

	items, err := h.repo.Recent(r.Context(), limit)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, items)
}

func (h *Handler) ByFeedback(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.URLParamInt(r, "id")
	if !ok {
		apperr.Respond(w, r, h.logger, apperr.Validation("invalid feedback id"))
		return
	}

	items, err := h.repo.ByFeedback(r.Context(), id)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, items)
}
