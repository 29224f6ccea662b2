package stats

import (
	"log/slog"
	"net/http"

	"feedback-service/common/httputil"
	"feedback-service/internal/apperr"
	"feedback-service/internal/feedback"
	"feedback-service/internal/identity"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/courses/{id}/statistics", h.CourseStatistics)
	r.Get("/users/me/statistics", h.MyStatistics)
}

// RegisterAdminRoutes mounts the analytics views. The caller restricts the
// router to admins.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/dashboard", h.Dashboard)
	r.Get("/statistics/overview", h.Overview)
	r.Get("/statistics/top-courses", h.TopCourses)
	r.Get("/statistics/trends", h.Trends)
	r.Get("/statistics/summary", h.Summary)
	r.Get("/users/{id}/statistics", h.UserStatistics)
}

func (h *Handler) CourseStatistics(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.URLParamInt(r, "id")
	if !ok {
		apperr.Respond(w, r, h.logger, apperr.Validation("invalid course id"))
		return
	}

	summary, err := h.service.CourseStatistics(r.Context(), id)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, summary)
}

func (h *Handler) MyStatistics(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.FromContext(r.Context())
	if !ok {
		apperr.Respond(w, r, h.logger, apperr.Unauthenticated("authentication required"))
		return
	}

	summary, err := h.service.UserFeedbackStatistics(r.Context(), p.UserID)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, summary)
}

func (h *Handler) UserStatistics(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.URLParamInt(r, "id")
	if !ok {
		apperr.Respond(w, r, h.logger, apperr.Validation("invalid user id"))
		return
	}

	summary, err := h.service.UserFeedbackStatistics(r.Context(), id)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, summary)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Dashboard(r.Context())
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, d)
}

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.OverallStatistics(r.Context())
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, o)
}

func (h *Handler) TopCourses(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.QueryInt(r, "limit", 5)
	if err != nil {
		apperr.Respond(w, r, h.logger, apperr.Validation("limit must be a number"))
		return
	}

	top, err := h.service.TopCourses(r.Context(), limit)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, top)
}

func (h *Handler) Trends(w http.ResponseWriter, r *http.Request) {
	months, err := httputil.QueryInt(r, "months", 6)
	if err != nil {
		apperr.Respond(w, r, h.logger, apperr.Validation("months must be a number"))
		return
	}

	trends, err := h.service.MonthlyTrends(r.Context(), months)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, trends)
}

// Summary accepts the same filter parameters as the feedback listing.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	filter, err := feedback.ParseFilter(r.URL.Query())
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	summary, err := h.service.Summary(r.Context(), ScopeFromFilter(filter))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, summary)
}

// ScopeFromFilter keeps the row-selecting parts of a listing filter.
func ScopeFromFilter(f feedback.Filter) Scope {
	return Scope{
		CourseID:  f.CourseID,
		StudentID: f.StudentID,
		Rating:    f.Rating,
		Status:    string(f.Status),
		Since:     f.StartDate,
		Until:     f.EndDate,
	}
}
