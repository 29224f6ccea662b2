package course

import (
	"log/slog"
	"net/http"
	"strconv"

	"feedback-service/common/httputil"
	"feedback-service/internal/apperr"
	"feedback-service/internal/identity"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  Service
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: apperr.NewValidator(),
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/courses", h.List)
	r.Get("/courses/{id}", h.Get)
}

// RegisterAdminRoutes mounts course management. The caller restricts the
// router to admins.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/courses", h.Create)
	r.Put("/courses/{id}", h.Update)
	r.Patch("/courses/{id}/toggle-active", h.ToggleActive)
	r.Delete("/courses/{id}", h.Delete)
}

// List returns courses. Students only ever see active ones.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Department: q.Get("department"),
		Search:     q.Get("search"),
	}

	if raw := q.Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			apperr.Respond(w, r, h.logger, apperr.Validation("active must be true or false"))
			return
		}
		filter.Active = &active
	}
	if p, ok := identity.FromContext(r.Context()); !ok || !p.IsAdmin() {
		active := true
		filter.Active = &active
	}

	var err error
	if filter.Page, err = httputil.QueryInt(r, "page", 1); err != nil {
		apperr.Respond(w, r, h.logger, apperr.Validation("page must be a number"))
		return
	}
	if filter.Limit, err = httputil.QueryInt(r, "limit", 10); err != nil {
		apperr.Respond(w, r, h.logger, apperr.Validation("limit must be a number"))
		return
	}

	page, err := h.service.List(r.Context(), filter)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, page)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.URLParamInt(r, "id")
	if !ok {
		apperr.Respond(w, r, h.logger, apperr.Validation("invalid course id"))
		return
	}

	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, c)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.FromContext(r.Context())
	if !ok {
		apperr.Respond(w, r, h.logger, apperr.Unauthenticated("authentication required"))
		return
	}

	var req CreateCourseRequest
	if err := apperr.DecodeAndValidate(r, h.validate, &req); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	c, err := h.service.Create(r.Context(), p.UserID, req)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusCreated, c)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.URLParamInt(r, "id")
	if !ok {
		apperr.Respond(w, r, h.logger, apperr.Validation("invalid course id"))
		return
	}

	var req UpdateCourseRequest
	if err := apperr.DecodeAndValidate(r, h.validate, &req); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	c, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, c)
}

func (h *Handler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.URLParamInt(r, "id")
	if !ok {
		apperr.Respond(w, r, h.logger, apperr.Validation("invalid course id"))
		return
	}

	c, err := h.service.ToggleActive(r.Context(), id)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.URLParamInt(r, "id")
	if !ok {
		apperr.Respond(w, r, h.logger, apperr.Validation("invalid course id"))
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
