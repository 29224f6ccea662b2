package feedback

import (
	"log/slog"
	"net/http"

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
	r.Route("/feedback", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/mine", h.ListMine)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// RegisterAdminRoutes mounts moderation. The caller restricts the router to admins.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Patch("/feedback/{id}/status", h.Moderate)
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (identity.Principal, bool) {
	p, ok := identity.FromContext(r.Context())
	if !ok {
		apperr.Respond(w, r, h.logger, apperr.Unauthenticated("authentication required"))
	}
	return p, ok
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req CreateRequest
	if err := apperr.DecodeAndValidate(r, h.validate, &req); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	f, err := h.service.Create(r.Context(), p, req)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusCreated, f)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, ok := httputil.URLParamInt(r, "id")
	if !ok {
		apperr.Respond(w, r, h.logger, apperr.Validation("invalid feedback id"))
		return
	}

	f, err := h.service.Get(r.Context(), p, id)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, f.Redact(p))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	page, err := h.service.List(r.Context(), p, filter)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, redactPage(page, p))
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	page, err := h.service.ListMine(r.Context(), p, filter)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, page)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, ok := httputil.URLParamInt(r, "id")
	if !ok {
		apperr.Respond(w, r, h.logger, apperr.Validation("invalid feedback id"))
		return
	}

	var req UpdateRequest
	if err := apperr.DecodeAndValidate(r, h.validate, &req); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	f, err := h.service.Update(r.Context(), p, id, req)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, f)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, ok := httputil.URLParamInt(r, "id")
	if !ok {
		apperr.Respond(w, r, h.logger, apperr.Validation("invalid feedback id"))
		return
	}

	if err := h.service.Delete(r.Context(), p, id); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Moderate(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, ok := httputil.URLParamInt(r, "id")
	if !ok {
		apperr.Respond(w, r, h.logger, apperr.Validation("invalid feedback id"))
		return
	}

	var req ModerateRequest
	if err := apperr.DecodeAndValidate(r, h.validate, &req); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	f, err := h.service.Moderate(r.Context(), p, id, req.Status)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, f.Redact(p))
}

func redactPage(page *Page, viewer identity.Principal) *Page {
	out := *page
	out.Feedback = make([]*Feedback, len(page.Feedback))
	for i, f := range page.Feedback {
		out.Feedback[i] = f.Redact(viewer)
	}
	return &out
}
