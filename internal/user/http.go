package user

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

const maxPictureSize = 5 << 20

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

// RegisterRoutes mounts the self-service profile endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/users/me", h.GetProfile)
	r.Put("/users/me", h.UpdateProfile)
	r.Post("/users/me/picture", h.UploadPicture)
}

// RegisterAdminRoutes mounts user moderation endpoints. The caller is
// responsible for restricting the router to admins.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/users", h.List)
	r.Patch("/users/{id}/toggle-block", h.ToggleBlock)
	r.Delete("/users/{id}", h.Delete)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.FromContext(r.Context())
	if !ok {
		apperr.Respond(w, r, h.logger, apperr.Unauthenticated("authentication required"))
		return
	}

	u, err := h.service.GetProfile(r.Context(), p.UserID)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, u)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.FromContext(r.Context())
	if !ok {
		apperr.Respond(w, r, h.logger, apperr.Unauthenticated("authentication required"))
		return
	}

	var req UpdateProfileRequest
	if err := apperr.DecodeAndValidate(r, h.validate, &req); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), p.UserID, req)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, u)
}

// UploadPicture accepts a multipart form with an image in the "picture" field.
func (h *Handler) UploadPicture(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.FromContext(r.Context())
	if !ok {
		apperr.Respond(w, r, h.logger, apperr.Unauthenticated("authentication required"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPictureSize)
	if err := r.ParseMultipartForm(maxPictureSize); err != nil {
		apperr.Respond(w, r, h.logger, apperr.Validation("picture must be a multipart upload under 5MB"))
		return
	}

	file, header, err := r.FormFile("picture")
	if err != nil {
		apperr.Respond(w, r, h.logger, apperr.Validation("picture file is required"))
		return
	}
	defer file.Close()

	if ct := header.Header.Get("Content-Type"); ct != "image/jpeg" && ct != "image/png" && ct != "image/webp" {
		apperr.Respond(w, r, h.logger, apperr.Validation("unsupported image type %q", ct))
		return
	}

	u, err := h.service.UpdateProfilePicture(r.Context(), p.UserID, file)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, u)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Role:   identity.Role(r.URL.Query().Get("role")),
		Search: r.URL.Query().Get("search"),
	}

	if raw := r.URL.Query().Get("blocked"); raw != "" {
		blocked, err := strconv.ParseBool(raw)
		if err != nil {
			apperr.Respond(w, r, h.logger, apperr.Validation("blocked must be true or false"))
			return
		}
		filter.Blocked = &blocked
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

func (h *Handler) ToggleBlock(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.FromContext(r.Context())
	if !ok {
		apperr.Respond(w, r, h.logger, apperr.Unauthenticated("authentication required"))
		return
	}
	id, ok := httputil.URLParamInt(r, "id")
	if !ok {
		apperr.Respond(w, r, h.logger, apperr.Validation("invalid user id"))
		return
	}

	u, err := h.service.ToggleBlock(r.Context(), p.UserID, id)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, u)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.FromContext(r.Context())
	if !ok {
		apperr.Respond(w, r, h.logger, apperr.Unauthenticated("authentication required"))
		return
	}
	id, ok := httputil.URLParamInt(r, "id")
	if !ok {
		apperr.Respond(w, r, h.logger, apperr.Validation("invalid user id"))
		return
	}

	if err := h.service.Delete(r.Context(), p.UserID, id); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
