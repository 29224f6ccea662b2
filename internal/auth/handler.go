package auth

import (
	"log/slog"
	"net/http"

	"feedback-service/common/httputil"
	"feedback-service/internal/apperr"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service   *Service
	env       string
	logger    *slog.Logger
	validator *validator.Validate
}

func NewHandler(service *Service, env string, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		env:       env,
		logger:    logger,
		validator: apperr.NewValidator(),
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/auth/register", h.Register)
	router.Post("/auth/login", h.Login)
	router.Post("/auth/refresh", h.Refresh)
	router.Post("/auth/logout", h.Logout)
}

// Register creates a new student account
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := apperr.DecodeAndValidate(r, h.validator, &req); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	resp, err := h.service.Register(r.Context(), req)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	SetAuthCookie(w, h.env, resp.AccessToken, h.service.issuer.TTL())
	httputil.RespondWithJSON(w, http.StatusCreated, resp)
}

// Login authenticates a user
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := apperr.DecodeAndValidate(r, h.validator, &req); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(r.Context(), "user logged in", "user_id", resp.User.ID, "role", resp.User.Role)

	SetAuthCookie(w, h.env, resp.AccessToken, h.service.issuer.TTL())
	httputil.RespondWithJSON(w, http.StatusOK, resp)
}

// Refresh rotates the refresh token and issues a new access token
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := apperr.DecodeAndValidate(r, h.validator, &req); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	resp, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	SetAuthCookie(w, h.env, resp.AccessToken, h.service.issuer.TTL())
	httputil.RespondWithJSON(w, http.StatusOK, resp)
}

// Logout invalidates the refresh token
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := apperr.DecodeAndValidate(r, h.validator, &req); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	ClearAuthCookie(w, h.env)
	w.WriteHeader(http.StatusNoContent)
}
