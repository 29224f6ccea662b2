package auth

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"feedback-service/internal/apperr"
	"feedback-service/internal/identity"
)

const cookieName = "token"

type Authenticator interface {
	Authenticate(token string) (identity.Principal, error)
}

// Middleware validates the access token from the "token" cookie or a Bearer
// header and stores the principal in the request context.
func Middleware(authn Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				logger.WarnContext(r.Context(), "no auth token found", "path", r.URL.Path)
				apperr.Respond(w, r, logger, apperr.Unauthenticated("unauthorized"))
				return
			}

			principal, err := authn.Authenticate(token)
			if err != nil {
				logger.WarnContext(r.Context(), "invalid token", "error", err)
				apperr.Respond(w, r, logger, apperr.Unauthenticated("unauthorized"))
				return
			}

			next.ServeHTTP(w, r.WithContext(identity.WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireRole rejects principals whose role is not in roles.
func RequireRole(logger *slog.Logger, roles ...identity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := identity.FromContext(r.Context())
			if !ok {
				apperr.Respond(w, r, logger, apperr.Unauthenticated("unauthorized"))
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			apperr.Respond(w, r, logger, apperr.Forbidden("insufficient role"))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// SetAuthCookie sets the access token in an HttpOnly cookie
func SetAuthCookie(w http.ResponseWriter, env, token string, ttl time.Duration) {
	sameSite := http.SameSiteStrictMode
	if env == "development" || env == "local" {
		sameSite = http.SameSiteLaxMode // Allow testing from Postman
	}

	// Secure cookies require HTTPS
	secure := env == "production" || env == "prod"

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
	})
}

// ClearAuthCookie removes the auth cookie
func ClearAuthCookie(w http.ResponseWriter, env string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   env == "production" || env == "prod",
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   -1,
	})
}
