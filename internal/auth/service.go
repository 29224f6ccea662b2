package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"feedback-service/internal/apperr"
	"feedback-service/internal/identity"
	"feedback-service/internal/metrics"
	"feedback-service/internal/user"

	"golang.org/x/crypto/bcrypt"
)

type tokenStore interface {
	CreateRefreshToken(ctx context.Context, userID int, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, tokenHash string) error
}

type Service struct {
	tokens     tokenStore
	users      user.Repository
	issuer     *TokenIssuer
	refreshTTL time.Duration
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewService(tokens tokenStore, users user.Repository, issuer *TokenIssuer, refreshTTL time.Duration, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		tokens:     tokens,
		users:      users,
		issuer:     issuer,
		refreshTTL: refreshTTL,
		metrics:    m,
		logger:     logger,
	}
}

// Register creates a student account and signs it in.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.Create(ctx, &user.User{
		Name:     req.Name,
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: string(hashed),
		Role:     identity.RoleStudent,
		Phone:    req.Phone,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordUserRegistration(ctx)
	s.logger.InfoContext(ctx, "user registered", "user_id", u.ID)

	return s.issue(ctx, u)
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.metrics.RecordLoginFailed(ctx)
			return nil, apperr.Unauthenticated("invalid credentials")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)); err != nil {
		s.metrics.RecordLoginFailed(ctx)
		return nil, apperr.Unauthenticated("invalid credentials")
	}

	if u.IsBlocked {
		s.metrics.RecordLoginFailed(ctx)
		return nil, apperr.InvalidState("account is blocked")
	}

	now := time.Now()
	if err := s.users.TouchLastLogin(ctx, u.ID, now); err != nil {
		return nil, err
	}
	u.LastLogin = &now

	return s.issue(ctx, u)
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	hash := hashToken(refreshToken)
	stored, err := s.tokens.GetRefreshToken(ctx, hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.Unauthenticated("invalid or expired refresh token")
		}
		return nil, err
	}

	u, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Unauthenticated("invalid or expired refresh token")
		}
		return nil, err
	}
	if u.IsBlocked {
		return nil, apperr.InvalidState("account is blocked")
	}

	if err := s.tokens.DeleteRefreshToken(ctx, hash); err != nil {
		return nil, err
	}
	return s.issue(ctx, u)
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.DeleteRefreshToken(ctx, hashToken(refreshToken))
}

// Authenticate resolves an access token to a principal.
func (s *Service) Authenticate(token string) (identity.Principal, error) {
	return s.issuer.Parse(token)
}

// EnsureAdmin creates the bootstrap admin account if no user owns the email yet.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.Create(ctx, &user.User{
		Name:     "Administrator",
		Email:    strings.ToLower(email),
		Password: string(hashed),
		Role:     identity.RoleAdmin,
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "bootstrap admin created", "user_id", u.ID)
	return nil
}

func (s *Service) issue(ctx context.Context, u *user.User) (*AuthResponse, error) {
	access, err := s.issuer.Issue(identity.Principal{UserID: u.ID, Role: u.Role})
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := newRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	if err := s.tokens.CreateRefreshToken(ctx, u.ID, hashToken(refresh), time.Now().Add(s.refreshTTL)); err != nil {
		return nil, err
	}

	return &AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.issuer.TTL().Seconds()),
		User:         u,
	}, nil
}
