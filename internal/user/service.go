package user

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"feedback-service/internal/apperr"

	"github.com/google/uuid"
)

// FeedbackCounter reports how many feedback records a student authored.
type FeedbackCounter interface {
	CountByStudent(ctx context.Context, studentID int) (int, error)
}

// Uploader stores profile pictures with the image host.
type Uploader interface {
	Upload(ctx context.Context, r io.Reader, publicID string) (string, error)
	Delete(ctx context.Context, url string) error
}

// SessionRevoker drops every refresh token of a user.
type SessionRevoker interface {
	RevokeAll(ctx context.Context, userID int) error
}

type Service interface {
	GetProfile(ctx context.Context, id int) (*User, error)
	UpdateProfile(ctx context.Context, id int, req UpdateProfileRequest) (*User, error)
	UpdateProfilePicture(ctx context.Context, id int, image io.Reader) (*User, error)
	List(ctx context.Context, filter ListFilter) (*Page, error)
	ToggleBlock(ctx context.Context, actorID, userID int) (*User, error)
	Delete(ctx context.Context, actorID, userID int) error
}

type service struct {
	repo     Repository
	counter  FeedbackCounter
	uploader Uploader
	sessions SessionRevoker
	logger   *slog.Logger
}

// NewService wires the user service. uploader and sessions may be nil when
// the corresponding integration is disabled.
func NewService(repo Repository, counter FeedbackCounter, uploader Uploader, sessions SessionRevoker, logger *slog.Logger) Service {
	return &service{
		repo:     repo,
		counter:  counter,
		uploader: uploader,
		sessions: sessions,
		logger:   logger,
	}
}

func (s *service) GetProfile(ctx context.Context, id int) (*User, error) {
	if id <= 0 {
		return nil, apperr.Validation("invalid user id")
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) UpdateProfile(ctx context.Context, id int, req UpdateProfileRequest) (*User, error) {
	u, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Phone != nil {
		u.Phone = *req.Phone
	}
	if req.Address != nil {
		u.Address = *req.Address
	}
	if req.DateOfBirth != nil {
		if *req.DateOfBirth == "" {
			u.DateOfBirth = nil
		} else {
			dob, err := time.Parse("2006-01-02", *req.DateOfBirth)
			if err != nil {
				return nil, apperr.Validation("dateOfBirth must be YYYY-MM-DD")
			}
			if dob.After(time.Now()) {
				return nil, apperr.Validation("dateOfBirth cannot be in the future")
			}
			u.DateOfBirth = &dob
		}
	}

	if err := s.repo.UpdateProfile(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateProfilePicture uploads the new picture, stores its URL and then
// tries to remove the previous one. Failing to remove the old asset is
// logged and ignored.
func (s *service) UpdateProfilePicture(ctx context.Context, id int, image io.Reader) (*User, error) {
	if s.uploader == nil {
		return nil, apperr.InvalidState("profile picture uploads are not configured")
	}

	u, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	publicID := fmt.Sprintf("user_%d_%s", u.ID, uuid.NewString())
	url, err := s.uploader.Upload(ctx, image, publicID)
	if err != nil {
		return nil, fmt.Errorf("upload profile picture: %w", err)
	}

	previous := u.ProfilePicture
	u.ProfilePicture = url
	if err := s.repo.UpdateProfile(ctx, u); err != nil {
		return nil, err
	}

	if previous != "" && previous != url {
		if err := s.uploader.Delete(ctx, previous); err != nil {
			s.logger.WarnContext(ctx, "failed to delete previous profile picture",
				"user_id", u.ID, "url", previous, "error", err)
		}
	}

	return u, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) (*Page, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		return nil, apperr.Validation("limit must be between 1 and 100")
	}
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, apperr.Validation("unknown role %q", filter.Role)
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &Page{
		Users:      users,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
	}, nil
}

func (s *service) ToggleBlock(ctx context.Context, actorID, userID int) (*User, error) {
	if actorID == userID {
		return nil, apperr.Forbidden("you cannot block your own account")
	}

	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	u.IsBlocked = !u.IsBlocked
	if err := s.repo.SetBlocked(ctx, u.ID, u.IsBlocked); err != nil {
		return nil, err
	}

	if u.IsBlocked && s.sessions != nil {
		if err := s.sessions.RevokeAll(ctx, u.ID); err != nil {
			s.logger.WarnContext(ctx, "failed to revoke sessions of blocked user", "user_id", u.ID, "error", err)
		}
	}

	s.logger.InfoContext(ctx, "user block state changed", "user_id", u.ID, "blocked", u.IsBlocked, "actor_id", actorID)
	return u, nil
}

func (s *service) Delete(ctx context.Context, actorID, userID int) error {
	if actorID == userID {
		return apperr.Forbidden("you cannot delete your own account")
	}

	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}

	count, err := s.counter.CountByStudent(ctx, u.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperr.HasDependents("user", count, "block the account")
	}

	if err := s.repo.Delete(ctx, u.ID); err != nil {
		return err
	}

	if u.ProfilePicture != "" && s.uploader != nil {
		if err := s.uploader.Delete(ctx, u.ProfilePicture); err != nil {
			s.logger.WarnContext(ctx, "failed to delete profile picture of removed user", "user_id", u.ID, "error", err)
		}
	}
	return nil
}
