package feedback

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"feedback-service/internal/apperr"
	"feedback-service/internal/course"
	"feedback-service/internal/events"
	"feedback-service/internal/identity"
	"feedback-service/internal/metrics"
	"feedback-service/internal/user"
)

type CourseLookup interface {
	GetByID(ctx context.Context, id int) (*course.Course, error)
}

type StudentLookup interface {
	GetByID(ctx context.Context, id int) (*user.User, error)
}

// Service is the feedback lifecycle: one feedback per (student, course),
// owner-only edits, and admin moderation.
type Service interface {
	Create(ctx context.Context, p identity.Principal, req CreateRequest) (*Feedback, error)
	Update(ctx context.Context, p identity.Principal, id int, req UpdateRequest) (*Feedback, error)
	Delete(ctx context.Context, p identity.Principal, id int) error
	Get(ctx context.Context, p identity.Principal, id int) (*Feedback, error)
	List(ctx context.Context, p identity.Principal, filter Filter) (*Page, error)
	ListMine(ctx context.Context, p identity.Principal, filter Filter) (*Page, error)
	Moderate(ctx context.Context, p identity.Principal, id int, status Status) (*Feedback, error)
}

type Options struct {
	// AutoApprove starts new feedback as approved instead of pending.
	AutoApprove bool
}

type service struct {
	repo      Repository
	courses   CourseLookup
	students  StudentLookup
	publisher events.Publisher
	opts      Options
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewService(repo Repository, courses CourseLookup, students StudentLookup, publisher events.Publisher, opts Options, m *metrics.Metrics, logger *slog.Logger) Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &service{
		repo:      repo,
		courses:   courses,
		students:  students,
		publisher: publisher,
		opts:      opts,
		metrics:   m,
		logger:    logger,
	}
}

func (s *service) Create(ctx context.Context, p identity.Principal, req CreateRequest) (*Feedback, error) {
	if p.Role != identity.RoleStudent {
		return nil, apperr.Forbidden("only students can submit feedback")
	}

	if err := s.ensureActiveStudent(ctx, p.UserID); err != nil {
		return nil, err
	}

	c, err := s.courses.GetByID(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		s.metrics.RecordSubmissionRejected(ctx, "inactive_course")
		return nil, apperr.InvalidState("course %s is not accepting feedback", c.Code)
	}

	status := StatusPending
	if s.opts.AutoApprove {
		status = StatusApproved
	}

	f := &Feedback{
		StudentID:   p.UserID,
		CourseID:    c.ID,
		Rating:      req.Rating,
		Message:     req.Message,
		IsAnonymous: req.IsAnonymous,
		Tags:        ApplySentimentTag(req.Tags, req.Rating),
		Status:      status,
	}

	if err := s.repo.Create(ctx, f); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			s.metrics.RecordSubmissionRejected(ctx, "duplicate")
		}
		return nil, err
	}
	f.Course = c

	s.metrics.RecordFeedbackSubmitted(ctx, f.Rating)
	s.logger.InfoContext(ctx, "feedback submitted",
		"feedback_id", f.ID, "course_id", f.CourseID, "rating", f.Rating, "status", f.Status)
	s.publish(ctx, events.FeedbackCreated, f, p.UserID)

	return f, nil
}

func (s *service) Update(ctx context.Context, p identity.Principal, id int, req UpdateRequest) (*Feedback, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.StudentID != p.UserID {
		return nil, apperr.Forbidden("you can only edit your own feedback")
	}

	if req.Rating != nil {
		f.Rating = *req.Rating
	}
	if req.Message != nil {
		f.Message = *req.Message
	}
	if req.IsAnonymous != nil {
		f.IsAnonymous = *req.IsAnonymous
	}
	tags := f.Tags
	if req.Tags != nil {
		tags = *req.Tags
	}
	f.Tags = ApplySentimentTag(tags, f.Rating)

	if err := s.repo.Update(ctx, f); err != nil {
		return nil, err
	}

	s.metrics.RecordFeedbackChanged(ctx, "updated")
	s.publish(ctx, events.FeedbackUpdated, f, p.UserID)
	return f, nil
}

func (s *service) Delete(ctx context.Context, p identity.Principal, id int) error {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if f.StudentID != p.UserID {
		return apperr.Forbidden("you can only delete your own feedback")
	}

	if err := s.repo.Delete(ctx, f.ID); err != nil {
		return err
	}

	s.metrics.RecordFeedbackChanged(ctx, "deleted")
	s.publish(ctx, events.FeedbackDeleted, f, p.UserID)
	return nil
}

// Get returns a single feedback. Feedback that is not approved is only
// visible to its author and to admins.
func (s *service) Get(ctx context.Context, p identity.Principal, id int) (*Feedback, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.Status != StatusApproved && !p.IsAdmin() && f.StudentID != p.UserID {
		return nil, apperr.NotFound("feedback %d not found", id)
	}
	return f, nil
}

// List returns a page of feedback. Students only see approved feedback.
func (s *service) List(ctx context.Context, p identity.Principal, filter Filter) (*Page, error) {
	if !p.IsAdmin() {
		filter.Status = StatusApproved
	}
	return s.page(ctx, filter)
}

// ListMine returns the caller's own feedback in every status.
func (s *service) ListMine(ctx context.Context, p identity.Principal, filter Filter) (*Page, error) {
	filter.StudentID = p.UserID
	return s.page(ctx, filter)
}

func (s *service) Moderate(ctx context.Context, p identity.Principal, id int, status Status) (*Feedback, error) {
	if !p.IsAdmin() {
		return nil, apperr.Forbidden("only admins can moderate feedback")
	}
	if status != StatusApproved && status != StatusRejected {
		return nil, apperr.Validation("status must be approved or rejected")
	}

	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.Status == status {
		return f, nil
	}

	if err := s.repo.SetStatus(ctx, f.ID, status); err != nil {
		return nil, err
	}
	f.Status = status
	f.UpdatedAt = time.Now()

	s.metrics.RecordFeedbackChanged(ctx, "moderated")
	s.logger.InfoContext(ctx, "feedback moderated", "feedback_id", f.ID, "status", status, "actor_id", p.UserID)
	s.publish(ctx, events.FeedbackModerated, f, p.UserID)
	return f, nil
}

func (s *service) page(ctx context.Context, filter Filter) (*Page, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > maxLimit {
		return nil, apperr.Validation("limit must be between 1 and %d", maxLimit)
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &Page{
		Feedback:   items,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
	}, nil
}

func (s *service) ensureActiveStudent(ctx context.Context, id int) error {
	u, err := s.students.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Unauthenticated("account no longer exists")
		}
		return err
	}
	if u.IsBlocked {
		s.metrics.RecordSubmissionRejected(ctx, "blocked_student")
		return apperr.InvalidState("account is blocked")
	}
	return nil
}

// publish emits a lifecycle event. Broker failures never fail the request.
func (s *service) publish(ctx context.Context, typ events.Type, f *Feedback, actorID int) {
	err := s.publisher.Publish(ctx, events.Event{
		Type:       typ,
		FeedbackID: f.ID,
		StudentID:  f.StudentID,
		CourseID:   f.CourseID,
		Rating:     f.Rating,
		Status:     string(f.Status),
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish feedback event", "type", typ, "feedback_id", f.ID, "error", err)
	}
}
