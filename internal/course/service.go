package course

import (
	"context"
	"log/slog"
	"math"

	"feedback-service/internal/apperr"
)

// FeedbackCounter reports how many feedback records reference a course.
type FeedbackCounter interface {
	CountByCourse(ctx context.Context, courseID int) (int, error)
}

type Service interface {
	Create(ctx context.Context, actorID int, req CreateCourseRequest) (*Course, error)
	Get(ctx context.Context, id int) (*Course, error)
	List(ctx context.Context, filter ListFilter) (*Page, error)
	Update(ctx context.Context, id int, req UpdateCourseRequest) (*Course, error)
	ToggleActive(ctx context.Context, id int) (*Course, error)
	Delete(ctx context.Context, id int) error
}

type service struct {
	repo    Repository
	counter FeedbackCounter
	logger  *slog.Logger
}

func NewService(repo Repository, counter FeedbackCounter, logger *slog.Logger) Service {
	return &service{
		repo:    repo,
		counter: counter,
		logger:  logger,
	}
}

func (s *service) Create(ctx context.Context, actorID int, req CreateCourseRequest) (*Course, error) {
	c := &Course{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		Instructor:  req.Instructor,
		Department:  req.Department,
		Credits:     req.Credits,
		IsActive:    true,
		CreatedBy:   actorID,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "course created", "course_id", c.ID, "code", c.Code, "actor_id", actorID)
	return c, nil
}

func (s *service) Get(ctx context.Context, id int) (*Course, error) {
	if id <= 0 {
		return nil, apperr.Validation("invalid course id")
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter ListFilter) (*Page, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		return nil, apperr.Validation("limit must be between 1 and 100")
	}

	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &Page{
		Courses:    courses,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
	}, nil
}

func (s *service) Update(ctx context.Context, id int, req UpdateCourseRequest) (*Course, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Code != nil {
		c.Code = *req.Code
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.Instructor != nil {
		c.Instructor = *req.Instructor
	}
	if req.Department != nil {
		c.Department = *req.Department
	}
	if req.Credits != nil {
		c.Credits = *req.Credits
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) ToggleActive(ctx context.Context, id int) (*Course, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	c.IsActive = !c.IsActive
	if err := s.repo.SetActive(ctx, c.ID, c.IsActive); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "course active state changed", "course_id", c.ID, "active", c.IsActive)
	return c, nil
}

// Delete removes a course that no feedback references. Courses with feedback
// must be deactivated instead.
func (s *service) Delete(ctx context.Context, id int) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	count, err := s.counter.CountByCourse(ctx, c.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperr.HasDependents("course", count, "deactivate it")
	}

	return s.repo.Delete(ctx, c.ID)
}
