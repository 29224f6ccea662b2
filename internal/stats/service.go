package stats

import (
	"context"
	"time"

	"feedback-service/internal/apperr"
	"feedback-service/internal/course"
	"feedback-service/internal/metrics"
	"feedback-service/internal/user"
)

const (
	statusApproved = "approved"

	dashboardTopCourses  = 5
	dashboardTrendMonths = 6
	maxTopCourses        = 50
	maxTrendWindowMonths = 36
)

type CourseLookup interface {
	GetByID(ctx context.Context, id int) (*course.Course, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id int) (*user.User, error)
}

type Dashboard struct {
	Overall     Overall      `json:"overall"`
	TopCourses  []CourseRank `json:"topCourses"`
	Trends      []MonthTrend `json:"monthlyTrends"`
	GeneratedAt time.Time    `json:"generatedAt"`
}

type Service interface {
	CourseStatistics(ctx context.Context, courseID int) (*Summary, error)
	OverallStatistics(ctx context.Context) (*Overall, error)
	TopCourses(ctx context.Context, limit int) ([]CourseRank, error)
	MonthlyTrends(ctx context.Context, windowMonths int) ([]MonthTrend, error)
	UserFeedbackStatistics(ctx context.Context, userID int) (*Summary, error)
	Dashboard(ctx context.Context) (*Dashboard, error)
	Summary(ctx context.Context, scope Scope) (*Summary, error)
}

type service struct {
	repo    Repository
	courses CourseLookup
	users   UserLookup
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(repo Repository, courses CourseLookup, users UserLookup, m *metrics.Metrics) Service {
	return &service{
		repo:    repo,
		courses: courses,
		users:   users,
		metrics: m,
		now:     time.Now,
	}
}

// CourseStatistics summarises the approved feedback of one course.
func (s *service) CourseStatistics(ctx context.Context, courseID int) (*Summary, error) {
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		return nil, err
	}

	records, err := s.repo.Records(ctx, Scope{CourseID: courseID, Status: statusApproved})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordStatisticsViewed(ctx, "course")
	summary := Summarize(records)
	return &summary, nil
}

func (s *service) OverallStatistics(ctx context.Context) (*Overall, error) {
	records, err := s.repo.Records(ctx, Scope{Status: statusApproved})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordStatisticsViewed(ctx, "overall")
	overall := Overview(records)
	return &overall, nil
}

func (s *service) TopCourses(ctx context.Context, limit int) ([]CourseRank, error) {
	if limit < 1 || limit > maxTopCourses {
		return nil, apperr.Validation("limit must be between 1 and %d", maxTopCourses)
	}

	records, err := s.repo.Records(ctx, Scope{Status: statusApproved})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordStatisticsViewed(ctx, "top_courses")
	return TopCourses(records, limit), nil
}

func (s *service) MonthlyTrends(ctx context.Context, windowMonths int) ([]MonthTrend, error) {
	if windowMonths < 1 || windowMonths > maxTrendWindowMonths {
		return nil, apperr.Validation("months must be between 1 and %d", maxTrendWindowMonths)
	}

	now := s.now()
	since := WindowStart(now, windowMonths)
	records, err := s.repo.Records(ctx, Scope{Status: statusApproved, Since: &since})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordStatisticsViewed(ctx, "trends")
	return MonthlyTrends(records, windowMonths, now), nil
}

// UserFeedbackStatistics summarises everything a student submitted,
// whatever its moderation status.
func (s *service) UserFeedbackStatistics(ctx context.Context, userID int) (*Summary, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	records, err := s.repo.Records(ctx, Scope{StudentID: userID})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordStatisticsViewed(ctx, "user")
	summary := Summarize(records)
	return &summary, nil
}

// Dashboard computes the admin landing view from a single read of the
// approved feedback.
func (s *service) Dashboard(ctx context.Context) (*Dashboard, error) {
	records, err := s.repo.Records(ctx, Scope{Status: statusApproved})
	if err != nil {
		return nil, err
	}

	now := s.now()
	s.metrics.RecordStatisticsViewed(ctx, "dashboard")
	return &Dashboard{
		Overall:     Overview(records),
		TopCourses:  TopCourses(records, dashboardTopCourses),
		Trends:      MonthlyTrends(records, dashboardTrendMonths, now),
		GeneratedAt: now.UTC(),
	}, nil
}

// Summary aggregates an arbitrary scope, matching what the equivalent
// feedback listing would return.
func (s *service) Summary(ctx context.Context, scope Scope) (*Summary, error) {
	records, err := s.repo.Records(ctx, scope)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordStatisticsViewed(ctx, "summary")
	summary := Summarize(records)
	return &summary, nil
}
