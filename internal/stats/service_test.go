package stats

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"feedback-service/internal/apperr"
	"feedback-service/internal/course"
	"feedback-service/internal/identity"
	"feedback-service/internal/metrics"
	"feedback-service/internal/user"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo applies Scope the way the SQL repository does.
type fakeRepo struct {
	rows   []Record
	owners map[int]int // feedback id -> student id
	scopes []Scope
}

func (r *fakeRepo) Records(_ context.Context, scope Scope) ([]Record, error) {
	r.scopes = append(r.scopes, scope)
	out := make([]Record, 0)
	for _, rec := range r.rows {
		if scope.CourseID != 0 && rec.CourseID != scope.CourseID {
			continue
		}
		if scope.StudentID != 0 && r.owners[rec.FeedbackID] != scope.StudentID {
			continue
		}
		if scope.Rating != 0 && rec.Rating != scope.Rating {
			continue
		}
		if scope.Status != "" && rec.Status != scope.Status {
			continue
		}
		if scope.Since != nil && rec.CreatedAt.Before(*scope.Since) {
			continue
		}
		if scope.Until != nil && rec.CreatedAt.After(*scope.Until) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

type courseMap map[int]*course.Course

func (m courseMap) GetByID(_ context.Context, id int) (*course.Course, error) {
	c, ok := m[id]
	if !ok {
		return nil, apperr.NotFound("course %d not found", id)
	}
	return c, nil
}

type userMap map[int]*user.User

func (m userMap) GetByID(_ context.Context, id int) (*user.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, apperr.NotFound("user %d not found", id)
	}
	return u, nil
}

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*service, *fakeRepo) {
	t.Helper()

	at := func(m time.Month, d int) time.Time { return time.Date(2024, m, d, 9, 0, 0, 0, time.UTC) }
	repo := &fakeRepo{
		rows: []Record{
			{FeedbackID: 1, CourseID: 1, CourseName: "Algorithms", CourseCode: "CS101", Rating: 5, Status: "approved", CreatedAt: at(5, 2)},
			{FeedbackID: 2, CourseID: 1, CourseName: "Algorithms", CourseCode: "CS101", Rating: 4, Status: "approved", CreatedAt: at(6, 1)},
			{FeedbackID: 3, CourseID: 1, CourseName: "Algorithms", CourseCode: "CS101", Rating: 1, Status: "pending", CreatedAt: at(6, 3)},
			{FeedbackID: 4, CourseID: 2, CourseName: "Databases", CourseCode: "CS202", Rating: 3, Status: "approved", CreatedAt: at(6, 4)},
			{FeedbackID: 5, CourseID: 2, CourseName: "Databases", CourseCode: "CS202", Rating: 2, Status: "rejected", CreatedAt: at(6, 5)},
		},
		owners: map[int]int{1: 7, 2: 8, 3: 7, 4: 7, 5: 8},
	}

	svc := NewService(
		repo,
		courseMap{1: {ID: 1, Name: "Algorithms"}, 2: {ID: 2, Name: "Databases"}, 3: {ID: 3, Name: "Compilers"}},
		userMap{7: {ID: 7}, 8: {ID: 8}, 9: {ID: 9}},
		metrics.NewMock(),
	).(*service)
	svc.now = func() time.Time { return fixedNow }
	return svc, repo
}

func TestCourseStatistics(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t.Run("ApprovedOnly", func(t *testing.T) {
		s, err := svc.CourseStatistics(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, s.TotalFeedback)
		assert.Equal(t, 4.5, s.AverageRating)
		assert.Equal(t, 0, s.RatingDistribution[1])
	})

	t.Run("CourseWithoutFeedback", func(t *testing.T) {
		s, err := svc.CourseStatistics(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, 0, s.TotalFeedback)
		assert.Equal(t, 0.0, s.AverageRating)
		assert.Len(t, s.RatingDistribution, 5)
	})

	t.Run("UnknownCourse", func(t *testing.T) {
		_, err := svc.CourseStatistics(ctx, 99)
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})
}

func TestUserFeedbackStatistics(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	s, err := svc.UserFeedbackStatistics(ctx, 7)
	require.NoError(t, err)
	// every status counts for a student's own history
	assert.Equal(t, 3, s.TotalFeedback)
	assert.Equal(t, 3.0, s.AverageRating)

	empty, err := svc.UserFeedbackStatistics(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.TotalFeedback)

	_, err = svc.UserFeedbackStatistics(ctx, 42)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestOverallAndTopCourses(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	o, err := svc.OverallStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, o.TotalFeedback)
	assert.Equal(t, 2, o.TotalCourses)
	assert.Equal(t, 1.5, o.AvgFeedbackPerCourse)
	assert.Equal(t, 4.0, o.AverageRating)

	top, err := svc.TopCourses(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "CS101", top[0].CourseCode)
	assert.Equal(t, 2, top[0].FeedbackCount)

	for _, bad := range []int{0, -1, maxTopCourses + 1} {
		_, err := svc.TopCourses(ctx, bad)
		assert.True(t, errors.Is(err, apperr.ErrValidation), "limit %d", bad)
	}
}

func TestMonthlyTrendsService(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	trends, err := svc.MonthlyTrends(ctx, 1)
	require.NoError(t, err)
	require.Len(t, trends, 1)
	assert.Equal(t, MonthTrend{Month: "2024-06", Count: 2, AverageRating: 3.5}, trends[0])

	last := repo.scopes[len(repo.scopes)-1]
	require.NotNil(t, last.Since)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), *last.Since)

	_, err = svc.MonthlyTrends(ctx, 0)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	_, err = svc.MonthlyTrends(ctx, maxTrendWindowMonths+1)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestDashboard(t *testing.T) {
	svc, repo := newTestService(t)

	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Len(t, repo.scopes, 1)
	assert.Equal(t, 3, d.Overall.TotalFeedback)
	assert.Len(t, d.TopCourses, 2)
	assert.Len(t, d.Trends, 2)
	assert.Equal(t, fixedNow, d.GeneratedAt)
}

func TestSummaryMatchesListingScope(t *testing.T) {
	svc, _ := newTestService(t)

	s, err := svc.Summary(context.Background(), Scope{CourseID: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, s.TotalFeedback)
	assert.Equal(t, 3.33, s.AverageRating)
}

func TestHandler(t *testing.T) {
	svc, _ := newTestService(t)
	h := NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			p := identity.Principal{UserID: 7, Role: identity.RoleAdmin}
			next.ServeHTTP(w, req.WithContext(identity.WithPrincipal(req.Context(), p)))
		})
	})
	h.RegisterRoutes(r)
	h.RegisterAdminRoutes(r)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	t.Run("MyStatistics", func(t *testing.T) {
		rec := get("/users/me/statistics")
		require.Equal(t, http.StatusOK, rec.Code)
		var s Summary
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
		assert.Equal(t, 3, s.TotalFeedback)
	})

	t.Run("TopCoursesDefaultLimit", func(t *testing.T) {
		rec := get("/statistics/top-courses")
		require.Equal(t, http.StatusOK, rec.Code)
		var top []CourseRank
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &top))
		assert.Len(t, top, 2)
	})

	t.Run("BadLimit", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, get("/statistics/top-courses?limit=abc").Code)
		assert.Equal(t, http.StatusBadRequest, get("/statistics/top-courses?limit=500").Code)
	})

	t.Run("SummaryUsesListingFilter", func(t *testing.T) {
		rec := get("/statistics/summary?courseId=1&status=approved")
		require.Equal(t, http.StatusOK, rec.Code)
		var s Summary
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
		assert.Equal(t, 2, s.TotalFeedback)

		assert.Equal(t, http.StatusBadRequest, get("/statistics/summary?rating=9").Code)
	})

	t.Run("UnknownCourse", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, get("/courses/99/statistics").Code)
		assert.Equal(t, http.StatusBadRequest, get("/courses/abc/statistics").Code)
	})
}
