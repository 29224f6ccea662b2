package feedback_test

import (
	"context"
	"testing"
	"time"

	commonmetrics "feedback-service/common/metrics"
	"feedback-service/internal/apperr"
	"feedback-service/internal/course"
	"feedback-service/internal/feedback"
	"feedback-service/internal/identity"
	"feedback-service/internal/user"
	"feedback-service/testing/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func seedUser(t *testing.T, db *bun.DB, name, email string) *user.User {
	t.Helper()
	u := &user.User{Name: name, Email: email, Password: "x", Role: identity.RoleStudent}
	_, err := db.NewInsert().Model(u).Exec(context.Background())
	require.NoError(t, err)
	return u
}

func seedCourse(t *testing.T, db *bun.DB, name, code string) *course.Course {
	t.Helper()
	c := &course.Course{Name: name, Code: code, Instructor: "Dr. Who", Department: "Science", IsActive: true}
	_, err := db.NewInsert().Model(c).Exec(context.Background())
	require.NoError(t, err)
	return c
}

func TestFeedbackRepository_Shared(t *testing.T) {
	pgContainer := testdb.SetupSharedPostgres(t)
	defer pgContainer.Cleanup(t)

	pgContainer.RunMigrationsWithIndexes(t,
		[]interface{}{(*user.User)(nil), (*course.Course)(nil), (*feedback.Feedback)(nil)},
		feedback.Indexes(),
	)

	ctx := context.Background()
	m := commonmetrics.NewMock()
	repo := feedback.NewRepository(pgContainer.DB, m)
	userRepo := user.NewRepository(pgContainer.DB, m)
	courseRepo := course.NewRepository(pgContainer.DB, m)

	cleanup := func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "feedbacks", "courses", "users")
	}

	t.Run("UniqueStudentCourse", func(t *testing.T) {
		cleanup(t)
		s := seedUser(t, pgContainer.DB, "Alice", "alice@example.com")
		c := seedCourse(t, pgContainer.DB, "Algorithms", "CS201")

		first := &feedback.Feedback{StudentID: s.ID, CourseID: c.ID, Rating: 5, Message: "Great course overall.", Status: feedback.StatusApproved, Tags: []string{"positive"}}
		require.NoError(t, repo.Create(ctx, first))
		assert.NotZero(t, first.ID)

		second := &feedback.Feedback{StudentID: s.ID, CourseID: c.ID, Rating: 1, Message: "Changed my mind entirely.", Status: feedback.StatusApproved}
		err := repo.Create(ctx, second)
		assert.ErrorIs(t, err, apperr.ErrConflict)

		count, err := repo.CountByCourse(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("GetLoadsRelationsAndTags", func(t *testing.T) {
		cleanup(t)
		s := seedUser(t, pgContainer.DB, "Alice", "alice@example.com")
		c := seedCourse(t, pgContainer.DB, "Algorithms", "CS201")
		f := &feedback.Feedback{StudentID: s.ID, CourseID: c.ID, Rating: 3, Message: "Decent but rushed.", Status: feedback.StatusPending, Tags: []string{"pace", "neutral"}}
		require.NoError(t, repo.Create(ctx, f))

		got, err := repo.GetByID(ctx, f.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Student)
		require.NotNil(t, got.Course)
		assert.Equal(t, "Alice", got.Student.Name)
		assert.Equal(t, "CS201", got.Course.Code)
		assert.Equal(t, []string{"pace", "neutral"}, got.Tags)

		_, err = repo.GetByID(ctx, 9999)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("ListFiltersAndSorts", func(t *testing.T) {
		cleanup(t)
		a := seedUser(t, pgContainer.DB, "Alice", "alice@example.com")
		b := seedUser(t, pgContainer.DB, "Bob", "bob@example.com")
		zoo := seedCourse(t, pgContainer.DB, "Zoology", "BIO100")
		art := seedCourse(t, pgContainer.DB, "Art History", "ART100")

		rows := []*feedback.Feedback{
			{StudentID: a.ID, CourseID: zoo.ID, Rating: 5, Message: "Loved the field trips.", Status: feedback.StatusApproved},
			{StudentID: b.ID, CourseID: zoo.ID, Rating: 2, Message: "Too much memorising.", Status: feedback.StatusApproved},
			{StudentID: a.ID, CourseID: art.ID, Rating: 4, Message: "Beautiful slides shown.", Status: feedback.StatusRejected},
		}
		for _, f := range rows {
			require.NoError(t, repo.Create(ctx, f))
		}

		items, total, err := repo.List(ctx, feedback.Filter{SortBy: feedback.SortCourse, SortOrder: "asc", Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, items, 3)
		assert.Equal(t, art.ID, items[0].CourseID)

		items, total, err = repo.List(ctx, feedback.Filter{Status: feedback.StatusApproved, SortBy: feedback.SortRating, SortOrder: "asc", Page: 1, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, items, 1)
		assert.Equal(t, 2, items[0].Rating)

		items, _, err = repo.List(ctx, feedback.Filter{StudentID: a.ID, Rating: 5, Page: 1, Limit: 10})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, zoo.ID, items[0].CourseID)

		tomorrow := time.Now().Add(24 * time.Hour)
		items, _, err = repo.List(ctx, feedback.Filter{StartDate: &tomorrow, Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, items)

		all, err := repo.ListAll(ctx, feedback.Filter{CourseID: zoo.ID})
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("UpdateAndStatus", func(t *testing.T) {
		cleanup(t)
		s := seedUser(t, pgContainer.DB, "Alice", "alice@example.com")
		c := seedCourse(t, pgContainer.DB, "Algorithms", "CS201")
		f := &feedback.Feedback{StudentID: s.ID, CourseID: c.ID, Rating: 5, Message: "Great course overall.", Status: feedback.StatusPending, Tags: []string{"positive"}}
		require.NoError(t, repo.Create(ctx, f))

		f.Rating = 2
		f.Tags = []string{"needs-improvement"}
		require.NoError(t, repo.Update(ctx, f))
		require.NoError(t, repo.SetStatus(ctx, f.ID, feedback.StatusApproved))

		got, err := repo.GetByID(ctx, f.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Rating)
		assert.Equal(t, []string{"needs-improvement"}, got.Tags)
		assert.Equal(t, feedback.StatusApproved, got.Status)

		assert.ErrorIs(t, repo.SetStatus(ctx, 9999, feedback.StatusApproved), apperr.ErrNotFound)
	})

	t.Run("ForeignKeysBackGuardedDeletes", func(t *testing.T) {
		cleanup(t)
		s := seedUser(t, pgContainer.DB, "Alice", "alice@example.com")
		c := seedCourse(t, pgContainer.DB, "Algorithms", "CS201")
		require.NoError(t, repo.Create(ctx, &feedback.Feedback{StudentID: s.ID, CourseID: c.ID, Rating: 4, Message: "Solid material here.", Status: feedback.StatusApproved}))

		assert.ErrorIs(t, courseRepo.Delete(ctx, c.ID), apperr.ErrConflict)
		assert.ErrorIs(t, userRepo.Delete(ctx, s.ID), apperr.ErrConflict)

		n, err := repo.CountByStudent(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}
