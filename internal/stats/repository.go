package stats

import (
	"context"
	"time"

	"feedback-service/common/metrics"

	"github.com/uptrace/bun"
)

// Scope selects the feedback rows fed to the aggregations. Zero values mean "any".
type Scope struct {
	CourseID  int
	StudentID int
	Rating    int
	Status    string
	Since     *time.Time
	Until     *time.Time
}

type Repository interface {
	Records(ctx context.Context, scope Scope) ([]Record, error)
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(db *bun.DB, m *metrics.Metrics) Repository {
	return &repository{
		db:      db,
		metrics: m,
	}
}

func (r *repository) Records(ctx context.Context, scope Scope) ([]Record, error) {
	start := time.Now()

	q := r.db.NewSelect().
		TableExpr("feedbacks AS f").
		Join("JOIN courses AS c ON c.id = f.course_id").
		ColumnExpr("f.id AS feedback_id").
		ColumnExpr("f.course_id").
		ColumnExpr("c.name AS course_name").
		ColumnExpr("c.code AS course_code").
		ColumnExpr("f.rating").
		ColumnExpr("f.status").
		ColumnExpr("f.created_at")

	if scope.CourseID != 0 {
		q = q.Where("f.course_id = ?", scope.CourseID)
	}
	if scope.StudentID != 0 {
		q = q.Where("f.student_id = ?", scope.StudentID)
	}
	if scope.Rating != 0 {
		q = q.Where("f.rating = ?", scope.Rating)
	}
	if scope.Status != "" {
		q = q.Where("f.status = ?", scope.Status)
	}
	if scope.Since != nil {
		q = q.Where("f.created_at >= ?", *scope.Since)
	}
	if scope.Until != nil {
		q = q.Where("f.created_at <= ?", *scope.Until)
	}

	records := make([]Record, 0)
	err := q.OrderExpr("f.id ASC").Scan(ctx, &records)

	r.metrics.Database.RecordQuery(ctx, "select", "feedbacks", time.Since(start), err)

	return records, err
}
