package feedback

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"feedback-service/common/metrics"
	"feedback-service/internal/apperr"
	"feedback-service/internal/db"

	"github.com/uptrace/bun"
)

type Repository interface {
	Create(ctx context.Context, f *Feedback) error
	GetByID(ctx context.Context, id int) (*Feedback, error)
	List(ctx context.Context, filter Filter) ([]*Feedback, int, error)
	// ListAll returns every match of filter, ignoring pagination.
	ListAll(ctx context.Context, filter Filter) ([]*Feedback, error)
	Update(ctx context.Context, f *Feedback) error
	SetStatus(ctx context.Context, id int, status Status) error
	Delete(ctx context.Context, id int) error
	CountByStudent(ctx context.Context, studentID int) (int, error)
	CountByCourse(ctx context.Context, courseID int) (int, error)
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

// Indexes lists the secondary indexes the feedback queries rely on.
func Indexes() []db.Index {
	return []db.Index{
		{Name: "idx_feedbacks_course_id", Model: (*Feedback)(nil), Columns: []string{"course_id"}},
		{Name: "idx_feedbacks_status_created_at", Model: (*Feedback)(nil), Columns: []string{"status", "created_at"}},
	}
}

func (r *repository) Create(ctx context.Context, f *Feedback) error {
	start := time.Now()
	_, err := r.db.NewInsert().Model(f).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "feedbacks", time.Since(start), err)

	if err != nil {
		if db.IsUniqueViolation(err) {
			return apperr.Conflict("feedback for course %d already submitted", f.CourseID)
		}
		if db.IsForeignKeyViolation(err) {
			return apperr.NotFound("course %d not found", f.CourseID)
		}
		return err
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Feedback, error) {
	start := time.Now()
	f := new(Feedback)
	err := r.db.NewSelect().
		Model(f).
		Relation("Student").
		Relation("Course").
		Where("f.id = ?", id).
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "feedbacks", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("feedback %d not found", id)
		}
		return nil, err
	}
	return f, nil
}

func (r *repository) List(ctx context.Context, filter Filter) ([]*Feedback, int, error) {
	start := time.Now()
	var items []*Feedback
	total, err := r.listQuery(&items, filter).
		Limit(filter.Limit).
		Offset(filter.Offset()).
		ScanAndCount(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "feedbacks", time.Since(start), err)

	return items, total, err
}

func (r *repository) ListAll(ctx context.Context, filter Filter) ([]*Feedback, error) {
	start := time.Now()
	var items []*Feedback
	err := r.listQuery(&items, filter).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "feedbacks", time.Since(start), err)

	return items, err
}

func (r *repository) listQuery(dest *[]*Feedback, filter Filter) *bun.SelectQuery {
	q := r.db.NewSelect().
		Model(dest).
		Relation("Student").
		Relation("Course")

	if filter.CourseID != 0 {
		q = q.Where("f.course_id = ?", filter.CourseID)
	}
	if filter.StudentID != 0 {
		q = q.Where("f.student_id = ?", filter.StudentID)
	}
	if filter.Rating != 0 {
		q = q.Where("f.rating = ?", filter.Rating)
	}
	if filter.Status != "" {
		q = q.Where("f.status = ?", filter.Status)
	}
	if filter.StartDate != nil {
		q = q.Where("f.created_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		q = q.Where("f.created_at <= ?", *filter.EndDate)
	}

	dir := "DESC"
	if filter.SortOrder == "asc" {
		dir = "ASC"
	}
	switch filter.SortBy {
	case SortRating:
		q = q.OrderExpr("f.rating " + dir)
	case SortCourse:
		q = q.OrderExpr(`"course"."name" ` + dir)
	default:
		q = q.OrderExpr("f.created_at " + dir)
	}
	return q.OrderExpr("f.id " + dir)
}

func (r *repository) Update(ctx context.Context, f *Feedback) error {
	start := time.Now()
	f.UpdatedAt = time.Now()
	result, err := r.db.NewUpdate().
		Model(f).
		Column("rating", "message", "is_anonymous", "tags", "updated_at").
		WherePK().
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "feedbacks", time.Since(start), err)

	return checkAffected(result, err, f.ID)
}

func (r *repository) SetStatus(ctx context.Context, id int, status Status) error {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model((*Feedback)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "feedbacks", time.Since(start), err)

	return checkAffected(result, err, id)
}

func (r *repository) Delete(ctx context.Context, id int) error {
	start := time.Now()
	result, err := r.db.NewDelete().Model(&Feedback{ID: id}).WherePK().Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "delete", "feedbacks", time.Since(start), err)

	return checkAffected(result, err, id)
}

func (r *repository) CountByStudent(ctx context.Context, studentID int) (int, error) {
	start := time.Now()
	count, err := r.db.NewSelect().
		Model((*Feedback)(nil)).
		Where("student_id = ?", studentID).
		Count(ctx)

	r.metrics.Database.RecordQuery(ctx, "count", "feedbacks", time.Since(start), err)

	return count, err
}

func (r *repository) CountByCourse(ctx context.Context, courseID int) (int, error) {
	start := time.Now()
	count, err := r.db.NewSelect().
		Model((*Feedback)(nil)).
		Where("course_id = ?", courseID).
		Count(ctx)

	r.metrics.Database.RecordQuery(ctx, "count", "feedbacks", time.Since(start), err)

	return count, err
}

func checkAffected(result sql.Result, err error, id int) error {
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return apperr.NotFound("feedback %d not found", id)
	}
	return nil
}
