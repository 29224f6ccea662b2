package course

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"feedback-service/common/metrics"
	"feedback-service/internal/apperr"
	"feedback-service/internal/db"

	"github.com/uptrace/bun"
)

type Repository interface {
	Create(ctx context.Context, course *Course) error
	GetByID(ctx context.Context, id int) (*Course, error)
	List(ctx context.Context, filter ListFilter) ([]Course, int, error)
	Update(ctx context.Context, course *Course) error
	SetActive(ctx context.Context, id int, active bool) error
	Delete(ctx context.Context, id int) error
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

func (r *repository) Create(ctx context.Context, course *Course) error {
	start := time.Now()
	_, err := r.db.NewInsert().Model(course).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "courses", time.Since(start), err)

	return translateUnique(err)
}

func (r *repository) GetByID(ctx context.Context, id int) (*Course, error) {
	start := time.Now()
	course := new(Course)
	err := r.db.NewSelect().Model(course).Where("c.id = ?", id).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "courses", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("course %d not found", id)
		}
		return nil, err
	}
	return course, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Course, int, error) {
	start := time.Now()
	var courses []Course
	q := r.db.NewSelect().Model(&courses)

	if filter.Active != nil {
		q = q.Where("c.is_active = ?", *filter.Active)
	}
	if filter.Department != "" {
		q = q.Where("c.department = ?", filter.Department)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("c.name ILIKE ?", pattern).
				WhereOr("c.code ILIKE ?", pattern).
				WhereOr("c.instructor ILIKE ?", pattern)
		})
	}

	total, err := q.
		Order("c.code ASC").
		Limit(filter.Limit).
		Offset((filter.Page - 1) * filter.Limit).
		ScanAndCount(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "courses", time.Since(start), err)

	return courses, total, err
}

func (r *repository) Update(ctx context.Context, course *Course) error {
	start := time.Now()
	course.UpdatedAt = time.Now()
	result, err := r.db.NewUpdate().
		Model(course).
		Column("name", "code", "description", "instructor", "department", "credits", "updated_at").
		WherePK().
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "courses", time.Since(start), err)

	if err != nil {
		return translateUnique(err)
	}
	return checkAffected(result, course.ID)
}

func (r *repository) SetActive(ctx context.Context, id int, active bool) error {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model((*Course)(nil)).
		Set("is_active = ?", active).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "courses", time.Since(start), err)

	if err != nil {
		return err
	}
	return checkAffected(result, id)
}

func (r *repository) Delete(ctx context.Context, id int) error {
	start := time.Now()
	result, err := r.db.NewDelete().Model(&Course{ID: id}).WherePK().Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "delete", "courses", time.Since(start), err)

	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return apperr.Conflict("course %d still has feedback", id)
		}
		return err
	}
	return checkAffected(result, id)
}

func translateUnique(err error) error {
	if err == nil || !db.IsUniqueViolation(err) {
		return err
	}
	if strings.Contains(db.ConstraintName(err), "code") {
		return apperr.Conflict("course code already exists")
	}
	return apperr.Conflict("course name already exists")
}

func checkAffected(result sql.Result, id int) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return apperr.NotFound("course %d not found", id)
	}
	return nil
}
