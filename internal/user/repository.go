package user

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
	Create(ctx context.Context, user *User) (*User, error)
	GetByID(ctx context.Context, id int) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, filter ListFilter) ([]User, int, error)
	UpdateProfile(ctx context.Context, user *User) error
	SetBlocked(ctx context.Context, id int, blocked bool) error
	TouchLastLogin(ctx context.Context, id int, at time.Time) error
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

func (r *repository) Create(ctx context.Context, user *User) (*User, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(user).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "users", time.Since(start), err)

	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.Conflict("email already exists")
		}
		return nil, err
	}
	return user, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*User, error) {
	start := time.Now()
	user := new(User)
	err := r.db.NewSelect().Model(user).Where("u.id = ?", id).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "users", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("user %d not found", id)
		}
		return nil, err
	}
	return user, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	start := time.Now()
	user := new(User)
	err := r.db.NewSelect().
		Model(user).
		Where("lower(u.email) = lower(?)", email).
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "users", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return user, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]User, int, error) {
	start := time.Now()
	var users []User
	q := r.db.NewSelect().Model(&users)

	if filter.Role != "" {
		q = q.Where("u.role = ?", filter.Role)
	}
	if filter.Blocked != nil {
		q = q.Where("u.is_blocked = ?", *filter.Blocked)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("u.name ILIKE ?", pattern).WhereOr("u.email ILIKE ?", pattern)
		})
	}

	total, err := q.
		Order("u.created_at DESC", "u.id DESC").
		Limit(filter.Limit).
		Offset((filter.Page - 1) * filter.Limit).
		ScanAndCount(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "users", time.Since(start), err)

	return users, total, err
}

func (r *repository) UpdateProfile(ctx context.Context, user *User) error {
	start := time.Now()
	user.UpdatedAt = time.Now()
	result, err := r.db.NewUpdate().
		Model(user).
		Column("name", "phone", "date_of_birth", "address", "profile_picture", "updated_at").
		WherePK().
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "users", time.Since(start), err)

	return checkAffected(result, err, user.ID)
}

func (r *repository) SetBlocked(ctx context.Context, id int, blocked bool) error {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model((*User)(nil)).
		Set("is_blocked = ?", blocked).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "users", time.Since(start), err)

	return checkAffected(result, err, id)
}

func (r *repository) TouchLastLogin(ctx context.Context, id int, at time.Time) error {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model((*User)(nil)).
		Set("last_login = ?", at).
		Where("id = ?", id).
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "users", time.Since(start), err)

	return checkAffected(result, err, id)
}

func (r *repository) Delete(ctx context.Context, id int) error {
	start := time.Now()
	result, err := r.db.NewDelete().Model(&User{ID: id}).WherePK().Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "delete", "users", time.Since(start), err)

	if err != nil && db.IsForeignKeyViolation(err) {
		return apperr.Conflict("user %d still has feedback", id)
	}
	return checkAffected(result, err, id)
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
		return apperr.NotFound("user %d not found", id)
	}
	return nil
}
