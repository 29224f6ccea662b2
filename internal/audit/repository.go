package audit

import (
	"context"
	"time"

	"feedback-service/common/metrics"
	"feedback-service/internal/events"

	"github.com/uptrace/bun"
)

const defaultRecentLimit = 100

type Repository interface {
	Create(ctx context.Context, event *Event) error
	Recent(ctx context.Context, limit int) ([]Event, error)
	ByFeedback(ctx context.Context, feedbackID int) ([]Event, error)
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

func (r *repository) Create(ctx context.Context, event *Event) error {
	start := time.Now()
	_, err := r.db.NewInsert().Model(event).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "audit_events", time.Since(start), err)

	return err
}

// Recent returns the newest events first.
func (r *repository) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	start := time.Now()
	items := make([]Event, 0)
	err := r.db.NewSelect().
		Model(&items).
		OrderExpr("ae.received_at DESC, ae.id DESC").
		Limit(limit).
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "audit_events", time.Since(start), err)

	return items, err
}

func (r *repository) ByFeedback(ctx context.Context, feedbackID int) ([]Event, error) {
	start := time.Now()
	items := make([]Event, 0)
	err := r.db.NewSelect().
		Model(&items).
		Where("ae.feedback_id = ?", feedbackID).
		OrderExpr("ae.occurred_at ASC, ae.id ASC").
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "audit_events", time.Since(start), err)

	return items, err
}

// Recorder adapts a Repository to the broker consumers.
type Recorder struct {
	repo Repository
}

func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo}
}

func (r *Recorder) Record(ctx context.Context, e events.Event) error {
	return r.repo.Create(ctx, FromEvent(e))
}
