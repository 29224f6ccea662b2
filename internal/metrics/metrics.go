package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	feedbackSubmitted metric.Int64Counter
	feedbackChanged   metric.Int64Counter
	feedbackRejected  metric.Int64Counter
	statisticsViewed  metric.Int64Counter
	exportsGenerated  metric.Int64Counter
	exportedRows      metric.Int64Counter
	usersRegistered   metric.Int64Counter
	loginsFailed      metric.Int64Counter
}

func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.feedbackSubmitted, err = meter.Int64Counter(
		"feedback_service.feedback.submitted",
		metric.WithDescription("Total number of feedback records submitted"),
		metric.WithUnit("{feedback}"),
	)
	if err != nil {
		return nil, err
	}

	m.feedbackChanged, err = meter.Int64Counter(
		"feedback_service.feedback.changed",
		metric.WithDescription("Feedback updates, deletions and moderation decisions"),
		metric.WithUnit("{feedback}"),
	)
	if err != nil {
		return nil, err
	}

	m.feedbackRejected, err = meter.Int64Counter(
		"feedback_service.feedback.rejected_submissions",
		metric.WithDescription("Submissions refused by lifecycle rules"),
		metric.WithUnit("{feedback}"),
	)
	if err != nil {
		return nil, err
	}

	m.statisticsViewed, err = meter.Int64Counter(
		"feedback_service.statistics.viewed",
		metric.WithDescription("Statistics queries served"),
		metric.WithUnit("{view}"),
	)
	if err != nil {
		return nil, err
	}

	m.exportsGenerated, err = meter.Int64Counter(
		"feedback_service.exports.generated",
		metric.WithDescription("CSV exports generated"),
		metric.WithUnit("{export}"),
	)
	if err != nil {
		return nil, err
	}

	m.exportedRows, err = meter.Int64Counter(
		"feedback_service.exports.rows",
		metric.WithDescription("Rows written to CSV exports"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, err
	}

	m.usersRegistered, err = meter.Int64Counter(
		"feedback_service.users.registered",
		metric.WithDescription("Total number of users registered"),
		metric.WithUnit("{user}"),
	)
	if err != nil {
		return nil, err
	}

	m.loginsFailed, err = meter.Int64Counter(
		"feedback_service.logins.failed",
		metric.WithDescription("Failed login attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) RecordFeedbackSubmitted(ctx context.Context, rating int) {
	if m != nil && m.feedbackSubmitted != nil {
		m.feedbackSubmitted.Add(ctx, 1, metric.WithAttributes(attribute.Int("rating", rating)))
	}
}

func (m *Metrics) RecordFeedbackChanged(ctx context.Context, action string) {
	if m != nil && m.feedbackChanged != nil {
		m.feedbackChanged.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
	}
}

func (m *Metrics) RecordSubmissionRejected(ctx context.Context, reason string) {
	if m != nil && m.feedbackRejected != nil {
		m.feedbackRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
}

func (m *Metrics) RecordStatisticsViewed(ctx context.Context, view string) {
	if m != nil && m.statisticsViewed != nil {
		m.statisticsViewed.Add(ctx, 1, metric.WithAttributes(attribute.String("view", view)))
	}
}

func (m *Metrics) RecordExport(ctx context.Context, rows int) {
	if m != nil && m.exportsGenerated != nil {
		m.exportsGenerated.Add(ctx, 1)
		m.exportedRows.Add(ctx, int64(rows))
	}
}

func (m *Metrics) RecordUserRegistration(ctx context.Context) {
	if m != nil && m.usersRegistered != nil {
		m.usersRegistered.Add(ctx, 1)
	}
}

func (m *Metrics) RecordLoginFailed(ctx context.Context) {
	if m != nil && m.loginsFailed != nil {
		m.loginsFailed.Add(ctx, 1)
	}
}

// NewMock creates a no-op Metrics instance for testing
// The returned Metrics will safely ignore all Record* calls
func NewMock() *Metrics {
	return &Metrics{}
}
