package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"feedback-service/common/metrics"
	"feedback-service/internal/events"

	"github.com/nats-io/nats.go"
)

// Recorder persists a received event.
type Recorder interface {
	Record(ctx context.Context, event events.Event) error
}

type Consumer struct {
	conn     *nats.Conn
	sub      *nats.Subscription
	subject  string
	recorder Recorder
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewConsumer(conn *nats.Conn, subject string, recorder Recorder, m *metrics.Metrics, logger *slog.Logger) *Consumer {
	return &Consumer{
		conn:     conn,
		subject:  subject,
		recorder: recorder,
		metrics:  m,
		logger:   logger,
	}
}

// Start subscribes and blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	sub, err := c.conn.Subscribe(c.subject, func(msg *nats.Msg) {
		c.handle(ctx, msg)
	})
	if err != nil {
		return err
	}

	c.sub = sub
	c.logger.Info("NATS consumer started", "subject", c.subject)

	<-ctx.Done()
	return ctx.Err()
}

func (c *Consumer) handle(ctx context.Context, msg *nats.Msg) {
	start := time.Now()

	var event events.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		c.logger.ErrorContext(ctx, "failed to unmarshal event", "error", err, "subject", msg.Subject)
		c.metrics.Messaging.RecordConsume(ctx, c.subject, time.Since(start), err)
		return
	}

	// shutdown cancels ctx; an in-flight write still completes
	err := c.recorder.Record(context.WithoutCancel(ctx), event)
	c.metrics.Messaging.RecordConsume(ctx, c.subject, time.Since(start), err)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to record event", "error", err, "type", event.Type, "feedback_id", event.FeedbackID)
		return
	}

	c.logger.DebugContext(ctx, "event recorded", "type", event.Type, "feedback_id", event.FeedbackID)
}

func (c *Consumer) Close() error {
	if c.sub != nil {
		return c.sub.Unsubscribe()
	}
	return nil
}

// HealthCheck verifies the NATS connection is usable.
func (c *Consumer) HealthCheck() error {
	if c.conn == nil {
		return nats.ErrConnectionClosed
	}
	if !c.conn.IsConnected() {
		return nats.ErrDisconnected
	}
	return nil
}
