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

// Connect opens a NATS connection that keeps reconnecting in the background.
func Connect(url string, logger *slog.Logger) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("feedback-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
}

// Producer publishes feedback events to a NATS subject.
type Producer struct {
	conn    *nats.Conn
	subject string
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewProducer(conn *nats.Conn, subject string, m *metrics.Metrics, logger *slog.Logger) *Producer {
	logger.Info("NATS producer initialized", "url", conn.ConnectedUrl(), "subject", subject)

	return &Producer{
		conn:    conn,
		subject: subject,
		metrics: m,
		logger:  logger,
	}
}

func (p *Producer) Publish(ctx context.Context, event events.Event) error {
	start := time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to marshal event", "error", err)
		return err
	}

	msg := &nats.Msg{
		Subject: p.subject,
		Data:    data,
		Header:  nats.Header{},
	}
	msg.Header.Set("Event-Type", string(event.Type))
	msg.Header.Set("Event-Key", event.Key())

	err = p.conn.PublishMsg(msg)
	p.metrics.Messaging.RecordPublish(ctx, p.subject, time.Since(start), err)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to publish event to NATS", "error", err, "type", event.Type)
		return err
	}

	p.logger.DebugContext(ctx, "event published to NATS", "subject", p.subject, "type", event.Type, "feedback_id", event.FeedbackID)
	return nil
}

// Close flushes pending messages. The connection is owned by the caller.
func (p *Producer) Close() error {
	return p.conn.Flush()
}
