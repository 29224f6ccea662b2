package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"feedback-service/common/metrics"
	"feedback-service/internal/events"

	"github.com/IBM/sarama"
)

// Recorder persists a received event.
type Recorder interface {
	Record(ctx context.Context, event events.Event) error
}

type Consumer struct {
	consumer sarama.ConsumerGroup
	topic    string
	handler  *ConsumerGroupHandler
	logger   *slog.Logger
}

func NewConsumer(brokers []string, topic, groupID string, recorder Recorder, m *metrics.Metrics, logger *slog.Logger) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_8_0_0
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest

	consumerGroup, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		consumer: consumerGroup,
		topic:    topic,
		handler: &ConsumerGroupHandler{
			Recorder: recorder,
			Metrics:  m,
			Logger:   logger,
		},
		logger: logger,
	}, nil
}

// Start consumes until ctx is cancelled, rejoining the group after each rebalance.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("kafka consumer started", "topic", c.topic)

	for {
		if err := c.consumer.Consume(ctx, []string{c.topic}, c.handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.logger.Error("error consuming events", "error", err)
			return err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.consumer.Close()
}

// ConsumerGroupHandler implements sarama.ConsumerGroupHandler.
type ConsumerGroupHandler struct {
	Recorder Recorder
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

func (h *ConsumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *ConsumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim marks every message, including ones that fail to decode or
// persist, so a poison message is not redelivered forever.
func (h *ConsumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := session.Context()

	for msg := range claim.Messages() {
		start := time.Now()

		var event events.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			h.Logger.Error("failed to unmarshal event", "error", err, "partition", msg.Partition, "offset", msg.Offset)
			h.Metrics.Messaging.RecordConsume(ctx, msg.Topic, time.Since(start), err)
			session.MarkMessage(msg, "")
			continue
		}

		err := h.Recorder.Record(ctx, event)
		h.Metrics.Messaging.RecordConsume(ctx, msg.Topic, time.Since(start), err)
		if err != nil {
			h.Logger.Error("failed to record event", "error", err, "type", event.Type, "feedback_id", event.FeedbackID)
			session.MarkMessage(msg, "")
			continue
		}

		h.Logger.Debug("event recorded",
			"type", event.Type,
			"feedback_id", event.FeedbackID,
			"partition", msg.Partition,
			"offset", msg.Offset,
		)
		session.MarkMessage(msg, "")
	}

	return nil
}
