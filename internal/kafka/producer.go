package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"feedback-service/common/metrics"
	"feedback-service/internal/events"

	"github.com/IBM/sarama"
)

// Producer publishes feedback events keyed by feedback id, so every event
// of one feedback lands on the same partition.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewProducer(brokers []string, topic string, m *metrics.Metrics, logger *slog.Logger) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	logger.Info("kafka producer initialized", "brokers", brokers, "topic", topic)

	return newProducer(producer, topic, m, logger), nil
}

func newProducer(producer sarama.SyncProducer, topic string, m *metrics.Metrics, logger *slog.Logger) *Producer {
	return &Producer{
		producer: producer,
		topic:    topic,
		metrics:  m,
		logger:   logger,
	}
}

func (p *Producer) Publish(ctx context.Context, event events.Event) error {
	start := time.Now()

	valueBytes, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to marshal event", "error", err)
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.Key()),
		Value: sarama.ByteEncoder(valueBytes),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(event.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	p.metrics.Messaging.RecordPublish(ctx, p.topic, time.Since(start), err)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to send event to kafka", "error", err, "type", event.Type)
		return err
	}

	p.logger.DebugContext(ctx, "event sent to kafka", "topic", p.topic, "partition", partition, "offset", offset, "key", event.Key())
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
