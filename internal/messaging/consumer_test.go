package messaging_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	commonmetrics "feedback-service/common/metrics"
	"feedback-service/internal/audit"
	"feedback-service/internal/events"
	"feedback-service/internal/messaging"
	"feedback-service/testing/testdb"
	"feedback-service/testing/testnats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNATSRoundTrip_Shared(t *testing.T) {
	natsContainer := testnats.SetupSharedNATS(t)
	defer natsContainer.Cleanup(t)

	pgContainer := testdb.SetupSharedPostgres(t)
	defer pgContainer.Cleanup(t)

	pgContainer.RunMigrations(t, (*audit.Event)(nil))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := commonmetrics.NewMock()
	subject := "test.feedback.events"
	repo := audit.NewRepository(pgContainer.DB, m)

	consumer := messaging.NewConsumer(natsContainer.Connect(t), subject, audit.NewRecorder(repo), m, logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = consumer.Start(ctx) }()
	defer func() { _ = consumer.Close() }()

	require.Eventually(t, func() bool { return consumer.HealthCheck() == nil }, 2*time.Second, 20*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	producer := messaging.NewProducer(natsContainer.Connect(t), subject, m, logger)

	t.Run("PublishedEventIsAudited", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "audit_events")

		occurred := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
		err := producer.Publish(context.Background(), events.Event{
			Type:       events.FeedbackCreated,
			FeedbackID: 42,
			StudentID:  7,
			CourseID:   3,
			Rating:     5,
			Status:     "approved",
			ActorID:    7,
			OccurredAt: occurred,
		})
		require.NoError(t, err)
		require.NoError(t, producer.Close())

		var items []audit.Event
		require.Eventually(t, func() bool {
			items, err = repo.ByFeedback(context.Background(), 42)
			return err == nil && len(items) == 1
		}, 3*time.Second, 50*time.Millisecond)

		assert.Equal(t, "feedback.created", items[0].Type)
		assert.Equal(t, 7, items[0].StudentID)
		assert.Equal(t, 5, items[0].Rating)
		assert.True(t, occurred.Equal(items[0].OccurredAt))
		assert.NotZero(t, items[0].ReceivedAt)
	})

	t.Run("HistoryKeepsOrder", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "audit_events")

		base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
		for i, typ := range []events.Type{events.FeedbackCreated, events.FeedbackUpdated, events.FeedbackDeleted} {
			require.NoError(t, producer.Publish(context.Background(), events.Event{
				Type:       typ,
				FeedbackID: 9,
				OccurredAt: base.Add(time.Duration(i) * time.Minute),
			}))
		}
		require.NoError(t, producer.Close())

		var items []audit.Event
		require.Eventually(t, func() bool {
			items, _ = repo.ByFeedback(context.Background(), 9)
			return len(items) == 3
		}, 3*time.Second, 50*time.Millisecond)

		assert.Equal(t, "feedback.created", items[0].Type)
		assert.Equal(t, "feedback.deleted", items[2].Type)

		recent, err := repo.Recent(context.Background(), 2)
		require.NoError(t, err)
		assert.Len(t, recent, 2)
	})

	t.Run("InvalidPayloadIsSkipped", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "audit_events")

		raw := natsContainer.Connect(t)
		require.NoError(t, raw.Publish(subject, []byte("not json")))
		require.NoError(t, raw.Flush())

		time.Sleep(200 * time.Millisecond)

		recent, err := repo.Recent(context.Background(), 10)
		require.NoError(t, err)
		assert.Empty(t, recent)
	})
}
