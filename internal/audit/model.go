// Package audit keeps a durable record of feedback lifecycle events
// received from the broker.
package audit

import (
	"time"

	"feedback-service/internal/events"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:audit_events,alias:ae"`

	ID         int       `bun:"id,pk,autoincrement" json:"id"`
	Type       string    `bun:"type,notnull" json:"type"`
	FeedbackID int       `bun:"feedback_id,notnull" json:"feedbackId"`
	StudentID  int       `bun:"student_id" json:"studentId"`
	CourseID   int       `bun:"course_id" json:"courseId"`
	Rating     int       `bun:"rating" json:"rating"`
	Status     string    `bun:"status" json:"status"`
	ActorID    int       `bun:"actor_id" json:"actorId"`
	OccurredAt time.Time `bun:"occurred_at,notnull" json:"occurredAt"`
	ReceivedAt time.Time `bun:"received_at,notnull,default:current_timestamp" json:"receivedAt"`
}

func FromEvent(e events.Event) *Event {
	return &Event{
		Type:       string(e.Type),
		FeedbackID: e.FeedbackID,
		StudentID:  e.StudentID,
		CourseID:   e.CourseID,
		Rating:     e.Rating,
		Status:     e.Status,
		ActorID:    e.ActorID,
		OccurredAt: e.OccurredAt,
	}
}
