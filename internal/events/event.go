// Package events defines the feedback lifecycle events published to the broker.
package events

import (
	"context"
	"strconv"
	"time"
)

type Type string

const (
	FeedbackCreated   Type = "feedback.created"
	FeedbackUpdated   Type = "feedback.updated"
	FeedbackDeleted   Type = "feedback.deleted"
	FeedbackModerated Type = "feedback.moderated"
)

type Event struct {
	Type       Type      `json:"type"`
	FeedbackID int       `json:"feedbackId"`
	StudentID  int       `json:"studentId"`
	CourseID   int       `json:"courseId"`
	Rating     int       `json:"rating"`
	Status     string    `json:"status"`
	ActorID    int       `json:"actorId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Key partitions events by feedback so one record's history stays ordered.
func (e Event) Key() string {
	return strconv.Itoa(e.FeedbackID)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards events. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
