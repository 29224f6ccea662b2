package feedback

import (
	"time"

	"feedback-service/internal/course"
	"feedback-service/internal/identity"
	"feedback-service/internal/user"

	"github.com/uptrace/bun"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

type Feedback struct {
	bun.BaseModel `bun:"table:feedbacks,alias:f"`

	ID          int       `bun:"id,pk,autoincrement" json:"id"`
	StudentID   int       `bun:"student_id,notnull,unique:student_course" json:"studentId,omitempty"`
	CourseID    int       `bun:"course_id,notnull,unique:student_course" json:"courseId"`
	Rating      int       `bun:"rating,notnull" json:"rating"`
	Message     string    `bun:"message,notnull" json:"message"`
	IsAnonymous bool      `bun:"is_anonymous,notnull" json:"isAnonymous"`
	Tags        []string  `bun:"tags,array" json:"tags"`
	Status      Status    `bun:"status,notnull" json:"status"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`

	Student *user.User     `bun:"rel:belongs-to,join:student_id=id" json:"student,omitempty"`
	Course  *course.Course `bun:"rel:belongs-to,join:course_id=id" json:"course,omitempty"`
}

// Redact hides the author of anonymous feedback from everyone but the author.
func (f *Feedback) Redact(viewer identity.Principal) *Feedback {
	if !f.IsAnonymous || viewer.UserID == f.StudentID {
		return f
	}
	cp := *f
	cp.StudentID = 0
	cp.Student = nil
	return &cp
}

type CreateRequest struct {
	CourseID    int      `json:"courseId" validate:"required,gt=0"`
	Rating      int      `json:"rating" validate:"required,min=1,max=5"`
	Message     string   `json:"message" validate:"required,min=10,max=1000"`
	IsAnonymous bool     `json:"isAnonymous"`
	Tags        []string `json:"tags" validate:"max=10,dive,min=1,max=30"`
}

// UpdateRequest edits a feedback. Nil fields are left unchanged.
type UpdateRequest struct {
	Rating      *int      `json:"rating" validate:"omitempty,min=1,max=5"`
	Message     *string   `json:"message" validate:"omitempty,min=10,max=1000"`
	IsAnonymous *bool     `json:"isAnonymous"`
	Tags        *[]string `json:"tags" validate:"omitempty,max=10,dive,min=1,max=30"`
}

type ModerateRequest struct {
	Status Status `json:"status" validate:"required,oneof=approved rejected"`
}

type Page struct {
	Feedback   []*Feedback `json:"feedback"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"totalPages"`
}
