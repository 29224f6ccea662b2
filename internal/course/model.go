package course

import (
	"time"

	"github.com/uptrace/bun"
)

type Course struct {
	bun.BaseModel `bun:"table:courses,alias:c"`

	ID          int       `bun:"id,pk,autoincrement" json:"id"`
	Name        string    `bun:"name,unique,notnull" json:"name"`
	Code        string    `bun:"code,unique,notnull" json:"code"`
	Description string    `bun:"description" json:"description,omitempty"`
	Instructor  string    `bun:"instructor,notnull" json:"instructor"`
	Department  string    `bun:"department,notnull" json:"department"`
	Credits     int       `bun:"credits,notnull,default:0" json:"credits"`
	IsActive    bool      `bun:"is_active,notnull" json:"isActive"`
	CreatedBy   int       `bun:"created_by,nullzero" json:"createdBy,omitempty"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}

type CreateCourseRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=100"`
	Code        string `json:"code" validate:"required,min=2,max=20,uppercase,alphanum"`
	Description string `json:"description" validate:"max=1000"`
	Instructor  string `json:"instructor" validate:"required,max=100"`
	Department  string `json:"department" validate:"required,max=100"`
	Credits     int    `json:"credits" validate:"min=0,max=12"`
}

// UpdateCourseRequest edits a course. Nil fields are left unchanged.
type UpdateCourseRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=3,max=100"`
	Code        *string `json:"code" validate:"omitempty,min=2,max=20,uppercase,alphanum"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Instructor  *string `json:"instructor" validate:"omitempty,max=100"`
	Department  *string `json:"department" validate:"omitempty,max=100"`
	Credits     *int    `json:"credits" validate:"omitempty,min=0,max=12"`
}

type ListFilter struct {
	Active     *bool
	Department string
	Search     string
	Page       int
	Limit      int
}

type Page struct {
	Courses    []Course `json:"courses"`
	Total      int      `json:"total"`
	Page       int      `json:"page"`
	Limit      int      `json:"limit"`
	TotalPages int      `json:"totalPages"`
}
