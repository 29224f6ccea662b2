package user

import (
	"time"

	"feedback-service/internal/identity"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID             int           `bun:"id,pk,autoincrement" json:"id"`
	Name           string        `bun:"name,notnull" json:"name"`
	Email          string        `bun:"email,unique,notnull" json:"email"`
	Password       string        `bun:"password,notnull" json:"-"` // bcrypt hash
	Role           identity.Role `bun:"role,notnull" json:"role"`
	Phone          string        `bun:"phone" json:"phone,omitempty"`
	DateOfBirth    *time.Time    `bun:"date_of_birth" json:"dateOfBirth,omitempty"`
	Address        string        `bun:"address" json:"address,omitempty"`
	ProfilePicture string        `bun:"profile_picture" json:"profilePicture,omitempty"`
	IsBlocked      bool          `bun:"is_blocked,notnull" json:"isBlocked"`
	LastLogin      *time.Time    `bun:"last_login" json:"lastLogin,omitempty"`
	CreatedAt      time.Time     `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt      time.Time     `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}

// UpdateProfileRequest is the self-service profile edit. Nil fields are left unchanged.
type UpdateProfileRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=100"`
	Phone       *string `json:"phone" validate:"omitempty,e164"`
	DateOfBirth *string `json:"dateOfBirth"`
	Address     *string `json:"address" validate:"omitempty,max=300"`
}

type ListFilter struct {
	Role    identity.Role
	Blocked *bool
	Search  string
	Page    int
	Limit   int
}

type Page struct {
	Users      []User `json:"users"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"totalPages"`
}
