package user

import (
	"time"

	"github.com/google/uuid"
)

// Role determines what a user is allowed to do. It is fixed at registration:
// admin is granted only through a valid invite token, never by escalation.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

type User struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"` // Never expose password hash in JSON
	ProfileImageURL string     `json:"profileImageUrl"`
	Role            Role       `json:"role"`
	IsVerified      bool       `json:"isVerified"`
	OTPHash         *string    `json:"-"`
	OTPExpiresAt    *time.Time `json:"-"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}
