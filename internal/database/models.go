package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the database model for an account.
// OTPHash and OTPExpiresAt are set together while verification is pending and
// cleared together once the account is verified.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID              uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Name            string     `bun:"name,notnull"`
	Email           string     `bun:"email,notnull,unique"`
	PasswordHash    string     `bun:"password_hash,notnull"`
	ProfileImageURL string     `bun:"profile_image_url,notnull"`
	Role            string     `bun:"role,notnull,default:'member'"`
	IsVerified      bool       `bun:"is_verified,notnull,default:false"`
	OTPHash         *string    `bun:"otp_hash"`
	OTPExpiresAt    *time.Time `bun:"otp_expires_at"`
	CreatedAt       time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt       time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
