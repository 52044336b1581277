package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/taskhubapp/taskhub-api/internal/user"
)

// TokenService defines the interface for session token creation and validation.
// The production implementation is PasetoService (PASETO v4.local).
type TokenService interface {
	CreateToken(userID uuid.UUID, duration time.Duration) (string, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}

// UserRepository defines the credential store operations the service needs
type UserRepository interface {
	Create(ctx context.Context, u *user.User) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	MarkVerified(ctx context.Context, id uuid.UUID) error
	SetOTP(ctx context.Context, id uuid.UUID, otpHash string, expiresAt time.Time) error
	Update(ctx context.Context, u *user.User) error
}

// EmailService defines the interface for outbound mail
type EmailService interface {
	SendOTPEmail(ctx context.Context, toEmail, code string) error
}
