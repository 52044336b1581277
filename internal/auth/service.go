package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/taskhubapp/taskhub-api/internal/logging"
	"github.com/taskhubapp/taskhub-api/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("please verify your email before logging in")
	ErrAlreadyVerified    = errors.New("user already verified")
	ErrInvalidOTP         = errors.New("invalid OTP")
	ErrOTPExpired         = errors.New("OTP expired")
	ErrIncorrectPassword  = errors.New("current password is incorrect")
	ErrDeliveryFailed     = errors.New("failed to send OTP email")
	ErrNameRequired       = errors.New("name is required")
	ErrEmailRequired      = errors.New("email is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrInvalidEmailFormat = errors.New("invalid email format")
)

// Argon2id parameters - tuned for security vs performance balance
// Time: 3, Memory: 64MB, Threads: 4, KeyLen: 32 bytes
const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

// Placeholder avatar for accounts registered without an image
const defaultProfileImageURL = "https://res.cloudinary.com/taskhub/image/upload/w_200,h_200,c_fill,r_max/default-avatar.webp"

// RegisterInput carries the registration request fields
type RegisterInput struct {
	Name             string
	Email            string
	Password         string
	ProfileImageURL  string
	AdminInviteToken string
}

// UpdateProfileInput carries the optional profile changes; empty fields are
// left unchanged. A password change needs both CurrentPassword and NewPassword.
type UpdateProfileInput struct {
	Name            string
	Email           string
	ProfileImageURL string
	CurrentPassword string
	NewPassword     string
}

// AuthResult is a freshly minted session token plus the identity it belongs to
type AuthResult struct {
	Token string
	User  *user.User
}

// Service handles authentication business logic
type Service struct {
	userRepo         UserRepository
	tokenService     TokenService
	emailService     EmailService
	logger           *logging.Logger
	tokenDuration    time.Duration
	otpTTL           time.Duration
	adminInviteToken string
}

func NewService(
	userRepo UserRepository,
	tokenService TokenService,
	emailService EmailService,
	logger *logging.Logger,
	tokenDuration time.Duration,
	otpTTL time.Duration,
	adminInviteToken string,
) *Service {
	return &Service{
		userRepo:         userRepo,
		tokenService:     tokenService,
		emailService:     emailService,
		logger:           logger,
		tokenDuration:    tokenDuration,
		otpTTL:           otpTTL,
		adminInviteToken: adminInviteToken,
	}
}

// Register creates an unverified account with a fresh OTP and mails the code.
// No session is issued; the user must verify first. If the mail cannot be sent
// the account still exists in pending state and resend-otp is the recovery path.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*user.User, error) {
	if in.Name == "" {
		return nil, ErrNameRequired
	}
	if in.Email == "" {
		return nil, ErrEmailRequired
	}
	if len(in.Email) > 254 {
		return nil, ErrInvalidEmailFormat
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, ErrInvalidEmailFormat
	}
	if in.Password == "" {
		return nil, ErrPasswordRequired
	}
	if len(in.Password) < 8 {
		return nil, ErrPasswordTooShort
	}

	role := user.RoleMember
	if s.isAdminInvite(in.AdminInviteToken) {
		role = user.RoleAdmin
	}

	passwordHash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	code, err := generateOTP()
	if err != nil {
		return nil, fmt.Errorf("failed to generate OTP: %w", err)
	}
	otpHash := hashOTP(code)
	otpExpiresAt := time.Now().Add(s.otpTTL)

	imageURL := in.ProfileImageURL
	if imageURL == "" {
		imageURL = defaultProfileImageURL
	}

	newUser, err := s.userRepo.Create(ctx, &user.User{
		Name:            in.Name,
		Email:           in.Email,
		PasswordHash:    passwordHash,
		ProfileImageURL: imageURL,
		Role:            role,
		OTPHash:         &otpHash,
		OTPExpiresAt:    &otpExpiresAt,
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, user.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Delivery is awaited before responding. On failure the account is left
	// pending rather than rolled back; resend-otp can recover it.
	if err := s.emailService.SendOTPEmail(ctx, in.Email, code); err != nil {
		s.logger.Warn("failed to send OTP email", "email", in.Email, "error", err)
		return nil, fmt.Errorf("%w: %s", ErrDeliveryFailed, err)
	}

	return newUser, nil
}

// VerifyOTP confirms the code sent to an address, marks the account verified
// and issues the first session token. Check order: existence, already
// verified, code match, expiry.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (*AuthResult, error) {
	existingUser, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if existingUser.IsVerified {
		return nil, ErrAlreadyVerified
	}
	if existingUser.OTPHash == nil || !verifyOTPCode(*existingUser.OTPHash, code) {
		return nil, ErrInvalidOTP
	}
	if existingUser.OTPExpiresAt == nil || time.Now().After(*existingUser.OTPExpiresAt) {
		return nil, ErrOTPExpired
	}

	if err := s.userRepo.MarkVerified(ctx, existingUser.ID); err != nil {
		return nil, fmt.Errorf("failed to mark user as verified: %w", err)
	}

	existingUser.IsVerified = true
	existingUser.OTPHash = nil
	existingUser.OTPExpiresAt = nil

	token, err := s.tokenService.CreateToken(existingUser.ID, s.tokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create session token: %w", err)
	}

	return &AuthResult{Token: token, User: existingUser}, nil
}

// ResendOTP replaces the pending code unconditionally and mails the new one.
// After a resend the previous code no longer verifies.
func (s *Service) ResendOTP(ctx context.Context, email string) error {
	existingUser, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.ErrNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if existingUser.IsVerified {
		return ErrAlreadyVerified
	}

	code, err := generateOTP()
	if err != nil {
		return fmt.Errorf("failed to generate OTP: %w", err)
	}

	if err := s.userRepo.SetOTP(ctx, existingUser.ID, hashOTP(code), time.Now().Add(s.otpTTL)); err != nil {
		return fmt.Errorf("failed to store new OTP: %w", err)
	}

	if err := s.emailService.SendOTPEmail(ctx, email, code); err != nil {
		s.logger.Warn("failed to resend OTP email", "email", email, "error", err)
		return fmt.Errorf("%w: %s", ErrDeliveryFailed, err)
	}

	return nil
}

// Login authenticates a verified user and returns a session token.
// Unknown email and wrong password collapse into one error; an unverified
// account is reported distinctly.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	existingUser, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !existingUser.IsVerified {
		return nil, ErrEmailNotVerified
	}

	if !s.verifyPassword(existingUser.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokenService.CreateToken(existingUser.ID, s.tokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create session token: %w", err)
	}

	return &AuthResult{Token: token, User: existingUser}, nil
}

// GetProfile returns the account behind an authenticated identity
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	existingUser, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return existingUser, nil
}

// UpdateProfile applies the non-empty fields, optionally rotates the password
// (after checking the current one) and re-issues a session token
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*AuthResult, error) {
	existingUser, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if in.Name != "" {
		existingUser.Name = in.Name
	}
	if in.Email != "" {
		if len(in.Email) > 254 {
			return nil, ErrInvalidEmailFormat
		}
		if _, err := mail.ParseAddress(in.Email); err != nil {
			return nil, ErrInvalidEmailFormat
		}
		existingUser.Email = in.Email
	}
	if in.ProfileImageURL != "" {
		existingUser.ProfileImageURL = in.ProfileImageURL
	}

	if in.CurrentPassword != "" && in.NewPassword != "" {
		if !s.verifyPassword(existingUser.PasswordHash, in.CurrentPassword) {
			return nil, ErrIncorrectPassword
		}
		if len(in.NewPassword) < 8 {
			return nil, ErrPasswordTooShort
		}

		newHash, err := s.hashPassword(in.NewPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		existingUser.PasswordHash = newHash
	}

	if err := s.userRepo.Update(ctx, existingUser); err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, user.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	// Tokens are stateless, so rotation only refreshes expiry; previously
	// issued tokens stay valid until they expire on their own.
	token, err := s.tokenService.CreateToken(existingUser.ID, s.tokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create session token: %w", err)
	}

	return &AuthResult{Token: token, User: existingUser}, nil
}

// isAdminInvite checks the invite token against the configured secret.
// An empty configured secret disables admin registration.
func (s *Service) isAdminInvite(inviteToken string) bool {
	if s.adminInviteToken == "" || inviteToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(inviteToken), []byte(s.adminInviteToken)) == 1
}

// hashPassword creates an argon2id hash of the password
func (s *Service) hashPassword(password string) (string, error) {
	// Generate random salt
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	// Hash password with argon2id
	hash := argon2.IDKey(
		[]byte(password),
		salt,
		argon2Time,
		argon2Memory,
		argon2Threads,
		argon2KeyLen,
	)

	// Encode as: $argon2id$v=19$m=65536,t=3,p=4$salt$hash
	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedHash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		encodedSalt,
		encodedHash,
	), nil
}

// verifyPassword checks if a password matches the stored hash
func (s *Service) verifyPassword(encodedHash, password string) bool {
	// Parse the encoded hash
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false
	}

	// Parse parameters
	var version int
	var memory, time uint32
	var threads uint8
	_, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads)
	if err != nil {
		return false
	}
	_, err = fmt.Sscanf(parts[2], "v=%d", &version)
	if err != nil {
		return false
	}

	// Decode salt and hash
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	decodedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	// Hash the input password with the same parameters
	inputHash := argon2.IDKey(
		[]byte(password),
		salt,
		time,
		memory,
		threads,
		uint32(len(decodedHash)),
	)

	// Compare hashes using constant-time comparison
	return subtle.ConstantTimeCompare(decodedHash, inputHash) == 1
}
