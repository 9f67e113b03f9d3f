package user

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrResetTokenInvalid  = errors.New("reset token is invalid or expired")
	ErrCannotDeleteSelf   = errors.New("cannot delete own account")
	ErrNoProfileImage     = errors.New("profile image not set")
)

const (
	minPasswordLen = 6
	resetTokenTTL  = time.Hour
)

// Notifier hands off an email for best-effort background delivery.
type Notifier interface {
	Enqueue(to, subject, body string)
}

// AdminInput is the admin-managed slice of a user record. Password left empty
// on update keeps the stored hash.
type AdminInput struct {
	Name     string
	Email    string
	Password string
	Role     Role
	IsActive bool
}

// ProfileInput is the self-service slice of an account. Email and role stay
// out of reach here; admins manage those through AdminInput.
type ProfileInput struct {
	Name    string
	Phone   string
	Address string
	City    string
	State   string
	ZipCode string
}

type Service interface {
	Register(ctx context.Context, name, email, password, phone string) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, input ProfileInput) (*User, error)
	UpdateProfileImage(ctx context.Context, id uuid.UUID, data []byte, mimeType string) error
	GetProfileImage(ctx context.Context, id uuid.UUID) ([]byte, string, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error

	ListUsers(ctx context.Context) ([]User, error)
	CreateUser(ctx context.Context, input AdminInput) (*User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, input AdminInput) (*User, error)
	ToggleActive(ctx context.Context, id uuid.UUID) (*User, error)
	DeleteUser(ctx context.Context, id, actorID uuid.UUID) error
}

type service struct {
	repo     Repository
	notifier Notifier
	baseURL  string
}

// NewService builds the user service. notifier may be nil; welcome and reset
// emails are then skipped.
func NewService(repo Repository, notifier Notifier, baseURL string) Service {
	return &service{repo: repo, notifier: notifier, baseURL: baseURL}
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("service: failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (s *service) Register(ctx context.Context, name, email, password, phone string) (*User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" || email == "" {
		return nil, fmt.Errorf("service: name and email are required")
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
		Phone:        phone,
		IsActive:     true,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, ErrEmailExists
		}
		log.Error().Err(err).Msg("service: failed to create user")
		return nil, fmt.Errorf("service: failed to create user: %w", err)
	}

	log.Info().Stringer("user_id", u.ID).Str("email", u.Email).Msg("service: user registered")

	if s.notifier != nil {
		s.notifier.Enqueue(u.Email, "Welcome!",
			fmt.Sprintf("Hello %s,\n\nYour account was created successfully.\nVisit us at %s", u.Name, s.baseURL))
	}

	return u, nil
}

func (s *service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("service: failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}

	return u, nil
}

func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, input ProfileInput) (*User, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("service: name is required")
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	u.Name = name
	u.Phone = input.Phone
	u.Address = input.Address
	u.City = input.City
	u.State = input.State
	u.ZipCode = input.ZipCode

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("service: failed to update profile for %s: %w", id, err)
	}

	log.Info().Stringer("user_id", u.ID).Msg("service: profile updated")
	return u, nil
}

func (s *service) UpdateProfileImage(ctx context.Context, id uuid.UUID, data []byte, mimeType string) error {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	u.ProfileImage = data
	u.ProfileImageType = mimeType

	if err := s.repo.Update(ctx, u); err != nil {
		return fmt.Errorf("service: failed to update profile image for %s: %w", id, err)
	}
	return nil
}

func (s *service) GetProfileImage(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if len(u.ProfileImage) == 0 {
		return nil, "", ErrNoProfileImage
	}
	return u.ProfileImage, u.ProfileImageType, nil
}

// RequestPasswordReset issues a single-use, time-limited token. A missing
// email is reported as success so the endpoint cannot be used to probe for
// accounts.
func (s *service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Info().Str("email", email).Msg("service: password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("service: failed to look up user: %w", err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("service: failed to generate reset token: %w", err)
	}
	token := hex.EncodeToString(raw)
	expires := time.Now().UTC().Add(resetTokenTTL)

	u.ResetToken = token
	u.ResetTokenExpires = &expires

	if err := s.repo.Update(ctx, u); err != nil {
		return fmt.Errorf("service: failed to store reset token: %w", err)
	}

	if s.notifier != nil {
		s.notifier.Enqueue(u.Email, "Password reset",
			fmt.Sprintf("Hello %s,\n\nReset your password here: %s/auth/password-reset/confirm?token=%s\nThe link expires in one hour.", u.Name, s.baseURL, token))
	}

	log.Info().Stringer("user_id", u.ID).Msg("service: password reset token issued")
	return nil
}

func (s *service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrResetTokenInvalid
	}

	u, err := s.repo.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("service: failed to look up reset token: %w", err)
	}
	if u.ResetTokenExpires == nil || time.Now().UTC().After(*u.ResetTokenExpires) {
		return ErrResetTokenInvalid
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	// The token is consumed regardless of later use: single-use.
	u.PasswordHash = hash
	u.ResetToken = ""
	u.ResetTokenExpires = nil

	if err := s.repo.Update(ctx, u); err != nil {
		return fmt.Errorf("service: failed to update password: %w", err)
	}

	log.Info().Stringer("user_id", u.ID).Msg("service: password reset")
	return nil
}

func (s *service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

func (s *service) CreateUser(ctx context.Context, input AdminInput) (*User, error) {
	role := input.Role
	if role == "" {
		role = RoleUser
	}
	if !role.Valid() {
		return nil, fmt.Errorf("service: invalid role %q", input.Role)
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:         input.Name,
		Email:        strings.TrimSpace(strings.ToLower(input.Email)),
		PasswordHash: hash,
		Role:         role,
		IsActive:     input.IsActive,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("service: failed to create user: %w", err)
	}

	return u, nil
}

func (s *service) UpdateUser(ctx context.Context, id uuid.UUID, input AdminInput) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Role != "" {
		if !input.Role.Valid() {
			return nil, fmt.Errorf("service: invalid role %q", input.Role)
		}
		u.Role = input.Role
	}
	u.Name = input.Name
	u.Email = strings.TrimSpace(strings.ToLower(input.Email))
	u.IsActive = input.IsActive

	if input.Password != "" {
		hash, err := hashPassword(input.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}

	if err := s.repo.Update(ctx, u); err != nil {
		if errors.Is(err, ErrEmailExists) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service: failed to update user %s: %w", id, err)
	}

	return u, nil
}

func (s *service) ToggleActive(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.IsActive = !u.IsActive
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("service: failed to toggle user %s: %w", id, err)
	}
	return u, nil
}

func (s *service) DeleteUser(ctx context.Context, id, actorID uuid.UUID) error {
	if id == actorID {
		return ErrCannotDeleteSelf
	}
	return s.repo.Delete(ctx, id)
}
