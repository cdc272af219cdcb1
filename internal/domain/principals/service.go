package principals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gatherguru/server/internal/auth"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Service handles registration, login, and profile management for admins,
// organizers, and end-users.
type Service struct {
	repo     Repository
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(),
		logger:   logger.With().Str("component", "principals").Logger(),
	}
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Phone    string `json:"phone" validate:"omitempty,max=20"`
}

type UpdateProfileInput struct {
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,max=20"`
}

// Register creates a new principal with the given role. The role comes from
// the route, not the request body, so a client cannot self-assign one.
func (s *Service) Register(ctx context.Context, role Role, input RegisterInput) (*Principal, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, ValidationError{err}
	}

	email := normalizeEmail(input.Email)
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	principal := &Principal{
		ID:           primitive.NewObjectID(),
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Phone:        strings.TrimSpace(input.Phone),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, principal); err != nil {
		return nil, fmt.Errorf("create principal: %w", err)
	}

	s.logger.Info().Str("role", string(role)).Str("id", principal.ID.Hex()).Msg("principal registered")
	return principal, nil
}

// Login checks credentials and returns the matching principal. The role
// must match the record so an organizer cannot log in through the admin
// route; mismatches report the same opaque error as bad credentials.
func (s *Service) Login(ctx context.Context, role Role, email, password string) (*Principal, error) {
	principal, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup principal: %w", err)
	}
	if principal.Role != role {
		return nil, ErrInvalidCredentials
	}
	if err := auth.CheckPassword(principal.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return principal, nil
}

func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*Principal, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile mutates name, email, and phone. Role is immutable
// post-creation and the password has its own flow.
func (s *Service) UpdateProfile(ctx context.Context, id primitive.ObjectID, input UpdateProfileInput) (*Principal, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, ValidationError{err}
	}

	principal, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	email := normalizeEmail(input.Email)
	if email != principal.Email {
		if other, err := s.repo.GetByEmail(ctx, email); err == nil && other.ID != id {
			return nil, ErrEmailTaken
		} else if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("check email: %w", err)
		}
	}

	principal.Name = strings.TrimSpace(input.Name)
	principal.Email = email
	principal.Phone = strings.TrimSpace(input.Phone)
	principal.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, principal); err != nil {
		return nil, fmt.Errorf("update principal: %w", err)
	}
	return principal, nil
}

// SetProfileImage attaches a stored upload to the principal and returns the
// previous image so the caller can delete the orphaned object.
func (s *Service) SetProfileImage(ctx context.Context, id primitive.ObjectID, image ProfileImage) (*Principal, *ProfileImage, error) {
	principal, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	previous := principal.ProfileImage
	principal.ProfileImage = &image
	principal.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, principal); err != nil {
		return nil, nil, fmt.Errorf("update principal: %w", err)
	}
	return principal, previous, nil
}

// ValidationError wraps validator failures so handlers can map them to 400.
type ValidationError struct{ Err error }

func (e ValidationError) Error() string { return e.Err.Error() }
func (e ValidationError) Unwrap() error { return e.Err }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
