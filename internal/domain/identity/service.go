package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/medibook/medibook/internal/platform/auth"
	"github.com/medibook/medibook/internal/platform/mailer"
)

// Common errors returned by the identity service.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInactiveAccount    = errors.New("account is not activated")
	ErrUserNotFound       = errors.New("user not found")
)

var validRoles = map[string]bool{
	RoleAdmin: true, RoleDoctor: true, RolePatient: true, RoleReceptionist: true,
}

// TokenIssuer issues signed access tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID uuid.UUID, username, role string) (string, error)
}

type Service struct {
	users  UserRepository
	issuer TokenIssuer
	mail   mailer.EmailSender
	tmpl   *mailer.TemplateEngine
	logger zerolog.Logger
}

func NewService(users UserRepository, issuer TokenIssuer, mail mailer.EmailSender, tmpl *mailer.TemplateEngine, logger zerolog.Logger) *Service {
	return &Service{users: users, issuer: issuer, mail: mail, tmpl: tmpl, logger: logger}
}

// Register creates a new user account with a hashed password. The account
// starts inactive and an activation email is sent best-effort.
func (s *Service) Register(ctx context.Context, username, email, password, role string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}
	if role == "" {
		role = RolePatient
	}
	if !validRoles[role] {
		return nil, fmt.Errorf("invalid role: %s", role)
	}

	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}
	existing, err = s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     false,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	s.sendActivationEmail(ctx, u)
	return u, nil
}

func (s *Service) sendActivationEmail(ctx context.Context, u *User) {
	if s.mail == nil || s.tmpl == nil {
		return
	}
	subject, body, err := s.tmpl.Render("account-activation", map[string]string{
		"name":            u.Username,
		"activation_link": "/api/auth/activate/" + u.ID.String(),
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("render activation email")
		return
	}
	if err := s.mail.SendEmail(ctx, u.Email, subject, body); err != nil {
		s.logger.Error().Err(err).Str("email", u.Email).Msg("send activation email")
	}
}

// Login verifies credentials and returns a signed token. The username field
// accepts either the username or the registered email.
func (s *Service) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.users.GetByUsername(ctx, creds.Username)
	if err != nil || u == nil {
		u, err = s.users.GetByEmail(ctx, strings.ToLower(creds.Username))
		if err != nil || u == nil {
			return nil, ErrInvalidCredentials
		}
	}

	if !auth.CheckPassword(u.PasswordHash, creds.Password) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInactiveAccount
	}

	token, err := s.issuer.Issue(u.ID, u.Username, u.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &LoginResult{Token: token, User: u}, nil
}

// Activate marks an account as active.
func (s *Service) Activate(ctx context.Context, id uuid.UUID) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil || u == nil {
		return ErrUserNotFound
	}
	if u.IsActive {
		return nil
	}
	u.IsActive = true
	return s.users.Update(ctx, u)
}

// ChangePassword verifies the current password before setting a new one.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil || u == nil {
		return ErrUserNotFound
	}
	if !auth.CheckPassword(u.PasswordHash, current) {
		return ErrInvalidCredentials
	}
	if len(next) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	return s.users.Update(ctx, u)
}

// GetUser returns a user by ID.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}
