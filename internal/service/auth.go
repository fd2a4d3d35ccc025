package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/tasklist/tasklist-go/internal/crypto"
	"github.com/tasklist/tasklist-go/internal/model"
	"github.com/tasklist/tasklist-go/internal/repository"
)

const (
	// MinPasswordLength is the shortest password accepted at signup.
	MinPasswordLength = 6

	// Column widths of the users table, counted in characters.
	MaxNameLength  = 255
	MaxEmailLength = 254
)

// UserStore is the credential store the auth core reads and writes. It owns
// email uniqueness and reports violations as repository.ErrDuplicateEmail.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// TokenIssuer issues bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID string, role model.Role) (string, error)
}

// AuthService handles signup and signin.
type AuthService struct {
	users            UserStore
	tokens           TokenIssuer
	hashParams       crypto.HashParams
	allowAdminSignup bool
	logger           *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithHashParams overrides the Argon2id cost used for new password hashes.
func WithHashParams(p crypto.HashParams) AuthOption {
	return func(s *AuthService) { s.hashParams = p }
}

// WithAdminSignup allows callers to register themselves as admin.
func WithAdminSignup(allow bool) AuthOption {
	return func(s *AuthService) { s.allowAdminSignup = allow }
}

// WithLogger sets the logger used for audit lines.
func WithLogger(l *slog.Logger) AuthOption {
	return func(s *AuthService) { s.logger = l }
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, tokens TokenIssuer, opts ...AuthOption) *AuthService {
	s := &AuthService{
		users:      users,
		tokens:     tokens,
		hashParams: crypto.DefaultHashParams(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup registers a new account and returns a token for it.
func (s *AuthService) Signup(ctx context.Context, req model.SignupRequest) (model.AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := model.NormalizeEmail(req.Email)

	role := req.Role
	if role == "" {
		role = model.RoleUser
	}

	if err := validateSignup(name, email, req.Password, role); err != nil {
		return model.AuthResponse{}, err
	}
	if role == model.RoleAdmin && !s.allowAdminSignup {
		s.logger.WarnContext(ctx, "admin self-signup rejected", "email", email)
		return model.AuthResponse{}, ErrForbidden
	}

	// Fast path only; the store's unique index is the authority.
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return model.AuthResponse{}, ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return model.AuthResponse{}, transient("looking up email", err)
	}

	hash, err := crypto.HashPasswordWithParams(req.Password, s.hashParams)
	if err != nil {
		s.logger.ErrorContext(ctx, "password hashing failed", "error", err)
		return model.AuthResponse{}, transient("hashing password", err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return model.AuthResponse{}, ErrDuplicateEmail
		}
		return model.AuthResponse{}, transient("creating user", err)
	}

	s.logger.InfoContext(ctx, "user signed up", "user_id", user.ID, "role", user.Role)
	return s.respond(ctx, user)
}

// Signin authenticates by email and password. Unknown email and wrong
// password return the same ErrInvalidCredentials and cost the same hashing
// work; only the audit log tells them apart.
func (s *AuthService) Signin(ctx context.Context, req model.SigninRequest) (model.AuthResponse, error) {
	email := model.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return model.AuthResponse{}, ErrCredentialsFields
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.verifyDummy(req.Password)
			s.logger.InfoContext(ctx, "signin failed", "reason", "unknown_email")
			return model.AuthResponse{}, ErrInvalidCredentials
		}
		return model.AuthResponse{}, transient("looking up email", err)
	}

	match, err := crypto.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		s.logger.ErrorContext(ctx, "stored password hash unreadable", "user_id", user.ID, "error", err)
		return model.AuthResponse{}, transient("verifying password", err)
	}
	if !match {
		s.logger.InfoContext(ctx, "signin failed", "reason", "wrong_password", "user_id", user.ID)
		return model.AuthResponse{}, ErrInvalidCredentials
	}

	return s.respond(ctx, user)
}

// AdminBootstrap reports the outcome of EnsureAdmin.
type AdminBootstrap struct {
	Created bool
	// GeneratedPassword is set only when an account was created without a
	// supplied password. It is never logged.
	GeneratedPassword string
}

// EnsureAdmin creates the bootstrap administrator when no account with the
// email exists. An empty password means one is generated.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, name, password string) (AdminBootstrap, error) {
	email = model.NormalizeEmail(email)
	name = strings.TrimSpace(name)

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != model.RoleAdmin {
			s.logger.WarnContext(ctx, "bootstrap admin email belongs to a non-admin account", "user_id", existing.ID)
		}
		return AdminBootstrap{}, nil
	case !errors.Is(err, repository.ErrUserNotFound):
		return AdminBootstrap{}, transient("looking up bootstrap admin", err)
	}

	var result AdminBootstrap
	if password == "" {
		if password, err = crypto.GenerateBootstrapPassword(); err != nil {
			return AdminBootstrap{}, err
		}
		result.GeneratedPassword = password
	}
	if err := validateSignup(name, email, password, model.RoleAdmin); err != nil {
		return AdminBootstrap{}, err
	}

	hash, err := crypto.HashPasswordWithParams(password, s.hashParams)
	if err != nil {
		return AdminBootstrap{}, transient("hashing password", err)
	}

	admin := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return AdminBootstrap{}, nil
		}
		return AdminBootstrap{}, transient("creating bootstrap admin", err)
	}

	s.logger.InfoContext(ctx, "bootstrap admin created", "user_id", admin.ID)
	result.Created = true
	return result, nil
}

func (s *AuthService) respond(ctx context.Context, user *model.User) (model.AuthResponse, error) {
	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		s.logger.ErrorContext(ctx, "token issue failed", "user_id", user.ID, "error", err)
		return model.AuthResponse{}, transient("issuing token", err)
	}

	return model.AuthResponse{
		Token:        token,
		UserResponse: user.Public(),
	}, nil
}

// verifyDummy spends one password verification against a throwaway hash made
// with this service's cost parameters.
func (s *AuthService) verifyDummy(password string) {
	s.dummyOnce.Do(func() {
		h, err := crypto.HashPasswordWithParams("tasklist-dummy-password", s.hashParams)
		if err == nil {
			s.dummyHash = h
		}
	})
	if s.dummyHash != "" {
		_, _ = crypto.VerifyPassword(password, s.dummyHash)
	}
}

func validateSignup(name, email, password string, role model.Role) error {
	if name == "" {
		return ErrNameRequired
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return ErrNameTooLong
	}
	if email == "" {
		return ErrEmailRequired
	}
	if utf8.RuneCountInString(email) > MaxEmailLength {
		return ErrEmailTooLong
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return ErrEmailInvalid
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if !role.IsValid() {
		return ErrRoleInvalid
	}
	return nil
}
