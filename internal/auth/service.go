package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/ec-cart/internal/apperr"
	"github.com/example/ec-cart/internal/logger"
	"github.com/google/uuid"
)

// Session is the result of a successful sign-in.
type Session struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}

// Service registers accounts and exchanges credentials for access tokens.
type Service struct {
	users  UserStore
	tokens *TokenService
	hasher PasswordHasher
	log    *logger.Logger
}

func NewService(users UserStore, tokens *TokenService, hasher PasswordHasher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{users: users, tokens: tokens, hasher: hasher, log: log.Component("Auth")}
}

func (s *Service) SignUp(ctx context.Context, email, password, role string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.Invalid("User", "email", email, ErrInvalidEmail)
	}
	if role == "" {
		role = RoleCustomer
	}
	if role != RoleCustomer && role != RoleAdmin {
		return nil, apperr.Invalid("User", "role", role, ErrInvalidRole)
	}
	hash, err := s.hasher.Hash(password)
	if errors.Is(err, ErrPasswordTooShort) {
		return nil, apperr.Invalid("User", "password", nil, err)
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, apperr.Conflict("User", "email", email, ErrEmailTaken)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user registered", "user_id", u.ID, "role", u.Role)
	return u, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.FindUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, apperr.New(apperr.KindUnauthenticated, "User", "", nil, ErrInvalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !s.hasher.Matches(password, u.PasswordHash) {
		s.log.Warn("sign-in rejected", "user_id", u.ID)
		return nil, apperr.New(apperr.KindUnauthenticated, "User", "", nil, ErrInvalidCredentials)
	}

	token, expiresAt, err := s.tokens.Issue(u)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{User: u, Token: token, ExpiresAt: expiresAt}, nil
}
