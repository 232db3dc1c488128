// Package auth handles registration, login and bearer-token verification
// for the platform's profiles.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/huddlehq/huddle/internal/store"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrBadEmail           = errors.New("invalid email address")
	ErrMissingDisplayName = errors.New("display name is required")
)

// Service issues and verifies tokens and manages profile credentials.
type Service struct {
	db     *store.DB
	secret []byte
	ttl    time.Duration
}

// NewService creates an auth service. ttl is the issued token lifetime.
func NewService(db *store.DB, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{db: db, secret: []byte(secret), ttl: ttl}
}

// RegisterInput carries the fields of a new profile.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	Title       string
	Company     string
}

// Register creates a profile with a bcrypt-hashed password.
func (s *Service) Register(_ context.Context, in RegisterInput) (*store.Profile, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.DisplayName = strings.TrimSpace(in.DisplayName)

	if !strings.Contains(in.Email, "@") {
		return nil, ErrBadEmail
	}
	if len(in.Password) < 8 {
		return nil, ErrWeakPassword
	}
	if in.DisplayName == "" {
		return nil, ErrMissingDisplayName
	}

	existing, err := s.db.GetProfileByEmail(in.Email)
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	p := &store.Profile{
		ID:           uuid.NewString(),
		Email:        in.Email,
		PasswordHash: string(hash),
		DisplayName:  in.DisplayName,
		Title:        strings.TrimSpace(in.Title),
		Company:      strings.TrimSpace(in.Company),
		CreatedAt:    time.Now().UnixMilli(),
	}
	if err := s.db.CreateProfile(p); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return p, nil
}

// Login verifies credentials and returns a signed token plus the profile.
func (s *Service) Login(_ context.Context, email, password string) (string, *store.Profile, error) {
	p, err := s.db.GetProfileByEmail(strings.TrimSpace(email))
	if err != nil {
		return "", nil, fmt.Errorf("lookup email: %w", err)
	}
	if p == nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.IssueToken(p.ID)
	if err != nil {
		return "", nil, err
	}
	return token, p, nil
}

// IssueToken signs a token whose subject is the user ID.
func (s *Service) IssueToken(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates a token and returns the user ID it was issued for.
func (s *Service) VerifyToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
