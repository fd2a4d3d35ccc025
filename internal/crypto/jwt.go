package crypto

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tasklist/tasklist-go/internal/model"
)

const audience = "tasklist-api"

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
)

// Claims represents the JWT claims for tasklist authentication. The user id
// travels in the registered Subject claim.
type Claims struct {
	jwt.RegisteredClaims
	Role model.Role `json:"role"`
}

// Subject is the verified content of a token.
type Subject struct {
	UserID string
	Role   model.Role
}

// TokenService issues and verifies HS256 bearer tokens. The secret is fixed
// for the lifetime of the service; rotating it invalidates every token.
type TokenService struct {
	secret []byte
	issuer string
	expiry time.Duration
	now    func() time.Time
}

// TokenOption customises a TokenService.
type TokenOption func(*TokenService)

// WithClock replaces the wall clock used for issuing and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService creates a TokenService.
func NewTokenService(secret, issuer string, expiry time.Duration, opts ...TokenOption) *TokenService {
	s := &TokenService{
		secret: []byte(secret),
		issuer: issuer,
		expiry: expiry,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Expiry returns the fixed lifetime of issued tokens.
func (s *TokenService) Expiry() time.Duration {
	return s.expiry
}

// Issue creates a signed token for the given user and role.
func (s *TokenService) Issue(userID string, role model.Role) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("issuing token: empty subject")
	}

	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		Role: role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token. Expired tokens yield ErrTokenExpired,
// every other failure (malformed, bad signature, wrong issuer) ErrTokenInvalid.
func (s *TokenService) Verify(tokenString string) (Subject, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Subject{}, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return Subject{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return Subject{}, ErrTokenInvalid
	}

	if claims.Subject == "" {
		return Subject{}, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	if !claims.Role.IsValid() {
		return Subject{}, fmt.Errorf("%w: unknown role %q", ErrTokenInvalid, claims.Role)
	}

	return Subject{UserID: claims.Subject, Role: claims.Role}, nil
}
