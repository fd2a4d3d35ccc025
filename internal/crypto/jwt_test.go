package crypto

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tasklist/tasklist-go/internal/model"
)

const testSecret = "test-secret-test-secret-test-secret"

// fakeClock is a settable clock for expiry tests.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestTokenService(clock *fakeClock) *TokenService {
	return NewTokenService(testSecret, "tasklist", time.Hour, WithClock(clock.Now))
}

func TestIssueAndVerify(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestTokenService(clock)

	token, err := svc.Issue("usr-1", model.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue() unexpected error: %v", err)
	}

	sub, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify() unexpected error: %v", err)
	}
	if sub.UserID != "usr-1" {
		t.Errorf("Verify() UserID = %q, want %q", sub.UserID, "usr-1")
	}
	if sub.Role != model.RoleAdmin {
		t.Errorf("Verify() Role = %q, want %q", sub.Role, model.RoleAdmin)
	}
}

func TestIssueEmptySubject(t *testing.T) {
	svc := newTestTokenService(&fakeClock{t: time.Now()})
	if _, err := svc.Issue("", model.RoleUser); err == nil {
		t.Error("Issue() expected error for empty subject")
	}
}

func TestVerifyExpiry(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: start}
	svc := newTestTokenService(clock)

	token, err := svc.Issue("usr-1", model.RoleUser)
	if err != nil {
		t.Fatalf("Issue() unexpected error: %v", err)
	}

	tests := []struct {
		name    string
		at      time.Time
		wantErr error
	}{
		{name: "immediately", at: start, wantErr: nil},
		{name: "just before expiry", at: start.Add(time.Hour - time.Second), wantErr: nil},
		{name: "at expiry", at: start.Add(time.Hour), wantErr: ErrTokenExpired},
		{name: "long after expiry", at: start.Add(48 * time.Hour), wantErr: ErrTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock.t = tt.at
			_, err := svc.Verify(token)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Verify() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
			}
			if errors.Is(err, ErrTokenInvalid) {
				t.Error("expired token should not also be reported as invalid")
			}
		})
	}
}

func TestVerifyFlippedSignature(t *testing.T) {
	svc := newTestTokenService(&fakeClock{t: time.Now()})

	token, err := svc.Issue("usr-1", model.RoleUser)
	if err != nil {
		t.Fatalf("Issue() unexpected error: %v", err)
	}

	parts := strings.Split(token, ".")
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		t.Fatalf("decoding signature: %v", err)
	}

	for i := range sig {
		flipped := append([]byte(nil), sig...)
		flipped[i] ^= 0x01
		tampered := parts[0] + "." + parts[1] + "." + base64.RawURLEncoding.EncodeToString(flipped)

		if _, err := svc.Verify(tampered); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("byte %d flipped: Verify() error = %v, want ErrTokenInvalid", i, err)
		}
	}
}

func TestVerifyRejects(t *testing.T) {
	now := time.Now()
	svc := newTestTokenService(&fakeClock{t: now})

	sign := func(method jwt.SigningMethod, key any, claims Claims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("SignedString() unexpected error: %v", err)
		}
		return s
	}

	valid := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "tasklist",
			Subject:   "usr-1",
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role: model.RoleUser,
	}

	wrongIssuer := valid
	wrongIssuer.Issuer = "someone-else"

	wrongAudience := valid
	wrongAudience.Audience = jwt.ClaimStrings{"other-api"}

	noSubject := valid
	noSubject.Subject = ""

	badRole := valid
	badRole.Role = "superuser"

	noExpiry := valid
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-valid-token"},
		{name: "empty", token: ""},
		{name: "wrong secret", token: sign(jwt.SigningMethodHS256, []byte("another-secret"), valid)},
		{name: "wrong algorithm", token: sign(jwt.SigningMethodHS512, []byte(testSecret), valid)},
		{name: "none algorithm", token: sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid)},
		{name: "wrong issuer", token: sign(jwt.SigningMethodHS256, []byte(testSecret), wrongIssuer)},
		{name: "wrong audience", token: sign(jwt.SigningMethodHS256, []byte(testSecret), wrongAudience)},
		{name: "missing subject", token: sign(jwt.SigningMethodHS256, []byte(testSecret), noSubject)},
		{name: "unknown role", token: sign(jwt.SigningMethodHS256, []byte(testSecret), badRole)},
		{name: "missing expiry", token: sign(jwt.SigningMethodHS256, []byte(testSecret), noExpiry)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Verify(tt.token)
			if !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("Verify() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func TestRotatedSecretInvalidatesTokens(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	old := NewTokenService(testSecret, "tasklist", time.Hour, WithClock(clock.Now))
	rotated := NewTokenService(testSecret+"-rotated", "tasklist", time.Hour, WithClock(clock.Now))

	token, err := old.Issue("usr-1", model.RoleUser)
	if err != nil {
		t.Fatalf("Issue() unexpected error: %v", err)
	}
	if _, err := rotated.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Verify() error = %v, want ErrTokenInvalid", err)
	}
}
