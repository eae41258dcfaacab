package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/parcelpoint/parcel-tracking/internal/core/domain"
)

type stubCredentialRepo struct {
	creds   map[string]*domain.Credential
	findErr error
}

func newStubCredentialRepo() *stubCredentialRepo {
	return &stubCredentialRepo{creds: make(map[string]*domain.Credential)}
}

func cloneCredential(c *domain.Credential) *domain.Credential {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

func (r *stubCredentialRepo) Create(_ context.Context, cred *domain.Credential) (*domain.Credential, error) {
	if _, exists := r.creds[cred.Email]; exists {
		return nil, domain.ErrUserExists
	}
	r.creds[cred.Email] = cloneCredential(cred)
	return cloneCredential(cred), nil
}

func (r *stubCredentialRepo) FindByEmail(_ context.Context, email string) (*domain.Credential, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	c, ok := r.creds[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneCredential(c), nil
}

type stubThrottle struct {
	failures map[string]int
	limit    int
	err      error
}

func (t *stubThrottle) Blocked(_ context.Context, email string) (bool, error) {
	if t.err != nil {
		return false, t.err
	}
	return t.failures[email] >= t.limit, nil
}

func (t *stubThrottle) RecordFailure(_ context.Context, email string) error {
	if t.err != nil {
		return t.err
	}
	t.failures[email]++
	return nil
}

func (t *stubThrottle) Reset(_ context.Context, email string) error {
	delete(t.failures, email)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func (p *recordingPublisher) Publish(e domain.AuthEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []domain.AuthEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.AuthEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func parseClaims(t *testing.T, token, secret string) jwt.MapClaims {
	t.Helper()
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	return claims
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := newStubCredentialRepo()
	svc := NewAuthService(repo, "secret", time.Hour)

	token, err := svc.Register(context.Background(), " A@X.com ", "secret1")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token, got empty")
	}

	stored, ok := repo.creds["a@x.com"]
	if !ok {
		t.Fatalf("expected credential stored under normalized email, got %v", repo.creds)
	}
	if stored.PasswordHash == "secret1" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}

	claims := parseClaims(t, token, "secret")
	if claims["sub"] != stored.ID {
		t.Fatalf("expected sub %s, got %v", stored.ID, claims["sub"])
	}
	if claims["email"] != "a@x.com" {
		t.Fatalf("expected email claim a@x.com, got %v", claims["email"])
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc := NewAuthService(newStubCredentialRepo(), "secret", time.Hour)

	cases := []struct {
		name, email, password string
	}{
		{"empty email", "", "secret1"},
		{"malformed email", "not-an-email", "secret1"},
		{"short password", "a@x.com", "12345"},
		{"password over 72 bytes", "a@x.com", strings.Repeat("é", 40)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, err := svc.Register(context.Background(), tc.email, tc.password)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if token != "" {
				t.Fatalf("expected no token on validation failure")
			}
		})
	}
}

func TestAuthService_RegisterLoginScenario(t *testing.T) {
	repo := newStubCredentialRepo()
	svc := NewAuthService(repo, "secret", time.Hour)
	ctx := context.Background()

	token, err := svc.Register(ctx, "a@x.com", "secret1")
	if err != nil || token == "" {
		t.Fatalf("first register: token=%q err=%v", token, err)
	}

	token, err = svc.Register(ctx, "a@x.com", "secret1")
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if token != "" {
		t.Fatalf("expected no token on conflict, got %q", token)
	}

	token, err = svc.Login(ctx, "a@x.com", "secret1")
	if err != nil || token == "" {
		t.Fatalf("login: token=%q err=%v", token, err)
	}

	_, wrongPwErr := svc.Login(ctx, "a@x.com", "wrong")
	_, unknownErr := svc.Login(ctx, "b@x.com", "secret1")
	if !errors.Is(wrongPwErr, domain.ErrInvalidCredentials) || !errors.Is(unknownErr, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v and %v", wrongPwErr, unknownErr)
	}
	if wrongPwErr.Error() != unknownErr.Error() {
		t.Fatalf("error messages differ: %q vs %q", wrongPwErr, unknownErr)
	}
}

func TestAuthService_Register_InsertRaceMapsToConflict(t *testing.T) {
	repo := newStubCredentialRepo()
	svc := NewAuthService(&raceRepo{stubCredentialRepo: repo}, "secret", time.Hour)

	if _, err := svc.Register(context.Background(), "a@x.com", "secret1"); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

// raceRepo reports no existing user on lookup but a duplicate on insert.
type raceRepo struct {
	*stubCredentialRepo
}

func (r *raceRepo) Create(context.Context, *domain.Credential) (*domain.Credential, error) {
	return nil, domain.ErrUserExists
}

func TestAuthService_Login_TokenClaims(t *testing.T) {
	svc := NewAuthService(newStubCredentialRepo(), "secret", 30*time.Minute)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	if _, err := svc.Register(context.Background(), "carol@example.com", "s3cret!"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	token, err := svc.Login(context.Background(), "carol@example.com", "s3cret!")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	}); err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if iat, _ := claims["iat"].(float64); int64(iat) != fixed.Unix() {
		t.Fatalf("unexpected iat: %v", claims["iat"])
	}
	if exp, _ := claims["exp"].(float64); int64(exp) != fixed.Add(30*time.Minute).Unix() {
		t.Fatalf("unexpected exp: %v", claims["exp"])
	}
}

func TestAuthService_Login_StoreFailureFailsClosed(t *testing.T) {
	repo := newStubCredentialRepo()
	repo.findErr = errors.New("connection refused")
	svc := NewAuthService(repo, "secret", time.Hour)

	_, err := svc.Login(context.Background(), "a@x.com", "secret1")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("store failure leaked into error: %v", err)
	}
}

func TestAuthService_Login_Throttled(t *testing.T) {
	repo := newStubCredentialRepo()
	throttle := &stubThrottle{failures: map[string]int{}, limit: 2}
	svc := NewAuthService(repo, "secret", time.Hour, WithLoginThrottle(throttle))
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@x.com", "secret1"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := svc.Login(ctx, "a@x.com", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}
	if _, err := svc.Login(ctx, "a@x.com", "secret1"); !errors.Is(err, domain.ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
}

func TestAuthService_Login_SuccessResetsThrottle(t *testing.T) {
	throttle := &stubThrottle{failures: map[string]int{}, limit: 5}
	svc := NewAuthService(newStubCredentialRepo(), "secret", time.Hour, WithLoginThrottle(throttle))
	ctx := context.Background()

	_, _ = svc.Register(ctx, "a@x.com", "secret1")
	_, _ = svc.Login(ctx, "a@x.com", "wrong")
	if _, err := svc.Login(ctx, "a@x.com", "secret1"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if n := throttle.failures["a@x.com"]; n != 0 {
		t.Fatalf("expected failures reset, got %d", n)
	}
}

func TestAuthService_Login_ThrottleErrorFailsOpen(t *testing.T) {
	throttle := &stubThrottle{failures: map[string]int{}, limit: 1, err: errors.New("redis down")}
	repo := newStubCredentialRepo()
	svc := NewAuthService(repo, "secret", time.Hour, WithLoginThrottle(throttle))
	ctx := context.Background()

	_, _ = svc.Register(ctx, "a@x.com", "secret1")
	if _, err := svc.Login(ctx, "a@x.com", "secret1"); err != nil {
		t.Fatalf("expected login to proceed when throttle is unavailable, got %v", err)
	}
}

func TestAuthService_EmitsEvents(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewAuthService(newStubCredentialRepo(), "secret", time.Hour, WithEventPublisher(pub))
	ctx := context.Background()

	_, _ = svc.Register(ctx, "a@x.com", "secret1")
	_, _ = svc.Login(ctx, "a@x.com", "secret1")
	_, _ = svc.Login(ctx, "a@x.com", "nope")

	got := pub.types()
	want := []domain.AuthEventType{domain.EventUserRegistered, domain.EventUserLoggedIn, domain.EventUserLoginFailed}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}
