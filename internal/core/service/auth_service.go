package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/parcelpoint/parcel-tracking/internal/core/domain"
	"github.com/parcelpoint/parcel-tracking/internal/core/ports"
	"github.com/parcelpoint/parcel-tracking/internal/infrastructure/tracing"
)

const (
	defaultTokenTTL   = time.Hour
	minPasswordLength = 6
	// bcrypt rejects longer input; the limit is in bytes, not characters.
	maxPasswordBytes  = 72
)

// AuthService implements registration and login.
type AuthService struct {
	repo      ports.CredentialRepository
	throttle  ports.LoginThrottle
	events    ports.AuthEventPublisher
	validate  *validator.Validate
	jwtSecret string
	tokenTTL  time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

// AuthOption configures optional collaborators of AuthService.
type AuthOption func(*AuthService)

// WithLoginThrottle enables failed-login throttling.
func WithLoginThrottle(t ports.LoginThrottle) AuthOption {
	return func(s *AuthService) { s.throttle = t }
}

// WithEventPublisher emits an AuthEvent after every register and login attempt.
func WithEventPublisher(p ports.AuthEventPublisher) AuthOption {
	return func(s *AuthService) { s.events = p }
}

func WithLogger(log zerolog.Logger) AuthOption {
	return func(s *AuthService) { s.log = log }
}

func NewAuthService(repo ports.CredentialRepository, jwtSecret string, tokenTTL time.Duration, opts ...AuthOption) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	s := &AuthService{
		repo:      repo,
		validate:  validator.New(),
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		log:       zerolog.Nop(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a credential and returns a token for it.
func (s *AuthService) Register(ctx context.Context, email, password string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "auth.register", trace.WithAttributes(
		attribute.String("layer", "service"),
	))
	defer span.End()

	email = normalizeEmail(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return "", fmt.Errorf("%w: email must be a valid address", domain.ErrValidation)
	}
	if len(password) < minPasswordLength {
		return "", fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLength)
	}
	if len(password) > maxPasswordBytes {
		return "", fmt.Errorf("%w: password must be at most %d bytes", domain.ErrValidation, maxPasswordBytes)
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		span.SetAttributes(attribute.Bool("registration.success", false))
		return "", domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		span.RecordError(err)
		return "", fmt.Errorf("register: lookup: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("register: hash password: %w", err)
	}

	created, err := s.repo.Create(ctx, &domain.Credential{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return "", domain.ErrUserExists
		}
		span.RecordError(err)
		return "", fmt.Errorf("register: insert: %w", err)
	}

	token, err := s.generateToken(created)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("register: sign token: %w", err)
	}

	span.SetAttributes(attribute.String("user.id", created.ID), attribute.Bool("registration.success", true))
	s.emit(domain.EventUserRegistered, created.ID, email)
	return token, nil
}

// Login verifies the password and issues a token. Unknown emails, wrong
// passwords and store failures all surface as ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "auth.login", trace.WithAttributes(
		attribute.String("layer", "service"),
	))
	defer span.End()

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", domain.ErrInvalidCredentials
	}

	if s.throttle != nil {
		blocked, err := s.throttle.Blocked(ctx, email)
		if err != nil {
			s.log.Warn().Err(err).Str("email", email).Msg("login throttle check failed, continuing")
		} else if blocked {
			span.AddEvent("authentication.throttled")
			return "", domain.ErrTooManyAttempts
		}
	}

	cred, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			span.RecordError(err)
			s.log.Error().Err(err).Str("email", email).Msg("credential lookup failed")
			return "", domain.ErrInvalidCredentials
		}
		s.loginFailed(ctx, span, email)
		return "", domain.ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		s.loginFailed(ctx, span, email)
		return "", domain.ErrInvalidCredentials
	}

	token, err := s.generateToken(cred)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("login: sign token: %w", err)
	}

	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, email); err != nil {
			s.log.Warn().Err(err).Str("email", email).Msg("failed to reset login throttle")
		}
	}

	span.SetAttributes(attribute.String("user.id", cred.ID), attribute.Bool("auth.success", true))
	s.emit(domain.EventUserLoggedIn, cred.ID, email)
	return token, nil
}

// Me echoes the identity carried by a verified token.
func (s *AuthService) Me(_ context.Context, id ports.Identity) (*ports.Identity, error) {
	if id.ID == "" {
		return nil, domain.ErrInvalidCredentials
	}
	return &ports.Identity{ID: id.ID, Email: id.Email}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, span trace.Span, email string) {
	span.SetAttributes(attribute.Bool("auth.success", false))
	span.AddEvent("authentication.failed")
	if s.throttle != nil {
		if err := s.throttle.RecordFailure(ctx, email); err != nil {
			s.log.Warn().Err(err).Str("email", email).Msg("failed to record login failure")
		}
	}
	s.emit(domain.EventUserLoginFailed, "", email)
}

func (s *AuthService) emit(t domain.AuthEventType, subject, email string) {
	if s.events == nil {
		return
	}
	s.events.Publish(domain.AuthEvent{
		ID:         uuid.NewString(),
		Type:       t,
		Subject:    subject,
		Email:      email,
		OccurredAt: s.now(),
	})
}

func (s *AuthService) generateToken(cred *domain.Credential) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   cred.ID,
		"email": cred.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
