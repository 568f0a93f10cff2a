package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vovakirdan/presence-hub/internal/store"
)

var (
	// ErrAlreadyRegistered is returned when a verified user registers again.
	ErrAlreadyRegistered = errors.New("already registered")
	// ErrNotRegistered is returned when unregistering an unverified user.
	ErrNotRegistered = errors.New("not registered")
	// ErrInvalidEmail is returned when the email address is malformed.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrInvalidVerificationCode is returned for expired, forged or mismatched codes.
	ErrInvalidVerificationCode = errors.New("invalid verification code")
)

// DefaultMailTimeout bounds a verification delivery when Options.MailTimeout is zero.
const DefaultMailTimeout = 10 * time.Second

// Options configures the account service.
type Options struct {
	JWT               *JWTConfig
	Mailer            Mailer
	MailTimeout       time.Duration
	VerifyEnabled     bool
	MinPasswordLength int
}

// Verification is an issued code waiting to be delivered by Deliver.
type Verification struct {
	To   string
	Nick string
	Code string
}

// Service implements the credential operations on a user record:
// password checks, registration, verification and unregistration.
type Service struct {
	jwtConfig     *JWTConfig
	mailer        Mailer
	mailTimeout   time.Duration
	verifyEnabled bool
	minPassword   int
	validate      *validator.Validate
}

// NewService creates a new account service.
func NewService(opts Options) *Service {
	if opts.MailTimeout <= 0 {
		opts.MailTimeout = DefaultMailTimeout
	}
	return &Service{
		jwtConfig:     opts.JWT,
		mailer:        opts.Mailer,
		mailTimeout:   opts.MailTimeout,
		verifyEnabled: opts.VerifyEnabled,
		minPassword:   opts.MinPasswordLength,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

// VerifyEnabled reports whether registration goes through an emailed code.
func (s *Service) VerifyEnabled() bool {
	return s.verifyEnabled
}

// CheckPassword reports whether password unlocks the verified user u.
func (s *Service) CheckPassword(u *store.User, password string) bool {
	return u.Verified && PasswordMatches(u.PasswordHash, password)
}

// Register begins (verification enabled) or completes (disabled) a registration.
// When verification is enabled the returned code must be passed to Deliver;
// it is nil when the registration completed immediately.
func (s *Service) Register(ctx context.Context, users store.UserStore, u *store.User, email, password string) (*Verification, error) {
	if u.Verified {
		return nil, ErrAlreadyRegistered
	}
	email = strings.TrimSpace(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, ErrInvalidEmail
	}

	if s.verifyEnabled {
		code, err := GenerateVerificationCode(s.jwtConfig, u.Nick, email)
		if err != nil {
			return nil, fmt.Errorf("generate verification code: %w", err)
		}
		if err := users.SetEmail(ctx, u.ID, email); err != nil {
			return nil, fmt.Errorf("store pending email: %w", err)
		}
		u.Email = email
		return &Verification{To: email, Nick: u.Nick, Code: code}, nil
	}

	if err := s.setPassword(ctx, users, u, email, password); err != nil {
		return nil, err
	}
	return nil, nil
}

// Deliver mails an issued verification code. It touches no storage, so callers
// should invoke it after releasing their store handle.
func (s *Service) Deliver(ctx context.Context, v *Verification) error {
	ctx, cancel := context.WithTimeout(ctx, s.mailTimeout)
	defer cancel()

	if err := s.mailer.SendVerification(ctx, v.To, v.Nick, v.Code); err != nil {
		return fmt.Errorf("deliver verification code: %w", err)
	}
	return nil
}

// Verify completes a pending registration with the emailed code and an initial password.
func (s *Service) Verify(ctx context.Context, users store.UserStore, u *store.User, code, password string) error {
	if u.Verified {
		return ErrAlreadyRegistered
	}
	claims, err := ParseVerificationCode(s.jwtConfig, strings.TrimSpace(code))
	if err != nil {
		return ErrInvalidVerificationCode
	}
	if u.Email == "" || claims.Nick != u.Nick || claims.Email != u.Email {
		return ErrInvalidVerificationCode
	}
	return s.setPassword(ctx, users, u, u.Email, password)
}

// Unregister removes verification from u.
func (s *Service) Unregister(ctx context.Context, users store.UserStore, u *store.User) error {
	if !u.Verified {
		return ErrNotRegistered
	}
	if err := users.ClearCredentials(ctx, u.ID); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	u.Verified = false
	u.PasswordHash = ""
	u.Email = ""
	return nil
}

func (s *Service) setPassword(ctx context.Context, users store.UserStore, u *store.User, email, password string) error {
	if len(password) < s.minPassword || password == "" {
		return ErrInvalidPassword
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := users.SetCredentials(ctx, u.ID, email, hashedPassword, true); err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}

	u.Email = email
	u.PasswordHash = hashedPassword
	u.Verified = true
	return nil
}
