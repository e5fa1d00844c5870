// Package auth implements the demo session flow: a caller requests a
// one-time code for their email, exchanges it together with a role for a
// signed session token, and logs out by letting the token lapse. There is no
// user database; the role is self-declared, which is acceptable only because
// the whole surface is a demonstration system.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"credvault/internal/audit"
	"credvault/internal/jwttoken"
	"credvault/pkg/domain"
	dErrors "credvault/pkg/domain-errors"
	"credvault/pkg/platform/sentinel"
)

const (
	otpTTL     = 5 * time.Minute
	sessionTTL = 12 * time.Hour
)

// Session is the result of a successful login.
type Session struct {
	Token     string      `json:"token"`
	Subject   string      `json:"subject"`
	Role      domain.Role `json:"role"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// Service drives the OTP login flow.
type Service struct {
	otps    *OTPStore
	jwt     *jwttoken.JWTService
	auditor *audit.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Service)

// WithClock overrides the timestamp source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(jwt *jwttoken.JWTService, auditor *audit.Recorder, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		otps:    NewOTPStore(),
		jwt:     jwt,
		auditor: auditor,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestOTP issues a fresh code for the email. The code is returned to the
// caller because the demo deployment has no mail transport; a real one would
// send it out of band instead.
func (s *Service) RequestOTP(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "email must not be empty")
	}
	code, err := generateOTP()
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeInternal, "generate login code", err)
	}
	s.otps.Put(email, code, s.now().Add(otpTTL))
	s.logger.InfoContext(ctx, "login code issued", slog.String("email", email))
	return code, nil
}

// Login exchanges a valid code and a role for a session token.
func (s *Service) Login(ctx context.Context, email, code, role string) (Session, error) {
	parsedRole, err := domain.ParseRole(role)
	if err != nil {
		return Session{}, dErrors.New(dErrors.CodeBadRequest, err.Error())
	}

	now := s.now()
	if err := s.otps.Consume(email, code, now); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrExpired):
			return Session{}, dErrors.New(dErrors.CodeUnauthorized, "login code has expired")
		default:
			return Session{}, dErrors.New(dErrors.CodeUnauthorized, "invalid login code")
		}
	}

	tokenString, err := s.jwt.GenerateSessionToken(email, parsedRole, sessionTTL)
	if err != nil {
		return Session{}, dErrors.Wrap(dErrors.CodeInternal, "sign session token", err)
	}

	s.auditor.Record(ctx, audit.ActionLogin, "session opened for %s as %s", email, parsedRole)
	return Session{
		Token:     tokenString,
		Subject:   email,
		Role:      parsedRole,
		ExpiresAt: now.Add(sessionTTL),
	}, nil
}

// Logout records the end of a session. Tokens are stateless, so this is an
// audit event rather than an invalidation.
func (s *Service) Logout(ctx context.Context, subject string) {
	s.auditor.Record(ctx, audit.ActionLogout, "session closed for %s", subject)
}
