package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"credvault/internal/audit"
	auditstore "credvault/internal/audit/store"
	"credvault/internal/jwttoken"
	"credvault/pkg/domain"
	dErrors "credvault/pkg/domain-errors"
)

type AuthSuite struct {
	suite.Suite

	ctx     context.Context
	entries *auditstore.InMemoryStore
	jwt     *jwttoken.JWTService
	now     time.Time
	svc     *Service
}

func (s *AuthSuite) SetupTest() {
	s.ctx = context.Background()
	s.entries = auditstore.NewInMemoryStore()
	s.jwt = jwttoken.NewJWTService("test-signing-key", "credvault", "credvault-api")
	s.now = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := audit.NewRecorder(s.entries, logger)
	s.svc = NewService(s.jwt, recorder, logger, WithClock(func() time.Time { return s.now }))
}

func TestAuthSuite(t *testing.T) {
	suite.Run(t, new(AuthSuite))
}

func (s *AuthSuite) TestLoginFlow() {
	code, err := s.svc.RequestOTP(s.ctx, "ravi@credvault.test")
	s.Require().NoError(err)
	s.Len(code, 6)

	session, err := s.svc.Login(s.ctx, "ravi@credvault.test", code, "holder")
	s.Require().NoError(err)
	s.Equal(domain.RoleHolder, session.Role)
	s.Equal("ravi@credvault.test", session.Subject)
	s.NotEmpty(session.Token)

	subject, role, err := s.jwt.ExtractRole(session.Token)
	s.Require().NoError(err)
	s.Equal("ravi@credvault.test", subject)
	s.Equal(domain.RoleHolder, role)

	entries, err := s.entries.List(s.ctx)
	s.Require().NoError(err)
	s.Require().NotEmpty(entries)
	s.Equal(audit.ActionLogin, entries[0].Action)
}

func (s *AuthSuite) TestLoginCodeIsSingleUse() {
	code, err := s.svc.RequestOTP(s.ctx, "ravi@credvault.test")
	s.Require().NoError(err)

	_, err = s.svc.Login(s.ctx, "ravi@credvault.test", code, "issuer")
	s.Require().NoError(err)

	_, err = s.svc.Login(s.ctx, "ravi@credvault.test", code, "issuer")
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
}

func (s *AuthSuite) TestLoginRejectsWrongCode() {
	_, err := s.svc.RequestOTP(s.ctx, "ravi@credvault.test")
	s.Require().NoError(err)

	_, err = s.svc.Login(s.ctx, "ravi@credvault.test", "000000", "issuer")
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
}

func (s *AuthSuite) TestLoginRejectsExpiredCode() {
	code, err := s.svc.RequestOTP(s.ctx, "ravi@credvault.test")
	s.Require().NoError(err)

	s.now = s.now.Add(10 * time.Minute)
	_, err = s.svc.Login(s.ctx, "ravi@credvault.test", code, "issuer")
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
}

func (s *AuthSuite) TestLoginRejectsUnknownRole() {
	code, err := s.svc.RequestOTP(s.ctx, "ravi@credvault.test")
	s.Require().NoError(err)

	_, err = s.svc.Login(s.ctx, "ravi@credvault.test", code, "admin")
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
}

func (s *AuthSuite) TestLogoutRecordsAudit() {
	s.svc.Logout(s.ctx, "ravi@credvault.test")

	entries, err := s.entries.List(s.ctx)
	s.Require().NoError(err)
	s.Require().NotEmpty(entries)
	s.Equal(audit.ActionLogout, entries[0].Action)
}

func (s *AuthSuite) TestRequestOTPRequiresEmail() {
	_, err := s.svc.RequestOTP(s.ctx, "")
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
}
