package verify

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"credvault/internal/audit"
	auditstore "credvault/internal/audit/store"
	"credvault/internal/claim/models"
	"credvault/internal/claim/store"
	"credvault/internal/token"
)

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

type VerifierSuite struct {
	suite.Suite

	ctx      context.Context
	claims   *store.InMemoryClaimStore
	holders  *store.InMemoryHolderStore
	entries  *auditstore.InMemoryStore
	verifier *Verifier
}

func (s *VerifierSuite) SetupTest() {
	s.ctx = context.Background()
	s.claims = store.NewInMemoryClaimStore()
	s.holders = store.NewInMemoryHolderStore()
	s.entries = auditstore.NewInMemoryStore()
	recorder := audit.NewRecorder(s.entries, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.verifier = New(recorder,
		WithStores(s.claims, s.holders),
		WithClock(func() time.Time { return testNow }),
	)
}

func TestVerifierSuite(t *testing.T) {
	suite.Run(t, new(VerifierSuite))
}

func (s *VerifierSuite) holder() models.Holder {
	return models.Holder{ID: "S001", Name: "Ravi Kumar", Batch: "2024", Dept: "CSE"}
}

func (s *VerifierSuite) claim(id string, visible bool, status models.Status) models.Claim {
	c := models.Claim{
		ID:       id,
		HolderID: "S001",
		Kind:     models.KindDegree,
		Value:    "B.Tech Computer Science",
		Issuer:   "Registrar Office",
		IssuedOn: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:   models.StatusActive,
		Visible:  true,
	}
	s.Require().NoError(s.claims.Insert(s.ctx, c))
	if status != models.StatusActive || !visible {
		_, err := s.claims.Update(s.ctx, id, func(c *models.Claim) error {
			c.Visible = visible
			if status == models.StatusRevoked {
				c.Status = models.StatusRevoked
				c.RevocationReason = "test"
			}
			return nil
		})
		s.Require().NoError(err)
	}
	c.Visible = visible
	return c
}

func (s *VerifierSuite) freshToken(ttl time.Duration) string {
	tok, err := token.Encode(s.holder(), []models.Claim{{
		ID: "C1", HolderID: "S001", Kind: models.KindDegree, Value: "B.Tech",
		Issuer: "Registrar Office", IssuedOn: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Status: models.StatusActive, Visible: true,
	}}, ttl, testNow)
	s.Require().NoError(err)
	serialized, err := token.Serialize(tok)
	s.Require().NoError(err)
	return serialized
}

func (s *VerifierSuite) lastAudit() audit.Entry {
	entries, err := s.entries.List(s.ctx)
	s.Require().NoError(err)
	s.Require().NotEmpty(entries)
	return entries[0]
}

func (s *VerifierSuite) TestVerifyToken() {
	s.Run("accepts a fresh well formed token", func() {
		result, err := s.verifier.VerifyToken(s.ctx, s.freshToken(time.Hour))
		s.Require().NoError(err)
		s.Equal(OutcomeAccepted, result.Outcome)
		s.Equal(StageResolved, result.Stage)
		s.Empty(result.Reason)
		s.Len(result.Claims, 1)
		s.Equal(audit.ActionVerify, s.lastAudit().Action)
	})

	s.Run("token without store match is still accepted", func() {
		result, err := s.verifier.VerifyToken(s.ctx, s.freshToken(time.Hour))
		s.Require().NoError(err)
		s.True(result.Accepted())
		s.False(result.StoreMatch)
		s.Equal("Ravi Kumar", result.HolderName)
	})

	s.Run("store match enriches holder fields", func() {
		s.Require().NoError(s.holders.Save(s.ctx, s.holder()))
		result, err := s.verifier.VerifyToken(s.ctx, s.freshToken(time.Hour))
		s.Require().NoError(err)
		s.True(result.StoreMatch)
		s.Equal("Ravi Kumar", result.HolderName)
		s.Equal("CSE", result.Attributes["dept"])
	})

	s.Run("garbage is rejected as malformed", func() {
		result, err := s.verifier.VerifyToken(s.ctx, "not a token")
		s.Require().NoError(err)
		s.Equal(OutcomeRejected, result.Outcome)
		s.Equal(ReasonMalformedToken, result.Reason)
		s.Equal(StageReceived, result.Stage)
	})

	s.Run("tampered signature is rejected", func() {
		tok, err := token.Deserialize(s.freshToken(time.Hour))
		s.Require().NoError(err)
		tok.Signature = "DEMO_SIG_S001_0"
		serialized, err := token.Serialize(tok)
		s.Require().NoError(err)

		result, err := s.verifier.VerifyToken(s.ctx, serialized)
		s.Require().NoError(err)
		s.Equal(ReasonInvalidSignature, result.Reason)
		s.Equal(StageParsed, result.Stage)
	})

	s.Run("missing signature is rejected", func() {
		tok, err := token.Deserialize(s.freshToken(time.Hour))
		s.Require().NoError(err)
		tok.Signature = ""
		serialized, err := token.Serialize(tok)
		s.Require().NoError(err)

		result, err := s.verifier.VerifyToken(s.ctx, serialized)
		s.Require().NoError(err)
		s.Equal(ReasonInvalidSignature, result.Reason)
	})

	s.Run("tampered payload invalidates the signature", func() {
		tok, err := token.Deserialize(s.freshToken(time.Hour))
		s.Require().NoError(err)
		tok.HolderID = "S999"
		serialized, err := token.Serialize(tok)
		s.Require().NoError(err)

		result, err := s.verifier.VerifyToken(s.ctx, serialized)
		s.Require().NoError(err)
		s.Equal(ReasonInvalidSignature, result.Reason)
	})

	s.Run("expired token is rejected after the shape check", func() {
		expired := s.freshToken(-time.Minute)
		result, err := s.verifier.VerifyToken(s.ctx, expired)
		s.Require().NoError(err)
		s.Equal(ReasonExpired, result.Reason)
		s.Equal(StageShapeChecked, result.Stage)
	})

	s.Run("valid JSON that is not a token is rejected on shape", func() {
		serialized := base64.StdEncoding.EncodeToString([]byte(`{"foo":"bar"}`))
		result, err := s.verifier.VerifyToken(s.ctx, serialized)
		s.Require().NoError(err)
		s.Equal(OutcomeRejected, result.Outcome)
		s.Equal(ReasonInvalidSignature, result.Reason)
	})
}

func (s *VerifierSuite) TestVerifyHolder() {
	s.Run("returns active visible claims", func() {
		s.Require().NoError(s.holders.Save(s.ctx, s.holder()))
		s.claim("C1", true, models.StatusActive)
		s.claim("C2", false, models.StatusActive)
		s.claim("C3", true, models.StatusRevoked)

		result, err := s.verifier.VerifyHolder(s.ctx, "S001")
		s.Require().NoError(err)
		s.True(result.Accepted())
		s.True(result.StoreMatch)
		s.Require().Len(result.Claims, 1)
		s.Equal("B.Tech Computer Science", result.Claims[0].Value)
	})

	s.Run("unknown holder is accepted with zero claims", func() {
		result, err := s.verifier.VerifyHolder(s.ctx, "S404")
		s.Require().NoError(err)
		s.True(result.Accepted())
		s.False(result.StoreMatch)
		s.Empty(result.Claims)
	})
}
