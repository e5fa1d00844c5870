package token

import (
	"bytes"
	"context"
	"image"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"credvault/internal/audit"
	auditstore "credvault/internal/audit/store"
	"credvault/internal/claim/models"
	"credvault/internal/claim/store"
	dErrors "credvault/pkg/domain-errors"
)

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func testHolder() models.Holder {
	return models.Holder{ID: "S001", Name: "Ravi Kumar", Email: "ravi@credvault.test", Batch: "2024", Dept: "CSE"}
}

func activeClaim(id, value string) models.Claim {
	return models.Claim{
		ID:       id,
		HolderID: "S001",
		Kind:     models.KindDegree,
		Value:    value,
		Issuer:   "Registrar Office",
		IssuedOn: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:   models.StatusActive,
		Visible:  true,
	}
}

func TestEncode(t *testing.T) {
	t.Run("includes only visible active claims", func(t *testing.T) {
		hidden := activeClaim("C2", "hidden")
		hidden.Visible = false
		revoked := activeClaim("C3", "revoked")
		revoked.Status = models.StatusRevoked
		revoked.RevocationReason = "gone"

		tok, err := Encode(testHolder(), []models.Claim{activeClaim("C1", "B.Tech"), hidden, revoked}, time.Hour, testNow)
		require.NoError(t, err)
		require.Len(t, tok.Claims, 1)
		assert.Equal(t, "B.Tech", tok.Claims[0].Value)
		assert.Equal(t, "2025-06-01", tok.Claims[0].IssuedOn)
	})

	t.Run("carries holder identity and attributes", func(t *testing.T) {
		tok, err := Encode(testHolder(), []models.Claim{activeClaim("C1", "B.Tech")}, time.Hour, testNow)
		require.NoError(t, err)
		assert.Equal(t, "S001", tok.HolderID)
		assert.Equal(t, "Ravi Kumar", tok.HolderName)
		assert.Equal(t, map[string]string{"batch": "2024", "dept": "CSE"}, tok.Attributes)
		assert.Equal(t, testNow.UnixMilli(), tok.IssuedAt)
		assert.Equal(t, testNow.Add(time.Hour).UnixMilli(), tok.Expiry)
	})

	t.Run("signature is deterministic over holder and expiry", func(t *testing.T) {
		tok, err := Encode(testHolder(), []models.Claim{activeClaim("C1", "B.Tech")}, time.Hour, testNow)
		require.NoError(t, err)
		assert.Equal(t, SignatureFor("S001", tok.Expiry), tok.Signature)
		assert.Contains(t, tok.Signature, SignaturePrefix)
	})

	t.Run("nothing shareable is an error", func(t *testing.T) {
		hidden := activeClaim("C1", "hidden")
		hidden.Visible = false
		_, err := Encode(testHolder(), []models.Claim{hidden}, time.Hour, testNow)
		assert.True(t, dErrors.Is(err, dErrors.CodeNothingToShare))

		_, err = Encode(testHolder(), nil, time.Hour, testNow)
		assert.True(t, dErrors.Is(err, dErrors.CodeNothingToShare))
	})
}

func TestSerializeDeserialize(t *testing.T) {
	tok, err := Encode(testHolder(), []models.Claim{activeClaim("C1", "B.Tech")}, time.Hour, testNow)
	require.NoError(t, err)

	serialized, err := Serialize(tok)
	require.NoError(t, err)

	parsed, err := Deserialize(serialized)
	require.NoError(t, err)
	assert.Equal(t, tok, parsed)

	t.Run("rejects garbage", func(t *testing.T) {
		for _, input := range []string{"", "   ", "!!!not-base64!!!", "bm90IGpzb24="} {
			_, err := Deserialize(input)
			assert.True(t, dErrors.Is(err, dErrors.CodeMalformedToken), "input %q", input)
		}
	})
}

func TestShareLinkRoundTrip(t *testing.T) {
	link, err := BuildShareLink("https://verify.credvault.test/v", "abc+def==")
	require.NoError(t, err)

	serialized, err := TokenFromLink(link)
	require.NoError(t, err)
	assert.Equal(t, "abc+def==", serialized)

	t.Run("missing token parameter", func(t *testing.T) {
		_, err := TokenFromLink("https://verify.credvault.test/v")
		assert.True(t, dErrors.Is(err, dErrors.CodeMalformedToken))
	})
}

func TestQRRoundTrip(t *testing.T) {
	tok, err := Encode(testHolder(), []models.Claim{activeClaim("C1", "B.Tech")}, time.Hour, testNow)
	require.NoError(t, err)
	serialized, err := Serialize(tok)
	require.NoError(t, err)

	pngBytes, err := QRPNG(serialized, 512)
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	decoded, err := DecodeQRImage(img)
	require.NoError(t, err)
	assert.Equal(t, serialized, decoded)
}

type ShareServiceSuite struct {
	suite.Suite

	ctx     context.Context
	claims  *store.InMemoryClaimStore
	holders *store.InMemoryHolderStore
	entries *auditstore.InMemoryStore
	svc     *Service
}

func (s *ShareServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.claims = store.NewInMemoryClaimStore()
	s.holders = store.NewInMemoryHolderStore()
	s.entries = auditstore.NewInMemoryStore()
	recorder := audit.NewRecorder(s.entries, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.svc = NewService(s.claims, s.holders, recorder, WithClock(func() time.Time { return testNow }))

	s.Require().NoError(s.holders.Save(s.ctx, testHolder()))
}

func TestShareServiceSuite(t *testing.T) {
	suite.Run(t, new(ShareServiceSuite))
}

func (s *ShareServiceSuite) TestShare() {
	s.Require().NoError(s.claims.Insert(s.ctx, activeClaim("C1", "B.Tech")))

	tok, serialized, err := s.svc.Share(s.ctx, "S001", time.Hour)
	s.Require().NoError(err)
	s.NotEmpty(serialized)
	s.Len(tok.Claims, 1)

	parsed, err := Deserialize(serialized)
	s.Require().NoError(err)
	s.Equal(tok, parsed)

	entries, err := s.entries.List(s.ctx)
	s.Require().NoError(err)
	s.Require().NotEmpty(entries)
	s.Equal(audit.ActionShare, entries[0].Action)
}

func (s *ShareServiceSuite) TestShareUnknownHolder() {
	_, _, err := s.svc.Share(s.ctx, "S999", time.Hour)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *ShareServiceSuite) TestShareNothingShareable() {
	_, _, err := s.svc.Share(s.ctx, "S001", time.Hour)
	s.True(dErrors.Is(err, dErrors.CodeNothingToShare))
}

func (s *ShareServiceSuite) TestShareable() {
	visible := activeClaim("C1", "B.Tech")
	hidden := activeClaim("C2", "secret")
	hidden.Visible = false
	s.Require().NoError(s.claims.Insert(s.ctx, visible))
	s.Require().NoError(s.claims.Insert(s.ctx, hidden))

	claims, err := s.svc.Shareable(s.ctx, "S001")
	s.Require().NoError(err)
	s.Require().Len(claims, 1)
	s.Equal("C1", claims[0].ID)
}
