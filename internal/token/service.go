package token

import (
	"context"
	"errors"
	"time"

	"credvault/internal/audit"
	"credvault/internal/claim/models"
	"credvault/internal/claim/store"
	"credvault/internal/platform/metrics"
	dErrors "credvault/pkg/domain-errors"
	"credvault/pkg/platform/sentinel"
)

const DefaultTTL = 15 * time.Minute

// Service assembles share tokens for holders: loads the profile and claims,
// encodes the shareable subset and records the share in the audit trail.
type Service struct {
	claims  store.ClaimStore
	holders store.HolderStore
	auditor *audit.Recorder
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the timestamp source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(claims store.ClaimStore, holders store.HolderStore, auditor *audit.Recorder, opts ...Option) *Service {
	s := &Service{claims: claims, holders: holders, auditor: auditor, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Share builds and serializes a token for the holder's current shareable
// claims. The holder must exist; a holder with nothing shareable is a
// nothing-to-share failure, not an empty token.
func (s *Service) Share(ctx context.Context, holderID string, ttl time.Duration) (Token, string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	holder, err := s.holders.FindByID(ctx, holderID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Token{}, "", dErrors.New(dErrors.CodeNotFound, "unknown holder: "+holderID)
		}
		return Token{}, "", dErrors.Wrap(dErrors.CodeInternal, "load holder", err)
	}

	claims, err := s.claims.ListByHolder(ctx, holderID)
	if err != nil {
		return Token{}, "", dErrors.Wrap(dErrors.CodeInternal, "list holder claims", err)
	}

	tok, err := Encode(holder, claims, ttl, s.now())
	if err != nil {
		return Token{}, "", err
	}
	serialized, err := Serialize(tok)
	if err != nil {
		return Token{}, "", dErrors.Wrap(dErrors.CodeInternal, "serialize token", err)
	}

	s.auditor.Record(ctx, audit.ActionShare, "share token generated for holder %s with %d claims, expires %s",
		holderID, len(tok.Claims), tok.ExpiresAt().UTC().Format(time.RFC3339))
	if s.metrics != nil {
		s.metrics.SharesGenerated.Inc()
	}
	return tok, serialized, nil
}

// Shareable reports which of a holder's claims would be included in a token
// right now, letting the UI warn before an empty share attempt.
func (s *Service) Shareable(ctx context.Context, holderID string) ([]models.Claim, error) {
	claims, err := s.claims.ListByHolder(ctx, holderID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "list holder claims", err)
	}
	var out []models.Claim
	for _, c := range claims {
		if c.Visible && c.Status == models.StatusActive {
			out = append(out, c)
		}
	}
	return out, nil
}
