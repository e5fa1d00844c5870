// Package service implements the claim lifecycle engine: issuance,
// revocation, supersession and visibility, with audit emission and
// best-effort ledger anchoring layered on top of the store.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"credvault/internal/anchor"
	"credvault/internal/audit"
	"credvault/internal/claim/models"
	"credvault/internal/claim/store"
	"credvault/internal/platform/metrics"
	dErrors "credvault/pkg/domain-errors"
	"credvault/pkg/platform/sentinel"
)

const defaultAnchorTimeout = 10 * time.Second

// Service orchestrates claim lifecycle operations. It owns id generation and
// version chain linking; field-level invariants stay with the store.
type Service struct {
	claims  store.ClaimStore
	holders store.HolderStore
	auditor *audit.Recorder
	ledger  anchor.Ledger
	logger  *slog.Logger
	metrics *metrics.Metrics

	anchorWallet  string
	anchorSalt    string
	anchorTimeout time.Duration
	now           func() time.Time
	newID         func() (string, error)
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLedger enables best-effort anchoring. Without it claims are issued
// locally only.
func WithLedger(ledger anchor.Ledger, wallet, salt string, timeout time.Duration) Option {
	return func(s *Service) {
		s.ledger = ledger
		s.anchorWallet = wallet
		s.anchorSalt = salt
		if timeout > 0 {
			s.anchorTimeout = timeout
		}
	}
}

// WithClock overrides the timestamp source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides claim id generation, used by tests.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(s *Service) { s.newID = newID }
}

func New(claims store.ClaimStore, holders store.HolderStore, auditor *audit.Recorder, opts ...Option) *Service {
	s := &Service{
		claims:        claims,
		holders:       holders,
		auditor:       auditor,
		logger:        slog.Default(),
		anchorTimeout: defaultAnchorTimeout,
		now:           time.Now,
		newID: func() (string, error) {
			id, err := uuid.NewV7()
			if err != nil {
				return "", err
			}
			return id.String(), nil
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueRequest carries the inputs for a new claim version.
type IssueRequest struct {
	HolderID string
	Kind     models.Kind
	Value    string
	Issuer   string
	IssuedOn time.Time

	// PreviousVersionID, when set, supersedes that claim atomically with
	// the insert of the new version.
	PreviousVersionID string

	// FileHash is an optional fingerprint of an attached document, folded
	// into the anchored record hash.
	FileHash string
}

// Issue mints a new claim. When PreviousVersionID is set the predecessor
// must be active; it transitions to superseded and the two versions are
// linked in both directions. Anchoring runs after the local commit and never
// fails the operation.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (models.Claim, error) {
	if req.HolderID == "" {
		return models.Claim{}, dErrors.New(dErrors.CodeBadRequest, "holder id must not be empty")
	}
	if req.Value == "" {
		return models.Claim{}, dErrors.New(dErrors.CodeBadRequest, "claim value must not be empty")
	}
	if _, err := models.ParseKind(string(req.Kind)); err != nil {
		return models.Claim{}, dErrors.New(dErrors.CodeBadRequest, err.Error())
	}

	if req.PreviousVersionID != "" {
		prev, err := s.claims.Get(ctx, req.PreviousVersionID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return models.Claim{}, dErrors.New(dErrors.CodeInvalidPredecessor, "previous version not found: "+req.PreviousVersionID)
			}
			return models.Claim{}, dErrors.Wrap(dErrors.CodeInternal, "load previous version", err)
		}
		if prev.Status != models.StatusActive {
			return models.Claim{}, dErrors.New(dErrors.CodeInvalidPredecessor, "previous version is not active: "+req.PreviousVersionID)
		}
		if prev.HolderID != req.HolderID {
			return models.Claim{}, dErrors.New(dErrors.CodeInvalidPredecessor, "previous version belongs to another holder")
		}
	}

	id, err := s.newID()
	if err != nil {
		return models.Claim{}, dErrors.Wrap(dErrors.CodeInternal, "generate claim id", err)
	}

	issuedOn := req.IssuedOn
	if issuedOn.IsZero() {
		issuedOn = s.now()
	}

	recordHash, err := anchor.SecureRecordHash(anchor.RecordFields{
		HolderID: req.HolderID,
		Kind:     string(req.Kind),
		Value:    req.Value,
		FileHash: req.FileHash,
	}, s.anchorSalt)
	if err != nil {
		return models.Claim{}, dErrors.Wrap(dErrors.CodeInternal, "compute record hash", err)
	}

	claim := models.Claim{
		ID:                id,
		HolderID:          req.HolderID,
		Kind:              req.Kind,
		Value:             req.Value,
		Issuer:            req.Issuer,
		IssuedOn:          issuedOn,
		Status:            models.StatusActive,
		Visible:           true,
		PreviousVersionID: req.PreviousVersionID,
		RecordHash:        recordHash,
	}

	if req.PreviousVersionID != "" {
		// Insert and predecessor flip commit together; a failure here leaves
		// the predecessor active and nothing inserted.
		if err := s.claims.InsertVersion(ctx, claim, req.PreviousVersionID); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return models.Claim{}, dErrors.New(dErrors.CodeDuplicateID, "claim id already exists: "+id)
			}
			return models.Claim{}, s.mapStoreErr(err, "supersede previous version")
		}
		s.auditor.Record(ctx, audit.ActionRevision, "claim %s superseded by %s for holder %s", req.PreviousVersionID, id, req.HolderID)
		if s.metrics != nil {
			s.metrics.ClaimsSuperseded.Inc()
		}
	} else {
		if err := s.claims.Insert(ctx, claim); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return models.Claim{}, dErrors.New(dErrors.CodeDuplicateID, "claim id already exists: "+id)
			}
			return models.Claim{}, dErrors.Wrap(dErrors.CodeInternal, "insert claim", err)
		}
		s.auditor.Record(ctx, audit.ActionMint, "claim %s (%s) minted for holder %s", id, req.Kind, req.HolderID)
	}
	if s.metrics != nil {
		s.metrics.ClaimsIssued.WithLabelValues(string(req.Kind)).Inc()
	}

	return s.anchorClaim(ctx, claim), nil
}

// anchorClaim runs the prepare/sign/send/confirm round trip against the
// ledger and attaches the transaction id on success. It uses its own timeout
// so a slow ledger cannot hold the caller's request open.
func (s *Service) anchorClaim(ctx context.Context, claim models.Claim) models.Claim {
	if s.ledger == nil {
		return claim
	}

	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.anchorTimeout)
	defer cancel()

	started := s.now()
	txID, err := s.submitToLedger(actx, claim)
	if s.metrics != nil {
		s.metrics.AnchorDuration.Observe(time.Since(started).Seconds())
	}
	if err != nil {
		s.logger.WarnContext(ctx, "ledger anchoring failed",
			slog.String("claim_id", claim.ID),
			slog.String("error", err.Error()))
		s.auditor.Record(ctx, audit.ActionAnchorFailed, "anchoring failed for claim %s: %v", claim.ID, err)
		if s.metrics != nil {
			s.metrics.AnchorFailures.Inc()
		}
		return claim
	}

	updated, err := s.claims.Update(ctx, claim.ID, func(c *models.Claim) error {
		c.ExternalAnchorID = txID
		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "attach anchor id failed",
			slog.String("claim_id", claim.ID),
			slog.String("tx_id", txID),
			slog.String("error", err.Error()))
		return claim
	}
	return updated
}

func (s *Service) submitToLedger(ctx context.Context, claim models.Claim) (string, error) {
	txn, err := s.ledger.PrepareTransaction(ctx, s.anchorWallet, claim.RecordHash, map[string]string{
		"holder": claim.HolderID,
		"kind":   string(claim.Kind),
	})
	if err != nil {
		return "", err
	}
	signed, err := s.ledger.Sign(ctx, txn)
	if err != nil {
		return "", err
	}
	txID, err := s.ledger.Send(ctx, signed)
	if err != nil {
		return "", err
	}
	if _, err := s.ledger.WaitForConfirmation(ctx, txID); err != nil {
		return "", err
	}
	return txID, nil
}

// Revoke moves a claim to the revoked state with a mandatory reason.
func (s *Service) Revoke(ctx context.Context, id, reason string) (models.Claim, error) {
	if reason == "" {
		return models.Claim{}, dErrors.New(dErrors.CodeBadRequest, "revocation reason must not be empty")
	}

	current, err := s.claims.Get(ctx, id)
	if err != nil {
		return models.Claim{}, s.mapStoreErr(err, "load claim")
	}
	if current.Status.Terminal() {
		return models.Claim{}, dErrors.New(dErrors.CodeAlreadyTerminal, "claim is already "+string(current.Status)+": "+id)
	}

	revokedAt := s.now()
	claim, err := s.claims.Update(ctx, id, func(c *models.Claim) error {
		c.Status = models.StatusRevoked
		c.RevocationReason = reason
		c.RevokedAt = revokedAt
		return nil
	})
	if err != nil {
		return models.Claim{}, s.mapStoreErr(err, "revoke claim")
	}

	s.auditor.Record(ctx, audit.ActionRevoke, "claim %s revoked: %s", id, reason)
	if s.metrics != nil {
		s.metrics.ClaimsRevoked.Inc()
	}
	return claim, nil
}

// SetVisibility sets whether a claim appears in share tokens and holder
// views. Works in every lifecycle state, including terminal ones.
func (s *Service) SetVisibility(ctx context.Context, id string, visible bool) (models.Claim, error) {
	claim, err := s.claims.Update(ctx, id, func(c *models.Claim) error {
		c.Visible = visible
		return nil
	})
	if err != nil {
		return models.Claim{}, s.mapStoreErr(err, "set visibility")
	}

	s.auditor.Record(ctx, audit.ActionVisibilityToggle, "claim %s visibility set to %t", id, visible)
	return claim, nil
}

// Get returns one claim by id.
func (s *Service) Get(ctx context.Context, id string) (models.Claim, error) {
	claim, err := s.claims.Get(ctx, id)
	if err != nil {
		return models.Claim{}, s.mapStoreErr(err, "load claim")
	}
	return claim, nil
}

// ListByHolder returns every claim for a holder in insertion order.
func (s *Service) ListByHolder(ctx context.Context, holderID string) ([]models.Claim, error) {
	claims, err := s.claims.ListByHolder(ctx, holderID)
	if err != nil {
		return nil, s.mapStoreErr(err, "list claims")
	}
	return claims, nil
}

// VersionChain walks the version links from the given claim back to the
// first version and forward to the head, returning the chain oldest first.
func (s *Service) VersionChain(ctx context.Context, id string) ([]models.Claim, error) {
	claim, err := s.claims.Get(ctx, id)
	if err != nil {
		return nil, s.mapStoreErr(err, "load claim")
	}

	seen := map[string]bool{claim.ID: true}
	chain := []models.Claim{claim}
	for cur := claim; cur.PreviousVersionID != ""; {
		prev, err := s.claims.Get(ctx, cur.PreviousVersionID)
		if err != nil {
			return nil, s.mapStoreErr(err, "walk version chain")
		}
		if seen[prev.ID] {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "version chain contains a cycle at "+prev.ID)
		}
		seen[prev.ID] = true
		chain = append([]models.Claim{prev}, chain...)
		cur = prev
	}
	for cur := claim; cur.NextVersionID != ""; {
		next, err := s.claims.Get(ctx, cur.NextVersionID)
		if err != nil {
			return nil, s.mapStoreErr(err, "walk version chain")
		}
		if seen[next.ID] {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "version chain contains a cycle at "+next.ID)
		}
		seen[next.ID] = true
		chain = append(chain, next)
		cur = next
	}
	return chain, nil
}

// RegisterHolder saves or replaces a holder profile.
func (s *Service) RegisterHolder(ctx context.Context, holder models.Holder) error {
	if holder.ID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "holder id must not be empty")
	}
	if err := s.holders.Save(ctx, holder); err != nil {
		return s.mapStoreErr(err, "save holder")
	}
	return nil
}

// GetHolder resolves a holder profile by id.
func (s *Service) GetHolder(ctx context.Context, id string) (models.Holder, error) {
	holder, err := s.holders.FindByID(ctx, id)
	if err != nil {
		return models.Holder{}, s.mapStoreErr(err, "load holder")
	}
	return holder, nil
}

func (s *Service) mapStoreErr(err error, op string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(dErrors.CodeNotFound, op, err)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(dErrors.CodeDuplicateID, op, err)
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(dErrors.CodeInvariantViolation, op, err)
	default:
		return dErrors.Wrap(dErrors.CodeInternal, op, err)
	}
}
