package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"credvault/internal/claim/models"
	"credvault/pkg/platform/sentinel"
)

// InMemoryClaimStore keeps claims in insertion order plus an id index.
// Writes are serialized by the mutex; readers get copies, never references
// into the backing slice, so a consistent snapshot is always observed.
type InMemoryClaimStore struct {
	mu     sync.RWMutex
	order  []string
	claims map[string]models.Claim
}

func NewInMemoryClaimStore() *InMemoryClaimStore {
	return &InMemoryClaimStore{claims: make(map[string]models.Claim)}
}

func (s *InMemoryClaimStore) Insert(_ context.Context, claim models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.claims[claim.ID]; ok {
		return fmt.Errorf("claim %s: %w", claim.ID, sentinel.ErrConflict)
	}
	if claim.Status != models.StatusActive {
		return fmt.Errorf("new claim must be active: %w", sentinel.ErrInvalidState)
	}
	s.claims[claim.ID] = claim
	s.order = append(s.order, claim.ID)
	return nil
}

// InsertVersion commits the new claim and the predecessor flip under one
// lock scope so no failure can leave two active versions in a chain.
func (s *InMemoryClaimStore) InsertVersion(_ context.Context, claim models.Claim, previousID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.claims[claim.ID]; ok {
		return fmt.Errorf("claim %s: %w", claim.ID, sentinel.ErrConflict)
	}
	if claim.Status != models.StatusActive {
		return fmt.Errorf("new claim must be active: %w", sentinel.ErrInvalidState)
	}
	old, ok := s.claims[previousID]
	if !ok {
		return fmt.Errorf("claim %s: %w", previousID, sentinel.ErrNotFound)
	}

	next := old
	next.Status = models.StatusSuperseded
	next.NextVersionID = claim.ID
	if err := checkTransition(old, next); err != nil {
		return err
	}

	s.claims[claim.ID] = claim
	s.order = append(s.order, claim.ID)
	s.claims[previousID] = next
	return nil
}

func (s *InMemoryClaimStore) Get(_ context.Context, id string) (models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.claims[id]
	if !ok {
		return models.Claim{}, fmt.Errorf("claim %s: %w", id, sentinel.ErrNotFound)
	}
	return c, nil
}

func (s *InMemoryClaimStore) ListByHolder(_ context.Context, holderID string) ([]models.Claim, error) {
	return s.list(func(c models.Claim) bool { return c.HolderID == holderID }), nil
}

func (s *InMemoryClaimStore) ListByIssuer(_ context.Context, issuer string) ([]models.Claim, error) {
	return s.list(func(c models.Claim) bool { return strings.EqualFold(c.Issuer, issuer) }), nil
}

func (s *InMemoryClaimStore) ListByStatus(_ context.Context, status models.Status) ([]models.Claim, error) {
	return s.list(func(c models.Claim) bool { return c.Status == status }), nil
}

func (s *InMemoryClaimStore) list(keep func(models.Claim) bool) []models.Claim {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Claim
	for _, id := range s.order {
		if c := s.claims[id]; keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// Update applies the mutator to a copy of the claim and commits it only if
// the result still satisfies the lifecycle invariants. On any failure the
// store is unchanged.
func (s *InMemoryClaimStore) Update(_ context.Context, id string, mutate Mutator) (models.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.claims[id]
	if !ok {
		return models.Claim{}, fmt.Errorf("claim %s: %w", id, sentinel.ErrNotFound)
	}

	next := old
	if err := mutate(&next); err != nil {
		return models.Claim{}, err
	}
	if err := checkTransition(old, next); err != nil {
		return models.Claim{}, err
	}

	s.claims[id] = next
	return next, nil
}

// checkTransition enforces the per-claim invariants a mutator could break.
// Chain-level invariants (bidirectional links, single active head) hold by
// construction because the lifecycle engine is the only caller that touches
// version links, and it links both ends under one logical operation. Both
// store implementations share this check.
func checkTransition(old, next models.Claim) error {
	switch {
	case next.ID != old.ID:
		return fmt.Errorf("claim id is immutable: %w", sentinel.ErrInvalidState)
	case next.HolderID != old.HolderID:
		return fmt.Errorf("holder id is immutable: %w", sentinel.ErrInvalidState)
	case old.Status.Terminal() && next.Status != old.Status:
		return fmt.Errorf("claim %s is %s: %w", old.ID, old.Status, sentinel.ErrInvalidState)
	case old.RevocationReason != "" && next.RevocationReason != old.RevocationReason:
		return fmt.Errorf("revocation reason is immutable: %w", sentinel.ErrInvalidState)
	case old.PreviousVersionID != "" && next.PreviousVersionID != old.PreviousVersionID:
		return fmt.Errorf("previous version link is set exactly once: %w", sentinel.ErrInvalidState)
	case old.NextVersionID != "" && next.NextVersionID != old.NextVersionID:
		return fmt.Errorf("next version link is set exactly once: %w", sentinel.ErrInvalidState)
	case next.Status == models.StatusRevoked && next.RevocationReason == "":
		return fmt.Errorf("revocation requires a reason: %w", sentinel.ErrInvalidState)
	case next.Status == models.StatusRevoked && next.NextVersionID != "":
		return fmt.Errorf("revoked claim cannot have a successor: %w", sentinel.ErrInvalidState)
	case next.Status == models.StatusSuperseded && next.NextVersionID == "":
		return fmt.Errorf("superseded claim requires a successor: %w", sentinel.ErrInvalidState)
	case next.NextVersionID != "" && next.NextVersionID == next.ID:
		return fmt.Errorf("version chain cannot self-reference: %w", sentinel.ErrInvalidState)
	case next.PreviousVersionID != "" && next.PreviousVersionID == next.ID:
		return fmt.Errorf("version chain cannot self-reference: %w", sentinel.ErrInvalidState)
	}
	return nil
}

// InMemoryHolderStore keeps holder display records.
type InMemoryHolderStore struct {
	mu      sync.RWMutex
	holders map[string]models.Holder
}

func NewInMemoryHolderStore() *InMemoryHolderStore {
	return &InMemoryHolderStore{holders: make(map[string]models.Holder)}
}

func (s *InMemoryHolderStore) Save(_ context.Context, holder models.Holder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holders[holder.ID] = holder
	return nil
}

func (s *InMemoryHolderStore) FindByID(_ context.Context, id string) (models.Holder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.holders[id]
	if !ok {
		return models.Holder{}, fmt.Errorf("holder %s: %w", id, sentinel.ErrNotFound)
	}
	return h, nil
}

func (s *InMemoryHolderStore) FindByEmail(_ context.Context, email string) (models.Holder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, h := range s.holders {
		if strings.EqualFold(h.Email, email) {
			return h, nil
		}
	}
	return models.Holder{}, fmt.Errorf("holder %s: %w", email, sentinel.ErrNotFound)
}
