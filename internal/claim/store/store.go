// Package store holds claim persistence. Stores are interface-driven so the
// lifecycle engine stays testable and the in-memory and Postgres
// implementations can be swapped without rewiring business code.
package store

import (
	"context"

	"credvault/internal/claim/models"
)

// Mutator applies a field-level change to a claim. It receives a copy; the
// store decides whether the mutated copy preserves the lifecycle invariants
// before committing it.
type Mutator func(c *models.Claim) error

// ClaimStore is the credential store: insertion-ordered, keyed by id.
// Implementations must reject any write that would break the lifecycle
// invariants and must leave the store unchanged on failure.
type ClaimStore interface {
	Insert(ctx context.Context, claim models.Claim) error
	// InsertVersion inserts a new active claim and flips its predecessor to
	// superseded in one atomic step, linking both directions. Failure at any
	// point leaves neither change committed.
	InsertVersion(ctx context.Context, claim models.Claim, previousID string) error
	Get(ctx context.Context, id string) (models.Claim, error)
	ListByHolder(ctx context.Context, holderID string) ([]models.Claim, error)
	ListByIssuer(ctx context.Context, issuer string) ([]models.Claim, error)
	ListByStatus(ctx context.Context, status models.Status) ([]models.Claim, error)
	Update(ctx context.Context, id string, mutate Mutator) (models.Claim, error)
}

// HolderStore resolves holder display data for tokens and registry lookups.
type HolderStore interface {
	Save(ctx context.Context, holder models.Holder) error
	FindByID(ctx context.Context, id string) (models.Holder, error)
	FindByEmail(ctx context.Context, email string) (models.Holder, error)
}
