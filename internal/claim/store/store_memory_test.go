package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"credvault/internal/claim/models"
	"credvault/pkg/platform/sentinel"
)

type InMemoryClaimStoreSuite struct {
	suite.Suite
	store *InMemoryClaimStore
	ctx   context.Context
}

func TestInMemoryClaimStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryClaimStoreSuite))
}

func (s *InMemoryClaimStoreSuite) SetupTest() {
	s.store = NewInMemoryClaimStore()
	s.ctx = context.Background()
}

func (s *InMemoryClaimStoreSuite) claim(id, holder string) models.Claim {
	return models.Claim{
		ID:       id,
		HolderID: holder,
		Kind:     models.KindTranscript,
		Value:    "Sem 5 - 7.2",
		Issuer:   "Exam Cell",
		IssuedOn: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Status:   models.StatusActive,
		Visible:  true,
	}
}

func (s *InMemoryClaimStoreSuite) TestInsert() {
	s.Run("inserts active claim", func() {
		s.Require().NoError(s.store.Insert(s.ctx, s.claim("C1", "H1")))
		got, err := s.store.Get(s.ctx, "C1")
		s.Require().NoError(err)
		s.Equal(models.StatusActive, got.Status)
	})

	s.Run("rejects duplicate id", func() {
		s.Require().NoError(s.store.Insert(s.ctx, s.claim("C2", "H1")))
		err := s.store.Insert(s.ctx, s.claim("C2", "H1"))
		s.Require().Error(err)
		s.True(errors.Is(err, sentinel.ErrConflict))
	})

	s.Run("rejects non-active initial status", func() {
		c := s.claim("C3", "H1")
		c.Status = models.StatusRevoked
		err := s.store.Insert(s.ctx, c)
		s.True(errors.Is(err, sentinel.ErrInvalidState))
	})
}

func (s *InMemoryClaimStoreSuite) TestGet() {
	s.Run("unknown id is not found", func() {
		_, err := s.store.Get(s.ctx, "nope")
		s.True(errors.Is(err, sentinel.ErrNotFound))
	})
}

func (s *InMemoryClaimStoreSuite) TestListPreservesInsertionOrder() {
	for _, id := range []string{"C1", "C2", "C3"} {
		s.Require().NoError(s.store.Insert(s.ctx, s.claim(id, "H1")))
	}
	out, err := s.store.ListByHolder(s.ctx, "H1")
	s.Require().NoError(err)
	s.Require().Len(out, 3)
	s.Equal("C1", out[0].ID)
	s.Equal("C3", out[2].ID)
}

func (s *InMemoryClaimStoreSuite) TestListFilters() {
	a := s.claim("C1", "H1")
	b := s.claim("C2", "H2")
	b.Issuer = "Registrar"
	s.Require().NoError(s.store.Insert(s.ctx, a))
	s.Require().NoError(s.store.Insert(s.ctx, b))

	s.Run("by holder", func() {
		out, err := s.store.ListByHolder(s.ctx, "H2")
		s.Require().NoError(err)
		s.Require().Len(out, 1)
		s.Equal("C2", out[0].ID)
	})

	s.Run("by issuer is case insensitive", func() {
		out, err := s.store.ListByIssuer(s.ctx, "registrar")
		s.Require().NoError(err)
		s.Len(out, 1)
	})

	s.Run("by status", func() {
		out, err := s.store.ListByStatus(s.ctx, models.StatusActive)
		s.Require().NoError(err)
		s.Len(out, 2)
	})
}

func (s *InMemoryClaimStoreSuite) TestUpdateInvariants() {
	s.Require().NoError(s.store.Insert(s.ctx, s.claim("C1", "H1")))

	s.Run("mutator error leaves store unchanged", func() {
		_, err := s.store.Update(s.ctx, "C1", func(c *models.Claim) error {
			c.Value = "changed"
			return errors.New("boom")
		})
		s.Require().Error(err)
		got, _ := s.store.Get(s.ctx, "C1")
		s.Equal("Sem 5 - 7.2", got.Value)
	})

	s.Run("revocation requires a reason", func() {
		_, err := s.store.Update(s.ctx, "C1", func(c *models.Claim) error {
			c.Status = models.StatusRevoked
			return nil
		})
		s.True(errors.Is(err, sentinel.ErrInvalidState))
	})

	s.Run("terminal status never changes again", func() {
		_, err := s.store.Update(s.ctx, "C1", func(c *models.Claim) error {
			c.Status = models.StatusRevoked
			c.RevocationReason = "data entry error"
			return nil
		})
		s.Require().NoError(err)

		_, err = s.store.Update(s.ctx, "C1", func(c *models.Claim) error {
			c.Status = models.StatusActive
			return nil
		})
		s.True(errors.Is(err, sentinel.ErrInvalidState))
	})

	s.Run("revocation reason is immutable", func() {
		_, err := s.store.Update(s.ctx, "C1", func(c *models.Claim) error {
			c.RevocationReason = "rewritten"
			return nil
		})
		s.True(errors.Is(err, sentinel.ErrInvalidState))
	})

	s.Run("revoked claim cannot gain a successor", func() {
		_, err := s.store.Update(s.ctx, "C1", func(c *models.Claim) error {
			c.NextVersionID = "C9"
			return nil
		})
		s.True(errors.Is(err, sentinel.ErrInvalidState))
	})

	s.Run("visibility still toggles on a revoked claim", func() {
		got, err := s.store.Update(s.ctx, "C1", func(c *models.Claim) error {
			c.Visible = !c.Visible
			return nil
		})
		s.Require().NoError(err)
		s.False(got.Visible)
	})
}

func (s *InMemoryClaimStoreSuite) TestVersionLinkRules() {
	s.Require().NoError(s.store.Insert(s.ctx, s.claim("C1", "H1")))
	s.Require().NoError(s.store.Insert(s.ctx, s.claim("C2", "H1")))

	s.Run("superseded requires successor", func() {
		_, err := s.store.Update(s.ctx, "C1", func(c *models.Claim) error {
			c.Status = models.StatusSuperseded
			return nil
		})
		s.True(errors.Is(err, sentinel.ErrInvalidState))
	})

	s.Run("links set exactly once", func() {
		_, err := s.store.Update(s.ctx, "C1", func(c *models.Claim) error {
			c.Status = models.StatusSuperseded
			c.NextVersionID = "C2"
			return nil
		})
		s.Require().NoError(err)
		_, err = s.store.Update(s.ctx, "C2", func(c *models.Claim) error {
			c.PreviousVersionID = "C1"
			return nil
		})
		s.Require().NoError(err)

		_, err = s.store.Update(s.ctx, "C2", func(c *models.Claim) error {
			c.PreviousVersionID = "C9"
			return nil
		})
		s.True(errors.Is(err, sentinel.ErrInvalidState))
	})

	s.Run("no self reference", func() {
		s.Require().NoError(s.store.Insert(s.ctx, s.claim("C3", "H1")))
		_, err := s.store.Update(s.ctx, "C3", func(c *models.Claim) error {
			c.PreviousVersionID = "C3"
			return nil
		})
		s.True(errors.Is(err, sentinel.ErrInvalidState))
	})
}

func (s *InMemoryClaimStoreSuite) TestInsertVersion() {
	s.Run("commits insert and predecessor flip together", func() {
		s.Require().NoError(s.store.Insert(s.ctx, s.claim("C1", "H1")))

		next := s.claim("C2", "H1")
		next.PreviousVersionID = "C1"
		s.Require().NoError(s.store.InsertVersion(s.ctx, next, "C1"))

		old, err := s.store.Get(s.ctx, "C1")
		s.Require().NoError(err)
		s.Equal(models.StatusSuperseded, old.Status)
		s.Equal("C2", old.NextVersionID)

		head, err := s.store.Get(s.ctx, "C2")
		s.Require().NoError(err)
		s.Equal(models.StatusActive, head.Status)
		s.Equal("C1", head.PreviousVersionID)
	})

	s.Run("terminal predecessor leaves store unchanged", func() {
		s.Require().NoError(s.store.Insert(s.ctx, s.claim("C3", "H2")))
		_, err := s.store.Update(s.ctx, "C3", func(c *models.Claim) error {
			c.Status = models.StatusRevoked
			c.RevocationReason = "issued in error"
			return nil
		})
		s.Require().NoError(err)

		next := s.claim("C4", "H2")
		next.PreviousVersionID = "C3"
		err = s.store.InsertVersion(s.ctx, next, "C3")
		s.True(errors.Is(err, sentinel.ErrInvalidState))

		_, err = s.store.Get(s.ctx, "C4")
		s.True(errors.Is(err, sentinel.ErrNotFound))
		out, err := s.store.ListByHolder(s.ctx, "H2")
		s.Require().NoError(err)
		s.Require().Len(out, 1)
		s.Equal(models.StatusRevoked, out[0].Status)
	})

	s.Run("missing predecessor inserts nothing", func() {
		next := s.claim("C5", "H3")
		next.PreviousVersionID = "C404"
		err := s.store.InsertVersion(s.ctx, next, "C404")
		s.True(errors.Is(err, sentinel.ErrNotFound))

		_, err = s.store.Get(s.ctx, "C5")
		s.True(errors.Is(err, sentinel.ErrNotFound))
	})

	s.Run("duplicate id leaves predecessor active", func() {
		s.Require().NoError(s.store.Insert(s.ctx, s.claim("C6", "H4")))
		s.Require().NoError(s.store.Insert(s.ctx, s.claim("C7", "H4")))

		dup := s.claim("C7", "H4")
		dup.PreviousVersionID = "C6"
		err := s.store.InsertVersion(s.ctx, dup, "C6")
		s.True(errors.Is(err, sentinel.ErrConflict))

		old, err := s.store.Get(s.ctx, "C6")
		s.Require().NoError(err)
		s.Equal(models.StatusActive, old.Status)
		s.Empty(old.NextVersionID)
	})
}

func TestSeedDemoData(t *testing.T) {
	claims := NewInMemoryClaimStore()
	holders := NewInMemoryHolderStore()
	SeedDemoData(claims, holders)

	ctx := context.Background()

	old, err := claims.Get(ctx, "C006")
	if err != nil {
		t.Fatalf("seeded chain predecessor missing: %v", err)
	}
	if old.Status != models.StatusSuperseded || old.NextVersionID != "C007" {
		t.Fatalf("C006 should be superseded by C007, got %+v", old)
	}

	head, err := claims.Get(ctx, "C007")
	if err != nil {
		t.Fatalf("seeded chain head missing: %v", err)
	}
	if head.Status != models.StatusActive || head.PreviousVersionID != "C006" {
		t.Fatalf("C007 should be the active head, got %+v", head)
	}

	if _, err := holders.FindByEmail(ctx, "RAVI@credvault.test"); err != nil {
		t.Fatalf("holder email lookup should be case insensitive: %v", err)
	}
}
