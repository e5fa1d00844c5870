package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"credvault/internal/anchor"
	"credvault/internal/anchor/mocks"
	"credvault/internal/audit"
	auditstore "credvault/internal/audit/store"
	"credvault/internal/claim/models"
	"credvault/internal/claim/store"
	dErrors "credvault/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite

	ctx     context.Context
	claims  *store.InMemoryClaimStore
	holders *store.InMemoryHolderStore
	entries *auditstore.InMemoryStore
	svc     *Service
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.claims = store.NewInMemoryClaimStore()
	s.holders = store.NewInMemoryHolderStore()
	s.entries = auditstore.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := audit.NewRecorder(s.entries, logger)
	s.svc = New(s.claims, s.holders, recorder, WithLogger(logger))
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) issue(holderID string, kind models.Kind, value string) models.Claim {
	claim, err := s.svc.Issue(s.ctx, IssueRequest{
		HolderID: holderID,
		Kind:     kind,
		Value:    value,
		Issuer:   "Registrar Office",
	})
	s.Require().NoError(err)
	return claim
}

func (s *ServiceSuite) lastAudit() audit.Entry {
	entries, err := s.entries.List(s.ctx)
	s.Require().NoError(err)
	s.Require().NotEmpty(entries)
	return entries[0]
}

func (s *ServiceSuite) TestIssue() {
	s.Run("mints an active visible claim", func() {
		claim := s.issue("S001", models.KindDegree, "B.Tech Computer Science")

		s.NotEmpty(claim.ID)
		s.Equal(models.StatusActive, claim.Status)
		s.True(claim.Visible)
		s.NotEmpty(claim.RecordHash)
		s.Empty(claim.ExternalAnchorID)

		stored, err := s.claims.Get(s.ctx, claim.ID)
		s.Require().NoError(err)
		s.Equal(claim, stored)

		s.Equal(audit.ActionMint, s.lastAudit().Action)
	})

	s.Run("generated ids are unique and time ordered", func() {
		a := s.issue("S001", models.KindAward, "Dean's List 2024")
		b := s.issue("S001", models.KindAward, "Dean's List 2025")
		s.NotEqual(a.ID, b.ID)
		s.Less(a.ID, b.ID)
	})

	s.Run("rejects empty holder", func() {
		_, err := s.svc.Issue(s.ctx, IssueRequest{Kind: models.KindDegree, Value: "x"})
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})

	s.Run("rejects empty value", func() {
		_, err := s.svc.Issue(s.ctx, IssueRequest{HolderID: "S001", Kind: models.KindDegree})
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})

	s.Run("rejects unknown kind", func() {
		_, err := s.svc.Issue(s.ctx, IssueRequest{HolderID: "S001", Kind: "diploma", Value: "x"})
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})

	s.Run("duplicate id maps to duplicate code", func() {
		fixed := func() (string, error) { return "fixed-id", nil }
		recorder := audit.NewRecorder(s.entries, slog.New(slog.NewTextHandler(io.Discard, nil)))
		svc := New(s.claims, s.holders, recorder, WithIDGenerator(fixed))

		_, err := svc.Issue(s.ctx, IssueRequest{HolderID: "S001", Kind: models.KindDegree, Value: "once"})
		s.Require().NoError(err)
		_, err = svc.Issue(s.ctx, IssueRequest{HolderID: "S001", Kind: models.KindDegree, Value: "twice"})
		s.True(dErrors.Is(err, dErrors.CodeDuplicateID))
	})
}

func (s *ServiceSuite) TestIssueSupersede() {
	s.Run("links predecessor and successor both ways", func() {
		old := s.issue("S001", models.KindTranscript, "CGPA 8.1")

		next, err := s.svc.Issue(s.ctx, IssueRequest{
			HolderID:          "S001",
			Kind:              models.KindTranscript,
			Value:             "CGPA 8.4",
			PreviousVersionID: old.ID,
		})
		s.Require().NoError(err)
		s.Equal(old.ID, next.PreviousVersionID)

		oldStored, err := s.claims.Get(s.ctx, old.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusSuperseded, oldStored.Status)
		s.Equal(next.ID, oldStored.NextVersionID)

		s.Equal(audit.ActionRevision, s.lastAudit().Action)
	})

	s.Run("rejects missing predecessor", func() {
		_, err := s.svc.Issue(s.ctx, IssueRequest{
			HolderID:          "S001",
			Kind:              models.KindTranscript,
			Value:             "CGPA 9.0",
			PreviousVersionID: "nope",
		})
		s.True(dErrors.Is(err, dErrors.CodeInvalidPredecessor))
	})

	s.Run("rejects terminal predecessor", func() {
		old := s.issue("S001", models.KindClearance, "No dues")
		_, err := s.svc.Revoke(s.ctx, old.ID, "issued in error")
		s.Require().NoError(err)

		_, err = s.svc.Issue(s.ctx, IssueRequest{
			HolderID:          "S001",
			Kind:              models.KindClearance,
			Value:             "No dues v2",
			PreviousVersionID: old.ID,
		})
		s.True(dErrors.Is(err, dErrors.CodeInvalidPredecessor))
	})

	s.Run("rejects predecessor owned by another holder", func() {
		old := s.issue("S001", models.KindAward, "Gold medal")
		_, err := s.svc.Issue(s.ctx, IssueRequest{
			HolderID:          "S002",
			Kind:              models.KindAward,
			Value:             "Gold medal",
			PreviousVersionID: old.ID,
		})
		s.True(dErrors.Is(err, dErrors.CodeInvalidPredecessor))
	})
}

// flakyClaimStore fails the linked insert to model a transient storage error
// mid supersession.
type flakyClaimStore struct {
	*store.InMemoryClaimStore
	insertVersionErr error
}

func (f *flakyClaimStore) InsertVersion(ctx context.Context, claim models.Claim, previousID string) error {
	if f.insertVersionErr != nil {
		return f.insertVersionErr
	}
	return f.InMemoryClaimStore.InsertVersion(ctx, claim, previousID)
}

func (s *ServiceSuite) TestSupersedeFailureLeavesStoreUnchanged() {
	old := s.issue("S001", models.KindTranscript, "CGPA 8.1")

	flaky := &flakyClaimStore{
		InMemoryClaimStore: s.claims,
		insertVersionErr:   errors.New("connection reset by peer"),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(flaky, s.holders, audit.NewRecorder(s.entries, logger))

	_, err := svc.Issue(s.ctx, IssueRequest{
		HolderID:          "S001",
		Kind:              models.KindTranscript,
		Value:             "CGPA 8.4",
		PreviousVersionID: old.ID,
	})
	s.True(dErrors.Is(err, dErrors.CodeInternal))

	// The predecessor stays the sole, still-active version.
	claims, err := s.claims.ListByHolder(s.ctx, "S001")
	s.Require().NoError(err)
	s.Require().Len(claims, 1)
	s.Equal(old.ID, claims[0].ID)
	s.Equal(models.StatusActive, claims[0].Status)
	s.Empty(claims[0].NextVersionID)
	s.NotEqual(audit.ActionRevision, s.lastAudit().Action)
}

func (s *ServiceSuite) TestRevoke() {
	s.Run("sets reason and timestamp", func() {
		claim := s.issue("S001", models.KindDegree, "B.Tech")

		revoked, err := s.svc.Revoke(s.ctx, claim.ID, "degree rescinded")
		s.Require().NoError(err)
		s.Equal(models.StatusRevoked, revoked.Status)
		s.Equal("degree rescinded", revoked.RevocationReason)
		s.False(revoked.RevokedAt.IsZero())

		s.Equal(audit.ActionRevoke, s.lastAudit().Action)
	})

	s.Run("requires a reason", func() {
		claim := s.issue("S001", models.KindDegree, "B.Tech")
		_, err := s.svc.Revoke(s.ctx, claim.ID, "")
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})

	s.Run("unknown id maps to not found", func() {
		_, err := s.svc.Revoke(s.ctx, "missing", "whatever")
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("already terminal claims cannot be revoked again", func() {
		claim := s.issue("S001", models.KindDegree, "B.Tech")
		_, err := s.svc.Revoke(s.ctx, claim.ID, "first")
		s.Require().NoError(err)

		_, err = s.svc.Revoke(s.ctx, claim.ID, "second")
		s.True(dErrors.Is(err, dErrors.CodeAlreadyTerminal))

		stored, err := s.claims.Get(s.ctx, claim.ID)
		s.Require().NoError(err)
		s.Equal("first", stored.RevocationReason)
	})
}

func (s *ServiceSuite) TestSetVisibility() {
	s.Run("sets the flag both ways", func() {
		claim := s.issue("S001", models.KindAward, "Hackathon winner")

		hidden, err := s.svc.SetVisibility(s.ctx, claim.ID, false)
		s.Require().NoError(err)
		s.False(hidden.Visible)

		shown, err := s.svc.SetVisibility(s.ctx, claim.ID, true)
		s.Require().NoError(err)
		s.True(shown.Visible)

		s.Equal(audit.ActionVisibilityToggle, s.lastAudit().Action)
	})

	s.Run("works on revoked claims", func() {
		claim := s.issue("S001", models.KindAward, "Hackathon winner")
		_, err := s.svc.Revoke(s.ctx, claim.ID, "disqualified")
		s.Require().NoError(err)

		hidden, err := s.svc.SetVisibility(s.ctx, claim.ID, false)
		s.Require().NoError(err)
		s.False(hidden.Visible)
	})
}

func (s *ServiceSuite) TestVersionChain() {
	s.Run("walks oldest to newest from any link", func() {
		v1 := s.issue("S001", models.KindTranscript, "CGPA 7.9")
		v2, err := s.svc.Issue(s.ctx, IssueRequest{
			HolderID: "S001", Kind: models.KindTranscript, Value: "CGPA 8.2", PreviousVersionID: v1.ID,
		})
		s.Require().NoError(err)
		v3, err := s.svc.Issue(s.ctx, IssueRequest{
			HolderID: "S001", Kind: models.KindTranscript, Value: "CGPA 8.5", PreviousVersionID: v2.ID,
		})
		s.Require().NoError(err)

		chain, err := s.svc.VersionChain(s.ctx, v2.ID)
		s.Require().NoError(err)
		s.Require().Len(chain, 3)
		s.Equal(v1.ID, chain[0].ID)
		s.Equal(v2.ID, chain[1].ID)
		s.Equal(v3.ID, chain[2].ID)
		s.Equal(models.StatusActive, chain[2].Status)
	})

	s.Run("single version chain is itself", func() {
		claim := s.issue("S002", models.KindDegree, "MBA")
		chain, err := s.svc.VersionChain(s.ctx, claim.ID)
		s.Require().NoError(err)
		s.Require().Len(chain, 1)
		s.Equal(claim.ID, chain[0].ID)
	})
}

type AnchoringSuite struct {
	suite.Suite

	ctx     context.Context
	ctrl    *gomock.Controller
	ledger  *mocks.MockLedger
	claims  *store.InMemoryClaimStore
	entries *auditstore.InMemoryStore
	svc     *Service
}

func (s *AnchoringSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.ledger = mocks.NewMockLedger(s.ctrl)
	s.claims = store.NewInMemoryClaimStore()
	s.entries = auditstore.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := audit.NewRecorder(s.entries, logger)
	s.svc = New(s.claims, store.NewInMemoryHolderStore(), recorder,
		WithLogger(logger),
		WithLedger(s.ledger, "ISSUER_WALLET", "test-salt", time.Second),
	)
}

func TestAnchoringSuite(t *testing.T) {
	suite.Run(t, new(AnchoringSuite))
}

func (s *AnchoringSuite) TestAttachesAnchorID() {
	txn := anchor.Txn{Sender: "ISSUER_WALLET"}
	signed := anchor.SignedTxn{Txn: txn, Signature: "sig"}

	s.ledger.EXPECT().PrepareTransaction(gomock.Any(), "ISSUER_WALLET", gomock.Any(), gomock.Any()).Return(txn, nil)
	s.ledger.EXPECT().Sign(gomock.Any(), txn).Return(signed, nil)
	s.ledger.EXPECT().Send(gomock.Any(), signed).Return("TXABC123", nil)
	s.ledger.EXPECT().WaitForConfirmation(gomock.Any(), "TXABC123").Return(anchor.Receipt{TxID: "TXABC123"}, nil)

	claim, err := s.svc.Issue(s.ctx, IssueRequest{HolderID: "S001", Kind: models.KindDegree, Value: "B.Sc"})
	s.Require().NoError(err)
	s.Equal("TXABC123", claim.ExternalAnchorID)

	stored, err := s.claims.Get(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.Equal("TXABC123", stored.ExternalAnchorID)
}

func (s *AnchoringSuite) TestLedgerFailureDoesNotFailIssue() {
	s.ledger.EXPECT().PrepareTransaction(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(anchor.Txn{}, errors.New("network down"))

	claim, err := s.svc.Issue(s.ctx, IssueRequest{HolderID: "S001", Kind: models.KindDegree, Value: "B.Sc"})
	s.Require().NoError(err)
	s.Empty(claim.ExternalAnchorID)
	s.Equal(models.StatusActive, claim.Status)

	entries, err := s.entries.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(audit.ActionAnchorFailed, entries[0].Action)
	s.Equal(audit.ActionMint, entries[1].Action)
}

func (s *AnchoringSuite) TestSendFailureRecordsAudit() {
	txn := anchor.Txn{}
	s.ledger.EXPECT().PrepareTransaction(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(txn, nil)
	s.ledger.EXPECT().Sign(gomock.Any(), txn).Return(anchor.SignedTxn{}, nil)
	s.ledger.EXPECT().Send(gomock.Any(), gomock.Any()).Return("", fmt.Errorf("rejected"))

	claim, err := s.svc.Issue(s.ctx, IssueRequest{HolderID: "S001", Kind: models.KindAward, Value: "Medal"})
	s.Require().NoError(err)
	s.Empty(claim.ExternalAnchorID)

	entries, err := s.entries.List(s.ctx)
	s.Require().NoError(err)
	s.Equal(audit.ActionAnchorFailed, entries[0].Action)
}
