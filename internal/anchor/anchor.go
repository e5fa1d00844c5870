// Package anchor models the external ledger collaborator. The lifecycle
// engine calls it after local state has committed; a failure here leaves the
// claim valid locally, just without an external anchor id.
package anchor

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

// Txn is an unsigned ledger transaction carrying the record hash in its note.
type Txn struct {
	Sender   string
	Hash     string
	Metadata map[string]string
	Prepared time.Time
}

// SignedTxn wraps a Txn after wallet approval.
type SignedTxn struct {
	Txn       Txn
	Signature string
}

// Receipt confirms a transaction landed in a block.
type Receipt struct {
	TxID        string
	ConfirmedAt time.Time
	Round       uint64
}

//go:generate mockgen -source=anchor.go -destination=mocks/mocks.go -package=mocks Ledger

// Ledger is the opaque external consensus service. Every call honors context
// cancellation; callers own the timeout.
type Ledger interface {
	PrepareTransaction(ctx context.Context, sender, hash string, metadata map[string]string) (Txn, error)
	Sign(ctx context.Context, txn Txn) (SignedTxn, error)
	Send(ctx context.Context, signed SignedTxn) (string, error)
	WaitForConfirmation(ctx context.Context, txID string) (Receipt, error)
}

// SimulatedLedger stands in for the real network in demos and tests. It
// models propagation latency as a context-aware wait rather than a fixed
// sleep, so cancellation and timeouts behave like they would against the
// real collaborator.
type SimulatedLedger struct {
	latency time.Duration
	round   atomic.Uint64
}

// minHashLen keeps Sign's signature derivation (the first hash characters)
// in bounds for every prepared transaction.
const minHashLen = 8

func NewSimulatedLedger(latency time.Duration) *SimulatedLedger {
	return &SimulatedLedger{latency: latency}
}

func (l *SimulatedLedger) wait(ctx context.Context) error {
	if l.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(l.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (l *SimulatedLedger) PrepareTransaction(ctx context.Context, sender, hash string, metadata map[string]string) (Txn, error) {
	if err := l.wait(ctx); err != nil {
		return Txn{}, fmt.Errorf("prepare transaction: %w", err)
	}
	// Record hashes are hex sha256 digests; anything shorter is a caller bug.
	if len(hash) < minHashLen {
		return Txn{}, fmt.Errorf("prepare transaction: record hash too short (%d chars)", len(hash))
	}
	return Txn{Sender: sender, Hash: hash, Metadata: metadata, Prepared: time.Now()}, nil
}

func (l *SimulatedLedger) Sign(ctx context.Context, txn Txn) (SignedTxn, error) {
	if err := l.wait(ctx); err != nil {
		return SignedTxn{}, fmt.Errorf("sign transaction: %w", err)
	}
	return SignedTxn{Txn: txn, Signature: "SIM_" + txn.Hash[:8]}, nil
}

func (l *SimulatedLedger) Send(ctx context.Context, signed SignedTxn) (string, error) {
	if err := l.wait(ctx); err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}
	return "TX" + hex.EncodeToString(buf), nil
}

func (l *SimulatedLedger) WaitForConfirmation(ctx context.Context, txID string) (Receipt, error) {
	if err := l.wait(ctx); err != nil {
		return Receipt{}, fmt.Errorf("wait for confirmation: %w", err)
	}
	return Receipt{TxID: txID, ConfirmedAt: time.Now(), Round: l.round.Add(1)}, nil
}
