// Package models defines the claim record and its lifecycle vocabulary.
// Claims are the central entity: a single assertion about a holder issued by
// an authority, moving through Active → Revoked or Active → Superseded.
package models

import (
	"fmt"
	"time"
)

// Status is a claim's lifecycle state. Revoked and Superseded are terminal
// for a given version: a claim never leaves them once set.
type Status string

const (
	StatusActive     Status = "active"
	StatusRevoked    Status = "revoked"
	StatusSuperseded Status = "superseded"
)

// Terminal reports whether the status can never change again.
func (s Status) Terminal() bool {
	return s == StatusRevoked || s == StatusSuperseded
}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusRevoked, StatusSuperseded:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown claim status: %s", s)
}

// Kind is the closed set of claim categories.
type Kind string

const (
	KindTranscript  Kind = "transcript"
	KindDegree      Kind = "degree"
	KindClearance   Kind = "clearance"
	KindAward       Kind = "award"
	KindEmployment  Kind = "employment_verification"
	KindCertificate Kind = "generic_certificate"
)

var validKinds = map[Kind]struct{}{
	KindTranscript:  {},
	KindDegree:      {},
	KindClearance:   {},
	KindAward:       {},
	KindEmployment:  {},
	KindCertificate: {},
}

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := validKinds[k]; !ok {
		return "", fmt.Errorf("unknown claim kind: %s", s)
	}
	return k, nil
}

// Claim is one assertion about a holder. Version links form a simple linked
// list: at most one predecessor and one successor, never a tree.
type Claim struct {
	ID       string
	HolderID string
	Kind     Kind
	Value    string
	Issuer   string
	IssuedOn time.Time

	Status  Status
	Visible bool

	// RevocationReason is set exactly once, together with Status=Revoked.
	RevocationReason string
	RevokedAt        time.Time

	// PreviousVersionID / NextVersionID link the version chain. Each is set
	// at most once and never cleared.
	PreviousVersionID string
	NextVersionID     string

	// ExternalAnchorID is the ledger transaction id attached after a
	// successful best-effort anchoring. Empty means anchoring failed or has
	// not happened; the claim is still valid locally.
	ExternalAnchorID string

	// RecordHash is the salted composite hash computed at issue time and
	// submitted to the ledger collaborator.
	RecordHash string
}

// Holder is the subject of one or more claims.
type Holder struct {
	ID    string
	Name  string
	Email string
	Batch string
	Dept  string
}

// Attributes returns the display attributes embedded in share tokens.
func (h Holder) Attributes() map[string]string {
	return map[string]string{
		"batch": h.Batch,
		"dept":  h.Dept,
	}
}
