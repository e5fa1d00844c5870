// Package audit provides the append-only trail of lifecycle and session
// events. Entries are never edited or deleted; readers always see them
// newest-first.
package audit

import (
	"context"
	"time"
)

// Action classifies an audit entry.
type Action string

const (
	ActionMint             Action = "MINT"
	ActionRevision         Action = "REVISION"
	ActionRevoke           Action = "REVOKE"
	ActionVisibilityToggle Action = "VISIBILITY_TOGGLE"
	ActionShare            Action = "SHARE"
	ActionVerify           Action = "VERIFY"
	ActionAnchorFailed     Action = "ANCHOR_FAILED"
	ActionLogin            Action = "LOGIN"
	ActionLogout           Action = "LOGOUT"
)

// Category groups actions for retention and routing. Compliance events have
// regulatory weight and go through the durable outbox path; operational
// events may be sampled.
type Category string

const (
	CategoryCompliance Category = "compliance"
	CategorySecurity   Category = "security"
	CategoryOperations Category = "operations"
)

var actionCategories = map[Action]Category{
	ActionMint:             CategoryCompliance,
	ActionRevision:         CategoryCompliance,
	ActionRevoke:           CategoryCompliance,
	ActionVisibilityToggle: CategoryOperations,
	ActionShare:            CategoryOperations,
	ActionVerify:           CategoryOperations,
	ActionAnchorFailed:     CategoryOperations,
	ActionLogin:            CategorySecurity,
	ActionLogout:           CategorySecurity,
}

// Category returns the routing category for the action.
func (a Action) Category() Category {
	if c, ok := actionCategories[a]; ok {
		return c
	}
	return CategoryOperations
}

// Entry is one audit record. Metadata is free text meant for a human reader.
type Entry struct {
	Action    Action    `json:"action"`
	Metadata  string    `json:"metadata"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is the audit sink. Append must preserve insertion order; List
// returns entries newest-first.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	List(ctx context.Context) ([]Entry, error)
}
