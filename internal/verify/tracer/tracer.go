// Package tracer is a small tracing abstraction for the verify module. The
// verifier emits spans per verification attempt without depending on
// OpenTelemetry APIs directly; tests use the no-op implementation.
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, recording any error that occurred. It must be
	// called exactly once, typically via defer.
	End(err error)

	// SetAttributes adds key-value pairs to the span.
	SetAttributes(attrs ...Attribute)

	// AddEvent records a timestamped event within the span.
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute is a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// HashHolderID returns a truncated SHA-256 of the holder id, so traces can
// be correlated without carrying the raw identifier.
func HashHolderID(holderID string) string {
	if holderID == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(holderID))
	return hex.EncodeToString(hash[:8])
}

// Span names used by the verify module.
const (
	SpanVerifyToken  = "verify.token"
	SpanVerifyLookup = "verify.lookup"
)

// Attribute keys used by the verify module.
const (
	AttrHolderID   = "holder_id"
	AttrOutcome    = "outcome"
	AttrReason     = "reason"
	AttrClaimCount = "claim_count"
)

// Event names used by the verify module.
const (
	EventParsed       = "token.parsed"
	EventShapeChecked = "token.shape_checked"
	EventExpiryPassed = "token.expiry_checked"
	EventResolved     = "holder.resolved"
)
