// Package verify decides whether a presented share token or a direct holder
// lookup yields a valid, current credential set. Each attempt walks a fixed
// pipeline and lands on a terminal outcome; rejected attempts report a reason
// and are never retried automatically.
package verify

import (
	"context"
	"errors"
	"time"

	"credvault/internal/audit"
	"credvault/internal/claim/models"
	"credvault/internal/claim/store"
	"credvault/internal/platform/metrics"
	"credvault/internal/token"
	"credvault/internal/verify/tracer"
	"credvault/pkg/platform/sentinel"
)

// Stage is how far an attempt progressed before terminating.
type Stage string

const (
	StageReceived      Stage = "received"
	StageParsed        Stage = "parsed"
	StageShapeChecked  Stage = "shape_checked"
	StageExpiryChecked Stage = "expiry_checked"
	StageResolved      Stage = "resolved"
)

// Outcome is the terminal result of an attempt.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
)

// Reason explains a rejection.
type Reason string

const (
	ReasonMalformedToken   Reason = "malformed_token"
	ReasonInvalidSignature Reason = "invalid_signature"
	ReasonExpired          Reason = "expired"
)

// Result is the full record of one verification attempt.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Stage   Stage   `json:"stage"`
	Reason  Reason  `json:"reason,omitempty"`

	HolderID   string            `json:"holderId,omitempty"`
	HolderName string            `json:"holderName,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`

	// StoreMatch reports whether the holder was found locally. A token with
	// no store match is still accepted: the embedded snapshot was
	// holder-approved at issuance time.
	StoreMatch bool                `json:"storeMatch"`
	Claims     []token.SharedClaim `json:"claims"`
	CheckedAt  time.Time           `json:"checkedAt"`
}

func (r Result) Accepted() bool { return r.Outcome == OutcomeAccepted }

// Verifier runs verification attempts. The claim and holder stores are
// optional; a verifier without them can still validate token snapshots.
type Verifier struct {
	claims  store.ClaimStore
	holders store.HolderStore
	auditor *audit.Recorder
	tracer  tracer.Tracer
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Verifier)

func WithStores(claims store.ClaimStore, holders store.HolderStore) Option {
	return func(v *Verifier) {
		v.claims = claims
		v.holders = holders
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(v *Verifier) { v.tracer = t }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Verifier) { v.metrics = m }
}

// WithClock overrides the timestamp source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

func New(auditor *audit.Recorder, opts ...Option) *Verifier {
	v := &Verifier{
		auditor: auditor,
		tracer:  tracer.NewNoop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// VerifyToken validates a serialized share token. Rejection is a normal
// outcome carried in the Result, not an error; the error return is reserved
// for infrastructure failures.
func (v *Verifier) VerifyToken(ctx context.Context, serialized string) (Result, error) {
	ctx, span := v.tracer.Start(ctx, tracer.SpanVerifyToken)
	defer span.End(nil)

	now := v.now()
	result := Result{Stage: StageReceived, CheckedAt: now}

	tok, err := token.Deserialize(serialized)
	if err != nil {
		return v.reject(ctx, span, result, ReasonMalformedToken), nil
	}
	result.Stage = StageParsed
	result.HolderID = tok.HolderID
	result.HolderName = tok.HolderName
	result.Attributes = tok.Attributes
	result.Claims = tok.Claims
	span.AddEvent(tracer.EventParsed)
	span.SetAttributes(tracer.String(tracer.AttrHolderID, tracer.HashHolderID(tok.HolderID)))

	if tok.HolderID == "" || tok.Signature != token.SignatureFor(tok.HolderID, tok.Expiry) {
		return v.reject(ctx, span, result, ReasonInvalidSignature), nil
	}
	result.Stage = StageShapeChecked
	span.AddEvent(tracer.EventShapeChecked)

	if now.After(tok.ExpiresAt()) {
		return v.reject(ctx, span, result, ReasonExpired), nil
	}
	result.Stage = StageExpiryChecked
	span.AddEvent(tracer.EventExpiryPassed)

	if v.holders != nil {
		holder, err := v.holders.FindByID(ctx, tok.HolderID)
		switch {
		case err == nil:
			result.StoreMatch = true
			result.HolderName = holder.Name
			result.Attributes = holder.Attributes()
		case !errors.Is(err, sentinel.ErrNotFound):
			return Result{}, err
		}
	}
	result.Stage = StageResolved
	span.AddEvent(tracer.EventResolved, tracer.Bool("store_match", result.StoreMatch))

	return v.accept(ctx, span, result), nil
}

// VerifyHolder is the direct registry lookup path: all active, visible
// claims for the holder. Zero claims is a valid accepted outcome.
func (v *Verifier) VerifyHolder(ctx context.Context, holderID string) (Result, error) {
	ctx, span := v.tracer.Start(ctx, tracer.SpanVerifyLookup,
		tracer.String(tracer.AttrHolderID, tracer.HashHolderID(holderID)))
	defer span.End(nil)

	result := Result{Stage: StageReceived, HolderID: holderID, CheckedAt: v.now()}

	if v.holders != nil {
		holder, err := v.holders.FindByID(ctx, holderID)
		switch {
		case err == nil:
			result.StoreMatch = true
			result.HolderName = holder.Name
			result.Attributes = holder.Attributes()
		case !errors.Is(err, sentinel.ErrNotFound):
			return Result{}, err
		}
	}

	if v.claims != nil {
		claims, err := v.claims.ListByHolder(ctx, holderID)
		if err != nil {
			return Result{}, err
		}
		for _, c := range claims {
			if !c.Visible || c.Status != models.StatusActive {
				continue
			}
			result.Claims = append(result.Claims, token.SharedClaim{
				Kind:     string(c.Kind),
				Value:    c.Value,
				Issuer:   c.Issuer,
				IssuedOn: c.IssuedOn.Format("2006-01-02"),
			})
		}
	}
	result.Stage = StageResolved

	return v.accept(ctx, span, result), nil
}

func (v *Verifier) accept(ctx context.Context, span tracer.Span, result Result) Result {
	result.Outcome = OutcomeAccepted
	span.SetAttributes(
		tracer.String(tracer.AttrOutcome, string(OutcomeAccepted)),
		tracer.Int64(tracer.AttrClaimCount, int64(len(result.Claims))),
	)
	v.auditor.Record(ctx, audit.ActionVerify, "verification accepted for holder %s with %d claims", result.HolderID, len(result.Claims))
	v.metrics.RecordVerification(string(OutcomeAccepted))
	return result
}

func (v *Verifier) reject(ctx context.Context, span tracer.Span, result Result, reason Reason) Result {
	result.Outcome = OutcomeRejected
	result.Reason = reason
	span.SetAttributes(
		tracer.String(tracer.AttrOutcome, string(OutcomeRejected)),
		tracer.String(tracer.AttrReason, string(reason)),
	)
	v.auditor.Record(ctx, audit.ActionVerify, "verification rejected at stage %s: %s", result.Stage, reason)
	v.metrics.RecordVerification(string(reason))
	return result
}
