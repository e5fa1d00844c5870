package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Recorder captures structured audit entries. It is append-only and uses the
// store layer for persistence so tests can swap sinks easily. Recording
// failures are logged, never propagated: a broken audit sink must not block
// a lifecycle operation that already committed.
type Recorder struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// Option configures the Recorder.
type Option func(*Recorder)

// WithClock overrides the timestamp source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

func NewRecorder(store Store, logger *slog.Logger, opts ...Option) *Recorder {
	r := &Recorder{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends an entry, stamping it if the caller did not.
func (r *Recorder) Record(ctx context.Context, action Action, format string, args ...any) {
	entry := Entry{
		Action:    action,
		Metadata:  fmt.Sprintf(format, args...),
		Timestamp: r.now(),
	}
	if err := r.store.Append(ctx, entry); err != nil {
		r.logger.ErrorContext(ctx, "audit append failed",
			"action", string(action),
			"error", err,
		)
	}
}

// List returns all entries newest-first.
func (r *Recorder) List(ctx context.Context) ([]Entry, error) {
	return r.store.List(ctx)
}
