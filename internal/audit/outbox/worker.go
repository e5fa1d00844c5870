// Package outbox publishes audit events from the Postgres outbox table to
// Kafka. Kafka is the durable home for compliance events; the outbox table
// guarantees nothing is lost between the lifecycle commit and delivery.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"credvault/internal/audit/store"
)

const defaultBatchSize = 100

// Worker drains unpublished outbox rows and produces them to the audit
// topic. Rows are marked published only after the broker acknowledges them,
// so a crash re-sends rather than drops (consumers must tolerate duplicates).
type Worker struct {
	store    *store.PostgresStore
	client   *kgo.Client
	topic    string
	interval time.Duration
	logger   *slog.Logger
}

func NewWorker(st *store.PostgresStore, client *kgo.Client, topic string, interval time.Duration, logger *slog.Logger) *Worker {
	return &Worker{
		store:    st,
		client:   client,
		topic:    topic,
		interval: interval,
		logger:   logger,
	}
}

// EnsureTopic creates the audit topic if the broker does not have it yet.
// Safe to call on every startup.
func (w *Worker) EnsureTopic(ctx context.Context, partitions int32) error {
	adm := kadm.NewClient(w.client)
	_, err := adm.CreateTopic(ctx, partitions, 1, nil, w.topic)
	if err != nil && !isTopicExists(err) {
		return fmt.Errorf("ensure audit topic: %w", err)
	}
	return nil
}

func isTopicExists(err error) bool {
	return errors.Is(err, kerr.TopicAlreadyExists)
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drain(ctx); err != nil {
				w.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

func (w *Worker) drain(ctx context.Context) error {
	rows, err := w.store.FetchUnpublished(ctx, defaultBatchSize)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	records := make([]*kgo.Record, len(rows))
	for i, row := range rows {
		records[i] = &kgo.Record{
			Topic: w.topic,
			Key:   []byte(row.ID.String()),
			Value: row.Payload,
		}
	}

	results := w.client.ProduceSync(ctx, records...)
	if err := results.FirstErr(); err != nil {
		return fmt.Errorf("produce audit batch: %w", err)
	}

	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	if err := w.store.MarkPublished(ctx, ids); err != nil {
		return err
	}

	w.logger.DebugContext(ctx, "audit batch published", "count", len(rows))
	return nil
}
