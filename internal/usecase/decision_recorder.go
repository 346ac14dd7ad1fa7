package usecase

import (
	"context"
	"fmt"
	"time"

	"BookPulse/internal/domain/models"
	drepo "BookPulse/internal/domain/repository"
)

// DecisionRecorder routes journal entries to the configured backend: the
// Kafka journal topic or direct ClickHouse inserts.
type DecisionRecorder struct {
	pub     drepo.Journal // kafka-backed
	store   drepo.Journal // clickhouse-backed
	metrics drepo.Metrics
	backend string
}

// NewDecisionRecorder creates a recorder for the given backend
// ("kafka" or "clickhouse").
func NewDecisionRecorder(pub, store drepo.Journal, metrics drepo.Metrics, backend string) *DecisionRecorder {
	return &DecisionRecorder{pub: pub, store: store, metrics: metrics, backend: backend}
}

// Record writes one decision to the configured backend.
func (r *DecisionRecorder) Record(ctx context.Context, rec *models.DecisionRecord) error {
	if rec == nil {
		return fmt.Errorf("decision record is nil")
	}

	start := time.Now()
	var err error
	switch r.backend {
	case "kafka":
		err = r.pub.Record(ctx, rec)
	case "clickhouse":
		err = r.store.Record(ctx, rec)
	default:
		err = fmt.Errorf("unknown journal backend: %s", r.backend)
	}
	if err != nil {
		r.metrics.RecordError("journal_record")
		return fmt.Errorf("record decision: %w", err)
	}
	r.metrics.RecordLatency("journal_record", time.Since(start).Seconds())
	return nil
}

// Recent reads back the latest journal entries. Reads always come from
// ClickHouse: the Kafka path lands there through the fills consumer group.
func (r *DecisionRecorder) Recent(ctx context.Context, symbol string, limit int) ([]*models.DecisionRecord, error) {
	if r.store == nil {
		return nil, fmt.Errorf("journal store not configured")
	}
	return r.store.RecentDecisions(ctx, symbol, limit)
}

// Close closes both backends.
func (r *DecisionRecorder) Close() {
	if r.pub != nil {
		_ = r.pub.Close()
	}
	if r.store != nil {
		_ = r.store.Close()
	}
}
