package usecase

import (
	"context"
	"encoding/json"
	"time"

	"BookPulse/internal/domain/models"
	drepo "BookPulse/internal/domain/repository"
	pkgkafka "BookPulse/pkg/kafka"
)

// KafkaJournalHandler drains the decision topic into ClickHouse so reads can
// always be served from the table, whichever backend the engine writes to.
type KafkaJournalHandler struct {
	topic   string
	store   drepo.Journal
	metrics drepo.Metrics
}

func NewKafkaJournalHandler(topic string, store drepo.Journal, metrics drepo.Metrics) *KafkaJournalHandler {
	return &KafkaJournalHandler{topic: topic, store: store, metrics: metrics}
}

func (h *KafkaJournalHandler) Topic() string { return h.topic }

func (h *KafkaJournalHandler) Handle(ctx context.Context, b []byte) error {
	var rec models.DecisionRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		h.metrics.RecordError("journal_unmarshal")
		return err
	}

	start := time.Now()
	if err := h.store.Record(ctx, &rec); err != nil {
		h.metrics.RecordError("journal_store")
		return err
	}
	h.metrics.RecordLatency("journal_ch_insert", time.Since(start).Seconds())
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaJournalHandler)(nil)
