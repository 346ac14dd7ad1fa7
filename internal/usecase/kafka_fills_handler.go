package usecase

import (
	"context"
	"encoding/json"
	"time"

	"BookPulse/internal/domain/models"
	drepo "BookPulse/internal/domain/repository"
	"BookPulse/internal/services/risk"
	pkgkafka "BookPulse/pkg/kafka"
)

// KafkaFillsHandler consumes realized fill reports and feeds PnL into the
// risk manager. Only closing fills move risk state.
type KafkaFillsHandler struct {
	topic   string
	risk    *risk.Manager
	metrics drepo.Metrics
}

func NewKafkaFillsHandler(topic string, riskMgr *risk.Manager, metrics drepo.Metrics) *KafkaFillsHandler {
	return &KafkaFillsHandler{topic: topic, risk: riskMgr, metrics: metrics}
}

func (h *KafkaFillsHandler) Topic() string { return h.topic }

func (h *KafkaFillsHandler) Handle(ctx context.Context, b []byte) error {
	var fill models.FillReport
	if err := json.Unmarshal(b, &fill); err != nil {
		h.metrics.RecordError("fills_unmarshal")
		return err
	}
	h.metrics.RecordLatency("fill_e2e", time.Since(fill.Timestamp).Seconds())

	if !fill.IsClose {
		return nil
	}
	h.risk.RecordTradeResult(fill.RealizedPnL)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaFillsHandler)(nil)
