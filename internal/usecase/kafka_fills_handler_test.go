package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"BookPulse/internal/domain/models"
	"BookPulse/internal/services/risk"
)

func TestFillsHandlerAppliesClosingPnL(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	riskMgr := risk.NewManager(risk.ManagerConfig{StartingEquity: 10000}, clock)
	h := NewKafkaFillsHandler("bookpulse.fills", riskMgr, newSpyMetrics())

	b, _ := json.Marshal(models.FillReport{
		OrderID:     "7",
		Symbol:      "BTCUSDT",
		Timestamp:   time.Now(),
		RealizedPnL: -50,
		IsClose:     true,
	})
	if err := h.Handle(context.Background(), b); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := riskMgr.Equity(); got != 9950 {
		t.Fatalf("closing fill must move equity, got %v", got)
	}
}

func TestFillsHandlerIgnoresOpeningFill(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	riskMgr := risk.NewManager(risk.ManagerConfig{StartingEquity: 10000}, clock)
	h := NewKafkaFillsHandler("bookpulse.fills", riskMgr, newSpyMetrics())

	b, _ := json.Marshal(models.FillReport{OrderID: "7", Timestamp: time.Now(), RealizedPnL: -50})
	if err := h.Handle(context.Background(), b); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := riskMgr.Equity(); got != 10000 {
		t.Fatalf("opening fill must not move equity, got %v", got)
	}
}

func TestFillsHandlerBadPayload(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	riskMgr := risk.NewManager(risk.ManagerConfig{StartingEquity: 10000}, clock)
	metrics := newSpyMetrics()
	h := NewKafkaFillsHandler("bookpulse.fills", riskMgr, metrics)

	if err := h.Handle(context.Background(), []byte("not json")); err == nil {
		t.Fatalf("malformed payload must error for the consumer retry path")
	}
	if metrics.errors["fills_unmarshal"] != 1 {
		t.Fatalf("expected unmarshal error metric, got %+v", metrics.errors)
	}
}
