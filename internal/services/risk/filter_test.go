package risk

import (
	"strings"
	"testing"
	"time"

	"BookPulse/internal/domain/models"
)

func snapshot(t *testing.T, bidPrice, askPrice string, bidQty, askQty string) *models.MarketSnapshot {
	t.Helper()
	b := models.OrderBookData{
		Symbol:    "BTCUSDT",
		Bids:      []models.OrderBookLevel{{Price: bidPrice, Quantity: bidQty}},
		Asks:      []models.OrderBookLevel{{Price: askPrice, Quantity: askQty}},
		Timestamp: time.Now(),
	}
	s, err := models.NewMarketSnapshot(b, models.TradeFlowMetrics{}, 0.01, time.Now())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return s
}

func TestFilterPassesTightDeepBook(t *testing.T) {
	f := NewSpreadFilter(0.001, 0.02)
	s := snapshot(t, "99.99", "100.01", "10", "10")
	if reason := f.RejectionReason(s, 100, true); reason != "" {
		t.Fatalf("expected pass, got %q", reason)
	}
	if !f.Passes(s, 100, true) {
		t.Fatalf("Passes must agree with empty reason")
	}
}

func TestFilterRejectsWideSpread(t *testing.T) {
	f := NewSpreadFilter(0.001, 0.02)
	s := snapshot(t, "99.0", "101.0", "10", "10")
	reason := f.RejectionReason(s, 100, true)
	if !strings.Contains(reason, "spread") {
		t.Fatalf("expected spread rejection, got %q", reason)
	}
}

func TestFilterRejectsShallowDepth(t *testing.T) {
	f := NewSpreadFilter(0.001, 0.02)
	s := snapshot(t, "99.99", "100.01", "10", "0.001")
	reason := f.RejectionReason(s, 100, true)
	if !strings.Contains(reason, "depth") {
		t.Fatalf("expected depth rejection, got %q", reason)
	}
	// the bid side is deep enough for a sell of the same size
	if got := f.RejectionReason(s, 100, false); got != "" {
		t.Fatalf("sell side must pass, got %q", got)
	}
}
