package strategy

import (
	"math"
	"testing"
	"time"

	"BookPulse/internal/domain/models"
)

func trade(ago time.Duration, qty float64, buy bool, anchor time.Time) *models.AggTrade {
	return &models.AggTrade{
		Price:        100,
		Quantity:     qty,
		Timestamp:    anchor.Add(-ago),
		MakerIsBuyer: !buy,
	}
}

func TestAnalyzeWindowAnchoredOnNewestTrade(t *testing.T) {
	a := NewTradeFlowAnalyzer(5*time.Second, 1.5)
	anchor := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	trades := []*models.AggTrade{
		trade(0, 1, true, anchor),
		trade(3*time.Second, 1, true, anchor),
		trade(6*time.Second, 50, false, anchor), // outside the window
	}
	m := a.Analyze(trades)
	if m.SampleCount != 2 {
		t.Fatalf("expected 2 samples, got %d", m.SampleCount)
	}
	if m.AggressiveSellVolume != 0 {
		t.Fatalf("stale sell must be excluded, got %v", m.AggressiveSellVolume)
	}
}

func TestAnalyzeEmptyTape(t *testing.T) {
	a := NewTradeFlowAnalyzer(0, 0)
	m := a.Analyze(nil)
	if m.SampleCount != 0 || m.TotalVolume != 0 {
		t.Fatalf("empty tape must be empty metrics, got %+v", m)
	}
	if m.BuyPressureRatio != 1.0 || m.SellPressureRatio != 1.0 {
		t.Fatalf("empty tape must report balance, got %+v", m)
	}
}

func TestConfirmsLongNeedsSamples(t *testing.T) {
	a := NewTradeFlowAnalyzer(5*time.Second, 1.5)
	anchor := time.Now()
	trades := []*models.AggTrade{
		trade(0, 10, true, anchor),
		trade(time.Second, 10, true, anchor),
	}
	m := a.Analyze(trades)
	if a.ConfirmsLong(m) {
		t.Fatalf("2 samples must not confirm")
	}
}

func TestConfirmsLongOnRatio(t *testing.T) {
	a := NewTradeFlowAnalyzer(5*time.Second, 1.5)
	anchor := time.Now()
	trades := []*models.AggTrade{
		trade(0, 8, true, anchor),
		trade(time.Second, 8, true, anchor),
		trade(2*time.Second, 8, true, anchor),
		trade(3*time.Second, 8, true, anchor),
		trade(4*time.Second, 10, false, anchor),
	}
	m := a.Analyze(trades)
	// 3200 buy vs 1000 sell
	if m.BuyPressureRatio <= 1.5 {
		t.Fatalf("expected ratio > 1.5, got %v", m.BuyPressureRatio)
	}
	if !a.ConfirmsLong(m) {
		t.Fatalf("buy-dominant tape must confirm long")
	}
	if a.ConfirmsShort(m) {
		t.Fatalf("buy-dominant tape must not confirm short")
	}
}

func TestConfirmsLongInfinitePressure(t *testing.T) {
	a := NewTradeFlowAnalyzer(5*time.Second, 1.5)
	anchor := time.Now()
	var trades []*models.AggTrade
	for i := 0; i < 5; i++ {
		trades = append(trades, trade(time.Duration(i)*time.Second, 1, true, anchor))
	}
	m := a.Analyze(trades)
	if !math.IsInf(m.BuyPressureRatio, 1) {
		t.Fatalf("one-sided tape must report infinite pressure, got %v", m.BuyPressureRatio)
	}
	if !a.ConfirmsLong(m) {
		t.Fatalf("infinite buy pressure must confirm long")
	}
}
