package strategy

import (
	"math"
	"time"

	"BookPulse/internal/domain/models"
)

// minSamples suppresses confirmation on thin tape regardless of ratio.
const minSamples = 5

// TradeFlowAnalyzer aggregates aggressor volume over a trailing window and
// confirms (or refuses) a direction suggested by the book.
type TradeFlowAnalyzer struct {
	window    time.Duration
	threshold float64
}

// NewTradeFlowAnalyzer builds an analyzer; zero arguments fall back to the
// defaults (5s window, 1.5 confirmation threshold).
func NewTradeFlowAnalyzer(window time.Duration, confirmationThreshold float64) *TradeFlowAnalyzer {
	if window <= 0 {
		window = 5 * time.Second
	}
	if confirmationThreshold <= 0 {
		confirmationThreshold = 1.5
	}
	return &TradeFlowAnalyzer{window: window, threshold: confirmationThreshold}
}

// Analyze partitions a most-recent-first trade list by aggressor side over
// the trailing window anchored on the newest trade, and sums notional value.
// The result is rebuilt per call, never mutated.
func (a *TradeFlowAnalyzer) Analyze(trades []*models.AggTrade) models.TradeFlowMetrics {
	m := models.TradeFlowMetrics{
		Window:            a.window,
		BuyPressureRatio:  1.0,
		SellPressureRatio: 1.0,
	}
	if len(trades) == 0 {
		return m
	}
	cutoff := trades[0].Timestamp.Add(-a.window)
	for _, t := range trades {
		if t == nil || t.Timestamp.Before(cutoff) {
			continue
		}
		v := t.Value()
		if t.IsAggressiveBuy() {
			m.AggressiveBuyVolume += v
		} else {
			m.AggressiveSellVolume += v
		}
		m.TotalVolume += v
		m.SampleCount++
	}
	m.BuyPressureRatio = models.PressureRatio(m.AggressiveBuyVolume, m.AggressiveSellVolume)
	m.SellPressureRatio = models.PressureRatio(m.AggressiveSellVolume, m.AggressiveBuyVolume)
	return m
}

// HasSufficientSamples requires enough trades and nonzero volume so that a
// ratio computed on noise cannot confirm anything.
func (a *TradeFlowAnalyzer) HasSufficientSamples(m models.TradeFlowMetrics) bool {
	return m.SampleCount >= minSamples && m.TotalVolume > 0
}

// ConfirmsLong is true when buy pressure exceeds the threshold with enough
// samples behind it. An infinite ratio (zero sell volume) confirms.
func (a *TradeFlowAnalyzer) ConfirmsLong(m models.TradeFlowMetrics) bool {
	if !a.HasSufficientSamples(m) {
		return false
	}
	return math.IsInf(m.BuyPressureRatio, 1) || m.BuyPressureRatio > a.threshold
}

// ConfirmsShort mirrors ConfirmsLong for sell pressure.
func (a *TradeFlowAnalyzer) ConfirmsShort(m models.TradeFlowMetrics) bool {
	if !a.HasSufficientSamples(m) {
		return false
	}
	return math.IsInf(m.SellPressureRatio, 1) || m.SellPressureRatio > a.threshold
}
