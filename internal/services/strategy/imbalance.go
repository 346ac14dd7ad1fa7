package strategy

import (
	"BookPulse/internal/domain/models"
	"BookPulse/internal/services/book"
)

// Confidence saturates at these imbalance levels: beyond them the excess
// carries no additional conviction.
const (
	longSaturation  = 3.5
	shortSaturation = 0.34
)

// ImbalanceCalculator turns order-book pressure into a directional hint.
type ImbalanceCalculator struct {
	longThreshold  float64
	shortThreshold float64
	topN           int
}

// NewImbalanceCalculator builds a calculator; zero arguments fall back to the
// defaults (1.5, 0.67, 20).
func NewImbalanceCalculator(longThreshold, shortThreshold float64, topN int) *ImbalanceCalculator {
	if longThreshold <= 0 {
		longThreshold = 1.5
	}
	if shortThreshold <= 0 {
		shortThreshold = 0.67
	}
	if topN <= 0 {
		topN = 20
	}
	return &ImbalanceCalculator{longThreshold: longThreshold, shortThreshold: shortThreshold, topN: topN}
}

// Calculate returns the weighted imbalance over the configured depth.
func (c *ImbalanceCalculator) Calculate(b *models.OrderBookData) float64 {
	return book.CalculateImbalance(b, c.topN)
}

// SuggestsLong is true above the long threshold. The band between thresholds
// is neutral.
func (c *ImbalanceCalculator) SuggestsLong(imbalance float64) bool {
	return imbalance > c.longThreshold
}

// SuggestsShort is true below the short threshold.
func (c *ImbalanceCalculator) SuggestsShort(imbalance float64) bool {
	return imbalance < c.shortThreshold
}

// Confidence maps the excess over (long) or deficit under (short) the
// threshold linearly onto [0,1], saturating at 3.5 and 0.34.
func (c *ImbalanceCalculator) Confidence(imbalance float64, dir models.Direction) float64 {
	switch dir {
	case models.DirectionLong:
		if imbalance <= c.longThreshold {
			return 0
		}
		return clamp01((imbalance - c.longThreshold) / (longSaturation - c.longThreshold))
	case models.DirectionShort:
		if imbalance >= c.shortThreshold {
			return 0
		}
		return clamp01((c.shortThreshold - imbalance) / (c.shortThreshold - shortSaturation))
	default:
		return 0
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
