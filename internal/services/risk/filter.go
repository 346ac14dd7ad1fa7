package risk

import (
	"fmt"

	"BookPulse/internal/domain/models"
	"BookPulse/internal/services/book"
)

// SpreadFilter applies the two hard liquidity gates: spread width and depth
// coverage. A non-empty rejection reason is an unconditional trade abort,
// never a degraded or partial trade.
type SpreadFilter struct {
	maxSpreadPct      float64
	minDepthBufferPct float64
}

// NewSpreadFilter builds a filter; zero arguments fall back to the defaults
// (0.1% max spread, 2% depth buffer).
func NewSpreadFilter(maxSpreadPct, minDepthBufferPct float64) *SpreadFilter {
	if maxSpreadPct <= 0 {
		maxSpreadPct = 0.001
	}
	if minDepthBufferPct <= 0 {
		minDepthBufferPct = 0.02
	}
	return &SpreadFilter{maxSpreadPct: maxSpreadPct, minDepthBufferPct: minDepthBufferPct}
}

// RejectionReason returns a human-readable cause, or "" when both gates pass.
// isBuy selects which side's depth must cover the order.
func (f *SpreadFilter) RejectionReason(s *models.MarketSnapshot, orderSizeUSD float64, isBuy bool) string {
	if s.SpreadPct > f.maxSpreadPct {
		return fmt.Sprintf("spread %.4f%% exceeds max %.4f%%", s.SpreadPct*100, f.maxSpreadPct*100)
	}
	if !book.HasSufficientDepth(&s.Book, orderSizeUSD, isBuy, f.minDepthBufferPct) {
		side := "ask"
		if !isBuy {
			side = "bid"
		}
		return fmt.Sprintf("insufficient %s depth for %.2f USD order (buffer %.1f%%)", side, orderSizeUSD, f.minDepthBufferPct*100)
	}
	return ""
}

// Passes is a convenience wrapper over RejectionReason.
func (f *SpreadFilter) Passes(s *models.MarketSnapshot, orderSizeUSD float64, isBuy bool) bool {
	return f.RejectionReason(s, orderSizeUSD, isBuy) == ""
}
