package book

import (
	"BookPulse/internal/domain/models"
)

// Side selects one half of the order book.
type Side int

const (
	SideBid Side = iota
	SideAsk
)

// CalculateImbalance computes the weighted bid/ask volume ratio over the top
// n levels. Each level's quantity is weighted by levelPrice/bestPrice on its
// own side, so levels closer to the touch weigh more. Returns 1.0 when the
// weighted ask volume is zero (documented degenerate case).
func CalculateImbalance(b *models.OrderBookData, topN int) float64 {
	bidVol := weightedVolume(b.Bids, topN)
	askVol := weightedVolume(b.Asks, topN)
	if askVol == 0 {
		return 1.0
	}
	return bidVol / askVol
}

func weightedVolume(levels []models.OrderBookLevel, topN int) float64 {
	if len(levels) == 0 {
		return 0
	}
	best := levels[0].PriceValue()
	if best <= 0 {
		return 0
	}
	n := topN
	if n > len(levels) {
		n = len(levels)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		w := levels[i].PriceValue() / best
		sum += levels[i].QuantityValue() * w
	}
	return sum
}

// DepthUSD sums price*quantity over the top n levels of one side.
// topN <= 0 means all visible levels.
func DepthUSD(b *models.OrderBookData, side Side, topN int) float64 {
	levels := b.Bids
	if side == SideAsk {
		levels = b.Asks
	}
	n := topN
	if n <= 0 || n > len(levels) {
		n = len(levels)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += levels[i].Notional()
	}
	return sum
}

// AverageFillPrice walks the asks (buy) or bids (sell) consuming quoteAmount
// level by level and returns the volume-weighted average price. The second
// return is false when the requested amount exceeds total visible depth:
// insufficient liquidity is never answered with a partial price.
func AverageFillPrice(b *models.OrderBookData, quoteAmount float64, isBuy bool) (float64, bool) {
	if quoteAmount <= 0 {
		return 0, false
	}
	levels := b.Asks
	if !isBuy {
		levels = b.Bids
	}
	remaining := quoteAmount
	baseFilled := 0.0
	for _, lvl := range levels {
		price := lvl.PriceValue()
		qty := lvl.QuantityValue()
		if price <= 0 || qty <= 0 {
			continue
		}
		notional := price * qty
		if notional >= remaining {
			baseFilled += remaining / price
			remaining = 0
			break
		}
		baseFilled += qty
		remaining -= notional
	}
	if remaining > 0 || baseFilled == 0 {
		return 0, false
	}
	return quoteAmount / baseFilled, true
}

// HasSufficientDepth reports whether visible depth on the relevant side
// covers quoteAmount plus the safety buffer.
func HasSufficientDepth(b *models.OrderBookData, quoteAmount float64, isBuy bool, minDepthBufferPct float64) bool {
	side := SideAsk
	if !isBuy {
		side = SideBid
	}
	available := DepthUSD(b, side, 0)
	return available >= quoteAmount*(1+minDepthBufferPct)
}
