package execution

import (
	"BookPulse/internal/domain/models"
)

// Offsets pricing a maker order just inside the touch so it rests instead of
// crossing.
const (
	makerBidOffset = 0.9999
	makerAskOffset = 1.0001
)

// Policy selects the order type and limit price for an actionable signal:
// MARKET when momentum demands a guaranteed fill, LIMIT_MAKER when the spread
// is tight enough to earn the maker rebate, LIMIT_TAKER otherwise.
type Policy struct {
	momentumThreshold    float64
	makerSpreadThreshold float64
	preferMaker          bool
}

// PolicyConfig carries the execution parameters; zero values fall back to
// the defaults (momentum 1.2, maker spread 0.05%).
type PolicyConfig struct {
	MomentumThreshold    float64
	MakerSpreadThreshold float64
	// PreferMaker enables resting LIMIT_MAKER orders on tight spreads.
	// When false every non-market order crosses as LIMIT_TAKER.
	PreferMaker bool
}

// NewPolicy builds an execution policy.
func NewPolicy(cfg PolicyConfig) *Policy {
	if cfg.MomentumThreshold <= 0 {
		cfg.MomentumThreshold = 1.2
	}
	if cfg.MakerSpreadThreshold <= 0 {
		cfg.MakerSpreadThreshold = 0.0005
	}
	return &Policy{
		momentumThreshold:    cfg.MomentumThreshold,
		makerSpreadThreshold: cfg.MakerSpreadThreshold,
		preferMaker:          cfg.PreferMaker,
	}
}

// Momentum scales the aggressor side's share of window volume to a ratio
// centered on 1.0: above 1.0 the signal's side dominates the tape.
func Momentum(m models.TradeFlowMetrics, dir models.Direction) float64 {
	if m.TotalVolume <= 0 {
		return 0
	}
	side := m.AggressiveBuyVolume
	if dir == models.DirectionShort {
		side = m.AggressiveSellVolume
	}
	return 2 * side / m.TotalVolume
}

// Decide returns the order type and, for limit orders, the price.
func (p *Policy) Decide(s *models.MarketSnapshot, signal models.TradeSignal) (models.OrderType, float64) {
	if Momentum(s.Flow, signal.Direction) > p.momentumThreshold {
		return models.OrderTypeMarket, 0
	}
	if p.preferMaker && s.SpreadPct <= p.makerSpreadThreshold {
		if signal.Direction == models.DirectionLong {
			return models.OrderTypeLimitMaker, s.BestBid * makerBidOffset
		}
		return models.OrderTypeLimitMaker, s.BestAsk * makerAskOffset
	}
	// price to cross immediately
	if signal.Direction == models.DirectionLong {
		return models.OrderTypeLimitTaker, s.BestAsk
	}
	return models.OrderTypeLimitTaker, s.BestBid
}
