package risk

import (
	"github.com/shopspring/decimal"

	"BookPulse/internal/domain/models"
	"BookPulse/internal/services/book"
)

// PositionSizer computes the largest safe position under three independent
// ceilings: market impact (depth), fixed-dollar risk budget, and a minimum
// viable size floor below which no order is placed.
type PositionSizer struct {
	maxDepthPct        float64
	maxRiskPerTradePct float64
	slippageBufferPct  float64
	feePct             float64
	minPositionUSD     float64
	defaultStopPct     float64
}

// SizerConfig carries the sizing parameters; zero values fall back to the
// documented defaults.
type SizerConfig struct {
	MaxDepthPct        float64 // 0.02
	MaxRiskPerTradePct float64 // 0.005
	SlippageBufferPct  float64 // 0.0005
	FeePct             float64 // 0.001
	MinPositionUSD     float64 // 10
	DefaultStopPct     float64 // 0.01
}

// NewPositionSizer builds a sizer from config.
func NewPositionSizer(cfg SizerConfig) *PositionSizer {
	if cfg.MaxDepthPct <= 0 {
		cfg.MaxDepthPct = 0.02
	}
	if cfg.MaxRiskPerTradePct <= 0 {
		cfg.MaxRiskPerTradePct = 0.005
	}
	if cfg.SlippageBufferPct <= 0 {
		cfg.SlippageBufferPct = 0.0005
	}
	if cfg.FeePct <= 0 {
		cfg.FeePct = 0.001
	}
	if cfg.MinPositionUSD <= 0 {
		cfg.MinPositionUSD = 10
	}
	if cfg.DefaultStopPct <= 0 {
		cfg.DefaultStopPct = 0.01
	}
	return &PositionSizer{
		maxDepthPct:        cfg.MaxDepthPct,
		maxRiskPerTradePct: cfg.MaxRiskPerTradePct,
		slippageBufferPct:  cfg.SlippageBufferPct,
		feePct:             cfg.FeePct,
		minPositionUSD:     cfg.MinPositionUSD,
		defaultStopPct:     cfg.DefaultStopPct,
	}
}

// QuoteSize returns the position size in quote currency for a trade with the
// given stop distance (0 = use the conservative default). Returns 0 when the
// size would fall below the minimum viable floor: no dust orders.
func (p *PositionSizer) QuoteSize(s *models.MarketSnapshot, equity float64, isBuy bool, stopLossPct float64) float64 {
	if equity <= 0 {
		return 0
	}
	if stopLossPct <= 0 {
		stopLossPct = p.defaultStopPct
	}

	side := book.SideAsk
	if !isBuy {
		side = book.SideBid
	}
	depthCeiling := book.DepthUSD(&s.Book, side, 0) * p.maxDepthPct

	riskBudget := equity * p.maxRiskPerTradePct
	perUnitRisk := stopLossPct + p.slippageBufferPct + 2*p.feePct
	riskCeiling := riskBudget / perUnitRisk

	size := depthCeiling
	if riskCeiling < size {
		size = riskCeiling
	}
	if size < p.minPositionUSD {
		return 0
	}
	return size
}

// CalculateBaseQuantity converts a quote-currency size to base units.
func CalculateBaseQuantity(quoteSize, entryPrice float64) float64 {
	if entryPrice <= 0 {
		return 0
	}
	return quoteSize / entryPrice
}

// AdjustQuantity rounds quantity DOWN to the exchange step size and enforces
// the minimum quantity. Rounding up would exceed the computed risk, so the
// direction is never negotiable.
func AdjustQuantity(quantity, stepSize, minQty float64) float64 {
	if quantity <= 0 {
		return 0
	}
	adjusted := quantity
	if stepSize > 0 {
		q := decimal.NewFromFloat(quantity)
		step := decimal.NewFromFloat(stepSize)
		adjusted = q.Div(step).Floor().Mul(step).InexactFloat64()
	}
	if adjusted < minQty {
		return 0
	}
	return adjusted
}
