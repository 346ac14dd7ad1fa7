package models

import "time"

// Direction tags the closed TradeSignal variant set.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionLong
	DirectionShort
)

func (d Direction) String() string {
	switch d {
	case DirectionLong:
		return "long"
	case DirectionShort:
		return "short"
	default:
		return "none"
	}
}

// TradeSignal is the strategy output for one cycle. Direction None carries no
// payload; Long/Short carry entry, optional stop and target. Signals are
// produced fresh per evaluation and never persisted.
type TradeSignal struct {
	Direction  Direction
	Confidence float64
	EntryPrice float64
	StopLoss   float64 // 0 = unset
	TakeProfit float64 // 0 = unset
	Timestamp  time.Time
}

// NoSignal is the normal-path "conditions not met" value.
func NoSignal() TradeSignal { return TradeSignal{Direction: DirectionNone} }

// IsActionable is true only for Long/Short variants.
func (s TradeSignal) IsActionable() bool {
	return s.Direction == DirectionLong || s.Direction == DirectionShort
}

// StopLossPct returns the entry-to-stop distance as a fraction of entry,
// false when no stop was supplied.
func (s TradeSignal) StopLossPct() (float64, bool) {
	if s.StopLoss <= 0 || s.EntryPrice <= 0 {
		return 0, false
	}
	d := s.EntryPrice - s.StopLoss
	if s.Direction == DirectionShort {
		d = s.StopLoss - s.EntryPrice
	}
	if d <= 0 {
		return 0, false
	}
	return d / s.EntryPrice, true
}

// OrderType is the terminal order-type outcome of the execution policy.
type OrderType string

const (
	OrderTypeMarket     OrderType = "MARKET"
	OrderTypeLimitMaker OrderType = "LIMIT_MAKER"
	OrderTypeLimitTaker OrderType = "LIMIT_TAKER"
)
