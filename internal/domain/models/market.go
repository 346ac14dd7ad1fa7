package models

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// OrderBookLevel holds one price level as exchange-exact decimal strings.
// Values are parsed on demand; a level is never mutated after construction.
type OrderBookLevel struct {
	Price    string
	Quantity string
}

// PriceValue parses the level price. Returns 0 on malformed input.
func (l OrderBookLevel) PriceValue() float64 {
	d, err := decimal.NewFromString(l.Price)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

// QuantityValue parses the level quantity. Returns 0 on malformed input.
func (l OrderBookLevel) QuantityValue() float64 {
	d, err := decimal.NewFromString(l.Quantity)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

// Notional returns price*quantity in quote currency.
func (l OrderBookLevel) Notional() float64 {
	p, err := decimal.NewFromString(l.Price)
	if err != nil {
		return 0
	}
	q, err := decimal.NewFromString(l.Quantity)
	if err != nil {
		return 0
	}
	return p.Mul(q).InexactFloat64()
}

// OrderBookData is one depth snapshot: bids sorted strictly descending,
// asks strictly ascending, best bid below best ask.
type OrderBookData struct {
	Symbol       string
	Bids         []OrderBookLevel
	Asks         []OrderBookLevel
	LastUpdateID int64
	Timestamp    time.Time
}

// BestBid returns the top bid price, false when the bid side is empty.
func (b *OrderBookData) BestBid() (float64, bool) {
	if len(b.Bids) == 0 {
		return 0, false
	}
	return b.Bids[0].PriceValue(), true
}

// BestAsk returns the top ask price, false when the ask side is empty.
func (b *OrderBookData) BestAsk() (float64, bool) {
	if len(b.Asks) == 0 {
		return 0, false
	}
	return b.Asks[0].PriceValue(), true
}

// Validate checks ordering and that the book is not crossed.
// A failing book is invalid input and must be treated as "no signal".
func (b *OrderBookData) Validate() error {
	if b.Symbol == "" {
		return fmt.Errorf("book: symbol empty")
	}
	if len(b.Bids) == 0 || len(b.Asks) == 0 {
		return fmt.Errorf("book: empty side")
	}
	for i := 1; i < len(b.Bids); i++ {
		if b.Bids[i].PriceValue() >= b.Bids[i-1].PriceValue() {
			return fmt.Errorf("book: bids not strictly descending at %d", i)
		}
	}
	for i := 1; i < len(b.Asks); i++ {
		if b.Asks[i].PriceValue() <= b.Asks[i-1].PriceValue() {
			return fmt.Errorf("book: asks not strictly ascending at %d", i)
		}
	}
	bid, _ := b.BestBid()
	ask, _ := b.BestAsk()
	if bid >= ask {
		return fmt.Errorf("book: crossed (bid %.8f >= ask %.8f)", bid, ask)
	}
	return nil
}

// AggTrade is one aggregated trade from the feed.
type AggTrade struct {
	ID           int64
	Price        float64
	Quantity     float64
	Timestamp    time.Time
	MakerIsBuyer bool
}

// IsAggressiveBuy reports whether the taker side was a buyer.
func (t AggTrade) IsAggressiveBuy() bool { return !t.MakerIsBuyer }

// Value returns the trade notional in quote currency.
func (t AggTrade) Value() float64 { return t.Price * t.Quantity }

// TradeFlowMetrics aggregates aggressor volume over a trailing window.
// Rebuilt per evaluation; never mutated in place.
type TradeFlowMetrics struct {
	AggressiveBuyVolume  float64
	AggressiveSellVolume float64
	TotalVolume          float64
	BuyPressureRatio     float64
	SellPressureRatio    float64
	SampleCount          int
	Window               time.Duration
}

// PressureRatio divides volumes, mapping the zero cases per contract:
// both zero is balance (1.0), zero denominator is infinite pressure.
func PressureRatio(num, den float64) float64 {
	if den == 0 {
		if num == 0 {
			return 1.0
		}
		return math.Inf(1)
	}
	return num / den
}

// MarketSnapshot is the immutable per-cycle input to the decision engine.
type MarketSnapshot struct {
	Symbol    string
	Book      OrderBookData
	Flow      TradeFlowMetrics
	BestBid   float64
	BestAsk   float64
	MidPrice  float64
	Spread    float64
	SpreadPct float64
	// Windowed high-low range over the trade window, as a fraction of mid.
	WindowVolatilityPct float64
	Timestamp           time.Time
}

// NewMarketSnapshot derives best prices and spread from a validated book.
func NewMarketSnapshot(book OrderBookData, flow TradeFlowMetrics, volPct float64, ts time.Time) (*MarketSnapshot, error) {
	if err := book.Validate(); err != nil {
		return nil, err
	}
	bid, _ := book.BestBid()
	ask, _ := book.BestAsk()
	mid := (bid + ask) / 2
	spread := ask - bid
	return &MarketSnapshot{
		Symbol:              book.Symbol,
		Book:                book,
		Flow:                flow,
		BestBid:             bid,
		BestAsk:             ask,
		MidPrice:            mid,
		Spread:              spread,
		SpreadPct:           spread / mid,
		WindowVolatilityPct: volPct,
		Timestamp:           ts,
	}, nil
}

// IsStale reports whether the snapshot is older than maxAge at now.
func (s *MarketSnapshot) IsStale(maxAge time.Duration, now time.Time) bool {
	return now.Sub(s.Timestamp) > maxAge
}
