package execution

import (
	"math"
	"testing"

	"BookPulse/internal/domain/models"
)

func flowSnapshot(bid, ask, buyVol, sellVol float64) *models.MarketSnapshot {
	mid := (bid + ask) / 2
	return &models.MarketSnapshot{
		BestBid:   bid,
		BestAsk:   ask,
		MidPrice:  mid,
		Spread:    ask - bid,
		SpreadPct: (ask - bid) / mid,
		Flow: models.TradeFlowMetrics{
			AggressiveBuyVolume:  buyVol,
			AggressiveSellVolume: sellVol,
			TotalVolume:          buyVol + sellVol,
		},
	}
}

func TestMomentum(t *testing.T) {
	m := models.TradeFlowMetrics{AggressiveBuyVolume: 75, AggressiveSellVolume: 25, TotalVolume: 100}
	if got := Momentum(m, models.DirectionLong); math.Abs(got-1.5) > 1e-9 {
		t.Fatalf("expected 1.5, got %v", got)
	}
	if got := Momentum(m, models.DirectionShort); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("expected 0.5, got %v", got)
	}
	if got := Momentum(models.TradeFlowMetrics{}, models.DirectionLong); got != 0 {
		t.Fatalf("empty flow must score 0, got %v", got)
	}
}

func TestDecideMarketOnMomentum(t *testing.T) {
	p := NewPolicy(PolicyConfig{MomentumThreshold: 1.2, MakerSpreadThreshold: 0.0005})
	s := flowSnapshot(99.99, 100.01, 90, 10)
	ot, price := p.Decide(s, models.TradeSignal{Direction: models.DirectionLong})
	if ot != models.OrderTypeMarket {
		t.Fatalf("expected MARKET, got %v", ot)
	}
	if price != 0 {
		t.Fatalf("market order carries no price, got %v", price)
	}
}

func TestDecideMakerOnTightSpread(t *testing.T) {
	p := NewPolicy(PolicyConfig{MomentumThreshold: 1.2, MakerSpreadThreshold: 0.0005, PreferMaker: true})
	s := flowSnapshot(99.99, 100.01, 55, 45)
	ot, price := p.Decide(s, models.TradeSignal{Direction: models.DirectionLong})
	if ot != models.OrderTypeLimitMaker {
		t.Fatalf("expected LIMIT_MAKER, got %v", ot)
	}
	if math.Abs(price-99.99*0.9999) > 1e-9 {
		t.Fatalf("long maker must rest just under the bid, got %v", price)
	}
	ot, price = p.Decide(s, models.TradeSignal{Direction: models.DirectionShort})
	if ot != models.OrderTypeLimitMaker {
		t.Fatalf("expected LIMIT_MAKER, got %v", ot)
	}
	if math.Abs(price-100.01*1.0001) > 1e-9 {
		t.Fatalf("short maker must rest just over the ask, got %v", price)
	}
}

func TestDecideMakerDisabled(t *testing.T) {
	p := NewPolicy(PolicyConfig{MomentumThreshold: 1.2, MakerSpreadThreshold: 0.0005})
	s := flowSnapshot(99.99, 100.01, 55, 45)
	ot, price := p.Decide(s, models.TradeSignal{Direction: models.DirectionLong})
	if ot != models.OrderTypeLimitTaker {
		t.Fatalf("maker disabled must fall through to LIMIT_TAKER, got %v", ot)
	}
	if price != 100.01 {
		t.Fatalf("long taker must cross at the ask, got %v", price)
	}
}

func TestDecideTakerOnWideSpread(t *testing.T) {
	p := NewPolicy(PolicyConfig{MomentumThreshold: 1.2, MakerSpreadThreshold: 0.0005, PreferMaker: true})
	s := flowSnapshot(99.9, 100.1, 55, 45)
	ot, price := p.Decide(s, models.TradeSignal{Direction: models.DirectionLong})
	if ot != models.OrderTypeLimitTaker {
		t.Fatalf("expected LIMIT_TAKER, got %v", ot)
	}
	if price != 100.1 {
		t.Fatalf("long taker must cross at the ask, got %v", price)
	}
	ot, price = p.Decide(s, models.TradeSignal{Direction: models.DirectionShort})
	if ot != models.OrderTypeLimitTaker || price != 99.9 {
		t.Fatalf("short taker must cross at the bid, got %v at %v", ot, price)
	}
}
