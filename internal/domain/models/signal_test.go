package models

import (
	"math"
	"testing"
)

func TestSignalActionable(t *testing.T) {
	if NoSignal().IsActionable() {
		t.Fatalf("no-signal must not be actionable")
	}
	if !(TradeSignal{Direction: DirectionLong}).IsActionable() {
		t.Fatalf("long must be actionable")
	}
	if !(TradeSignal{Direction: DirectionShort}).IsActionable() {
		t.Fatalf("short must be actionable")
	}
}

func TestStopLossPct(t *testing.T) {
	long := TradeSignal{Direction: DirectionLong, EntryPrice: 100, StopLoss: 99}
	pct, ok := long.StopLossPct()
	if !ok || math.Abs(pct-0.01) > 1e-12 {
		t.Fatalf("expected 1%%, got %v ok=%v", pct, ok)
	}

	short := TradeSignal{Direction: DirectionShort, EntryPrice: 100, StopLoss: 102}
	pct, ok = short.StopLossPct()
	if !ok || math.Abs(pct-0.02) > 1e-12 {
		t.Fatalf("expected 2%%, got %v ok=%v", pct, ok)
	}

	if _, ok := (TradeSignal{Direction: DirectionLong, EntryPrice: 100}).StopLossPct(); ok {
		t.Fatalf("unset stop must report false")
	}
	// stop on the wrong side of entry is not a stop
	if _, ok := (TradeSignal{Direction: DirectionLong, EntryPrice: 100, StopLoss: 101}).StopLossPct(); ok {
		t.Fatalf("inverted stop must report false")
	}
}

func TestDirectionString(t *testing.T) {
	if DirectionLong.String() != "long" || DirectionShort.String() != "short" || DirectionNone.String() != "none" {
		t.Fatalf("direction strings wrong")
	}
}
