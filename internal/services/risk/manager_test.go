package risk

import (
	"testing"
	"time"

	"BookPulse/internal/domain/models"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestManager(clock *fakeClock) *Manager {
	return NewManager(ManagerConfig{
		StartingEquity:       10000,
		MaxDailyLossPct:      0.03,
		MaxConsecutiveLosses: 3,
		CooldownAfterLosses:  15 * time.Minute,
		MaxVolatilityPct:     0.05,
	}, clock)
}

func TestManagerDailyLossLatches(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	m := newTestManager(clock)

	if !m.CanTrade(nil) {
		t.Fatalf("fresh manager must allow trading")
	}
	m.RecordTradeResult(-400) // 4% of day-start equity
	if m.CanTrade(nil) {
		t.Fatalf("daily loss limit must halt trading")
	}
	// a win later the same day does not unlatch if still over the limit
	m.RecordTradeResult(50)
	if m.CanTrade(nil) {
		t.Fatalf("still 3.5%% down, must stay halted")
	}
	m.RolloverDay()
	if !m.CanTrade(nil) {
		t.Fatalf("rollover must reopen trading")
	}
	if got := m.Equity(); got != 9650 {
		t.Fatalf("equity must carry over rollover, got %v", got)
	}
}

func TestManagerLossStreakCooldown(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	m := newTestManager(clock)

	m.RecordTradeResult(-10)
	m.RecordTradeResult(-10)
	if !m.CanTrade(nil) {
		t.Fatalf("two losses must not trip the streak breaker")
	}
	m.RecordTradeResult(-10)
	if m.CanTrade(nil) {
		t.Fatalf("third consecutive loss must start cooldown")
	}
	clock.advance(14 * time.Minute)
	if m.CanTrade(nil) {
		t.Fatalf("cooldown must still hold at 14m")
	}
	clock.advance(2 * time.Minute)
	if !m.CanTrade(nil) {
		t.Fatalf("cooldown must expire after 15m")
	}
}

func TestManagerWinResetsStreak(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	m := newTestManager(clock)

	m.RecordTradeResult(-10)
	m.RecordTradeResult(-10)
	m.RecordTradeResult(5)
	m.RecordTradeResult(-10)
	if !m.CanTrade(nil) {
		t.Fatalf("win must reset the streak")
	}
	st := m.Status()
	if st.ConsecutiveLosses != 1 {
		t.Fatalf("expected streak 1, got %d", st.ConsecutiveLosses)
	}
}

func TestManagerVolatilityGate(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	m := newTestManager(clock)

	calm := &models.MarketSnapshot{WindowVolatilityPct: 0.01}
	wild := &models.MarketSnapshot{WindowVolatilityPct: 0.08}
	if !m.CanTrade(calm) {
		t.Fatalf("calm market must pass")
	}
	if m.CanTrade(wild) {
		t.Fatalf("volatility above cap must halt trading")
	}
	// volatility never mutates state
	if !m.CanTrade(calm) {
		t.Fatalf("gate must not latch")
	}
}

func TestManagerSetEquity(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	m := newTestManager(clock)

	m.SetEquity(12000)
	if got := m.Equity(); got != 12000 {
		t.Fatalf("expected 12000, got %v", got)
	}
	m.SetEquity(-1)
	if got := m.Equity(); got != 12000 {
		t.Fatalf("non-positive override must be ignored, got %v", got)
	}
}

func TestManagerStatusProjection(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	m := newTestManager(clock)

	m.RecordTradeResult(-100)
	st := m.Status()
	if !st.CanTrade {
		t.Fatalf("1%% loss must still allow trading")
	}
	if st.DailyPnL != -100 {
		t.Fatalf("expected pnl -100, got %v", st.DailyPnL)
	}
	if st.DailyLossPct <= 0.009 || st.DailyLossPct >= 0.011 {
		t.Fatalf("expected ~1%% daily loss, got %v", st.DailyLossPct)
	}
	if st.IsInCooldown {
		t.Fatalf("single loss must not cool down")
	}
}
