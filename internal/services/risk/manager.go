package risk

import (
	"sync"
	"time"

	"BookPulse/internal/domain/models"
	"BookPulse/internal/domain/repository"
)

// ManagerConfig carries the circuit-breaker limits.
type ManagerConfig struct {
	StartingEquity       float64
	MaxDailyLossPct      float64       // 0.03
	MaxConsecutiveLosses int           // 3
	CooldownAfterLosses  time.Duration // 15m
	MaxVolatilityPct     float64       // 0.05
}

// Manager is the first gate of every cycle and the only component carrying
// state across cycles. State is day-scoped; rollover is an explicit call,
// never a timer side effect. One engine instance drives mutation; the mutex
// only guards the read-side ops API.
type Manager struct {
	mu sync.Mutex

	cfg       ManagerConfig
	clock     repository.Clock
	equity    float64
	pnl       float64
	streak    int
	coolUntil time.Time
	day       time.Time
}

// NewManager builds a risk manager with wall-clock defaults filled in.
func NewManager(cfg ManagerConfig, clock repository.Clock) *Manager {
	if clock == nil {
		clock = repository.SystemClock{}
	}
	if cfg.MaxDailyLossPct <= 0 {
		cfg.MaxDailyLossPct = 0.03
	}
	if cfg.MaxConsecutiveLosses <= 0 {
		cfg.MaxConsecutiveLosses = 3
	}
	if cfg.CooldownAfterLosses <= 0 {
		cfg.CooldownAfterLosses = 15 * time.Minute
	}
	if cfg.MaxVolatilityPct <= 0 {
		cfg.MaxVolatilityPct = 0.05
	}
	return &Manager{
		cfg:    cfg,
		clock:  clock,
		equity: cfg.StartingEquity,
		day:    clock.Now().Truncate(24 * time.Hour),
	}
}

// CanTrade evaluates the circuit breaker against the current snapshot.
// False when the daily loss limit is hit, a loss streak is cooling down, or
// windowed volatility exceeds the cap.
func (m *Manager) CanTrade(s *models.MarketSnapshot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dailyLossPctLocked() >= m.cfg.MaxDailyLossPct {
		return false
	}
	if m.streak >= m.cfg.MaxConsecutiveLosses && m.clock.Now().Before(m.coolUntil) {
		return false
	}
	if s != nil && s.WindowVolatilityPct > m.cfg.MaxVolatilityPct {
		return false
	}
	return true
}

// RecordTradeResult applies a realized PnL. Losses extend the streak and arm
// the cooldown; any win resets the streak.
func (m *Manager) RecordTradeResult(pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pnl += pnl
	m.equity += pnl
	if pnl < 0 {
		m.streak++
		if m.streak >= m.cfg.MaxConsecutiveLosses {
			m.coolUntil = m.clock.Now().Add(m.cfg.CooldownAfterLosses)
		}
	} else if pnl > 0 {
		m.streak = 0
	}
}

// RolloverDay resets daily PnL and the loss streak. Equity carries over.
func (m *Manager) RolloverDay() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pnl = 0
	m.streak = 0
	m.coolUntil = time.Time{}
	m.day = m.clock.Now().Truncate(24 * time.Hour)
}

// SetEquity overrides equity, used when reconciling with the exchange
// account at rollover. Non-positive values are ignored.
func (m *Manager) SetEquity(v float64) {
	if v <= 0 {
		return
	}
	m.mu.Lock()
	m.equity = v
	m.mu.Unlock()
}

// Equity returns current equity for sizing.
func (m *Manager) Equity() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.equity
}

// Status is the read-only projection for observers.
func (m *Manager) Status() models.RiskStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	inCooldown := m.streak >= m.cfg.MaxConsecutiveLosses && now.Before(m.coolUntil)
	canTrade := m.dailyLossPctLocked() < m.cfg.MaxDailyLossPct && !inCooldown
	return models.RiskStatus{
		CanTrade:          canTrade,
		Equity:            m.equity,
		DailyPnL:          m.pnl,
		DailyLossPct:      m.dailyLossPctLocked(),
		ConsecutiveLosses: m.streak,
		IsInCooldown:      inCooldown,
		CooldownUntil:     m.coolUntil,
		TradingDay:        m.day,
	}
}

// dailyLossPctLocked returns the loss as a positive fraction of day-start
// equity; gains report 0.
func (m *Manager) dailyLossPctLocked() float64 {
	if m.pnl >= 0 {
		return 0
	}
	base := m.equity - m.pnl // equity at day start
	if base <= 0 {
		return 1
	}
	return -m.pnl / base
}
