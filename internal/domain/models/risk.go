package models

import "time"

// RiskStatus is a read-only projection of risk-manager state for observers.
type RiskStatus struct {
	CanTrade          bool
	Equity            float64
	DailyPnL          float64
	DailyLossPct      float64
	ConsecutiveLosses int
	IsInCooldown      bool
	CooldownUntil     time.Time
	TradingDay        time.Time
}

// FillReport is a realized trade result consumed from the fills topic. It is
// the only input that moves risk-manager PnL state.
type FillReport struct {
	OrderID     string    `json:"order_id"`
	Symbol      string    `json:"symbol"`
	Timestamp   time.Time `json:"ts"`
	Quantity    float64   `json:"qty"`
	Price       float64   `json:"price"`
	Fee         float64   `json:"fee"`
	RealizedPnL float64   `json:"realized_pnl"`
	IsClose     bool      `json:"is_close"`
}
