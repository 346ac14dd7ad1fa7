package models

import "time"

// Decision outcomes recorded to the journal.
const (
	OutcomeNoSignal    = "no_signal"
	OutcomeRiskBlocked = "risk_blocked"
	OutcomeRejected    = "rejected"
	OutcomeSizedOut    = "sized_out"
	OutcomeExecuted    = "executed"
	OutcomeError       = "error"
)

// DecisionRecord is one journal entry for an engine evaluation that reached a
// terminal outcome. Records are append-only and keyed by symbol.
type DecisionRecord struct {
	Symbol     string    `json:"symbol"`
	Timestamp  time.Time `json:"ts"`
	Outcome    string    `json:"outcome"`
	Direction  string    `json:"direction"`
	Reason     string    `json:"reason,omitempty"`
	Imbalance  float64   `json:"imbalance"`
	Confidence float64   `json:"confidence"`
	SpreadPct  float64   `json:"spread_pct"`
	QuoteSize  float64   `json:"quote_size"`
	Quantity   float64   `json:"quantity"`
	OrderType  string    `json:"order_type,omitempty"`
	LimitPrice float64   `json:"limit_price,omitempty"`
	OrderID    string    `json:"order_id,omitempty"`
	Status     string    `json:"status,omitempty"`
}
