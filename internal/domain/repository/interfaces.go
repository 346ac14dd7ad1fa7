package repository

import (
	"context"
	"time"

	"BookPulse/internal/domain/models"
)

// DepthStream feeds order-book snapshots for one instrument.
type DepthStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.OrderBookData, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// TradeStream feeds aggregated trades for one instrument.
type TradeStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.AggTrade, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// OrderExecutor places and manages orders. Execute never returns a Go error:
// transport and exchange failures surface as the Error/Rejected variants.
type OrderExecutor interface {
	Execute(ctx context.Context, signal models.TradeSignal, quantity float64, orderType models.OrderType, limitPrice float64) *models.ExecutionResult
	CancelOrder(ctx context.Context, orderID string) (bool, error)
	GetOrderStatus(ctx context.Context, orderID string) (*models.ExecutionResult, error)
}

// Journal is the append-only decision/execution log.
type Journal interface {
	Record(ctx context.Context, rec *models.DecisionRecord) error
	RecentDecisions(ctx context.Context, symbol string, limit int) ([]*models.DecisionRecord, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics abstracts the Prometheus recorder for engine instrumentation.
type Metrics interface {
	RecordDecision(outcome string)
	RecordRejection(reason string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}

// Clock supplies time so cooldown windows and day boundaries are testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock implementation.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
