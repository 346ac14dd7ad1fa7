package usecase

import (
	"context"
	"fmt"
	"time"

	"BookPulse/internal/domain/models"
	drepo "BookPulse/internal/domain/repository"
	"BookPulse/pkg/logger"
	"BookPulse/pkg/queue"
)

// WatchOrderType is the queue message type for resting-order supervision.
const WatchOrderType = "order.watch"

// WatchOrderPayload identifies one resting order to supervise.
type WatchOrderPayload struct {
	OrderID  string    `json:"order_id"`
	PlacedAt time.Time `json:"placed_at"`
}

// OrderWatcher schedules supervision for a resting order.
type OrderWatcher interface {
	WatchOrder(ctx context.Context, orderID string, placedAt time.Time) error
}

// QueueOrderWatcher enqueues watch messages onto the Redis queue.
type QueueOrderWatcher struct {
	q queue.QueueService
}

func NewQueueOrderWatcher(q queue.QueueService) *QueueOrderWatcher {
	return &QueueOrderWatcher{q: q}
}

func (w *QueueOrderWatcher) WatchOrder(ctx context.Context, orderID string, placedAt time.Time) error {
	return w.q.PublishMessage(ctx, WatchOrderType, WatchOrderPayload{OrderID: orderID, PlacedAt: placedAt})
}

// OrderWatchdogJob polls a resting maker order and cancels it once it has
// been open past the timeout without filling. A still-open order inside the
// timeout returns an error so the queue re-checks it after the retry delay.
type OrderWatchdogJob struct {
	executor drepo.OrderExecutor
	metrics  drepo.Metrics
	timeout  time.Duration
	log      *logger.Logger
}

func NewOrderWatchdogJob(executor drepo.OrderExecutor, metrics drepo.Metrics, timeout time.Duration, log *logger.Logger) *OrderWatchdogJob {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OrderWatchdogJob{executor: executor, metrics: metrics, timeout: timeout, log: log}
}

func (j *OrderWatchdogJob) Name() string { return "order_watchdog" }

func (j *OrderWatchdogJob) Type() string { return WatchOrderType }

func (j *OrderWatchdogJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[WatchOrderPayload](payload)
	if err != nil {
		return fmt.Errorf("watchdog payload: %w", err)
	}

	res, err := j.executor.GetOrderStatus(ctx, p.OrderID)
	if err != nil {
		j.metrics.RecordError("watchdog_status")
		return fmt.Errorf("watchdog status %s: %w", p.OrderID, err)
	}

	switch {
	case res.Status == models.ExecSuccess && res.FilledQty > 0:
		return nil // filled
	case res.Status == models.ExecRejected || res.Status == models.ExecError:
		return nil // terminal on the exchange side
	}

	// resting or partially filled
	if time.Since(p.PlacedAt) < j.timeout {
		return fmt.Errorf("order %s still open", p.OrderID)
	}

	cancelled, err := j.executor.CancelOrder(ctx, p.OrderID)
	if err != nil {
		j.metrics.RecordError("watchdog_cancel")
		return fmt.Errorf("watchdog cancel %s: %w", p.OrderID, err)
	}
	if cancelled {
		j.metrics.RecordRejection("maker_timeout")
		j.log.Info("cancelled stale maker order",
			logger.String("order_id", p.OrderID),
			logger.Duration("age", time.Since(p.PlacedAt)))
	}
	return nil
}

var _ queue.Job = (*OrderWatchdogJob)(nil)
