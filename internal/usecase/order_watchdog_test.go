package usecase

import (
	"context"
	"testing"
	"time"

	"BookPulse/internal/domain/models"
	"BookPulse/pkg/logger"
)

type watchdogExecutor struct {
	mockExecutor
	status    *models.ExecutionResult
	statusErr error
	cancelled []string
	cancelOK  bool
	cancelErr error
}

func (m *watchdogExecutor) GetOrderStatus(context.Context, string) (*models.ExecutionResult, error) {
	return m.status, m.statusErr
}

func (m *watchdogExecutor) CancelOrder(_ context.Context, orderID string) (bool, error) {
	m.cancelled = append(m.cancelled, orderID)
	return m.cancelOK, m.cancelErr
}

func newWatchdog(exec *watchdogExecutor, metrics *spyMetrics) *OrderWatchdogJob {
	log, _ := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stdout"})
	return NewOrderWatchdogJob(exec, metrics, 30*time.Second, log)
}

func TestWatchdogFilledOrderDone(t *testing.T) {
	exec := &watchdogExecutor{status: models.NewExecSuccess("7", 1, 100, 0.1)}
	j := newWatchdog(exec, newSpyMetrics())
	if err := j.Handle(context.Background(), WatchOrderPayload{OrderID: "7", PlacedAt: time.Now()}); err != nil {
		t.Fatalf("filled order must finish the job: %v", err)
	}
	if len(exec.cancelled) != 0 {
		t.Fatalf("filled order must not be cancelled")
	}
}

func TestWatchdogOpenOrderRetriesWithinTimeout(t *testing.T) {
	exec := &watchdogExecutor{status: models.NewExecSuccess("7", 0, 0, 0)}
	j := newWatchdog(exec, newSpyMetrics())
	err := j.Handle(context.Background(), WatchOrderPayload{OrderID: "7", PlacedAt: time.Now()})
	if err == nil {
		t.Fatalf("open order inside the timeout must return an error for the retry loop")
	}
	if len(exec.cancelled) != 0 {
		t.Fatalf("must not cancel before the timeout")
	}
}

func TestWatchdogCancelsPastTimeout(t *testing.T) {
	exec := &watchdogExecutor{status: models.NewExecSuccess("7", 0, 0, 0), cancelOK: true}
	metrics := newSpyMetrics()
	j := newWatchdog(exec, metrics)
	placed := time.Now().Add(-time.Minute)
	if err := j.Handle(context.Background(), WatchOrderPayload{OrderID: "7", PlacedAt: placed}); err != nil {
		t.Fatalf("cancel path must finish the job: %v", err)
	}
	if len(exec.cancelled) != 1 || exec.cancelled[0] != "7" {
		t.Fatalf("expected cancel of order 7, got %v", exec.cancelled)
	}
	if metrics.rejections["maker_timeout"] != 1 {
		t.Fatalf("expected maker_timeout rejection, got %+v", metrics.rejections)
	}
}

func TestWatchdogTerminalStatusDone(t *testing.T) {
	exec := &watchdogExecutor{status: models.NewExecRejected("expired_unfilled")}
	j := newWatchdog(exec, newSpyMetrics())
	if err := j.Handle(context.Background(), WatchOrderPayload{OrderID: "7", PlacedAt: time.Now().Add(-time.Minute)}); err != nil {
		t.Fatalf("terminal order must finish the job: %v", err)
	}
	if len(exec.cancelled) != 0 {
		t.Fatalf("terminal order must not be cancelled")
	}
}
