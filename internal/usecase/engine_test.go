package usecase

import (
	"context"
	"testing"
	"time"

	"BookPulse/internal/domain/models"
	"BookPulse/internal/services/execution"
	"BookPulse/internal/services/risk"
	"BookPulse/internal/services/strategy"
)

type mockExecutor struct {
	calls      int
	lastSignal models.TradeSignal
	lastQty    float64
	lastType   models.OrderType
	lastPrice  float64
	result     *models.ExecutionResult
	executed   chan struct{}
}

func (m *mockExecutor) Execute(_ context.Context, signal models.TradeSignal, quantity float64, orderType models.OrderType, limitPrice float64) *models.ExecutionResult {
	m.calls++
	m.lastSignal = signal
	m.lastQty = quantity
	m.lastType = orderType
	m.lastPrice = limitPrice
	if m.executed != nil {
		select {
		case m.executed <- struct{}{}:
		default:
		}
	}
	return m.result
}

func (m *mockExecutor) CancelOrder(context.Context, string) (bool, error) { return false, nil }

func (m *mockExecutor) GetOrderStatus(context.Context, string) (*models.ExecutionResult, error) {
	return nil, nil
}

type spyMetrics struct {
	decisions  map[string]int
	rejections map[string]int
	errors     map[string]int
}

func newSpyMetrics() *spyMetrics {
	return &spyMetrics{
		decisions:  map[string]int{},
		rejections: map[string]int{},
		errors:     map[string]int{},
	}
}

func (s *spyMetrics) RecordDecision(outcome string) { s.decisions[outcome]++ }
func (s *spyMetrics) RecordRejection(reason string) { s.rejections[reason]++ }
func (s *spyMetrics) RecordError(kind string)       { s.errors[kind]++ }
func (s *spyMetrics) RecordLastPrice(string, float64) {}
func (s *spyMetrics) RecordLatency(string, float64) {}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

type spyWatcher struct {
	orderIDs []string
}

func (w *spyWatcher) WatchOrder(_ context.Context, orderID string, _ time.Time) error {
	w.orderIDs = append(w.orderIDs, orderID)
	return nil
}

type engineHarness struct {
	engine   *Engine
	executor *mockExecutor
	metrics  *spyMetrics
	riskMgr  *risk.Manager
	clock    *fixedClock
}

func newHarness(t *testing.T, momentumThreshold float64) *engineHarness {
	t.Helper()
	clock := &fixedClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	executor := &mockExecutor{}
	metrics := newSpyMetrics()
	riskMgr := risk.NewManager(risk.ManagerConfig{StartingEquity: 10000}, clock)
	eng := NewEngine(
		EngineConfig{
			MaxSnapshotAge: 3 * time.Second,
			EstimatePct:    0.005,
			StopLossPct:    0.01,
			TakeProfitPct:  0.02,
			StepSize:       0.00001,
			MinQuantity:    0.00001,
		},
		strategy.NewImbalanceCalculator(1.5, 0.67, 20),
		strategy.NewTradeFlowAnalyzer(5*time.Second, 1.5),
		risk.NewSpreadFilter(0.001, 0.02),
		risk.NewPositionSizer(risk.SizerConfig{}),
		riskMgr,
		execution.NewPolicy(execution.PolicyConfig{MomentumThreshold: momentumThreshold, PreferMaker: true}),
		executor,
		nil,
		metrics,
		clock,
		nil,
	)
	return &engineHarness{engine: eng, executor: executor, metrics: metrics, riskMgr: riskMgr, clock: clock}
}

func marketSnapshot(t *testing.T, bidQty, askQty string, flow models.TradeFlowMetrics, ts time.Time) *models.MarketSnapshot {
	t.Helper()
	book := models.OrderBookData{
		Symbol:    "BTCUSDT",
		Bids:      []models.OrderBookLevel{{Price: "100.00", Quantity: bidQty}},
		Asks:      []models.OrderBookLevel{{Price: "100.01", Quantity: askQty}},
		Timestamp: ts,
	}
	s, err := models.NewMarketSnapshot(book, flow, 0.01, ts)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return s
}

func buyFlow(buy, sell float64) models.TradeFlowMetrics {
	return models.TradeFlowMetrics{
		AggressiveBuyVolume:  buy,
		AggressiveSellVolume: sell,
		TotalVolume:          buy + sell,
		BuyPressureRatio:     models.PressureRatio(buy, sell),
		SellPressureRatio:    models.PressureRatio(sell, buy),
		SampleCount:          8,
		Window:               5 * time.Second,
	}
}

func TestEngineExecutesConfirmedLong(t *testing.T) {
	h := newHarness(t, 1.2)
	h.executor.result = models.NewExecSuccess("42", 0.19998, 100.01, 0.02)

	// bid-heavy book, buy-dominant tape
	s := marketSnapshot(t, "30", "10", buyFlow(750, 250), h.clock.now)
	res := h.engine.OnMarketUpdate(context.Background(), s)
	if res == nil || res.Status != models.ExecSuccess {
		t.Fatalf("expected executed result, got %+v", res)
	}
	if h.executor.calls != 1 {
		t.Fatalf("expected 1 execution, got %d", h.executor.calls)
	}
	if h.executor.lastSignal.Direction != models.DirectionLong {
		t.Fatalf("expected long, got %v", h.executor.lastSignal.Direction)
	}
	// momentum 1.5 > 1.2 demands a guaranteed fill
	if h.executor.lastType != models.OrderTypeMarket {
		t.Fatalf("expected MARKET, got %v", h.executor.lastType)
	}
	if h.executor.lastQty <= 0 {
		t.Fatalf("expected positive quantity, got %v", h.executor.lastQty)
	}
	if h.metrics.decisions[models.OutcomeExecuted] != 1 {
		t.Fatalf("expected executed decision, got %+v", h.metrics.decisions)
	}
}

func TestEngineNoSignalOnBalancedBook(t *testing.T) {
	h := newHarness(t, 1.2)
	s := marketSnapshot(t, "10", "10", buyFlow(500, 500), h.clock.now)
	if res := h.engine.OnMarketUpdate(context.Background(), s); res != nil {
		t.Fatalf("balanced book must not trade, got %+v", res)
	}
	if h.executor.calls != 0 {
		t.Fatalf("executor must not be called, got %d", h.executor.calls)
	}
	if h.metrics.decisions[models.OutcomeNoSignal] != 1 {
		t.Fatalf("expected no_signal decision, got %+v", h.metrics.decisions)
	}
}

func TestEngineImbalanceWithoutFlowConfirmation(t *testing.T) {
	h := newHarness(t, 1.2)
	// book screams long, tape disagrees
	s := marketSnapshot(t, "30", "10", buyFlow(400, 600), h.clock.now)
	if res := h.engine.OnMarketUpdate(context.Background(), s); res != nil {
		t.Fatalf("unconfirmed imbalance must not trade, got %+v", res)
	}
	if h.executor.calls != 0 {
		t.Fatalf("executor must not be called, got %d", h.executor.calls)
	}
}

func TestEngineWideSpreadRejectedBeforeStrategy(t *testing.T) {
	h := newHarness(t, 1.2)
	book := models.OrderBookData{
		Symbol:    "BTCUSDT",
		Bids:      []models.OrderBookLevel{{Price: "99.00", Quantity: "30"}},
		Asks:      []models.OrderBookLevel{{Price: "101.00", Quantity: "10"}},
		Timestamp: h.clock.now,
	}
	s, err := models.NewMarketSnapshot(book, buyFlow(750, 250), 0.01, h.clock.now)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if res := h.engine.OnMarketUpdate(context.Background(), s); res != nil {
		t.Fatalf("wide spread must not trade, got %+v", res)
	}
	if h.executor.calls != 0 {
		t.Fatalf("executor must not be called, got %d", h.executor.calls)
	}
	if h.metrics.rejections["precheck"] != 1 {
		t.Fatalf("expected precheck rejection, got %+v", h.metrics.rejections)
	}
}

func TestEngineRiskGateShortCircuits(t *testing.T) {
	h := newHarness(t, 1.2)
	h.riskMgr.RecordTradeResult(-400) // over the daily loss limit

	s := marketSnapshot(t, "30", "10", buyFlow(750, 250), h.clock.now)
	if res := h.engine.OnMarketUpdate(context.Background(), s); res != nil {
		t.Fatalf("blocked risk gate must not trade, got %+v", res)
	}
	if h.executor.calls != 0 {
		t.Fatalf("nothing downstream may run when the gate is closed, got %d calls", h.executor.calls)
	}
	if h.metrics.decisions[models.OutcomeRiskBlocked] != 1 {
		t.Fatalf("expected risk_blocked decision, got %+v", h.metrics.decisions)
	}
}

func TestEngineLossStreakCooldownShortCircuits(t *testing.T) {
	h := newHarness(t, 1.2)
	for i := 0; i < 3; i++ {
		h.riskMgr.RecordTradeResult(-10)
	}

	s := marketSnapshot(t, "30", "10", buyFlow(750, 250), h.clock.now)
	if res := h.engine.OnMarketUpdate(context.Background(), s); res != nil {
		t.Fatalf("cooldown must not trade, got %+v", res)
	}
	if h.executor.calls != 0 {
		t.Fatalf("nothing downstream may run during cooldown, got %d calls", h.executor.calls)
	}
	if h.metrics.decisions[models.OutcomeRiskBlocked] != 1 {
		t.Fatalf("expected risk_blocked decision, got %+v", h.metrics.decisions)
	}
}

func TestEngineStaleSnapshotDropped(t *testing.T) {
	h := newHarness(t, 1.2)
	s := marketSnapshot(t, "30", "10", buyFlow(750, 250), h.clock.now.Add(-4*time.Second))
	if res := h.engine.OnMarketUpdate(context.Background(), s); res != nil {
		t.Fatalf("stale snapshot must not trade, got %+v", res)
	}
	if h.metrics.rejections["stale_snapshot"] != 1 {
		t.Fatalf("expected stale rejection, got %+v", h.metrics.rejections)
	}
	if h.engine.OnMarketUpdate(context.Background(), nil) != nil {
		t.Fatalf("nil snapshot must not trade")
	}
}

func TestEngineWatchesRestingMakerOrder(t *testing.T) {
	// momentum threshold raised so the maker path is reachable
	h := newHarness(t, 2.0)
	watcher := &spyWatcher{}
	h.engine.SetOrderWatcher(watcher)
	// accepted but unfilled
	h.executor.result = models.NewExecSuccess("77", 0, 0, 0)

	s := marketSnapshot(t, "30", "10", buyFlow(700, 300), h.clock.now)
	res := h.engine.OnMarketUpdate(context.Background(), s)
	if res == nil {
		t.Fatalf("expected a placed order")
	}
	if h.executor.lastType != models.OrderTypeLimitMaker {
		t.Fatalf("expected LIMIT_MAKER, got %v", h.executor.lastType)
	}
	if len(watcher.orderIDs) != 1 || watcher.orderIDs[0] != "77" {
		t.Fatalf("resting maker order must be watched, got %v", watcher.orderIDs)
	}
}

func TestEngineRunDrainsMailbox(t *testing.T) {
	h := newHarness(t, 1.2)
	h.executor.result = models.NewExecSuccess("1", 0.1, 100.01, 0.01)
	h.executor.executed = make(chan struct{}, 1)

	src := &fakeSource{
		updates: make(chan struct{}, 1),
		latest:  marketSnapshot(t, "30", "10", buyFlow(750, 250), h.clock.now),
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.engine.Run(ctx, src)
		close(done)
	}()
	src.updates <- struct{}{}
	select {
	case <-h.executor.executed:
	case <-time.After(2 * time.Second):
		t.Fatalf("engine never consumed the update")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("engine did not stop on context cancel")
	}
}

type fakeSource struct {
	updates chan struct{}
	latest  *models.MarketSnapshot
}

func (f *fakeSource) Updates() <-chan struct{}       { return f.updates }
func (f *fakeSource) Latest() *models.MarketSnapshot { return f.latest }
