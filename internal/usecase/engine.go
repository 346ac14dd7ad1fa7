package usecase

import (
	"context"
	"time"

	"BookPulse/internal/domain/models"
	drepo "BookPulse/internal/domain/repository"
	"BookPulse/internal/services/execution"
	"BookPulse/internal/services/risk"
	"BookPulse/internal/services/strategy"
	"BookPulse/pkg/logger"
)

// EngineConfig is the immutable engine-level parameter set, fixed at
// construction. Component thresholds live in the components themselves.
type EngineConfig struct {
	MaxSnapshotAge time.Duration // stale data invalidates decisions
	EstimatePct    float64       // rough pre-check size, fraction of equity
	StopLossPct    float64       // entry-to-stop distance for emitted signals
	TakeProfitPct  float64
	StepSize       float64 // exchange quantity step
	MinQuantity    float64
}

// Engine is the single-entry-point orchestrator: one strict, short-circuiting
// pipeline per market update. Any failed step aborts the cycle with a nil
// result; the engine is simply re-invoked on the next update.
type Engine struct {
	cfg       EngineConfig
	imbalance *strategy.ImbalanceCalculator
	flow      *strategy.TradeFlowAnalyzer
	filter    *risk.SpreadFilter
	sizer     *risk.PositionSizer
	riskMgr   *risk.Manager
	policy    *execution.Policy
	executor  drepo.OrderExecutor
	recorder  *DecisionRecorder
	watcher   OrderWatcher
	metrics   drepo.Metrics
	clock     drepo.Clock
	log       *logger.Logger
}

// NewEngine wires the pipeline. recorder may be nil (journalling disabled).
func NewEngine(
	cfg EngineConfig,
	imbalance *strategy.ImbalanceCalculator,
	flow *strategy.TradeFlowAnalyzer,
	filter *risk.SpreadFilter,
	sizer *risk.PositionSizer,
	riskMgr *risk.Manager,
	policy *execution.Policy,
	executor drepo.OrderExecutor,
	recorder *DecisionRecorder,
	metrics drepo.Metrics,
	clock drepo.Clock,
	log *logger.Logger,
) *Engine {
	if cfg.MaxSnapshotAge <= 0 {
		cfg.MaxSnapshotAge = 3 * time.Second
	}
	if cfg.EstimatePct <= 0 {
		cfg.EstimatePct = 0.005
	}
	if cfg.StopLossPct <= 0 {
		cfg.StopLossPct = 0.01
	}
	if cfg.TakeProfitPct <= 0 {
		cfg.TakeProfitPct = 0.02
	}
	if clock == nil {
		clock = drepo.SystemClock{}
	}
	if log == nil {
		log, _ = logger.New(&logger.Config{Level: "info", Format: "console", Output: "stdout"})
	}
	return &Engine{
		cfg:       cfg,
		imbalance: imbalance,
		flow:      flow,
		filter:    filter,
		sizer:     sizer,
		riskMgr:   riskMgr,
		policy:    policy,
		executor:  executor,
		recorder:  recorder,
		metrics:   metrics,
		clock:     clock,
		log:       log,
	}
}

// RiskManager exposes the gate for the ops API and the fills handler.
func (e *Engine) RiskManager() *risk.Manager { return e.riskMgr }

// SetOrderWatcher enables resting-order supervision. Optional.
func (e *Engine) SetOrderWatcher(w OrderWatcher) { e.watcher = w }

// SnapshotSource is the latest-value mailbox the engine loop drains.
type SnapshotSource interface {
	Updates() <-chan struct{}
	Latest() *models.MarketSnapshot
}

// Run consumes snapshots from the mailbox until the context ends. Each wakeup
// reads the latest value so the engine never works on a backlog.
func (e *Engine) Run(ctx context.Context, src SnapshotSource) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-src.Updates():
			if !ok {
				return
			}
			e.OnMarketUpdate(ctx, src.Latest())
		}
	}
}

// OnMarketUpdate runs one evaluation cycle. A nil result is the normal-path
// "no trade"; only an executed order returns a value.
func (e *Engine) OnMarketUpdate(ctx context.Context, s *models.MarketSnapshot) *models.ExecutionResult {
	start := time.Now()
	defer func() {
		e.metrics.RecordLatency("engine_cycle", time.Since(start).Seconds())
	}()

	if s == nil || s.IsStale(e.cfg.MaxSnapshotAge, e.clock.Now()) {
		e.metrics.RecordRejection("stale_snapshot")
		return nil
	}
	e.metrics.RecordLastPrice(s.Symbol, s.MidPrice)

	// 1. risk gate: nothing else runs when it fails
	if !e.riskMgr.CanTrade(s) {
		e.metrics.RecordDecision(models.OutcomeRiskBlocked)
		e.log.Debug("risk gate closed", logger.String("symbol", s.Symbol))
		return nil
	}

	// 2-3. rough size pre-check with assumed buy direction
	equity := e.riskMgr.Equity()
	estimate := equity * e.cfg.EstimatePct
	if reason := e.filter.RejectionReason(s, estimate, true); reason != "" {
		e.metrics.RecordRejection("precheck")
		e.metrics.RecordDecision(models.OutcomeRejected)
		return nil
	}

	// 4-5. strategy evaluation
	signal, imb := e.evaluate(s)
	if !signal.IsActionable() {
		e.metrics.RecordDecision(models.OutcomeNoSignal)
		return nil
	}
	isBuy := signal.Direction == models.DirectionLong

	// 6. direction-aware re-check: a pass under the placeholder direction
	// does not imply a pass under the actual one
	if reason := e.filter.RejectionReason(s, estimate, isBuy); reason != "" {
		e.metrics.RecordRejection("direction_check")
		e.record(ctx, s, signal, imb, models.OutcomeRejected, reason, 0, 0, "", 0, nil)
		return nil
	}

	// 7-8. size under depth and risk ceilings
	stopPct, _ := signal.StopLossPct()
	quoteSize := e.sizer.QuoteSize(s, equity, isBuy, stopPct)
	if quoteSize <= 0 {
		e.metrics.RecordDecision(models.OutcomeSizedOut)
		e.record(ctx, s, signal, imb, models.OutcomeSizedOut, "below minimum viable size", 0, 0, "", 0, nil)
		return nil
	}

	// 9. order type and price
	orderType, limitPrice := e.policy.Decide(s, signal)

	// 10. convert to base units at exchange precision
	qty := risk.AdjustQuantity(risk.CalculateBaseQuantity(quoteSize, signal.EntryPrice), e.cfg.StepSize, e.cfg.MinQuantity)
	if qty <= 0 {
		e.metrics.RecordDecision(models.OutcomeSizedOut)
		e.record(ctx, s, signal, imb, models.OutcomeSizedOut, "quantity below exchange minimum", quoteSize, 0, string(orderType), limitPrice, nil)
		return nil
	}

	// 11. execute; the result propagates verbatim, no retries
	res := e.executor.Execute(ctx, signal, qty, orderType, limitPrice)
	outcome := models.OutcomeExecuted
	if res != nil && res.Status == models.ExecError {
		outcome = models.OutcomeError
	}
	e.metrics.RecordDecision(outcome)
	e.record(ctx, s, signal, imb, outcome, "", quoteSize, qty, string(orderType), limitPrice, res)
	if e.watcher != nil && orderType == models.OrderTypeLimitMaker && res != nil && res.IsFill() && res.FilledQty == 0 && res.OrderID != "" {
		if err := e.watcher.WatchOrder(ctx, res.OrderID, time.Now()); err != nil {
			e.metrics.RecordError("watch_enqueue")
			e.log.Warn("watch enqueue failed", logger.Error(err))
		}
	}
	e.log.Info("order placed",
		logger.String("symbol", s.Symbol),
		logger.String("direction", signal.Direction.String()),
		logger.String("order_type", string(orderType)),
		logger.Float64("quantity", qty),
		logger.Float64("entry", signal.EntryPrice),
	)
	return res
}

// evaluate computes the imbalance signal and requires trade-flow
// confirmation before emitting a direction.
func (e *Engine) evaluate(s *models.MarketSnapshot) (models.TradeSignal, float64) {
	imb := e.imbalance.Calculate(&s.Book)

	switch {
	case e.imbalance.SuggestsLong(imb) && e.flow.ConfirmsLong(s.Flow):
		entry := s.BestAsk
		return models.TradeSignal{
			Direction:  models.DirectionLong,
			Confidence: e.imbalance.Confidence(imb, models.DirectionLong),
			EntryPrice: entry,
			StopLoss:   entry * (1 - e.cfg.StopLossPct),
			TakeProfit: entry * (1 + e.cfg.TakeProfitPct),
			Timestamp:  s.Timestamp,
		}, imb
	case e.imbalance.SuggestsShort(imb) && e.flow.ConfirmsShort(s.Flow):
		entry := s.BestBid
		return models.TradeSignal{
			Direction:  models.DirectionShort,
			Confidence: e.imbalance.Confidence(imb, models.DirectionShort),
			EntryPrice: entry,
			StopLoss:   entry * (1 + e.cfg.StopLossPct),
			TakeProfit: entry * (1 - e.cfg.TakeProfitPct),
			Timestamp:  s.Timestamp,
		}, imb
	default:
		return models.NoSignal(), imb
	}
}

func (e *Engine) record(ctx context.Context, s *models.MarketSnapshot, sig models.TradeSignal, imb float64, outcome, reason string, quoteSize, qty float64, orderType string, limitPrice float64, res *models.ExecutionResult) {
	if e.recorder == nil {
		return
	}
	rec := &models.DecisionRecord{
		Symbol:     s.Symbol,
		Timestamp:  e.clock.Now(),
		Outcome:    outcome,
		Direction:  sig.Direction.String(),
		Reason:     reason,
		Imbalance:  imb,
		Confidence: sig.Confidence,
		SpreadPct:  s.SpreadPct,
		QuoteSize:  quoteSize,
		Quantity:   qty,
		OrderType:  orderType,
		LimitPrice: limitPrice,
	}
	if res != nil {
		rec.OrderID = res.OrderID
		rec.Status = string(res.Status)
		if res.Status == models.ExecRejected || res.Status == models.ExecError {
			rec.Reason = res.Reason
		}
	}
	if err := e.recorder.Record(ctx, rec); err != nil {
		e.metrics.RecordError("journal")
		e.log.Warn("journal record failed", logger.Error(err))
	}
}
