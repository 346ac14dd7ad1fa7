package api

import (
	"encoding/json"
	"fmt"
	"time"

	"BookPulse/internal/domain/models"
	"BookPulse/internal/middleware"
	icache "BookPulse/internal/service/cache"
	"BookPulse/internal/service/metrics"
	"BookPulse/internal/usecase"
	xhttp "BookPulse/pkg/http"
	xlogger "BookPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

const decisionsCacheTTL = 2 * time.Second

// OpsEchoHandler serves the read-side ops endpoints plus the explicit risk
// rollover. It never mutates engine state except through the risk manager.
type OpsEchoHandler struct {
	logger      *xlogger.Logger
	environment string
	symbol      string
	collector   *usecase.MarketCollector
	mailbox     *middleware.SnapshotMailbox
	engine      *usecase.Engine
	recorder    *usecase.DecisionRecorder
	cache       icache.BytesCache
}

func NewOpsEchoHandler(
	logger *xlogger.Logger,
	environment, symbol string,
	collector *usecase.MarketCollector,
	mailbox *middleware.SnapshotMailbox,
	engine *usecase.Engine,
	recorder *usecase.DecisionRecorder,
	cache icache.BytesCache,
) *OpsEchoHandler {
	return &OpsEchoHandler{
		logger:      logger,
		environment: environment,
		symbol:      symbol,
		collector:   collector,
		mailbox:     mailbox,
		engine:      engine,
		recorder:    recorder,
		cache:       cache,
	}
}

func (h *OpsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.GET("/risk", h.Risk)
	g.GET("/snapshot", h.Snapshot)
	g.GET("/decisions", h.Decisions)
	g.POST("/risk/rollover", h.Rollover)
}

func (h *OpsEchoHandler) Status(c echo.Context) error {
	start := time.Now()
	defer func() {
		metrics.OpsLatency.WithLabelValues("status").Observe(time.Since(start).Seconds())
	}()

	status := map[string]interface{}{
		"environment": h.environment,
		"symbol":      h.symbol,
		"connected":   h.collector.IsConnected(),
		"can_trade":   h.engine.RiskManager().Status().CanTrade,
	}
	if s := h.mailbox.Latest(); s != nil {
		status["snapshot_age_ms"] = time.Since(s.Timestamp).Milliseconds()
	}
	return xhttp.SuccessResponse(c, status)
}

func (h *OpsEchoHandler) Risk(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.engine.RiskManager().Status())
}

func (h *OpsEchoHandler) Snapshot(c echo.Context) error {
	s := h.mailbox.Latest()
	if s == nil {
		return xhttp.NotFoundResponse(c, "no market data yet")
	}
	view := map[string]interface{}{
		"symbol":         s.Symbol,
		"best_bid":       s.BestBid,
		"best_ask":       s.BestAsk,
		"mid_price":      s.MidPrice,
		"spread_pct":     s.SpreadPct,
		"volatility_pct": s.WindowVolatilityPct,
		"flow":           s.Flow,
		"ts":             s.Timestamp,
	}
	return xhttp.SuccessResponse(c, view)
}

func (h *OpsEchoHandler) Decisions(c echo.Context) error {
	start := time.Now()
	req := &models.DecisionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if req.Symbol == "" {
		req.Symbol = h.symbol
	}

	key := fmt.Sprintf("decisions:%s:%d", req.Symbol, req.Limit)
	if b, ok, _ := h.cache.GetBytes(key); ok {
		var cached []*models.DecisionRecord
		if json.Unmarshal(b, &cached) == nil {
			return xhttp.SuccessResponse(c, cached)
		}
	}

	recs, err := h.recorder.Recent(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		metrics.OpsErrors.WithLabelValues("decisions").Inc()
		h.logger.Error("decisions query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if b, err := json.Marshal(recs); err == nil {
		_ = h.cache.SetBytes(key, b, decisionsCacheTTL)
	}
	metrics.OpsLatency.WithLabelValues("decisions").Observe(time.Since(start).Seconds())
	return xhttp.SuccessResponse(c, recs)
}

func (h *OpsEchoHandler) Rollover(c echo.Context) error {
	req := &models.RolloverRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	mgr := h.engine.RiskManager()
	mgr.RolloverDay()
	if req.Equity > 0 {
		mgr.SetEquity(req.Equity)
	}
	h.logger.Info("risk day rolled over", xlogger.Float64("equity", mgr.Equity()))
	return xhttp.SuccessResponse(c, mgr.Status())
}
