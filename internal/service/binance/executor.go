package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"BookPulse/internal/domain/models"
	drepo "BookPulse/internal/domain/repository"
	"BookPulse/internal/service/ratelimit"
	pkghttp "BookPulse/pkg/http"
	"BookPulse/pkg/logger"

	"github.com/google/uuid"
)

const orderRateKey = "binance:order"

// ExecutorConfig holds REST trading endpoint settings.
type ExecutorConfig struct {
	BaseURL       string
	APIKey        string
	APISecret     string
	Symbol        string
	RecvWindowMS  int64
	OrderCapacity float64 // token bucket size for order placement
	OrderPerSec   float64 // refill rate
}

// Executor places spot orders over the signed REST API.
type Executor struct {
	cfg     ExecutorConfig
	client  *pkghttp.Client
	limiter *ratelimit.Limiter
	log     *logger.Logger
}

// NewExecutor creates an OrderExecutor backed by the exchange REST API.
func NewExecutor(cfg ExecutorConfig, client *pkghttp.Client, limiter *ratelimit.Limiter, log *logger.Logger) drepo.OrderExecutor {
	if cfg.RecvWindowMS <= 0 {
		cfg.RecvWindowMS = 5000
	}
	if cfg.OrderCapacity <= 0 {
		cfg.OrderCapacity = 10
	}
	if cfg.OrderPerSec <= 0 {
		cfg.OrderPerSec = 5
	}
	return &Executor{cfg: cfg, client: client, limiter: limiter, log: log}
}

type orderResponse struct {
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Status        string `json:"status"`
	ExecutedQty   string `json:"executedQty"`
	CumQuoteQty   string `json:"cummulativeQuoteQty"`
	Fills         []struct {
		Price      string `json:"price"`
		Qty        string `json:"qty"`
		Commission string `json:"commission"`
	} `json:"fills"`
}

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Execute places one order and maps the exchange response to a terminal
// result. Never retries.
func (e *Executor) Execute(ctx context.Context, signal models.TradeSignal, quantity float64, orderType models.OrderType, limitPrice float64) *models.ExecutionResult {
	if !signal.IsActionable() {
		return models.NewExecRejected("no_direction")
	}
	if quantity <= 0 {
		return models.NewExecRejected("zero_quantity")
	}
	if e.limiter != nil && !e.limiter.Allow(orderRateKey, e.cfg.OrderCapacity, e.cfg.OrderPerSec) {
		return models.NewExecRejected("rate_limited")
	}

	params := url.Values{}
	params.Set("symbol", e.cfg.Symbol)
	params.Set("side", sideFor(signal.Direction))
	params.Set("quantity", strconv.FormatFloat(quantity, 'f', -1, 64))
	params.Set("newClientOrderId", uuid.NewString())
	params.Set("newOrderRespType", "FULL")

	switch orderType {
	case models.OrderTypeMarket:
		params.Set("type", "MARKET")
	case models.OrderTypeLimitMaker:
		params.Set("type", "LIMIT_MAKER")
		params.Set("price", strconv.FormatFloat(limitPrice, 'f', -1, 64))
	case models.OrderTypeLimitTaker:
		params.Set("type", "LIMIT")
		params.Set("timeInForce", "IOC")
		params.Set("price", strconv.FormatFloat(limitPrice, 'f', -1, 64))
	default:
		return models.NewExecRejected("unknown_order_type")
	}

	var resp orderResponse
	status, body, err := e.signedRequest(ctx, pkghttp.MethodPost, "/api/v3/order", params)
	if err != nil {
		return models.NewExecError("order request", err)
	}
	if status >= 400 && status < 500 {
		return models.NewExecRejected(rejectionReason(body))
	}
	if status >= 500 {
		return models.NewExecError("order request", fmt.Errorf("exchange status %d: %s", status, body))
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.NewExecError("order response decode", err)
	}

	if e.log != nil {
		e.log.Info("order placed",
			logger.String("order_id", strconv.FormatInt(resp.OrderID, 10)),
			logger.String("type", string(orderType)),
			logger.String("status", resp.Status))
	}
	return e.mapOrder(&resp)
}

func (e *Executor) mapOrder(resp *orderResponse) *models.ExecutionResult {
	orderID := strconv.FormatInt(resp.OrderID, 10)
	filled, _ := strconv.ParseFloat(resp.ExecutedQty, 64)
	cumQuote, _ := strconv.ParseFloat(resp.CumQuoteQty, 64)
	avg := 0.0
	if filled > 0 {
		avg = cumQuote / filled
	}
	fee := 0.0
	for _, f := range resp.Fills {
		c, _ := strconv.ParseFloat(f.Commission, 64)
		fee += c
	}
	switch resp.Status {
	case "FILLED":
		return models.NewExecSuccess(orderID, filled, avg, fee)
	case "PARTIALLY_FILLED":
		return models.NewExecPartial(orderID, filled, avg, fee)
	case "NEW":
		// resting maker order, accepted but unfilled
		return models.NewExecSuccess(orderID, 0, 0, 0)
	case "EXPIRED":
		if filled > 0 {
			return models.NewExecPartial(orderID, filled, avg, fee)
		}
		return models.NewExecRejected("expired_unfilled")
	default:
		return models.NewExecRejected("exchange_status_" + resp.Status)
	}
}

// CancelOrder cancels a resting order. Returns false without error when the
// order is already gone.
func (e *Executor) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	params := url.Values{}
	params.Set("symbol", e.cfg.Symbol)
	params.Set("orderId", orderID)

	status, body, err := e.signedRequest(ctx, pkghttp.MethodDelete, "/api/v3/order", params)
	if err != nil {
		return false, fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	if status >= 200 && status < 300 {
		return true, nil
	}
	var ae apiError
	if json.Unmarshal(body, &ae) == nil && ae.Code == -2011 {
		// unknown order: already filled or cancelled
		return false, nil
	}
	return false, fmt.Errorf("cancel order %s: status %d: %s", orderID, status, body)
}

// GetOrderStatus fetches the current state of an order.
func (e *Executor) GetOrderStatus(ctx context.Context, orderID string) (*models.ExecutionResult, error) {
	params := url.Values{}
	params.Set("symbol", e.cfg.Symbol)
	params.Set("orderId", orderID)

	status, body, err := e.signedRequest(ctx, pkghttp.MethodGet, "/api/v3/order", params)
	if err != nil {
		return nil, fmt.Errorf("order status %s: %w", orderID, err)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("order status %s: status %d: %s", orderID, status, body)
	}
	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("order status %s: decode: %w", orderID, err)
	}
	return e.mapOrder(&resp), nil
}

// signedRequest appends timestamp and HMAC signature, sends the request and
// returns status plus raw body.
func (e *Executor) signedRequest(ctx context.Context, method, path string, params url.Values) (int, []byte, error) {
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("recvWindow", strconv.FormatInt(e.cfg.RecvWindowMS, 10))

	query := params.Encode()
	mac := hmac.New(sha256.New, []byte(e.cfg.APISecret))
	mac.Write([]byte(query))
	query += "&signature=" + hex.EncodeToString(mac.Sum(nil))

	resp, err := e.client.SendRequest(ctx, &pkghttp.RequestOptions{
		Method:  method,
		URL:     e.cfg.BaseURL + path + "?" + query,
		Headers: map[string]string{"X-MBX-APIKEY": e.cfg.APIKey},
	})
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func sideFor(d models.Direction) string {
	if d == models.DirectionShort {
		return "SELL"
	}
	return "BUY"
}

func rejectionReason(body []byte) string {
	var ae apiError
	if json.Unmarshal(body, &ae) == nil && ae.Msg != "" {
		return fmt.Sprintf("exchange_%d: %s", ae.Code, ae.Msg)
	}
	return "exchange_rejected"
}
