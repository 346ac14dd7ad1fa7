package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"BookPulse/internal/domain/models"
	pkghttp "BookPulse/pkg/http"
)

func testExecutor(baseURL string) *Executor {
	return NewExecutor(ExecutorConfig{
		BaseURL:   baseURL,
		APIKey:    "test-key",
		APISecret: "test-secret",
		Symbol:    "BTCUSDT",
	}, pkghttp.NewClient(), nil, nil).(*Executor)
}

func longSignal() models.TradeSignal {
	return models.TradeSignal{Direction: models.DirectionLong, EntryPrice: 100.01}
}

func TestExecuteFilledMarketOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("X-MBX-APIKEY") != "test-key" {
			t.Errorf("missing api key header")
		}
		q := r.URL.Query()
		if q.Get("signature") == "" || q.Get("timestamp") == "" {
			t.Errorf("request must be signed")
		}
		if q.Get("type") != "MARKET" || q.Get("side") != "BUY" {
			t.Errorf("unexpected order params: %v", q)
		}
		w.Write([]byte(`{"orderId":123,"status":"FILLED","executedQty":"0.5","cummulativeQuoteQty":"50.005","fills":[{"price":"100.01","qty":"0.5","commission":"0.05"}]}`))
	}))
	defer srv.Close()

	e := testExecutor(srv.URL)
	res := e.Execute(context.Background(), longSignal(), 0.5, models.OrderTypeMarket, 0)
	if res.Status != models.ExecSuccess {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.OrderID != "123" || res.FilledQty != 0.5 {
		t.Fatalf("mapping wrong: %+v", res)
	}
	if res.AvgFillPrice != 100.01 || res.Fee != 0.05 {
		t.Fatalf("fill math wrong: %+v", res)
	}
}

func TestExecuteRestingMakerOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("type") != "LIMIT_MAKER" || q.Get("price") == "" {
			t.Errorf("unexpected order params: %v", q)
		}
		w.Write([]byte(`{"orderId":124,"status":"NEW","executedQty":"0","cummulativeQuoteQty":"0"}`))
	}))
	defer srv.Close()

	e := testExecutor(srv.URL)
	res := e.Execute(context.Background(), longSignal(), 0.5, models.OrderTypeLimitMaker, 99.99)
	if res.Status != models.ExecSuccess || res.FilledQty != 0 {
		t.Fatalf("resting order must map to accepted-unfilled, got %+v", res)
	}
	if res.OrderID != "124" {
		t.Fatalf("expected order id 124, got %q", res.OrderID)
	}
}

func TestExecuteExchangeRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-2010,"msg":"Account has insufficient balance"}`))
	}))
	defer srv.Close()

	e := testExecutor(srv.URL)
	res := e.Execute(context.Background(), longSignal(), 0.5, models.OrderTypeMarket, 0)
	if res.Status != models.ExecRejected {
		t.Fatalf("4xx must map to rejection, got %+v", res)
	}
	if res.Reason == "" {
		t.Fatalf("rejection must carry the exchange reason")
	}
}

func TestExecuteGuards(t *testing.T) {
	e := testExecutor("http://unused")
	if res := e.Execute(context.Background(), models.NoSignal(), 1, models.OrderTypeMarket, 0); res.Status != models.ExecRejected {
		t.Fatalf("no direction must reject, got %+v", res)
	}
	if res := e.Execute(context.Background(), longSignal(), 0, models.OrderTypeMarket, 0); res.Status != models.ExecRejected {
		t.Fatalf("zero quantity must reject, got %+v", res)
	}
}

func TestMapOrderStatuses(t *testing.T) {
	e := testExecutor("http://unused")

	partial := e.mapOrder(&orderResponse{OrderID: 1, Status: "PARTIALLY_FILLED", ExecutedQty: "0.2", CumQuoteQty: "20"})
	if partial.Status != models.ExecPartialFill || partial.AvgFillPrice != 100 {
		t.Fatalf("partial mapping wrong: %+v", partial)
	}

	expiredEmpty := e.mapOrder(&orderResponse{OrderID: 2, Status: "EXPIRED", ExecutedQty: "0", CumQuoteQty: "0"})
	if expiredEmpty.Status != models.ExecRejected {
		t.Fatalf("unfilled IOC expiry must reject: %+v", expiredEmpty)
	}

	expiredPartial := e.mapOrder(&orderResponse{OrderID: 3, Status: "EXPIRED", ExecutedQty: "0.1", CumQuoteQty: "10"})
	if expiredPartial.Status != models.ExecPartialFill {
		t.Fatalf("partially filled IOC expiry must be a partial: %+v", expiredPartial)
	}

	unknown := e.mapOrder(&orderResponse{OrderID: 4, Status: "PENDING_CANCEL"})
	if unknown.Status != models.ExecRejected {
		t.Fatalf("unknown status must reject: %+v", unknown)
	}
}

func TestCancelOrderAlreadyGone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-2011,"msg":"Unknown order sent."}`))
	}))
	defer srv.Close()

	e := testExecutor(srv.URL)
	cancelled, err := e.CancelOrder(context.Background(), "42")
	if err != nil {
		t.Fatalf("already-gone order is not an error: %v", err)
	}
	if cancelled {
		t.Fatalf("already-gone order must report false")
	}
}

func TestCancelOrderSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		w.Write([]byte(`{"orderId":42,"status":"CANCELED"}`))
	}))
	defer srv.Close()

	e := testExecutor(srv.URL)
	cancelled, err := e.CancelOrder(context.Background(), "42")
	if err != nil || !cancelled {
		t.Fatalf("expected cancel, got %v %v", cancelled, err)
	}
}
