package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"BookPulse/internal/domain/models"
	mid "BookPulse/internal/middleware"
	"BookPulse/internal/services/strategy"
)

type fakeDepthStream struct {
	books chan *models.OrderBookData
	errs  chan error
	up    bool
}

func (f *fakeDepthStream) Connect(context.Context) error   { f.up = true; return nil }
func (f *fakeDepthStream) Subscribe(context.Context) error { return nil }
func (f *fakeDepthStream) Read(context.Context) (<-chan *models.OrderBookData, <-chan error) {
	return f.books, f.errs
}
func (f *fakeDepthStream) Reconnect(context.Context) error { return nil }
func (f *fakeDepthStream) Close() error                    { f.up = false; return nil }
func (f *fakeDepthStream) IsConnected() bool               { return f.up }

type fakeTradeStream struct {
	trades chan *models.AggTrade
	errs   chan error
	up     bool
}

func (f *fakeTradeStream) Connect(context.Context) error   { f.up = true; return nil }
func (f *fakeTradeStream) Subscribe(context.Context) error { return nil }
func (f *fakeTradeStream) Read(context.Context) (<-chan *models.AggTrade, <-chan error) {
	return f.trades, f.errs
}
func (f *fakeTradeStream) Reconnect(context.Context) error { return nil }
func (f *fakeTradeStream) Close() error                    { f.up = false; return nil }
func (f *fakeTradeStream) IsConnected() bool               { return f.up }

func newCollectorFixture() (*MarketCollector, *fakeDepthStream, *fakeTradeStream, *mid.SnapshotMailbox) {
	depth := &fakeDepthStream{books: make(chan *models.OrderBookData, 8), errs: make(chan error, 1)}
	trades := &fakeTradeStream{trades: make(chan *models.AggTrade, 8), errs: make(chan error, 1)}
	mailbox := mid.NewSnapshotMailbox()
	c := NewMarketCollector(
		depth,
		trades,
		strategy.NewTradeFlowAnalyzer(5*time.Second, 1.5),
		mailbox,
		newSpyMetrics(),
		nil,
		10*time.Millisecond,
	)
	return c, depth, trades, mailbox
}

func waitSnapshot(t *testing.T, mailbox *mid.SnapshotMailbox) *models.MarketSnapshot {
	t.Helper()
	select {
	case <-mailbox.Updates():
		return mailbox.Latest()
	case <-time.After(2 * time.Second):
		t.Fatalf("no snapshot published")
		return nil
	}
}

func TestCollectorPublishesSnapshot(t *testing.T) {
	c, depth, tradeStream, mailbox := newCollectorFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !c.IsConnected() {
		t.Fatalf("expected both feeds connected")
	}

	now := time.Now()
	tradeStream.trades <- &models.AggTrade{ID: 1, Price: 100, Quantity: 2, Timestamp: now}
	time.Sleep(20 * time.Millisecond) // let the trade land in the buffer
	depth.books <- &models.OrderBookData{
		Symbol:    "BTCUSDT",
		Bids:      []models.OrderBookLevel{{Price: "100.00", Quantity: "1"}},
		Asks:      []models.OrderBookLevel{{Price: "100.01", Quantity: "1"}},
		Timestamp: now,
	}

	snap := waitSnapshot(t, mailbox)
	if snap.Symbol != "BTCUSDT" {
		t.Fatalf("expected BTCUSDT, got %q", snap.Symbol)
	}
	if snap.BestBid != 100.00 || snap.BestAsk != 100.01 {
		t.Fatalf("best prices wrong: %v / %v", snap.BestBid, snap.BestAsk)
	}
	if snap.Flow.SampleCount != 1 || snap.Flow.AggressiveBuyVolume != 200 {
		t.Fatalf("flow not joined into snapshot: %+v", snap.Flow)
	}
}

func TestCollectorSkipsInvalidBook(t *testing.T) {
	c, depth, _, mailbox := newCollectorFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	now := time.Now()
	// crossed book, must be dropped
	depth.books <- &models.OrderBookData{
		Symbol:    "BTCUSDT",
		Bids:      []models.OrderBookLevel{{Price: "101.00", Quantity: "1"}},
		Asks:      []models.OrderBookLevel{{Price: "100.00", Quantity: "1"}},
		Timestamp: now,
	}
	depth.books <- &models.OrderBookData{
		Symbol:    "BTCUSDT",
		Bids:      []models.OrderBookLevel{{Price: "100.00", Quantity: "1"}},
		Asks:      []models.OrderBookLevel{{Price: "100.01", Quantity: "1"}},
		Timestamp: now,
	}

	snap := waitSnapshot(t, mailbox)
	if snap.BestBid != 100.00 {
		t.Fatalf("crossed book must be skipped, got %+v", snap)
	}
}

func TestCollectorTradeBufferMostRecentFirst(t *testing.T) {
	c, _, _, _ := newCollectorFixture()
	now := time.Now()
	c.bufferTrade(&models.AggTrade{ID: 1, Price: 100, Quantity: 1, Timestamp: now.Add(-time.Second)})
	c.bufferTrade(&models.AggTrade{ID: 2, Price: 100, Quantity: 1, Timestamp: now})

	got := c.snapshotTrades()
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 1 {
		t.Fatalf("buffer must be most-recent-first, got %+v", got)
	}
}

func TestCollectorTradeBufferBounded(t *testing.T) {
	c, _, _, _ := newCollectorFixture()
	for i := 0; i < maxBufferedTrades+10; i++ {
		c.bufferTrade(&models.AggTrade{ID: int64(i), Price: 100, Quantity: 1, Timestamp: time.Now()})
	}
	if got := len(c.snapshotTrades()); got != maxBufferedTrades {
		t.Fatalf("buffer must cap at %d, got %d", maxBufferedTrades, got)
	}
}

func TestWindowVolatility(t *testing.T) {
	now := time.Now()
	trades := []*models.AggTrade{
		{Price: 102, Quantity: 1, Timestamp: now},
		{Price: 98, Quantity: 1, Timestamp: now.Add(-time.Second)},
		{Price: 500, Quantity: 1, Timestamp: now.Add(-time.Minute)}, // outside window
	}
	got := windowVolatility(trades, 5*time.Second)
	want := 4.0 / 100.0
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if windowVolatility(nil, 5*time.Second) != 0 {
		t.Fatalf("empty tape must report 0 volatility")
	}
}
