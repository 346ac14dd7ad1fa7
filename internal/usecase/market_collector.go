package usecase

import (
	"context"
	"sync"
	"time"

	"BookPulse/internal/domain/models"
	drepo "BookPulse/internal/domain/repository"
	mid "BookPulse/internal/middleware"
	"BookPulse/internal/services/strategy"
	"BookPulse/pkg/logger"
)

// maxBufferedTrades bounds the rolling trade buffer; the analyzer window is
// far shorter than what this holds at any realistic trade rate.
const maxBufferedTrades = 1024

// MarketCollector owns the two market-data feeds. Each feed runs its own
// reconnect loop; book updates are joined with the rolling trade buffer into
// an immutable MarketSnapshot and published to the mailbox. The engine never
// blocks on ingestion.
type MarketCollector struct {
	depth   drepo.DepthStream
	trades  drepo.TradeStream
	flow    *strategy.TradeFlowAnalyzer
	mailbox *mid.SnapshotMailbox
	metrics drepo.Metrics
	log     *logger.Logger

	reconnectDelay time.Duration

	mu     sync.Mutex
	buffer []*models.AggTrade // most-recent-first
}

// NewMarketCollector creates a collector publishing into mailbox.
func NewMarketCollector(
	depth drepo.DepthStream,
	trades drepo.TradeStream,
	flow *strategy.TradeFlowAnalyzer,
	mailbox *mid.SnapshotMailbox,
	metrics drepo.Metrics,
	log *logger.Logger,
	reconnectDelay time.Duration,
) *MarketCollector {
	if reconnectDelay <= 0 {
		reconnectDelay = 2 * time.Second
	}
	if log == nil {
		log, _ = logger.New(&logger.Config{Level: "info", Format: "console", Output: "stdout"})
	}
	return &MarketCollector{
		depth:          depth,
		trades:         trades,
		flow:           flow,
		mailbox:        mailbox,
		metrics:        metrics,
		log:            log,
		reconnectDelay: reconnectDelay,
	}
}

// Start connects both feeds and launches their consume loops.
func (c *MarketCollector) Start(ctx context.Context) error {
	if err := c.depth.Connect(ctx); err != nil {
		return err
	}
	if err := c.depth.Subscribe(ctx); err != nil {
		return err
	}
	if err := c.trades.Connect(ctx); err != nil {
		return err
	}
	if err := c.trades.Subscribe(ctx); err != nil {
		return err
	}

	bookCh, bookErrCh := c.depth.Read(ctx)
	tradeCh, tradeErrCh := c.trades.Read(ctx)
	go c.consumeBooks(ctx, bookCh, bookErrCh)
	go c.consumeTrades(ctx, tradeCh, tradeErrCh)
	return nil
}

// IsConnected is true when both feeds are up.
func (c *MarketCollector) IsConnected() bool {
	return c.depth.IsConnected() && c.trades.IsConnected()
}

// Shutdown closes both streams and the mailbox.
func (c *MarketCollector) Shutdown(ctx context.Context) error {
	c.mailbox.Close()
	errD := c.depth.Close()
	errT := c.trades.Close()
	if errD != nil {
		return errD
	}
	return errT
}

func (c *MarketCollector) consumeBooks(ctx context.Context, books <-chan *models.OrderBookData, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errs:
			if err != nil {
				c.metrics.RecordError("depth_stream")
				c.log.Warn("depth stream error", logger.Error(err))
				if books, errs = c.recoverDepth(ctx); books == nil {
					return
				}
			}
		case b := <-books:
			if b == nil {
				continue
			}
			c.publish(b)
		}
	}
}

func (c *MarketCollector) consumeTrades(ctx context.Context, trades <-chan *models.AggTrade, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errs:
			if err != nil {
				c.metrics.RecordError("trade_stream")
				c.log.Warn("trade stream error", logger.Error(err))
				if trades, errs = c.recoverTrades(ctx); trades == nil {
					return
				}
			}
		case t := <-trades:
			if t == nil {
				continue
			}
			c.bufferTrade(t)
		}
	}
}

// recoverDepth reconnects with a fixed delay between attempts, unbounded,
// until the context is cancelled.
func (c *MarketCollector) recoverDepth(ctx context.Context) (<-chan *models.OrderBookData, <-chan error) {
	for {
		err := c.depth.Reconnect(ctx)
		if err == nil {
			return c.depth.Read(ctx)
		}
		c.metrics.RecordError("depth_reconnect")
		c.log.Warn("depth reconnect failed", logger.Error(err))
		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(c.reconnectDelay):
		}
	}
}

func (c *MarketCollector) recoverTrades(ctx context.Context) (<-chan *models.AggTrade, <-chan error) {
	for {
		err := c.trades.Reconnect(ctx)
		if err == nil {
			return c.trades.Read(ctx)
		}
		c.metrics.RecordError("trade_reconnect")
		c.log.Warn("trade reconnect failed", logger.Error(err))
		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(c.reconnectDelay):
		}
	}
}

func (c *MarketCollector) bufferTrade(t *models.AggTrade) {
	c.mu.Lock()
	c.buffer = append([]*models.AggTrade{t}, c.buffer...)
	if len(c.buffer) > maxBufferedTrades {
		c.buffer = c.buffer[:maxBufferedTrades]
	}
	c.mu.Unlock()
}

// snapshotTrades copies the buffer so the snapshot stays immutable.
func (c *MarketCollector) snapshotTrades() []*models.AggTrade {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*models.AggTrade, len(c.buffer))
	copy(out, c.buffer)
	return out
}

// publish builds a fresh snapshot from the book update and current trade
// buffer. Invalid books (crossed, empty side) are input invalidity: skipped,
// never raised.
func (c *MarketCollector) publish(b *models.OrderBookData) {
	trades := c.snapshotTrades()
	flow := c.flow.Analyze(trades)
	vol := windowVolatility(trades, flow.Window)

	snap, err := models.NewMarketSnapshot(*b, flow, vol, b.Timestamp)
	if err != nil {
		c.metrics.RecordRejection("invalid_book")
		c.log.Debug("invalid book skipped", logger.Error(err))
		return
	}
	c.mailbox.Publish(snap)
}

// windowVolatility is the high-low price range over the trailing window as a
// fraction of the window midpoint.
func windowVolatility(trades []*models.AggTrade, window time.Duration) float64 {
	if len(trades) == 0 {
		return 0
	}
	cutoff := trades[0].Timestamp.Add(-window)
	lo, hi := 0.0, 0.0
	for _, t := range trades {
		if t.Timestamp.Before(cutoff) {
			continue
		}
		if lo == 0 || t.Price < lo {
			lo = t.Price
		}
		if t.Price > hi {
			hi = t.Price
		}
	}
	if lo <= 0 || hi <= 0 {
		return 0
	}
	mid := (hi + lo) / 2
	return (hi - lo) / mid
}
