package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"BookPulse/internal/domain/models"
	drepo "BookPulse/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// TradeClient implements a TradeStream backed by the aggTrade WebSocket
// stream.
type TradeClient struct {
	websocketURL   string
	symbol         string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
	subID     int
}

// NewTradeStream creates a TradeStream for one symbol.
func NewTradeStream(websocketURL, symbol string, reconnectDelay, pingInterval time.Duration) drepo.TradeStream {
	return &TradeClient{
		websocketURL:   websocketURL,
		symbol:         strings.ToLower(symbol),
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *TradeClient) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("trade connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("binance: trade stream connected")
	return nil
}

// Subscribe subscribes to the aggTrade stream for the symbol.
func (c *TradeClient) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("trade stream not connected")
	}
	c.subID++
	msg := map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": []string{fmt.Sprintf("%s@aggTrade", c.symbol)},
		"id":     c.subID,
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe aggTrade %s: %w", c.symbol, err)
	}
	log.Printf("binance: subscribed %s@aggTrade", c.symbol)
	return nil
}

type aggTradeFrame struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	ID        int64  `json:"a"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"` // ms
	IsMaker   bool   `json:"m"` // buyer is the maker
}

// Read streams aggregated trades and errors.
func (c *TradeClient) Read(ctx context.Context) (<-chan *models.AggTrade, <-chan error) {
	trades := make(chan *models.AggTrade, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(trades)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("trade conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("trade read: %w", err)
					return
				}
				var f aggTradeFrame
				if err := json.Unmarshal(b, &f); err != nil {
					continue
				}
				if f.EventType != "aggTrade" {
					continue
				}
				price, err := strconv.ParseFloat(f.Price, 64)
				if err != nil || price <= 0 {
					continue
				}
				qty, err := strconv.ParseFloat(f.Quantity, 64)
				if err != nil || qty <= 0 {
					continue
				}
				trade := &models.AggTrade{
					ID:           f.ID,
					Price:        price,
					Quantity:     qty,
					Timestamp:    time.UnixMilli(f.TradeTime),
					MakerIsBuyer: f.IsMaker,
				}
				select {
				case trades <- trade:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return trades, errs
}

// Reconnect closes and reconnects.
func (c *TradeClient) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *TradeClient) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *TradeClient) IsConnected() bool { return c.connected }
