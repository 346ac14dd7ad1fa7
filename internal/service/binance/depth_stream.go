package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"BookPulse/internal/domain/models"
	drepo "BookPulse/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// DepthClient implements a DepthStream backed by the partial book depth
// WebSocket stream (top 20 levels, 100ms cadence).
type DepthClient struct {
	websocketURL   string
	symbol         string
	levels         int
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
	subID     int
}

// NewDepthStream creates a DepthStream for one symbol.
func NewDepthStream(websocketURL, symbol string, levels int, reconnectDelay, pingInterval time.Duration) drepo.DepthStream {
	if levels <= 0 {
		levels = 20
	}
	return &DepthClient{
		websocketURL:   websocketURL,
		symbol:         strings.ToLower(symbol),
		levels:         levels,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *DepthClient) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("depth connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("binance: depth connected")
	return nil
}

// Subscribe subscribes to the partial depth stream for the symbol.
func (c *DepthClient) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("depth stream not connected")
	}
	c.subID++
	msg := map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": []string{fmt.Sprintf("%s@depth%d@100ms", c.symbol, c.levels)},
		"id":     c.subID,
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe depth %s: %w", c.symbol, err)
	}
	log.Printf("binance: subscribed %s@depth%d", c.symbol, c.levels)
	return nil
}

type depthFrame struct {
	LastUpdateID int64       `json:"lastUpdateId"`
	Bids         [][2]string `json:"bids"`
	Asks         [][2]string `json:"asks"`
}

// Read streams order book snapshots and errors.
func (c *DepthClient) Read(ctx context.Context) (<-chan *models.OrderBookData, <-chan error) {
	books := make(chan *models.OrderBookData, 64)
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
		defer close(books)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("depth conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("depth read: %w", err)
					return
				}
				var f depthFrame
				if err := json.Unmarshal(b, &f); err != nil {
					// ignore subscription acks and unknown frames
					continue
				}
				if len(f.Bids) == 0 && len(f.Asks) == 0 {
					continue
				}
				book := &models.OrderBookData{
					Symbol:       strings.ToUpper(c.symbol),
					Bids:         toLevels(f.Bids),
					Asks:         toLevels(f.Asks),
					LastUpdateID: f.LastUpdateID,
					Timestamp:    time.Now(),
				}
				select {
				case books <- book:
				default:
					// drop on backpressure, a newer snapshot follows
				}
			}
		}
	}()

	return books, errs
}

func toLevels(raw [][2]string) []models.OrderBookLevel {
	levels := make([]models.OrderBookLevel, 0, len(raw))
	for _, pq := range raw {
		levels = append(levels, models.OrderBookLevel{Price: pq[0], Quantity: pq[1]})
	}
	return levels
}

// Reconnect closes and reconnects.
func (c *DepthClient) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *DepthClient) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *DepthClient) IsConnected() bool { return c.connected }
