package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// wsServer upgrades one connection, consumes the subscribe message and then
// sends each frame in order.
func wsServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var sub map[string]interface{}
		if err := conn.ReadJSON(&sub); err != nil {
			t.Errorf("read subscribe: %v", err)
			return
		}
		if sub["method"] != "SUBSCRIBE" {
			t.Errorf("expected SUBSCRIBE, got %v", sub["method"])
		}
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// hold the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDepthStreamReadsBook(t *testing.T) {
	srv := wsServer(t, []string{
		`{"result":null,"id":1}`, // subscription ack, skipped
		`{"lastUpdateId":1000,"bids":[["100.00","1.5"],["99.99","2"]],"asks":[["100.01","1"]]}`,
	})
	defer srv.Close()

	s := NewDepthStream(wsURL(srv), "BTCUSDT", 20, time.Second, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close()
	if !s.IsConnected() {
		t.Fatalf("expected connected")
	}
	if err := s.Subscribe(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	books, errs := s.Read(ctx)
	select {
	case b := <-books:
		if b.Symbol != "BTCUSDT" {
			t.Fatalf("expected BTCUSDT, got %q", b.Symbol)
		}
		if b.LastUpdateID != 1000 {
			t.Fatalf("expected update id 1000, got %d", b.LastUpdateID)
		}
		if len(b.Bids) != 2 || b.Bids[0].Price != "100.00" || b.Bids[0].Quantity != "1.5" {
			t.Fatalf("bids wrong: %+v", b.Bids)
		}
		if len(b.Asks) != 1 || b.Asks[0].Price != "100.01" {
			t.Fatalf("asks wrong: %+v", b.Asks)
		}
	case err := <-errs:
		t.Fatalf("stream error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatalf("no book received")
	}
}

func TestTradeStreamReadsTrades(t *testing.T) {
	srv := wsServer(t, []string{
		`{"result":null,"id":1}`,
		`{"e":"aggTrade","s":"BTCUSDT","a":7,"p":"100.50","q":"0.25","T":1700000000000,"m":false}`,
		`{"e":"aggTrade","s":"BTCUSDT","a":8,"p":"bogus","q":"1","T":1700000000001,"m":true}`, // dropped
		`{"e":"aggTrade","s":"BTCUSDT","a":9,"p":"100.40","q":"0.5","T":1700000000002,"m":true}`,
	})
	defer srv.Close()

	s := NewTradeStream(wsURL(srv), "BTCUSDT", time.Second, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close()
	if err := s.Subscribe(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	trades, errs := s.Read(ctx)
	var got []int64
	for len(got) < 2 {
		select {
		case tr := <-trades:
			got = append(got, tr.ID)
			if tr.ID == 7 {
				if tr.Price != 100.50 || tr.Quantity != 0.25 {
					t.Fatalf("trade 7 parsed wrong: %+v", tr)
				}
				if tr.MakerIsBuyer || !tr.IsAggressiveBuy() {
					t.Fatalf("m=false means aggressive buy: %+v", tr)
				}
				if tr.Timestamp.UnixMilli() != 1700000000000 {
					t.Fatalf("timestamp wrong: %v", tr.Timestamp)
				}
			}
		case err := <-errs:
			t.Fatalf("stream error: %v", err)
		case <-time.After(2 * time.Second):
			t.Fatalf("expected 2 trades, got %v", got)
		}
	}
	if got[0] != 7 || got[1] != 9 {
		t.Fatalf("malformed trade must be skipped, got %v", got)
	}
}
