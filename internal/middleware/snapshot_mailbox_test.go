package middleware

import (
	"testing"
	"time"

	"BookPulse/internal/domain/models"
)

func TestMailboxEmptyLatest(t *testing.T) {
	m := NewSnapshotMailbox()
	if m.Latest() != nil {
		t.Fatalf("empty mailbox must return nil")
	}
	select {
	case <-m.Updates():
		t.Fatalf("empty mailbox must not wake receivers")
	default:
	}
}

func TestMailboxPublishOverwrites(t *testing.T) {
	m := NewSnapshotMailbox()
	first := &models.MarketSnapshot{Symbol: "BTCUSDT", BestBid: 1}
	second := &models.MarketSnapshot{Symbol: "BTCUSDT", BestBid: 2}
	m.Publish(first)
	m.Publish(second)
	if got := m.Latest(); got != second {
		t.Fatalf("latest must be the most recent publish, got %+v", got)
	}
}

func TestMailboxCoalescesWakeups(t *testing.T) {
	m := NewSnapshotMailbox()
	m.Publish(&models.MarketSnapshot{BestBid: 1})
	m.Publish(&models.MarketSnapshot{BestBid: 2})
	m.Publish(&models.MarketSnapshot{BestBid: 3})

	select {
	case <-m.Updates():
	case <-time.After(time.Second):
		t.Fatalf("expected a pending wakeup")
	}
	select {
	case <-m.Updates():
		t.Fatalf("three publishes must coalesce into one wakeup")
	default:
	}
}

func TestMailboxPublishNeverBlocks(t *testing.T) {
	m := NewSnapshotMailbox()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			m.Publish(&models.MarketSnapshot{BestBid: float64(i)})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("publish must not block without a receiver")
	}
}

func TestMailboxClose(t *testing.T) {
	m := NewSnapshotMailbox()
	before := &models.MarketSnapshot{BestBid: 1}
	m.Publish(before)
	<-m.Updates()
	m.Close()
	m.Close() // idempotent

	m.Publish(&models.MarketSnapshot{BestBid: 2})
	if got := m.Latest(); got != before {
		t.Fatalf("publish after close must be dropped")
	}
	if _, ok := <-m.Updates(); ok {
		t.Fatalf("closed mailbox channel must report closed")
	}
}

func TestMailboxNilPublishIgnored(t *testing.T) {
	m := NewSnapshotMailbox()
	m.Publish(nil)
	if m.Latest() != nil {
		t.Fatalf("nil publish must be ignored")
	}
}
