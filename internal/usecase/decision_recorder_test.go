package usecase

import (
	"context"
	"testing"
	"time"

	"BookPulse/internal/domain/models"
)

type fakeJournal struct {
	records []*models.DecisionRecord
	reads   int
	err     error
}

func (f *fakeJournal) Record(_ context.Context, rec *models.DecisionRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeJournal) RecentDecisions(context.Context, string, int) ([]*models.DecisionRecord, error) {
	f.reads++
	return f.records, f.err
}

func (f *fakeJournal) Health(context.Context) error { return nil }
func (f *fakeJournal) Close() error                 { return nil }

func sampleRecord() *models.DecisionRecord {
	return &models.DecisionRecord{
		Symbol:    "BTCUSDT",
		Timestamp: time.Now(),
		Outcome:   models.OutcomeExecuted,
		Direction: "long",
	}
}

func TestRecorderRoutesToBackend(t *testing.T) {
	pub := &fakeJournal{}
	store := &fakeJournal{}

	r := NewDecisionRecorder(pub, store, newSpyMetrics(), "kafka")
	if err := r.Record(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(pub.records) != 1 || len(store.records) != 0 {
		t.Fatalf("kafka backend must write the topic only: pub=%d store=%d", len(pub.records), len(store.records))
	}

	r = NewDecisionRecorder(pub, store, newSpyMetrics(), "clickhouse")
	if err := r.Record(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(store.records) != 1 {
		t.Fatalf("clickhouse backend must write the store, got %d", len(store.records))
	}
}

func TestRecorderUnknownBackend(t *testing.T) {
	r := NewDecisionRecorder(&fakeJournal{}, &fakeJournal{}, newSpyMetrics(), "postgres")
	if err := r.Record(context.Background(), sampleRecord()); err == nil {
		t.Fatalf("unknown backend must fail")
	}
}

func TestRecorderNilRecord(t *testing.T) {
	r := NewDecisionRecorder(&fakeJournal{}, &fakeJournal{}, newSpyMetrics(), "clickhouse")
	if err := r.Record(context.Background(), nil); err == nil {
		t.Fatalf("nil record must fail")
	}
}

func TestRecorderReadsFromStore(t *testing.T) {
	pub := &fakeJournal{}
	store := &fakeJournal{records: []*models.DecisionRecord{sampleRecord()}}

	// even on the kafka backend, reads come from the table
	r := NewDecisionRecorder(pub, store, newSpyMetrics(), "kafka")
	got, err := r.Recent(context.Background(), "BTCUSDT", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 || store.reads != 1 || pub.reads != 0 {
		t.Fatalf("reads must hit the store: got=%d store=%d pub=%d", len(got), store.reads, pub.reads)
	}
}
