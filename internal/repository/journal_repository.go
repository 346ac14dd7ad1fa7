package repository

import (
	"context"
	"database/sql"
	"fmt"

	"BookPulse/internal/domain/models"
	drepo "BookPulse/internal/domain/repository"
	pkgkafka "BookPulse/pkg/kafka"
)

// ClickHouseJournal implements Journal on a ClickHouse table.
type ClickHouseJournal struct {
	db    *sql.DB
	table string
}

// NewClickHouseJournal creates a ClickHouse-backed decision journal.
func NewClickHouseJournal(db *sql.DB, table string) drepo.Journal {
	return &ClickHouseJournal{db: db, table: table}
}

func (j *ClickHouseJournal) Record(ctx context.Context, rec *models.DecisionRecord) error {
	q := fmt.Sprintf(`INSERT INTO %s
		(ts, symbol, outcome, direction, reason, imbalance, confidence, spread_pct, quote_size, quantity, order_type, limit_price, order_id, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, j.table)
	_, err := j.db.ExecContext(ctx, q,
		rec.Timestamp,
		rec.Symbol,
		rec.Outcome,
		rec.Direction,
		rec.Reason,
		rec.Imbalance,
		rec.Confidence,
		rec.SpreadPct,
		rec.QuoteSize,
		rec.Quantity,
		rec.OrderType,
		rec.LimitPrice,
		rec.OrderID,
		rec.Status,
	)
	if err != nil {
		return fmt.Errorf("journal insert: %w", err)
	}
	return nil
}

func (j *ClickHouseJournal) RecentDecisions(ctx context.Context, symbol string, limit int) ([]*models.DecisionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf(`SELECT ts, symbol, outcome, direction, reason, imbalance, confidence, spread_pct, quote_size, quantity, order_type, limit_price, order_id, status
		FROM %s WHERE symbol = ? ORDER BY ts DESC LIMIT %d`, j.table, limit)
	rows, err := j.db.QueryContext(ctx, q, symbol)
	if err != nil {
		return nil, fmt.Errorf("journal query: %w", err)
	}
	defer rows.Close()

	var out []*models.DecisionRecord
	for rows.Next() {
		var r models.DecisionRecord
		if err := rows.Scan(
			&r.Timestamp, &r.Symbol, &r.Outcome, &r.Direction, &r.Reason,
			&r.Imbalance, &r.Confidence, &r.SpreadPct, &r.QuoteSize, &r.Quantity,
			&r.OrderType, &r.LimitPrice, &r.OrderID, &r.Status,
		); err != nil {
			return nil, fmt.Errorf("journal scan: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (j *ClickHouseJournal) Health(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

func (j *ClickHouseJournal) Close() error {
	return nil // shared DB handle closed by its owner
}

// KafkaJournal implements Journal by publishing records to a topic. Reads are
// not served here: entries land in ClickHouse through the journal consumer.
type KafkaJournal struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaJournal creates a Kafka-backed decision journal publisher.
func NewKafkaJournal(producer *pkgkafka.Producer, topic string) drepo.Journal {
	return &KafkaJournal{producer: producer, topic: topic}
}

func (j *KafkaJournal) Record(ctx context.Context, rec *models.DecisionRecord) error {
	if err := j.producer.Publish(ctx, j.topic, []byte(rec.Symbol), rec); err != nil {
		return fmt.Errorf("journal publish: %w", err)
	}
	return nil
}

func (j *KafkaJournal) RecentDecisions(ctx context.Context, symbol string, limit int) ([]*models.DecisionRecord, error) {
	return nil, fmt.Errorf("kafka journal: reads not supported")
}

func (j *KafkaJournal) Health(ctx context.Context) error { return nil }

func (j *KafkaJournal) Close() error { return j.producer.Close() }
