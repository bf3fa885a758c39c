// Package analytics implements the analytics-store side of the Event
// Propagation Backbone and the Feature Service's aggregate source, grounded
// on original_source/backend/search-service/src/services/clickhouse.rs and
// the ClickHouse DDL style in _examples/other_examples (MergeTree +
// SummingMergeTree materialized views for trending windows).
package analytics

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ClickHouse/clickhouse-go/v2"
)

// Store wraps a ClickHouse connection used both for engagement-event
// ingestion (via internal/events consumers) and for reading trending/
// feature aggregates.
type Store struct {
	db *sql.DB
}

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// ensureSchema creates the engagement_events MergeTree table (monthly
// partitioned, 90-day TTL, bloom-filter index on target_id) and the hourly/
// daily trending materialized views, matching the original's schema shape.
func (s *Store) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS engagement_events (
			event_id String,
			timestamp DateTime64(3),
			actor_id String,
			target_id String,
			kind String,
			session_id String,
			INDEX target_idx target_id TYPE tokenbf_v1(32768, 3, 0) GRANULARITY 4
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(timestamp)
		ORDER BY (timestamp, target_id)
		TTL timestamp + INTERVAL 90 DAY
		SETTINGS index_granularity = 8192`,

		`CREATE MATERIALIZED VIEW IF NOT EXISTS trending_content_1h
		ENGINE = SummingMergeTree()
		PARTITION BY toYYYYMMDD(hour_bucket)
		ORDER BY (hour_bucket, target_id)
		TTL hour_bucket + INTERVAL 7 DAY
		AS SELECT
			toStartOfHour(timestamp) AS hour_bucket,
			target_id,
			count() AS engagement_count
		FROM engagement_events
		WHERE timestamp >= now() - INTERVAL 24 HOUR
		GROUP BY hour_bucket, target_id`,

		`CREATE MATERIALIZED VIEW IF NOT EXISTS trending_content_1d
		ENGINE = SummingMergeTree()
		PARTITION BY toYYYYMMDD(day_bucket)
		ORDER BY (day_bucket, target_id)
		TTL day_bucket + INTERVAL 30 DAY
		AS SELECT
			toDate(timestamp) AS day_bucket,
			target_id,
			count() AS engagement_count
		FROM engagement_events
		WHERE timestamp >= now() - INTERVAL 7 DAY
		GROUP BY day_bucket, target_id`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordEngagement appends one immutable analytics-store row (§4.1 CDC
// target write), keyed by eventID so a redelivered envelope is a no-op
// rather than a duplicate row, per invariant I4. Returns (false, nil) when
// the event was already recorded.
func (s *Store) RecordEngagement(ctx context.Context, eventID, actorID, targetID, kind, sessionID string) (bool, error) {
	var exists uint8
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM engagement_events WHERE event_id = ? LIMIT 1`, eventID).Scan(&exists)
	if err == nil {
		return false, nil
	}
	if err != sql.ErrNoRows {
		return false, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO engagement_events (event_id, timestamp, actor_id, target_id, kind, session_id) VALUES (?, now(), ?, ?, ?, ?)`,
		eventID, actorID, targetID, kind, sessionID)
	if err != nil {
		return false, err
	}
	return true, nil
}

// TrendingContentIDs returns the top content ids by engagement count within
// window ("1h" | "24h" | "7d"), backing the trending recall strategy.
func (s *Store) TrendingContentIDs(ctx context.Context, window string, limit int) ([]string, error) {
	view, interval, err := resolveWindow(window)
	if err != nil {
		return nil, err
	}

	bucket := "hour_bucket"
	if view == "trending_content_1d" {
		bucket = "day_bucket"
	}

	query := fmt.Sprintf(`
		SELECT target_id
		FROM %s
		WHERE %s >= now() - %s
		GROUP BY target_id
		ORDER BY sum(engagement_count) DESC
		LIMIT ?`, view, bucket, interval)

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func resolveWindow(window string) (view, interval string, err error) {
	switch window {
	case "1h":
		return "trending_content_1h", "INTERVAL 1 HOUR", nil
	case "24h":
		return "trending_content_1h", "INTERVAL 24 HOUR", nil
	case "7d":
		return "trending_content_1d", "INTERVAL 7 DAY", nil
	default:
		return "", "", fmt.Errorf("invalid time window: %s (must be one of 1h, 24h, 7d)", window)
	}
}

func (s *Store) HealthCheck(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "SELECT 1")
	return err
}

func (s *Store) Close() error { return s.db.Close() }
