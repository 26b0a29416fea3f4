// Package sink publishes index results to ClickHouse.
package sink

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"go.ngs.io/climate-indices/internal/domain"
)

// Config holds the ClickHouse connection settings.
type Config struct {
	Addr     string
	Database string
	Table    string
	Username string
	Password string
}

// Row is one published observation.
type Row struct {
	RunID      uuid.UUID
	Index      string
	Series     string
	Time       time.Time
	Value      float64
	Provenance string
}

// ClickHouse appends index series to a MergeTree table.
type ClickHouse struct {
	conn     driver.Conn
	tableFQN string
	log      logrus.FieldLogger
}

// Open connects to ClickHouse and verifies the connection.
func Open(ctx context.Context, cfg Config, log logrus.FieldLogger) (*ClickHouse, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse at %s: %w", cfg.Addr, err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ClickHouse ping failed: %w", err)
	}
	return &ClickHouse{
		conn:     conn,
		tableFQN: fmt.Sprintf("%s.%s", cfg.Database, cfg.Table),
		log:      log,
	}, nil
}

// CreateTableSQL returns the DDL of the results table.
func CreateTableSQL(tableFQN string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id     UUID,
	index_name LowCardinality(String),
	series     LowCardinality(String),
	ts         DateTime64(3, 'UTC'),
	value      Nullable(Float64),
	provenance String,
	inserted   DateTime DEFAULT now()
) ENGINE = MergeTree
ORDER BY (index_name, series, ts, run_id)`, tableFQN)
}

// EnsureTable creates the results table if it does not exist.
func (c *ClickHouse) EnsureTable(ctx context.Context) error {
	if err := c.conn.Exec(ctx, CreateTableSQL(c.tableFQN)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", c.tableFQN, err)
	}
	return nil
}

// Publish inserts every value of result in one batch and returns the number
// of rows sent.
func (c *ClickHouse) Publish(ctx context.Context, runID uuid.UUID, provenance string, result *domain.IndexResult) (int, error) {
	rows := Rows(runID, provenance, result)
	batch, err := c.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s (run_id, index_name, series, ts, value, provenance)", c.tableFQN))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare batch: %w", err)
	}
	for _, r := range rows {
		var value *float64
		if !math.IsNaN(r.Value) {
			v := r.Value
			value = &v
		}
		if err := batch.Append(r.RunID, r.Index, r.Series, r.Time, value, r.Provenance); err != nil {
			_ = batch.Abort()
			return 0, fmt.Errorf("failed to append row: %w", err)
		}
	}
	start := time.Now()
	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("failed to send batch: %w", err)
	}
	c.log.WithFields(logrus.Fields{
		"table":   c.tableFQN,
		"rows":    len(rows),
		"run_id":  runID,
		"elapsed": time.Since(start),
	}).Info("published index")
	return len(rows), nil
}

// Close closes the connection.
func (c *ClickHouse) Close() error {
	return c.conn.Close()
}

// Rows flattens result into publishable rows.
func Rows(runID uuid.UUID, provenance string, result *domain.IndexResult) []Row {
	rows := make([]Row, 0, len(result.Series)*result.Time.Len())
	for _, s := range result.Series {
		for t, ts := range result.Time.Times {
			rows = append(rows, Row{
				RunID:      runID,
				Index:      result.Index,
				Series:     s.Attrs.ID,
				Time:       ts.UTC(),
				Value:      s.Values[t],
				Provenance: provenance,
			})
		}
	}
	return rows
}
