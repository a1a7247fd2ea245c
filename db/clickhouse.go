package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/spf13/viper"

	"bundler/logger"
	"bundler/types"
)

type ClickhouseDB struct {
	conn driver.Conn
}

func NewClickhouse() Database {
	opts := &clickhouse.Options{
		Addr: []string{viper.GetString("CLICKHOUSE_ADDR")},
		Auth: clickhouse.Auth{
			Database: viper.GetString("CLICKHOUSE_DATABASE"),
			Username: viper.GetString("CLICKHOUSE_USERNAME"),
			Password: viper.GetString("CLICKHOUSE_PASSWORD"),
		},
		DialTimeout:  5 * time.Second,
		Compression:  &clickhouse.Compression{Method: clickhouse.CompressionLZ4},
		MaxOpenConns: 10,
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		slog.Error("Failed to connect to ClickHouse", "error", err)
	}

	return &ClickhouseDB{conn: conn}
}

// Database interface implementation
func (d *ClickhouseDB) Close() error {
	return d.conn.Close()
}

func (d *ClickhouseDB) EnsureDatabaseExists() error {
	query := `CREATE DATABASE IF NOT EXISTS bundler`
	if err := d.conn.Exec(context.Background(), query); err != nil {
		return fmt.Errorf("failed to ensure database exists: %w", err)
	}
	logger.GlobalLogger.Info("Database ensured to exist", "database", "bundler")
	return nil
}

func (d *ClickhouseDB) CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS bundler.bundle_submissions
		(
			bundleId String,
			region String,
			timestamp DateTime,
			txCount UInt64,
			signatures Array(String),
			tipAccount String,
			tipLamports UInt64,
			outcome String,
			landedSlot UInt64
		)
		ENGINE = ReplacingMergeTree
		ORDER BY (timestamp, bundleId)
		SETTINGS index_granularity = 8192`,
	}

	for _, q := range queries {
		if err := d.conn.Exec(context.Background(), q); err != nil {
			return err
		}
		logger.GlobalLogger.Info("Check or create table in DB", "query", q)
	}
	return nil
}

func (d *ClickhouseDB) DropTables() error {
	var dbName string
	if err := d.conn.QueryRow(context.Background(), "SELECT currentDatabase()").Scan(&dbName); err != nil {
		return fmt.Errorf("failed to get current database: %w", err)
	}

	rows, err := d.conn.Query(context.Background(),
		fmt.Sprintf("SHOW TABLES FROM %s", dbName))
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, t)
	}

	for _, t := range tables {
		q := fmt.Sprintf("DROP TABLE IF EXISTS %s.%s", dbName, t)
		if err := d.conn.Exec(context.Background(), q); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", t, err)
		}
	}

	return nil
}

func (d *ClickhouseDB) Exec(query string, args ...any) error {
	if err := d.conn.Exec(context.Background(), query, args...); err != nil {
		return err
	}
	return nil
}

func (d *ClickhouseDB) InsertSubmission(row *types.SubmittedBundle) error {
	batch, err := d.conn.PrepareBatch(context.Background(), "INSERT INTO bundler.bundle_submissions")
	if err != nil {
		return err
	}
	if err := batch.AppendStruct(row); err != nil {
		return err
	}
	return batch.Send()
}

// UpdateOutcome stamps the submission row with the terminal result.
// mutations_sync makes the mutation visible to the next query.
func (d *ClickhouseDB) UpdateOutcome(bundleID string, outcome *types.Outcome) error {
	ctx := context.Background()
	if err := d.conn.Exec(ctx, "SET mutations_sync = 1"); err != nil {
		return err
	}
	return d.conn.Exec(ctx,
		"ALTER TABLE bundler.bundle_submissions UPDATE outcome = ?, landedSlot = ? WHERE bundleId = ?",
		string(outcome.Kind), outcome.Slot, bundleID,
	)
}

func (d *ClickhouseDB) QueryRecentSubmissions(limit uint) (types.SubmittedBundles, error) {
	rows, err := d.conn.Query(context.Background(),
		"SELECT bundleId, region, timestamp, txCount, signatures, tipAccount, tipLamports, outcome, landedSlot FROM bundler.bundle_submissions ORDER BY timestamp DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var result types.SubmittedBundles
	for rows.Next() {
		row := &types.SubmittedBundle{}
		if err := rows.ScanStruct(row); err != nil {
			return nil, fmt.Errorf("failed to scan submission row: %w", err)
		}
		result = append(result, row)
	}
	return result, nil
}

func (d *ClickhouseDB) QueryLatestBundleIds(limit uint) ([]string, error) {
	rows, err := d.conn.Query(context.Background(),
		"SELECT bundleId FROM bundler.bundle_submissions ORDER BY timestamp DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query bundle ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan bundle id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
