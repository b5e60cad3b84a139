package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"regexp"
	"time"

	"github.com/go-sql-driver/mysql"

	"ntr/internal/config"
	"ntr/internal/domain"
)

// RunRecord is one row of run history
type RunRecord struct {
	ID          int64
	StartedAt   time.Time
	Status      domain.RunStatus
	Total       int
	Passed      int
	Failed      int
	TimedOut    int
	Skipped     int
	Interrupted int
	Flaky       int
	Duration    time.Duration
	Workers     int
}

var _ Migrator = (*MySQLHistory)(nil)

// NewRunRecord flattens a finished run into a history row
func NewRunRecord(full domain.FullResult, s domain.RunSummary, workers int) RunRecord {
	started := full.StartTime
	if started.IsZero() {
		started = time.Now().Add(-s.Duration)
	}
	return RunRecord{
		StartedAt:   started.UTC(),
		Status:      full.Status,
		Total:       s.Total(),
		Passed:      s.Passed,
		Failed:      s.Failed,
		TimedOut:    s.TimedOut,
		Skipped:     s.Skipped,
		Interrupted: s.Interrupted,
		Flaky:       s.Flaky,
		Duration:    s.Duration,
		Workers:     workers,
	}
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)

// MySQLHistory stores run history in a MySQL table
type MySQLHistory struct {
	db    *sql.DB
	table string
}

// OpenMySQLHistory opens the history database described by the config.
// The connection is established lazily; use Ping to check it.
func OpenMySQLHistory(cfg *config.Config) (*MySQLHistory, error) {
	table := cfg.History.Table
	if table == "" {
		table = config.DefaultHistoryTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid history table name: %s", table)
	}

	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &MySQLHistory{db: db, table: table}, nil
}

// DSN resolves the MySQL DSN: history.dsn when set, otherwise the DB_* environment
// (DB_HOST, DB_PORT, DB_USERNAME, DB_PASSWORD, DB_DATABASE) with local defaults.
func DSN(cfg *config.Config) (string, error) {
	var mc *mysql.Config
	if cfg.History.DSN != "" {
		parsed, err := mysql.ParseDSN(cfg.History.DSN)
		if err != nil {
			return "", fmt.Errorf("invalid history dsn: %w", err)
		}
		mc = parsed
	} else {
		mc = mysql.NewConfig()
		mc.User = envOr("DB_USERNAME", "root")
		mc.Passwd = os.Getenv("DB_PASSWORD")
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(envOr("DB_HOST", "127.0.0.1"), envOr("DB_PORT", "3306"))
		mc.DBName = envOr("DB_DATABASE", "ntr")
	}
	mc.ParseTime = true
	mc.Loc = time.UTC
	return mc.FormatDSN(), nil
}

// Ping checks the database is reachable
func (h *MySQLHistory) Ping(ctx context.Context) error {
	if err := h.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping history database: %w", err)
	}
	return nil
}

// Migrate creates the history table if it doesn't exist
func (h *MySQLHistory) Migrate(ctx context.Context) error {
	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` ("+
		"id BIGINT AUTO_INCREMENT PRIMARY KEY, "+
		"started_at DATETIME(3) NOT NULL, "+
		"status VARCHAR(16) NOT NULL, "+
		"total INT NOT NULL, "+
		"passed INT NOT NULL, "+
		"failed INT NOT NULL, "+
		"timed_out INT NOT NULL, "+
		"skipped INT NOT NULL, "+
		"interrupted INT NOT NULL, "+
		"flaky INT NOT NULL, "+
		"duration_ms BIGINT NOT NULL, "+
		"workers INT NOT NULL, "+
		"INDEX idx_started_at (started_at))", h.table)
	if _, err := h.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", h.table, err)
	}
	return nil
}

// SaveRun inserts a run
func (h *MySQLHistory) SaveRun(ctx context.Context, run RunRecord) error {
	query := fmt.Sprintf("INSERT INTO `%s` "+
		"(started_at, status, total, passed, failed, timed_out, skipped, interrupted, flaky, duration_ms, workers) "+
		"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", h.table)
	_, err := h.db.ExecContext(ctx, query,
		run.StartedAt, string(run.Status), run.Total, run.Passed, run.Failed, run.TimedOut,
		run.Skipped, run.Interrupted, run.Flaky, run.Duration.Milliseconds(), run.Workers)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Recent returns the latest runs, newest first
func (h *MySQLHistory) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf("SELECT id, started_at, status, total, passed, failed, timed_out, skipped, "+
		"interrupted, flaky, duration_ms, workers FROM `%s` ORDER BY started_at DESC, id DESC LIMIT ?", h.table)
	rows, err := h.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var (
			run        RunRecord
			status     string
			durationMs int64
		)
		if err := rows.Scan(&run.ID, &run.StartedAt, &status, &run.Total, &run.Passed, &run.Failed,
			&run.TimedOut, &run.Skipped, &run.Interrupted, &run.Flaky, &durationMs, &run.Workers); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Status = domain.RunStatus(status)
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close releases the connection pool
func (h *MySQLHistory) Close() error {
	return h.db.Close()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
