// Package storage - postgres.go provides the Postgres implementation of
// the Store interface using database/sql over the pgx stdlib driver,
// the same combination the teacher's scripts/run_migration.go and
// cmd/daily-stats/main.go already use for connecting and querying.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS backtest_runs (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	start_date  DATE NOT NULL,
	end_date    DATE NOT NULL,
	budget      NUMERIC NOT NULL,
	status      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS daily_results (
	run_id          TEXT NOT NULL REFERENCES backtest_runs(id),
	date            DATE NOT NULL,
	strategy_tag    TEXT NOT NULL,
	invested        NUMERIC NOT NULL,
	value           NUMERIC NOT NULL,
	realized_pnl    NUMERIC NOT NULL,
	unrealized_pnl  NUMERIC NOT NULL,
	trades_json     JSONB NOT NULL DEFAULT '[]',
	PRIMARY KEY (run_id, date, strategy_tag)
);

CREATE TABLE IF NOT EXISTS sentiment_snapshots (
	date         DATE PRIMARY KEY,
	report_json  JSONB NOT NULL
);
`

// PostgresStore implements Store over a *sql.DB opened with the pgx
// stdlib driver.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool against connStr and verifies
// it with a ping. Callers should follow with Migrate on first use.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	if connStr == "" {
		return nil, fmt.Errorf("storage: postgres: connection string is required")
	}
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("storage: postgres: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: postgres: ping: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Migrate creates the three persisted tables if they do not already exist.
func (ps *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := ps.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("storage: postgres: migrate: %w", err)
	}
	return nil
}

// resolveRunID returns id, or a freshly generated one when id is empty.
func resolveRunID(id string) string {
	if id == "" {
		return NewBacktestRunID()
	}
	return id
}

// resolveRunStatus returns status, defaulting a freshly created run to "running".
func resolveRunStatus(status string) string {
	if status == "" {
		return "running"
	}
	return status
}

func (ps *PostgresStore) CreateBacktestRun(ctx context.Context, run BacktestRun) (string, error) {
	id := resolveRunID(run.ID)
	status := resolveRunStatus(run.Status)
	_, err := ps.db.ExecContext(ctx, `
		INSERT INTO backtest_runs (id, name, start_date, end_date, budget, status)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, run.Name, run.StartDate, run.EndDate, run.Budget.String(), status)
	if err != nil {
		return "", fmt.Errorf("storage: postgres: create backtest run: %w", err)
	}
	return id, nil
}

func (ps *PostgresStore) UpdateBacktestRunStatus(ctx context.Context, runID, status string) error {
	_, err := ps.db.ExecContext(ctx, `UPDATE backtest_runs SET status = $1 WHERE id = $2`, status, runID)
	if err != nil {
		return fmt.Errorf("storage: postgres: update backtest run status: %w", err)
	}
	return nil
}

func (ps *PostgresStore) SaveDailyResult(ctx context.Context, result DailyResult) error {
	tradesJSON := result.TradesJSON
	if tradesJSON == nil {
		tradesJSON = json.RawMessage("[]")
	}
	_, err := ps.db.ExecContext(ctx, `
		INSERT INTO daily_results (run_id, date, strategy_tag, invested, value, realized_pnl, unrealized_pnl, trades_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id, date, strategy_tag) DO UPDATE SET
			invested = EXCLUDED.invested,
			value = EXCLUDED.value,
			realized_pnl = EXCLUDED.realized_pnl,
			unrealized_pnl = EXCLUDED.unrealized_pnl,
			trades_json = EXCLUDED.trades_json`,
		result.RunID, result.Date, result.StrategyTag,
		result.Invested.String(), result.Value.String(),
		result.RealizedPnL.String(), result.UnrealizedPnL.String(),
		[]byte(tradesJSON))
	if err != nil {
		return fmt.Errorf("storage: postgres: save daily result: %w", err)
	}
	return nil
}

func (ps *PostgresStore) GetDailyResults(ctx context.Context, runID string) ([]DailyResult, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT run_id, date, strategy_tag, invested, value, realized_pnl, unrealized_pnl, trades_json
		FROM daily_results WHERE run_id = $1 ORDER BY date ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("storage: postgres: get daily results: %w", err)
	}
	defer rows.Close()

	var out []DailyResult
	for rows.Next() {
		var r DailyResult
		var invested, value, realized, unrealized string
		var tradesJSON []byte
		if err := rows.Scan(&r.RunID, &r.Date, &r.StrategyTag, &invested, &value, &realized, &unrealized, &tradesJSON); err != nil {
			return nil, fmt.Errorf("storage: postgres: scan daily result: %w", err)
		}
		if r.Invested, err = decimal.NewFromString(invested); err != nil {
			return nil, fmt.Errorf("storage: postgres: parse invested: %w", err)
		}
		if r.Value, err = decimal.NewFromString(value); err != nil {
			return nil, fmt.Errorf("storage: postgres: parse value: %w", err)
		}
		if r.RealizedPnL, err = decimal.NewFromString(realized); err != nil {
			return nil, fmt.Errorf("storage: postgres: parse realized pnl: %w", err)
		}
		if r.UnrealizedPnL, err = decimal.NewFromString(unrealized); err != nil {
			return nil, fmt.Errorf("storage: postgres: parse unrealized pnl: %w", err)
		}
		r.TradesJSON = json.RawMessage(tradesJSON)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (ps *PostgresStore) SaveSentiment(ctx context.Context, snapshot SentimentSnapshot) error {
	_, err := ps.db.ExecContext(ctx, `
		INSERT INTO sentiment_snapshots (date, report_json)
		VALUES ($1, $2)
		ON CONFLICT (date) DO UPDATE SET report_json = EXCLUDED.report_json`,
		snapshot.Date, []byte(snapshot.ReportJSON))
	if err != nil {
		return fmt.Errorf("storage: postgres: save sentiment: %w", err)
	}
	return nil
}

func (ps *PostgresStore) GetSentiment(ctx context.Context, date time.Time) (SentimentSnapshot, bool, error) {
	var snap SentimentSnapshot
	var reportJSON []byte
	err := ps.db.QueryRowContext(ctx, `SELECT date, report_json FROM sentiment_snapshots WHERE date = $1`, date).
		Scan(&snap.Date, &reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return SentimentSnapshot{}, false, nil
	}
	if err != nil {
		return SentimentSnapshot{}, false, fmt.Errorf("storage: postgres: get sentiment: %w", err)
	}
	snap.ReportJSON = json.RawMessage(reportJSON)
	return snap, true, nil
}

func (ps *PostgresStore) Ping(ctx context.Context) error {
	if err := ps.db.PingContext(ctx); err != nil {
		return fmt.Errorf("storage: postgres: ping: %w", err)
	}
	return nil
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
