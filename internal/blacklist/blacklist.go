// Package blacklist implements the Blacklist Store (spec.md §4.2): a
// persistent ticker → added_on mapping with TTL-based expiry, backed by
// an embedded SQLite database.
//
// A corrupt or missing store is treated as empty, never fatal: Open
// falls back to an in-memory-only store on any failure to open or
// migrate the on-disk file, logging the reason.
package blacklist

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nitinkhare/tradingorchestrator/internal/signals"
)

// Store is the embedded SQLite-backed blacklist.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// Open opens (or creates) the SQLite-backed blacklist at path and runs
// its migration. A missing or corrupt file is treated as empty, not
// fatal: Open logs the problem and returns a store backed by a fresh
// in-memory database instead of failing the caller.
func Open(path string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(log.Writer(), "", log.LstdFlags)
	}
	db, err := openAndMigrate(path)
	if err != nil {
		logger.Printf("[blacklist] store at %q unavailable (%v); starting empty", path, err)
		db, err = openAndMigrate(":memory:")
		if err != nil {
			// Should never happen for an in-memory database.
			panic(fmt.Sprintf("blacklist: failed to open fallback in-memory store: %v", err))
		}
	}
	return &Store{db: db, logger: logger}
}

func openAndMigrate(path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS blacklist (
			ticker   TEXT PRIMARY KEY,
			added_on TEXT NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// AddMany upserts today's date for every ticker (spec.md §4.2 add_many).
func (s *Store) AddMany(tickers []signals.TickerSymbol, today time.Time) error {
	if len(tickers) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("blacklist: add_many begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO blacklist (ticker, added_on) VALUES (?, ?)
		ON CONFLICT(ticker) DO UPDATE SET added_on = excluded.added_on
	`)
	if err != nil {
		return fmt.Errorf("blacklist: add_many prepare: %w", err)
	}
	defer stmt.Close()

	dateStr := today.Format("2006-01-02")
	for _, t := range tickers {
		if _, err := stmt.Exec(string(t), dateStr); err != nil {
			return fmt.Errorf("blacklist: add_many exec %s: %w", t, err)
		}
	}
	return tx.Commit()
}

// ActiveSet returns the set of tickers whose added_on is within ttlDays
// of today (spec.md §4.2 active_set).
func (s *Store) ActiveSet(ttlDays int, today time.Time) (map[signals.TickerSymbol]bool, error) {
	rows, err := s.db.Query(`SELECT ticker, added_on FROM blacklist`)
	if err != nil {
		s.logger.Printf("[blacklist] active_set query failed: %v; treating as empty", err)
		return map[signals.TickerSymbol]bool{}, nil
	}
	defer rows.Close()

	out := map[signals.TickerSymbol]bool{}
	for rows.Next() {
		var ticker, addedOnStr string
		if err := rows.Scan(&ticker, &addedOnStr); err != nil {
			continue
		}
		addedOn, err := time.Parse("2006-01-02", addedOnStr)
		if err != nil {
			continue
		}
		if int(today.Sub(addedOn).Hours()/24) < ttlDays {
			out[signals.TickerSymbol(ticker)] = true
		}
	}
	return out, nil
}

// Cleanup drops entries older than ttlDays (spec.md §4.2 cleanup).
func (s *Store) Cleanup(ttlDays int, today time.Time) error {
	cutoff := today.AddDate(0, 0, -ttlDays).Format("2006-01-02")
	_, err := s.db.Exec(`DELETE FROM blacklist WHERE added_on < ?`, cutoff)
	if err != nil {
		return fmt.Errorf("blacklist: cleanup: %w", err)
	}
	return nil
}
