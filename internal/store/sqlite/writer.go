// Package sqlite persists candles and simulation results. It is the repo's
// journal: the backtester writes emitted signals, virtual orders and run
// summaries here for later analysis, and the candle table doubles as the
// replay source.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"trendlab/internal/model"
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/candles.db"
}

// Writer is a single-writer SQLite handle with the journal schema applied.
// Decimal amounts are stored as TEXT so the exact ledger values round-trip.
type Writer struct {
	mu sync.Mutex
	db *sql.DB
}

// New creates a new SQLite Writer, initializes the database with WAL mode
// and the journal schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candles (
			symbol  TEXT    NOT NULL,
			ts      INTEGER NOT NULL,
			open    REAL    NOT NULL,
			high    REAL    NOT NULL,
			low     REAL    NOT NULL,
			close   REAL    NOT NULL,
			volume  REAL,
			PRIMARY KEY (symbol, ts)
		);

		CREATE TABLE IF NOT EXISTS signals (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol       TEXT    NOT NULL,
			ts           INTEGER NOT NULL,
			candle_index INTEGER NOT NULL,
			direction    TEXT    NOT NULL,
			price        REAL    NOT NULL,
			triggers     TEXT    NOT NULL,
			created_at   INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);
		CREATE INDEX IF NOT EXISTS idx_signals_symbol_ts ON signals(symbol, ts);

		CREATE TABLE IF NOT EXISTS orders (
			id            TEXT PRIMARY KEY,
			symbol        TEXT NOT NULL,
			strategy      TEXT NOT NULL,
			direction     TEXT NOT NULL,
			status        TEXT NOT NULL,
			entry_ts      INTEGER NOT NULL,
			entry_price   TEXT NOT NULL,
			quantity      TEXT NOT NULL,
			notional      TEXT NOT NULL,
			exit_ts       INTEGER,
			exit_price    TEXT,
			exit_reason   TEXT,
			realized_pnl  TEXT,
			realized_pct  TEXT,
			holding_bars  INTEGER
		);
		CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders(symbol);
		CREATE INDEX IF NOT EXISTS idx_orders_strategy ON orders(strategy);

		CREATE TABLE IF NOT EXISTS runs (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol       TEXT    NOT NULL,
			stats        TEXT    NOT NULL,
			created_at   INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);
	`)
	return err
}

// WriteCandles inserts candles in one transaction, ignoring duplicates.
func (w *Writer) WriteCandles(candles []model.Candle) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO candles (symbol, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	for i := range candles {
		c := &candles[i]
		if _, err := stmt.Exec(c.Symbol, c.TS, c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert candle: %w", err)
		}
	}
	return tx.Commit()
}

// RecordSignal persists one emitted signal with its full verdict trail.
func (w *Writer) RecordSignal(sig model.Signal) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	triggers, err := json.Marshal(sig.Triggers)
	if err != nil {
		return fmt.Errorf("sqlite marshal triggers: %w", err)
	}
	_, err = w.db.Exec(`
		INSERT INTO signals (symbol, ts, candle_index, direction, price, triggers)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sig.Symbol, sig.TS, sig.CandleIndex, string(sig.Direction), sig.Price, string(triggers))
	return err
}

// RecordOrder persists one virtual order, replacing a previous row with the
// same id (re-running a deterministic simulation updates in place).
func (w *Writer) RecordOrder(o model.VirtualOrder) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var exitTS *int64
	var exitPrice, exitReason, realizedPnL, realizedPct *string
	var holdingBars *int
	if o.Closed() {
		ts := o.ExitTime.UnixMilli()
		price := o.ExitPrice.String()
		reason := string(o.ExitReason)
		pnl := o.RealizedPnL.String()
		pct := o.RealizedPct.String()
		bars := o.HoldingBars
		exitTS, exitPrice, exitReason = &ts, &price, &reason
		realizedPnL, realizedPct, holdingBars = &pnl, &pct, &bars
	}

	_, err := w.db.Exec(`
		INSERT OR REPLACE INTO orders
			(id, symbol, strategy, direction, status, entry_ts, entry_price, quantity, notional,
			 exit_ts, exit_price, exit_reason, realized_pnl, realized_pct, holding_bars)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Symbol, o.EntryStrategyID, string(o.Direction), string(o.Status),
		o.EntryTime.UnixMilli(), o.EntryPrice.String(), o.Quantity.String(), o.Notional.String(),
		exitTS, exitPrice, exitReason, realizedPnL, realizedPct, holdingBars)
	return err
}

// RecordRun persists the aggregate statistics of one simulation run.
func (w *Writer) RecordRun(symbol string, stats model.RunStatistics) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	blob, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("sqlite marshal stats: %w", err)
	}
	_, err = w.db.Exec(`INSERT INTO runs (symbol, stats) VALUES (?, ?)`, symbol, string(blob))
	return err
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// Close closes the database.
func (w *Writer) Close() error { return w.db.Close() }
