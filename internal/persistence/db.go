// Package persistence provides SQLite-based save slots and the trade log.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/star-market/internal/engine"
)

var (
	// ErrNoSave is returned when a slot has never been written.
	ErrNoSave = errors.New("no save in slot")
	// ErrChecksum is returned when a saved blob fails verification.
	ErrChecksum = errors.New("save checksum mismatch")
)

// DB wraps a SQLite connection for game state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path. ":memory:"
// opens a private in-memory database.
func Open(path string) (*DB, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	if path == ":memory:" {
		dsn = path
	}
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Each :memory: connection is a separate database.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS saves (
		slot TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		checksum TEXT NOT NULL,
		data BLOB NOT NULL,
		saved_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at INTEGER NOT NULL,
		type TEXT NOT NULL,
		name TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		price INTEGER NOT NULL,
		profit INTEGER NOT NULL,
		trader TEXT NOT NULL,
		auto INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trades_name ON trades(name);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveGame writes a snapshot to a slot, replacing what was there.
func (db *DB) SaveGame(ctx context.Context, slot string, snap engine.Snapshot) error {
	blob, sum, err := encodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO saves (slot, version, checksum, data, saved_at) VALUES (?, ?, ?, ?, ?)`,
		slot, snapshotVersion, sum, blob, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save slot %q: %w", slot, err)
	}
	slog.Info("game saved", "slot", slot, "bytes", len(blob))
	return nil
}

type saveRow struct {
	Version  int    `db:"version"`
	Checksum string `db:"checksum"`
	Data     []byte `db:"data"`
	SavedAt  int64  `db:"saved_at"`
}

// LoadGame reads the snapshot in a slot.
func (db *DB) LoadGame(ctx context.Context, slot string) (engine.Snapshot, error) {
	var row saveRow
	err := db.conn.GetContext(ctx, &row,
		"SELECT version, checksum, data, saved_at FROM saves WHERE slot = ?", slot)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Snapshot{}, fmt.Errorf("slot %q: %w", slot, ErrNoSave)
	}
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("load slot %q: %w", slot, err)
	}
	if row.Version != snapshotVersion {
		return engine.Snapshot{}, fmt.Errorf("slot %q: unsupported save version %d", slot, row.Version)
	}
	snap, err := decodeSnapshot(row.Data, row.Checksum)
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("slot %q: %w", slot, err)
	}
	return snap, nil
}

// AppendTrades adds trades to the append-only log.
func (db *DB) AppendTrades(ctx context.Context, trades []engine.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO trades
		(at, type, name, quantity, price, profit, trader, auto)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range trades {
		auto := 0
		if t.Auto {
			auto = 1
		}
		_, err := stmt.ExecContext(ctx,
			t.Time.UnixMilli(), t.Type, t.Name, t.Quantity, t.Price, t.Profit, t.Trader, auto)
		if err != nil {
			return fmt.Errorf("insert trade %s %s: %w", t.Type, t.Name, err)
		}
	}

	return tx.Commit()
}

type tradeRow struct {
	At       int64  `db:"at"`
	Type     string `db:"type"`
	Name     string `db:"name"`
	Quantity int    `db:"quantity"`
	Price    int    `db:"price"`
	Profit   int    `db:"profit"`
	Trader   string `db:"trader"`
	Auto     bool   `db:"auto"`
}

// RecentTrades returns the most recent N trades, newest first.
func (db *DB) RecentTrades(ctx context.Context, limit int) ([]engine.TradeRecord, error) {
	var rows []tradeRow
	err := db.conn.SelectContext(ctx, &rows,
		"SELECT at, type, name, quantity, price, profit, trader, auto FROM trades ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	out := make([]engine.TradeRecord, len(rows))
	for i, r := range rows {
		out[i] = engine.TradeRecord{
			Time:     time.UnixMilli(r.At),
			Type:     r.Type,
			Name:     r.Name,
			Quantity: r.Quantity,
			Price:    r.Price,
			Profit:   r.Profit,
			Trader:   r.Trader,
			Auto:     r.Auto,
		}
	}
	return out, nil
}

// ProfitByItem sums realized profit per item across the whole log.
func (db *DB) ProfitByItem(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Name   string `db:"name"`
		Profit int    `db:"profit"`
	}
	err := db.conn.SelectContext(ctx, &rows,
		"SELECT name, SUM(profit) AS profit FROM trades WHERE type = 'sell' GROUP BY name")
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Name] = r.Profit
	}
	return out, nil
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}
