package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rony4d/go-lpvault/vault"
)

// SQLiteRecorder persists vault events to a SQLite database. Amounts are
// stored as decimal strings: reward amounts routinely exceed int64.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while the daemon writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stake_events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			event_type TEXT    NOT NULL,
			user       TEXT    NOT NULL,
			asset      TEXT,
			amount     TEXT    NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stake_ts ON stake_events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_stake_user ON stake_events(user)`,

		`CREATE TABLE IF NOT EXISTS claim_events (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			user      TEXT    NOT NULL,
			primary_amount   TEXT NOT NULL,
			secondary_amount TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_claim_ts ON claim_events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_claim_user ON claim_events(user)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:30], err)
		}
	}
	return nil
}

// RecordEvent implements Recorder.
func (r *SQLiteRecorder) RecordEvent(ev vault.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().Unix()
	switch e := ev.(type) {
	case vault.Deposited:
		return r.insertStake(now, "DEPOSIT", e.User.Hex(), "", e.Amount.String())
	case vault.DepositedAsset:
		return r.insertStake(now, "DEPOSIT_ASSET", e.User.Hex(), e.Asset.String(), e.LPAmount.String())
	case vault.Withdrawn:
		return r.insertStake(now, "WITHDRAW", e.User.Hex(), "", e.Amount.String())
	case vault.WithdrawnAsset:
		return r.insertStake(now, "WITHDRAW_ASSET", e.User.Hex(), e.Asset.String(), e.Amount.String())
	case vault.Claimed:
		_, err := r.db.Exec(
			`INSERT INTO claim_events (timestamp, user, primary_amount, secondary_amount) VALUES (?, ?, ?, ?)`,
			now, e.User.Hex(), e.Primary.String(), e.Secondary.String(),
		)
		return err
	default:
		return fmt.Errorf("unknown event type %T", ev)
	}
}

func (r *SQLiteRecorder) insertStake(ts int64, eventType, user, asset, amount string) error {
	_, err := r.db.Exec(
		`INSERT INTO stake_events (timestamp, event_type, user, asset, amount) VALUES (?, ?, ?, ?, ?)`,
		ts, eventType, user, asset, amount,
	)
	return err
}

// Close releases the database handle.
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
