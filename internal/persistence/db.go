// Package persistence stores run history in SQLite: one row per run, the
// model reporters of every saved step and the entity table of each snapshot.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/talgya/merchant-network/internal/config"
	"github.com/talgya/merchant-network/internal/engine"
)

// ErrNotFound is returned when a run or step has no stored rows.
var ErrNotFound = errors.New("not found")

// DB wraps a SQLite connection for run history.
type DB struct {
	conn *sqlx.DB
}

// Run describes one stored simulation run.
type Run struct {
	ID       string `db:"id" json:"id"`
	Seed     int64  `db:"seed" json:"seed"`
	Config   string `db:"config" json:"config"` // YAML
	Products string `db:"products" json:"-"`
	Started  int64  `db:"started" json:"started"` // Unix seconds
}

type statsRow struct {
	RunID              string  `db:"run_id"`
	Step               int     `db:"step"`
	Offers             int     `db:"offers"`
	Trades             int     `db:"trades"`
	Produced           int     `db:"produced"`
	Discarded          int     `db:"discarded"`
	DepositedByTrade   int     `db:"deposited_by_trade"`
	Moves              int     `db:"moves"`
	SumProductAllSites int     `db:"sum_product_all_sites"`
	AvgKnownTraders    float64 `db:"avg_known_traders"`
	AvgExpectedPrice   float64 `db:"avg_expected_price"`
}

func (r statsRow) stats() engine.StepStats {
	return engine.StepStats{
		Step:               r.Step,
		Offers:             r.Offers,
		Trades:             r.Trades,
		Produced:           r.Produced,
		Discarded:          r.Discarded,
		DepositedByTrade:   r.DepositedByTrade,
		Moves:              r.Moves,
		SumProductAllSites: r.SumProductAllSites,
		AvgKnownTraders:    r.AvgKnownTraders,
		AvgExpectedPrice:   r.AvgExpectedPrice,
	}
}

// Open opens or creates a SQLite database at the given path. Every pooled
// connection runs in WAL mode and waits up to five seconds on a locked
// database, since the API and the runner may save concurrently.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

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
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		config TEXT NOT NULL,
		products TEXT NOT NULL,
		started INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS step_stats (
		run_id TEXT NOT NULL REFERENCES runs(id),
		step INTEGER NOT NULL,
		offers INTEGER NOT NULL,
		trades INTEGER NOT NULL,
		produced INTEGER NOT NULL,
		discarded INTEGER NOT NULL,
		deposited_by_trade INTEGER NOT NULL,
		moves INTEGER NOT NULL,
		sum_product_all_sites INTEGER NOT NULL,
		avg_known_traders REAL NOT NULL,
		avg_expected_price REAL NOT NULL,
		PRIMARY KEY (run_id, step)
	);

	CREATE TABLE IF NOT EXISTS entity_snapshots (
		run_id TEXT NOT NULL REFERENCES runs(id),
		step INTEGER NOT NULL,
		category TEXT NOT NULL,
		entity_id INTEGER NOT NULL,
		entity_json TEXT NOT NULL,
		PRIMARY KEY (run_id, step, category, entity_id)
	);

	CREATE TABLE IF NOT EXISTS run_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entity_snapshots_step ON entity_snapshots(run_id, step);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// BeginRun records a new run with its configuration and returns its id.
func (db *DB) BeginRun(cfg config.Config) (string, error) {
	cfgYAML, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	products, err := json.Marshal(cfg.Products)
	if err != nil {
		return "", fmt.Errorf("encode products: %w", err)
	}

	id := uuid.NewString()
	_, err = db.conn.Exec(`INSERT INTO runs (id, seed, config, products, started) VALUES (?, ?, ?, ?, ?)`,
		id, cfg.Seed, string(cfgYAML), string(products), time.Now().Unix())
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	slog.Info("run recorded", "run", id, "seed", cfg.Seed)
	return id, nil
}

// Runs lists stored runs, newest first.
func (db *DB) Runs() ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs, `SELECT id, seed, config, products, started FROM runs ORDER BY started DESC, id`)
	return runs, err
}

// GetRun returns one stored run.
func (db *DB) GetRun(id string) (Run, error) {
	var r Run
	err := db.conn.Get(&r, `SELECT id, seed, config, products, started FROM runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return r, err
}

// SaveSnapshot writes the reporters and entity table of one step. Saving the
// same step twice replaces the earlier rows.
func (db *DB) SaveSnapshot(runID string, snap *engine.Snapshot) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	s := snap.Stats
	_, err = tx.Exec(`INSERT OR REPLACE INTO step_stats
		(run_id, step, offers, trades, produced, discarded, deposited_by_trade, moves,
		 sum_product_all_sites, avg_known_traders, avg_expected_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, snap.Step, s.Offers, s.Trades, s.Produced, s.Discarded, s.DepositedByTrade, s.Moves,
		s.SumProductAllSites, s.AvgKnownTraders, s.AvgExpectedPrice)
	if err != nil {
		return fmt.Errorf("insert stats: %w", err)
	}

	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO entity_snapshots
		(run_id, step, category, entity_id, entity_json) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range snap.Entities {
		b, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode %s %d: %w", e.Category, e.ID, err)
		}
		if _, err := stmt.Exec(runID, snap.Step, e.Category, e.ID, string(b)); err != nil {
			return fmt.Errorf("insert %s %d: %w", e.Category, e.ID, err)
		}
	}

	return tx.Commit()
}

// LoadSnapshot rebuilds the snapshot stored for a step. Merchants come
// before locations, each in ascending id, as in a live snapshot.
func (db *DB) LoadSnapshot(runID string, step int) (*engine.Snapshot, error) {
	run, err := db.GetRun(runID)
	if err != nil {
		return nil, err
	}

	var row statsRow
	err = db.conn.Get(&row, `SELECT * FROM step_stats WHERE run_id = ? AND step = ?`, runID, step)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s step %d: %w", runID, step, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	snap := &engine.Snapshot{Step: step, Stats: row.stats()}
	if err := json.Unmarshal([]byte(run.Products), &snap.Products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}

	var blobs []string
	err = db.conn.Select(&blobs, `SELECT entity_json FROM entity_snapshots
		WHERE run_id = ? AND step = ?
		ORDER BY CASE category WHEN 'merchant' THEN 0 ELSE 1 END, entity_id`, runID, step)
	if err != nil {
		return nil, err
	}
	snap.Entities = make([]engine.EntitySnapshot, len(blobs))
	for i, b := range blobs {
		if err := json.Unmarshal([]byte(b), &snap.Entities[i]); err != nil {
			return nil, fmt.Errorf("decode entity: %w", err)
		}
	}
	return snap, nil
}

// StatsHistory returns the reporters of every saved step in order.
func (db *DB) StatsHistory(runID string) ([]engine.StepStats, error) {
	var rows []statsRow
	if err := db.conn.Select(&rows, `SELECT * FROM step_stats WHERE run_id = ? ORDER BY step`, runID); err != nil {
		return nil, err
	}
	out := make([]engine.StepStats, len(rows))
	for i, r := range rows {
		out[i] = r.stats()
	}
	return out, nil
}

// LatestStep returns the highest saved step of a run.
func (db *DB) LatestStep(runID string) (int, error) {
	var step sql.NullInt64
	if err := db.conn.Get(&step, `SELECT MAX(step) FROM step_stats WHERE run_id = ?`, runID); err != nil {
		return 0, err
	}
	if !step.Valid {
		return 0, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return int(step.Int64), nil
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO run_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a value by key.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM run_meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("meta %q: %w", key, ErrNotFound)
	}
	return value, err
}
