package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/buwituze/formative3-group2-dqn-agent/results"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// SaveTable stores the table of a sweep, replacing any table previously
// stored under the same sweep id. Each row is also stored in the
// experiments table so that results can be queried across sweeps.
func (s *SQLiteStore) SaveTable(ctx context.Context,
	table *results.Table) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	if table.ID == "" {
		return errors.New("table has no sweep id")
	}

	var payload bytes.Buffer
	if err := table.Write(&payload); err != nil {
		return fmt.Errorf("encode table %s: %w", table.ID, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sweeps (id, created_at, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at = excluded.created_at,
			payload = excluded.payload
	`, table.ID, time.Now().UTC().Format(time.RFC3339), payload.String())
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM experiments WHERE sweep_id = ?`,
		table.ID)
	if err != nil {
		return err
	}
	for _, r := range table.Rows {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO experiments (sweep_id, exp_id, policy, avg_reward,
				reward_std, model_path)
			VALUES (?, ?, ?, ?, ?, ?)
		`, table.ID, r.Params.ID, string(r.Params.Policy), r.MeanReward,
			r.StdReward, r.ModelPath)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetTable(ctx context.Context, id string) (
	*results.Table, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload string
	err = db.QueryRowContext(ctx, `SELECT payload FROM sweeps WHERE id = ?`,
		id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	table, err := results.Read(bytes.NewBufferString(payload))
	if err != nil {
		return nil, false, fmt.Errorf("decode table %s: %w", id, err)
	}
	table.ID = id
	return table, true, nil
}

// BestExperiment returns the id and mean reward of the experiment with
// the highest mean reward in a sweep
func (s *SQLiteStore) BestExperiment(ctx context.Context, sweepID string) (
	int, float64, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return 0, 0, false, err
	}

	var id int
	var reward float64
	err = db.QueryRowContext(ctx, `
		SELECT exp_id, avg_reward FROM experiments
		WHERE sweep_id = ?
		ORDER BY avg_reward DESC, exp_id ASC
		LIMIT 1
	`, sweepID).Scan(&id, &reward)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, false, nil
		}
		return 0, 0, false, err
	}
	return id, reward, true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, errors.New("sqlite store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sweeps (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			payload TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS experiments (
			sweep_id TEXT NOT NULL,
			exp_id INTEGER NOT NULL,
			policy TEXT NOT NULL,
			avg_reward REAL NOT NULL,
			reward_std REAL NOT NULL,
			model_path TEXT NOT NULL,
			PRIMARY KEY (sweep_id, exp_id)
		);
	`)
	return err
}
