package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/ope-controller/internal/batch"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS batches (
	batch_id    TEXT PRIMARY KEY,
	episode_id  TEXT,
	source      TEXT,
	step_count  INTEGER NOT NULL,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS steps (
	batch_id    TEXT NOT NULL,
	t           INTEGER NOT NULL,
	episode_id  TEXT,
	obs         TEXT,
	action      INTEGER,
	reward      REAL NOT NULL,
	action_prob REAL,
	PRIMARY KEY (batch_id, t),
	FOREIGN KEY (batch_id) REFERENCES batches(batch_id)
);

CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	estimator    TEXT NOT NULL,
	gamma        REAL NOT NULL,
	reward_shift REAL NOT NULL,
	created_at   TEXT NOT NULL,
	summary_json TEXT
);

CREATE TABLE IF NOT EXISTS estimate_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	batch_id    TEXT NOT NULL,
	estimator   TEXT NOT NULL,
	v_prev      REAL,
	v_step_is   REAL,
	v_gain_est  REAL,
	error       TEXT,
	created_at  TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// #endregion schema

// #region store-struct
// Store persists trajectory batches and estimate runs in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region put-batch
// PutBatch validates b and stores it under a fresh batch ID.
func (s *Store) PutBatch(b batch.SampleBatch, source string) (string, error) {
	if err := b.Validate(); err != nil {
		return "", fmt.Errorf("put batch: %w", err)
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	var episodeID interface{}
	if len(b.EpisodeIDs) > 0 {
		episodeID = b.EpisodeIDs[0]
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO batches (batch_id, episode_id, source, step_count, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, episodeID, nullIfEmpty(source), b.Count(), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert batch: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO steps (batch_id, t, episode_id, obs, action, reward, action_prob) VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return "", fmt.Errorf("prepare steps: %w", err)
	}
	defer stmt.Close()

	for t := 0; t < b.Count(); t++ {
		var episode, obs, action, prob interface{}
		if b.EpisodeIDs != nil {
			episode = b.EpisodeIDs[t]
		}
		if b.Obs != nil {
			obs = b.Obs[t]
		}
		if b.Actions != nil {
			action = b.Actions[t]
		}
		if b.ActionProb != nil {
			prob = b.ActionProb[t]
		}
		if _, err := stmt.Exec(id, t, episode, obs, action, b.Rewards[t], prob); err != nil {
			return "", fmt.Errorf("insert step %d: %w", t, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// #endregion put-batch

// #region get-batch
// GetBatch loads a stored batch. Columns that were absent on insert stay nil.
func (s *Store) GetBatch(id string) (batch.SampleBatch, error) {
	var stepCount int
	err := s.db.QueryRow(
		`SELECT step_count FROM batches WHERE batch_id = ?`, id,
	).Scan(&stepCount)
	if err != nil {
		return batch.SampleBatch{}, fmt.Errorf("get batch %s: %w", id, err)
	}

	rows, err := s.db.Query(
		`SELECT episode_id, obs, action, reward, action_prob FROM steps WHERE batch_id = ? ORDER BY t ASC`, id,
	)
	if err != nil {
		return batch.SampleBatch{}, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	var b batch.SampleBatch
	var epCol, obsCol []string
	var actCol []int64
	var probCol []float64
	hasEp, hasObs, hasAct, hasProb := true, true, true, true
	for rows.Next() {
		var episode, obs sql.NullString
		var action sql.NullInt64
		var reward float64
		var prob sql.NullFloat64
		if err := rows.Scan(&episode, &obs, &action, &reward, &prob); err != nil {
			return batch.SampleBatch{}, fmt.Errorf("scan step: %w", err)
		}
		b.Rewards = append(b.Rewards, reward)
		hasEp = hasEp && episode.Valid
		hasObs = hasObs && obs.Valid
		hasAct = hasAct && action.Valid
		hasProb = hasProb && prob.Valid
		epCol = append(epCol, episode.String)
		obsCol = append(obsCol, obs.String)
		actCol = append(actCol, action.Int64)
		probCol = append(probCol, prob.Float64)
	}
	if err := rows.Err(); err != nil {
		return batch.SampleBatch{}, fmt.Errorf("iterate steps: %w", err)
	}
	if len(b.Rewards) != stepCount {
		return batch.SampleBatch{}, fmt.Errorf("batch %s: expected %d steps, found %d", id, stepCount, len(b.Rewards))
	}

	if hasObs {
		b.Obs = obsCol
	}
	if hasAct {
		b.Actions = actCol
	}
	if hasProb {
		b.ActionProb = probCol
	}
	if hasEp {
		b.EpisodeIDs = epCol
	}
	return b, nil
}

// #endregion get-batch

// #region list-batches
// ListBatches returns stored batch metadata in insertion order. limit <= 0 means all.
func (s *Store) ListBatches(limit int) ([]BatchRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT batch_id, episode_id, source, step_count, created_at
		 FROM batches ORDER BY rowid ASC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var records []BatchRecord
	for rows.Next() {
		var rec BatchRecord
		var episodeID, source sql.NullString
		var createdStr string
		if err := rows.Scan(&rec.BatchID, &episodeID, &source, &rec.StepCount, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec.EpisodeID = episodeID.String
		rec.Source = source.String
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list-batches

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
