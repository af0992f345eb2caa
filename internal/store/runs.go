package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// #region create-run
// CreateRun registers a new evaluation run and returns its record.
func (s *Store) CreateRun(estimator string, gamma, rewardShift float64) (RunRecord, error) {
	rec := RunRecord{
		RunID:       uuid.New().String(),
		Estimator:   estimator,
		Gamma:       gamma,
		RewardShift: rewardShift,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, estimator, gamma, reward_shift, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.RunID, rec.Estimator, rec.Gamma, rec.RewardShift, rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return RunRecord{}, fmt.Errorf("insert run: %w", err)
	}
	return rec, nil
}

// #endregion create-run

// #region finish-run
// FinishRun attaches the aggregated summary to a run.
func (s *Store) FinishRun(runID, summaryJSON string) error {
	res, err := s.db.Exec(`UPDATE runs SET summary_json = ? WHERE run_id = ?`, summaryJSON, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// #endregion finish-run

// #region get-run
// GetRun retrieves a run by ID.
func (s *Store) GetRun(runID string) (RunRecord, error) {
	row := s.db.QueryRow(
		`SELECT run_id, estimator, gamma, reward_shift, created_at, summary_json FROM runs WHERE run_id = ?`, runID,
	)
	rec, err := scanRun(row)
	if err != nil {
		return RunRecord{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return rec, nil
}

// ListRuns returns the most recent runs first. limit <= 0 means all.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT run_id, estimator, gamma, reward_shift, created_at, summary_json
		 FROM runs ORDER BY rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (RunRecord, error) {
	var rec RunRecord
	var createdStr string
	var summary sql.NullString
	if err := sc.Scan(&rec.RunID, &rec.Estimator, &rec.Gamma, &rec.RewardShift, &createdStr, &summary); err != nil {
		return RunRecord{}, err
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	rec.SummaryJSON = summary.String
	return rec, nil
}

// #endregion get-run

// #region run-estimates
// RunEstimates returns the estimate_log rows of a run in insertion order.
func (s *Store) RunEstimates(runID string) ([]EstimateRow, error) {
	rows, err := s.db.Query(
		`SELECT batch_id, estimator, v_prev, v_step_is, v_gain_est, error, created_at
		 FROM estimate_log WHERE run_id = ? ORDER BY id ASC`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query estimates: %w", err)
	}
	defer rows.Close()

	var out []EstimateRow
	for rows.Next() {
		var r EstimateRow
		var vPrev, vStepIS, vGain sql.NullFloat64
		var errText sql.NullString
		var createdStr string
		if err := rows.Scan(&r.BatchID, &r.Estimator, &vPrev, &vStepIS, &vGain, &errText, &createdStr); err != nil {
			return nil, fmt.Errorf("scan estimate: %w", err)
		}
		r.VPrev = floatPtr(vPrev)
		r.VStepIS = floatPtr(vStepIS)
		r.VGainEst = floatPtr(vGain)
		r.Error = errText.String
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, r)
	}
	return out, rows.Err()
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// #endregion run-estimates
