package logging

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/danielpatrickdp/ope-controller/internal/estimator"
)

// #region log-estimate
// LogEstimate writes an estimate entry to the estimate_log table.
func LogEstimate(db *sql.DB, entry EstimateEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO estimate_log (run_id, batch_id, estimator, v_prev, v_step_is, v_gain_est, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.BatchID,
		entry.Estimator,
		metricOrNull(entry.Metrics, estimator.MetricVPrev),
		metricOrNull(entry.Metrics, estimator.MetricVStepIS),
		metricOrNull(entry.Metrics, estimator.MetricVGainEst),
		nullIfEmpty(entry.Error),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log estimate: %w", err)
	}
	return nil
}

// #endregion log-estimate

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// metricOrNull stores absent and NaN metrics as NULL.
func metricOrNull(m map[string]float64, key string) interface{} {
	v, ok := m[key]
	if !ok || math.IsNaN(v) {
		return nil
	}
	return v
}

// #endregion helpers
