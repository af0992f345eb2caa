package logging

import "time"

// #region estimate-entry
// EstimateEntry is a single row in the estimate_log table. A skipped batch
// carries Error and no metrics.
type EstimateEntry struct {
	RunID     string
	BatchID   string
	Estimator string
	Metrics   map[string]float64
	Error     string
	CreatedAt time.Time
}

// #endregion estimate-entry
