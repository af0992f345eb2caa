package store

import "time"

// #region batch-record
// BatchRecord is the metadata row of a stored batch.
type BatchRecord struct {
	BatchID   string
	EpisodeID string
	Source    string
	StepCount int
	CreatedAt time.Time
}

// #endregion batch-record

// #region run-record
// RunRecord describes one evaluation run over stored batches.
type RunRecord struct {
	RunID       string
	Estimator   string
	Gamma       float64
	RewardShift float64
	CreatedAt   time.Time
	SummaryJSON string // empty until the run finishes
}

// #endregion run-record

// #region estimate-row
// EstimateRow is one estimate_log row read back for a run. Error is set and
// the metric fields are nil when the batch was skipped.
type EstimateRow struct {
	BatchID   string
	Estimator string
	VPrev     *float64
	VStepIS   *float64
	VGainEst  *float64
	Error     string
	CreatedAt time.Time
}

// #endregion estimate-row
