package eval

import (
	"database/sql"

	"github.com/danielpatrickdp/ope-controller/internal/estimator"
	"github.com/danielpatrickdp/ope-controller/internal/logging"
)

// StoreSink writes outcomes to the estimate_log table of a run.
type StoreSink struct {
	DB    *sql.DB
	RunID string
}

// Record logs one outcome.
func (s StoreSink) Record(o Outcome) error {
	entry := logging.EstimateEntry{
		RunID:     s.RunID,
		BatchID:   o.BatchID,
		Estimator: estimator.NameIS,
	}
	if o.Estimate != nil {
		entry.Estimator = o.Estimate.Name
		entry.Metrics = o.Estimate.Metrics
	} else if o.Err != nil {
		entry.Error = o.Err.Error()
	}
	return logging.LogEstimate(s.DB, entry)
}
