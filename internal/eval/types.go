package eval

import (
	"context"
	"encoding/json"
	"math"
	"strconv"

	"github.com/danielpatrickdp/ope-controller/internal/batch"
	"github.com/danielpatrickdp/ope-controller/internal/estimator"
)

// #region inputs
// Estimator is the capability the runner drives.
type Estimator interface {
	Estimate(ctx context.Context, b batch.SampleBatch, rewardShift float64) (estimator.Estimate, error)
}

// Named pairs a batch with the ID it is reported under.
type Named struct {
	ID    string
	Batch batch.SampleBatch
}

// #endregion inputs

// #region outcome
// Outcome is the per-batch result of a run. Exactly one of Estimate and Err is set;
// Err is only ever a precondition failure, since other errors abort the run.
type Outcome struct {
	BatchID  string
	Estimate *estimator.Estimate
	Err      error
}

// Sink receives outcomes in batch order once every estimate has finished.
type Sink interface {
	Record(o Outcome) error
}

// #endregion outcome

// #region summary
// Summary aggregates a run: per-metric means over the estimated batches.
type Summary struct {
	Estimator string             `json:"estimator"`
	Batches   int                `json:"batches"`
	Estimated int                `json:"estimated"`
	Skipped   int                `json:"skipped"`
	Means     map[string]float64 `json:"means"`
}

// MarshalJSON writes non-finite means as the strings "+Inf", "-Inf" and
// "NaN", which plain JSON numbers cannot hold.
func (s Summary) MarshalJSON() ([]byte, error) {
	means := make(map[string]interface{}, len(s.Means))
	for k, v := range s.Means {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			means[k] = strconv.FormatFloat(v, 'g', -1, 64)
			continue
		}
		means[k] = v
	}
	type plain Summary
	return json.Marshal(struct {
		plain
		Means map[string]interface{} `json:"means"`
	}{plain: plain(s), Means: means})
}

// #endregion summary

// #region acceptance-config
// AcceptanceConfig holds thresholds a target policy must clear.
type AcceptanceConfig struct {
	MinGain    float64 // reject if mean V_gain_est is below this
	MinBatches int     // reject if fewer batches were estimated
}

// DefaultAcceptanceConfig requires at least one estimate and no expected loss.
func DefaultAcceptanceConfig() AcceptanceConfig {
	return AcceptanceConfig{
		MinGain:    1.0,
		MinBatches: 1,
	}
}

// #endregion acceptance-config

// #region eval-result
// EvalMetric captures a single acceptance check result.
type EvalMetric struct {
	Name  string
	Value float64
	Pass  bool
}

// EvalResult is the output of the acceptance check.
type EvalResult struct {
	Passed  bool
	Metrics []EvalMetric
	Reason  string
}

// Report is everything a run produced.
type Report struct {
	Outcomes   []Outcome
	Summary    Summary
	Acceptance EvalResult
}

// #endregion eval-result
