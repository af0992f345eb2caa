package estimator

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielpatrickdp/ope-controller/internal/batch"
)

// #region metric-keys
const (
	// NameIS tags estimates produced by the step-wise IS estimator.
	NameIS = "is"

	MetricVPrev    = "V_prev"
	MetricVStepIS  = "V_step_IS"
	MetricVGainEst = "V_gain_est"
)

// #endregion metric-keys

// #region estimate
// Estimate is the immutable result of one estimator call.
type Estimate struct {
	Name    string
	Metrics map[string]float64
}

// VPrev is the discounted return under the behavior policy.
func (e Estimate) VPrev() float64 { return e.Metrics[MetricVPrev] }

// VStepIS is the discounted return estimated for the target policy.
func (e Estimate) VStepIS() float64 { return e.Metrics[MetricVStepIS] }

// VGainEst is V_step_IS relative to V_prev.
func (e Estimate) VGainEst() float64 { return e.Metrics[MetricVGainEst] }

// #endregion estimate

// #region capabilities
// TargetPolicy reports the probability the evaluated policy assigns to each
// recorded action of a batch. The returned slice has one entry per step.
type TargetPolicy interface {
	ActionProb(ctx context.Context, b batch.SampleBatch) ([]float64, error)
}

// Check decides whether a batch is eligible for estimation.
type Check func(b batch.SampleBatch) error

// #endregion capabilities

// #region errors
var (
	// ErrEstimationPrecondition is matched by every eligibility failure.
	ErrEstimationPrecondition = errors.New("estimation precondition failed")

	// ErrPolicyOutput marks target probabilities that do not line up with the batch.
	ErrPolicyOutput = errors.New("target policy output mismatch")
)

// PreconditionError carries the reason a batch was refused.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", ErrEstimationPrecondition, e.Reason)
}

// Is lets errors.Is match ErrEstimationPrecondition.
func (e *PreconditionError) Is(target error) bool {
	return target == ErrEstimationPrecondition
}

// #endregion errors
