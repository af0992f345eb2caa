package estimator

import (
	"context"
	"fmt"
	"math"

	"github.com/danielpatrickdp/ope-controller/internal/batch"
)

// gainFloor bounds the V_gain_est denominator away from zero.
const gainFloor = 1e-8

// #region estimator
// ImportanceSampling is the step-wise importance sampling estimator
// (Thomas et al., https://arxiv.org/pdf/1511.03722.pdf). gamma is fixed at
// construction, so one instance can serve concurrent calls on disjoint batches.
type ImportanceSampling struct {
	policy TargetPolicy
	check  Check
	gamma  float64
}

// Option configures an ImportanceSampling estimator.
type Option func(*ImportanceSampling)

// WithCheck replaces the default RequireActionProb eligibility check.
func WithCheck(c Check) Option {
	return func(e *ImportanceSampling) { e.check = c }
}

// NewImportanceSampling builds an estimator for the given target policy.
func NewImportanceSampling(policy TargetPolicy, gamma float64, opts ...Option) *ImportanceSampling {
	e := &ImportanceSampling{
		policy: policy,
		check:  RequireActionProb,
		gamma:  gamma,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Gamma returns the discount factor.
func (e *ImportanceSampling) Gamma() float64 {
	return e.gamma
}

// #endregion estimator

// #region estimate
// Estimate computes V_prev, V_step_IS and V_gain_est for one batch.
//
// The last recorded step is left out of both the weights and the sums when
// count > 1. That boundary is inherited from the reference estimator and is
// kept as is. Zero behavior probabilities are not guarded: the division
// yields Inf or NaN and those values are returned.
func (e *ImportanceSampling) Estimate(ctx context.Context, b batch.SampleBatch, rewardShift float64) (Estimate, error) {
	if err := e.check(b); err != nil {
		return Estimate{}, err
	}

	rewards, oldProb := b.Rewards, b.ActionProb
	newProb, err := e.policy.ActionProb(ctx, b)
	if err != nil {
		return Estimate{}, fmt.Errorf("target action prob: %w", err)
	}
	if len(newProb) != b.Count() {
		return Estimate{}, fmt.Errorf("%w: got %d probabilities for %d steps", ErrPolicyOutput, len(newProb), b.Count())
	}

	n := b.Count()

	// cumulative importance ratios, one fewer than the step count
	p := make([]float64, 0, max(n-1, 0))
	for t := 0; t < n-1; t++ {
		prev := 1.0
		if t > 0 {
			prev = p[t-1]
		}
		p = append(p, prev*newProb[t]/oldProb[t])
	}

	var vPrev, vStepIS float64
	for t := 0; t < n-1; t++ {
		reward := rewards[t] + rewardShift
		discount := math.Pow(e.gamma, float64(t))
		vPrev += reward * discount
		vStepIS += p[t] * reward * discount
	}

	if n == 1 {
		vPrev = rewards[0] + rewardShift
		vStepIS = (newProb[0] / oldProb[0]) * vPrev
	}

	return Estimate{
		Name: NameIS,
		Metrics: map[string]float64{
			MetricVPrev:    vPrev,
			MetricVStepIS:  vStepIS,
			MetricVGainEst: vStepIS / math.Max(gainFloor, vPrev),
		},
	}, nil
}

// #endregion estimate
