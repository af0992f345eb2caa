package estimator

import (
	"fmt"

	"github.com/danielpatrickdp/ope-controller/internal/batch"
)

// RequireActionProb refuses batches that are empty or carry no per-step
// behavior action probabilities.
func RequireActionProb(b batch.SampleBatch) error {
	if b.Count() < 1 {
		return &PreconditionError{Reason: "batch has no steps"}
	}
	if !b.HasActionProb() {
		return &PreconditionError{Reason: "off-policy estimation needs recorded action_prob; the behavior policy must be stochastic"}
	}
	if len(b.ActionProb) != b.Count() {
		return &PreconditionError{Reason: fmt.Sprintf("action_prob has %d entries for %d steps", len(b.ActionProb), b.Count())}
	}
	return nil
}

// RequireActions refuses batches without the taken actions.
func RequireActions(b batch.SampleBatch) error {
	if !b.HasActions() || len(b.Actions) != b.Count() {
		return &PreconditionError{Reason: "batch has no actions column"}
	}
	return nil
}

// ChainChecks runs checks in order and returns the first failure.
func ChainChecks(checks ...Check) Check {
	return func(b batch.SampleBatch) error {
		for _, c := range checks {
			if err := c(b); err != nil {
				return err
			}
		}
		return nil
	}
}
