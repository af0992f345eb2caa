package batch

import "fmt"

// #region sample-batch
// SampleBatch is a column-oriented slice of recorded trajectory steps.
// Every present column has one entry per step.
type SampleBatch struct {
	Rewards    []float64 `json:"rewards"`
	ActionProb []float64 `json:"action_prob,omitempty"` // behavior-policy probability of the taken action
	Actions    []int64   `json:"actions,omitempty"`
	Obs        []string  `json:"obs,omitempty"`
	EpisodeIDs []string  `json:"episode_ids,omitempty"`
}

// Count returns the number of recorded steps.
func (b SampleBatch) Count() int {
	return len(b.Rewards)
}

// HasActionProb reports whether the batch carries behavior action probabilities.
func (b SampleBatch) HasActionProb() bool {
	return b.ActionProb != nil
}

// HasActions reports whether the batch carries the taken actions.
func (b SampleBatch) HasActions() bool {
	return b.Actions != nil
}

// #endregion sample-batch

// #region validation-error
// ValidationError describes the first column that breaks the batch contract.
// Step is -1 when the problem is with the column as a whole.
type ValidationError struct {
	Column string
	Step   int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Step < 0 {
		return fmt.Sprintf("batch column %s: %s", e.Column, e.Reason)
	}
	return fmt.Sprintf("batch column %s step %d: %s", e.Column, e.Step, e.Reason)
}

// #endregion validation-error
