package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/ope-controller/internal/batch"
	"github.com/danielpatrickdp/ope-controller/internal/eval"
	"github.com/danielpatrickdp/ope-controller/internal/policy"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture. With
// SplitByEpisode each episode of a batch is estimated separately and
// reported as "<id>#<k>".
type Fixture struct {
	Description    string            `json:"description"`
	Gamma          float64           `json:"gamma"`
	RewardShift    float64           `json:"reward_shift"`
	SplitByEpisode bool              `json:"split_by_episode,omitempty"`
	Policy         FixturePolicy     `json:"policy"`
	Batches        []FixtureBatch    `json:"batches"`
	Expected       []FixtureExpected `json:"expected"`
}

// FixturePolicy is the tabular target policy the batches are evaluated under.
type FixturePolicy struct {
	Default float64                      `json:"default"`
	Probs   map[string]map[int64]float64 `json:"probs"`
}

// FixtureBatch mirrors batch.SampleBatch with an ID.
type FixtureBatch struct {
	ID         string    `json:"id"`
	Obs        []string  `json:"obs"`
	Actions    []int64   `json:"actions"`
	Rewards    []float64 `json:"rewards"`
	ActionProb []float64 `json:"action_prob"`
	EpisodeIDs []string  `json:"episode_ids,omitempty"`
}

// FixtureExpected captures the expected estimate per batch. Skip marks a
// batch that must fail the estimation precondition.
type FixtureExpected struct {
	ID       string  `json:"id"`
	Skip     bool    `json:"skip,omitempty"`
	VPrev    float64 `json:"v_prev"`
	VStepIS  float64 `json:"v_step_is"`
	VGainEst float64 `json:"v_gain_est"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToTabular converts a FixturePolicy to a policy.Tabular.
func (fp *FixturePolicy) ToTabular() *policy.Tabular {
	return &policy.Tabular{Probs: fp.Probs, Default: fp.Default}
}

// ToNamed converts a FixtureBatch to an eval.Named batch.
func (fb *FixtureBatch) ToNamed() eval.Named {
	return eval.Named{
		ID: fb.ID,
		Batch: batch.SampleBatch{
			Rewards:    fb.Rewards,
			ActionProb: fb.ActionProb,
			Actions:    fb.Actions,
			Obs:        fb.Obs,
			EpisodeIDs: fb.EpisodeIDs,
		},
	}
}

// #endregion fixture-loader
