package policy

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/ope-controller/internal/batch"
)

// #region func-adapter
// Func adapts a plain function to estimator.TargetPolicy.
type Func func(ctx context.Context, b batch.SampleBatch) ([]float64, error)

// ActionProb calls f.
func (f Func) ActionProb(ctx context.Context, b batch.SampleBatch) ([]float64, error) {
	return f(ctx, b)
}

// #endregion func-adapter

// #region tabular
// Tabular is a lookup-table policy: Probs[obs][action] is the probability of
// taking action in obs. Pairs missing from the table get Default.
type Tabular struct {
	Probs   map[string]map[int64]float64 `json:"probs"`
	Default float64                      `json:"default"`
}

// ActionProb looks up the probability of each recorded (obs, action) pair.
func (p *Tabular) ActionProb(_ context.Context, b batch.SampleBatch) ([]float64, error) {
	n := b.Count()
	if len(b.Obs) != n || len(b.Actions) != n {
		return nil, fmt.Errorf("tabular policy needs obs and actions for all %d steps", n)
	}
	out := make([]float64, n)
	for t := 0; t < n; t++ {
		out[t] = p.lookup(b.Obs[t], b.Actions[t])
	}
	return out, nil
}

func (p *Tabular) lookup(obs string, action int64) float64 {
	if row, ok := p.Probs[obs]; ok {
		if prob, ok := row[action]; ok {
			return prob
		}
	}
	return p.Default
}

// #endregion tabular
