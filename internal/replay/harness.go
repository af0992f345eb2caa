package replay

import (
	"context"
	"fmt"
	"math"

	"github.com/danielpatrickdp/ope-controller/internal/estimator"
	"github.com/danielpatrickdp/ope-controller/internal/eval"
)

// #region types
// ReplayResult is the replayed outcome for one fixture batch.
type ReplayResult struct {
	ID       string
	Skipped  bool
	Reason   string
	Estimate *estimator.Estimate
}

// Diff is one expectation the replay did not meet.
type Diff struct {
	ID    string
	Field string
	Want  string
	Got   string
}

// #endregion types

// #region replay
// Replay evaluates every fixture batch under the fixture's tabular policy,
// one batch at a time and in fixture order. With SplitByEpisode each
// episode yields its own result.
func Replay(ctx context.Context, f *Fixture) ([]ReplayResult, error) {
	est := estimator.NewImportanceSampling(
		f.Policy.ToTabular(),
		f.Gamma,
		estimator.WithCheck(estimator.ChainChecks(estimator.RequireActionProb, estimator.RequireActions)),
	)
	runner := &eval.Runner{
		Estimator:      est,
		RewardShift:    f.RewardShift,
		Concurrency:    1,
		SplitByEpisode: f.SplitByEpisode,
	}

	batches := make([]eval.Named, len(f.Batches))
	for i := range f.Batches {
		batches[i] = f.Batches[i].ToNamed()
	}

	rep, err := runner.Run(ctx, batches)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	results := make([]ReplayResult, len(rep.Outcomes))
	for i, o := range rep.Outcomes {
		results[i] = ReplayResult{ID: o.BatchID, Estimate: o.Estimate}
		if o.Err != nil {
			results[i].Skipped = true
			results[i].Reason = o.Err.Error()
		}
	}
	return results, nil
}

// #endregion replay

// #region compare
// Compare checks results against expectations, matched by position. Metric
// values match when they differ by at most tol relative to max(1, |want|).
func Compare(results []ReplayResult, expected []FixtureExpected, tol float64) []Diff {
	var diffs []Diff
	if len(results) != len(expected) {
		diffs = append(diffs, Diff{
			Field: "count",
			Want:  fmt.Sprintf("%d", len(expected)),
			Got:   fmt.Sprintf("%d", len(results)),
		})
	}

	n := min(len(results), len(expected))
	for i := 0; i < n; i++ {
		got, want := results[i], expected[i]
		if got.ID != want.ID {
			diffs = append(diffs, Diff{ID: want.ID, Field: "id", Want: want.ID, Got: got.ID})
			continue
		}
		if got.Skipped != want.Skip {
			diffs = append(diffs, Diff{
				ID:    want.ID,
				Field: "skip",
				Want:  fmt.Sprintf("%v", want.Skip),
				Got:   fmt.Sprintf("%v (%s)", got.Skipped, got.Reason),
			})
			continue
		}
		if got.Skipped {
			continue
		}
		checks := []struct {
			field     string
			want, got float64
		}{
			{estimator.MetricVPrev, want.VPrev, got.Estimate.VPrev()},
			{estimator.MetricVStepIS, want.VStepIS, got.Estimate.VStepIS()},
			{estimator.MetricVGainEst, want.VGainEst, got.Estimate.VGainEst()},
		}
		for _, c := range checks {
			if !closeEnough(c.want, c.got, tol) {
				diffs = append(diffs, Diff{
					ID:    want.ID,
					Field: c.field,
					Want:  fmt.Sprintf("%.10g", c.want),
					Got:   fmt.Sprintf("%.10g", c.got),
				})
			}
		}
	}
	return diffs
}

func closeEnough(want, got, tol float64) bool {
	return math.Abs(want-got) <= tol*math.Max(1, math.Abs(want))
}

// #endregion compare
