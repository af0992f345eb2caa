package eval

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/ope-controller/internal/estimator"
)

// #region runner
// Runner estimates many batches with one shared estimator.
type Runner struct {
	Estimator      Estimator
	RewardShift    float64
	Concurrency    int
	SplitByEpisode bool
	Acceptance     AcceptanceConfig
	Sinks          []Sink
}

// Run estimates every batch, records outcomes to the sinks and summarizes.
// Batches failing the estimator precondition are skipped with a warning; any
// other estimator error aborts the run before anything is recorded.
func (r *Runner) Run(ctx context.Context, batches []Named) (Report, error) {
	items := batches
	if r.SplitByEpisode {
		items = splitEpisodes(batches)
	}

	limit := r.Concurrency
	if limit <= 0 {
		limit = 1
	}

	outcomes := make([]Outcome, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, it := range items {
		i, it := i, it
		g.Go(func() error {
			est, err := r.Estimator.Estimate(gctx, it.Batch, r.RewardShift)
			if err != nil {
				if errors.Is(err, estimator.ErrEstimationPrecondition) {
					log.Printf("[EVAL] skip %s: %v", it.ID, err)
					outcomes[i] = Outcome{BatchID: it.ID, Err: err}
					return nil
				}
				return fmt.Errorf("estimate %s: %w", it.ID, err)
			}
			outcomes[i] = Outcome{BatchID: it.ID, Estimate: &est}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	for _, o := range outcomes {
		for _, s := range r.Sinks {
			if err := s.Record(o); err != nil {
				return Report{}, fmt.Errorf("record %s: %w", o.BatchID, err)
			}
		}
	}

	summary := Summarize(outcomes)
	acceptance := r.Acceptance.Check(summary)
	log.Printf("[EVAL] run: batches=%d estimated=%d skipped=%d gain=%.4f → %s",
		summary.Batches, summary.Estimated, summary.Skipped,
		summary.Means[estimator.MetricVGainEst], acceptance.Reason)

	return Report{
		Outcomes:   outcomes,
		Summary:    summary,
		Acceptance: acceptance,
	}, nil
}

// splitEpisodes expands each batch into its episodes. Multi-episode batches
// get IDs of the form "<id>#<k>".
func splitEpisodes(batches []Named) []Named {
	var out []Named
	for _, nb := range batches {
		eps := nb.Batch.SplitByEpisode()
		if len(eps) <= 1 {
			out = append(out, nb)
			continue
		}
		for k, ep := range eps {
			out = append(out, Named{ID: fmt.Sprintf("%s#%d", nb.ID, k), Batch: ep})
		}
	}
	return out
}

// #endregion runner

// #region summarize
// Summarize averages each metric over the estimated outcomes.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{
		Estimator: estimator.NameIS,
		Batches:   len(outcomes),
		Means:     map[string]float64{},
	}
	sums := map[string]float64{}
	for _, o := range outcomes {
		if o.Estimate == nil {
			s.Skipped++
			continue
		}
		s.Estimated++
		s.Estimator = o.Estimate.Name
		for k, v := range o.Estimate.Metrics {
			sums[k] += v
		}
	}
	if s.Estimated > 0 {
		for k, v := range sums {
			s.Means[k] = v / float64(s.Estimated)
		}
	}
	return s
}

// #endregion summarize

// #region acceptance
// Check compares a run summary with the thresholds. The skipped-batch metric
// is informational and never fails the check.
func (c AcceptanceConfig) Check(s Summary) EvalResult {
	var metrics []EvalMetric
	passed := true
	var failReasons []string

	// 1. Enough estimated batches
	countPass := s.Estimated >= c.MinBatches
	metrics = append(metrics, EvalMetric{
		Name:  "estimated_batches",
		Value: float64(s.Estimated),
		Pass:  countPass,
	})
	if !countPass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("%d estimated batches below minimum %d", s.Estimated, c.MinBatches))
	}

	// 2. Mean gain
	gain, ok := s.Means[estimator.MetricVGainEst]
	finite := !math.IsInf(gain, 0) && !math.IsNaN(gain)
	gainPass := ok && finite && gain >= c.MinGain
	metrics = append(metrics, EvalMetric{
		Name:  "mean_gain",
		Value: gain,
		Pass:  gainPass,
	})
	switch {
	case ok && !finite:
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("mean gain %v is not finite", gain))
	case !gainPass:
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("mean gain %.4f below %.4f", gain, c.MinGain))
	}

	// 3. Skipped batches: informational
	metrics = append(metrics, EvalMetric{
		Name:  "skipped_batches",
		Value: float64(s.Skipped),
		Pass:  s.Skipped == 0,
	})

	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return EvalResult{
		Passed:  passed,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion acceptance
