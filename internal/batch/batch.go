package batch

import (
	"fmt"
	"math"
)

// #region validate
// Validate enforces the upstream batch contract: at least one step, every
// present column sized to Count, and behavior probabilities in (0, 1].
func (b SampleBatch) Validate() error {
	n := b.Count()
	if n < 1 {
		return &ValidationError{Column: "rewards", Step: -1, Reason: "batch has no steps"}
	}

	lengths := []struct {
		name    string
		present bool
		got     int
	}{
		{"action_prob", b.ActionProb != nil, len(b.ActionProb)},
		{"actions", b.Actions != nil, len(b.Actions)},
		{"obs", b.Obs != nil, len(b.Obs)},
		{"episode_ids", b.EpisodeIDs != nil, len(b.EpisodeIDs)},
	}
	for _, l := range lengths {
		if l.present && l.got != n {
			return &ValidationError{Column: l.name, Step: -1, Reason: lengthReason(l.got, n)}
		}
	}

	for t, r := range b.Rewards {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return &ValidationError{Column: "rewards", Step: t, Reason: "reward is not finite"}
		}
	}
	for t, p := range b.ActionProb {
		if math.IsNaN(p) || p <= 0 || p > 1 {
			return &ValidationError{Column: "action_prob", Step: t, Reason: "probability must be in (0, 1]"}
		}
	}
	return nil
}

func lengthReason(got, want int) string {
	return fmt.Sprintf("length %d does not match step count %d", got, want)
}

// #endregion validate

// #region slice
// Slice returns the steps in [from, to) as a new batch sharing no backing
// arrays with b.
func (b SampleBatch) Slice(from, to int) SampleBatch {
	out := SampleBatch{
		Rewards: append([]float64(nil), b.Rewards[from:to]...),
	}
	if b.ActionProb != nil {
		out.ActionProb = append([]float64(nil), b.ActionProb[from:to]...)
	}
	if b.Actions != nil {
		out.Actions = append([]int64(nil), b.Actions[from:to]...)
	}
	if b.Obs != nil {
		out.Obs = append([]string(nil), b.Obs[from:to]...)
	}
	if b.EpisodeIDs != nil {
		out.EpisodeIDs = append([]string(nil), b.EpisodeIDs[from:to]...)
	}
	return out
}

// #endregion slice

// #region split-by-episode
// SplitByEpisode splits the batch into contiguous runs of equal episode ID.
// A batch without episode IDs is returned whole.
func (b SampleBatch) SplitByEpisode() []SampleBatch {
	n := b.Count()
	if n == 0 {
		return nil
	}
	if b.EpisodeIDs == nil {
		return []SampleBatch{b}
	}

	var episodes []SampleBatch
	start := 0
	for t := 1; t <= n; t++ {
		if t == n || b.EpisodeIDs[t] != b.EpisodeIDs[start] {
			episodes = append(episodes, b.Slice(start, t))
			start = t
		}
	}
	return episodes
}

// #endregion split-by-episode
