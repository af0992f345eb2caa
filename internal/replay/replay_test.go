package replay

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/ope-controller/internal/estimator"
)

const tolerance = 1e-9

// #region fixture-tests

func replayFixture(t *testing.T, name string) ([]ReplayResult, *Fixture) {
	t.Helper()
	f, err := LoadFixture(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	results, err := Replay(context.Background(), f)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	return results, f
}

// TestFixture_ReferenceCases is the primary regression baseline: if the
// estimator's loop bound or single-step override drifts, this catches it.
func TestFixture_ReferenceCases(t *testing.T) {
	results, f := replayFixture(t, "reference_cases.json")

	for _, d := range Compare(results, f.Expected, tolerance) {
		t.Errorf("%s %s: want %s, got %s", d.ID, d.Field, d.Want, d.Got)
	}
	if !results[2].Skipped {
		t.Error("expected batch without action_prob to be skipped")
	}
}

// TestFixture_DiscountedShifted covers gamma < 1, a non-zero reward shift,
// default probabilities and the V_gain_est floor on a negative V_prev.
func TestFixture_DiscountedShifted(t *testing.T) {
	results, f := replayFixture(t, "discounted_shifted.json")

	for _, d := range Compare(results, f.Expected, tolerance) {
		t.Errorf("%s %s: want %s, got %s", d.ID, d.Field, d.Want, d.Got)
	}
}

func TestReplay_SplitByEpisode(t *testing.T) {
	f := &Fixture{
		Gamma:  1.0,
		Policy: FixturePolicy{Default: 0.5},
		Batches: []FixtureBatch{{
			ID:         "mixed",
			Obs:        []string{"s", "s", "s", "s"},
			Actions:    []int64{0, 0, 0, 0},
			Rewards:    []float64{1, 2, 3, 4},
			ActionProb: []float64{0.5, 0.5, 0.5, 0.5},
			EpisodeIDs: []string{"e1", "e1", "e2", "e2"},
		}},
	}

	whole, err := Replay(context.Background(), f)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(whole) != 1 || whole[0].Estimate.VPrev() != 6 {
		t.Fatalf("expected one estimate over the whole batch, got %+v", whole)
	}

	f.SplitByEpisode = true
	results, err := Replay(context.Background(), f)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	// each episode keeps only its first reward
	expected := []FixtureExpected{
		{ID: "mixed#0", VPrev: 1, VStepIS: 1, VGainEst: 1},
		{ID: "mixed#1", VPrev: 3, VStepIS: 3, VGainEst: 1},
	}
	for _, d := range Compare(results, expected, tolerance) {
		t.Errorf("%s %s: want %s, got %s", d.ID, d.Field, d.Want, d.Got)
	}
}

// TestLoadFixture_NotFound verifies error on missing file.
func TestLoadFixture_NotFound(t *testing.T) {
	_, err := LoadFixture("testdata/nonexistent.json")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

// TestLoadFixture_Malformed verifies error on invalid JSON.
func TestLoadFixture_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("{not valid json}"), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	_, err := LoadFixture(path)
	if err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
}

// #endregion fixture-tests

// #region compare-tests

func estimateOf(vPrev, vStepIS float64) *estimator.Estimate {
	return &estimator.Estimate{Name: estimator.NameIS, Metrics: map[string]float64{
		estimator.MetricVPrev:    vPrev,
		estimator.MetricVStepIS:  vStepIS,
		estimator.MetricVGainEst: vStepIS / vPrev,
	}}
}

func TestCompare_DetectsMetricDrift(t *testing.T) {
	results := []ReplayResult{{ID: "b1", Estimate: estimateOf(3, 2.5)}}
	expected := []FixtureExpected{{ID: "b1", VPrev: 3, VStepIS: 2, VGainEst: 2.0 / 3.0}}

	diffs := Compare(results, expected, tolerance)

	if len(diffs) != 2 {
		t.Fatalf("expected 2 diffs (V_step_IS, V_gain_est), got %d: %+v", len(diffs), diffs)
	}
	if diffs[0].Field != estimator.MetricVStepIS {
		t.Errorf("expected first diff on V_step_IS, got %s", diffs[0].Field)
	}
}

func TestCompare_SkipMismatch(t *testing.T) {
	results := []ReplayResult{{ID: "b1", Skipped: true, Reason: "no action_prob"}}
	expected := []FixtureExpected{{ID: "b1", VPrev: 1}}

	diffs := Compare(results, expected, tolerance)

	if len(diffs) != 1 || diffs[0].Field != "skip" {
		t.Fatalf("expected a single skip diff, got %+v", diffs)
	}
}

func TestCompare_CountAndIDMismatch(t *testing.T) {
	results := []ReplayResult{{ID: "x", Estimate: estimateOf(1, 1)}}
	expected := []FixtureExpected{{ID: "a"}, {ID: "b"}}

	diffs := Compare(results, expected, tolerance)

	if len(diffs) != 2 {
		t.Fatalf("expected count and id diffs, got %+v", diffs)
	}
	if diffs[0].Field != "count" || diffs[1].Field != "id" {
		t.Errorf("unexpected diffs %+v", diffs)
	}
}

func TestCompare_WithinTolerance(t *testing.T) {
	results := []ReplayResult{{ID: "b1", Estimate: estimateOf(1e6, 1e6+1e-4)}}
	expected := []FixtureExpected{{ID: "b1", VPrev: 1e6, VStepIS: 1e6, VGainEst: 1}}

	if diffs := Compare(results, expected, tolerance); len(diffs) != 0 {
		t.Errorf("expected relative tolerance to absorb the difference, got %+v", diffs)
	}
}

// #endregion compare-tests
