package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/ope-controller/internal/batch"
	"github.com/danielpatrickdp/ope-controller/internal/estimator"
	"github.com/danielpatrickdp/ope-controller/internal/logging"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func fullBatch() batch.SampleBatch {
	return batch.SampleBatch{
		Rewards:    []float64{1.0, -0.5, 2.25},
		ActionProb: []float64{0.5, 0.25, 1.0},
		Actions:    []int64{0, 3, 1},
		Obs:        []string{"s0", "s1", "s2"},
		EpisodeIDs: []string{"ep-1", "ep-1", "ep-2"},
	}
}

// #region batch-tests
func TestPutAndGetBatch(t *testing.T) {
	s := tempDB(t)
	in := fullBatch()

	id, err := s.PutBatch(in, "unit")
	if err != nil {
		t.Fatalf("PutBatch: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty batch ID")
	}

	out, err := s.GetBatch(id)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if out.Count() != 3 {
		t.Fatalf("expected 3 steps, got %d", out.Count())
	}
	for i := range in.Rewards {
		if out.Rewards[i] != in.Rewards[i] || out.ActionProb[i] != in.ActionProb[i] ||
			out.Actions[i] != in.Actions[i] || out.Obs[i] != in.Obs[i] || out.EpisodeIDs[i] != in.EpisodeIDs[i] {
			t.Errorf("step %d differs after round trip", i)
		}
	}
}

func TestGetBatch_AbsentColumnsStayNil(t *testing.T) {
	s := tempDB(t)
	id, err := s.PutBatch(batch.SampleBatch{Rewards: []float64{1, 2}}, "")
	if err != nil {
		t.Fatalf("PutBatch: %v", err)
	}

	out, err := s.GetBatch(id)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if out.HasActionProb() {
		t.Error("expected no action_prob column")
	}
	if out.Obs != nil || out.Actions != nil || out.EpisodeIDs != nil {
		t.Error("expected optional columns to stay nil")
	}
}

func TestPutBatch_RejectsInvalid(t *testing.T) {
	s := tempDB(t)
	_, err := s.PutBatch(batch.SampleBatch{Rewards: []float64{1}, ActionProb: []float64{0}}, "")

	var ve *batch.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	batches, _ := s.ListBatches(0)
	if len(batches) != 0 {
		t.Errorf("expected nothing stored, got %d batches", len(batches))
	}
}

func TestGetBatch_NotFound(t *testing.T) {
	s := tempDB(t)
	if _, err := s.GetBatch("missing"); err == nil {
		t.Fatal("expected error for missing batch")
	}
}

func TestListBatches(t *testing.T) {
	s := tempDB(t)
	first, _ := s.PutBatch(fullBatch(), "a")
	s.PutBatch(fullBatch(), "b")
	s.PutBatch(fullBatch(), "c")

	all, err := s.ListBatches(0)
	if err != nil {
		t.Fatalf("ListBatches: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(all))
	}
	if all[0].BatchID != first {
		t.Errorf("expected oldest batch first")
	}
	if all[0].Source != "a" || all[0].EpisodeID != "ep-1" || all[0].StepCount != 3 {
		t.Errorf("unexpected metadata %+v", all[0])
	}

	two, _ := s.ListBatches(2)
	if len(two) != 2 {
		t.Errorf("expected 2 batches with limit, got %d", len(two))
	}
}

func TestListBatches_InsertionOrder(t *testing.T) {
	s := tempDB(t)
	first, _ := s.PutBatch(fullBatch(), "a")
	second, _ := s.PutBatch(fullBatch(), "b")

	// a whole-second timestamp sorts after a fractional one as RFC3339Nano text
	s.DB().Exec(`UPDATE batches SET created_at = '2026-01-01T00:00:00Z' WHERE batch_id = ?`, first)
	s.DB().Exec(`UPDATE batches SET created_at = '2026-01-01T00:00:00.5Z' WHERE batch_id = ?`, second)

	all, err := s.ListBatches(0)
	if err != nil {
		t.Fatalf("ListBatches: %v", err)
	}
	if len(all) != 2 || all[0].BatchID != first || all[1].BatchID != second {
		t.Errorf("expected insertion order %s, %s", first, second)
	}
}

// #endregion batch-tests

// #region run-tests
func TestRunLifecycle(t *testing.T) {
	s := tempDB(t)

	run, err := s.CreateRun(estimator.NameIS, 0.99, 0.5)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	err = logging.LogEstimate(s.DB(), logging.EstimateEntry{
		RunID:     run.RunID,
		BatchID:   "b1",
		Estimator: estimator.NameIS,
		Metrics: map[string]float64{
			estimator.MetricVPrev:    3,
			estimator.MetricVStepIS:  2,
			estimator.MetricVGainEst: 0.5,
		},
	})
	if err != nil {
		t.Fatalf("LogEstimate: %v", err)
	}
	err = logging.LogEstimate(s.DB(), logging.EstimateEntry{
		RunID: run.RunID, BatchID: "b2", Estimator: estimator.NameIS, Error: "skipped",
	})
	if err != nil {
		t.Fatalf("LogEstimate: %v", err)
	}

	if err := s.FinishRun(run.RunID, `{"batches":2}`); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	got, err := s.GetRun(run.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Gamma != 0.99 || got.RewardShift != 0.5 || got.SummaryJSON != `{"batches":2}` {
		t.Errorf("unexpected run %+v", got)
	}

	rows, err := s.RunEstimates(run.RunID)
	if err != nil {
		t.Fatalf("RunEstimates: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].VStepIS == nil || *rows[0].VStepIS != 2 {
		t.Errorf("expected V_step_IS=2 on first row")
	}
	if rows[1].VPrev != nil || rows[1].Error != "skipped" {
		t.Errorf("expected skipped second row, got %+v", rows[1])
	}

	runs, err := s.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("expected 1 run, got %d", len(runs))
	}
}

func TestListRuns_AllAndNewestFirst(t *testing.T) {
	s := tempDB(t)
	var ids []string
	for i := 0; i < 3; i++ {
		run, err := s.CreateRun(estimator.NameIS, 1.0, 0)
		if err != nil {
			t.Fatalf("CreateRun: %v", err)
		}
		ids = append(ids, run.RunID)
	}
	s.DB().Exec(`UPDATE runs SET created_at = '2026-01-01T00:00:00.12Z' WHERE run_id = ?`, ids[1])
	s.DB().Exec(`UPDATE runs SET created_at = '2026-01-01T00:00:00.123Z' WHERE run_id = ?`, ids[2])

	for _, limit := range []int{0, -1} {
		runs, err := s.ListRuns(limit)
		if err != nil {
			t.Fatalf("ListRuns(%d): %v", limit, err)
		}
		if len(runs) != 3 {
			t.Fatalf("ListRuns(%d): expected all 3 runs, got %d", limit, len(runs))
		}
		if runs[0].RunID != ids[2] || runs[2].RunID != ids[0] {
			t.Errorf("ListRuns(%d): expected newest first", limit)
		}
	}

	two, _ := s.ListRuns(2)
	if len(two) != 2 {
		t.Errorf("expected 2 runs with limit, got %d", len(two))
	}
}

func TestFinishRun_Unknown(t *testing.T) {
	s := tempDB(t)
	if err := s.FinishRun("nope", "{}"); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

// #endregion run-tests

func TestNewStoreInvalidPath(t *testing.T) {
	_, err := NewStore(filepath.Join(string(os.PathSeparator), "nonexistent", "deep", "path", "test.db"))
	if err == nil {
		t.Fatal("expected error for invalid path")
	}
}
