package policy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/ope-controller/internal/batch"
)

// #region tabular-tests
func TestTabular_LookupAndDefault(t *testing.T) {
	p := &Tabular{
		Probs: map[string]map[int64]float64{
			"s0": {0: 0.7, 1: 0.3},
			"s1": {1: 0.9},
		},
		Default: 0.05,
	}
	b := batch.SampleBatch{
		Rewards: []float64{0, 0, 0, 0},
		Obs:     []string{"s0", "s0", "s1", "s9"},
		Actions: []int64{0, 1, 0, 1},
	}

	probs, err := p.ActionProb(context.Background(), b)
	if err != nil {
		t.Fatalf("ActionProb: %v", err)
	}
	want := []float64{0.7, 0.3, 0.05, 0.05}
	for i := range want {
		if probs[i] != want[i] {
			t.Errorf("step %d: expected %v, got %v", i, want[i], probs[i])
		}
	}
}

func TestTabular_MissingColumns(t *testing.T) {
	p := &Tabular{Default: 0.5}
	_, err := p.ActionProb(context.Background(), batch.SampleBatch{Rewards: []float64{1}})
	if err == nil {
		t.Fatal("expected error without obs/actions")
	}
}

func TestLoadTabular(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "table.json")
	data := `{"default": 0.1, "probs": {"s0": {"0": 0.6, "2": 0.4}}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write table: %v", err)
	}

	p, err := LoadTabular(path)
	if err != nil {
		t.Fatalf("LoadTabular: %v", err)
	}
	if p.Default != 0.1 {
		t.Errorf("expected default 0.1, got %v", p.Default)
	}
	if p.lookup("s0", 2) != 0.4 {
		t.Errorf("expected 0.4 for (s0, 2), got %v", p.lookup("s0", 2))
	}
	if p.lookup("s0", 1) != 0.1 {
		t.Errorf("expected default for (s0, 1), got %v", p.lookup("s0", 1))
	}
}

func TestLoadTabular_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte(`{"probs": {"s0": {"zero": 1}}}`), 0644); err != nil {
		t.Fatalf("write table: %v", err)
	}
	if _, err := LoadTabular(path); err == nil {
		t.Fatal("expected error for non-integer action key")
	}
}

// #endregion tabular-tests

// #region func-tests
func TestFunc_Adapter(t *testing.T) {
	boom := errors.New("boom")
	f := Func(func(_ context.Context, b batch.SampleBatch) ([]float64, error) {
		if b.Count() == 0 {
			return nil, boom
		}
		return []float64{1}, nil
	})

	if _, err := f.ActionProb(context.Background(), batch.SampleBatch{}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	probs, err := f.ActionProb(context.Background(), batch.SampleBatch{Rewards: []float64{3}})
	if err != nil || len(probs) != 1 {
		t.Fatalf("unexpected result %v, %v", probs, err)
	}
}

// #endregion func-tests
