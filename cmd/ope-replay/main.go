package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/ope-controller/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON")
	tol := flag.Float64("tol", 1e-9, "relative tolerance for metric comparison")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: ope-replay --fixture path/to/fixture.json [--tol 1e-9]")
		os.Exit(2)
	}

	os.Exit(runFixtureMode(*fixturePath, *tol))
}

// #endregion main

// #region output

func runFixtureMode(path string, tol float64) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	results, err := replay.Replay(context.Background(), f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}

	fmt.Printf("%-20s| %-14s| %-14s| %-14s\n", "Batch", "V_prev", "V_step_IS", "V_gain_est")
	fmt.Printf("%-20s+%-15s+%-15s+%s\n",
		"--------------------", "---------------", "---------------", "---------------")
	for _, r := range results {
		if r.Skipped {
			fmt.Printf("%-20s| skipped: %s\n", r.ID, r.Reason)
			continue
		}
		fmt.Printf("%-20s| %-14.6f| %-14.6f| %-14.6f\n",
			r.ID, r.Estimate.VPrev(), r.Estimate.VStepIS(), r.Estimate.VGainEst())
	}

	diffs := replay.Compare(results, f.Expected, tol)
	for _, d := range diffs {
		fmt.Printf("DIFF %s %s: want %s, got %s\n", d.ID, d.Field, d.Want, d.Got)
	}
	fmt.Printf("\nSummary: %d batches, %d diverge\n", len(results), len(diffs))

	if len(diffs) > 0 {
		return 1
	}
	return 0
}

// #endregion output
