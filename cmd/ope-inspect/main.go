package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/ope-controller/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to ope.db")
	last := flag.Int("last", 20, "show N most recent runs")
	runID := flag.String("run", "", "show per-batch estimates of one run")
	batches := flag.Bool("batches", false, "list stored batches instead of runs")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: ope-inspect --db path/to/ope.db [--last N] [--run id] [--batches] [--json]")
		os.Exit(2)
	}

	st, err := store.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	switch {
	case *runID != "":
		err = runDetailMode(st, *runID, *jsonOut)
	case *batches:
		err = runBatchMode(st, *last, *jsonOut)
	default:
		err = runListMode(st, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	RunID       string          `json:"run_id"`
	Estimator   string          `json:"estimator"`
	Gamma       float64         `json:"gamma"`
	RewardShift float64         `json:"reward_shift"`
	CreatedAt   string          `json:"created_at"`
	Summary     json.RawMessage `json:"summary,omitempty"`
}

func runListMode(st *store.Store, last int, jsonOut bool) error {
	runs, err := st.ListRuns(last)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "no runs found")
		return nil
	}

	rows := make([]listRow, len(runs))
	for i, r := range runs {
		rows[i] = listRow{
			RunID:       r.RunID,
			Estimator:   r.Estimator,
			Gamma:       r.Gamma,
			RewardShift: r.RewardShift,
			CreatedAt:   r.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if r.SummaryJSON != "" {
			rows[i].Summary = json.RawMessage(r.SummaryJSON)
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-38s %-6s %-8s %-8s %-20s %s\n", "RUN", "EST", "GAMMA", "SHIFT", "CREATED", "STATUS")
	for _, r := range rows {
		status := "finished"
		if r.Summary == nil {
			status = "incomplete"
		}
		fmt.Printf("%-38s %-6s %-8.4f %-8.4f %-20s %s\n",
			r.RunID, r.Estimator, r.Gamma, r.RewardShift, r.CreatedAt, status)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailRow struct {
	BatchID  string   `json:"batch_id"`
	VPrev    *float64 `json:"v_prev,omitempty"`
	VStepIS  *float64 `json:"v_step_is,omitempty"`
	VGainEst *float64 `json:"v_gain_est,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func runDetailMode(st *store.Store, runID string, jsonOut bool) error {
	run, err := st.GetRun(runID)
	if err != nil {
		return err
	}
	estimates, err := st.RunEstimates(runID)
	if err != nil {
		return err
	}

	rows := make([]detailRow, len(estimates))
	for i, e := range estimates {
		rows[i] = detailRow{BatchID: e.BatchID, VPrev: e.VPrev, VStepIS: e.VStepIS, VGainEst: e.VGainEst, Error: e.Error}
	}

	if jsonOut {
		out := struct {
			Run       listRow     `json:"run"`
			Estimates []detailRow `json:"estimates"`
		}{
			Run: listRow{
				RunID:       run.RunID,
				Estimator:   run.Estimator,
				Gamma:       run.Gamma,
				RewardShift: run.RewardShift,
				CreatedAt:   run.CreatedAt.Format("2006-01-02 15:04:05"),
			},
			Estimates: rows,
		}
		if run.SummaryJSON != "" {
			out.Run.Summary = json.RawMessage(run.SummaryJSON)
		}
		return printJSON(out)
	}

	fmt.Printf("Run:       %s\n", run.RunID)
	fmt.Printf("Estimator: %s\n", run.Estimator)
	fmt.Printf("Gamma:     %.4f\n", run.Gamma)
	fmt.Printf("Shift:     %.4f\n", run.RewardShift)
	fmt.Printf("Created:   %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
	if run.SummaryJSON != "" {
		fmt.Printf("Summary:   %s\n", run.SummaryJSON)
	}
	fmt.Println()

	fmt.Printf("%-42s %-14s %-14s %-14s\n", "BATCH", "V_prev", "V_step_IS", "V_gain_est")
	for _, r := range rows {
		if r.Error != "" {
			fmt.Printf("%-42s skipped: %s\n", r.BatchID, r.Error)
			continue
		}
		fmt.Printf("%-42s %-14s %-14s %-14s\n", r.BatchID, fmtFloat(r.VPrev), fmtFloat(r.VStepIS), fmtFloat(r.VGainEst))
	}
	return nil
}

// #endregion detail-mode

// #region batch-mode

func runBatchMode(st *store.Store, last int, jsonOut bool) error {
	records, err := st.ListBatches(last)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(records)
	}
	fmt.Printf("%-38s %-6s %-16s %-16s %s\n", "BATCH", "STEPS", "EPISODE", "SOURCE", "CREATED")
	for _, r := range records {
		fmt.Printf("%-38s %-6d %-16s %-16s %s\n",
			r.BatchID, r.StepCount, orDash(r.EpisodeID), orDash(r.Source), r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// #endregion batch-mode

// #region helpers

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fmtFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.6f", *v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// #endregion helpers
