package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/danielpatrickdp/ope-controller/internal/config"
	"github.com/danielpatrickdp/ope-controller/internal/estimator"
	"github.com/danielpatrickdp/ope-controller/internal/eval"
	"github.com/danielpatrickdp/ope-controller/internal/metrics"
	"github.com/danielpatrickdp/ope-controller/internal/policy"
	"github.com/danielpatrickdp/ope-controller/internal/report"
	"github.com/danielpatrickdp/ope-controller/internal/store"
)

// #region main
func main() {
	cfgPath := flag.String("config", "", "path to YAML config (defaults apply when empty)")
	limit := flag.Int("limit", 0, "evaluate at most N stored batches (0 = all)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		log.Fatalf("env: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	passed, err := run(ctx, cfg, *limit)
	if err != nil {
		log.Fatalf("evaluation failed: %v", err)
	}
	if !passed {
		os.Exit(1)
	}
}

// #endregion main

// #region run
func run(ctx context.Context, cfg config.Config, limit int) (bool, error) {
	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		return false, fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	target, closePolicy, err := buildPolicy(cfg.Policy)
	if err != nil {
		return false, err
	}
	defer closePolicy()

	records, err := st.ListBatches(limit)
	if err != nil {
		return false, err
	}
	if len(records) == 0 {
		return false, fmt.Errorf("no batches in %s", cfg.DBPath)
	}
	batches := make([]eval.Named, 0, len(records))
	for _, rec := range records {
		b, err := st.GetBatch(rec.BatchID)
		if err != nil {
			return false, err
		}
		batches = append(batches, eval.Named{ID: rec.BatchID, Batch: b})
	}

	runRec, err := st.CreateRun(estimator.NameIS, cfg.Gamma, cfg.RewardShift)
	if err != nil {
		return false, err
	}
	log.Printf("[EVAL] run %s: %d batches, gamma=%.4f reward_shift=%.4f policy=%s",
		runRec.RunID, len(batches), cfg.Gamma, cfg.RewardShift, cfg.Policy.Type)

	collectors := metrics.New()
	runner := &eval.Runner{
		Estimator:      estimator.NewImportanceSampling(target, cfg.Gamma),
		RewardShift:    cfg.RewardShift,
		Concurrency:    cfg.Concurrency,
		SplitByEpisode: cfg.SplitByEpisode,
		Acceptance: eval.AcceptanceConfig{
			MinGain:    cfg.Acceptance.MinGain,
			MinBatches: cfg.Acceptance.MinBatches,
		},
		Sinks: []eval.Sink{
			eval.StoreSink{DB: st.DB(), RunID: runRec.RunID},
			collectors,
		},
	}

	rep, err := runner.Run(ctx, batches)
	if err != nil {
		return false, err
	}

	summaryJSON, err := json.Marshal(rep.Summary)
	if err != nil {
		return false, fmt.Errorf("marshal summary: %w", err)
	}
	if err := st.FinishRun(runRec.RunID, string(summaryJSON)); err != nil {
		return false, err
	}

	if cfg.ReportPath != "" {
		if err := report.WriteFile(cfg.ReportPath, "run "+runRec.RunID, report.RowsFromOutcomes(rep.Outcomes)); err != nil {
			log.Printf("report error: %v", err)
		}
	}
	if cfg.MetricsTextfile != "" {
		if err := collectors.WriteTextfile(cfg.MetricsTextfile); err != nil {
			log.Printf("metrics error: %v", err)
		}
	}

	printSummary(runRec.RunID, rep)
	return rep.Acceptance.Passed, nil
}

// buildPolicy returns the configured target policy and its cleanup func.
func buildPolicy(pc config.PolicyConfig) (estimator.TargetPolicy, func(), error) {
	switch pc.Type {
	case "grpc":
		client, err := policy.NewClient(pc.Addr, pc.Timeout)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to policy service at %s: %w", pc.Addr, err)
		}
		return client, func() { client.Close() }, nil
	case "tabular":
		table, err := policy.LoadTabular(pc.TablePath)
		if err != nil {
			return nil, nil, err
		}
		return table, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported policy type: %s", pc.Type)
	}
}

// #endregion run

// #region output
func printSummary(runID string, rep eval.Report) {
	s := rep.Summary
	fmt.Printf("Run %s (%s)\n", runID, s.Estimator)
	fmt.Printf("  batches=%d estimated=%d skipped=%d\n", s.Batches, s.Estimated, s.Skipped)
	fmt.Printf("  mean V_prev=%.6f  V_step_IS=%.6f  V_gain_est=%.6f\n",
		s.Means[estimator.MetricVPrev], s.Means[estimator.MetricVStepIS], s.Means[estimator.MetricVGainEst])
	for _, m := range rep.Acceptance.Metrics {
		status := "OK"
		if !m.Pass {
			status = "FAIL"
		}
		fmt.Printf("  %-18s %12.6f  %s\n", m.Name, m.Value, status)
	}
	fmt.Printf("Result: %s\n", rep.Acceptance.Reason)
}

// #endregion output
