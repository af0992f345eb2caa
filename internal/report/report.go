package report

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/danielpatrickdp/ope-controller/internal/eval"
)

// Row is one estimated batch on the chart.
type Row struct {
	BatchID  string
	VPrev    float64
	VStepIS  float64
	VGainEst float64
}

// RowsFromOutcomes keeps the estimated outcomes, in order.
func RowsFromOutcomes(outcomes []eval.Outcome) []Row {
	rows := make([]Row, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Estimate == nil {
			continue
		}
		rows = append(rows, Row{
			BatchID:  o.BatchID,
			VPrev:    o.Estimate.VPrev(),
			VStepIS:  o.Estimate.VStepIS(),
			VGainEst: o.Estimate.VGainEst(),
		})
	}
	return rows
}

// WriteHTML renders the behavior vs. target return per batch and the
// per-batch gain as an HTML page.
func WriteHTML(w io.Writer, title string, rows []Row) error {
	batches := make([]string, len(rows))
	prev := make([]opts.LineData, len(rows))
	target := make([]opts.LineData, len(rows))
	gain := make([]opts.BarData, len(rows))
	for i, r := range rows {
		batches[i] = r.BatchID
		prev[i] = opts.LineData{Value: r.VPrev}
		target[i] = opts.LineData{Value: r.VStepIS}
		gain[i] = opts.BarData{Value: r.VGainEst}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: "discounted return per batch"}),
		charts.WithInitializationOpts(opts.Initialization{Theme: "shine"}),
	)
	line.SetXAxis(batches).
		AddSeries("V_prev", prev).
		AddSeries("V_step_IS", target)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "V_gain_est"}),
	)
	bar.SetXAxis(batches).AddSeries("V_gain_est", gain)

	page := components.NewPage()
	page.AddCharts(line, bar)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// WriteFile renders the report to path.
func WriteFile(path, title string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	if err := WriteHTML(f, title, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
