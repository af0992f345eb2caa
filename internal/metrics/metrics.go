package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danielpatrickdp/ope-controller/internal/eval"
)

// #region collectors
// Collectors tracks estimator outcomes on a private registry so a run can be
// exported as a node_exporter textfile.
type Collectors struct {
	registry      *prometheus.Registry
	estimates     *prometheus.CounterVec
	preconditions prometheus.Counter
	vPrev         prometheus.Gauge
	vStepIS       prometheus.Gauge
	vGainEst      prometheus.Gauge
}

// New registers the off-policy evaluation collectors.
func New() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		estimates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ope",
			Name:      "estimates_total",
			Help:      "Estimates computed, by estimator.",
		}, []string{"estimator"}),
		preconditions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ope",
			Name:      "precondition_failures_total",
			Help:      "Batches skipped because they were not eligible for estimation.",
		}),
		vPrev: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ope",
			Name:      "last_v_prev",
			Help:      "V_prev of the most recently recorded estimate.",
		}),
		vStepIS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ope",
			Name:      "last_v_step_is",
			Help:      "V_step_IS of the most recently recorded estimate.",
		}),
		vGainEst: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ope",
			Name:      "last_v_gain_est",
			Help:      "V_gain_est of the most recently recorded estimate.",
		}),
	}
	c.registry.MustRegister(c.estimates, c.preconditions, c.vPrev, c.vStepIS, c.vGainEst)
	return c
}

// Registry exposes the underlying registry.
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}

// #endregion collectors

// #region record
// Record implements eval.Sink.
func (c *Collectors) Record(o eval.Outcome) error {
	if o.Estimate == nil {
		c.preconditions.Inc()
		return nil
	}
	c.estimates.WithLabelValues(o.Estimate.Name).Inc()
	c.vPrev.Set(o.Estimate.VPrev())
	c.vStepIS.Set(o.Estimate.VStepIS())
	c.vGainEst.Set(o.Estimate.VGainEst())
	return nil
}

// WriteTextfile writes the current values in the text exposition format.
func (c *Collectors) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// #endregion record
