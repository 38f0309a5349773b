package metrics

import (
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "sketch"

// Recorder holds the session's collectors on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	invocations    *prometheus.CounterVec
	budgetOverruns prometheus.Counter
	frames         prometheus.Counter
	inference      prometheus.Histogram
	frameDuration  prometheus.Histogram
	variation      prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_total",
			Help:      "Model invocations by outcome.",
		}, []string{"outcome"}),
		budgetOverruns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "latency_budget_overruns_total",
			Help:      "Continuous invocations slower than the latency budget.",
		}),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames processed by the loop.",
		}),
		inference: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Duration of one forward pass.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
		frameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_duration_seconds",
			Help:      "Duration of one frame, inference included.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
		variation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "result_variation_psnr_db",
			Help:      "PSNR between the two most recent results.",
		}),
	}
	r.registry.MustRegister(r.invocations, r.budgetOverruns, r.frames, r.inference, r.frameDuration, r.variation)
	return r
}

// ObserveInference records one invocation and its outcome.
func (r *Recorder) ObserveInference(d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.invocations.WithLabelValues(outcome).Inc()
	if err == nil {
		r.inference.Observe(d.Seconds())
	}
}

func (r *Recorder) ObserveFrame(d time.Duration) {
	r.frames.Inc()
	r.frameDuration.Observe(d.Seconds())
}

func (r *Recorder) BudgetOverrun() { r.budgetOverruns.Inc() }

// ObserveVariation stores the PSNR between consecutive results. Identical
// results are recorded at the largest finite value.
func (r *Recorder) ObserveVariation(psnr float64) {
	if math.IsInf(psnr, 1) {
		psnr = math.MaxFloat64
	}
	r.variation.Set(psnr)
}

// Summary flattens the registry into name -> value. Counters and gauges map to
// their value (labelled series as name{label=value}); histograms contribute
// name_count and name_sum.
func (r *Recorder) Summary() (map[string]float64, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := seriesName(mf.GetName(), m.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				out[name] = m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				out[name] = m.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				out[name+"_count"] = float64(m.GetHistogram().GetSampleCount())
				out[name+"_sum"] = m.GetHistogram().GetSampleSum()
			}
		}
	}
	return out, nil
}

func seriesName(name string, labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return name
	}
	s := name + "{"
	for i, l := range labels {
		if i > 0 {
			s += ","
		}
		s += l.GetName() + "=" + l.GetValue()
	}
	return s + "}"
}
