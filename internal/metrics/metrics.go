package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "shipconf"

// Recorder collects the gauges describing one batch run and writes them as a
// node_exporter textfile.
type Recorder struct {
	registry     *prometheus.Registry
	files        *prometheus.GaugeVec
	duration     prometheus.Gauge
	lastSuccess  prometheus.Gauge
	lastFinished prometheus.Gauge
	textfilePath string
}

// New registers the run metrics on a private registry. An empty textfilePath
// keeps the metrics in memory only.
func New(textfilePath string) (*Recorder, error) {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_files",
			Help:      "Documents processed by the last run, by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if the last run finished without a batch-level error.",
		}),
		lastFinished: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		textfilePath: strings.TrimSpace(textfilePath),
	}
	for _, c := range []prometheus.Collector{r.files, r.duration, r.lastSuccess, r.lastFinished} {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	// Both outcomes are exported even when a run saw none of one kind.
	r.files.WithLabelValues("succeeded")
	r.files.WithLabelValues("failed")
	return r, nil
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// FileProcessed counts one document outcome.
func (r *Recorder) FileProcessed(outcome string) {
	if r == nil {
		return
	}
	r.files.WithLabelValues(outcome).Inc()
}

// RunFinished records the end of a run.
func (r *Recorder) RunFinished(duration time.Duration, success bool, finishedAt time.Time) {
	if r == nil {
		return
	}
	r.duration.Set(duration.Seconds())
	if success {
		r.lastSuccess.Set(1)
	} else {
		r.lastSuccess.Set(0)
	}
	r.lastFinished.Set(float64(finishedAt.Unix()))
}

// Flush writes the textfile when one is configured.
func (r *Recorder) Flush() error {
	if r == nil || r.textfilePath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.textfilePath), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(r.textfilePath, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
