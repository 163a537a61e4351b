package metrics

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/ports"
)

const namespace = "article_enricher"

// Recorder keeps batch metrics in a private Prometheus registry. With a
// textfile path the registry is written out after every batch, for the node
// exporter textfile collector.
type Recorder struct {
	registry      *prometheus.Registry
	documents     *prometheus.CounterVec
	stages        *prometheus.HistogramVec
	batches       prometheus.Counter
	batchDuration prometheus.Gauge
	lastBatch     prometheus.Gauge
	textfile      string
	logger        *slog.Logger
}

var _ ports.Metrics = (*Recorder)(nil)

// NewRecorder registers collectors on a private registry. An empty textfile
// disables flushing.
func NewRecorder(textfile string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents seen by the pipeline, by outcome.",
		}, []string{"outcome"}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent per enrichment stage.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"stage"}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Completed batch runs.",
		}),
		batchDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_batch_duration_seconds",
			Help:      "Wall time of the most recent batch.",
		}),
		lastBatch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_batch_timestamp_seconds",
			Help:      "Unix time the most recent batch finished.",
		}),
		textfile: textfile,
		logger:   logger,
	}
	r.registry.MustRegister(r.documents, r.stages, r.batches, r.batchDuration, r.lastBatch)
	return r
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveDocument counts one document by outcome.
func (r *Recorder) ObserveDocument(outcome string) {
	r.documents.WithLabelValues(outcome).Inc()
}

// ObserveStage records how long a stage took for one document.
func (r *Recorder) ObserveStage(stage domain.Stage, elapsed time.Duration) {
	r.stages.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
}

// ObserveBatch records the batch and flushes the textfile when configured.
func (r *Recorder) ObserveBatch(report domain.BatchReport, elapsed time.Duration) {
	r.batches.Inc()
	r.batchDuration.Set(elapsed.Seconds())
	r.lastBatch.SetToCurrentTime()

	if r.textfile == "" {
		return
	}
	if err := prometheus.WriteToTextfile(r.textfile, r.registry); err != nil {
		r.logger.Warn("write metrics textfile", "path", r.textfile, "run_id", report.RunID, "error", err)
	}
}
