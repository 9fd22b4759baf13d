package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/qldwater/leaklocker/internal/domain"
	"github.com/qldwater/leaklocker/internal/observability"
)

// Extractor loads all readings from a data source.
type Extractor interface {
	Extract(ctx context.Context) ([]domain.Reading, error)
}

// Annotator enriches readings and applies the anomaly flag.
type Annotator interface {
	Annotate(readings []domain.Reading) []domain.Reading
}

// AlertPublisher delivers a leak alert and its flagged readings downstream.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert domain.AlertSummary, anomalies []domain.Reading) error
}

// Pipeline orchestrates the load-annotate-publish cycle and holds the
// current annotated dataset for concurrent readers.
type Pipeline struct {
	extractor Extractor
	annotator Annotator
	publisher AlertPublisher // nil disables alert publishing
	logger    *slog.Logger
	metrics   *observability.Metrics

	refreshInterval time.Duration
	dataset         atomic.Pointer[Dataset]
	ready           atomic.Bool
}

// New creates a Pipeline with the given stages and observability. Pass a nil
// publisher to disable alert publishing.
func New(e Extractor, a Annotator, pub AlertPublisher, logger *slog.Logger, metrics *observability.Metrics, refreshInterval time.Duration) *Pipeline {
	return &Pipeline{
		extractor:       e,
		annotator:       a,
		publisher:       pub,
		logger:          logger,
		metrics:         metrics,
		refreshInterval: refreshInterval,
	}
}

// CheckReadiness returns nil once the first dataset has been loaded and
// annotated, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no dataset loaded yet")
	}
	return nil
}

// Dataset returns the current annotated dataset, or nil before the first
// successful load. The returned dataset is immutable.
func (p *Pipeline) Dataset() *Dataset {
	return p.dataset.Load()
}

// Run performs the initial load and then refreshes on an interval until the
// context is cancelled. The initial load is fatal on failure: the service
// must not come up serving a partial or empty view of a broken source.
// Later refresh failures keep the last complete dataset and are retried on
// the next tick.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.refresh(ctx); err != nil {
		p.metrics.LoadFailures.Inc()
		return err
	}

	p.logger.Info("pipeline started", "refresh_interval", p.refreshInterval)

	ticker := time.NewTicker(p.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if err := p.refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				p.metrics.LoadFailures.Inc()
				p.metrics.DatasetRefreshes.WithLabelValues("error").Inc()
				p.logger.Error("dataset refresh failed, keeping previous dataset", "error", err)
			}
		}
	}
}

// refresh loads, annotates and publishes one dataset. When the source
// exposes a fingerprint and it matches the current dataset, the whole pass
// is skipped.
func (p *Pipeline) refresh(ctx context.Context) error {
	fp := p.sourceFingerprint()
	if fp != "" {
		if current := p.dataset.Load(); current != nil && current.Fingerprint == fp {
			p.metrics.DatasetRefreshes.WithLabelValues("unchanged").Inc()
			return nil
		}
	}

	loadStart := time.Now()
	readings, err := p.extractor.Extract(ctx)
	if err != nil {
		return err
	}
	p.metrics.LoadDuration.Observe(time.Since(loadStart).Seconds())

	annotateStart := time.Now()
	annotated := p.annotator.Annotate(readings)
	p.metrics.AnnotateDuration.Observe(time.Since(annotateStart).Seconds())

	alert := domain.Summarize(annotated)

	ds := &Dataset{
		Readings:    annotated,
		Alert:       alert,
		Fingerprint: fp,
		LoadedAt:    time.Now(),
	}
	p.dataset.Store(ds)
	p.ready.Store(true)

	p.observeDataset(ds)
	p.metrics.DatasetRefreshes.WithLabelValues("refreshed").Inc()

	if alert.LeakDetected() {
		p.logger.Warn("leak alert",
			"message", alert.Message,
			"anomalies", alert.AnomalyCount,
			"suburbs", alert.Suburbs,
		)
		p.publish(ctx, ds)
	} else {
		p.logger.Info("dataset annotated, no leaks detected", "readings", alert.TotalReadings)
	}

	return nil
}

func (p *Pipeline) sourceFingerprint() string {
	f, ok := p.extractor.(domain.Fingerprintable)
	if !ok {
		return ""
	}
	fp, err := f.Fingerprint()
	if err != nil {
		// Extract will surface the same failure with full context.
		return ""
	}
	return fp
}

func (p *Pipeline) observeDataset(ds *Dataset) {
	p.metrics.DatasetSize.Set(float64(len(ds.Readings)))
	p.metrics.AnomalyCount.Set(float64(ds.Alert.AnomalyCount))
	p.metrics.BaselineGroups.Set(float64(len(domain.ComputeBaselines(ds.Readings))))
	if ds.Alert.LeakDetected() {
		p.metrics.LeakAlertState.Set(1)
	} else {
		p.metrics.LeakAlertState.Set(0)
	}
}

func (p *Pipeline) publish(ctx context.Context, ds *Dataset) {
	if p.publisher == nil {
		return
	}
	anomalies := ds.Anomalies(EverySelection())
	if err := p.publisher.PublishAlert(ctx, ds.Alert, anomalies); err != nil {
		p.logger.Error("alert publish failed", "error", err, "anomalies", len(anomalies))
		return
	}
	p.metrics.AlertsPublished.Inc()
}
