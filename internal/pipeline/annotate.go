package pipeline

import (
	"log/slog"

	"github.com/qldwater/leaklocker/internal/domain"
)

// DetectorAnnotator annotates readings with a single detection policy.
type DetectorAnnotator struct {
	detector domain.Detector
	logger   *slog.Logger
}

// NewAnnotator wraps a detector as the pipeline's annotation stage.
func NewAnnotator(det domain.Detector, logger *slog.Logger) *DetectorAnnotator {
	return &DetectorAnnotator{detector: det, logger: logger}
}

// Annotate enriches the readings and flags anomalies under the configured
// policy. Input is never mutated.
func (a *DetectorAnnotator) Annotate(readings []domain.Reading) []domain.Reading {
	annotated := domain.Annotate(readings, a.detector)
	a.logger.Debug("readings annotated",
		"policy", a.detector.Policy(),
		"readings", len(annotated),
	)
	return annotated
}
