package domain

import "fmt"

// Detection policy names, the closed set of selectable detectors.
const (
	PolicyFixed    = "fixed"
	PolicyBaseline = "baseline"
)

// Default thresholds, matching the operational tuning of the original
// dashboards: a 15 L/min ceiling for raw flow, and 2x the group mean for
// baseline deviation.
const (
	DefaultFixedThresholdLPM  = 15.0
	DefaultBaselineMultiplier = 2.0
)

// Detector decides whether a single annotated reading is anomalous. Both
// implementations are pure: the flag depends only on the reading and, for
// the baseline policy, its pre-joined group mean.
type Detector interface {
	// Flag reports whether the reading should be marked anomalous.
	// AvgFlowRate must already be populated for baseline-aware policies.
	Flag(r Reading) bool

	// Policy returns the detector's policy name.
	Policy() string
}

// FixedThreshold flags any reading whose flow exceeds a static ceiling.
type FixedThreshold struct {
	ThresholdLPM float64
}

func (d FixedThreshold) Flag(r Reading) bool {
	return r.FlowRateLPM > d.ThresholdLPM
}

func (d FixedThreshold) Policy() string { return PolicyFixed }

// BaselineDeviation flags a reading whose flow exceeds Multiplier times its
// (suburb, hour) group mean.
//
// Two degenerate cases follow directly from the rule and are intentional:
// a single-reading group can never flag itself (a non-negative value cannot
// exceed twice itself), and a zero-mean group flags every positive reading.
type BaselineDeviation struct {
	Multiplier float64
}

func (d BaselineDeviation) Flag(r Reading) bool {
	return r.FlowRateLPM > d.Multiplier*r.AvgFlowRate
}

func (d BaselineDeviation) Policy() string { return PolicyBaseline }

// NewDetector builds a detector for the given policy name. Non-positive
// thresholds fall back to the defaults. Unknown policies are rejected so a
// config typo cannot silently disable detection.
func NewDetector(policy string, fixedThresholdLPM, baselineMultiplier float64) (Detector, error) {
	switch policy {
	case PolicyFixed:
		if fixedThresholdLPM <= 0 {
			fixedThresholdLPM = DefaultFixedThresholdLPM
		}
		return FixedThreshold{ThresholdLPM: fixedThresholdLPM}, nil
	case PolicyBaseline:
		if baselineMultiplier <= 0 {
			baselineMultiplier = DefaultBaselineMultiplier
		}
		return BaselineDeviation{Multiplier: baselineMultiplier}, nil
	default:
		return nil, fmt.Errorf("unknown detection policy %q", policy)
	}
}
