package domain

import (
	"fmt"
	"sort"
	"time"
)

// EnrichReading derives the calendar fields from the reading's timestamp.
// The instant is interpreted in its recorded local representation, with no
// timezone conversion. DayOfWeek is 0 for Monday through 6 for Sunday.
func EnrichReading(r Reading) Reading {
	r.Hour = r.Timestamp.Hour()
	r.DayOfWeek = (int(r.Timestamp.Weekday()) + 6) % 7
	r.ProcessedAt = clock.Now()
	return r
}

// ComputeBaselines groups readings by (suburb, hour) and returns the
// arithmetic mean flow rate per group, computed over the entire input.
// Every group has at least one contributing reading by construction, so the
// mean is always defined.
func ComputeBaselines(readings []Reading) map[GroupKey]float64 {
	sums := make(map[GroupKey]float64)
	counts := make(map[GroupKey]int)
	for i := range readings {
		key := readings[i].Group()
		sums[key] += readings[i].FlowRateLPM
		counts[key]++
	}

	means := make(map[GroupKey]float64, len(sums))
	for key, sum := range sums {
		means[key] = sum / float64(counts[key])
	}
	return means
}

// Annotate enriches every reading, fans each group's baseline back out onto
// its rows, and applies the detector's flag. The input is not mutated; the
// result preserves input order. Total over any input: an empty slice yields
// an empty slice.
func Annotate(readings []Reading, det Detector) []Reading {
	if len(readings) == 0 {
		return []Reading{}
	}

	out := make([]Reading, len(readings))
	for i := range readings {
		out[i] = EnrichReading(readings[i])
	}

	baselines := ComputeBaselines(out)
	for i := range out {
		out[i].AvgFlowRate = baselines[out[i].Group()]
		out[i].Anomaly = det.Flag(out[i])
	}
	return out
}

// Summarize produces the alert summary for an annotated dataset. The message
// is set only when at least one reading is flagged.
func Summarize(readings []Reading) AlertSummary {
	summary := AlertSummary{
		TotalReadings: len(readings),
		GeneratedAt:   clock.Now(),
	}

	flagged := make(map[string]bool)
	for i := range readings {
		if readings[i].Anomaly {
			summary.AnomalyCount++
			flagged[readings[i].Suburb] = true
		}
	}

	if summary.AnomalyCount == 0 {
		return summary
	}

	summary.Suburbs = make([]string, 0, len(flagged))
	for suburb := range flagged {
		summary.Suburbs = append(summary.Suburbs, suburb)
	}
	sort.Strings(summary.Suburbs)

	summary.Message = fmt.Sprintf("Leak detected: %d of %d readings flagged across %d suburb(s)",
		summary.AnomalyCount, summary.TotalReadings, len(summary.Suburbs))
	return summary
}

// Fingerprintable lets loaders expose a content identity for their source so
// the pipeline can skip recomputation when nothing changed.
type Fingerprintable interface {
	Fingerprint() (string, error)
}

// FormatTimestamp renders a timestamp in the day-first export layout. Used by
// fixture generation so generated files exercise the primary parse path.
func FormatTimestamp(t time.Time) string {
	return t.Format(layoutDayFirst)
}

// FormatTimestampISO renders a timestamp in the ISO export layout.
func FormatTimestampISO(t time.Time) string {
	return t.Format(layoutISO)
}
