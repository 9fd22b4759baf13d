package pipeline

import (
	"sort"
	"time"

	"github.com/qldwater/leaklocker/internal/domain"
)

// Dataset is one complete annotated view of the source. Datasets are
// immutable once stored: readers filter a snapshot, they never trigger
// recomputation.
type Dataset struct {
	Readings    []domain.Reading
	Alert       domain.AlertSummary
	Fingerprint string
	LoadedAt    time.Time
}

// Selection narrows a dataset view. Suburb matches exactly when non-empty;
// HourFrom and HourTo bound the enriched hour inclusively.
type Selection struct {
	Suburb   string
	HourFrom int
	HourTo   int
}

// EverySelection selects all readings.
func EverySelection() Selection {
	return Selection{HourFrom: 0, HourTo: 23}
}

func (s Selection) matches(r domain.Reading) bool {
	if s.Suburb != "" && r.Suburb != s.Suburb {
		return false
	}
	return r.Hour >= s.HourFrom && r.Hour <= s.HourTo
}

// Filter returns the readings matched by the selection, in source order.
func (d *Dataset) Filter(sel Selection) []domain.Reading {
	out := make([]domain.Reading, 0, len(d.Readings))
	for _, r := range d.Readings {
		if sel.matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Anomalies returns only the flagged readings matched by the selection.
func (d *Dataset) Anomalies(sel Selection) []domain.Reading {
	out := make([]domain.Reading, 0)
	for _, r := range d.Readings {
		if r.Anomaly && sel.matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Suburbs returns the distinct suburbs present in the dataset, sorted.
func (d *Dataset) Suburbs() []string {
	seen := make(map[string]struct{})
	for _, r := range d.Readings {
		seen[r.Suburb] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
