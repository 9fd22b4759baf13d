// Command validate performs end-to-end integrity checks on a readings CSV
// file: it loads the file through the actual loader, annotates it under both
// detection policies, and verifies enrichment, baseline math, flagging, and
// determinism against independently recomputed values.
//
// Usage:
//
//	go run ./cmd/validate -csv data/fixtures/readings_day.csv
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"

	"github.com/qldwater/leaklocker/internal/adapter/csvfile"
	"github.com/qldwater/leaklocker/internal/domain"
	"github.com/qldwater/leaklocker/internal/observability"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	csvPath := flag.String("csv", "", "path to a readings CSV file")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*csvPath); code != 0 {
		os.Exit(code)
	}
}

func run(csvPath string) int {
	// Fixed clock so repeated annotation passes produce identical output.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.June, 2, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	fmt.Println("=== Water Flow Data Integrity Validation ===")
	fmt.Println()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	loader := csvfile.NewLoader(csvPath, 2, logger, observability.NewMetricsForTesting())

	readings, err := loader.Extract(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load CSV: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateLoad(csvPath, loader, readings),
		validateEnrichment(readings),
		validateBaselines(readings),
		validateDetection(readings),
		validateDeterminism(readings),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d loaded from %s\n", len(readings), csvPath)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Load Integrity ──
// Loaded row count plus dropped rows must account for every data line in the
// file, and repeated extraction must be stable.

func validateLoad(csvPath string, loader *csvfile.Loader, readings []domain.Reading) *phase {
	p := &phase{name: "Phase 1: Load Integrity"}

	dataLines, err := countDataLines(csvPath)
	if err != nil {
		p.errorf("count data lines: %v", err)
		return p
	}
	if len(readings) > dataLines {
		p.errorf("loaded %d readings from only %d data lines", len(readings), dataLines)
	}
	if dropped := dataLines - len(readings); dropped > 0 {
		fmt.Printf("  Note: %d row(s) dropped as unparsable\n", dropped)
	}

	again, err := loader.Extract(context.Background())
	if err != nil {
		p.errorf("second extract failed: %v", err)
		return p
	}
	if diff := cmp.Diff(readings, again); diff != "" {
		p.errorf("repeated extract differs:\n%s", diff)
	}

	fp1, err := loader.Fingerprint()
	if err != nil {
		p.errorf("fingerprint: %v", err)
		return p
	}
	fp2, err := loader.Fingerprint()
	if err != nil {
		p.errorf("second fingerprint: %v", err)
		return p
	}
	if fp1 != fp2 {
		p.errorf("fingerprint unstable: %s vs %s", fp1, fp2)
	}

	return p
}

func countDataLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	n := 0
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			n++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("empty file")
	}
	return n - 1, nil // minus header
}

// ── Phase 2: Enrichment ──
// Hour and DayOfWeek must be derived from the timestamp, Monday = 0.

func validateEnrichment(readings []domain.Reading) *phase {
	p := &phase{name: "Phase 2: Enrichment (calendar fields)"}

	annotated := domain.Annotate(readings, domain.FixedThreshold{ThresholdLPM: domain.DefaultFixedThresholdLPM})
	for i := range annotated {
		r := &annotated[i]
		if r.Hour != r.Timestamp.Hour() {
			p.errorf("record %d: hour %d does not match timestamp %s", i, r.Hour, r.Timestamp)
		}
		wantDay := (int(r.Timestamp.Weekday()) + 6) % 7
		if r.DayOfWeek != wantDay {
			p.errorf("record %d: day_of_week %d, expected %d (Monday=0)", i, r.DayOfWeek, wantDay)
		}
		if r.ProcessedAt.IsZero() {
			p.errorf("record %d: processed_at is zero", i)
		}
	}
	return p
}

// ── Phase 3: Baselines ──
// Every reading's AvgFlowRate must equal the independently recomputed mean of
// its (suburb, hour) group.

func validateBaselines(readings []domain.Reading) *phase {
	p := &phase{name: "Phase 3: Baselines (group means)"}

	annotated := domain.Annotate(readings, domain.FixedThreshold{ThresholdLPM: domain.DefaultFixedThresholdLPM})

	sums := map[domain.GroupKey]float64{}
	counts := map[domain.GroupKey]int{}
	for i := range annotated {
		key := annotated[i].Group()
		sums[key] += annotated[i].FlowRateLPM
		counts[key]++
	}

	for i := range annotated {
		r := &annotated[i]
		want := sums[r.Group()] / float64(counts[r.Group()])
		if !floatEq(r.AvgFlowRate, want) {
			p.errorf("record %d (%s h%d): avg_flow_rate %g, expected %g", i, r.Suburb, r.Hour, r.AvgFlowRate, want)
		}
	}

	fmt.Printf("  Note: %d baseline group(s)\n", len(sums))
	return p
}

// ── Phase 4: Detection ──
// Flags must match the policy definitions exactly under both policies.

func validateDetection(readings []domain.Reading) *phase {
	p := &phase{name: "Phase 4: Detection (both policies)"}

	fixed := domain.Annotate(readings, domain.FixedThreshold{ThresholdLPM: domain.DefaultFixedThresholdLPM})
	for i := range fixed {
		want := fixed[i].FlowRateLPM > domain.DefaultFixedThresholdLPM
		if fixed[i].Anomaly != want {
			p.errorf("fixed record %d: anomaly=%v for flow %g", i, fixed[i].Anomaly, fixed[i].FlowRateLPM)
		}
	}

	baseline := domain.Annotate(readings, domain.BaselineDeviation{Multiplier: domain.DefaultBaselineMultiplier})
	for i := range baseline {
		want := baseline[i].FlowRateLPM > domain.DefaultBaselineMultiplier*baseline[i].AvgFlowRate
		if baseline[i].Anomaly != want {
			p.errorf("baseline record %d: anomaly=%v for flow %g vs mean %g",
				i, baseline[i].Anomaly, baseline[i].FlowRateLPM, baseline[i].AvgFlowRate)
		}
	}

	fmt.Printf("  Note: fixed flagged %d, baseline flagged %d\n",
		domain.Summarize(fixed).AnomalyCount, domain.Summarize(baseline).AnomalyCount)
	return p
}

// ── Phase 5: Determinism ──
// Annotating the same input twice must yield identical output.

func validateDeterminism(readings []domain.Reading) *phase {
	p := &phase{name: "Phase 5: Determinism (repeat annotation)"}

	det := domain.BaselineDeviation{Multiplier: domain.DefaultBaselineMultiplier}
	first := domain.Annotate(readings, det)
	second := domain.Annotate(readings, det)

	if diff := cmp.Diff(first, second); diff != "" {
		p.errorf("repeated annotation differs:\n%s", diff)
	}
	return p
}

// ── Helpers ──

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
