// Command gendata generates a CSV fixture of water flow readings using the
// synthetic generator. It alternates between the two timestamp layouts the
// loader accepts so generated files exercise both parse paths, and it uses
// the actual domain package so fixture contents match pipeline behavior.
//
// Usage:
//
//	go run ./cmd/gendata -out data/fixtures/readings_day.csv -seed 1
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/qldwater/leaklocker/internal/domain"
	"github.com/qldwater/leaklocker/internal/synthetic"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the CSV fixture")
	seed := flag.Int64("seed", 1, "random seed for the synthetic series")
	minutes := flag.Int("minutes", 1440, "number of one-minute readings to generate")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	// Fixed clock for reproducible annotation output in the printed stats.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.June, 2, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	opts := synthetic.DefaultOptions(*seed)
	opts.Minutes = *minutes

	readings, err := synthetic.NewSource(opts).Extract(context.Background())
	if err != nil {
		return fmt.Errorf("generating readings: %w", err)
	}

	if err := writeCSV(*out, readings); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote %d readings: %s", len(readings), *out)

	printStats(readings)
	return nil
}

func writeCSV(path string, readings []domain.Reading) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"timestamp", "suburb", "street_address", "latitude", "longitude", "flow_rate_lpm", "liters_used",
	}); err != nil {
		return err
	}

	for i := range readings {
		r := &readings[i]

		// Alternate layouts so the fixture covers both accepted formats.
		ts := domain.FormatTimestamp(r.Timestamp)
		if i%2 == 1 {
			ts = domain.FormatTimestampISO(r.Timestamp)
		}

		row := []string{
			ts,
			r.Suburb,
			r.StreetAddress,
			strconv.FormatFloat(r.Latitude, 'f', -1, 64),
			strconv.FormatFloat(r.Longitude, 'f', -1, 64),
			strconv.FormatFloat(r.FlowRateLPM, 'f', 4, 64),
			strconv.FormatFloat(r.LitersUsed, 'f', 4, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// printStats annotates the generated series under both detection policies and
// prints counts for updating test assertions.
func printStats(readings []domain.Reading) {
	fixed := domain.Annotate(readings, domain.FixedThreshold{ThresholdLPM: domain.DefaultFixedThresholdLPM})
	baseline := domain.Annotate(readings, domain.BaselineDeviation{Multiplier: domain.DefaultBaselineMultiplier})

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total readings: %d\n", len(readings))
	fmt.Printf("Baseline groups: %d\n", len(domain.ComputeBaselines(fixed)))

	fixedSummary := domain.Summarize(fixed)
	fmt.Printf("Fixed policy (> %g L/min): %d flagged\n", domain.DefaultFixedThresholdLPM, fixedSummary.AnomalyCount)
	if fixedSummary.LeakDetected() {
		fmt.Printf("  %s\n", fixedSummary.Message)
	}

	baselineSummary := domain.Summarize(baseline)
	fmt.Printf("Baseline policy (> %gx group mean): %d flagged\n", domain.DefaultBaselineMultiplier, baselineSummary.AnomalyCount)
	if baselineSummary.LeakDetected() {
		fmt.Printf("  %s\n", baselineSummary.Message)
	}
}
