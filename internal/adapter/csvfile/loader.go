// Package csvfile loads water-flow readings from council CSV exports.
package csvfile

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/qldwater/leaklocker/internal/domain"
	"github.com/qldwater/leaklocker/internal/observability"
)

// requiredColumns is the header contract of a flow export. Extra columns are
// ignored; a missing required column makes the whole source invalid.
var requiredColumns = []string{
	"timestamp", "suburb", "street_address",
	"latitude", "longitude", "flow_rate_lpm", "liters_used",
}

// Loader reads and parses one CSV source. Parsed results are cached keyed by
// a content fingerprint, so repeated loads of an unchanged file skip the
// parse while any change to the file misses the cache by construction.
type Loader struct {
	path    string
	cache   *resultCache
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewLoader creates a Loader for the given file path.
func NewLoader(path string, cacheSize int, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	return &Loader{
		path:    path,
		cache:   newResultCache(cacheSize),
		logger:  logger,
		metrics: metrics,
	}
}

// Fingerprint returns the SHA-256 of the current file contents. It fails
// with a DataSourceError when the file cannot be read.
func (l *Loader) Fingerprint() (string, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return "", domain.NewDataSourceError(l.path, err)
	}
	return fingerprint(data), nil
}

// Extract loads the source and returns all valid readings in file order.
// Rows with unparsable timestamps are dropped and counted; a missing file or
// invalid structure fails the whole extraction with a DataSourceError.
func (l *Loader) Extract(ctx context.Context) ([]domain.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, domain.NewDataSourceError(l.path, err)
	}

	fp := fingerprint(data)
	if readings, ok := l.cache.get(fp); ok {
		l.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return readings, nil
	}
	l.metrics.CacheLookups.WithLabelValues("miss").Inc()

	readings, dropped, err := parseCSV(l.path, data)
	if err != nil {
		return nil, err
	}

	if dropped > 0 {
		l.logger.Warn("dropped rows with unparsable timestamps",
			"source", l.path, "dropped", dropped, "kept", len(readings))
	}
	l.metrics.ReadingsLoaded.Add(float64(len(readings)))
	l.metrics.RowsDropped.Add(float64(dropped))

	l.cache.put(fp, readings)
	return readings, nil
}

// parseCSV parses file contents into readings, returning the number of
// dropped rows alongside.
func parseCSV(path string, data []byte) ([]domain.Reading, int, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, 0, domain.NewDataSourceError(path, fmt.Errorf("read csv: %w", err))
	}
	if len(rows) == 0 {
		return nil, 0, domain.NewDataSourceError(path, errors.New("missing header row"))
	}

	colIdx, err := indexHeader(rows[0])
	if err != nil {
		return nil, 0, domain.NewDataSourceError(path, err)
	}

	readings := make([]domain.Reading, 0, len(rows)-1)
	dropped := 0
	for _, row := range rows[1:] {
		rec := domain.RawRecord{
			Timestamp:     get(row, colIdx, "timestamp"),
			Suburb:        get(row, colIdx, "suburb"),
			StreetAddress: get(row, colIdx, "street_address"),
			Latitude:      get(row, colIdx, "latitude"),
			Longitude:     get(row, colIdx, "longitude"),
			FlowRateLPM:   get(row, colIdx, "flow_rate_lpm"),
			LitersUsed:    get(row, colIdx, "liters_used"),
		}

		r, err := domain.ParseRecord(rec)
		if errors.Is(err, domain.ErrUnparsableTimestamp) {
			dropped++
			continue
		}
		if err != nil {
			return nil, 0, domain.NewDataSourceError(path, err)
		}
		readings = append(readings, r)
	}

	return readings, dropped, nil
}

// indexHeader maps column names to positions and verifies the required set.
func indexHeader(header []string) (map[string]int, error) {
	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.ToLower(strings.TrimSpace(h))] = i
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := colIdx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return colIdx, nil
}

func get(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
