package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Accepted timestamp layouts, tried in order. Day-first comes first because
// the council export tool that produces it is the common case; the ISO form
// is unambiguous so ordering only matters for performance.
const (
	layoutDayFirst = "02/01/2006 03:04:05 PM"
	layoutISO      = "2006-01-02 15:04:05"
)

// ParseTimestamp parses a raw timestamp string, trying the day-first 12-hour
// layout then the ISO 24-hour layout. Returns ErrUnparsableTimestamp when
// neither matches.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrUnparsableTimestamp)
	}

	if t, err := time.Parse(layoutDayFirst, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(layoutISO, value); err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsableTimestamp, value)
}

// ParseRecord converts a raw CSV row into a Reading. The timestamp must match
// one of the accepted layouts; all other fields pass through with best-effort
// numeric parsing, matching the lenient handling of upstream exports.
func ParseRecord(rec RawRecord) (Reading, error) {
	ts, err := ParseTimestamp(rec.Timestamp)
	if err != nil {
		return Reading{}, err
	}

	return Reading{
		Timestamp:     ts,
		Suburb:        strings.TrimSpace(rec.Suburb),
		StreetAddress: strings.TrimSpace(rec.StreetAddress),
		Latitude:      parseFloatOrZero(rec.Latitude),
		Longitude:     parseFloatOrZero(rec.Longitude),
		FlowRateLPM:   parseNonNegative(rec.FlowRateLPM),
		LitersUsed:    parseNonNegative(rec.LitersUsed),
	}, nil
}

// parseFloatOrZero parses a string as float64, returning 0 on failure.
func parseFloatOrZero(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseNonNegative parses a flow or volume value. Negative readings are
// meter glitches and are clamped to zero.
func parseNonNegative(s string) float64 {
	v := parseFloatOrZero(s)
	if v < 0 {
		return 0
	}
	return v
}
