// Package domain models suburb water-flow telemetry and leak detection.
//
// # Data Source
//
// Readings come from council smart-meter exports: one CSV row per meter per
// minute with the columns timestamp, suburb, street_address, latitude,
// longitude, flow_rate_lpm and liters_used. Two timestamp encodings appear
// in the wild, depending on which export tool produced the file:
//
//	"01/06/2024 03:15:00 PM"  →  day-first, 12-hour clock with meridiem
//	"2024-06-01 15:15:00"     →  ISO date, 24-hour clock
//
// Both are accepted; rows matching neither are dropped during loading.
// Timestamps are interpreted in their recorded local representation; no
// timezone conversion is applied.
//
// # Leak Detection
//
// Each reading is enriched with its hour of day and day of week, then joined
// against the historical baseline for its (suburb, hour) group: the
// arithmetic mean of flow_rate_lpm over every reading in that group across
// the whole dataset. A Detector flags a reading as anomalous either against
// a fixed ceiling (default 15 L/min) or against its group baseline (default
// 2x the mean). Baselines are computed over the full dataset, never over a
// filtered view, so the anomaly flag is a pure function of the reading and
// its group.
package domain
