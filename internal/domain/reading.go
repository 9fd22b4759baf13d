package domain

import "time"

// RawRecord is one unparsed CSV row, field values as they appear in the file.
type RawRecord struct {
	Timestamp     string `json:"timestamp"`
	Suburb        string `json:"suburb"`
	StreetAddress string `json:"street_address"`
	Latitude      string `json:"latitude"`
	Longitude     string `json:"longitude"`
	FlowRateLPM   string `json:"flow_rate_lpm"`
	LitersUsed    string `json:"liters_used"`
}

// Reading is one timestamped flow observation at a metered location.
// Hour, DayOfWeek, AvgFlowRate and Anomaly are derived during annotation,
// not stored at ingestion.
type Reading struct {
	Timestamp     time.Time `json:"timestamp"`
	Suburb        string    `json:"suburb"`
	StreetAddress string    `json:"street_address,omitempty"`
	Latitude      float64   `json:"latitude,omitempty"`
	Longitude     float64   `json:"longitude,omitempty"`
	FlowRateLPM   float64   `json:"flow_rate_lpm"`
	LitersUsed    float64   `json:"liters_used"`

	// Derived fields.
	Hour        int     `json:"hour"`
	DayOfWeek   int     `json:"day_of_week"` // 0 = Monday … 6 = Sunday
	AvgFlowRate float64 `json:"avg_flow_rate"`
	Anomaly     bool    `json:"anomaly"`

	ProcessedAt time.Time `json:"processed_at"`
}

// GroupKey identifies a baseline group: all readings sharing a suburb and
// an hour of day.
type GroupKey struct {
	Suburb string
	Hour   int
}

// Group returns the reading's baseline group key. Only meaningful after
// enrichment has derived the Hour field.
func (r Reading) Group() GroupKey {
	return GroupKey{Suburb: r.Suburb, Hour: r.Hour}
}

// AlertSummary describes the leak state of one annotated dataset.
type AlertSummary struct {
	TotalReadings int       `json:"total_readings"`
	AnomalyCount  int       `json:"anomaly_count"`
	Suburbs       []string  `json:"suburbs,omitempty"` // suburbs with at least one flagged reading, sorted
	Message       string    `json:"message,omitempty"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// LeakDetected reports whether the dataset contained any flagged reading.
func (a AlertSummary) LeakDetected() bool {
	return a.AnomalyCount > 0
}
