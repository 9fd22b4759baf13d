package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reading(suburb string, ts time.Time, flow float64) Reading {
	return Reading{Timestamp: ts, Suburb: suburb, FlowRateLPM: flow, LitersUsed: flow}
}

func TestEnrichReading(t *testing.T) {
	fixedTime := time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixedTime))
	defer SetClock(nil)

	tests := []struct {
		name        string
		timestamp   time.Time
		wantHour    int
		wantWeekday int
	}{
		{"saturday afternoon", time.Date(2024, 6, 1, 15, 15, 0, 0, time.UTC), 15, 5},
		{"sunday", time.Date(2024, 6, 2, 0, 30, 0, 0, time.UTC), 0, 6},
		{"monday is zero", time.Date(2024, 6, 3, 23, 59, 0, 0, time.UTC), 23, 0},
		{"wednesday", time.Date(2024, 6, 5, 10, 0, 0, 0, time.UTC), 10, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EnrichReading(reading("Ipswich", tt.timestamp, 5))
			assert.Equal(t, tt.wantHour, result.Hour)
			assert.Equal(t, tt.wantWeekday, result.DayOfWeek)
			assert.Equal(t, fixedTime, result.ProcessedAt)
		})
	}
}

func TestComputeBaselines(t *testing.T) {
	ten := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	eleven := time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC)

	t.Run("mean per suburb-hour group", func(t *testing.T) {
		readings := []Reading{
			EnrichReading(reading("Ipswich", ten, 4)),
			EnrichReading(reading("Ipswich", ten, 20)),
			EnrichReading(reading("Ipswich", eleven, 6)),
			EnrichReading(reading("Toowong", ten, 10)),
		}

		baselines := ComputeBaselines(readings)

		require.Len(t, baselines, 3)
		assert.Equal(t, 12.0, baselines[GroupKey{Suburb: "Ipswich", Hour: 10}])
		assert.Equal(t, 6.0, baselines[GroupKey{Suburb: "Ipswich", Hour: 11}])
		assert.Equal(t, 10.0, baselines[GroupKey{Suburb: "Toowong", Hour: 10}])
	})

	t.Run("single reading group equals own value", func(t *testing.T) {
		readings := []Reading{EnrichReading(reading("Ipswich", ten, 7.5))}
		baselines := ComputeBaselines(readings)
		assert.Equal(t, 7.5, baselines[GroupKey{Suburb: "Ipswich", Hour: 10}])
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, ComputeBaselines(nil))
	})
}

func TestAnnotate(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC)))
	defer SetClock(nil)

	ten := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	det := BaselineDeviation{Multiplier: 2}

	t.Run("two equal readings never flag", func(t *testing.T) {
		out := Annotate([]Reading{
			reading("Ipswich", ten, 4),
			reading("Ipswich", ten, 4),
		}, det)

		require.Len(t, out, 2)
		for _, r := range out {
			assert.Equal(t, 4.0, r.AvgFlowRate)
			assert.False(t, r.Anomaly)
		}
	})

	t.Run("multiplier conservatism", func(t *testing.T) {
		// Mean is 12; the 20 L/min reading is below 2x12=24 so even the
		// leak-sized reading stays unflagged.
		out := Annotate([]Reading{
			reading("Ipswich", ten, 4),
			reading("Ipswich", ten, 20),
		}, det)

		require.Len(t, out, 2)
		assert.Equal(t, 12.0, out[0].AvgFlowRate)
		assert.Equal(t, 12.0, out[1].AvgFlowRate)
		assert.False(t, out[0].Anomaly)
		assert.False(t, out[1].Anomaly)
	})

	t.Run("outlier above twice the mean flags", func(t *testing.T) {
		out := Annotate([]Reading{
			reading("Ipswich", ten, 4),
			reading("Ipswich", ten, 4),
			reading("Ipswich", ten, 4),
			reading("Ipswich", ten, 20),
		}, det)

		// Mean is 8; only the 20 L/min reading exceeds 16.
		require.Len(t, out, 4)
		assert.False(t, out[0].Anomaly)
		assert.True(t, out[3].Anomaly)
	})

	t.Run("single reading group never flags itself", func(t *testing.T) {
		out := Annotate([]Reading{reading("Ipswich", ten, 50)}, det)
		require.Len(t, out, 1)
		assert.Equal(t, 50.0, out[0].AvgFlowRate)
		assert.False(t, out[0].Anomaly)
	})

	t.Run("zero baseline flags any positive flow", func(t *testing.T) {
		out := Annotate([]Reading{
			reading("Ipswich", ten, 0),
			reading("Ipswich", ten, 0),
			reading("Ipswich", ten.Add(time.Hour), 0.5),
			reading("Ipswich", ten.Add(time.Hour), 0),
		}, det)

		require.Len(t, out, 4)
		assert.False(t, out[0].Anomaly)
		assert.False(t, out[1].Anomaly)
		// Group mean at hour 11 is 0.25, so 0.5 sits exactly at 2x and is
		// not flagged; the zero reading never is.
		assert.False(t, out[2].Anomaly)
		assert.False(t, out[3].Anomaly)
	})

	t.Run("baselines ignore filter-irrelevant fields", func(t *testing.T) {
		out := Annotate([]Reading{
			reading("Ipswich", ten, 1),
			reading("Ipswich", ten, 1),
			reading("Ipswich", ten, 10),
		}, det)

		// Mean 4; 10 > 8 flags.
		assert.True(t, out[2].Anomaly)
		assert.Equal(t, out[0].AvgFlowRate, out[2].AvgFlowRate)
	})

	t.Run("empty input yields empty output", func(t *testing.T) {
		out := Annotate(nil, det)
		require.NotNil(t, out)
		assert.Empty(t, out)
	})

	t.Run("input not mutated", func(t *testing.T) {
		in := []Reading{reading("Ipswich", ten, 4)}
		_ = Annotate(in, det)
		assert.Equal(t, 0, in[0].Hour+in[0].DayOfWeek)
		assert.False(t, in[0].Anomaly)
		assert.Zero(t, in[0].AvgFlowRate)
	})

	t.Run("idempotent for fixed clock", func(t *testing.T) {
		in := []Reading{
			reading("Ipswich", ten, 4),
			reading("Ipswich", ten, 20),
			reading("Toowong", ten, 9),
		}

		first := Annotate(in, det)
		second := Annotate(in, det)
		assert.Empty(t, cmp.Diff(first, second))
	})
}

func TestAnnotate_FixedThreshold(t *testing.T) {
	ten := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	det := FixedThreshold{ThresholdLPM: 15}

	out := Annotate([]Reading{
		reading("Ipswich", ten, 5),
		reading("Ipswich", ten, 15),
		reading("Ipswich", ten, 20),
	}, det)

	require.Len(t, out, 3)
	assert.False(t, out[0].Anomaly)
	assert.False(t, out[1].Anomaly, "threshold is strict greater-than")
	assert.True(t, out[2].Anomaly)
}

func TestSummarize(t *testing.T) {
	fixedTime := time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixedTime))
	defer SetClock(nil)

	t.Run("no anomalies", func(t *testing.T) {
		s := Summarize([]Reading{{Suburb: "Ipswich"}, {Suburb: "Toowong"}})
		assert.Equal(t, 2, s.TotalReadings)
		assert.Equal(t, 0, s.AnomalyCount)
		assert.False(t, s.LeakDetected())
		assert.Empty(t, s.Message)
		assert.Equal(t, fixedTime, s.GeneratedAt)
	})

	t.Run("anomalies produce a single alert message", func(t *testing.T) {
		s := Summarize([]Reading{
			{Suburb: "Toowong", Anomaly: true},
			{Suburb: "Ipswich", Anomaly: true},
			{Suburb: "Ipswich", Anomaly: true},
			{Suburb: "Chermside"},
		})

		assert.Equal(t, 4, s.TotalReadings)
		assert.Equal(t, 3, s.AnomalyCount)
		assert.True(t, s.LeakDetected())
		assert.Equal(t, []string{"Ipswich", "Toowong"}, s.Suburbs)
		assert.Equal(t, "Leak detected: 3 of 4 readings flagged across 2 suburb(s)", s.Message)
	})

	t.Run("empty dataset", func(t *testing.T) {
		s := Summarize(nil)
		assert.Equal(t, 0, s.TotalReadings)
		assert.False(t, s.LeakDetected())
	})
}
