//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qldwater/leaklocker/internal/adapter/csvfile"
	"github.com/qldwater/leaklocker/internal/adapter/kafka"
	"github.com/qldwater/leaklocker/internal/config"
	"github.com/qldwater/leaklocker/internal/domain"
	"github.com/qldwater/leaklocker/internal/observability"
	"github.com/qldwater/leaklocker/internal/pipeline"
)

const testAlertTopic = "test-water-leak-alerts"

// leakFixture is a small readings file with two flagged rows in Ipswich,
// written with one row in each accepted timestamp layout.
const leakFixture = "timestamp,suburb,street_address,latitude,longitude,flow_rate_lpm,liters_used\n" +
	"01/06/2024 08:20:00 AM,Ipswich,12 Limestone St,-27.61,152.76,20,20\n" +
	"2024-06-01 08:21:00,Ipswich,12 Limestone St,-27.61,152.76,22,22\n" +
	"2024-06-01 08:22:00,Ipswich,12 Limestone St,-27.61,152.76,5,5\n" +
	"2024-06-01 09:00:00,Springfield,4 Orion Dr,-27.65,152.92,4,4\n"

// alertMessage holds a deserialized message read from the alert topic.
type alertMessage struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

// readAlert reads a single message from the alert consumer.
func readAlert(ctx context.Context, t *testing.T, consumer *kafkago.Reader) alertMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from alert topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return alertMessage{Key: string(msg.Key), Value: msg.Value, Headers: headers}
}

func newAlertConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testAlertTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestWriterPublishAlert verifies the adapter layer: kafka.Writer publishes
// the summary message followed by each flagged reading.
func TestWriterPublishAlert(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testAlertTopic)

	cfg := &config.Config{
		KafkaBrokers:    []string{broker},
		KafkaAlertTopic: testAlertTopic,
	}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	alert := domain.AlertSummary{
		TotalReadings: 4,
		AnomalyCount:  2,
		Suburbs:       []string{"Ipswich"},
		Message:       "Leak detected: 2 of 4 readings flagged across 1 suburb(s)",
		GeneratedAt:   now,
	}
	anomalies := []domain.Reading{
		{Timestamp: now, Suburb: "Ipswich", FlowRateLPM: 20, Hour: 8, Anomaly: true, ProcessedAt: now},
		{Timestamp: now, Suburb: "Ipswich", FlowRateLPM: 22, Hour: 8, Anomaly: true, ProcessedAt: now},
	}

	require.NoError(t, writer.PublishAlert(ctx, alert, anomalies))

	consumer := newAlertConsumer(t, broker)

	summary := readAlert(ctx, t, consumer)
	assert.Equal(t, "summary", summary.Key)
	assert.Equal(t, "alert_summary", summary.Headers["record_type"])
	assert.Equal(t, "2", summary.Headers["anomaly_count"])

	var got domain.AlertSummary
	require.NoError(t, json.Unmarshal(summary.Value, &got))
	assert.Equal(t, 2, got.AnomalyCount)
	assert.Equal(t, []string{"Ipswich"}, got.Suburbs)

	for i := 0; i < 2; i++ {
		msg := readAlert(ctx, t, consumer)
		assert.Equal(t, "Ipswich", msg.Key)
		assert.Equal(t, "anomaly", msg.Headers["record_type"])

		var r domain.Reading
		require.NoError(t, json.Unmarshal(msg.Value, &r))
		assert.True(t, r.Anomaly)
	}
}

// TestPipelineEndToEnd wires the full pipeline (CSV loader → annotator →
// Kafka writer) with real Kafka and verifies the published alert matches the
// fixture's leak.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testAlertTopic)

	path := filepath.Join(t.TempDir(), "readings.csv")
	require.NoError(t, os.WriteFile(path, []byte(leakFixture), 0o600))

	cfg := &config.Config{
		KafkaBrokers:    []string{broker},
		KafkaAlertTopic: testAlertTopic,
	}

	metrics := observability.NewMetricsForTesting()
	loader := csvfile.NewLoader(path, 2, discardLogger(), metrics)
	annotator := pipeline.NewAnnotator(domain.FixedThreshold{ThresholdLPM: 15}, discardLogger())
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(loader, annotator, writer, discardLogger(), metrics, time.Minute)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	require.Eventually(t, func() bool { return p.Dataset() != nil },
		30*time.Second, 100*time.Millisecond, "pipeline never loaded a dataset")

	consumer := newAlertConsumer(t, broker)

	summary := readAlert(ctx, t, consumer)
	assert.Equal(t, "summary", summary.Key)

	var alert domain.AlertSummary
	require.NoError(t, json.Unmarshal(summary.Value, &alert))
	assert.Equal(t, 4, alert.TotalReadings)
	assert.Equal(t, 2, alert.AnomalyCount)
	assert.Equal(t, []string{"Ipswich"}, alert.Suburbs)
	assert.Contains(t, alert.Message, "Leak detected")

	flows := make([]float64, 0, 2)
	for i := 0; i < 2; i++ {
		msg := readAlert(ctx, t, consumer)
		assert.Equal(t, "Ipswich", msg.Key)

		var r domain.Reading
		require.NoError(t, json.Unmarshal(msg.Value, &r))
		assert.True(t, r.Anomaly)
		assert.Equal(t, 8, r.Hour)
		flows = append(flows, r.FlowRateLPM)
	}
	assert.ElementsMatch(t, []float64{20, 22}, flows)

	// The dataset held by the pipeline matches what was published.
	ds := p.Dataset()
	assert.Equal(t, 2, ds.Alert.AnomalyCount)
	assert.Len(t, ds.Anomalies(pipeline.EverySelection()), 2)

	pipelineCancel()
	require.NoError(t, <-errCh)
}
