package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/qldwater/leaklocker/internal/config"
	"github.com/qldwater/leaklocker/internal/domain"
)

// Writer produces leak alerts to a Kafka topic.
// It implements pipeline.AlertPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured alert topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAlertTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishAlert serializes the alert summary followed by every flagged
// reading and publishes them to the alert topic in a single WriteMessages
// call, so consumers see the summary and its readings together.
func (w *Writer) PublishAlert(ctx context.Context, alert domain.AlertSummary, anomalies []domain.Reading) error {
	msgs := make([]kafkago.Message, 0, len(anomalies)+1)

	summary, err := serializeAlert(alert)
	if err != nil {
		return err
	}
	msgs = append(msgs, summary)

	for i := range anomalies {
		msg, err := serializeAnomaly(anomalies[i])
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish leak alert: %w", err)
	}
	w.logger.Info("leak alert published", "anomalies", len(anomalies), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeAlert marshals an AlertSummary into the leading Kafka message.
func serializeAlert(alert domain.AlertSummary) (kafkago.Message, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert summary: %w", err)
	}
	return kafkago.Message{
		Key:   []byte("summary"),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "record_type", Value: []byte("alert_summary")},
			{Key: "anomaly_count", Value: []byte(strconv.Itoa(alert.AnomalyCount))},
			{Key: "generated_at", Value: []byte(alert.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}

// serializeAnomaly marshals a flagged reading into a Kafka message keyed by
// suburb so per-suburb consumers preserve ordering.
func serializeAnomaly(r domain.Reading) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize anomaly reading: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(r.Suburb),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "record_type", Value: []byte("anomaly")},
			{Key: "processed_at", Value: []byte(r.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
