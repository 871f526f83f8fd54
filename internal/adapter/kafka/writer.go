package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/incident-risk-service/internal/config"
	"github.com/couchcryptid/incident-risk-service/internal/domain"
	"github.com/couchcryptid/incident-risk-service/internal/observability"
	"github.com/couchcryptid/incident-risk-service/internal/risk"
)

// AlertEvent is the payload published for an assessment that raised alerts.
type AlertEvent struct {
	SnapshotID  string             `json:"snapshot_id"`
	Latitude    float64            `json:"latitude"`
	Longitude   float64            `json:"longitude"`
	ThresholdKM float64            `json:"threshold_km"`
	AssessedAt  time.Time          `json:"assessed_at"`
	Alerts      []domain.RiskAlert `json:"alerts"`
}

// AlertWriter produces alert events to a Kafka topic. Writes are
// asynchronous so a slow broker never holds up a risk query; delivery
// results are reported through logs and metrics.
type AlertWriter struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewAlertWriter creates a Kafka producer for the configured alert topic.
func NewAlertWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *AlertWriter {
	aw := &AlertWriter{logger: logger, metrics: metrics}
	aw.writer = &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAlertTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Completion:   aw.completed,
	}
	return aw
}

// PublishAssessment enqueues an alert event. Safe assessments are not
// published.
func (w *AlertWriter) PublishAssessment(ctx context.Context, a risk.Assessment) error {
	if a.Safe() {
		return nil
	}
	msg, err := serializeToMessage(a)
	if err != nil {
		w.metrics.PublishErrors.Inc()
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		w.metrics.PublishErrors.Inc()
		return fmt.Errorf("enqueue alert event: %w", err)
	}
	return nil
}

func (w *AlertWriter) completed(messages []kafkago.Message, err error) {
	if err != nil {
		w.metrics.PublishErrors.Add(float64(len(messages)))
		w.logger.Error("alert delivery failed", "messages", len(messages), "error", err)
		return
	}
	w.metrics.AlertsPublished.Add(float64(len(messages)))
}

// Close flushes pending messages and releases the connection.
func (w *AlertWriter) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an assessment into a Kafka message keyed by
// the queried location.
func serializeToMessage(a risk.Assessment) (kafkago.Message, error) {
	event := AlertEvent{
		SnapshotID:  a.SnapshotID,
		Latitude:    a.Location.Lat,
		Longitude:   a.Location.Lon,
		ThresholdKM: a.ThresholdKM,
		AssessedAt:  a.AssessedAt,
		Alerts:      a.Alerts,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(a.Location.String()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "alert_count", Value: []byte(strconv.Itoa(len(a.Alerts)))},
			{Key: "assessed_at", Value: []byte(a.AssessedAt.Format(time.RFC3339))},
		},
	}, nil
}
