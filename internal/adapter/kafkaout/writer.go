// Package kafkaout publishes triggered alerts to the delivery topic where
// the notification service picks them up.
package kafkaout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kilimoalert/drought-engine/internal/domain"
)

// Writer produces alert messages to a Kafka topic.
// It implements alert.Dispatcher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the alert topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Dispatch serializes and publishes one alert. The region keys the
// message so all alerts for a region land on the same partition.
func (w *Writer) Dispatch(ctx context.Context, alert domain.Alert) error {
	msg, err := serializeToMessage(alert)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing alert %s: %w", alert.ID, err)
	}
	w.logger.Debug("alert published", "alert_id", alert.ID, "region", alert.RegionID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an Alert into a Kafka message.
func serializeToMessage(alert domain.Alert) (kafkago.Message, error) {
	data, err := json.Marshal(alertPayload{
		ID:           alert.ID,
		RegionID:     alert.RegionID,
		AssessmentID: alert.AssessmentID,
		Type:         alert.Type,
		Severity:     alert.Severity,
		Priority:     alert.Priority,
		Title:        alert.Title,
		Message:      alert.Message,
		SMSMessage:   alert.SMSMessage,
		CreatedAt:    alert.CreatedAt,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(alert.RegionID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "alert_type", Value: []byte(alert.Type)},
			{Key: "severity", Value: []byte(alert.Severity)},
			{Key: "created_at", Value: []byte(alert.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}

// alertPayload is the wire shape consumed by the notification service.
type alertPayload struct {
	ID           string    `json:"alert_id"`
	RegionID     string    `json:"region_id"`
	AssessmentID int64     `json:"assessment_id"`
	Type         string    `json:"alert_type"`
	Severity     string    `json:"severity"`
	Priority     string    `json:"priority"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	SMSMessage   string    `json:"sms_message"`
	CreatedAt    time.Time `json:"created_at"`
}
