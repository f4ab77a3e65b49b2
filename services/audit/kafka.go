package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Elzini/tenant-gateway/shared/events"
)

// KafkaConsumer reads routing events from the audit topic and hands them to
// the archiver.
type KafkaConsumer struct {
	reader *kafka.Reader
	db     *gorm.DB
}

// FailedArchive records an event that could not be handed to the archiver,
// kept in postgres for operator inspection.
type FailedArchive struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	EventID      string    `gorm:"not null" json:"event_id"`
	TenantID     string    `json:"tenant_id"`
	Decision     string    `gorm:"not null" json:"decision"`
	Payload      string    `gorm:"type:text;not null" json:"payload"`
	ErrorMessage string    `gorm:"not null" json:"error_message"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the table name for the FailedArchive model
func (FailedArchive) TableName() string {
	return "failed_archives"
}

// NewKafkaConsumer creates a consumer for the routing-events topic.
func NewKafkaConsumer(broker, topic string, db *gorm.DB) (*KafkaConsumer, error) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{broker},
		Topic:          topic,
		GroupID:        "audit-service",
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
	})

	return &KafkaConsumer{reader: reader, db: db}, nil
}

// Consume reads routing events until the context is cancelled.
func (kc *KafkaConsumer) Consume(ctx context.Context, archiver *S3Archiver) {
	logrus.Info("Starting routing-events consumer...")

	for {
		readCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		msg, err := kc.reader.ReadMessage(readCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Timeouts are expected when the topic is idle.
			if err == context.DeadlineExceeded {
				continue
			}
			logrus.WithError(err).Warn("Error reading routing event")
			time.Sleep(1 * time.Second)
			continue
		}

		var event events.RoutingEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logrus.WithError(err).Warn("Malformed routing event skipped")
			continue
		}

		if err := archiver.Add(event); err != nil {
			logrus.WithError(err).Warn("Archiver rejected routing event")
			if dlqErr := kc.storeFailedArchive(event, err); dlqErr != nil {
				logrus.WithError(dlqErr).Error("Failed to store failed archive row")
			}
		}
	}
}

// storeFailedArchive persists an unarchivable event for inspection.
func (kc *KafkaConsumer) storeFailedArchive(event events.RoutingEvent, cause error) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal routing event: %w", err)
	}

	row := FailedArchive{
		EventID:      event.ID,
		TenantID:     event.TenantID,
		Decision:     string(event.Decision),
		Payload:      string(payload),
		ErrorMessage: cause.Error(),
	}
	if err := kc.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to store failed archive: %w", err)
	}
	return nil
}

// Close closes the Kafka reader.
func (kc *KafkaConsumer) Close() error {
	if err := kc.reader.Close(); err != nil {
		return fmt.Errorf("failed to close routing-events reader: %w", err)
	}
	return nil
}
