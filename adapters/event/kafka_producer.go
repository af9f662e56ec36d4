package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/agrostream/studio-api/internal/config"
)

const (
	TopicMediaEvents    = "media.events"
	TopicWorkflowEvents = "workflow.events"
)

type MediaEventType string

const (
	MediaEventTypeProcessed MediaEventType = "media.processed"
	MediaEventTypeFailed    MediaEventType = "media.failed"
	MediaEventTypeDeleted   MediaEventType = "media.deleted"
)

// MediaEventPayload announces a change to a persisted media item.
type MediaEventPayload struct {
	EventType  MediaEventType `json:"event_type"`
	MediaID    uuid.UUID      `json:"media_id"`
	OwnerID    uuid.UUID      `json:"owner_id"`
	AssetID    string         `json:"asset_id"`
	PlaybackID string         `json:"playback_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// WorkflowRequestPayload asks the worker to run the upload-processing
// pipeline headless, without a browser holding the streaming connection.
type WorkflowRequestPayload struct {
	UploadID    string    `json:"upload_id"`
	Filename    string    `json:"filename"`
	OwnerID     uuid.UUID `json:"owner_id"`
	RequestedAt time.Time `json:"requested_at"`
}

type KafkaProducerClient struct {
	MediaEventsWriter    *kafka.Writer
	WorkflowEventsWriter *kafka.Writer
}

func NewKafkaProducerClient(cfg config.Config) (*KafkaProducerClient, error) {
	brokers := cfg.Kafka.Brokers
	if len(brokers) == 0 {
		return nil, fmt.Errorf("config Kafka brokers not found")
	}

	mediaWriter := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    TopicMediaEvents,
		Balancer: &kafka.LeastBytes{},
	}

	workflowWriter := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    TopicWorkflowEvents,
		Balancer: &kafka.LeastBytes{},
	}

	return &KafkaProducerClient{
		MediaEventsWriter:    mediaWriter,
		WorkflowEventsWriter: workflowWriter,
	}, nil
}

func (c *KafkaProducerClient) PublishMediaEvent(ctx context.Context, payload MediaEventPayload) error {
	if payload.OccurredAt.IsZero() {
		payload.OccurredAt = time.Now().UTC()
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal media event: %w", err)
	}
	return c.MediaEventsWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(payload.MediaID.String()),
		Value: value,
	})
}

func (c *KafkaProducerClient) PublishWorkflowRequest(ctx context.Context, payload WorkflowRequestPayload) error {
	if payload.RequestedAt.IsZero() {
		payload.RequestedAt = time.Now().UTC()
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal workflow request: %w", err)
	}
	return c.WorkflowEventsWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(payload.UploadID),
		Value: value,
	})
}

func (c *KafkaProducerClient) Close() {
	if c.MediaEventsWriter != nil {
		c.MediaEventsWriter.Close()
	}
	if c.WorkflowEventsWriter != nil {
		c.WorkflowEventsWriter.Close()
	}
}
