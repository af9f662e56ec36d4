package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/agrostream/studio-api/adapters/aicontent"
	"github.com/agrostream/studio-api/adapters/event"
	"github.com/agrostream/studio-api/adapters/persistence"
	"github.com/agrostream/studio-api/adapters/transcription"
	"github.com/agrostream/studio-api/adapters/videohost"
	workflowUC "github.com/agrostream/studio-api/internal/application/usecase/workflow"
	"github.com/agrostream/studio-api/internal/config"
	"github.com/agrostream/studio-api/internal/domain/workflow"
	"github.com/agrostream/studio-api/pkg/logger"
)

func main() {
	fmt.Println("Starting Studio Worker...")

	// Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: cannot load config: %v", err)
	}

	appLogger := logger.NewZapLogger(cfg.App.Env)

	// Database
	dbPool, err := persistence.NewPostgresPool(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("cannot connect Postgres", err)
	}
	defer dbPool.Close()

	// Upstream clients
	videoHost, err := videohost.NewMuxClient(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize video host client", err)
	}
	transcriber, err := transcription.NewWhisperAdapter(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize transcriber", err)
	}
	generator, err := aicontent.NewOpenAIAdapter(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize AI generator", err)
	}

	kafkaClient, err := event.NewKafkaProducerClient(cfg)
	if err != nil {
		appLogger.Fatal("cannot init Kafka producer", err)
	}
	defer kafkaClient.Close()

	// Repositories
	mediaRepo := persistence.NewPostgresMediaRepo(dbPool, appLogger)

	// Worker Use Case
	workflowCfg := workflowUC.Config{
		PollInterval:   cfg.Workflow.PollInterval,
		UploadAttempts: cfg.Workflow.UploadAttempts,
		ReadyAttempts:  cfg.Workflow.ReadyAttempts,
	}
	processUploadUC := workflowUC.NewProcessUploadUseCase(videoHost, transcriber, generator, mediaRepo, kafkaClient, workflowCfg, appLogger)

	// Kafka Consumer
	requestConsumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    event.TopicWorkflowEvents,
		GroupID:  "upload-processor-group",
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	defer requestConsumer.Close()

	log.Printf("Worker listening on topic '%s'...", event.TopicWorkflowEvents)

	ctx := context.Background()
	for {
		msg, err := requestConsumer.ReadMessage(ctx)
		if err != nil {
			log.Printf("ERROR: Failed to read message from Kafka: %v", err)
			continue
		}

		log.Printf("Received message from [Topic: %s], [Key: %s]", msg.Topic, string(msg.Key))

		var payload event.WorkflowRequestPayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			log.Printf("ERROR: Failed to unmarshal request: %v. Skipping.", err)
			commitMessage(requestConsumer, msg)
			continue
		}

		log.Printf("Processing upload: %s", payload.UploadID)

		// Headless run: progress lines go to the log instead of a browser.
		emitter := logEmitter(appLogger, payload.UploadID)

		input := workflowUC.ProcessUploadInput{
			UploadID: payload.UploadID,
			Filename: payload.Filename,
			OwnerID:  payload.OwnerID,
		}
		if _, err := processUploadUC.Execute(ctx, input, emitter); err != nil {
			log.Printf("ERROR: Failed to process upload %s: %v", payload.UploadID, err)
			// Terminal pipeline failures are not retried; the media record
			// carries the errored status.
		}

		commitMessage(requestConsumer, msg)
	}
}

func logEmitter(l logger.Logger, uploadID string) workflow.Emitter {
	scoped := l.With(zap.String("upload_id", uploadID))
	return workflow.EmitterFunc(func(e workflow.Event) {
		switch e.Kind {
		case workflow.KindError:
			scoped.Error("Workflow progress", nil, zap.String("line", e.EncodeLine()))
		default:
			scoped.Info("Workflow progress", zap.String("line", e.EncodeLine()))
		}
	})
}

func commitMessage(consumer *kafka.Reader, msg kafka.Message) {
	if err := consumer.CommitMessages(context.Background(), msg); err != nil {
		log.Printf("ERROR: Failed to commit message: %v", err)
	}
}
