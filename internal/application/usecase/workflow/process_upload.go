package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/agrostream/studio-api/adapters/event"
	"github.com/agrostream/studio-api/internal/application/service"
	"github.com/agrostream/studio-api/internal/domain/media"
	"github.com/agrostream/studio-api/internal/domain/workflow"
	"github.com/agrostream/studio-api/pkg/apperror"
	"github.com/agrostream/studio-api/pkg/logger"
	"github.com/agrostream/studio-api/pkg/poll"
)

var tracer = otel.Tracer("workflow_usecase")

// Config bounds the two dependent readiness polls. The asset-id wait is the
// short one; the transcode-and-master wait gets the five minute budget.
type Config struct {
	PollInterval   time.Duration
	UploadAttempts int
	ReadyAttempts  int
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.UploadAttempts <= 0 {
		c.UploadAttempts = 20
	}
	if c.ReadyAttempts <= 0 {
		c.ReadyAttempts = 150
	}
	return c
}

// ProcessUploadUseCase runs the whole post-upload pipeline: resolve the
// asset behind an upload id, wait for transcoding and master export,
// persist a record, transcribe, generate metadata fields, persist again.
// Progress is pushed to the given Emitter as it happens.
type ProcessUploadUseCase struct {
	host        service.VideoHost
	transcriber service.Transcriber
	generator   service.Generator
	mediaRepo   media.Repository
	events      *event.KafkaProducerClient
	cfg         Config
	logger      logger.Logger
}

func NewProcessUploadUseCase(
	host service.VideoHost,
	transcriber service.Transcriber,
	generator service.Generator,
	mediaRepo media.Repository,
	events *event.KafkaProducerClient,
	cfg Config,
	log logger.Logger,
) *ProcessUploadUseCase {
	return &ProcessUploadUseCase{
		host:        host,
		transcriber: transcriber,
		generator:   generator,
		mediaRepo:   mediaRepo,
		events:      events,
		cfg:         cfg.withDefaults(),
		logger:      log,
	}
}

type ProcessUploadInput struct {
	UploadID string
	Filename string
	OwnerID  uuid.UUID
}

type ProcessUploadOutput struct {
	MediaID uuid.UUID
}

// Execute drives the pipeline to completion or to its first fatal error.
// Every failure is also reported in-band through emit; the returned error is
// for the caller's bookkeeping, the emitted lines are what the user sees.
func (uc *ProcessUploadUseCase) Execute(ctx context.Context, input ProcessUploadInput, emit workflow.Emitter) (*ProcessUploadOutput, error) {
	ctx, span := tracer.Start(ctx, "ProcessUpload")
	defer span.End()
	span.SetAttributes(attribute.String("upload_id", input.UploadID))

	l := uc.logger.With(zap.String("upload_id", input.UploadID))

	if input.UploadID == "" {
		emit.Emit(workflow.Errorf("Missing upload id"))
		return nil, apperror.NewInvalidInput("upload_id is required", nil)
	}

	emit.Emit(workflow.Step(workflow.StepProcessing))
	emit.Emit(workflow.Info("Checking upload status with the video host..."))

	assetID, err := uc.resolveAssetID(ctx, input.UploadID)
	if err != nil {
		if cancelled(ctx) {
			emit.Emit(workflow.Info("Processing cancelled."))
			return nil, ctx.Err()
		}
		emit.Emit(workflow.Errorf("Could not resolve the video asset: %v", err))
		return nil, err
	}
	l = l.With(zap.String("asset_id", assetID))
	emit.Emit(workflow.Infof("Asset identified: %s. Waiting for the host to prepare the video...", assetID))

	asset, err := uc.waitUntilFullyReady(ctx, assetID, emit)
	if err != nil {
		if cancelled(ctx) {
			emit.Emit(workflow.Info("Processing cancelled."))
			return nil, ctx.Err()
		}
		emit.Emit(workflow.Errorf("Video processing failed on the host: %v", err))
		return nil, apperror.NewUpstream("video host", "asset reached a terminal error state", err)
	}

	playbackID := asset.FirstPlaybackID()
	if playbackID != "" {
		emit.Emit(workflow.Infof("Playback ID obtained: %s", playbackID))
	} else {
		emit.Emit(workflow.Info("Playback ID obtained: none"))
	}

	item := uc.newItem(input, asset, playbackID)
	persisted := true
	if err := uc.mediaRepo.Save(ctx, item); err != nil {
		persisted = false
		l.Warn("Failed to persist initial media record, continuing in-memory", zap.Error(err))
		emit.Emit(workflow.Infof("Warning: could not save the record yet (%v). Continuing.", err))
	} else {
		emit.Emit(workflow.Info("Record created in the database."))
	}

	emit.Emit(workflow.Step(workflow.StepTranscribe))
	emit.Emit(workflow.Info("Starting transcription..."))

	transcript, err := uc.transcribe(ctx, asset)
	if err != nil {
		if cancelled(ctx) {
			emit.Emit(workflow.Info("Processing cancelled."))
			return nil, ctx.Err()
		}
		emit.Emit(workflow.Errorf("Transcription failed: %v", err))
		uc.markErrored(ctx, item, persisted, l)
		uc.publish(event.MediaEventTypeFailed, item)
		return nil, apperror.NewUpstream("transcription service", "transcription failed", err)
	}
	emit.Emit(workflow.Success("Transcription complete."))

	item.Transcript = transcript
	uc.update(ctx, item, persisted, "transcript", emit, l)

	emit.Emit(workflow.Step(workflow.StepGenerate))
	emit.Emit(workflow.Info("Generating smart metadata..."))

	uc.generateFields(ctx, item, transcript, emit, l)
	emit.Emit(workflow.Success("AI content generated."))

	item.Status = media.StatusReady
	uc.update(ctx, item, persisted, "AI metadata", emit, l)

	uc.publish(event.MediaEventTypeProcessed, item)

	emit.Emit(workflow.Step(workflow.StepDone))
	emit.Emit(workflow.Success("Processing complete!"))
	l.Info("Upload workflow finished", zap.String("media_id", item.ID.String()))

	return &ProcessUploadOutput{MediaID: item.ID}, nil
}

// resolveAssetID polls the upload until the host assigns an asset id.
// Exhausting the budget here is fatal: nothing downstream can run without
// the asset.
func (uc *ProcessUploadUseCase) resolveAssetID(ctx context.Context, uploadID string) (string, error) {
	res := poll.Until(ctx, poll.Config{Interval: uc.cfg.PollInterval, MaxAttempts: uc.cfg.UploadAttempts},
		func(ctx context.Context, attempt int) (string, poll.Verdict, error) {
			up, err := uc.host.GetUpload(ctx, uploadID)
			if err != nil {
				return "", poll.Errored, err
			}
			if up.AssetID != "" {
				return up.AssetID, poll.Ready, nil
			}
			return "", poll.Pending, nil
		})

	switch res.Status {
	case poll.StatusReady:
		return res.Payload, nil
	case poll.StatusTimedOut:
		return "", apperror.NewTimeout("asset id resolution")
	default:
		return "", res.Err
	}
}

// waitUntilFullyReady polls the asset until transcoding and master export
// are both ready. A timeout is soft: the last observed asset state is
// returned and downstream steps are allowed to fail on their own terms. A
// terminal host error is returned as an error.
func (uc *ProcessUploadUseCase) waitUntilFullyReady(ctx context.Context, assetID string, emit workflow.Emitter) (*service.Asset, error) {
	var nudged bool
	var lastSeen *service.Asset

	res := poll.Until(ctx, poll.Config{Interval: uc.cfg.PollInterval, MaxAttempts: uc.cfg.ReadyAttempts},
		func(ctx context.Context, attempt int) (*service.Asset, poll.Verdict, error) {
			asset, err := uc.host.GetAsset(ctx, assetID)
			if err != nil {
				return nil, poll.Errored, err
			}
			lastSeen = asset

			if asset.Status == service.AssetStatusErrored {
				return nil, poll.Errored, errors.New("asset transcoding errored")
			}

			// The master export does not start by itself for every asset;
			// nudge it once if the host reports it neither ready nor being
			// prepared.
			if !nudged && asset.MasterStatus != service.MasterStatusReady && asset.MasterStatus != service.MasterStatusPreparing {
				nudged = true
				if err := uc.host.EnableMasterAccess(ctx, assetID); err != nil {
					uc.logger.Warn("Failed to enable master access", zap.String("asset_id", assetID), zap.Error(err))
				}
			}

			if asset.FullyReady() {
				return asset, poll.Ready, nil
			}
			if attempt%10 == 0 {
				emit.Emit(workflow.Info("...still processing on the video host..."))
			}
			return nil, poll.Pending, nil
		})

	switch res.Status {
	case poll.StatusReady:
		emit.Emit(workflow.Success("Video and master file ready."))
		return res.Payload, nil
	case poll.StatusTimedOut:
		emit.Emit(workflow.Info("Warning: the master file is not ready yet. Transcription may fail."))
		if lastSeen != nil {
			return lastSeen, nil
		}
		return &service.Asset{ID: assetID}, nil
	default:
		return nil, res.Err
	}
}

func (uc *ProcessUploadUseCase) transcribe(ctx context.Context, asset *service.Asset) (string, error) {
	if asset.MasterURL == "" {
		return "", errors.New("master file URL is not available")
	}
	return uc.transcriber.Transcribe(ctx, asset.MasterURL)
}

// generateFields fans out the three metadata generations concurrently. Each
// field fails on its own: a dead title call must not cost us the summary.
// Failed fields keep their fallback values (filename-derived title, empty
// description and summary).
func (uc *ProcessUploadUseCase) generateFields(ctx context.Context, item *media.Item, transcript string, emit workflow.Emitter, l logger.Logger) {
	kinds := []service.FieldKind{service.FieldTitle, service.FieldDescription, service.FieldSummary}
	results := make(map[service.FieldKind]string, len(kinds))
	failures := make(map[service.FieldKind]error, len(kinds))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, kind := range kinds {
		wg.Add(1)
		go func(kind service.FieldKind) {
			defer wg.Done()
			text, err := uc.generator.Generate(ctx, transcript, kind)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[kind] = err
				return
			}
			results[kind] = text
		}(kind)
	}
	wg.Wait()

	for _, kind := range kinds {
		if err, ok := failures[kind]; ok {
			l.Warn("Field generation failed, keeping fallback", zap.String("field", string(kind)), zap.Error(err))
			emit.Emit(workflow.Infof("Warning: %s generation failed, keeping the default.", kind))
		}
	}

	if title := results[service.FieldTitle]; title != "" {
		item.Title = title
	}
	item.Description = results[service.FieldDescription]
	item.Summary = results[service.FieldSummary]
}

func (uc *ProcessUploadUseCase) newItem(input ProcessUploadInput, asset *service.Asset, playbackID string) *media.Item {
	now := time.Now().UTC()
	item := &media.Item{
		ID:              uuid.New(),
		OwnerID:         input.OwnerID,
		Title:           media.TitleFromFilename(input.Filename),
		AssetID:         asset.ID,
		Filename:        input.Filename,
		Status:          media.StatusProcessing,
		DurationMinutes: asset.DurationSeconds / 60,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if playbackID != "" {
		item.PlaybackID = &playbackID
	}
	return item
}

// update applies the warn-and-continue persistence policy: a failed save
// never aborts the run, the in-memory item stays authoritative and the
// caller is told through a warning line.
func (uc *ProcessUploadUseCase) update(ctx context.Context, item *media.Item, persisted bool, what string, emit workflow.Emitter, l logger.Logger) {
	if !persisted {
		return
	}
	item.UpdatedAt = time.Now().UTC()
	if err := uc.mediaRepo.Update(ctx, item); err != nil {
		l.Warn("Failed to persist "+what, zap.Error(err))
		emit.Emit(workflow.Infof("Warning: could not save %s (%v). Continuing.", what, err))
		return
	}
	emit.Emit(workflow.Infof("Saved %s to the database.", what))
}

func (uc *ProcessUploadUseCase) markErrored(ctx context.Context, item *media.Item, persisted bool, l logger.Logger) {
	if !persisted {
		return
	}
	item.Status = media.StatusErrored
	item.UpdatedAt = time.Now().UTC()
	if err := uc.mediaRepo.Update(ctx, item); err != nil {
		l.Warn("Failed to mark media errored", zap.Error(err))
	}
}

func (uc *ProcessUploadUseCase) publish(eventType event.MediaEventType, item *media.Item) {
	if uc.events == nil {
		return
	}
	payload := event.MediaEventPayload{
		EventType: eventType,
		MediaID:   item.ID,
		OwnerID:   item.OwnerID,
		AssetID:   item.AssetID,
	}
	if item.PlaybackID != nil {
		payload.PlaybackID = *item.PlaybackID
	}
	go func() {
		if err := uc.events.PublishMediaEvent(context.Background(), payload); err != nil {
			uc.logger.Error("Failed to publish media event", err, zap.String("media_id", item.ID.String()))
		}
	}()
}

func cancelled(ctx context.Context) bool {
	return ctx.Err() != nil
}
