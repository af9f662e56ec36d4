package media

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agrostream/studio-api/adapters/event"
	"github.com/agrostream/studio-api/internal/domain/media"
	"github.com/agrostream/studio-api/pkg/logger"
)

// List

type ListMediaUseCase struct {
	mediaRepo media.Repository
}

func NewListMediaUseCase(r media.Repository) *ListMediaUseCase {
	return &ListMediaUseCase{mediaRepo: r}
}

type ListMediaInput struct {
	OwnerID uuid.UUID
	Limit   int
	Offset  int
}

type ListMediaOutput struct{ Items []*media.Item }

func (uc *ListMediaUseCase) Execute(ctx context.Context, in ListMediaInput) (*ListMediaOutput, error) {
	if in.Limit <= 0 {
		in.Limit = 30
	}
	if in.Offset < 0 {
		in.Offset = 0
	}
	items, err := uc.mediaRepo.ListByOwner(ctx, in.OwnerID, in.Limit, in.Offset)
	if err != nil {
		return nil, err
	}
	return &ListMediaOutput{Items: items}, nil
}

// Get

type GetMediaUseCase struct {
	mediaRepo media.Repository
}

func NewGetMediaUseCase(r media.Repository) *GetMediaUseCase {
	return &GetMediaUseCase{mediaRepo: r}
}

func (uc *GetMediaUseCase) Execute(ctx context.Context, id, ownerID uuid.UUID) (*media.Item, error) {
	return uc.mediaRepo.FindByID(ctx, id, ownerID)
}

// Update

type UpdateMediaUseCase struct {
	mediaRepo media.Repository
}

func NewUpdateMediaUseCase(r media.Repository) *UpdateMediaUseCase {
	return &UpdateMediaUseCase{mediaRepo: r}
}

type UpdateMediaInput struct {
	OwnerID     uuid.UUID
	MediaID     uuid.UUID
	Title       string
	Description string
	Summary     string
	ScheduledAt *time.Time
}

func (uc *UpdateMediaUseCase) Execute(ctx context.Context, in UpdateMediaInput) error {
	item, err := uc.mediaRepo.FindByID(ctx, in.MediaID, in.OwnerID)
	if err != nil {
		return err
	}
	item.Title = in.Title
	item.Description = in.Description
	item.Summary = in.Summary
	item.ScheduledAt = in.ScheduledAt
	item.UpdatedAt = time.Now().UTC()
	return uc.mediaRepo.Update(ctx, item)
}

// Delete

type DeleteMediaUseCase struct {
	mediaRepo media.Repository
	events    *event.KafkaProducerClient
	logger    logger.Logger
}

func NewDeleteMediaUseCase(r media.Repository, events *event.KafkaProducerClient, log logger.Logger) *DeleteMediaUseCase {
	return &DeleteMediaUseCase{mediaRepo: r, events: events, logger: log}
}

func (uc *DeleteMediaUseCase) Execute(ctx context.Context, id, ownerID uuid.UUID) error {
	item, err := uc.mediaRepo.FindByID(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if err := uc.mediaRepo.Delete(ctx, id, ownerID); err != nil {
		return err
	}

	if uc.events != nil {
		payload := event.MediaEventPayload{
			EventType: event.MediaEventTypeDeleted,
			MediaID:   item.ID,
			OwnerID:   item.OwnerID,
			AssetID:   item.AssetID,
		}
		go func() {
			if err := uc.events.PublishMediaEvent(context.Background(), payload); err != nil {
				uc.logger.Error("Failed to publish 'media.deleted' event", err, zap.String("media_id", item.ID.String()))
			}
		}()
	}
	return nil
}
