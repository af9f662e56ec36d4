package gallery

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Image struct {
	ID           uuid.UUID `json:"id"`
	OwnerID      uuid.UUID `json:"owner_id"`
	URL          string    `json:"url"`
	ThumbnailURL *string   `json:"thumbnail_url"`
	Caption      string    `json:"caption"`
	CreatedAt    time.Time `json:"created_at"`
}

type Repository interface {
	Save(ctx context.Context, img *Image) error
	Delete(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) (*Image, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*Image, error)
}
