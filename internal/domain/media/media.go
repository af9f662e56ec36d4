package media

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusErrored    Status = "errored"
)

// Item is one published (or in-flight) video. Asset and playback ids are
// opaque identifiers owned by the video host; PlaybackID stays nil until the
// host assigns one, and the item is only playable once it is set.
type Item struct {
	ID              uuid.UUID  `json:"id"`
	OwnerID         uuid.UUID  `json:"owner_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Summary         string     `json:"summary"`
	Transcript      string     `json:"transcript"`
	AssetID         string     `json:"asset_id"`
	PlaybackID      *string    `json:"playback_id"`
	Filename        string     `json:"filename"`
	Status          Status     `json:"status"`
	DurationMinutes float64    `json:"duration_minutes"`
	ScheduledAt     *time.Time `json:"scheduled_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (i *Item) Playable() bool {
	return i.PlaybackID != nil && *i.PlaybackID != ""
}

// TitleFromFilename derives the default title used until the AI-generated
// one lands: the display filename without its extension.
func TitleFromFilename(filename string) string {
	if filename == "" {
		return "Untitled video"
	}
	if idx := strings.LastIndex(filename, "."); idx > 0 {
		return filename[:idx]
	}
	return filename
}

type Repository interface {
	Save(ctx context.Context, item *Item) error
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) (*Item, error)
	FindByAssetID(ctx context.Context, assetID string) (*Item, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*Item, error)
}
