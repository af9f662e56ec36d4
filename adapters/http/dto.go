package http

import (
	"time"

	"github.com/agrostream/studio-api/internal/domain/gallery"
	"github.com/agrostream/studio-api/internal/domain/media"
)

// Media DTOs

type MediaDTO struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Summary         string     `json:"summary"`
	Transcript      string     `json:"transcript,omitempty"`
	AssetID         string     `json:"asset_id"`
	PlaybackID      *string    `json:"playback_id"`
	Filename        string     `json:"filename"`
	Status          string     `json:"status"`
	Playable        bool       `json:"playable"`
	DurationMinutes float64    `json:"duration_minutes"`
	ScheduledAt     *time.Time `json:"scheduled_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func ToMediaDTO(m *media.Item) MediaDTO {
	return MediaDTO{
		ID:              m.ID.String(),
		Title:           m.Title,
		Description:     m.Description,
		Summary:         m.Summary,
		Transcript:      m.Transcript,
		AssetID:         m.AssetID,
		PlaybackID:      m.PlaybackID,
		Filename:        m.Filename,
		Status:          string(m.Status),
		Playable:        m.Playable(),
		DurationMinutes: m.DurationMinutes,
		ScheduledAt:     m.ScheduledAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

type MediaSummaryDTO struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Status          string    `json:"status"`
	Playable        bool      `json:"playable"`
	DurationMinutes float64   `json:"duration_minutes"`
	CreatedAt       time.Time `json:"created_at"`
}

func ToMediaSummaryDTO(m *media.Item) MediaSummaryDTO {
	return MediaSummaryDTO{
		ID:              m.ID.String(),
		Title:           m.Title,
		Status:          string(m.Status),
		Playable:        m.Playable(),
		DurationMinutes: m.DurationMinutes,
		CreatedAt:       m.CreatedAt,
	}
}

type UpdateMediaRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Summary     string     `json:"summary"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

type RegenerateFieldRequest struct {
	Field string `json:"field" binding:"required,oneof=title description summary"`
}

// Workflow DTOs

type TriggerWorkflowRequest struct {
	UploadID string `json:"upload_id" binding:"required"`
	Filename string `json:"filename"`
}

// Gallery DTOs

type GalleryImageDTO struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	ThumbnailURL *string   `json:"thumbnail_url"`
	Caption      string    `json:"caption"`
	CreatedAt    time.Time `json:"created_at"`
}

func ToGalleryImageDTO(img *gallery.Image) GalleryImageDTO {
	return GalleryImageDTO{
		ID:           img.ID.String(),
		URL:          img.URL,
		ThumbnailURL: img.ThumbnailURL,
		Caption:      img.Caption,
		CreatedAt:    img.CreatedAt,
	}
}
