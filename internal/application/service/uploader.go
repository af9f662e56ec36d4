package service

import (
	"context"
	"io"
)

// ImageUploader stores gallery images with the image CDN and derives sized
// variants from the stored original.
type ImageUploader interface {
	Upload(ctx context.Context, file io.Reader, folder string, publicID string) (string, error)
	Delete(ctx context.Context, publicID string) error
	ThumbnailURL(publicID string) (string, error)
}
