package gallery

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agrostream/studio-api/internal/application/service"
	"github.com/agrostream/studio-api/internal/domain/gallery"
	"github.com/agrostream/studio-api/pkg/apperror"
	"github.com/agrostream/studio-api/pkg/logger"
)

// UploadImageUseCase stores a gallery image with the image CDN and persists
// its record. The image body goes through this server (gallery images are
// small, unlike videos).
type UploadImageUseCase struct {
	galleryRepo gallery.Repository
	uploader    service.ImageUploader
	logger      logger.Logger
}

func NewUploadImageUseCase(r gallery.Repository, u service.ImageUploader, log logger.Logger) *UploadImageUseCase {
	return &UploadImageUseCase{galleryRepo: r, uploader: u, logger: log}
}

type UploadImageInput struct {
	OwnerID uuid.UUID
	File    io.Reader
	Caption string
}

type UploadImageOutput struct {
	ImageID uuid.UUID
	URL     string
}

func (uc *UploadImageUseCase) Execute(ctx context.Context, input UploadImageInput) (*UploadImageOutput, error) {
	imageID := uuid.New()
	folder := fmt.Sprintf("users/%s/gallery", input.OwnerID.String())

	url, err := uc.uploader.Upload(ctx, input.File, folder, imageID.String())
	if err != nil {
		return nil, apperror.NewInternal("failed to upload gallery image", err)
	}

	img := &gallery.Image{
		ID:        imageID,
		OwnerID:   input.OwnerID,
		URL:       url,
		Caption:   input.Caption,
		CreatedAt: time.Now().UTC(),
	}
	if thumb, err := uc.uploader.ThumbnailURL(imageID.String()); err == nil {
		img.ThumbnailURL = &thumb
	} else {
		uc.logger.Warn("Failed to build thumbnail URL", zap.String("image_id", imageID.String()), zap.Error(err))
	}

	if err := uc.galleryRepo.Save(ctx, img); err != nil {
		go uc.uploader.Delete(context.Background(), imageID.String())
		return nil, err
	}

	return &UploadImageOutput{ImageID: imageID, URL: url}, nil
}

// List

type ListImagesUseCase struct {
	galleryRepo gallery.Repository
}

func NewListImagesUseCase(r gallery.Repository) *ListImagesUseCase {
	return &ListImagesUseCase{galleryRepo: r}
}

type ListImagesInput struct {
	OwnerID uuid.UUID
	Limit   int
	Offset  int
}

func (uc *ListImagesUseCase) Execute(ctx context.Context, in ListImagesInput) ([]*gallery.Image, error) {
	if in.Limit <= 0 {
		in.Limit = 30
	}
	if in.Offset < 0 {
		in.Offset = 0
	}
	return uc.galleryRepo.ListByOwner(ctx, in.OwnerID, in.Limit, in.Offset)
}

// Delete

type DeleteImageUseCase struct {
	galleryRepo gallery.Repository
	uploader    service.ImageUploader
	logger      logger.Logger
}

func NewDeleteImageUseCase(r gallery.Repository, u service.ImageUploader, log logger.Logger) *DeleteImageUseCase {
	return &DeleteImageUseCase{galleryRepo: r, uploader: u, logger: log}
}

func (uc *DeleteImageUseCase) Execute(ctx context.Context, id, ownerID uuid.UUID) error {
	img, err := uc.galleryRepo.FindByID(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if err := uc.uploader.Delete(ctx, img.ID.String()); err != nil {
		uc.logger.Warn("Failed to delete image from CDN", zap.String("image_id", img.ID.String()), zap.Error(err))
	}
	return uc.galleryRepo.Delete(ctx, id, ownerID)
}
