package media_storage

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/agrostream/studio-api/internal/application/service"
	"github.com/agrostream/studio-api/internal/config"
	"github.com/agrostream/studio-api/pkg/logger"
)

type cloudinaryAdapter struct {
	cld *cloudinary.Cloudinary
	log logger.Logger
}

func NewCloudinaryAdapter(cfg config.Config, log logger.Logger) (service.ImageUploader, error) {

	if cfg.Cloudinary.CloudName == "" {
		return nil, fmt.Errorf("cloudinary cloud_name has not been configured")
	}

	cld, err := cloudinary.NewFromParams(
		cfg.Cloudinary.CloudName,
		cfg.Cloudinary.ApiKey,
		cfg.Cloudinary.ApiSecret,
	)
	if err != nil {
		return nil, fmt.Errorf("cannot init cloudinary: %w", err)
	}

	log.Info("Cloudinary image uploader initialized")
	return &cloudinaryAdapter{cld: cld, log: log}, nil
}

func (a *cloudinaryAdapter) Upload(ctx context.Context, file io.Reader, folder string, publicID string) (string, error) {
	uploadParams := uploader.UploadParams{
		PublicID: publicID,
		Folder:   folder,
	}
	result, err := a.cld.Upload.Upload(ctx, file, uploadParams)
	if err != nil {
		return "", fmt.Errorf("failed to upload to cloudinary: %w", err)
	}
	return result.SecureURL, nil
}

func (a *cloudinaryAdapter) Delete(ctx context.Context, publicID string) error {
	_, err := a.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID: publicID,
	})
	if err != nil {
		return fmt.Errorf("failed to delete from cloudinary: %w", err)
	}
	return nil
}

func (a *cloudinaryAdapter) ThumbnailURL(publicID string) (string, error) {
	asset, err := a.cld.Image(publicID)
	if err != nil {
		return "", fmt.Errorf("failed to create cloudinary asset: %w", err)
	}
	asset.Transformation = "c_fill,g_auto,w_400,h_400"
	url, err := asset.String()
	if err != nil {
		return "", fmt.Errorf("failed to build thumbnail URL: %w", err)
	}
	return url, nil
}
