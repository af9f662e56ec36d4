package workflow

import (
	"context"

	"github.com/agrostream/studio-api/internal/application/service"
	"github.com/agrostream/studio-api/pkg/apperror"
	"github.com/agrostream/studio-api/pkg/logger"
)

// CreateUploadUseCase provisions a pre-authorized direct-upload endpoint so
// the browser can push file chunks straight to the video host, bypassing
// this server for the bulk data path.
type CreateUploadUseCase struct {
	host   service.VideoHost
	logger logger.Logger
}

func NewCreateUploadUseCase(host service.VideoHost, log logger.Logger) *CreateUploadUseCase {
	return &CreateUploadUseCase{host: host, logger: log}
}

type CreateUploadOutput struct {
	UploadID  string
	UploadURL string
}

func (uc *CreateUploadUseCase) Execute(ctx context.Context) (*CreateUploadOutput, error) {
	upload, err := uc.host.CreateDirectUpload(ctx)
	if err != nil {
		return nil, apperror.NewUpstream("video host", "failed to create direct upload", err)
	}
	return &CreateUploadOutput{UploadID: upload.ID, UploadURL: upload.URL}, nil
}
