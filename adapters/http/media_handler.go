package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agrostream/studio-api/internal/application/service"
	mediaUC "github.com/agrostream/studio-api/internal/application/usecase/media"
	"github.com/agrostream/studio-api/pkg/apperror"
	"github.com/agrostream/studio-api/pkg/logger"
)

type MediaHandler struct {
	listUC       *mediaUC.ListMediaUseCase
	getUC        *mediaUC.GetMediaUseCase
	updateUC     *mediaUC.UpdateMediaUseCase
	deleteUC     *mediaUC.DeleteMediaUseCase
	regenerateUC *mediaUC.RegenerateFieldUseCase
	signUC       *mediaUC.SignPlaybackUseCase
	logger       logger.Logger
}

func NewMediaHandler(
	listUC *mediaUC.ListMediaUseCase,
	getUC *mediaUC.GetMediaUseCase,
	updateUC *mediaUC.UpdateMediaUseCase,
	deleteUC *mediaUC.DeleteMediaUseCase,
	regenerateUC *mediaUC.RegenerateFieldUseCase,
	signUC *mediaUC.SignPlaybackUseCase,
	log logger.Logger,
) *MediaHandler {
	return &MediaHandler{
		listUC:       listUC,
		getUC:        getUC,
		updateUC:     updateUC,
		deleteUC:     deleteUC,
		regenerateUC: regenerateUC,
		signUC:       signUC,
		logger:       log,
	}
}

func (h *MediaHandler) ListMedia(c *gin.Context) {
	ownerID, ok := GetOwnerIDFromGinContext(c)
	if !ok {
		c.Error(apperror.NewPermissionDenied("ownerID not found in context"))
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))

	input := mediaUC.ListMediaInput{OwnerID: ownerID, Limit: limit, Offset: (page - 1) * limit}
	output, err := h.listUC.Execute(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}

	dtos := make([]MediaSummaryDTO, len(output.Items))
	for i, m := range output.Items {
		dtos[i] = ToMediaSummaryDTO(m)
	}
	c.JSON(http.StatusOK, dtos)
}

func (h *MediaHandler) GetMedia(c *gin.Context) {
	ownerID, ok := GetOwnerIDFromGinContext(c)
	if !ok {
		c.Error(apperror.NewPermissionDenied("ownerID not found in context"))
		return
	}
	mediaID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperror.NewInvalidInput("invalid media ID", err))
		return
	}

	item, err := h.getUC.Execute(c.Request.Context(), mediaID, ownerID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToMediaDTO(item))
}

func (h *MediaHandler) UpdateMedia(c *gin.Context) {
	ownerID, ok := GetOwnerIDFromGinContext(c)
	if !ok {
		c.Error(apperror.NewPermissionDenied("ownerID not found in context"))
		return
	}
	mediaID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperror.NewInvalidInput("invalid media ID", err))
		return
	}

	var req UpdateMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid request data", err))
		return
	}

	input := mediaUC.UpdateMediaInput{
		OwnerID:     ownerID,
		MediaID:     mediaID,
		Title:       req.Title,
		Description: req.Description,
		Summary:     req.Summary,
		ScheduledAt: req.ScheduledAt,
	}

	if err := h.updateUC.Execute(c.Request.Context(), input); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Media updated successfully"})
}

func (h *MediaHandler) DeleteMedia(c *gin.Context) {
	ownerID, ok := GetOwnerIDFromGinContext(c)
	if !ok {
		c.Error(apperror.NewPermissionDenied("ownerID not found in context"))
		return
	}
	mediaID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperror.NewInvalidInput("invalid media ID", err))
		return
	}

	if err := h.deleteUC.Execute(c.Request.Context(), mediaID, ownerID); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *MediaHandler) RegenerateField(c *gin.Context) {
	ownerID, ok := GetOwnerIDFromGinContext(c)
	if !ok {
		c.Error(apperror.NewPermissionDenied("ownerID not found in context"))
		return
	}
	mediaID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperror.NewInvalidInput("invalid media ID", err))
		return
	}

	var req RegenerateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid request data", err))
		return
	}

	input := mediaUC.RegenerateFieldInput{
		OwnerID: ownerID,
		MediaID: mediaID,
		Field:   service.FieldKind(req.Field),
	}

	output, err := h.regenerateUC.Execute(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"field": output.Field, "text": output.Text})
}

func (h *MediaHandler) SignPlayback(c *gin.Context) {
	ownerID, ok := GetOwnerIDFromGinContext(c)
	if !ok {
		c.Error(apperror.NewPermissionDenied("ownerID not found in context"))
		return
	}
	mediaID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperror.NewInvalidInput("invalid media ID", err))
		return
	}

	kind := service.PlaybackTokenVideo
	switch c.DefaultQuery("type", "video") {
	case "video":
		kind = service.PlaybackTokenVideo
	case "thumbnail":
		kind = service.PlaybackTokenThumbnail
	case "gif":
		kind = service.PlaybackTokenGIF
	case "storyboard":
		kind = service.PlaybackTokenStoryboard
	default:
		c.Error(apperror.NewInvalidInput("unknown playback token type", nil))
		return
	}

	output, err := h.signUC.Execute(c.Request.Context(), mediaUC.SignPlaybackInput{
		OwnerID: ownerID,
		MediaID: mediaID,
		Kind:    kind,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"playback_id": output.PlaybackID,
		"token":       output.Token,
	})
}
