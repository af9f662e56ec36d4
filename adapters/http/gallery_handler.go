package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	galleryUC "github.com/agrostream/studio-api/internal/application/usecase/gallery"
	"github.com/agrostream/studio-api/pkg/apperror"
)

type GalleryHandler struct {
	uploadUC *galleryUC.UploadImageUseCase
	listUC   *galleryUC.ListImagesUseCase
	deleteUC *galleryUC.DeleteImageUseCase
}

func NewGalleryHandler(
	uploadUC *galleryUC.UploadImageUseCase,
	listUC *galleryUC.ListImagesUseCase,
	deleteUC *galleryUC.DeleteImageUseCase,
) *GalleryHandler {
	return &GalleryHandler{
		uploadUC: uploadUC,
		listUC:   listUC,
		deleteUC: deleteUC,
	}
}

func (h *GalleryHandler) UploadImage(c *gin.Context) {
	ownerID, ok := GetOwnerIDFromGinContext(c)
	if !ok {
		c.Error(apperror.NewPermissionDenied("ownerID not found in context"))
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.Error(apperror.NewInvalidInput("image file is required", err))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.Error(apperror.NewInternal("failed to open uploaded file", err))
		return
	}
	defer file.Close()

	output, err := h.uploadUC.Execute(c.Request.Context(), galleryUC.UploadImageInput{
		OwnerID: ownerID,
		File:    file,
		Caption: c.PostForm("caption"),
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":  output.ImageID.String(),
		"url": output.URL,
	})
}

func (h *GalleryHandler) ListImages(c *gin.Context) {
	ownerID, ok := GetOwnerIDFromGinContext(c)
	if !ok {
		c.Error(apperror.NewPermissionDenied("ownerID not found in context"))
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))

	images, err := h.listUC.Execute(c.Request.Context(), galleryUC.ListImagesInput{
		OwnerID: ownerID,
		Limit:   limit,
		Offset:  (page - 1) * limit,
	})
	if err != nil {
		c.Error(err)
		return
	}

	dtos := make([]GalleryImageDTO, len(images))
	for i, img := range images {
		dtos[i] = ToGalleryImageDTO(img)
	}
	c.JSON(http.StatusOK, dtos)
}

func (h *GalleryHandler) DeleteImage(c *gin.Context) {
	ownerID, ok := GetOwnerIDFromGinContext(c)
	if !ok {
		c.Error(apperror.NewPermissionDenied("ownerID not found in context"))
		return
	}
	imageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperror.NewInvalidInput("invalid image ID", err))
		return
	}

	if err := h.deleteUC.Execute(c.Request.Context(), imageID, ownerID); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
