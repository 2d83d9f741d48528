package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/localhelp-backend/internal/http/handlers/common"
	"github.com/ignatzorin/localhelp-backend/internal/models"
	"github.com/ignatzorin/localhelp-backend/internal/repository"
	"github.com/ignatzorin/localhelp-backend/internal/storage"
)

type MediaHandler struct {
	media   *repository.MediaRepository
	storage *storage.PhotoStorage
}

func NewMediaHandler(media *repository.MediaRepository, photoStorage *storage.PhotoStorage) *MediaHandler {
	return &MediaHandler{media: media, storage: photoStorage}
}

// UploadPhoto POST /media/photos — принимает multipart поле "photo".
func (h *MediaHandler) UploadPhoto(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		common.RespondBadRequest(c, "файл photo обязателен")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		common.RespondBadRequest(c, "не удалось прочитать файл")
		return
	}
	defer f.Close()

	relativePath, mimeType, size, err := h.storage.Save(c.Request.Context(), userID, fileHeader.Filename, f)
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	media := &models.MediaFile{
		OwnerID:   userID,
		Path:      relativePath,
		MimeType:  mimeType,
		SizeBytes: size,
	}
	if err := h.media.Create(c.Request.Context(), media); err != nil {
		// Файл уже на диске, но записи нет: убираем файл, чтобы не копить сирот.
		_ = h.storage.Delete(c.Request.Context(), relativePath)
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, media)
}

// DeleteMedia DELETE /media/:id
func (h *MediaHandler) DeleteMedia(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	mediaID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	media, err := h.media.GetByID(c.Request.Context(), mediaID)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			common.RespondError(c, http.StatusNotFound, "файл не найден")
			return
		}
		common.RespondServiceError(c, err)
		return
	}
	if media.OwnerID != userID {
		common.RespondError(c, http.StatusForbidden, "можно удалять только свои файлы")
		return
	}

	if err := h.media.Delete(c.Request.Context(), mediaID); err != nil {
		common.RespondServiceError(c, err)
		return
	}
	_ = h.storage.Delete(c.Request.Context(), media.Path)

	common.RespondSuccess(c, http.StatusOK, "файл удалён", nil)
}
