package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/localhelp-backend/internal/dto"
	"github.com/ignatzorin/localhelp-backend/internal/http/handlers/common"
	"github.com/ignatzorin/localhelp-backend/internal/repository"
	"github.com/ignatzorin/localhelp-backend/internal/service"
)

type UserHandler struct {
	users   *repository.UserRepository
	matcher *service.MatcherService
}

func NewUserHandler(users *repository.UserRepository, matcher *service.MatcherService) *UserHandler {
	return &UserHandler{users: users, matcher: matcher}
}

// GetProfile GET /users/:id — публичный профиль с агрегированным рейтингом.
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			common.RespondError(c, http.StatusNotFound, "пользователь не найден")
			return
		}
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// GetMe GET /profile
func (h *UserHandler) GetMe(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateLocation PUT /profile/location — обновляет геопозицию
// исполнителя и гео-индекс подбора.
func (h *UserHandler) UpdateLocation(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "координаты обязательны")
		return
	}

	if err := h.matcher.UpdateLocation(c.Request.Context(), userID, req.Latitude, req.Longitude); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "геопозиция обновлена", nil)
}
