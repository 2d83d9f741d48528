package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/localhelp-backend/internal/dto"
	"github.com/ignatzorin/localhelp-backend/internal/http/handlers/common"
	"github.com/ignatzorin/localhelp-backend/internal/models"
	"github.com/ignatzorin/localhelp-backend/internal/service"
)

type ReviewHandler struct {
	reviews *service.ReviewService
}

func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

func categoriesFromRequest(req dto.ReviewCategoriesRequest) models.ReviewCategories {
	return models.ReviewCategories{
		Communication:   req.Communication,
		Quality:         req.Quality,
		Timeliness:      req.Timeliness,
		Professionalism: req.Professionalism,
		Value:           req.Value,
	}
}

// CreateReview POST /reviews
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	jobID, err := uuid.Parse(req.JobID)
	if err != nil {
		common.RespondBadRequest(c, "неверный job_id")
		return
	}

	review, err := h.reviews.CreateReview(c.Request.Context(), service.CreateReviewInput{
		JobID:      jobID,
		ReviewerID: userID,
		Rating:     req.Rating,
		Title:      req.Title,
		Content:    req.Content,
		Categories: categoriesFromRequest(req.Categories),
	})
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, review)
}

// UpdateReview PUT /reviews/:id
func (h *ReviewHandler) UpdateReview(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	reviewID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	review, err := h.reviews.UpdateReview(c.Request.Context(), service.UpdateReviewInput{
		ReviewID:   reviewID,
		ReviewerID: userID,
		Rating:     req.Rating,
		Title:      req.Title,
		Content:    req.Content,
		Categories: categoriesFromRequest(req.Categories),
	})
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

// DeleteReview DELETE /reviews/:id
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	reviewID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.reviews.DeleteReview(c.Request.Context(), reviewID, userID); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "отзыв удалён", nil)
}

// ListUserReviews GET /users/:id/reviews
func (h *ReviewHandler) ListUserReviews(c *gin.Context) {
	revieweeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	reviews, err := h.reviews.ListReviews(c.Request.Context(), revieweeID, limit, offset)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// MarkHelpful POST /reviews/:id/helpful
func (h *ReviewHandler) MarkHelpful(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	reviewID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.MarkHelpfulRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Helpful == nil {
		common.RespondBadRequest(c, "поле helpful обязательно")
		return
	}

	active, err := h.reviews.MarkHelpful(c.Request.Context(), reviewID, userID, *req.Helpful)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToggleResponse{Active: active})
}

// FlagReview POST /reviews/:id/flag
func (h *ReviewHandler) FlagReview(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	reviewID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.FlagReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "укажите причину жалобы")
		return
	}

	if err := h.reviews.FlagReview(c.Request.Context(), reviewID, userID, req.Reason); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "жалоба принята", nil)
}

// Respond POST /reviews/:id/response
func (h *ReviewHandler) Respond(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	reviewID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.RespondReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "текст ответа обязателен")
		return
	}

	review, err := h.reviews.Respond(c.Request.Context(), reviewID, userID, req.Content)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

// Moderate PUT /reviews/:id/moderate
func (h *ReviewHandler) Moderate(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	reviewID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ModerateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "укажите статус модерации")
		return
	}

	review, err := h.reviews.Moderate(c.Request.Context(), reviewID, userID, req.Status)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}
