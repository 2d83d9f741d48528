package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/localhelp-backend/internal/dto"
	"github.com/ignatzorin/localhelp-backend/internal/http/handlers/common"
	"github.com/ignatzorin/localhelp-backend/internal/repository"
	"github.com/ignatzorin/localhelp-backend/internal/service"
)

type JobHandler struct {
	jobs    *service.JobService
	matcher *service.MatcherService
}

func NewJobHandler(jobs *service.JobService, matcher *service.MatcherService) *JobHandler {
	return &JobHandler{jobs: jobs, matcher: matcher}
}

// CreateJob POST /jobs
func (h *JobHandler) CreateJob(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, err := h.jobs.CreateJob(c.Request.Context(), service.CreateJobInput{
		CreatorID:        userID,
		Title:            req.Title,
		Description:      req.Description,
		BudgetMin:        req.BudgetMin,
		BudgetMax:        req.BudgetMax,
		BudgetNegotiable: req.BudgetNegotiable,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		Address:          req.Address,
		PreferredDate:    req.PreferredDate,
		TimeStart:        req.TimeStart,
		TimeEnd:          req.TimeEnd,
		Skills:           req.Skills,
		ExperienceLevel:  req.ExperienceLevel,
		VerifiedOnly:     req.VerifiedOnly,
	})
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, job)
}

// GetJob GET /jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, err := h.jobs.GetJob(c.Request.Context(), jobID, common.OptionalUserID(c))
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListJobs GET /jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	params := repository.ListFilterParams{
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	}

	jobs, err := h.jobs.ListJobs(c.Request.Context(), params)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// ListMyJobs GET /jobs/my — задания, где пользователь заказчик или исполнитель.
func (h *JobHandler) ListMyJobs(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	params := repository.ListFilterParams{
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	}
	switch c.Query("role") {
	case "helper":
		params.HelperID = &userID
	default:
		params.CreatorID = &userID
	}

	jobs, err := h.jobs.ListJobs(c.Request.Context(), params)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// AcceptJob POST /jobs/:id/accept
func (h *JobHandler) AcceptJob(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, err := h.jobs.AcceptJob(c.Request.Context(), jobID, userID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// CompleteJob POST /jobs/:id/complete
func (h *JobHandler) CompleteJob(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	// Тело опционально: завершение может идти без отзыва.
	var req dto.CompleteJobRequest
	_ = c.ShouldBindJSON(&req)

	var review *service.CompletionReview
	if req.Rating > 0 {
		review = &service.CompletionReview{
			Rating:  req.Rating,
			Title:   req.Title,
			Content: req.Content,
		}
	}

	job, err := h.jobs.CompleteJob(c.Request.Context(), jobID, userID, review)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// CancelJob POST /jobs/:id/cancel
func (h *JobHandler) CancelJob(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.CancelJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "укажите причину отмены")
		return
	}

	job, err := h.jobs.CancelJob(c.Request.Context(), jobID, userID, req.Reason)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// DeleteJob DELETE /jobs/:id
func (h *JobHandler) DeleteJob(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.jobs.DeleteJob(c.Request.Context(), jobID, userID); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "задание удалено", nil)
}

// ToggleSave POST /jobs/:id/save
func (h *JobHandler) ToggleSave(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	saved, err := h.jobs.ToggleSave(c.Request.Context(), jobID, userID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToggleResponse{Active: saved})
}

// AttachPhoto POST /jobs/:id/photos
func (h *JobHandler) AttachPhoto(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.AttachPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	mediaID, err := uuid.Parse(req.MediaID)
	if err != nil {
		common.RespondBadRequest(c, "неверный media_id")
		return
	}

	attachment, err := h.jobs.AttachPhoto(c.Request.Context(), jobID, userID, mediaID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attachment)
}

// NearbyHelpers GET /jobs/:id/nearby-helpers — подходящие исполнители
// рядом с заданием. Доступно только автору задания.
func (h *JobHandler) NearbyHelpers(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, err := h.jobs.GetJob(c.Request.Context(), jobID, &userID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}
	if job.CreatorID != userID {
		common.RespondError(c, http.StatusForbidden, "доступно только автору задания")
		return
	}

	matched, err := h.matcher.FindEligibleHelpers(c.Request.Context(), jobID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	helpers := make([]dto.NearbyHelperResponse, 0, len(matched))
	for _, m := range matched {
		helpers = append(helpers, dto.NearbyHelperResponse{
			ID:         m.User.ID.String(),
			Username:   m.User.Username,
			Rating:     m.User.RatingAverage,
			IsVerified: m.User.IsVerified,
			DistKm:     m.DistKm,
		})
	}

	c.JSON(http.StatusOK, gin.H{"helpers": helpers})
}
