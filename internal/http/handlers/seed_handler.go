package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/localhelp-backend/internal/dto"
	"github.com/ignatzorin/localhelp-backend/internal/http/handlers/common"
	"github.com/ignatzorin/localhelp-backend/internal/repository"
	"github.com/ignatzorin/localhelp-backend/internal/service"
)

// SeedHandler генерирует демо-данные. Доступен только в development.
type SeedHandler struct {
	seed   *service.SeedService
	users  *repository.UserRepository
	tokens *service.TokenManager
}

// NewSeedHandler создаёт новый seed handler.
func NewSeedHandler(seed *service.SeedService, users *repository.UserRepository, tokens *service.TokenManager) *SeedHandler {
	return &SeedHandler{seed: seed, users: users, tokens: tokens}
}

// Seed генерирует демо-пользователей и задания.
// POST /api/seed
func (h *SeedHandler) Seed(c *gin.Context) {
	var req dto.SeedRequest
	if c.Request.Method == http.MethodGet {
		req.NumUsers = common.ParseIntQuery(c, "num_users", 30)
		req.NumJobs = common.ParseIntQuery(c, "num_jobs", 60)
	} else {
		_ = c.ShouldBindJSON(&req)
	}
	if req.NumUsers < 1 || req.NumUsers > 500 {
		req.NumUsers = 30
	}
	if req.NumJobs < 1 || req.NumJobs > 1000 {
		req.NumJobs = 60
	}

	if err := h.seed.SeedData(c.Request.Context(), req.NumUsers, req.NumJobs); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "демо-данные созданы",
		"num_users": req.NumUsers,
		"num_jobs":  req.NumJobs,
		"password":  "Password123",
	})
}

// DevToken выдаёт access токен для демо-аккаунта по email.
// POST /api/seed/token
func (h *SeedHandler) DevToken(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "email обязателен")
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		common.RespondError(c, http.StatusNotFound, "пользователь не найден")
		return
	}

	token, expiresAt, err := h.tokens.GenerateAccess(user)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"expires_at":   expiresAt,
		"user_id":      user.ID,
	})
}
