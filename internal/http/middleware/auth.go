package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/localhelp-backend/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey  = "userID"
	ContextIsAdminKey = "isAdmin"
)

// AuthMiddleware проверяет JWT access токен. Выдача токенов остаётся
// за внешним провайдером идентичности, здесь только верификация.
func AuthMiddleware(tokens *service.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
			return
		}

		raw := strings.TrimPrefix(auth, "Bearer ")
		userID, isAdmin, err := tokens.ParseAccess(raw)
		if err != nil || userID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "токен невалиден"})
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextIsAdminKey, isAdmin)
		c.Next()
	}
}

// OptionalAuth извлекает пользователя из токена, если он передан, но
// не требует авторизации. Используется на публичных маршрутах, где
// поведение зависит от того, кто смотрит.
func OptionalAuth(tokens *service.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth != "" && strings.HasPrefix(auth, "Bearer ") {
			raw := strings.TrimPrefix(auth, "Bearer ")
			if userID, isAdmin, err := tokens.ParseAccess(raw); err == nil && userID != uuid.Nil {
				c.Set(ContextUserIDKey, userID)
				c.Set(ContextIsAdminKey, isAdmin)
			}
		}
		c.Next()
	}
}
