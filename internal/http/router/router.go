package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/localhelp-backend/internal/config"
	"github.com/ignatzorin/localhelp-backend/internal/http/handlers"
	"github.com/ignatzorin/localhelp-backend/internal/http/middleware"
	"github.com/ignatzorin/localhelp-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	jobHandler *handlers.JobHandler,
	paymentHandler *handlers.PaymentHandler,
	reviewHandler *handlers.ReviewHandler,
	userHandler *handlers.UserHandler,
	notificationHandler *handlers.NotificationHandler,
	mediaHandler *handlers.MediaHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	seedHandler *handlers.SeedHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)
	r.StaticFS("/media", http.Dir(cfg.MediaStoragePath))

	api := r.Group("/api")

	if seedHandler != nil && cfg.Env == "development" {
		api.POST("/seed", seedHandler.Seed)
		api.GET("/seed", seedHandler.Seed)
		api.POST("/seed/token", seedHandler.DevToken)
	}

	// Публичные маршруты
	public := api.Group("/")
	public.Use(middleware.OptionalAuth(tokenManager))
	{
		public.GET("/jobs", jobHandler.ListJobs)
		public.GET("/jobs/:id", middleware.UUIDValidator("id"), jobHandler.GetJob)
		public.GET("/users/:id", middleware.UUIDValidator("id"), userHandler.GetProfile)
		public.GET("/users/:id/reviews", middleware.UUIDValidator("id"), reviewHandler.ListUserReviews)
	}
	api.GET("/ws", wsHandler.Handle)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/profile", userHandler.GetMe)
		protected.PUT("/profile/location", userHandler.UpdateLocation)

		writeRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)

		protected.POST("/jobs", writeRateLimit, jobHandler.CreateJob)
		protected.GET("/jobs/my", jobHandler.ListMyJobs)
		protected.POST("/jobs/:id/accept", middleware.UUIDValidator("id"), jobHandler.AcceptJob)
		protected.POST("/jobs/:id/complete", middleware.UUIDValidator("id"), jobHandler.CompleteJob)
		protected.POST("/jobs/:id/cancel", middleware.UUIDValidator("id"), jobHandler.CancelJob)
		protected.DELETE("/jobs/:id", middleware.UUIDValidator("id"), jobHandler.DeleteJob)
		protected.POST("/jobs/:id/save", middleware.UUIDValidator("id"), jobHandler.ToggleSave)
		protected.POST("/jobs/:id/photos", middleware.UUIDValidator("id"), jobHandler.AttachPhoto)
		protected.GET("/jobs/:id/nearby-helpers", middleware.UUIDValidator("id"), jobHandler.NearbyHelpers)

		protected.POST("/payments/intents", writeRateLimit, paymentHandler.CreateIntent)
		protected.GET("/payments", paymentHandler.ListMyPayments)
		protected.GET("/payments/:id", middleware.UUIDValidator("id"), paymentHandler.GetPayment)
		protected.POST("/payments/:id/confirm", middleware.UUIDValidator("id"), paymentHandler.Confirm)
		protected.POST("/payments/:id/release", middleware.UUIDValidator("id"), paymentHandler.Release)
		protected.POST("/payments/:id/dispute", middleware.UUIDValidator("id"), paymentHandler.OpenDispute)
		protected.POST("/payments/:id/dispute/resolve", middleware.UUIDValidator("id"), paymentHandler.ResolveDispute)

		protected.POST("/reviews", writeRateLimit, reviewHandler.CreateReview)
		protected.PUT("/reviews/:id", middleware.UUIDValidator("id"), reviewHandler.UpdateReview)
		protected.DELETE("/reviews/:id", middleware.UUIDValidator("id"), reviewHandler.DeleteReview)
		protected.POST("/reviews/:id/helpful", middleware.UUIDValidator("id"), reviewHandler.MarkHelpful)
		protected.POST("/reviews/:id/flag", middleware.UUIDValidator("id"), reviewHandler.FlagReview)
		protected.POST("/reviews/:id/response", middleware.UUIDValidator("id"), reviewHandler.Respond)
		protected.PUT("/reviews/:id/moderate", middleware.UUIDValidator("id"), reviewHandler.Moderate)

		protected.GET("/notifications", notificationHandler.ListNotifications)
		protected.GET("/notifications/unread/count", notificationHandler.CountUnread)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)

		protected.POST("/media/photos", mediaHandler.UploadPhoto)
		protected.DELETE("/media/:id", middleware.UUIDValidator("id"), mediaHandler.DeleteMedia)
	}

	return r
}
