package dto

import "time"

// CreateJobRequest тело запроса на создание задания.
// Денежные поля — в минорных единицах валюты.
type CreateJobRequest struct {
	Title            string     `json:"title" binding:"required"`
	Description      string     `json:"description" binding:"required"`
	BudgetMin        int64      `json:"budget_min"`
	BudgetMax        int64      `json:"budget_max"`
	BudgetNegotiable bool       `json:"budget_negotiable"`
	Latitude         float64    `json:"latitude" binding:"required"`
	Longitude        float64    `json:"longitude" binding:"required"`
	Address          string     `json:"address"`
	PreferredDate    *time.Time `json:"preferred_date"`
	TimeStart        *string    `json:"time_start"`
	TimeEnd          *string    `json:"time_end"`
	Skills           []string   `json:"skills"`
	ExperienceLevel  *string    `json:"experience_level"`
	VerifiedOnly     bool       `json:"verified_only"`
}

// CompleteJobRequest тело запроса на завершение задания. Отзыв
// опционален и записывается на вторую сторону.
type CompleteJobRequest struct {
	Rating  int    `json:"rating"`
	Title   string `json:"review_title"`
	Content string `json:"review_content"`
}

// CancelJobRequest тело запроса на отмену задания.
type CancelJobRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// AttachPhotoRequest привязка загруженного файла к заданию.
type AttachPhotoRequest struct {
	MediaID string `json:"media_id" binding:"required"`
}

// CreateIntentRequest тело запроса на создание платёжного намерения.
type CreateIntentRequest struct {
	JobID    string `json:"job_id" binding:"required"`
	Amount   int64  `json:"amount" binding:"required,gt=0"`
	Currency string `json:"currency" binding:"required"`
}

// OpenDisputeRequest тело запроса на открытие спора по платежу.
type OpenDisputeRequest struct {
	Reason      string `json:"reason" binding:"required"`
	Description string `json:"description"`
}

// ResolveDisputeRequest тело запроса на решение спора администратором.
type ResolveDisputeRequest struct {
	Resolution string `json:"resolution" binding:"required"`
}

// ReviewCategoriesRequest необязательные оценки по категориям.
type ReviewCategoriesRequest struct {
	Communication   *int `json:"communication"`
	Quality         *int `json:"quality"`
	Timeliness      *int `json:"timeliness"`
	Professionalism *int `json:"professionalism"`
	Value           *int `json:"value"`
}

// CreateReviewRequest тело запроса на создание отзыва.
type CreateReviewRequest struct {
	JobID      string                  `json:"job_id" binding:"required"`
	Rating     int                     `json:"rating" binding:"required"`
	Title      string                  `json:"title"`
	Content    string                  `json:"content" binding:"required"`
	Categories ReviewCategoriesRequest `json:"categories"`
}

// UpdateReviewRequest тело запроса на изменение отзыва.
type UpdateReviewRequest struct {
	Rating     int                     `json:"rating" binding:"required"`
	Title      string                  `json:"title"`
	Content    string                  `json:"content" binding:"required"`
	Categories ReviewCategoriesRequest `json:"categories"`
}

// MarkHelpfulRequest выставление или снятие отметки «полезно».
// Указатель отличает явный false от отсутствующего поля.
type MarkHelpfulRequest struct {
	Helpful *bool `json:"helpful" binding:"required"`
}

// FlagReviewRequest тело жалобы на отзыв.
type FlagReviewRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RespondReviewRequest ответ получателя отзыва.
type RespondReviewRequest struct {
	Content string `json:"content" binding:"required"`
}

// ModerateReviewRequest решение модератора по отзыву.
type ModerateReviewRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateLocationRequest обновление геопозиции исполнителя.
type UpdateLocationRequest struct {
	Latitude  float64 `json:"latitude" binding:"required"`
	Longitude float64 `json:"longitude" binding:"required"`
}

// SeedRequest параметры генерации демо-данных.
type SeedRequest struct {
	NumUsers int `json:"num_users"`
	NumJobs  int `json:"num_jobs"`
}
