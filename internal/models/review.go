package models

import (
	"time"

	"github.com/google/uuid"
)

// Review описывает отзыв участника о втором участнике завершённого задания.
type Review struct {
	ID         uuid.UUID `db:"id" json:"id"`
	JobID      uuid.UUID `db:"job_id" json:"job_id"`
	ReviewerID uuid.UUID `db:"reviewer_id" json:"reviewer_id"`
	RevieweeID uuid.UUID `db:"reviewee_id" json:"reviewee_id"`
	Rating     int       `db:"rating" json:"rating"`
	Title      string    `db:"title" json:"title"`
	Content    string    `db:"content" json:"content"`
	Status     string    `db:"status" json:"status"`

	// Оценки по категориям, 1-5. Если не заданы при создании,
	// принимают значение общего рейтинга.
	Communication   int `db:"communication" json:"communication"`
	Quality         int `db:"quality" json:"quality"`
	Timeliness      int `db:"timeliness" json:"timeliness"`
	Professionalism int `db:"professionalism" json:"professionalism"`
	Value           int `db:"value" json:"value"`

	HelpfulCount int `db:"helpful_count" json:"helpful_count"`

	ResponseContent *string    `db:"response_content" json:"response_content,omitempty"`
	RespondedAt     *time.Time `db:"responded_at" json:"responded_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CategoryScores возвращает оценки по категориям в виде карты.
func (r *Review) CategoryScores() map[string]int {
	return map[string]int{
		"communication":   r.Communication,
		"quality":         r.Quality,
		"timeliness":      r.Timeliness,
		"professionalism": r.Professionalism,
		"value":           r.Value,
	}
}

// ReviewCategories необязательные оценки по категориям при создании отзыва.
type ReviewCategories struct {
	Communication   *int `json:"communication,omitempty"`
	Quality         *int `json:"quality,omitempty"`
	Timeliness      *int `json:"timeliness,omitempty"`
	Professionalism *int `json:"professionalism,omitempty"`
	Value           *int `json:"value,omitempty"`
}

// ReviewFlag жалоба пользователя на отзыв.
type ReviewFlag struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ReviewID  uuid.UUID `db:"review_id" json:"review_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Reason    string    `db:"reason" json:"reason"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
