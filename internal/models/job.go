package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Job описывает задание, размещённое заказчиком для исполнителей.
type Job struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	CreatorID         uuid.UUID       `db:"creator_id" json:"creator_id"`
	AssignedTo        *uuid.UUID      `db:"assigned_to" json:"assigned_to,omitempty"`
	Title             string          `db:"title" json:"title"`
	Description       string          `db:"description" json:"description"`
	Status            string          `db:"status" json:"status"`
	PaymentStatus     string          `db:"payment_status" json:"payment_status"`
	BudgetMin         int64           `db:"budget_min" json:"budget_min"`
	BudgetMax         int64           `db:"budget_max" json:"budget_max"`
	BudgetNegotiable  bool            `db:"budget_negotiable" json:"budget_negotiable"`
	Latitude          float64         `db:"latitude" json:"latitude"`
	Longitude         float64         `db:"longitude" json:"longitude"`
	Address           string          `db:"address" json:"address"`
	PreferredDate     *time.Time      `db:"preferred_date" json:"preferred_date,omitempty"`
	TimeStart         *string         `db:"time_start" json:"time_start,omitempty"`
	TimeEnd           *string         `db:"time_end" json:"time_end,omitempty"`
	Skills            pq.StringArray  `db:"skills" json:"skills"`
	ExperienceLevel   *string         `db:"experience_level" json:"experience_level,omitempty"`
	VerifiedOnly      bool            `db:"verified_only" json:"verified_only"`
	ViewsCount        int             `db:"views_count" json:"views_count"`
	ApplicationsCount int             `db:"applications_count" json:"applications_count"`
	SavedCount        int             `db:"saved_count" json:"saved_count"`
	CancelReason      *string         `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CancelledBy       *uuid.UUID      `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancelledAt       *time.Time      `db:"cancelled_at" json:"cancelled_at,omitempty"`
	AcceptedAt        *time.Time      `db:"accepted_at" json:"accepted_at,omitempty"`
	CompletedAt       *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
	Attachments       []JobAttachment `json:"attachments,omitempty"`
}

// IsParticipant проверяет, является ли пользователь участником задания.
func (j *Job) IsParticipant(userID uuid.UUID) bool {
	if j.CreatorID == userID {
		return true
	}
	return j.AssignedTo != nil && *j.AssignedTo == userID
}

// OtherParty возвращает второго участника задания относительно actor.
func (j *Job) OtherParty(actorID uuid.UUID) *uuid.UUID {
	if j.CreatorID == actorID {
		return j.AssignedTo
	}
	creator := j.CreatorID
	return &creator
}

// JobAttachment описывает фотографию, прикреплённую к заданию.
type JobAttachment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	JobID     uuid.UUID `db:"job_id" json:"job_id"`
	MediaID   uuid.UUID `db:"media_id" json:"media_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MediaFile описывает загруженный файл.
type MediaFile struct {
	ID        uuid.UUID `db:"id" json:"id"`
	OwnerID   uuid.UUID `db:"owner_id" json:"owner_id"`
	Path      string    `db:"path" json:"path"`
	MimeType  string    `db:"mime_type" json:"mime_type"`
	SizeBytes int64     `db:"size_bytes" json:"size_bytes"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
