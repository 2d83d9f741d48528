package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment представляет платёж за задание с удержанием средств в эскроу.
// Суммы хранятся в минорных единицах валюты (центы).
type Payment struct {
	ID              uuid.UUID `db:"id" json:"id"`
	JobID           uuid.UUID `db:"job_id" json:"job_id"`
	ClientID        uuid.UUID `db:"client_id" json:"client_id"`
	HelperID        uuid.UUID `db:"helper_id" json:"helper_id"`
	Amount          int64     `db:"amount" json:"amount"`
	Currency        string    `db:"currency" json:"currency"`
	PlatformFee     int64     `db:"platform_fee" json:"platform_fee"`
	HelperAmount    int64     `db:"helper_amount" json:"helper_amount"`
	Status          string    `db:"status" json:"status"`
	GatewayIntentID string    `db:"gateway_intent_id" json:"gateway_intent_id"`
	ClientSecret    *string   `db:"client_secret" json:"client_secret,omitempty"`

	// Эскроу
	ReleaseDate       *time.Time `db:"release_date" json:"release_date,omitempty"`
	AutoRelease       bool       `db:"auto_release" json:"auto_release"`
	ReleaseConditions *string    `db:"release_conditions" json:"release_conditions,omitempty"`

	// Спор
	IsDisputed         bool       `db:"is_disputed" json:"is_disputed"`
	DisputeReason      *string    `db:"dispute_reason" json:"dispute_reason,omitempty"`
	DisputeDescription *string    `db:"dispute_description" json:"dispute_description,omitempty"`
	DisputeResolution  *string    `db:"dispute_resolution" json:"dispute_resolution,omitempty"`
	DisputeResolvedBy  *uuid.UUID `db:"dispute_resolved_by" json:"dispute_resolved_by,omitempty"`
	DisputeResolvedAt  *time.Time `db:"dispute_resolved_at" json:"dispute_resolved_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsParticipant проверяет, является ли пользователь стороной платежа.
func (p *Payment) IsParticipant(userID uuid.UUID) bool {
	return p.ClientID == userID || p.HelperID == userID
}
