package models

import (
	"time"

	"github.com/google/uuid"
)

// User описывает участника платформы: заказчика, исполнителя или обоих.
type User struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	Email         string     `db:"email" json:"email"`
	Username      string     `db:"username" json:"username"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	AccountType   string     `db:"account_type" json:"account_type"`
	IsActive      bool       `db:"is_active" json:"is_active"`
	IsVerified    bool       `db:"is_verified" json:"is_verified"`
	IsAdmin       bool       `db:"is_admin" json:"is_admin"`
	Latitude      *float64   `db:"latitude" json:"latitude,omitempty"`
	Longitude     *float64   `db:"longitude" json:"longitude,omitempty"`
	Address       *string    `db:"address" json:"address,omitempty"`
	PayoutAccount *string    `db:"payout_account" json:"payout_account,omitempty"`
	LastLoginAt   *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`

	// Счётчики активности. Инкрементируются ровно один раз на переход
	// состояния задания, никогда не пересчитываются из истории.
	JobsPosted    int `db:"jobs_posted" json:"jobs_posted"`
	JobsAssigned  int `db:"jobs_assigned" json:"jobs_assigned"`
	JobsAccepted  int `db:"jobs_accepted" json:"jobs_accepted"`
	JobsCompleted int `db:"jobs_completed" json:"jobs_completed"`

	// Агрегированный рейтинг. Пишется только агрегатором, читается как есть.
	RatingAverage float64 `db:"rating_average" json:"rating_average"`
	TotalReviews  int     `db:"total_reviews" json:"total_reviews"`
	Rating1Count  int     `db:"rating_1_count" json:"rating_1_count"`
	Rating2Count  int     `db:"rating_2_count" json:"rating_2_count"`
	Rating3Count  int     `db:"rating_3_count" json:"rating_3_count"`
	Rating4Count  int     `db:"rating_4_count" json:"rating_4_count"`
	Rating5Count  int     `db:"rating_5_count" json:"rating_5_count"`

	AvgCommunication   float64 `db:"avg_communication" json:"avg_communication"`
	AvgQuality         float64 `db:"avg_quality" json:"avg_quality"`
	AvgTimeliness      float64 `db:"avg_timeliness" json:"avg_timeliness"`
	AvgProfessionalism float64 `db:"avg_professionalism" json:"avg_professionalism"`
	AvgValue           float64 `db:"avg_value" json:"avg_value"`
}

// CanAcceptJobs проверяет, может ли пользователь брать задания.
func (u *User) CanAcceptJobs() bool {
	return u.IsActive && (u.AccountType == AccountTypeHelper || u.AccountType == AccountTypeBoth)
}

// UserRating сводка рейтинга для записи агрегатором.
type UserRating struct {
	Average      float64
	TotalReviews int
	Distribution [5]int

	AvgCommunication   float64
	AvgQuality         float64
	AvgTimeliness      float64
	AvgProfessionalism float64
	AvgValue           float64
}
