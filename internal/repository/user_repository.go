package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/localhelp-backend/internal/models"
	"github.com/ignatzorin/localhelp-backend/internal/repository/common"
)

var ErrUserNotFound = errors.New("user not found")

// statColumns белый список инкрементируемых счётчиков. Имя колонки
// подставляется в SQL, поэтому произвольные значения недопустимы.
var statColumns = map[string]struct{}{
	"jobs_posted":    {},
	"jobs_assigned":  {},
	"jobs_accepted":  {},
	"jobs_completed": {},
}

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create сохраняет пользователя (используется посевом демо-данных).
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (
			email, username, password_hash, account_type,
			is_active, is_verified, is_admin,
			latitude, longitude, address, payout_account
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRowxContext(ctx, query,
		user.Email, user.Username, user.PasswordHash, user.AccountType,
		user.IsActive, user.IsVerified, user.IsAdmin,
		user.Latitude, user.Longitude, user.Address, user.PayoutAccount,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

// GetByID возвращает пользователя по ID.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return common.GetByID[models.User](ctx, r.db, "users", id, ErrUserNotFound)
}

// GetByEmail возвращает пользователя по email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE email = $1`, email)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

// IncrementStat сдвигает один из счётчиков активности на delta,
// не опускаясь ниже нуля.
func (r *UserRepository) IncrementStat(ctx context.Context, userID uuid.UUID, column string, delta int) error {
	if _, ok := statColumns[column]; !ok {
		return fmt.Errorf("user repository: неизвестный счётчик %q", column)
	}
	query := fmt.Sprintf(`UPDATE users SET %s = GREATEST(%s + $2, 0), updated_at = NOW() WHERE id = $1`, column, column)
	if _, err := r.db.ExecContext(ctx, query, userID, delta); err != nil {
		return fmt.Errorf("user repository: increment %s: %w", column, err)
	}
	return nil
}

// UpdateRating записывает пересчитанную сводку рейтинга пользователя.
func (r *UserRepository) UpdateRating(ctx context.Context, userID uuid.UUID, rating models.UserRating) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			rating_average = $2, total_reviews = $3,
			rating_1_count = $4, rating_2_count = $5, rating_3_count = $6,
			rating_4_count = $7, rating_5_count = $8,
			avg_communication = $9, avg_quality = $10, avg_timeliness = $11,
			avg_professionalism = $12, avg_value = $13,
			updated_at = NOW()
		WHERE id = $1
	`, userID,
		rating.Average, rating.TotalReviews,
		rating.Distribution[0], rating.Distribution[1], rating.Distribution[2],
		rating.Distribution[3], rating.Distribution[4],
		rating.AvgCommunication, rating.AvgQuality, rating.AvgTimeliness,
		rating.AvgProfessionalism, rating.AvgValue,
	)
	if err != nil {
		return fmt.Errorf("user repository: update rating: %w", err)
	}
	return nil
}

// UpdateLocation сохраняет координаты пользователя.
func (r *UserRepository) UpdateLocation(ctx context.Context, userID uuid.UUID, lat, lon float64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET latitude = $2, longitude = $3, updated_at = NOW() WHERE id = $1
	`, userID, lat, lon)
	if err != nil {
		return fmt.Errorf("user repository: update location: %w", err)
	}
	return nil
}

// ListActiveHelpers возвращает активных исполнителей с известными
// координатами — резервный источник для поиска поблизости без Redis.
func (r *UserRepository) ListActiveHelpers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `
		SELECT * FROM users
		WHERE is_active = TRUE
		  AND account_type IN ($1, $2)
		  AND latitude IS NOT NULL AND longitude IS NOT NULL
	`, models.AccountTypeHelper, models.AccountTypeBoth)
	if err != nil {
		return nil, fmt.Errorf("user repository: list active helpers: %w", err)
	}
	return users, nil
}

// GetByIDs возвращает пользователей по списку ID.
func (r *UserRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("user repository: get by ids: %w", err)
	}
	query = r.db.Rebind(query)

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("user repository: get by ids: %w", err)
	}
	return users, nil
}
