package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/localhelp-backend/internal/models"
	"github.com/ignatzorin/localhelp-backend/internal/repository/common"
)

var ErrReviewNotFound = errors.New("review not found")

type ReviewRepository struct {
	db *sqlx.DB
}

func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create сохраняет отзыв. Уникальный индекс (job_id, reviewer_id)
// в схеме дублирует проверку «один отзыв на сторону задания».
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	query := `
		INSERT INTO reviews (
			job_id, reviewer_id, reviewee_id, rating, title, content, status,
			communication, quality, timeliness, professionalism, value
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRowxContext(ctx, query,
		review.JobID, review.ReviewerID, review.RevieweeID,
		review.Rating, review.Title, review.Content, review.Status,
		review.Communication, review.Quality, review.Timeliness,
		review.Professionalism, review.Value,
	).Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt)
}

// GetByID возвращает отзыв по ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	return common.GetByID[models.Review](ctx, r.db, "reviews", id, ErrReviewNotFound)
}

// GetByJobAndReviewer возвращает отзыв автора по конкретному заданию.
func (r *ReviewRepository) GetByJobAndReviewer(ctx context.Context, jobID, reviewerID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.GetContext(ctx, &review, `
		SELECT * FROM reviews WHERE job_id = $1 AND reviewer_id = $2
	`, jobID, reviewerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("review repository: get by job and reviewer: %w", err)
	}
	return &review, nil
}

// ListByReviewee возвращает отзывы о пользователе, новые первыми.
// Пустой status означает без фильтра по модерации.
func (r *ReviewRepository) ListByReviewee(ctx context.Context, revieweeID uuid.UUID, status string, limit, offset int) ([]models.Review, error) {
	query := `SELECT * FROM reviews WHERE reviewee_id = $1`
	args := []interface{}{revieweeID}

	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	var reviews []models.Review
	if err := r.db.SelectContext(ctx, &reviews, query, args...); err != nil {
		return nil, fmt.Errorf("review repository: list by reviewee: %w", err)
	}
	return reviews, nil
}

// ListApprovedByReviewee возвращает все одобренные отзывы о пользователе
// для пересчёта рейтинга.
func (r *ReviewRepository) ListApprovedByReviewee(ctx context.Context, revieweeID uuid.UUID) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.SelectContext(ctx, &reviews, `
		SELECT * FROM reviews WHERE reviewee_id = $1 AND status = $2
	`, revieweeID, models.ReviewStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("review repository: list approved: %w", err)
	}
	return reviews, nil
}

// Update обновляет содержимое отзыва и возвращает его на модерацию.
func (r *ReviewRepository) Update(ctx context.Context, review *models.Review) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE reviews
		SET rating = $2, title = $3, content = $4, status = $5,
		    communication = $6, quality = $7, timeliness = $8,
		    professionalism = $9, value = $10, updated_at = NOW()
		WHERE id = $1
	`, review.ID, review.Rating, review.Title, review.Content, review.Status,
		review.Communication, review.Quality, review.Timeliness,
		review.Professionalism, review.Value)
	if err != nil {
		return fmt.Errorf("review repository: update: %w", err)
	}
	return nil
}

// Delete удаляет отзыв вместе с отметками полезности и жалобами.
func (r *ReviewRepository) Delete(ctx context.Context, reviewID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, reviewID)
	if err != nil {
		return fmt.Errorf("review repository: delete: %w", err)
	}
	return nil
}

// SetStatus обновляет статус модерации отзыва.
func (r *ReviewRepository) SetStatus(ctx context.Context, reviewID uuid.UUID, status string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE reviews SET status = $2, updated_at = NOW() WHERE id = $1
	`, reviewID, status)
	if err != nil {
		return fmt.Errorf("review repository: set status: %w", err)
	}
	return nil
}

// SetHelpful приводит отметку «полезно» пользователя к заданному
// состоянию: повторная отметка и снятие отсутствующей — no-op.
// Счётчик helpful_count пересчитывается из таблицы членства, а не
// инкрементируется, поэтому повторные вызовы не накручивают его.
func (r *ReviewRepository) SetHelpful(ctx context.Context, reviewID, userID uuid.UUID, helpful bool) error {
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if helpful {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO review_helpful (review_id, user_id) VALUES ($1, $2)
				ON CONFLICT (review_id, user_id) DO NOTHING
			`, reviewID, userID); err != nil {
				return fmt.Errorf("set helpful insert: %w", err)
			}
		} else {
			if _, err := tx.ExecContext(ctx, `
				DELETE FROM review_helpful WHERE review_id = $1 AND user_id = $2
			`, reviewID, userID); err != nil {
				return fmt.Errorf("set helpful delete: %w", err)
			}
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE reviews
			SET helpful_count = (SELECT COUNT(*) FROM review_helpful WHERE review_id = $1)
			WHERE id = $1
		`, reviewID)
		return err
	})
	if err != nil {
		return fmt.Errorf("review repository: set helpful: %w", err)
	}
	return nil
}

// UpsertFlag сохраняет жалобу на отзыв. Повторная жалоба того же
// пользователя перезаписывает причину, а не создаёт дубликат.
func (r *ReviewRepository) UpsertFlag(ctx context.Context, reviewID, userID uuid.UUID, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO review_flags (review_id, user_id, reason)
		VALUES ($1, $2, $3)
		ON CONFLICT (review_id, user_id) DO UPDATE SET reason = EXCLUDED.reason
	`, reviewID, userID, reason)
	if err != nil {
		return fmt.Errorf("review repository: upsert flag: %w", err)
	}
	return nil
}

// SetResponse записывает единственный ответ на отзыв.
func (r *ReviewRepository) SetResponse(ctx context.Context, reviewID uuid.UUID, content string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE reviews SET response_content = $2, responded_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, reviewID, content)
	if err != nil {
		return fmt.Errorf("review repository: set response: %w", err)
	}
	return nil
}
