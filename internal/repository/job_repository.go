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

var (
	ErrJobNotFound = errors.New("job not found")
	// ErrJobNotOpen возвращается, когда условное обновление принятия
	// не прошло: задание уже занято или не в статусе open.
	ErrJobNotOpen = errors.New("job is not open for acceptance")
)

type JobRepository struct {
	db *sqlx.DB
}

func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create создаёт задание в статусе open.
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO jobs (
			creator_id, title, description, status, payment_status,
			budget_min, budget_max, budget_negotiable,
			latitude, longitude, address,
			preferred_date, time_start, time_end,
			skills, experience_level, verified_only
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRowxContext(ctx, query,
		job.CreatorID, job.Title, job.Description, models.JobStatusOpen, models.JobPaymentStatusUnpaid,
		job.BudgetMin, job.BudgetMax, job.BudgetNegotiable,
		job.Latitude, job.Longitude, job.Address,
		job.PreferredDate, job.TimeStart, job.TimeEnd,
		job.Skills, job.ExperienceLevel, job.VerifiedOnly,
	).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)
}

// GetByID возвращает задание по ID.
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return common.GetByID[models.Job](ctx, r.db, "jobs", id, ErrJobNotFound)
}

// ListFilterParams параметры выборки заданий.
type ListFilterParams struct {
	Status    string
	CreatorID *uuid.UUID
	HelperID  *uuid.UUID
	Limit     int
	Offset    int
}

// List возвращает задания по фильтру, новые первыми.
func (r *JobRepository) List(ctx context.Context, params ListFilterParams) ([]models.Job, error) {
	query := `SELECT * FROM jobs WHERE 1=1`
	args := []interface{}{}

	if params.Status != "" {
		args = append(args, params.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if params.CreatorID != nil {
		args = append(args, *params.CreatorID)
		query += fmt.Sprintf(" AND creator_id = $%d", len(args))
	}
	if params.HelperID != nil {
		args = append(args, *params.HelperID)
		query += fmt.Sprintf(" AND assigned_to = $%d", len(args))
	}

	args = append(args, params.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, params.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	var jobs []models.Job
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("job repository: list: %w", err)
	}
	return jobs, nil
}

// Accept атомарно назначает исполнителя: одно условное обновление
// по (status=open, assigned_to IS NULL), без чтения перед записью.
// Проигравший конкурентный запрос получает ErrJobNotOpen.
func (r *JobRepository) Accept(ctx context.Context, jobID, helperID uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := r.db.GetContext(ctx, &job, `
		UPDATE jobs
		SET status = $2, assigned_to = $3, accepted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $4 AND assigned_to IS NULL
		RETURNING *
	`, jobID, models.JobStatusAccepted, helperID, models.JobStatusOpen)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Отличаем занятое задание от несуществующего.
			if _, getErr := r.GetByID(ctx, jobID); getErr != nil {
				return nil, getErr
			}
			return nil, ErrJobNotOpen
		}
		return nil, fmt.Errorf("job repository: accept: %w", err)
	}
	return &job, nil
}

// Complete переводит задание в completed.
func (r *JobRepository) Complete(ctx context.Context, jobID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = $2, completed_at = NOW(), updated_at = NOW() WHERE id = $1
	`, jobID, models.JobStatusCompleted)
	if err != nil {
		return fmt.Errorf("job repository: complete: %w", err)
	}
	return nil
}

// Cancel терминально отменяет задание. Назначение снимается, чтобы
// assigned_to оставался заполненным только у активных и завершённых
// заданий; метаданные отмены фиксируют, кто и почему отменил.
func (r *JobRepository) Cancel(ctx context.Context, jobID, cancelledBy uuid.UUID, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = $2, assigned_to = NULL, accepted_at = NULL,
		    cancel_reason = $3, cancelled_by = $4, cancelled_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, jobID, models.JobStatusCancelled, reason, cancelledBy)
	if err != nil {
		return fmt.Errorf("job repository: cancel: %w", err)
	}
	return nil
}

// Reopen возвращает задание в open после отказа исполнителя:
// назначение и время принятия очищаются, метаданные отмены сохраняются.
func (r *JobRepository) Reopen(ctx context.Context, jobID, cancelledBy uuid.UUID, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = $2, assigned_to = NULL, accepted_at = NULL,
		    cancel_reason = $3, cancelled_by = $4, cancelled_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, jobID, models.JobStatusOpen, reason, cancelledBy)
	if err != nil {
		return fmt.Errorf("job repository: reopen: %w", err)
	}
	return nil
}

// Delete удаляет задание.
func (r *JobRepository) Delete(ctx context.Context, jobID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("job repository: delete: %w", err)
	}
	return nil
}

// MarkPaid переводит оплаченное задание в in_progress.
// Срабатывает только из статуса accepted.
func (r *JobRepository) MarkPaid(ctx context.Context, jobID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = $2, payment_status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
	`, jobID, models.JobStatusInProgress, models.JobPaymentStatusPaid, models.JobStatusAccepted)
	if err != nil {
		return fmt.Errorf("job repository: mark paid: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("job repository: mark paid rows: %w", err)
	}
	if rows == 0 {
		return ErrJobNotOpen
	}
	return nil
}

// MarkReleased завершает задание после выплаты исполнителю.
func (r *JobRepository) MarkReleased(ctx context.Context, jobID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = $2, payment_status = $3, completed_at = COALESCE(completed_at, NOW()), updated_at = NOW()
		WHERE id = $1
	`, jobID, models.JobStatusCompleted, models.JobPaymentStatusReleased)
	if err != nil {
		return fmt.Errorf("job repository: mark released: %w", err)
	}
	return nil
}

// SetPaymentStatus обновляет только статус оплаты задания.
func (r *JobRepository) SetPaymentStatus(ctx context.Context, jobID uuid.UUID, paymentStatus string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET payment_status = $2, updated_at = NOW() WHERE id = $1
	`, jobID, paymentStatus)
	if err != nil {
		return fmt.Errorf("job repository: set payment status: %w", err)
	}
	return nil
}

// IncrementViews увеличивает счётчик просмотров.
func (r *JobRepository) IncrementViews(ctx context.Context, jobID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET views_count = views_count + 1 WHERE id = $1
	`, jobID)
	if err != nil {
		return fmt.Errorf("job repository: increment views: %w", err)
	}
	return nil
}

// ToggleSave добавляет или убирает задание из сохранённых пользователя.
// Членство в job_saves и счётчик saved_count меняются в одной транзакции.
// Возвращает true, если задание сохранено после вызова.
func (r *JobRepository) ToggleSave(ctx context.Context, jobID, userID uuid.UUID) (bool, error) {
	var saved bool
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM job_saves WHERE job_id = $1 AND user_id = $2
		`, jobID, userID)
		if err != nil {
			return fmt.Errorf("toggle save delete: %w", err)
		}
		removed, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("toggle save rows: %w", err)
		}

		if removed > 0 {
			saved = false
			_, err = tx.ExecContext(ctx, `
				UPDATE jobs SET saved_count = saved_count - 1 WHERE id = $1
			`, jobID)
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO job_saves (job_id, user_id) VALUES ($1, $2)
		`, jobID, userID); err != nil {
			return fmt.Errorf("toggle save insert: %w", err)
		}
		saved = true
		_, err = tx.ExecContext(ctx, `
			UPDATE jobs SET saved_count = saved_count + 1 WHERE id = $1
		`, jobID)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("job repository: toggle save: %w", err)
	}
	return saved, nil
}

// AddAttachment прикрепляет загруженный файл к заданию.
func (r *JobRepository) AddAttachment(ctx context.Context, jobID, mediaID uuid.UUID) (*models.JobAttachment, error) {
	var att models.JobAttachment
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO job_attachments (job_id, media_id) VALUES ($1, $2)
		RETURNING id, job_id, media_id, created_at
	`, jobID, mediaID).StructScan(&att)
	if err != nil {
		return nil, fmt.Errorf("job repository: add attachment: %w", err)
	}
	return &att, nil
}

// ListAttachments возвращает вложения задания.
func (r *JobRepository) ListAttachments(ctx context.Context, jobID uuid.UUID) ([]models.JobAttachment, error) {
	var atts []models.JobAttachment
	err := r.db.SelectContext(ctx, &atts, `
		SELECT * FROM job_attachments WHERE job_id = $1 ORDER BY created_at
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("job repository: list attachments: %w", err)
	}
	return atts, nil
}
