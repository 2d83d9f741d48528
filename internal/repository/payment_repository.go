package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/localhelp-backend/internal/models"
	"github.com/ignatzorin/localhelp-backend/internal/repository/common"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrPaymentStateConflict возвращается, когда условный переход
	// статуса платежа не прошёл: другой процесс уже изменил запись.
	ErrPaymentStateConflict = errors.New("payment state conflict")
)

// PaymentRepository хранит платежи. Записи платежей никогда не удаляются:
// это финансовый журнал, допускаются только переходы статуса.
type PaymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create сохраняет платёж в статусе pending.
func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	query := `
		INSERT INTO payments (
			job_id, client_id, helper_id, amount, currency,
			platform_fee, helper_amount, status,
			gateway_intent_id, client_secret, auto_release, release_conditions
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRowxContext(ctx, query,
		p.JobID, p.ClientID, p.HelperID, p.Amount, p.Currency,
		p.PlatformFee, p.HelperAmount, models.PaymentStatusPending,
		p.GatewayIntentID, p.ClientSecret, p.AutoRelease, p.ReleaseConditions,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// GetByID возвращает платёж по ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return common.GetByID[models.Payment](ctx, r.db, "payments", id, ErrPaymentNotFound)
}

// GetActiveByJobID возвращает последний незавершённый платёж по заданию.
func (r *PaymentRepository) GetActiveByJobID(ctx context.Context, jobID uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	err := r.db.GetContext(ctx, &p, `
		SELECT * FROM payments
		WHERE job_id = $1 AND status IN ($2, $3)
		ORDER BY created_at DESC
		LIMIT 1
	`, jobID, models.PaymentStatusPending, models.PaymentStatusProcessing)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("payment repository: get active by job: %w", err)
	}
	return &p, nil
}

// ListByUser возвращает платежи, где пользователь — клиент или исполнитель.
func (r *PaymentRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.SelectContext(ctx, &payments, `
		SELECT * FROM payments
		WHERE client_id = $1 OR helper_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("payment repository: list by user: %w", err)
	}
	return payments, nil
}

// TransitionStatus условно переводит платёж из одного из статусов from
// в статус to. Возвращает ErrPaymentStateConflict, если платёж уже
// не в ожидаемом статусе — так подтверждение остаётся идемпотентным.
func (r *PaymentRepository) TransitionStatus(ctx context.Context, paymentID uuid.UUID, to string, from ...string) error {
	if len(from) == 0 {
		return fmt.Errorf("payment repository: transition without source statuses")
	}

	query := `UPDATE payments SET status = $2, updated_at = NOW() WHERE id = $1 AND status IN (`
	args := []interface{}{paymentID, to}
	for i, s := range from {
		if i > 0 {
			query += ", "
		}
		args = append(args, s)
		query += fmt.Sprintf("$%d", len(args))
	}
	query += ")"

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("payment repository: transition status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("payment repository: transition rows: %w", err)
	}
	if rows == 0 {
		if _, getErr := r.GetByID(ctx, paymentID); getErr != nil {
			return getErr
		}
		return ErrPaymentStateConflict
	}
	return nil
}

// MarkReleased фиксирует выплату исполнителю. Условие release_date IS NULL
// защищает от повторного освобождения средств.
func (r *PaymentRepository) MarkReleased(ctx context.Context, paymentID uuid.UUID, releaseDate time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments SET release_date = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3 AND release_date IS NULL
	`, paymentID, releaseDate, models.PaymentStatusCompleted)
	if err != nil {
		return fmt.Errorf("payment repository: mark released: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("payment repository: mark released rows: %w", err)
	}
	if rows == 0 {
		if _, getErr := r.GetByID(ctx, paymentID); getErr != nil {
			return getErr
		}
		return ErrPaymentStateConflict
	}
	return nil
}

// OpenDispute помечает платёж спорным. Повторное открытие спора
// по тому же платежу не проходит условие is_disputed = FALSE.
func (r *PaymentRepository) OpenDispute(ctx context.Context, paymentID uuid.UUID, reason, description string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET status = $2, is_disputed = TRUE, dispute_reason = $3, dispute_description = $4, updated_at = NOW()
		WHERE id = $1 AND is_disputed = FALSE
	`, paymentID, models.PaymentStatusDisputed, reason, description)
	if err != nil {
		return fmt.Errorf("payment repository: open dispute: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("payment repository: open dispute rows: %w", err)
	}
	if rows == 0 {
		if _, getErr := r.GetByID(ctx, paymentID); getErr != nil {
			return getErr
		}
		return ErrPaymentStateConflict
	}
	return nil
}

// ResolveDispute записывает решение спора и финальный статус платежа.
func (r *PaymentRepository) ResolveDispute(ctx context.Context, paymentID, resolvedBy uuid.UUID, resolution, finalStatus string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET status = $2, dispute_resolution = $3, dispute_resolved_by = $4, dispute_resolved_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND is_disputed = TRUE AND dispute_resolution IS NULL
	`, paymentID, finalStatus, resolution, resolvedBy)
	if err != nil {
		return fmt.Errorf("payment repository: resolve dispute: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("payment repository: resolve dispute rows: %w", err)
	}
	if rows == 0 {
		if _, getErr := r.GetByID(ctx, paymentID); getErr != nil {
			return getErr
		}
		return ErrPaymentStateConflict
	}
	return nil
}
