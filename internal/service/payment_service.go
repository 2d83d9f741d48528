package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/localhelp-backend/internal/gateway"
	"github.com/ignatzorin/localhelp-backend/internal/models"
	"github.com/ignatzorin/localhelp-backend/internal/pkg/apperror"
	"github.com/ignatzorin/localhelp-backend/internal/repository"
)

// PaymentStore описывает взаимодействие сервиса с хранилищем платежей.
type PaymentStore interface {
	Create(ctx context.Context, p *models.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetActiveByJobID(ctx context.Context, jobID uuid.UUID) (*models.Payment, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Payment, error)
	TransitionStatus(ctx context.Context, paymentID uuid.UUID, to string, from ...string) error
	MarkReleased(ctx context.Context, paymentID uuid.UUID, releaseDate time.Time) error
	OpenDispute(ctx context.Context, paymentID uuid.UUID, reason, description string) error
	ResolveDispute(ctx context.Context, paymentID, resolvedBy uuid.UUID, resolution, finalStatus string) error
}

// JobStoreForPayments минимальный контракт доступа к заданиям из платежей.
// MarkPaid и MarkReleased — единственные переходы статуса задания,
// доступные платёжному сервису.
type JobStoreForPayments interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	MarkPaid(ctx context.Context, jobID uuid.UUID) error
	MarkReleased(ctx context.Context, jobID uuid.UUID) error
	SetPaymentStatus(ctx context.Context, jobID uuid.UUID, paymentStatus string) error
	Cancel(ctx context.Context, jobID, cancelledBy uuid.UUID, reason string) error
}

// PaymentGateway описывает контракт с внешним платёжным шлюзом.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*gateway.Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (string, error)
	CreateTransfer(ctx context.Context, amount int64, currency, destination string, metadata map[string]string) (*gateway.Transfer, error)
	Refund(ctx context.Context, intentID string) error
}

// PaymentService содержит бизнес-логику эскроу-платежей за задания.
type PaymentService struct {
	repo       PaymentStore
	jobs       JobStoreForPayments
	users      UserStore
	gw         PaymentGateway
	notifier   Notifier
	feePercent int64
}

// NewPaymentService создаёт новый платёжный сервис.
func NewPaymentService(repo PaymentStore, jobs JobStoreForPayments, users UserStore, gw PaymentGateway, notifier Notifier, feePercent int64) *PaymentService {
	return &PaymentService{
		repo:       repo,
		jobs:       jobs,
		users:      users,
		gw:         gw,
		notifier:   notifier,
		feePercent: feePercent,
	}
}

// platformFee считает комиссию платформы в минорных единицах
// с округлением к ближайшему целому.
func (s *PaymentService) platformFee(amount int64) int64 {
	return (amount*s.feePercent + 50) / 100
}

// CreateIntentInput описывает входные данные для создания платежа.
type CreateIntentInput struct {
	JobID    uuid.UUID
	ClientID uuid.UUID
	Amount   int64
	Currency string
}

// CreateIntent создаёт платёжное намерение в шлюзе и платёж в статусе
// pending. Деньги удерживаются в эскроу до завершения задания.
func (s *PaymentService) CreateIntent(ctx context.Context, in CreateIntentInput) (*models.Payment, error) {
	if in.Amount <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "payment service: сумма должна быть положительной")
	}
	if _, ok := models.ValidCurrencies[in.Currency]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation,
			fmt.Sprintf("payment service: валюта %s не поддерживается", in.Currency))
	}

	job, err := s.jobs.GetByID(ctx, in.JobID)
	if err != nil {
		return nil, s.mapError(err)
	}
	if job.CreatorID != in.ClientID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "payment service: оплатить задание может только его автор")
	}
	if job.Status != models.JobStatusAccepted {
		return nil, apperror.New(apperror.ErrCodeInvalidState,
			fmt.Sprintf("payment service: нельзя оплатить задание в статусе %s", job.Status))
	}
	if job.AssignedTo == nil {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "payment service: у задания нет назначенного исполнителя")
	}

	// Повторный вызов при живом платеже возвращает его, а не создаёт дубликат.
	if existing, err := s.repo.GetActiveByJobID(ctx, in.JobID); err == nil {
		return existing, nil
	}

	intent, err := s.gw.CreateIntent(ctx, in.Amount, in.Currency, map[string]string{
		"job_id": in.JobID.String(),
	})
	if err != nil {
		return nil, err
	}

	fee := s.platformFee(in.Amount)
	payment := &models.Payment{
		JobID:           in.JobID,
		ClientID:        in.ClientID,
		HelperID:        *job.AssignedTo,
		Amount:          in.Amount,
		Currency:        in.Currency,
		PlatformFee:     fee,
		HelperAmount:    in.Amount - fee,
		Status:          models.PaymentStatusPending,
		GatewayIntentID: intent.ID,
		ClientSecret:    &intent.ClientSecret,
		AutoRelease:     true,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// Confirm сверяет статус платежа со шлюзом и фиксирует результат.
// Повторное подтверждение уже завершённого платежа возвращает конфликт,
// а не списывает деньги второй раз.
func (s *PaymentService) Confirm(ctx context.Context, paymentID, actorID uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, s.mapError(err)
	}
	if payment.ClientID != actorID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "payment service: подтвердить платёж может только плательщик")
	}
	if payment.Status != models.PaymentStatusPending && payment.Status != models.PaymentStatusProcessing {
		return nil, apperror.New(apperror.ErrCodeInvalidState,
			fmt.Sprintf("payment service: платёж уже в статусе %s", payment.Status))
	}

	status, err := s.gw.RetrieveIntent(ctx, payment.GatewayIntentID)
	if err != nil {
		return nil, err
	}

	switch status {
	case gateway.IntentStatusSucceeded:
		err = s.repo.TransitionStatus(ctx, paymentID, models.PaymentStatusCompleted,
			models.PaymentStatusPending, models.PaymentStatusProcessing)
		if err != nil {
			return nil, s.mapError(err)
		}
		if err := s.jobs.MarkPaid(ctx, payment.JobID); err != nil {
			return nil, err
		}
		if s.notifier != nil {
			s.notifier.NotifyAsync(payment.HelperID, models.NotificationTypePayment,
				"Оплата получена",
				"Заказчик оплатил задание, средства удержаны в эскроу",
				map[string]interface{}{"payment_id": payment.ID, "job_id": payment.JobID})
		}
	case gateway.IntentStatusProcessing:
		if err := s.repo.TransitionStatus(ctx, paymentID, models.PaymentStatusProcessing,
			models.PaymentStatusPending, models.PaymentStatusProcessing); err != nil {
			return nil, s.mapError(err)
		}
	default:
		if err := s.repo.TransitionStatus(ctx, paymentID, models.PaymentStatusFailed,
			models.PaymentStatusPending, models.PaymentStatusProcessing); err != nil {
			return nil, s.mapError(err)
		}
		return nil, apperror.New(apperror.ErrCodePaymentFailed,
			fmt.Sprintf("payment service: платёж отклонён шлюзом (статус %s)", status))
	}

	return s.repo.GetByID(ctx, paymentID)
}

// ReleaseEscrow выплачивает удержанные средства исполнителю после
// завершения задания. Повторное освобождение тех же средств невозможно:
// условие release_date IS NULL проверяется в хранилище.
func (s *PaymentService) ReleaseEscrow(ctx context.Context, paymentID, actorID uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, s.mapError(err)
	}
	if payment.ClientID != actorID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "payment service: освободить средства может только заказчик")
	}
	if payment.Status != models.PaymentStatusCompleted {
		return nil, apperror.New(apperror.ErrCodeInvalidState,
			fmt.Sprintf("payment service: нельзя освободить средства платежа в статусе %s", payment.Status))
	}
	if payment.ReleaseDate != nil {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "payment service: средства уже выплачены исполнителю")
	}
	if payment.IsDisputed {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "payment service: по платежу открыт спор")
	}

	job, err := s.jobs.GetByID(ctx, payment.JobID)
	if err != nil {
		return nil, s.mapError(err)
	}
	if job.Status != models.JobStatusCompleted && job.Status != models.JobStatusInProgress {
		return nil, apperror.New(apperror.ErrCodeInvalidState,
			"payment service: задание ещё не выполнено")
	}

	helper, err := s.users.GetByID(ctx, payment.HelperID)
	if err != nil {
		return nil, s.mapError(err)
	}
	if helper.PayoutAccount == nil || *helper.PayoutAccount == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "payment service: у исполнителя не настроен счёт для выплат")
	}

	if _, err := s.gw.CreateTransfer(ctx, payment.HelperAmount, payment.Currency, *helper.PayoutAccount, map[string]string{
		"payment_id": payment.ID.String(),
	}); err != nil {
		return nil, err
	}

	if err := s.repo.MarkReleased(ctx, paymentID, time.Now()); err != nil {
		return nil, s.mapError(err)
	}
	if err := s.jobs.MarkReleased(ctx, payment.JobID); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyAsync(payment.HelperID, models.NotificationTypePayment,
			"Выплата отправлена",
			"Средства за выполненное задание переведены на ваш счёт",
			map[string]interface{}{"payment_id": payment.ID, "amount": payment.HelperAmount})
	}

	return s.repo.GetByID(ctx, paymentID)
}

// OpenDispute открывает спор по платежу. Пока спор не решён,
// выплата и возврат заблокированы.
func (s *PaymentService) OpenDispute(ctx context.Context, paymentID, actorID uuid.UUID, reason, description string) (*models.Payment, error) {
	if reason == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "payment service: укажите причину спора")
	}

	payment, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, s.mapError(err)
	}
	if !payment.IsParticipant(actorID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "payment service: открыть спор может только участник платежа")
	}
	if payment.Status != models.PaymentStatusCompleted {
		return nil, apperror.New(apperror.ErrCodeInvalidState,
			fmt.Sprintf("payment service: нельзя открыть спор по платежу в статусе %s", payment.Status))
	}
	if payment.ReleaseDate != nil {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "payment service: средства уже выплачены, спор невозможен")
	}

	if err := s.repo.OpenDispute(ctx, paymentID, reason, description); err != nil {
		if errors.Is(err, repository.ErrPaymentStateConflict) {
			return nil, apperror.New(apperror.ErrCodeConflict, "payment service: спор по платежу уже открыт")
		}
		return nil, s.mapError(err)
	}

	if other := otherPaymentParty(payment, actorID); s.notifier != nil {
		s.notifier.NotifyAsync(other, models.NotificationTypePayment,
			"Открыт спор",
			fmt.Sprintf("По платежу открыт спор: %s", reason),
			map[string]interface{}{"payment_id": payment.ID, "job_id": payment.JobID})
	}

	return s.repo.GetByID(ctx, paymentID)
}

// ResolveDispute решает спор. Доступно только администратору.
// Частичный возврат сознательно не поддерживается: спор решается
// целиком в пользу одной из сторон.
func (s *PaymentService) ResolveDispute(ctx context.Context, paymentID, adminID uuid.UUID, resolution string) (*models.Payment, error) {
	admin, err := s.users.GetByID(ctx, adminID)
	if err != nil {
		return nil, s.mapError(err)
	}
	if !admin.IsAdmin {
		return nil, apperror.New(apperror.ErrCodeForbidden, "payment service: решить спор может только администратор")
	}

	if _, ok := models.ValidDisputeResolutions[resolution]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "payment service: некорректное решение спора")
	}
	if resolution == models.DisputeResolutionPartialRefund {
		return nil, apperror.New(apperror.ErrCodeValidation, "payment service: частичный возврат не поддерживается")
	}

	payment, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, s.mapError(err)
	}
	if !payment.IsDisputed {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "payment service: по платежу нет открытого спора")
	}
	if payment.DisputeResolution != nil {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "payment service: спор уже решён")
	}

	switch resolution {
	case models.DisputeResolutionRefundClient:
		if err := s.gw.Refund(ctx, payment.GatewayIntentID); err != nil {
			return nil, err
		}
		if err := s.repo.ResolveDispute(ctx, paymentID, adminID, resolution, models.PaymentStatusRefunded); err != nil {
			return nil, s.mapError(err)
		}
		if err := s.jobs.SetPaymentStatus(ctx, payment.JobID, models.JobPaymentStatusRefunded); err != nil {
			return nil, err
		}
		if err := s.jobs.Cancel(ctx, payment.JobID, adminID, "спор решён в пользу заказчика"); err != nil {
			return nil, err
		}
	case models.DisputeResolutionPayHelper:
		helper, err := s.users.GetByID(ctx, payment.HelperID)
		if err != nil {
			return nil, s.mapError(err)
		}
		if helper.PayoutAccount == nil || *helper.PayoutAccount == "" {
			return nil, apperror.New(apperror.ErrCodeValidation, "payment service: у исполнителя не настроен счёт для выплат")
		}
		if _, err := s.gw.CreateTransfer(ctx, payment.HelperAmount, payment.Currency, *helper.PayoutAccount, map[string]string{
			"payment_id": payment.ID.String(),
		}); err != nil {
			return nil, err
		}
		if err := s.repo.ResolveDispute(ctx, paymentID, adminID, resolution, models.PaymentStatusCompleted); err != nil {
			return nil, s.mapError(err)
		}
		if err := s.repo.MarkReleased(ctx, paymentID, time.Now()); err != nil {
			return nil, s.mapError(err)
		}
		if err := s.jobs.MarkReleased(ctx, payment.JobID); err != nil {
			return nil, err
		}
	}

	if s.notifier != nil {
		msg := "Спор по платежу решён"
		s.notifier.NotifyAsync(payment.ClientID, models.NotificationTypePayment, msg, msg,
			map[string]interface{}{"payment_id": payment.ID, "resolution": resolution})
		s.notifier.NotifyAsync(payment.HelperID, models.NotificationTypePayment, msg, msg,
			map[string]interface{}{"payment_id": payment.ID, "resolution": resolution})
	}

	return s.repo.GetByID(ctx, paymentID)
}

// GetPayment возвращает платёж участнику или администратору.
func (s *PaymentService) GetPayment(ctx context.Context, paymentID, actorID uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, s.mapError(err)
	}
	if !payment.IsParticipant(actorID) {
		actor, err := s.users.GetByID(ctx, actorID)
		if err != nil || !actor.IsAdmin {
			return nil, apperror.New(apperror.ErrCodeForbidden, "payment service: у вас нет доступа к этому платежу")
		}
	}
	return payment, nil
}

// ListMyPayments возвращает платежи пользователя.
func (s *PaymentService) ListMyPayments(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

func otherPaymentParty(p *models.Payment, actorID uuid.UUID) uuid.UUID {
	if p.ClientID == actorID {
		return p.HelperID
	}
	return p.ClientID
}

func (s *PaymentService) mapError(err error) error {
	switch {
	case errors.Is(err, repository.ErrPaymentNotFound):
		return apperror.ErrPaymentNotFound
	case errors.Is(err, repository.ErrJobNotFound):
		return apperror.ErrJobNotFound
	case errors.Is(err, repository.ErrUserNotFound):
		return apperror.ErrUserNotFound
	case errors.Is(err, repository.ErrPaymentStateConflict):
		return apperror.New(apperror.ErrCodeConflict, "payment service: платёж уже обработан другим запросом")
	default:
		return err
	}
}
