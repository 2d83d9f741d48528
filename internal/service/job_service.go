package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/localhelp-backend/internal/geo"
	"github.com/ignatzorin/localhelp-backend/internal/goroutine"
	"github.com/ignatzorin/localhelp-backend/internal/logger"
	"github.com/ignatzorin/localhelp-backend/internal/models"
	"github.com/ignatzorin/localhelp-backend/internal/pkg/apperror"
	"github.com/ignatzorin/localhelp-backend/internal/repository"
	"github.com/ignatzorin/localhelp-backend/internal/validation"
)

// JobStore описывает взаимодействие сервиса с хранилищем заданий.
type JobStore interface {
	Create(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	List(ctx context.Context, params repository.ListFilterParams) ([]models.Job, error)
	Accept(ctx context.Context, jobID, helperID uuid.UUID) (*models.Job, error)
	Complete(ctx context.Context, jobID uuid.UUID) error
	Cancel(ctx context.Context, jobID, cancelledBy uuid.UUID, reason string) error
	Reopen(ctx context.Context, jobID, cancelledBy uuid.UUID, reason string) error
	Delete(ctx context.Context, jobID uuid.UUID) error
	IncrementViews(ctx context.Context, jobID uuid.UUID) error
	ToggleSave(ctx context.Context, jobID, userID uuid.UUID) (bool, error)
	AddAttachment(ctx context.Context, jobID, mediaID uuid.UUID) (*models.JobAttachment, error)
	ListAttachments(ctx context.Context, jobID uuid.UUID) ([]models.JobAttachment, error)
}

// UserStore описывает минимальный контракт доступа к пользователям.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	IncrementStat(ctx context.Context, userID uuid.UUID, column string, delta int) error
}

// Notifier описывает отправку уведомлений участникам.
type Notifier interface {
	NotifyAsync(userID uuid.UUID, nType, title, message string, metadata map[string]interface{})
}

// HelperMatcher подбирает исполнителей рядом с новым заданием.
type HelperMatcher interface {
	FindEligibleHelpers(ctx context.Context, jobID uuid.UUID) ([]MatchedHelper, error)
}

// ReviewCreator принимает отзыв, оставленный при завершении задания.
type ReviewCreator interface {
	CreateReview(ctx context.Context, in CreateReviewInput) (*models.Review, error)
}

// JobService содержит бизнес-логику жизненного цикла заданий.
type JobService struct {
	repo     JobStore
	users    UserStore
	notifier Notifier
	matcher  HelperMatcher
	reviews  ReviewCreator
}

// NewJobService создаёт новый сервис заданий.
func NewJobService(repo JobStore, users UserStore, notifier Notifier) *JobService {
	return &JobService{repo: repo, users: users, notifier: notifier}
}

// SetMatcher подключает подбор исполнителей для рассылки о новых заданиях.
func (s *JobService) SetMatcher(matcher HelperMatcher) {
	s.matcher = matcher
}

// SetReviewCreator подключает приём отзывов при завершении задания.
func (s *JobService) SetReviewCreator(reviews ReviewCreator) {
	s.reviews = reviews
}

// CreateJobInput описывает входные данные для создания задания.
type CreateJobInput struct {
	CreatorID        uuid.UUID
	Title            string
	Description      string
	BudgetMin        int64
	BudgetMax        int64
	BudgetNegotiable bool
	Latitude         float64
	Longitude        float64
	Address          string
	PreferredDate    *time.Time
	TimeStart        *string
	TimeEnd          *string
	Skills           []string
	ExperienceLevel  *string
	VerifiedOnly     bool
}

// CreateJob создаёт задание в статусе open.
func (s *JobService) CreateJob(ctx context.Context, in CreateJobInput) (*models.Job, error) {
	if err := validation.ValidateJobTitle(in.Title); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "job service: "+err.Error())
	}
	if err := validation.ValidateJobDescription(in.Description); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "job service: "+err.Error())
	}
	if err := validation.ValidateBudget(in.BudgetMin, in.BudgetMax); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "job service: "+err.Error())
	}
	if !geo.ValidCoordinates(in.Latitude, in.Longitude) {
		return nil, apperror.New(apperror.ErrCodeValidation, "job service: некорректные координаты задания")
	}
	if in.PreferredDate != nil && in.PreferredDate.Before(time.Now().Truncate(24*time.Hour)) {
		return nil, apperror.New(apperror.ErrCodeValidation, "job service: желаемая дата не может быть в прошлом")
	}
	if err := validation.ValidateSkills(in.Skills); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "job service: "+err.Error())
	}

	job := &models.Job{
		CreatorID:        in.CreatorID,
		Title:            in.Title,
		Description:      in.Description,
		Status:           models.JobStatusOpen,
		PaymentStatus:    models.JobPaymentStatusUnpaid,
		BudgetMin:        in.BudgetMin,
		BudgetMax:        in.BudgetMax,
		BudgetNegotiable: in.BudgetNegotiable,
		Latitude:         in.Latitude,
		Longitude:        in.Longitude,
		Address:          in.Address,
		PreferredDate:    in.PreferredDate,
		TimeStart:        in.TimeStart,
		TimeEnd:          in.TimeEnd,
		Skills:           in.Skills,
		ExperienceLevel:  in.ExperienceLevel,
		VerifiedOnly:     in.VerifiedOnly,
	}

	if err := s.repo.Create(ctx, job); err != nil {
		return nil, err
	}

	if err := s.users.IncrementStat(ctx, in.CreatorID, "jobs_posted", 1); err != nil {
		logger.Errorf("job service: не удалось обновить счётчик jobs_posted: %v", err)
	}

	s.fanOutNearby(job)

	return job, nil
}

// fanOutNearby рассылает уведомления исполнителям рядом с заданием.
// Рассылка не должна влиять на результат создания: ошибки только
// логируются.
func (s *JobService) fanOutNearby(job *models.Job) {
	if s.matcher == nil || s.notifier == nil {
		return
	}

	jobID := job.ID
	title := job.Title
	goroutine.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		matched, err := s.matcher.FindEligibleHelpers(ctx, jobID)
		if err != nil {
			logger.Errorf("job service: подбор исполнителей для задания %s не удался: %v", jobID, err)
			return
		}
		for _, m := range matched {
			s.notifier.NotifyAsync(m.User.ID, models.NotificationTypeJob,
				"Новое задание рядом",
				fmt.Sprintf("Рядом с вами появилось задание «%s»", title),
				map[string]interface{}{"job_id": jobID, "distance_km": m.DistKm})
		}
	})
}

// GetJob возвращает задание. Просмотр чужого задания увеличивает
// счётчик просмотров; собственные просмотры не считаются.
func (s *JobService) GetJob(ctx context.Context, jobID uuid.UUID, viewerID *uuid.UUID) (*models.Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, s.mapError(err)
	}

	if viewerID == nil || *viewerID != job.CreatorID {
		if err := s.repo.IncrementViews(ctx, jobID); err != nil {
			logger.Errorf("job service: не удалось записать просмотр задания %s: %v", jobID, err)
		} else {
			job.ViewsCount++
		}
	}

	job.Attachments, _ = s.repo.ListAttachments(ctx, jobID)
	return job, nil
}

// ListJobs возвращает задания по фильтру.
func (s *JobService) ListJobs(ctx context.Context, params repository.ListFilterParams) ([]models.Job, error) {
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 20
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	if params.Status != "" {
		if _, ok := models.ValidJobStatuses[params.Status]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, "job service: некорректный статус задания")
		}
	}
	return s.repo.List(ctx, params)
}

// AcceptJob назначает исполнителя на открытое задание. Переход
// выполняется одним условным обновлением: при гонке двух исполнителей
// победит ровно один, второй получит конфликт.
func (s *JobService) AcceptJob(ctx context.Context, jobID, helperID uuid.UUID) (*models.Job, error) {
	helper, err := s.users.GetByID(ctx, helperID)
	if err != nil {
		return nil, s.mapError(err)
	}
	if !helper.CanAcceptJobs() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "job service: ваш аккаунт не может принимать задания")
	}

	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, s.mapError(err)
	}
	if job.CreatorID == helperID {
		return nil, apperror.New(apperror.ErrCodeValidation, "job service: нельзя принять собственное задание")
	}
	if job.VerifiedOnly && !helper.IsVerified {
		return nil, apperror.New(apperror.ErrCodeForbidden, "job service: задание доступно только проверенным исполнителям")
	}

	accepted, err := s.repo.Accept(ctx, jobID, helperID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotOpen) {
			return nil, apperror.ErrJobNotAvailable
		}
		return nil, s.mapError(err)
	}

	if err := s.users.IncrementStat(ctx, helperID, "jobs_accepted", 1); err != nil {
		logger.Errorf("job service: не удалось обновить счётчик jobs_accepted: %v", err)
	}
	if err := s.users.IncrementStat(ctx, accepted.CreatorID, "jobs_assigned", 1); err != nil {
		logger.Errorf("job service: не удалось обновить счётчик jobs_assigned: %v", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyAsync(accepted.CreatorID, models.NotificationTypeJob,
			"Задание принято",
			fmt.Sprintf("Исполнитель %s принял ваше задание «%s»", helper.Username, accepted.Title),
			map[string]interface{}{"job_id": accepted.ID, "helper_id": helperID})
	}

	return accepted, nil
}

// CompletionReview описывает отзыв, оставленный вместе с завершением
// задания. Отзыв адресуется второй стороне.
type CompletionReview struct {
	Rating  int
	Title   string
	Content string
}

// CompleteJob завершает задание. Отметить выполнение может любой из
// участников; отзыв, переданный вместе с завершением, записывается на
// вторую сторону.
func (s *JobService) CompleteJob(ctx context.Context, jobID, actorID uuid.UUID, review *CompletionReview) (*models.Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, s.mapError(err)
	}

	if !job.IsParticipant(actorID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "job service: завершить задание может только его участник")
	}
	if job.Status != models.JobStatusAccepted && job.Status != models.JobStatusInProgress {
		return nil, apperror.New(apperror.ErrCodeInvalidState,
			fmt.Sprintf("job service: нельзя завершить задание в статусе %s", job.Status))
	}

	if err := s.repo.Complete(ctx, jobID); err != nil {
		return nil, err
	}

	if err := s.users.IncrementStat(ctx, actorID, "jobs_completed", 1); err != nil {
		logger.Errorf("job service: не удалось обновить счётчик jobs_completed: %v", err)
	}
	if other := job.OtherParty(actorID); other != nil {
		if err := s.users.IncrementStat(ctx, *other, "jobs_completed", 1); err != nil {
			logger.Errorf("job service: не удалось обновить счётчик jobs_completed: %v", err)
		}
	}

	if review != nil && s.reviews != nil {
		if _, err := s.reviews.CreateReview(ctx, CreateReviewInput{
			JobID:      jobID,
			ReviewerID: actorID,
			Rating:     review.Rating,
			Title:      review.Title,
			Content:    review.Content,
		}); err != nil {
			logger.Errorf("job service: отзыв при завершении задания %s не сохранён: %v", jobID, err)
		}
	}

	if other := job.OtherParty(actorID); other != nil && s.notifier != nil {
		s.notifier.NotifyAsync(*other, models.NotificationTypeJob,
			"Задание выполнено",
			fmt.Sprintf("Задание «%s» отмечено как выполненное", job.Title),
			map[string]interface{}{"job_id": job.ID})
	}

	return s.repo.GetByID(ctx, jobID)
}

// CancelJob отменяет задание. Отмена заказчиком терминальна; отказ
// исполнителя возвращает задание в open для других исполнителей.
func (s *JobService) CancelJob(ctx context.Context, jobID, actorID uuid.UUID, reason string) (*models.Job, error) {
	if err := validation.ValidateCancelReason(reason); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "job service: "+err.Error())
	}

	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, s.mapError(err)
	}
	if !job.IsParticipant(actorID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "job service: отменить задание может только его участник")
	}
	if job.Status == models.JobStatusCompleted || job.Status == models.JobStatusCancelled {
		return nil, apperror.New(apperror.ErrCodeInvalidState,
			fmt.Sprintf("job service: нельзя отменить задание в статусе %s", job.Status))
	}
	if job.PaymentStatus == models.JobPaymentStatusPaid {
		return nil, apperror.New(apperror.ErrCodeInvalidState,
			"job service: по заданию удержаны средства, отмена возможна только через спор")
	}

	if actorID == job.CreatorID {
		if err := s.repo.Cancel(ctx, jobID, actorID, reason); err != nil {
			return nil, err
		}
	} else {
		// Отказ исполнителя: задание снова открыто для других.
		if err := s.repo.Reopen(ctx, jobID, actorID, reason); err != nil {
			return nil, err
		}
	}

	if other := job.OtherParty(actorID); other != nil && s.notifier != nil {
		s.notifier.NotifyAsync(*other, models.NotificationTypeJob,
			"Задание отменено",
			fmt.Sprintf("Задание «%s» отменено: %s", job.Title, reason),
			map[string]interface{}{"job_id": job.ID})
	}

	return s.repo.GetByID(ctx, jobID)
}

// DeleteJob удаляет задание. Начатые и завершённые задания не
// удаляются; при удалении принятого задания исполнитель получает
// уведомление.
func (s *JobService) DeleteJob(ctx context.Context, jobID, actorID uuid.UUID) error {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return s.mapError(err)
	}
	if job.CreatorID != actorID {
		return apperror.New(apperror.ErrCodeForbidden, "job service: у вас нет прав на удаление этого задания")
	}
	if job.Status != models.JobStatusOpen && job.Status != models.JobStatusAccepted {
		return apperror.New(apperror.ErrCodeInvalidState,
			fmt.Sprintf("job service: нельзя удалить задание в статусе %s", job.Status))
	}

	if err := s.repo.Delete(ctx, jobID); err != nil {
		return err
	}

	if err := s.users.IncrementStat(ctx, actorID, "jobs_posted", -1); err != nil {
		logger.Errorf("job service: не удалось обновить счётчик jobs_posted: %v", err)
	}
	if job.AssignedTo != nil && s.notifier != nil {
		s.notifier.NotifyAsync(*job.AssignedTo, models.NotificationTypeJob,
			"Задание удалено",
			fmt.Sprintf("Заказчик удалил задание «%s»", job.Title),
			map[string]interface{}{"job_id": job.ID})
	}
	return nil
}

// ToggleSave добавляет или убирает задание из сохранённых.
func (s *JobService) ToggleSave(ctx context.Context, jobID, userID uuid.UUID) (bool, error) {
	if _, err := s.repo.GetByID(ctx, jobID); err != nil {
		return false, s.mapError(err)
	}
	return s.repo.ToggleSave(ctx, jobID, userID)
}

// AttachPhoto прикрепляет загруженный файл к заданию.
func (s *JobService) AttachPhoto(ctx context.Context, jobID, actorID, mediaID uuid.UUID) (*models.JobAttachment, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, s.mapError(err)
	}
	if job.CreatorID != actorID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "job service: прикреплять файлы может только автор задания")
	}
	return s.repo.AddAttachment(ctx, jobID, mediaID)
}

func (s *JobService) mapError(err error) error {
	switch {
	case errors.Is(err, repository.ErrJobNotFound):
		return apperror.ErrJobNotFound
	case errors.Is(err, repository.ErrUserNotFound):
		return apperror.ErrUserNotFound
	default:
		return err
	}
}
