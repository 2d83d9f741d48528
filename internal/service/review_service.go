package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/localhelp-backend/internal/logger"
	"github.com/ignatzorin/localhelp-backend/internal/models"
	"github.com/ignatzorin/localhelp-backend/internal/pkg/apperror"
	"github.com/ignatzorin/localhelp-backend/internal/repository"
	"github.com/ignatzorin/localhelp-backend/internal/validation"
)

// ReviewStore описывает взаимодействие сервиса с хранилищем отзывов.
type ReviewStore interface {
	Create(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	GetByJobAndReviewer(ctx context.Context, jobID, reviewerID uuid.UUID) (*models.Review, error)
	ListByReviewee(ctx context.Context, revieweeID uuid.UUID, status string, limit, offset int) ([]models.Review, error)
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, reviewID uuid.UUID) error
	SetStatus(ctx context.Context, reviewID uuid.UUID, status string) error
	SetHelpful(ctx context.Context, reviewID, userID uuid.UUID, helpful bool) error
	UpsertFlag(ctx context.Context, reviewID, userID uuid.UUID, reason string) error
	SetResponse(ctx context.Context, reviewID uuid.UUID, content string) error
}

// JobStoreForReviews минимальный контракт доступа к заданиям из отзывов.
type JobStoreForReviews interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

// Recomputer пересчитывает рейтинг пользователя.
type Recomputer interface {
	Recompute(ctx context.Context, userID uuid.UUID) error
}

// ReviewService содержит бизнес-логику отзывов о выполненных заданиях.
type ReviewService struct {
	repo       ReviewStore
	jobs       JobStoreForReviews
	users      UserStore
	aggregator Recomputer
	notifier   Notifier
}

// NewReviewService создаёт новый сервис отзывов.
func NewReviewService(repo ReviewStore, jobs JobStoreForReviews, users UserStore, aggregator Recomputer, notifier Notifier) *ReviewService {
	return &ReviewService{
		repo:       repo,
		jobs:       jobs,
		users:      users,
		aggregator: aggregator,
		notifier:   notifier,
	}
}

// CreateReviewInput описывает входные данные для создания отзыва.
type CreateReviewInput struct {
	JobID      uuid.UUID
	ReviewerID uuid.UUID
	Rating     int
	Title      string
	Content    string
	Categories models.ReviewCategories
}

func validRating(r int) bool {
	return r >= 1 && r <= 5
}

// categoryOrDefault подставляет общий рейтинг вместо не заданной категории.
func categoryOrDefault(v *int, rating int) (int, error) {
	if v == nil {
		return rating, nil
	}
	if !validRating(*v) {
		return 0, apperror.New(apperror.ErrCodeValidation, "review service: оценка по категории должна быть от 1 до 5")
	}
	return *v, nil
}

// CreateReview создаёт отзыв о второй стороне завершённого задания.
// Каждая сторона может оставить ровно один отзыв; новый отзыв попадает
// на модерацию и не влияет на рейтинг до одобрения.
func (s *ReviewService) CreateReview(ctx context.Context, in CreateReviewInput) (*models.Review, error) {
	if !validRating(in.Rating) {
		return nil, apperror.New(apperror.ErrCodeValidation, "review service: оценка должна быть от 1 до 5")
	}
	if err := validation.ValidateReviewContent(in.Content); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "review service: "+err.Error())
	}

	job, err := s.jobs.GetByID(ctx, in.JobID)
	if err != nil {
		return nil, s.mapError(err)
	}
	if job.Status != models.JobStatusCompleted {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "review service: отзыв можно оставить только по завершённому заданию")
	}
	if !job.IsParticipant(in.ReviewerID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "review service: отзыв может оставить только участник задания")
	}

	reviewee := job.OtherParty(in.ReviewerID)
	if reviewee == nil {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "review service: у задания нет второй стороны")
	}

	if _, err := s.repo.GetByJobAndReviewer(ctx, in.JobID, in.ReviewerID); err == nil {
		return nil, apperror.New(apperror.ErrCodeConflict, "review service: вы уже оставили отзыв по этому заданию")
	}

	review := &models.Review{
		JobID:      in.JobID,
		ReviewerID: in.ReviewerID,
		RevieweeID: *reviewee,
		Rating:     in.Rating,
		Title:      in.Title,
		Content:    in.Content,
		Status:     models.ReviewStatusPending,
	}

	if review.Communication, err = categoryOrDefault(in.Categories.Communication, in.Rating); err != nil {
		return nil, err
	}
	if review.Quality, err = categoryOrDefault(in.Categories.Quality, in.Rating); err != nil {
		return nil, err
	}
	if review.Timeliness, err = categoryOrDefault(in.Categories.Timeliness, in.Rating); err != nil {
		return nil, err
	}
	if review.Professionalism, err = categoryOrDefault(in.Categories.Professionalism, in.Rating); err != nil {
		return nil, err
	}
	if review.Value, err = categoryOrDefault(in.Categories.Value, in.Rating); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, review); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyAsync(*reviewee, models.NotificationTypeReview,
			"Новый отзыв",
			fmt.Sprintf("О вас оставлен отзыв по заданию «%s»", job.Title),
			map[string]interface{}{"review_id": review.ID, "job_id": job.ID})
	}

	return review, nil
}

// UpdateReviewInput описывает входные данные для изменения отзыва.
type UpdateReviewInput struct {
	ReviewID   uuid.UUID
	ReviewerID uuid.UUID
	Rating     int
	Title      string
	Content    string
	Categories models.ReviewCategories
}

// UpdateReview изменяет отзыв автора. Отредактированный отзыв снова
// попадает на модерацию; если он был одобрен, рейтинг пересчитывается.
func (s *ReviewService) UpdateReview(ctx context.Context, in UpdateReviewInput) (*models.Review, error) {
	if !validRating(in.Rating) {
		return nil, apperror.New(apperror.ErrCodeValidation, "review service: оценка должна быть от 1 до 5")
	}
	if err := validation.ValidateReviewContent(in.Content); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "review service: "+err.Error())
	}

	review, err := s.repo.GetByID(ctx, in.ReviewID)
	if err != nil {
		return nil, s.mapError(err)
	}
	if review.ReviewerID != in.ReviewerID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "review service: изменить отзыв может только его автор")
	}

	wasApproved := review.Status == models.ReviewStatusApproved

	review.Rating = in.Rating
	review.Title = in.Title
	review.Content = in.Content
	review.Status = models.ReviewStatusPending

	if review.Communication, err = categoryOrDefault(in.Categories.Communication, in.Rating); err != nil {
		return nil, err
	}
	if review.Quality, err = categoryOrDefault(in.Categories.Quality, in.Rating); err != nil {
		return nil, err
	}
	if review.Timeliness, err = categoryOrDefault(in.Categories.Timeliness, in.Rating); err != nil {
		return nil, err
	}
	if review.Professionalism, err = categoryOrDefault(in.Categories.Professionalism, in.Rating); err != nil {
		return nil, err
	}
	if review.Value, err = categoryOrDefault(in.Categories.Value, in.Rating); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, review); err != nil {
		return nil, err
	}

	if wasApproved {
		s.recompute(ctx, review.RevieweeID)
	}

	return review, nil
}

// DeleteReview удаляет отзыв. Доступно автору и администратору.
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID, actorID uuid.UUID) error {
	review, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		return s.mapError(err)
	}
	if review.ReviewerID != actorID {
		actor, err := s.users.GetByID(ctx, actorID)
		if err != nil || !actor.IsAdmin {
			return apperror.New(apperror.ErrCodeForbidden, "review service: удалить отзыв может только его автор")
		}
	}

	wasApproved := review.Status == models.ReviewStatusApproved

	if err := s.repo.Delete(ctx, reviewID); err != nil {
		return err
	}
	if wasApproved {
		s.recompute(ctx, review.RevieweeID)
	}
	return nil
}

// ListReviews возвращает отзывы о пользователе. Публично видны
// только одобренные отзывы.
func (s *ReviewService) ListReviews(ctx context.Context, revieweeID uuid.UUID, limit, offset int) ([]models.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByReviewee(ctx, revieweeID, models.ReviewStatusApproved, limit, offset)
}

// MarkHelpful выставляет или снимает отметку «полезно». Повторная
// отметка и снятие без отметки — no-op. Собственный отзыв отмечать
// нельзя. Возвращает состояние отметки после вызова.
func (s *ReviewService) MarkHelpful(ctx context.Context, reviewID, userID uuid.UUID, isHelpful bool) (bool, error) {
	review, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		return false, s.mapError(err)
	}
	if review.ReviewerID == userID {
		return false, apperror.New(apperror.ErrCodeValidation, "review service: нельзя отметить собственный отзыв")
	}
	if err := s.repo.SetHelpful(ctx, reviewID, userID, isHelpful); err != nil {
		return false, err
	}
	return isHelpful, nil
}

// FlagReview сохраняет жалобу на отзыв. Жалоба на одобренный отзыв
// возвращает его на модерацию и убирает из рейтинга до нового решения.
func (s *ReviewService) FlagReview(ctx context.Context, reviewID, userID uuid.UUID, reason string) error {
	if reason == "" {
		return apperror.New(apperror.ErrCodeValidation, "review service: укажите причину жалобы")
	}
	review, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		return s.mapError(err)
	}
	if review.ReviewerID == userID {
		return apperror.New(apperror.ErrCodeValidation, "review service: нельзя пожаловаться на собственный отзыв")
	}
	if err := s.repo.UpsertFlag(ctx, reviewID, userID, reason); err != nil {
		return err
	}

	if review.Status == models.ReviewStatusApproved {
		if err := s.repo.SetStatus(ctx, reviewID, models.ReviewStatusPending); err != nil {
			return err
		}
		s.recompute(ctx, review.RevieweeID)
	}
	return nil
}

// Respond записывает ответ на отзыв. У отзыва одно поле ответа:
// повторный ответ перезаписывает предыдущий. Ответить может только
// тот, о ком отзыв.
func (s *ReviewService) Respond(ctx context.Context, reviewID, actorID uuid.UUID, content string) (*models.Review, error) {
	if content == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "review service: текст ответа не может быть пустым")
	}

	review, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, s.mapError(err)
	}
	if review.RevieweeID != actorID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "review service: ответить может только получатель отзыва")
	}

	if err := s.repo.SetResponse(ctx, reviewID, content); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyAsync(review.ReviewerID, models.NotificationTypeReview,
			"Ответ на отзыв",
			"На ваш отзыв оставлен ответ",
			map[string]interface{}{"review_id": review.ID})
	}

	return s.repo.GetByID(ctx, reviewID)
}

// Moderate одобряет или отклоняет отзыв. Доступно только администратору.
// Изменение статуса модерации запускает пересчёт рейтинга.
func (s *ReviewService) Moderate(ctx context.Context, reviewID, adminID uuid.UUID, status string) (*models.Review, error) {
	admin, err := s.users.GetByID(ctx, adminID)
	if err != nil {
		return nil, s.mapError(err)
	}
	if !admin.IsAdmin {
		return nil, apperror.New(apperror.ErrCodeForbidden, "review service: модерация доступна только администратору")
	}
	if status != models.ReviewStatusApproved && status != models.ReviewStatusRejected {
		return nil, apperror.New(apperror.ErrCodeValidation, "review service: некорректный статус модерации")
	}

	review, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, s.mapError(err)
	}

	if err := s.repo.SetStatus(ctx, reviewID, status); err != nil {
		return nil, err
	}

	// Пересчёт нужен и при одобрении, и при отклонении ранее
	// одобренного отзыва.
	if status == models.ReviewStatusApproved || review.Status == models.ReviewStatusApproved {
		s.recompute(ctx, review.RevieweeID)
	}

	return s.repo.GetByID(ctx, reviewID)
}

func (s *ReviewService) recompute(ctx context.Context, userID uuid.UUID) {
	if s.aggregator == nil {
		return
	}
	if err := s.aggregator.Recompute(ctx, userID); err != nil {
		logger.Errorf("review service: не удалось пересчитать рейтинг пользователя %s: %v", userID, err)
	}
}

func (s *ReviewService) mapError(err error) error {
	switch {
	case errors.Is(err, repository.ErrReviewNotFound):
		return apperror.ErrReviewNotFound
	case errors.Is(err, repository.ErrJobNotFound):
		return apperror.ErrJobNotFound
	case errors.Is(err, repository.ErrUserNotFound):
		return apperror.ErrUserNotFound
	default:
		return err
	}
}
