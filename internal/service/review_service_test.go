package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/localhelp-backend/internal/models"
	"github.com/ignatzorin/localhelp-backend/internal/repository"
)

type mockReviewStore struct {
	mock.Mock
}

func (m *mockReviewStore) Create(ctx context.Context, review *models.Review) error {
	args := m.Called(ctx, review)
	if args.Error(0) == nil {
		review.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockReviewStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *mockReviewStore) GetByJobAndReviewer(ctx context.Context, jobID, reviewerID uuid.UUID) (*models.Review, error) {
	args := m.Called(ctx, jobID, reviewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *mockReviewStore) ListByReviewee(ctx context.Context, revieweeID uuid.UUID, status string, limit, offset int) ([]models.Review, error) {
	args := m.Called(ctx, revieweeID, status, limit, offset)
	return args.Get(0).([]models.Review), args.Error(1)
}

func (m *mockReviewStore) Update(ctx context.Context, review *models.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewStore) Delete(ctx context.Context, reviewID uuid.UUID) error {
	args := m.Called(ctx, reviewID)
	return args.Error(0)
}

func (m *mockReviewStore) SetStatus(ctx context.Context, reviewID uuid.UUID, status string) error {
	args := m.Called(ctx, reviewID, status)
	return args.Error(0)
}

func (m *mockReviewStore) SetHelpful(ctx context.Context, reviewID, userID uuid.UUID, helpful bool) error {
	args := m.Called(ctx, reviewID, userID, helpful)
	return args.Error(0)
}

func (m *mockReviewStore) UpsertFlag(ctx context.Context, reviewID, userID uuid.UUID, reason string) error {
	args := m.Called(ctx, reviewID, userID, reason)
	return args.Error(0)
}

func (m *mockReviewStore) SetResponse(ctx context.Context, reviewID uuid.UUID, content string) error {
	args := m.Called(ctx, reviewID, content)
	return args.Error(0)
}

type mockJobStoreForReviews struct {
	mock.Mock
}

func (m *mockJobStoreForReviews) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}

type mockRecomputer struct {
	mock.Mock
}

func (m *mockRecomputer) Recompute(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func newReviewServiceForTest() (*ReviewService, *mockReviewStore, *mockJobStoreForReviews, *mockUserStore, *mockRecomputer, *mockNotifier) {
	reviews := new(mockReviewStore)
	jobs := new(mockJobStoreForReviews)
	users := new(mockUserStore)
	aggregator := new(mockRecomputer)
	notifier := new(mockNotifier)
	svc := NewReviewService(reviews, jobs, users, aggregator, notifier)
	return svc, reviews, jobs, users, aggregator, notifier
}

func TestReviewService_CreateReview_Success(t *testing.T) {
	svc, reviews, jobs, _, _, notifier := newReviewServiceForTest()
	ctx := context.Background()

	creatorID := uuid.New()
	helperID := uuid.New()
	jobID := uuid.New()

	job := &models.Job{ID: jobID, CreatorID: creatorID, AssignedTo: &helperID, Status: models.JobStatusCompleted, Title: "Сборка мебели"}

	jobs.On("GetByID", ctx, jobID).Return(job, nil)
	reviews.On("GetByJobAndReviewer", ctx, jobID, creatorID).Return(nil, repository.ErrReviewNotFound)
	reviews.On("Create", ctx, mock.AnythingOfType("*models.Review")).Return(nil)
	notifier.On("NotifyAsync", helperID, models.NotificationTypeReview, mock.Anything, mock.Anything, mock.Anything).Return()

	review, err := svc.CreateReview(ctx, CreateReviewInput{
		JobID:      jobID,
		ReviewerID: creatorID,
		Rating:     5,
		Content:    "Отличная работа!",
	})

	assert.NoError(t, err)
	assert.Equal(t, helperID, review.RevieweeID)
	assert.Equal(t, models.ReviewStatusPending, review.Status)
	// Не заданные категории наследуют общий рейтинг.
	assert.Equal(t, 5, review.Communication)
	assert.Equal(t, 5, review.Value)
}

func TestReviewService_CreateReview_ExplicitCategories(t *testing.T) {
	svc, reviews, jobs, _, _, notifier := newReviewServiceForTest()
	ctx := context.Background()

	creatorID := uuid.New()
	helperID := uuid.New()
	jobID := uuid.New()

	job := &models.Job{ID: jobID, CreatorID: creatorID, AssignedTo: &helperID, Status: models.JobStatusCompleted}

	jobs.On("GetByID", ctx, jobID).Return(job, nil)
	reviews.On("GetByJobAndReviewer", ctx, jobID, creatorID).Return(nil, repository.ErrReviewNotFound)
	reviews.On("Create", ctx, mock.AnythingOfType("*models.Review")).Return(nil)
	notifier.On("NotifyAsync", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()

	comm := 3
	review, err := svc.CreateReview(ctx, CreateReviewInput{
		JobID:      jobID,
		ReviewerID: creatorID,
		Rating:     4,
		Content:    "Хорошо, но долго отвечал",
		Categories: models.ReviewCategories{Communication: &comm},
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, review.Communication)
	assert.Equal(t, 4, review.Quality)
}

func TestReviewService_CreateReview_InvalidRating(t *testing.T) {
	svc, _, _, _, _, _ := newReviewServiceForTest()
	ctx := context.Background()

	_, err := svc.CreateReview(ctx, CreateReviewInput{JobID: uuid.New(), ReviewerID: uuid.New(), Rating: 0, Content: "x"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "от 1 до 5")

	_, err = svc.CreateReview(ctx, CreateReviewInput{JobID: uuid.New(), ReviewerID: uuid.New(), Rating: 6, Content: "x"})
	assert.Error(t, err)
}

func TestReviewService_CreateReview_JobNotCompleted(t *testing.T) {
	svc, _, jobs, _, _, _ := newReviewServiceForTest()
	ctx := context.Background()

	jobID := uuid.New()
	job := &models.Job{ID: jobID, CreatorID: uuid.New(), Status: models.JobStatusInProgress}
	jobs.On("GetByID", ctx, jobID).Return(job, nil)

	_, err := svc.CreateReview(ctx, CreateReviewInput{JobID: jobID, ReviewerID: uuid.New(), Rating: 5, Content: "x"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "завершённому")
}

func TestReviewService_CreateReview_AlreadyReviewed(t *testing.T) {
	svc, reviews, jobs, _, _, _ := newReviewServiceForTest()
	ctx := context.Background()

	creatorID := uuid.New()
	helperID := uuid.New()
	jobID := uuid.New()

	job := &models.Job{ID: jobID, CreatorID: creatorID, AssignedTo: &helperID, Status: models.JobStatusCompleted}
	existing := &models.Review{ID: uuid.New()}

	jobs.On("GetByID", ctx, jobID).Return(job, nil)
	reviews.On("GetByJobAndReviewer", ctx, jobID, creatorID).Return(existing, nil)

	_, err := svc.CreateReview(ctx, CreateReviewInput{JobID: jobID, ReviewerID: creatorID, Rating: 5, Content: "x"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "уже оставили")
}

func TestReviewService_CreateReview_NotParticipant(t *testing.T) {
	svc, _, jobs, _, _, _ := newReviewServiceForTest()
	ctx := context.Background()

	helperID := uuid.New()
	jobID := uuid.New()

	job := &models.Job{ID: jobID, CreatorID: uuid.New(), AssignedTo: &helperID, Status: models.JobStatusCompleted}
	jobs.On("GetByID", ctx, jobID).Return(job, nil)

	_, err := svc.CreateReview(ctx, CreateReviewInput{JobID: jobID, ReviewerID: uuid.New(), Rating: 5, Content: "x"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "участник")
}

func TestReviewService_Moderate_ApproveTriggersRecompute(t *testing.T) {
	svc, reviews, _, users, aggregator, _ := newReviewServiceForTest()
	ctx := context.Background()

	adminID := uuid.New()
	revieweeID := uuid.New()
	reviewID := uuid.New()

	review := &models.Review{ID: reviewID, RevieweeID: revieweeID, Status: models.ReviewStatusPending}

	users.On("GetByID", ctx, adminID).Return(&models.User{ID: adminID, IsAdmin: true}, nil)
	reviews.On("GetByID", ctx, reviewID).Return(review, nil)
	reviews.On("SetStatus", ctx, reviewID, models.ReviewStatusApproved).Return(nil)
	aggregator.On("Recompute", ctx, revieweeID).Return(nil)

	_, err := svc.Moderate(ctx, reviewID, adminID, models.ReviewStatusApproved)
	assert.NoError(t, err)
	aggregator.AssertCalled(t, "Recompute", ctx, revieweeID)
}

func TestReviewService_Moderate_RejectPendingSkipsRecompute(t *testing.T) {
	svc, reviews, _, users, aggregator, _ := newReviewServiceForTest()
	ctx := context.Background()

	adminID := uuid.New()
	reviewID := uuid.New()

	review := &models.Review{ID: reviewID, RevieweeID: uuid.New(), Status: models.ReviewStatusPending}

	users.On("GetByID", ctx, adminID).Return(&models.User{ID: adminID, IsAdmin: true}, nil)
	reviews.On("GetByID", ctx, reviewID).Return(review, nil)
	reviews.On("SetStatus", ctx, reviewID, models.ReviewStatusRejected).Return(nil)

	// Отклонение отзыва, который не был одобрен, рейтинг не меняет.
	_, err := svc.Moderate(ctx, reviewID, adminID, models.ReviewStatusRejected)
	assert.NoError(t, err)
	aggregator.AssertNotCalled(t, "Recompute", mock.Anything, mock.Anything)
}

func TestReviewService_Moderate_NotAdmin(t *testing.T) {
	svc, _, _, users, _, _ := newReviewServiceForTest()
	ctx := context.Background()

	userID := uuid.New()
	users.On("GetByID", ctx, userID).Return(&models.User{ID: userID}, nil)

	_, err := svc.Moderate(ctx, uuid.New(), userID, models.ReviewStatusApproved)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "администратору")
}

func TestReviewService_DeleteReview_ApprovedTriggersRecompute(t *testing.T) {
	svc, reviews, _, _, aggregator, _ := newReviewServiceForTest()
	ctx := context.Background()

	reviewerID := uuid.New()
	revieweeID := uuid.New()
	reviewID := uuid.New()

	review := &models.Review{ID: reviewID, ReviewerID: reviewerID, RevieweeID: revieweeID, Status: models.ReviewStatusApproved}

	reviews.On("GetByID", ctx, reviewID).Return(review, nil)
	reviews.On("Delete", ctx, reviewID).Return(nil)
	aggregator.On("Recompute", ctx, revieweeID).Return(nil)

	err := svc.DeleteReview(ctx, reviewID, reviewerID)
	assert.NoError(t, err)
	aggregator.AssertCalled(t, "Recompute", ctx, revieweeID)
}

func TestReviewService_MarkHelpful_SetAndUnset(t *testing.T) {
	svc, reviews, _, _, _, _ := newReviewServiceForTest()
	ctx := context.Background()

	userID := uuid.New()
	reviewID := uuid.New()

	review := &models.Review{ID: reviewID, ReviewerID: uuid.New()}
	reviews.On("GetByID", ctx, reviewID).Return(review, nil)
	reviews.On("SetHelpful", ctx, reviewID, userID, true).Return(nil)
	reviews.On("SetHelpful", ctx, reviewID, userID, false).Return(nil)

	active, err := svc.MarkHelpful(ctx, reviewID, userID, true)
	assert.NoError(t, err)
	assert.True(t, active)

	// Снятие явно передаётся в хранилище, а не выводится из членства.
	active, err = svc.MarkHelpful(ctx, reviewID, userID, false)
	assert.NoError(t, err)
	assert.False(t, active)
	reviews.AssertCalled(t, "SetHelpful", ctx, reviewID, userID, false)
}

func TestReviewService_MarkHelpful_OwnReview(t *testing.T) {
	svc, reviews, _, _, _, _ := newReviewServiceForTest()
	ctx := context.Background()

	reviewerID := uuid.New()
	reviewID := uuid.New()

	review := &models.Review{ID: reviewID, ReviewerID: reviewerID}
	reviews.On("GetByID", ctx, reviewID).Return(review, nil)

	_, err := svc.MarkHelpful(ctx, reviewID, reviewerID, true)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "собственный")
	reviews.AssertNotCalled(t, "SetHelpful", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReviewService_FlagReview_ApprovedGoesBackToModeration(t *testing.T) {
	svc, reviews, _, _, aggregator, _ := newReviewServiceForTest()
	ctx := context.Background()

	revieweeID := uuid.New()
	reviewID := uuid.New()
	userID := uuid.New()

	review := &models.Review{ID: reviewID, ReviewerID: uuid.New(), RevieweeID: revieweeID, Status: models.ReviewStatusApproved}

	reviews.On("GetByID", ctx, reviewID).Return(review, nil)
	reviews.On("UpsertFlag", ctx, reviewID, userID, "спам").Return(nil)
	reviews.On("SetStatus", ctx, reviewID, models.ReviewStatusPending).Return(nil)
	aggregator.On("Recompute", ctx, revieweeID).Return(nil)

	err := svc.FlagReview(ctx, reviewID, userID, "спам")
	assert.NoError(t, err)
	reviews.AssertCalled(t, "SetStatus", ctx, reviewID, models.ReviewStatusPending)
	aggregator.AssertCalled(t, "Recompute", ctx, revieweeID)
}

func TestReviewService_FlagReview_PendingKeepsStatus(t *testing.T) {
	svc, reviews, _, _, aggregator, _ := newReviewServiceForTest()
	ctx := context.Background()

	reviewID := uuid.New()
	userID := uuid.New()

	review := &models.Review{ID: reviewID, ReviewerID: uuid.New(), RevieweeID: uuid.New(), Status: models.ReviewStatusPending}

	reviews.On("GetByID", ctx, reviewID).Return(review, nil)
	reviews.On("UpsertFlag", ctx, reviewID, userID, "грубость").Return(nil)

	err := svc.FlagReview(ctx, reviewID, userID, "грубость")
	assert.NoError(t, err)
	reviews.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything)
	aggregator.AssertNotCalled(t, "Recompute", mock.Anything, mock.Anything)
}

func TestReviewService_Respond_OnlyReviewee(t *testing.T) {
	svc, reviews, _, _, _, notifier := newReviewServiceForTest()
	ctx := context.Background()

	reviewerID := uuid.New()
	revieweeID := uuid.New()
	reviewID := uuid.New()

	review := &models.Review{ID: reviewID, ReviewerID: reviewerID, RevieweeID: revieweeID}

	reviews.On("GetByID", ctx, reviewID).Return(review, nil)
	reviews.On("SetResponse", ctx, reviewID, "Спасибо за отзыв").Return(nil)
	notifier.On("NotifyAsync", reviewerID, models.NotificationTypeReview, mock.Anything, mock.Anything, mock.Anything).Return()

	_, err := svc.Respond(ctx, reviewID, revieweeID, "Спасибо за отзыв")
	assert.NoError(t, err)

	// Чужой пользователь ответить не может.
	_, err = svc.Respond(ctx, reviewID, uuid.New(), "текст")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "получатель")
}

func TestReviewService_Respond_OverwritesPrevious(t *testing.T) {
	svc, reviews, _, _, _, notifier := newReviewServiceForTest()
	ctx := context.Background()

	reviewerID := uuid.New()
	revieweeID := uuid.New()
	reviewID := uuid.New()
	existing := "первый вариант ответа"

	// У отзыва одно поле ответа: повторный ответ перезаписывает его.
	review := &models.Review{ID: reviewID, ReviewerID: reviewerID, RevieweeID: revieweeID, ResponseContent: &existing}

	reviews.On("GetByID", ctx, reviewID).Return(review, nil)
	reviews.On("SetResponse", ctx, reviewID, "исправленный ответ").Return(nil)
	notifier.On("NotifyAsync", reviewerID, models.NotificationTypeReview, mock.Anything, mock.Anything, mock.Anything).Return()

	_, err := svc.Respond(ctx, reviewID, revieweeID, "исправленный ответ")
	assert.NoError(t, err)
	reviews.AssertCalled(t, "SetResponse", ctx, reviewID, "исправленный ответ")
}

func TestReviewService_ListReviews_ApprovedOnly(t *testing.T) {
	svc, reviews, _, _, _, _ := newReviewServiceForTest()
	ctx := context.Background()

	revieweeID := uuid.New()
	expected := []models.Review{{ID: uuid.New()}}
	reviews.On("ListByReviewee", ctx, revieweeID, models.ReviewStatusApproved, 20, 0).Return(expected, nil)

	got, err := svc.ListReviews(ctx, revieweeID, 20, 0)
	assert.NoError(t, err)
	assert.Len(t, got, 1)
}
