package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/localhelp-backend/internal/geo"
	"github.com/ignatzorin/localhelp-backend/internal/models"
)

type mockHelperLister struct {
	mock.Mock
}

func (m *mockHelperLister) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockHelperLister) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *mockHelperLister) ListActiveHelpers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *mockHelperLister) UpdateLocation(ctx context.Context, userID uuid.UUID, lat, lon float64) error {
	args := m.Called(ctx, userID, lat, lon)
	return args.Error(0)
}

type mockLocator struct {
	mock.Mock
}

func (m *mockLocator) Update(ctx context.Context, helperID uuid.UUID, lat, lon float64) error {
	args := m.Called(ctx, helperID, lat, lon)
	return args.Error(0)
}

func (m *mockLocator) Remove(ctx context.Context, helperID uuid.UUID) error {
	args := m.Called(ctx, helperID)
	return args.Error(0)
}

func (m *mockLocator) Nearby(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]geo.NearbyHelper, error) {
	args := m.Called(ctx, lat, lon, radiusKm, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]geo.NearbyHelper), args.Error(1)
}

func activeHelper(id uuid.UUID, lat, lon float64) models.User {
	return models.User{
		ID:          id,
		IsActive:    true,
		AccountType: models.AccountTypeHelper,
		Latitude:    &lat,
		Longitude:   &lon,
	}
}

func TestMatcherService_FindViaIndex(t *testing.T) {
	users := new(mockHelperLister)
	jobs := new(mockJobStoreForReviews)
	locator := new(mockLocator)
	svc := NewMatcherService(users, jobs, locator, 25, 50)
	ctx := context.Background()

	creatorID := uuid.New()
	nearID := uuid.New()
	farID := uuid.New()
	jobID := uuid.New()

	job := &models.Job{ID: jobID, CreatorID: creatorID, Latitude: 55.75, Longitude: 37.61}
	jobs.On("GetByID", ctx, jobID).Return(job, nil)

	locator.On("Nearby", ctx, 55.75, 37.61, 25.0, 100).Return([]geo.NearbyHelper{
		{ID: farID, DistKm: 12.0},
		{ID: nearID, DistKm: 2.5},
	}, nil)
	users.On("GetByIDs", ctx, mock.Anything).Return([]models.User{
		activeHelper(nearID, 55.77, 37.60),
		activeHelper(farID, 55.85, 37.50),
	}, nil)

	matched, err := svc.FindEligibleHelpers(ctx, jobID)

	assert.NoError(t, err)
	assert.Len(t, matched, 2)
	// Кандидаты отсортированы по расстоянию.
	assert.Equal(t, nearID, matched[0].User.ID)
	assert.Equal(t, 2.5, matched[0].DistKm)
	users.AssertNotCalled(t, "ListActiveHelpers", mock.Anything)
}

func TestMatcherService_IndexErrorFallsBackToScan(t *testing.T) {
	users := new(mockHelperLister)
	jobs := new(mockJobStoreForReviews)
	locator := new(mockLocator)
	svc := NewMatcherService(users, jobs, locator, 25, 50)
	ctx := context.Background()

	helperID := uuid.New()
	jobID := uuid.New()

	job := &models.Job{ID: jobID, CreatorID: uuid.New(), Latitude: 55.75, Longitude: 37.61}
	jobs.On("GetByID", ctx, jobID).Return(job, nil)
	locator.On("Nearby", ctx, 55.75, 37.61, 25.0, 100).Return(nil, errors.New("redis down"))
	users.On("ListActiveHelpers", ctx).Return([]models.User{
		activeHelper(helperID, 55.76, 37.62),
	}, nil)

	matched, err := svc.FindEligibleHelpers(ctx, jobID)

	assert.NoError(t, err)
	assert.Len(t, matched, 1)
	assert.Equal(t, helperID, matched[0].User.ID)
}

func TestMatcherService_ScanFiltersByRadius(t *testing.T) {
	users := new(mockHelperLister)
	jobs := new(mockJobStoreForReviews)
	svc := NewMatcherService(users, jobs, nil, 25, 50)
	ctx := context.Background()

	nearID := uuid.New()
	farID := uuid.New()
	jobID := uuid.New()

	job := &models.Job{ID: jobID, CreatorID: uuid.New(), Latitude: 55.7558, Longitude: 37.6173}
	jobs.On("GetByID", ctx, jobID).Return(job, nil)
	users.On("ListActiveHelpers", ctx).Return([]models.User{
		activeHelper(nearID, 55.76, 37.62),
		// Санкт-Петербург, далеко за пределами радиуса.
		activeHelper(farID, 59.9311, 30.3609),
	}, nil)

	matched, err := svc.FindEligibleHelpers(ctx, jobID)

	assert.NoError(t, err)
	assert.Len(t, matched, 1)
	assert.Equal(t, nearID, matched[0].User.ID)
}

func TestMatcherService_ExcludesCreatorAndIneligible(t *testing.T) {
	users := new(mockHelperLister)
	jobs := new(mockJobStoreForReviews)
	svc := NewMatcherService(users, jobs, nil, 25, 50)
	ctx := context.Background()

	creatorID := uuid.New()
	inactiveID := uuid.New()
	unverifiedID := uuid.New()
	okID := uuid.New()
	jobID := uuid.New()

	job := &models.Job{ID: jobID, CreatorID: creatorID, Latitude: 55.75, Longitude: 37.61, VerifiedOnly: true}
	jobs.On("GetByID", ctx, jobID).Return(job, nil)

	creator := activeHelper(creatorID, 55.75, 37.61)
	inactive := activeHelper(inactiveID, 55.75, 37.61)
	inactive.IsActive = false
	unverified := activeHelper(unverifiedID, 55.75, 37.61)
	verified := activeHelper(okID, 55.76, 37.62)
	verified.IsVerified = true

	users.On("ListActiveHelpers", ctx).Return([]models.User{creator, inactive, unverified, verified}, nil)

	matched, err := svc.FindEligibleHelpers(ctx, jobID)

	assert.NoError(t, err)
	assert.Len(t, matched, 1)
	assert.Equal(t, okID, matched[0].User.ID)
}

func TestMatcherService_CapsResultCount(t *testing.T) {
	users := new(mockHelperLister)
	jobs := new(mockJobStoreForReviews)
	svc := NewMatcherService(users, jobs, nil, 25, 3)
	ctx := context.Background()

	jobID := uuid.New()
	job := &models.Job{ID: jobID, CreatorID: uuid.New(), Latitude: 55.75, Longitude: 37.61}
	jobs.On("GetByID", ctx, jobID).Return(job, nil)

	var helpers []models.User
	for i := 0; i < 10; i++ {
		helpers = append(helpers, activeHelper(uuid.New(), 55.75+float64(i)*0.001, 37.61))
	}
	users.On("ListActiveHelpers", ctx).Return(helpers, nil)

	matched, err := svc.FindEligibleHelpers(ctx, jobID)

	assert.NoError(t, err)
	assert.Len(t, matched, 3)
}

func TestMatcherService_UpdateLocation_InvalidCoordinates(t *testing.T) {
	users := new(mockHelperLister)
	jobs := new(mockJobStoreForReviews)
	svc := NewMatcherService(users, jobs, nil, 25, 50)
	ctx := context.Background()

	err := svc.UpdateLocation(ctx, uuid.New(), 95, 37.61)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "координаты")
	users.AssertNotCalled(t, "UpdateLocation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMatcherService_UpdateLocation_WritesDBAndIndex(t *testing.T) {
	users := new(mockHelperLister)
	jobs := new(mockJobStoreForReviews)
	locator := new(mockLocator)
	svc := NewMatcherService(users, jobs, locator, 25, 50)
	ctx := context.Background()

	helperID := uuid.New()
	users.On("UpdateLocation", ctx, helperID, 55.75, 37.61).Return(nil)
	locator.On("Update", ctx, helperID, 55.75, 37.61).Return(nil)

	err := svc.UpdateLocation(ctx, helperID, 55.75, 37.61)
	assert.NoError(t, err)
	locator.AssertCalled(t, "Update", ctx, helperID, 55.75, 37.61)
}
