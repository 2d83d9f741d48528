package service

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/ignatzorin/localhelp-backend/internal/geo"
	"github.com/ignatzorin/localhelp-backend/internal/logger"
	"github.com/ignatzorin/localhelp-backend/internal/models"
	"github.com/ignatzorin/localhelp-backend/internal/pkg/apperror"
)

// HelperLister возвращает кандидатов для резервного поиска по БД.
type HelperLister interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
	ListActiveHelpers(ctx context.Context) ([]models.User, error)
	UpdateLocation(ctx context.Context, userID uuid.UUID, lat, lon float64) error
}

// Locator описывает гео-индекс активных исполнителей.
type Locator interface {
	Update(ctx context.Context, helperID uuid.UUID, lat, lon float64) error
	Remove(ctx context.Context, helperID uuid.UUID) error
	Nearby(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]geo.NearbyHelper, error)
}

// MatchedHelper кандидат на задание с расстоянием до него.
type MatchedHelper struct {
	User   models.User `json:"user"`
	DistKm float64     `json:"dist_km"`
}

// MatcherService подбирает исполнителей поблизости от задания.
// Основной путь — гео-индекс в Redis; при его отсутствии или сбое
// кандидаты считаются по гаверсинусу из БД.
type MatcherService struct {
	users      HelperLister
	jobs       JobStoreForReviews
	locator    Locator
	radiusKm   float64
	maxHelpers int
}

// NewMatcherService создаёт сервис подбора. locator может быть nil —
// тогда всегда используется резервный путь через БД.
func NewMatcherService(users HelperLister, jobs JobStoreForReviews, locator Locator, radiusKm float64, maxHelpers int) *MatcherService {
	if radiusKm <= 0 {
		radiusKm = 25
	}
	if maxHelpers <= 0 {
		maxHelpers = 50
	}
	return &MatcherService{
		users:      users,
		jobs:       jobs,
		locator:    locator,
		radiusKm:   radiusKm,
		maxHelpers: maxHelpers,
	}
}

// UpdateLocation сохраняет позицию исполнителя в БД и гео-индексе.
func (s *MatcherService) UpdateLocation(ctx context.Context, helperID uuid.UUID, lat, lon float64) error {
	if !geo.ValidCoordinates(lat, lon) {
		return apperror.New(apperror.ErrCodeValidation, "matcher service: некорректные координаты")
	}

	if err := s.users.UpdateLocation(ctx, helperID, lat, lon); err != nil {
		return err
	}
	if s.locator != nil {
		if err := s.locator.Update(ctx, helperID, lat, lon); err != nil {
			logger.Errorf("matcher service: не удалось обновить гео-индекс для %s: %v", helperID, err)
		}
	}
	return nil
}

// RemoveFromIndex убирает исполнителя из гео-индекса.
func (s *MatcherService) RemoveFromIndex(ctx context.Context, helperID uuid.UUID) error {
	if s.locator == nil {
		return nil
	}
	return s.locator.Remove(ctx, helperID)
}

// FindEligibleHelpers возвращает подходящих исполнителей для задания,
// отсортированных по расстоянию. Учитываются только активные аккаунты,
// способные принимать задания; автор задания исключается всегда.
func (s *MatcherService) FindEligibleHelpers(ctx context.Context, jobID uuid.UUID) ([]MatchedHelper, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if s.locator != nil {
		matched, err := s.findViaIndex(ctx, job)
		if err == nil {
			return matched, nil
		}
		logger.Errorf("matcher service: гео-индекс недоступен, переход на БД: %v", err)
	}

	return s.findViaScan(ctx, job)
}

// findViaIndex ищет кандидатов через Redis GEO.
func (s *MatcherService) findViaIndex(ctx context.Context, job *models.Job) ([]MatchedHelper, error) {
	// Запрашиваем с запасом: часть кандидатов отсеется по фильтрам.
	nearby, err := s.locator.Nearby(ctx, job.Latitude, job.Longitude, s.radiusKm, s.maxHelpers*2)
	if err != nil {
		return nil, err
	}
	if len(nearby) == 0 {
		return []MatchedHelper{}, nil
	}

	ids := make([]uuid.UUID, 0, len(nearby))
	distByID := make(map[uuid.UUID]float64, len(nearby))
	for _, n := range nearby {
		ids = append(ids, n.ID)
		distByID[n.ID] = n.DistKm
	}

	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	matched := make([]MatchedHelper, 0, len(users))
	for _, u := range users {
		if !s.eligible(&u, job) {
			continue
		}
		matched = append(matched, MatchedHelper{User: u, DistKm: distByID[u.ID]})
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].DistKm < matched[j].DistKm })
	if len(matched) > s.maxHelpers {
		matched = matched[:s.maxHelpers]
	}
	return matched, nil
}

// findViaScan перебирает активных исполнителей из БД и считает
// расстояние по гаверсинусу.
func (s *MatcherService) findViaScan(ctx context.Context, job *models.Job) ([]MatchedHelper, error) {
	users, err := s.users.ListActiveHelpers(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]MatchedHelper, 0)
	for _, u := range users {
		if u.Latitude == nil || u.Longitude == nil {
			continue
		}
		if !s.eligible(&u, job) {
			continue
		}
		dist := geo.HaversineKm(job.Latitude, job.Longitude, *u.Latitude, *u.Longitude)
		if dist > s.radiusKm {
			continue
		}
		matched = append(matched, MatchedHelper{User: u, DistKm: dist})
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].DistKm < matched[j].DistKm })
	if len(matched) > s.maxHelpers {
		matched = matched[:s.maxHelpers]
	}
	return matched, nil
}

func (s *MatcherService) eligible(u *models.User, job *models.Job) bool {
	if u.ID == job.CreatorID {
		return false
	}
	if !u.CanAcceptJobs() {
		return false
	}
	if job.VerifiedOnly && !u.IsVerified {
		return false
	}
	return true
}
