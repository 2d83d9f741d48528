package geo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const helpersKey = "helpers:active"

// NearbyHelper исполнитель из гео-индекса с расстоянием до точки поиска.
type NearbyHelper struct {
	ID     uuid.UUID
	DistKm float64
}

// HelperLocator ведёт гео-индекс активных исполнителей в Redis.
type HelperLocator struct {
	rdb *redis.Client
}

// NewHelperLocator создаёт локатор поверх подключения к Redis.
func NewHelperLocator(rdb *redis.Client) *HelperLocator {
	return &HelperLocator{rdb: rdb}
}

func memberName(helperID uuid.UUID) string {
	return "helper:" + helperID.String()
}

func parseHelperMember(member string) (uuid.UUID, error) {
	raw, ok := strings.CutPrefix(member, "helper:")
	if !ok {
		return uuid.Nil, fmt.Errorf("некорректный member %q", member)
	}
	return uuid.Parse(raw)
}

// Update записывает или обновляет позицию исполнителя в индексе.
func (l *HelperLocator) Update(ctx context.Context, helperID uuid.UUID, lat, lon float64) error {
	if !ValidCoordinates(lat, lon) {
		return fmt.Errorf("geo: некорректные координаты lat=%.8f lon=%.8f", lat, lon)
	}

	return l.rdb.GeoAdd(ctx, helpersKey, &redis.GeoLocation{
		Name:      memberName(helperID),
		Longitude: lon,
		Latitude:  lat,
	}).Err()
}

// Remove убирает исполнителя из индекса (деактивация аккаунта).
func (l *HelperLocator) Remove(ctx context.Context, helperID uuid.UUID) error {
	return l.rdb.ZRem(ctx, helpersKey, memberName(helperID)).Err()
}

// Nearby возвращает исполнителей в радиусе radiusKm, отсортированных по расстоянию.
func (l *HelperLocator) Nearby(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]NearbyHelper, error) {
	res, err := l.rdb.GeoSearchLocation(ctx, helpersKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  lon,
			Latitude:   lat,
			Radius:     radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
			Count:      limit,
		},
		WithDist: true,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("geo: поиск поблизости: %w", err)
	}

	helpers := make([]NearbyHelper, 0, len(res))
	for _, item := range res {
		id, err := parseHelperMember(item.Name)
		if err != nil {
			// Чужой member в индексе пропускаем.
			continue
		}
		helpers = append(helpers, NearbyHelper{ID: id, DistKm: item.Dist})
	}
	return helpers, nil
}
