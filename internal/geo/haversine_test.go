package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKm_SamePoint(t *testing.T) {
	assert.InDelta(t, 0, HaversineKm(55.7558, 37.6173, 55.7558, 37.6173), 0.001)
}

func TestHaversineKm_KnownDistance(t *testing.T) {
	// Москва — Санкт-Петербург, около 634 км по прямой.
	dist := HaversineKm(55.7558, 37.6173, 59.9311, 30.3609)
	assert.InDelta(t, 634, dist, 5)
}

func TestHaversineKm_Symmetric(t *testing.T) {
	a := HaversineKm(40.7128, -74.0060, 34.0522, -118.2437)
	b := HaversineKm(34.0522, -118.2437, 40.7128, -74.0060)
	assert.InDelta(t, a, b, 0.0001)
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(0, 0))
	assert.True(t, ValidCoordinates(-90, 180))
	assert.False(t, ValidCoordinates(91, 0))
	assert.False(t, ValidCoordinates(0, -181))
}
