package service

import (
	"context"
	"math"

	"github.com/google/uuid"

	"github.com/ignatzorin/localhelp-backend/internal/models"
)

// ApprovedReviewLister возвращает одобренные отзывы для пересчёта рейтинга.
type ApprovedReviewLister interface {
	ListApprovedByReviewee(ctx context.Context, revieweeID uuid.UUID) ([]models.Review, error)
}

// RatingWriter записывает пересчитанную сводку рейтинга пользователя.
type RatingWriter interface {
	UpdateRating(ctx context.Context, userID uuid.UUID, rating models.UserRating) error
}

// RatingAggregator пересчитывает рейтинг пользователя из одобренных
// отзывов. Сводка всегда вычисляется заново из полного списка, а не
// корректируется инкрементально, поэтому пересчёт идемпотентен.
type RatingAggregator struct {
	reviews ApprovedReviewLister
	users   RatingWriter
}

func NewRatingAggregator(reviews ApprovedReviewLister, users RatingWriter) *RatingAggregator {
	return &RatingAggregator{reviews: reviews, users: users}
}

// round1 округляет до одного знака после запятой.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Compute строит сводку рейтинга из списка отзывов.
func Compute(reviews []models.Review) models.UserRating {
	if len(reviews) == 0 {
		return models.UserRating{}
	}

	var sum, sumComm, sumQual, sumTime, sumProf, sumValue int
	var dist [5]int
	for _, r := range reviews {
		sum += r.Rating
		if r.Rating >= 1 && r.Rating <= 5 {
			dist[r.Rating-1]++
		}
		sumComm += r.Communication
		sumQual += r.Quality
		sumTime += r.Timeliness
		sumProf += r.Professionalism
		sumValue += r.Value
	}

	n := float64(len(reviews))
	return models.UserRating{
		Average:            round1(float64(sum) / n),
		TotalReviews:       len(reviews),
		Distribution:       dist,
		AvgCommunication:   round1(float64(sumComm) / n),
		AvgQuality:         round1(float64(sumQual) / n),
		AvgTimeliness:      round1(float64(sumTime) / n),
		AvgProfessionalism: round1(float64(sumProf) / n),
		AvgValue:           round1(float64(sumValue) / n),
	}
}

// Recompute пересчитывает и сохраняет рейтинг пользователя.
func (a *RatingAggregator) Recompute(ctx context.Context, userID uuid.UUID) error {
	reviews, err := a.reviews.ListApprovedByReviewee(ctx, userID)
	if err != nil {
		return err
	}
	return a.users.UpdateRating(ctx, userID, Compute(reviews))
}
