// Package ratings keeps a product's rating aggregate consistent with its
// approved reviews.
package ratings

import (
	"context"
	"errors"

	"trendaryo/apperr"
	"trendaryo/models"
	"trendaryo/repository"

	"github.com/rs/zerolog/log"
)

// MaxAttempts bounds the compare-and-swap loop of Recompute.
const MaxAttempts = 5

// Aggregate computes the summary of the given star ratings. The average is
// the unrounded mean; values outside 1..5 are ignored.
func Aggregate(ratings []int) models.RatingSummary {
	s := models.RatingSummary{Distribution: models.EmptyDistribution()}
	sum := 0
	for _, r := range ratings {
		if !models.ValidRating(r) {
			continue
		}
		s.Distribution[r]++
		s.Count++
		sum += r
	}
	if s.Count > 0 {
		s.Average = float64(sum) / float64(s.Count)
	}
	return s
}

type Aggregator struct {
	Products repository.ProductRepository
	Reviews  repository.ReviewRepository
}

func NewAggregator(products repository.ProductRepository, reviews repository.ReviewRepository) *Aggregator {
	return &Aggregator{Products: products, Reviews: reviews}
}

// Recompute rebuilds the product's aggregate from every approved review.
// The write is conditional on the ratings version read before the reviews,
// so a concurrent recompute forces a fresh read instead of being overwritten.
func (a *Aggregator) Recompute(ctx context.Context, productID string) error {
	for attempt := 1; ; attempt++ {
		p, err := a.Products.FindByID(ctx, productID)
		if err != nil {
			return err
		}

		approved, _, err := a.Reviews.Find(ctx, repository.ReviewQuery{
			ProductID: productID,
			Status:    models.ReviewApproved,
		})
		if err != nil {
			return err
		}
		stars := make([]int, len(approved))
		for i, r := range approved {
			stars[i] = r.Rating
		}
		summary := Aggregate(stars)

		err = a.Products.SetRatings(ctx, productID, p.RatingsVersion, summary)
		if err == nil {
			log.Debug().Str("product", productID).Int("count", summary.Count).Float64("average", summary.Average).Msg("ratings recomputed")
			return nil
		}
		if !errors.Is(err, apperr.ErrConflict) || attempt >= MaxAttempts {
			return err
		}
		log.Debug().Str("product", productID).Int("attempt", attempt).Msg("ratings version moved, retrying")
	}
}
