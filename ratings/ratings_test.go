package ratings

import (
	"context"
	"testing"

	"trendaryo/apperr"
	"trendaryo/models"
	"trendaryo/repository"
	"trendaryo/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name    string
		ratings []int
		avg     float64
		count   int
		dist    map[int]int
	}{
		{"none", nil, 0, 0, map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}},
		{"mixed", []int{5, 5, 4, 3}, 4.25, 4, map[int]int{1: 0, 2: 0, 3: 1, 4: 1, 5: 2}},
		{"single", []int{1}, 1, 1, map[int]int{1: 1, 2: 0, 3: 0, 4: 0, 5: 0}},
		{"unrounded", []int{5, 4, 4}, 13.0 / 3.0, 3, map[int]int{1: 0, 2: 0, 3: 0, 4: 2, 5: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Aggregate(tt.ratings)
			assert.InDelta(t, tt.avg, s.Average, 1e-12)
			assert.Equal(t, tt.count, s.Count)
			assert.Equal(t, tt.dist, s.Distribution)
		})
	}
}

func seed(t *testing.T, ratings map[string]models.ReviewStatus, stars map[string]int) (*memory.Products, *memory.Reviews) {
	t.Helper()
	ctx := context.Background()
	products := memory.NewProducts()
	reviews := memory.NewReviews()
	require.NoError(t, products.Insert(ctx, &models.Product{ID: "p1", Slug: "p1", Status: models.ProductActive, Stock: 1}))
	for user, status := range ratings {
		require.NoError(t, reviews.Insert(ctx, &models.Review{
			ID: "r-" + user, ProductID: "p1", UserID: user, Rating: stars[user], Status: status,
		}))
	}
	return products, reviews
}

func TestRecomputeCountsApprovedOnly(t *testing.T) {
	ctx := context.Background()
	products, reviews := seed(t,
		map[string]models.ReviewStatus{"a": models.ReviewApproved, "b": models.ReviewApproved, "c": models.ReviewApproved, "d": models.ReviewApproved, "e": models.ReviewPending},
		map[string]int{"a": 5, "b": 5, "c": 4, "d": 3, "e": 1},
	)
	agg := NewAggregator(products, reviews)
	require.NoError(t, agg.Recompute(ctx, "p1"))

	p, err := products.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 4.25, p.Ratings.Average)
	assert.Equal(t, 4, p.Ratings.Count)
	assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 1, 4: 1, 5: 2}, p.Ratings.Distribution)
}

func TestRecomputeWithoutReviewsResets(t *testing.T) {
	ctx := context.Background()
	products, reviews := seed(t, nil, nil)
	require.NoError(t, products.SetRatings(ctx, "p1", 0, models.RatingSummary{Average: 3, Count: 9}))

	require.NoError(t, NewAggregator(products, reviews).Recompute(ctx, "p1"))
	p, err := products.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Zero(t, p.Ratings.Average)
	assert.Zero(t, p.Ratings.Count)
	assert.Equal(t, models.EmptyDistribution(), p.Ratings.Distribution)
}

func TestRecomputeUnknownProduct(t *testing.T) {
	products, reviews := seed(t, nil, nil)
	err := NewAggregator(products, reviews).Recompute(context.Background(), "gone")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// racingProducts bumps the ratings version between the read and the write
// for the first n calls.
type racingProducts struct {
	*memory.Products
	races int
	calls int
}

func (r *racingProducts) SetRatings(ctx context.Context, id string, expected int64, s models.RatingSummary) error {
	r.calls++
	if r.races > 0 {
		r.races--
		if err := r.Products.SetRatings(ctx, id, expected, models.RatingSummary{}); err != nil {
			return err
		}
	}
	return r.Products.SetRatings(ctx, id, expected, s)
}

func TestRecomputeRetriesOnVersionConflict(t *testing.T) {
	ctx := context.Background()
	products, reviews := seed(t,
		map[string]models.ReviewStatus{"a": models.ReviewApproved},
		map[string]int{"a": 4},
	)
	racing := &racingProducts{Products: products, races: 2}
	require.NoError(t, NewAggregator(racing, reviews).Recompute(ctx, "p1"))
	assert.Equal(t, 3, racing.calls)

	p, err := products.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Ratings.Count)
	assert.Equal(t, 4.0, p.Ratings.Average)
}

func TestRecomputeGivesUpAfterMaxAttempts(t *testing.T) {
	products, reviews := seed(t, nil, nil)
	racing := &racingProducts{Products: products, races: MaxAttempts + 1}
	err := NewAggregator(racing, reviews).Recompute(context.Background(), "p1")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, MaxAttempts, racing.calls)
}

var _ repository.ProductRepository = (*racingProducts)(nil)
