package reviews

import (
	"context"
	"testing"
	"time"

	"trendaryo/apperr"
	"trendaryo/models"
	"trendaryo/mq"
	"trendaryo/ratings"
	"trendaryo/repository/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc    *Service
	store  *memory.Store
	events *mq.Recorder
}

func newFixture(t *testing.T, autoApprove bool) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Products.Insert(ctx, &models.Product{
		ID: "p1", Name: "Sneaker", Slug: "sneaker", Price: decimal.RequireFromString("10"),
		Stock: 5, Status: models.ProductActive,
		Ratings: models.RatingSummary{Distribution: models.EmptyDistribution()},
	}))
	require.NoError(t, store.Orders.Insert(ctx, &models.Order{
		ID: "o1", OrderNumber: "TR2405010001", UserID: "buyer", Status: models.OrderDelivered,
		Items: []models.LineItem{{ProductID: "p1", Name: "Sneaker", Quantity: 1}},
	}))
	events := &mq.Recorder{}
	svc := &Service{
		Reviews:     store.Reviews,
		Products:    store.Products,
		Orders:      store.Orders,
		Ratings:     ratings.NewAggregator(store.Products, store.Reviews),
		AutoApprove: autoApprove,
		Events:      events,
		Now:         func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	}
	return &fixture{svc: svc, store: store, events: events}
}

func (f *fixture) ratings(t *testing.T) models.RatingSummary {
	t.Helper()
	p, err := f.store.Products.FindByID(context.Background(), "p1")
	require.NoError(t, err)
	return p.Ratings
}

func review(rating int) CreateRequest {
	return CreateRequest{Rating: rating, Title: "Nice", Comment: "Fits well"}
}

func TestCreateReview(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, "buyer", "p1", review(5))
	require.NoError(t, err)
	assert.Equal(t, models.ReviewPending, r.Status)
	assert.True(t, r.VerifiedPurchase)
	assert.Equal(t, 0, f.ratings(t).Count, "pending reviews do not count")

	_, err = f.svc.Create(ctx, "buyer", "p1", review(4))
	assert.ErrorIs(t, err, apperr.ErrConflict)

	r, err = f.svc.Create(ctx, "browser", "p1", review(3))
	require.NoError(t, err)
	assert.False(t, r.VerifiedPurchase)

	_, err = f.svc.Create(ctx, "u3", "missing", review(3))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateReviewValidation(t *testing.T) {
	f := newFixture(t, false)
	for name, req := range map[string]CreateRequest{
		"rating too low":  {Rating: 0, Comment: "x"},
		"rating too high": {Rating: 6, Comment: "x"},
		"no comment":      {Rating: 3, Comment: "  "},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), "u1", "p1", req)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestAutoApproveRecomputes(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	for user, rating := range map[string]int{"a": 5, "b": 5, "c": 4, "d": 3} {
		_, err := f.svc.Create(ctx, user, "p1", review(rating))
		require.NoError(t, err)
	}
	got := f.ratings(t)
	assert.Equal(t, 4, got.Count)
	assert.InDelta(t, 4.25, got.Average, 1e-9)
	assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 1, 4: 1, 5: 2}, got.Distribution)
	assert.Contains(t, f.events.Names(), mq.ReviewChanged)
}

func TestModerationMovesAggregate(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	r, err := f.svc.Create(ctx, "buyer", "p1", review(2))
	require.NoError(t, err)

	_, err = f.svc.Moderate(ctx, r.ID, models.ReviewApproved, "ok")
	require.NoError(t, err)
	assert.Equal(t, 1, f.ratings(t).Count)
	assert.InDelta(t, 2.0, f.ratings(t).Average, 1e-9)

	got, err := f.svc.Moderate(ctx, r.ID, models.ReviewSpam, "bot")
	require.NoError(t, err)
	assert.Equal(t, "bot", got.ModeratorNotes)
	summary := f.ratings(t)
	assert.Equal(t, 0, summary.Count)
	assert.Zero(t, summary.Average)
	assert.Equal(t, models.EmptyDistribution(), summary.Distribution)

	_, err = f.svc.Moderate(ctx, r.ID, models.ReviewStatus("hidden"), "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateReview(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	r, err := f.svc.Create(ctx, "buyer", "p1", review(5))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, r.ID, "someone", UpdateRequest{Rating: new(int)})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	one := 1
	got, err := f.svc.Update(ctx, r.ID, "buyer", UpdateRequest{Rating: &one})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Rating)
	assert.InDelta(t, 1.0, f.ratings(t).Average, 1e-9)

	nine := 9
	_, err = f.svc.Update(ctx, r.ID, "buyer", UpdateRequest{Rating: &nine})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDeleteReview(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	r, err := f.svc.Create(ctx, "buyer", "p1", review(4))
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, r.ID, "someone", false), apperr.ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, r.ID, "mod", true))
	assert.Equal(t, 0, f.ratings(t).Count)
	assert.ErrorIs(t, f.svc.Delete(ctx, r.ID, "buyer", false), apperr.ErrNotFound)
}

func TestDeletedProductDoesNotFailReviewWrites(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	r, err := f.svc.Create(ctx, "buyer", "p1", review(4))
	require.NoError(t, err)
	require.NoError(t, f.store.Products.Delete(ctx, "p1"))

	got, err := f.svc.Moderate(ctx, r.ID, models.ReviewApproved, "")
	require.NoError(t, err)
	assert.Equal(t, models.ReviewApproved, got.Status)
}

func TestHelpfulAndReport(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	r, err := f.svc.Create(ctx, "buyer", "p1", review(4))
	require.NoError(t, err)

	_, err = f.svc.MarkHelpful(ctx, r.ID, "buyer", true)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	got, err := f.svc.MarkHelpful(ctx, r.ID, "u2", true)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Helpful.Count)
	_, err = f.svc.MarkHelpful(ctx, r.ID, "u2", true)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	got, err = f.svc.MarkHelpful(ctx, r.ID, "u2", false)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Helpful.Count)
	_, err = f.svc.MarkHelpful(ctx, r.ID, "u2", false)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	assert.ErrorIs(t, f.svc.Report(ctx, r.ID, "u2", " "), apperr.ErrValidation)
	require.NoError(t, f.svc.Report(ctx, r.ID, "u2", "spam link"))
	assert.ErrorIs(t, f.svc.Report(ctx, r.ID, "u2", "again"), apperr.ErrConflict)

	stored, err := f.svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Reported.Count)
	assert.Equal(t, "spam link", stored.Reported.Reasons[0].Reason)
}
