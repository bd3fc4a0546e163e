package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"trendaryo/apperr"
	"trendaryo/inventory"
	"trendaryo/models"
	"trendaryo/mq"
	"trendaryo/repository"
	"trendaryo/repository/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeTotals(t *testing.T) {
	items := []models.LineItem{{Price: d("10"), Quantity: 2}, {Price: d("5"), Quantity: 1}}
	got, err := ComputeTotals(items, d("3"), d("2"), d("1"))
	require.NoError(t, err)
	assert.True(t, got.Subtotal.Equal(d("25")), got.Subtotal.String())
	assert.True(t, got.Total.Equal(d("29")), got.Total.String())
}

func TestComputeTotalsExactCents(t *testing.T) {
	items := []models.LineItem{{Price: d("0.1"), Quantity: 3}, {Price: d("19.99"), Quantity: 1}}
	got, err := ComputeTotals(items, decimal.Zero, decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "20.29", got.Total.StringFixed(2))
	assert.True(t, got.Subtotal.Equal(d("20.29")))
}

func TestComputeTotalsRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		items []models.LineItem
		s, x  string
	}{
		{"zero quantity", []models.LineItem{{Price: d("10"), Quantity: 0}}, "0", "0"},
		{"negative quantity", []models.LineItem{{Price: d("10"), Quantity: -2}}, "0", "0"},
		{"negative price", []models.LineItem{{Price: d("-1"), Quantity: 1}}, "0", "0"},
		{"negative shipping", []models.LineItem{{Price: d("1"), Quantity: 1}}, "-1", "0"},
		{"negative tax", []models.LineItem{{Price: d("1"), Quantity: 1}}, "0", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeTotals(tt.items, d(tt.s), d(tt.x), decimal.Zero)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestComputeTotalsReportsFirstNegativeAmount(t *testing.T) {
	items := []models.LineItem{{Price: d("1"), Quantity: 1}}
	for range 20 {
		_, err := ComputeTotals(items, d("-1"), d("-1"), d("-1"))
		require.ErrorIs(t, err, apperr.ErrValidation)
		assert.Contains(t, err.Error(), "shipping cost cannot be negative")
	}
}

func TestComputeTotalsDoesNotClamp(t *testing.T) {
	got, err := ComputeTotals([]models.LineItem{{Price: d("5"), Quantity: 1}}, decimal.Zero, decimal.Zero, d("8"))
	require.NoError(t, err)
	assert.True(t, got.Total.Equal(d("-3")))
}

func TestPricingQuote(t *testing.T) {
	p := Pricing{FlatShipping: d("5.99"), FreeShippingThreshold: d("50"), TaxRate: d("0.08")}
	items := []models.LineItem{{Price: d("12.50"), Quantity: 2}}

	q, err := p.Quote(items, nil)
	require.NoError(t, err)
	assert.Equal(t, "25.00", q.Subtotal.StringFixed(2))
	assert.Equal(t, "5.99", q.ShippingCost.StringFixed(2))
	assert.Equal(t, "2.00", q.Tax.StringFixed(2))
	assert.Equal(t, "32.99", q.Total.StringFixed(2))

	coupon := &models.Coupon{Code: "save10", Discount: d("10"), Active: true}
	q, err = p.Quote([]models.LineItem{{Price: d("60"), Quantity: 1}}, coupon)
	require.NoError(t, err)
	assert.True(t, q.ShippingCost.IsZero())
	assert.Equal(t, "6.00", q.Discount.StringFixed(2))
	assert.Equal(t, "save10", q.DiscountCode)
	assert.Equal(t, "58.80", q.Total.StringFixed(2))
}

func TestDiscountCappedAtSubtotal(t *testing.T) {
	c := &models.Coupon{Discount: d("100")}
	assert.True(t, Discount(c, d("20")).Equal(d("20")))
	assert.True(t, Discount(nil, d("20")).IsZero())
}

func TestValidateCoupon(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	ok := models.Coupon{Code: "c", Discount: d("10"), MinSpend: d("20"), ExpiresAt: now.Add(time.Hour), Active: true}
	require.NoError(t, ValidateCoupon(&ok, d("20"), now))

	inactive := ok
	inactive.Active = false
	expired := ok
	expired.ExpiresAt = now.Add(-time.Hour)
	bad := ok
	bad.Discount = d("150")
	for name, c := range map[string]models.Coupon{"inactive": inactive, "expired": expired, "discount": bad} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateCoupon(&c, d("100"), now), apperr.ErrValidation)
		})
	}
	assert.ErrorIs(t, ValidateCoupon(&ok, d("19.99"), now), apperr.ErrValidation)
}

func TestNumberer(t *testing.T) {
	n := &Numberer{Sequences: memory.NewSequences()}
	ctx := context.Background()
	day := time.Date(2024, 3, 7, 15, 0, 0, 0, time.UTC)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		num, err := n.Generate(ctx, day)
		require.NoError(t, err)
		assert.Regexp(t, `^TR240307\d{4}$`, num)
		assert.False(t, seen[num], num)
		seen[num] = true
	}
	first, err := n.Generate(ctx, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, "TR2403080001", first)
}

func TestNumbererWidensPastFourDigits(t *testing.T) {
	seq := memory.NewSequences()
	ctx := context.Background()
	for i := 0; i < 9999; i++ {
		_, err := seq.Next(ctx, "orders:240101")
		require.NoError(t, err)
	}
	num, err := (&Numberer{Sequences: seq}).Generate(ctx, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "TR24010110000", num)
}

func TestCanTransition(t *testing.T) {
	allowed := [][2]models.OrderStatus{
		{models.OrderPending, models.OrderConfirmed},
		{models.OrderPending, models.OrderProcessing},
		{models.OrderConfirmed, models.OrderShipped},
		{models.OrderOutForDelivery, models.OrderDelivered},
		{models.OrderPending, models.OrderCancelled},
		{models.OrderReadyForShipment, models.OrderCancelled},
		{models.OrderShipped, models.OrderReturned},
		{models.OrderProcessing, models.OrderRefunded},
	}
	for _, tr := range allowed {
		assert.True(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}
	denied := [][2]models.OrderStatus{
		{models.OrderConfirmed, models.OrderPending},
		{models.OrderShipped, models.OrderProcessing},
		{models.OrderShipped, models.OrderCancelled},
		{models.OrderDelivered, models.OrderCancelled},
		{models.OrderCancelled, models.OrderConfirmed},
		{models.OrderDelivered, models.OrderReturned},
		{models.OrderPending, models.OrderReturned},
		{models.OrderPending, models.OrderRefunded},
		{models.OrderRefunded, models.OrderRefunded},
		{models.OrderPending, models.OrderPending},
	}
	for _, tr := range denied {
		assert.False(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}
}

type fixture struct {
	svc    *Service
	store  *memory.Store
	events *mq.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	events := &mq.Recorder{}
	for _, p := range []*models.Product{
		{ID: "p1", Name: "Sneaker", Slug: "sneaker", Price: d("10"), Stock: 5, Status: models.ProductActive, Thumbnail: "/img/p1.jpg"},
		{ID: "p2", Name: "Cap", Slug: "cap", Price: d("5"), Stock: 1, Status: models.ProductActive},
		{ID: "p3", Name: "Draft", Slug: "draft", Price: d("5"), Stock: 9, Status: models.ProductDraft},
	} {
		require.NoError(t, store.Products.Insert(ctx, p))
	}
	require.NoError(t, store.Users.Insert(ctx, &models.User{ID: "u1", Email: "u1@example.com", Role: models.RoleUser, IsActive: true}))
	require.NoError(t, store.Coupons.Insert(ctx, &models.Coupon{Code: "HALF", Discount: d("50"), Active: true}))

	svc := &Service{
		Orders:    store.Orders,
		Products:  store.Products,
		Users:     store.Users,
		Coupons:   store.Coupons,
		Inventory: inventory.NewService(store.Products, events),
		Numbers:   &Numberer{Sequences: store.Sequences},
		Pricing:   Pricing{FlatShipping: d("3"), TaxRate: d("0.1")},
		Events:    events,
		Now:       func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	}
	return &fixture{svc: svc, store: store, events: events}
}

func placeRequest(items ...ItemRequest) PlaceRequest {
	return PlaceRequest{
		Items:           items,
		ShippingAddress: models.Address{Street: "1 Main St", City: "Springfield", Country: "US", ZipCode: "12345"},
		PaymentMethod:   models.PaymentStripe,
	}
}

func (f *fixture) stock(t *testing.T, id string) int {
	p, err := f.store.Products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func TestPlaceOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.svc.Place(ctx, "u1", placeRequest(ItemRequest{ProductID: "p1", Quantity: 2}, ItemRequest{ProductID: "p2", Quantity: 1}))
	require.NoError(t, err)

	assert.Equal(t, "TR2405010001", o.OrderNumber)
	assert.Equal(t, models.OrderPending, o.Status)
	require.Len(t, o.StatusHistory, 1)
	assert.Equal(t, models.OrderPending, o.StatusHistory[0].Status)
	assert.Equal(t, "USD", o.Currency)
	assert.True(t, o.BillingAddress.SameAsShipping)
	assert.Equal(t, "25.00", o.Subtotal.StringFixed(2))
	assert.Equal(t, "2.50", o.Tax.StringFixed(2))
	assert.Equal(t, "30.50", o.Total.StringFixed(2))
	assert.Equal(t, "/img/p1.jpg", o.Items[0].Image)

	// placing does not take stock
	assert.Equal(t, 5, f.stock(t, "p1"))
	assert.Equal(t, []string{mq.OrderPlaced}, f.events.Names())

	u, err := f.store.Users.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, u.Stats.OrdersCount)
	assert.True(t, u.Stats.TotalSpent.Equal(o.Total))
}

func TestPlaceOrderSnapshotsPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.Place(ctx, "u1", placeRequest(ItemRequest{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)

	p, err := f.store.Products.FindByID(ctx, "p1")
	require.NoError(t, err)
	p.Price = d("99")
	require.NoError(t, f.store.Products.Save(ctx, p))

	stored, err := f.store.Orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, stored.Items[0].Price.Equal(d("10")))
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := map[string]PlaceRequest{
		"no items":       placeRequest(),
		"zero quantity":  placeRequest(ItemRequest{ProductID: "p1", Quantity: 0}),
		"too many":       placeRequest(ItemRequest{ProductID: "p2", Quantity: 2}),
		"draft product":  placeRequest(ItemRequest{ProductID: "p3", Quantity: 1}),
		"unknown coupon": func() PlaceRequest { r := placeRequest(ItemRequest{ProductID: "p1", Quantity: 1}); r.CouponCode = "nope"; return r }(),
		"bad method":     func() PlaceRequest { r := placeRequest(ItemRequest{ProductID: "p1", Quantity: 1}); r.PaymentMethod = "cash"; return r }(),
		"no address":     {Items: []ItemRequest{{ProductID: "p1", Quantity: 1}}, PaymentMethod: models.PaymentPaypal},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Place(ctx, "u1", req)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	_, err := f.svc.Place(ctx, "u1", placeRequest(ItemRequest{ProductID: "missing", Quantity: 1}))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPlaceOrderWithCoupon(t *testing.T) {
	f := newFixture(t)
	req := placeRequest(ItemRequest{ProductID: "p1", Quantity: 2})
	req.CouponCode = "half"
	o, err := f.svc.Place(context.Background(), "u1", req)
	require.NoError(t, err)
	assert.Equal(t, "10.00", o.Discount.StringFixed(2))
	assert.Equal(t, "half", o.DiscountCode)
	assert.Equal(t, "15.00", o.Total.StringFixed(2))
}

func TestConfirmDeductsStockOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.Place(ctx, "u1", placeRequest(ItemRequest{ProductID: "p1", Quantity: 2}, ItemRequest{ProductID: "p2", Quantity: 1}))
	require.NoError(t, err)

	o, err = f.svc.Transition(ctx, o.ID, TransitionRequest{To: models.OrderConfirmed, Actor: "admin"})
	require.NoError(t, err)
	assert.True(t, o.StockDeducted)
	assert.Equal(t, 3, f.stock(t, "p1"))
	assert.Equal(t, 0, f.stock(t, "p2"))

	p2, err := f.store.Products.FindByID(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, models.ProductOutOfStock, p2.Status)
	assert.Equal(t, int64(1), p2.PurchaseCount)

	_, err = f.svc.Transition(ctx, o.ID, TransitionRequest{To: models.OrderShipped})
	require.NoError(t, err)
	assert.Equal(t, 3, f.stock(t, "p1"))

	o, err = f.svc.Transition(ctx, o.ID, TransitionRequest{To: models.OrderDelivered})
	require.NoError(t, err)
	require.NotNil(t, o.DeliveredAt)
	require.NotNil(t, o.ShippedAt)
	assert.Len(t, o.StatusHistory, 4)
}

func TestCancelAfterConfirmRestocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.Place(ctx, "u1", placeRequest(ItemRequest{ProductID: "p1", Quantity: 2}))
	require.NoError(t, err)
	_, err = f.svc.Transition(ctx, o.ID, TransitionRequest{To: models.OrderConfirmed})
	require.NoError(t, err)
	require.Equal(t, 3, f.stock(t, "p1"))

	o, err = f.svc.Cancel(ctx, o.ID, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, o.Status)
	assert.False(t, o.StockDeducted)
	require.NotNil(t, o.CancelledAt)
	assert.Equal(t, "Cancelled by customer", o.StatusHistory[len(o.StatusHistory)-1].Note)
	assert.Equal(t, 5, f.stock(t, "p1"))

	// a cancelled order stays cancelled and nothing else moves
	_, err = f.svc.Cancel(ctx, o.ID, "u1", "")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	again, err := f.store.Orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, again.StatusHistory, 3)
	assert.Equal(t, 5, f.stock(t, "p1"))
}

func TestCancelPendingLeavesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.Place(ctx, "u1", placeRequest(ItemRequest{ProductID: "p1", Quantity: 2}))
	require.NoError(t, err)
	o, err = f.svc.Cancel(ctx, o.ID, "u1", "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, o.Status)
	assert.Len(t, o.StatusHistory, 2)
	assert.Equal(t, 5, f.stock(t, "p1"))

	_, err = f.svc.Cancel(ctx, o.ID, "u1", "again")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	stored, err := f.store.Orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, stored.Status)
	assert.Len(t, stored.StatusHistory, 2)
	assert.Equal(t, 5, f.stock(t, "p1"))
}

// flakyProducts fails stock writes for the products in fail.
type flakyProducts struct {
	*memory.Products
	fail map[string]bool
}

func (p *flakyProducts) AdjustStock(ctx context.Context, id string, delta int) (*models.Product, error) {
	if p.fail[id] {
		return nil, apperr.Persistence(errors.New("connection reset"), "adjust stock of %s", id)
	}
	return p.Products.AdjustStock(ctx, id, delta)
}

func (f *fixture) useProducts(products repository.ProductRepository) {
	f.svc.Products = products
	f.svc.Inventory = inventory.NewService(products, f.events)
}

func TestConfirmStockFailureRevertsOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.Place(ctx, "u1", placeRequest(ItemRequest{ProductID: "p1", Quantity: 2}, ItemRequest{ProductID: "p2", Quantity: 1}))
	require.NoError(t, err)

	f.useProducts(&flakyProducts{Products: f.store.Products, fail: map[string]bool{"p2": true}})
	_, err = f.svc.Transition(ctx, o.ID, TransitionRequest{To: models.OrderConfirmed, Actor: "admin"})
	require.ErrorIs(t, err, apperr.ErrPersistence)

	stored, err := f.store.Orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, stored.Status)
	assert.False(t, stored.StockDeducted)
	assert.Equal(t, 5, f.stock(t, "p1"), "applied lines are undone")
	assert.Equal(t, 1, f.stock(t, "p2"))

	// cancelling once the store recovers must not restock units never taken
	f.useProducts(f.store.Products)
	_, err = f.svc.Cancel(ctx, o.ID, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, 5, f.stock(t, "p1"))
	assert.Equal(t, 1, f.stock(t, "p2"))
}

func TestCancelRestockFailureKeepsOrderConfirmed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.Place(ctx, "u1", placeRequest(ItemRequest{ProductID: "p1", Quantity: 2}))
	require.NoError(t, err)
	_, err = f.svc.Transition(ctx, o.ID, TransitionRequest{To: models.OrderConfirmed})
	require.NoError(t, err)
	require.Equal(t, 3, f.stock(t, "p1"))

	f.useProducts(&flakyProducts{Products: f.store.Products, fail: map[string]bool{"p1": true}})
	_, err = f.svc.Cancel(ctx, o.ID, "u1", "")
	require.ErrorIs(t, err, apperr.ErrPersistence)

	stored, err := f.store.Orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderConfirmed, stored.Status)
	assert.True(t, stored.StockDeducted)
	assert.Equal(t, 3, f.stock(t, "p1"))

	f.useProducts(f.store.Products)
	_, err = f.svc.Cancel(ctx, o.ID, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, 5, f.stock(t, "p1"))
}

func TestCancelShippedConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.Place(ctx, "u1", placeRequest(ItemRequest{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)
	_, err = f.svc.Transition(ctx, o.ID, TransitionRequest{To: models.OrderShipped})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, o.ID, "u1", "")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	stored, err := f.store.Orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderShipped, stored.Status)
}

func TestTransitionUnknownOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Transition(context.Background(), "nope", TransitionRequest{To: models.OrderConfirmed})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.svc.Transition(context.Background(), "nope", TransitionRequest{To: "lost"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestGetChecksOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.Place(ctx, "u1", placeRequest(ItemRequest{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, o.ID, "u2", false)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.Get(ctx, o.ID, "u2", true)
	assert.NoError(t, err)
	got, err := f.svc.GetByNumber(ctx, o.OrderNumber, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
}
