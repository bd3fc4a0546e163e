package pay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"trendaryo/apperr"
	"trendaryo/globals"
	"trendaryo/inventory"
	"trendaryo/models"
	"trendaryo/mq"
	"trendaryo/orders"
	"trendaryo/rdx"
	"trendaryo/repository/memory"
	"trendaryo/stripe"

	"github.com/julienschmidt/httprouter"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	svc     *Service
	store   *memory.Store
	gateway *stripe.Stub
	order   *models.Order
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	events := &mq.Recorder{}
	require.NoError(t, store.Products.Insert(ctx, &models.Product{
		ID: "p1", Name: "Sneaker", Slug: "sneaker", Price: d("12.25"), Stock: 5, Status: models.ProductActive,
	}))
	flow := &orders.Service{
		Orders:    store.Orders,
		Products:  store.Products,
		Users:     store.Users,
		Coupons:   store.Coupons,
		Inventory: inventory.NewService(store.Products, events),
		Numbers:   &orders.Numberer{Sequences: store.Sequences},
		Pricing:   orders.Pricing{FlatShipping: d("3")},
		Currency:  "USD",
		Events:    events,
	}
	o, err := flow.Place(ctx, "u1", orders.PlaceRequest{
		Items:           []orders.ItemRequest{{ProductID: "p1", Quantity: 2}},
		ShippingAddress: models.Address{Street: "1 Main St", City: "Springfield", Country: "US", ZipCode: "12345"},
		PaymentMethod:   models.PaymentStripe,
	})
	require.NoError(t, err)

	gw := stripe.NewStub()
	return &fixture{
		svc:     &Service{Orders: flow, Gateway: gw, Locks: rdx.NewMemoryCache()},
		store:   store,
		gateway: gw,
		order:   o,
	}
}

func (f *fixture) stock(t *testing.T) int {
	t.Helper()
	p, err := f.store.Products.FindByID(context.Background(), "p1")
	require.NoError(t, err)
	return p.Stock
}

func TestMinorUnits(t *testing.T) {
	assert.EqualValues(t, 2750, MinorUnits(d("27.50")))
	assert.EqualValues(t, 1999, MinorUnits(d("19.99")))
	assert.EqualValues(t, 1, MinorUnits(d("0.005")))
}

func TestIntentAndConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateIntent(ctx, "intruder", f.order.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	intent, err := f.svc.CreateIntent(ctx, "u1", f.order.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2750, intent.Amount)
	assert.Equal(t, "usd", intent.Currency)
	assert.Equal(t, f.order.OrderNumber, intent.Reference)

	stored, err := f.store.Orders.FindByID(ctx, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, intent.ID, stored.PaymentDetails.PaymentIntentID)
	assert.Equal(t, models.PaymentProcessing, stored.PaymentStatus)

	_, err = f.svc.Confirm(ctx, "u1", f.order.ID, "pi_other")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, 5, f.stock(t))

	o, err := f.svc.Confirm(ctx, "u1", f.order.ID, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderConfirmed, o.Status)
	assert.Equal(t, models.PaymentPaid, o.PaymentStatus)
	assert.NotEmpty(t, o.PaymentDetails.TransactionID)
	assert.NotNil(t, o.PaymentDetails.PaidAt)
	assert.Equal(t, 3, f.stock(t))

	_, err = f.svc.Confirm(ctx, "u1", f.order.ID, intent.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = f.svc.CreateIntent(ctx, "u1", f.order.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, 3, f.stock(t), "stock deducted once")
}

func TestConfirmCanceledIntentFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	intent, err := f.svc.CreateIntent(ctx, "u1", f.order.ID)
	require.NoError(t, err)
	f.gateway.Cancel(intent.ID)

	_, err = f.svc.Confirm(ctx, "u1", f.order.ID, intent.ID)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	stored, err := f.store.Orders.FindByID(ctx, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, stored.PaymentStatus)
	assert.Equal(t, models.OrderPending, stored.Status)
}

func TestPaymentLockHeld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, ok, err := f.svc.Locks.Lock(ctx, "payment:"+f.order.ID, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.svc.CreateIntent(ctx, "u1", f.order.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCancelledOrderNotPayable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Orders.Cancel(ctx, f.order.ID, "u1", "")
	require.NoError(t, err)
	_, err = f.svc.CreateIntent(ctx, "u1", f.order.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func asUser(userID string, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		next(w, r.WithContext(context.WithValue(r.Context(), globals.UserIDKey, userID)), ps)
	}
}

func TestIdempotencyReplaysIntent(t *testing.T) {
	f := newFixture(t)
	h := NewHandlers(f.svc)
	idem := &Idempotency{Records: f.store.Idempotency}
	router := httprouter.New()
	router.POST("/api/v1/payments/intent", asUser("u1", idem.Wrap(h.CreateIntent)))

	post := func(key, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/intent", strings.NewReader(body))
		if key != "" {
			req.Header.Set(IdempotencyHeader, key)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}
	body := `{"orderId":"` + f.order.ID + `"}`

	first := post("k1", body)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := post("k1", body)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))

	conflict := post("k1", `{"orderId":"other"}`)
	assert.Equal(t, http.StatusConflict, conflict.Code)

	fresh := post("", body)
	require.Equal(t, http.StatusCreated, fresh.Code)
	assert.NotEqual(t, first.Body.String(), fresh.Body.String(), "no key creates a new intent")
}

func TestIdempotencyExpiredRecordRunsAgain(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	records := memory.NewIdempotency()
	idem := &Idempotency{Records: records, TTL: time.Minute, Now: func() time.Time { return now }}
	calls := 0
	handler := idem.Wrap(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		calls++
		w.WriteHeader(http.StatusAccepted)
	})
	serve := func() {
		req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("{}"))
		req.Header.Set(IdempotencyHeader, "k")
		handler(httptest.NewRecorder(), req, nil)
	}

	serve()
	serve()
	assert.Equal(t, 1, calls)
	now = now.Add(2 * time.Minute)
	serve()
	assert.Equal(t, 2, calls)
}

func TestIdempotencySkipsServerErrors(t *testing.T) {
	idem := &Idempotency{Records: memory.NewIdempotency()}
	calls := 0
	handler := idem.Wrap(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})
	for range 2 {
		req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("{}"))
		req.Header.Set(IdempotencyHeader, "k")
		handler(httptest.NewRecorder(), req, nil)
	}
	assert.Equal(t, 2, calls)
}
