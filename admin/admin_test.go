package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"trendaryo/apperr"
	"trendaryo/inventory"
	"trendaryo/models"
	"trendaryo/mq"
	"trendaryo/repository/memory"

	"github.com/julienschmidt/httprouter"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	st := memory.NewStore()
	return &Service{
		Users:     st.Users,
		Orders:    st.Orders,
		Coupons:   st.Coupons,
		Inventory: inventory.NewService(st.Products, &mq.Recorder{}),
		Now:       func() time.Time { return now },
	}, st
}

func addUser(t *testing.T, st *memory.Store, id string, role models.Role) {
	t.Helper()
	require.NoError(t, st.Users.Insert(context.Background(), &models.User{
		ID: id, Email: id + "@example.com", Name: id, Role: role, IsActive: true, CreatedAt: now,
	}))
}

func TestUpdateUser(t *testing.T) {
	s, st := newService(t)
	ctx := context.Background()
	addUser(t, st, "root", models.RoleAdmin)
	addUser(t, st, "bob", models.RoleUser)

	mod := models.RoleModerator
	off := false
	u, err := s.UpdateUser(ctx, "root", "bob", UserUpdate{Role: &mod, IsActive: &off})
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, u.Role)
	assert.False(t, u.IsActive)

	stored, err := st.Users.FindByID(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, stored.Role)

	bad := models.Role("owner")
	_, err = s.UpdateUser(ctx, "root", "bob", UserUpdate{Role: &bad})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = s.UpdateUser(ctx, "root", "bob", UserUpdate{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = s.UpdateUser(ctx, "root", "ghost", UserUpdate{IsActive: &off})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = s.UpdateUser(ctx, "root", "root", UserUpdate{IsActive: &off})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestCreateCoupon(t *testing.T) {
	s, st := newService(t)
	ctx := context.Background()

	c, err := s.CreateCoupon(ctx, CouponRequest{
		Code: " Summer10 ", Discount: decimal.NewFromInt(10), MinSpend: decimal.NewFromInt(20), ExpiresAt: now.Add(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "summer10", c.Code)
	assert.True(t, c.Active)

	stored, err := st.Coupons.FindByCode(ctx, "SUMMER10")
	require.NoError(t, err)
	assert.True(t, stored.Discount.Equal(decimal.NewFromInt(10)))

	_, err = s.CreateCoupon(ctx, CouponRequest{Code: "summer10", Discount: decimal.NewFromInt(5), ExpiresAt: now.Add(time.Hour)})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	for name, req := range map[string]CouponRequest{
		"no code":       {Discount: decimal.NewFromInt(10), ExpiresAt: now.Add(time.Hour)},
		"space":         {Code: "a b", Discount: decimal.NewFromInt(10), ExpiresAt: now.Add(time.Hour)},
		"zero discount": {Code: "z", ExpiresAt: now.Add(time.Hour)},
		"over 100":      {Code: "z", Discount: decimal.NewFromInt(101), ExpiresAt: now.Add(time.Hour)},
		"negative min":  {Code: "z", Discount: decimal.NewFromInt(5), MinSpend: decimal.NewFromInt(-1), ExpiresAt: now.Add(time.Hour)},
		"expired":       {Code: "z", Discount: decimal.NewFromInt(5), ExpiresAt: now.Add(-time.Hour)},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.CreateCoupon(ctx, req)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestAdminListings(t *testing.T) {
	s, st := newService(t)
	ctx := context.Background()
	addUser(t, st, "root", models.RoleAdmin)
	addUser(t, st, "bob", models.RoleUser)
	for i, stock := range []int{3, 50, 0} {
		require.NoError(t, st.Products.Insert(ctx, &models.Product{
			ID: string(rune('a' + i)), Name: "P", Slug: string(rune('a' + i)), Price: decimal.NewFromInt(1),
			Stock: stock, LowStockThreshold: 5, Status: models.ProductActive, CreatedAt: now,
		}))
	}
	for i, status := range []models.OrderStatus{models.OrderPending, models.OrderShipped, models.OrderPending} {
		require.NoError(t, st.Orders.Insert(ctx, &models.Order{
			ID: string(rune('x' + i)), OrderNumber: "ORD-" + string(rune('x'+i)), UserID: "bob", Status: status, CreatedAt: now,
		}))
	}

	h := NewHandlers(s)
	router := httprouter.New()
	router.GET("/api/v1/admin/users", h.GetUsers)
	router.GET("/api/v1/admin/orders", h.GetOrders)
	router.GET("/api/v1/admin/inventory/low-stock", h.GetLowStock)

	get := func(path string) (int, []map[string]any) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		var out struct {
			Data []map[string]any `json:"data"`
		}
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
		return rec.Code, out.Data
	}

	code, users := get("/api/v1/admin/users?role=admin")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, users, 1)
	assert.Equal(t, "root", users[0]["id"])

	code, _ = get("/api/v1/admin/users?role=owner")
	assert.Equal(t, http.StatusBadRequest, code)

	code, orders := get("/api/v1/admin/orders?status=pending")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, orders, 2)
	code, _ = get("/api/v1/admin/orders?status=lost")
	assert.Equal(t, http.StatusBadRequest, code)

	code, low := get("/api/v1/admin/inventory/low-stock")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, low, 2)
	assert.EqualValues(t, 0, low[0]["stock"])
	assert.EqualValues(t, 3, low[1]["stock"])
}

func TestCreateCouponHandler(t *testing.T) {
	s, _ := newService(t)
	h := NewHandlers(s)
	router := httprouter.New()
	router.POST("/api/v1/admin/coupons", h.CreateCoupon)

	body := `{"code":"WELCOME","discount":"15","minSpend":"0","expiresAt":"2030-01-01T00:00:00Z"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/coupons", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"code":"welcome"`)
}
