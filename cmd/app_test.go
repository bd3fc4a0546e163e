package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"trendaryo/admin"
	"trendaryo/config"
	"trendaryo/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:                   "test",
		Port:                  "0",
		JWTSecret:             "test-secret",
		JWTExpire:             time.Hour,
		RefreshTokenTTL:       24 * time.Hour,
		FrontendURL:           "http://localhost:3000",
		UploadDir:             t.TempDir(),
		RateLimitRPS:          1000,
		RateLimitBurst:        1000,
		ShippingFlatRate:      "5.99",
		FreeShippingThreshold: "50",
		TaxRate:               "0.08",
		Currency:              "USD",
		ReceiptSecret:         "receipt-secret",
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	app := newApp(testConfig(t), memoryBackends())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go app.Hub.Run(ctx)
	return app
}

type envelope struct {
	Success bool            `json:"success"`
	Token   string          `json:"token"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func call(t *testing.T, app *App, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func signUp(t *testing.T, app *App, name, email string) (token, id string) {
	t.Helper()
	rec, env := call(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var u struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &u))
	return env.Token, u.ID
}

func signIn(t *testing.T, app *App, email string) string {
	t.Helper()
	rec, env := call(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return env.Token
}

func TestStorefrontFlow(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	_, adminID := signUp(t, app, "Ada Admin", "ada@example.com")
	role := models.RoleAdmin
	_, err := app.Admin.UpdateUser(ctx, "", adminID, admin.UserUpdate{Role: &role})
	require.NoError(t, err)
	adminToken := signIn(t, app, "ada@example.com")

	rec, env := call(t, app, http.MethodPost, "/api/v1/products", adminToken, map[string]any{
		"name": "Trail Runner", "description": "Light trail shoe", "price": "80.00",
		"category": "shoes", "brand": "Peak", "stock": 5, "status": "active",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var product struct {
		ID    string `json:"id"`
		Slug  string `json:"slug"`
		Stock int    `json:"stock"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &product))
	assert.Equal(t, "trail-runner", product.Slug)

	rec, env = call(t, app, http.MethodGet, "/api/v1/catalog/suggest?q=trail", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), product.ID)

	shopperToken, _ := signUp(t, app, "Sam Shopper", "sam@example.com")
	rec, _ = call(t, app, http.MethodPost, "/api/v1/products", shopperToken, map[string]any{"name": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = call(t, app, http.MethodPost, "/api/v1/orders", shopperToken, map[string]any{
		"items":           []map[string]any{{"productId": product.ID, "quantity": 2}},
		"shippingAddress": map[string]string{"street": "1 Main St", "city": "Springfield", "country": "US", "zipCode": "12345"},
		"paymentMethod":   "stripe",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order struct {
		ID            string `json:"id"`
		OrderNumber   string `json:"orderNumber"`
		Status        string `json:"status"`
		PaymentStatus string `json:"paymentStatus"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, "pending", order.Status)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "TR"), order.OrderNumber)

	rec, env = call(t, app, http.MethodPost, "/api/v1/payments/intent", shopperToken, map[string]string{"orderId": order.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var intent struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &intent))

	rec, env = call(t, app, http.MethodPost, "/api/v1/payments/confirm", shopperToken, map[string]string{
		"orderId": order.ID, "paymentIntentId": intent.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, "confirmed", order.Status)
	assert.Equal(t, "paid", order.PaymentStatus)

	rec, env = call(t, app, http.MethodGet, "/api/v1/products/"+product.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &product))
	assert.Equal(t, 3, product.Stock)

	rec, _ = call(t, app, http.MethodGet, "/api/v1/orders/"+order.ID+"/receipt", shopperToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestHealthAndHeaders(t *testing.T) {
	app := newTestApp(t)
	rec, env := call(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestCORSPreflight(t *testing.T) {
	app := newTestApp(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/cart", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Idempotency-Key")
	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/cart", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSetupLogging(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, setupLogging(&buf, "debug", true))
	require.Error(t, setupLogging(&buf, "loud", true))
	t.Cleanup(func() { _ = setupLogging(&buf, "info", true) })
}
