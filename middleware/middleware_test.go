package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trendaryo/models"
	"trendaryo/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func whoami(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	utils.RespondWithData(w, http.StatusOK, utils.M{"id": utils.GetUserIDFromRequest(r), "role": utils.GetRoleFromRequest(r)})
}

func call(h httprouter.Handle, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h(rec, req, nil)
	return rec
}

func TestAuthenticate(t *testing.T) {
	a := NewAuth("secret", time.Hour)
	token, err := a.Issue(&models.User{ID: "u1", Email: "a@b.c", Role: models.RoleUser}, time.Now())
	require.NoError(t, err)

	rec := call(a.Authenticate(whoami), "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"u1"`)

	for name, header := range map[string]string{
		"missing":   "",
		"no bearer": token,
		"garbage":   "Bearer not-a-jwt",
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, call(a.Authenticate(whoami), header).Code)
		})
	}
}

func TestAuthenticateRejectsForeignAndExpiredTokens(t *testing.T) {
	a := NewAuth("secret", time.Hour)
	other := NewAuth("other-secret", time.Hour)
	u := &models.User{ID: "u1", Role: models.RoleUser}

	foreign, err := other.Issue(u, time.Now())
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(a.Authenticate(whoami), "Bearer "+foreign).Code)

	expired, err := a.Issue(u, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(a.Authenticate(whoami), "Bearer "+expired).Code)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "u1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(a.Authenticate(whoami), "Bearer "+unsigned).Code)
}

func TestOptionalAuth(t *testing.T) {
	a := NewAuth("secret", time.Hour)
	rec := call(a.OptionalAuth(whoami), "Bearer junk")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":""`)
}

func TestRequireRole(t *testing.T) {
	a := NewAuth("secret", time.Hour)
	user, err := a.Issue(&models.User{ID: "u1", Role: models.RoleUser}, time.Now())
	require.NoError(t, err)
	admin, err := a.Issue(&models.User{ID: "u2", Role: models.RoleAdmin}, time.Now())
	require.NoError(t, err)

	h := a.RequireRole(whoami, models.RoleAdmin)
	assert.Equal(t, http.StatusForbidden, call(h, "Bearer "+user).Code)
	assert.Equal(t, http.StatusOK, call(h, "Bearer "+admin).Code)
	assert.Equal(t, http.StatusUnauthorized, call(h, "").Code)
}

func TestSecurityHeadersAndLogging(t *testing.T) {
	h := Logging(SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}
