package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"trendaryo/apperr"
	"trendaryo/globals"
	"trendaryo/models"
	"trendaryo/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// JWT claims
type Claims struct {
	UserID string      `json:"userId"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Auth issues and verifies HS256 access tokens.
type Auth struct {
	secret []byte
	ttl    time.Duration
}

func NewAuth(secret string, ttl time.Duration) *Auth {
	return &Auth{secret: []byte(secret), ttl: ttl}
}

func (a *Auth) TTL() time.Duration { return a.ttl }

// Issue signs an access token for u.
func (a *Auth) Issue(u *models.User, now time.Time) (string, error) {
	claims := &Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ValidateJWT parses a "Bearer <token>" header value.
func (a *Auth) ValidateJWT(header string) (*Claims, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return nil, apperr.Unauthorized("not authorized to access this route")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, apperr.Unauthorized("not authorized to access this route")
	}
	return claims, nil
}

func withClaims(r *http.Request, c *Claims) *http.Request {
	ctx := context.WithValue(r.Context(), globals.UserIDKey, c.UserID)
	ctx = context.WithValue(ctx, globals.RoleKey, string(c.Role))
	ctx = context.WithValue(ctx, globals.EmailKey, c.Email)
	return r.WithContext(ctx)
}

// tokenFrom reads the bearer token, falling back to the token query
// parameter for websocket upgrades where browsers cannot set headers.
func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return h
	}
	if websocket.IsWebSocketUpgrade(r) {
		if t := r.URL.Query().Get("token"); t != "" {
			return "Bearer " + t
		}
	}
	return ""
}

func (a *Auth) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		claims, err := a.ValidateJWT(tokenFrom(r))
		if err != nil {
			utils.RespondWithErr(w, r, err)
			return
		}
		next(w, withClaims(r, claims), ps)
	}
}

func (a *Auth) OptionalAuth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if claims, err := a.ValidateJWT(tokenFrom(r)); err == nil {
			r = withClaims(r, claims)
		}
		// Proceed regardless of token state
		next(w, r, ps)
	}
}

// RequireRole authenticates the request and rejects roles not listed.
func (a *Auth) RequireRole(next httprouter.Handle, roles ...models.Role) httprouter.Handle {
	return a.Authenticate(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		role := models.Role(utils.GetRoleFromRequest(r))
		if !slices.Contains(roles, role) {
			utils.RespondWithErr(w, r, apperr.Forbidden("user role %s is not authorized to access this route", role))
			return
		}
		next(w, r, ps)
	})
}

// IsStaff reports whether the request was made by an admin or moderator.
func IsStaff(r *http.Request) bool {
	role := models.Role(utils.GetRoleFromRequest(r))
	return role == models.RoleAdmin || role == models.RoleModerator
}

func IsAdmin(r *http.Request) bool {
	return models.Role(utils.GetRoleFromRequest(r)) == models.RoleAdmin
}
