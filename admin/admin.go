// Package admin serves the back-office endpoints: user management, order
// oversight, the low-stock report and coupon creation.
package admin

import (
	"context"
	"net/http"
	"strings"
	"time"

	"trendaryo/apperr"
	"trendaryo/inventory"
	"trendaryo/models"
	"trendaryo/repository"
	"trendaryo/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type Service struct {
	Users     repository.UserRepository
	Orders    repository.OrderRepository
	Coupons   repository.CouponRepository
	Inventory *inventory.Service
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

type UserUpdate struct {
	Role     *models.Role `json:"role"`
	IsActive *bool        `json:"isActive"`
}

// UpdateUser changes a user's role or activity flag. Admins cannot demote
// or deactivate themselves.
func (s *Service) UpdateUser(ctx context.Context, actor, id string, req UserUpdate) (*models.User, error) {
	if req.Role == nil && req.IsActive == nil {
		return nil, apperr.Validation("nothing to update")
	}
	if req.Role != nil && !req.Role.Valid() {
		return nil, apperr.Validation("invalid role %q", *req.Role)
	}
	u, err := s.Users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor == u.ID && ((req.Role != nil && *req.Role != u.Role) || (req.IsActive != nil && !*req.IsActive)) {
		return nil, apperr.Forbidden("admins cannot change their own role or deactivate themselves")
	}
	if req.Role != nil {
		u.Role = *req.Role
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	u.UpdatedAt = s.now()
	if err := s.Users.Save(ctx, u); err != nil {
		return nil, err
	}
	log.Info().Str("user", u.ID).Str("role", string(u.Role)).Bool("active", u.IsActive).Str("by", actor).Msg("user updated")
	return u, nil
}

type CouponRequest struct {
	Code      string          `json:"code"`
	Discount  decimal.Decimal `json:"discount"`
	MinSpend  decimal.Decimal `json:"minSpend"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Active    *bool           `json:"active"`
}

var hundred = decimal.NewFromInt(100)

// CreateCoupon stores a percentage coupon. Codes are case-insensitive.
func (s *Service) CreateCoupon(ctx context.Context, req CouponRequest) (*models.Coupon, error) {
	code := strings.ToLower(strings.TrimSpace(req.Code))
	switch {
	case code == "":
		return nil, apperr.Validation("coupon code is required")
	case strings.ContainsAny(code, " \t/"):
		return nil, apperr.Validation("coupon code cannot contain spaces or slashes")
	case !req.Discount.IsPositive() || req.Discount.GreaterThan(hundred):
		return nil, apperr.Validation("discount must be a percentage between 0 and 100")
	case req.MinSpend.IsNegative():
		return nil, apperr.Validation("minSpend cannot be negative")
	case req.ExpiresAt.IsZero() || !req.ExpiresAt.After(s.now()):
		return nil, apperr.Validation("expiresAt must be in the future")
	}
	c := &models.Coupon{
		Code:      code,
		Discount:  req.Discount,
		MinSpend:  req.MinSpend,
		ExpiresAt: req.ExpiresAt.UTC(),
		Active:    req.Active == nil || *req.Active,
	}
	if err := s.Coupons.Insert(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

type Handlers struct {
	Service *Service
}

func NewHandlers(s *Service) *Handlers {
	return &Handlers{Service: s}
}

// GET /api/v1/admin/users?role=
func (h *Handlers) GetUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	page, err := utils.ParsePage(r)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	role := models.Role(r.URL.Query().Get("role"))
	if role != "" && !role.Valid() {
		utils.RespondWithErr(w, r, apperr.Validation("invalid role %q", role))
		return
	}
	list, total, err := h.Service.Users.Find(ctx, repository.UserQuery{Role: role, Page: page})
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithPage(w, list, len(list), total, page)
}

// PUT /api/v1/admin/users/:id
func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req UserUpdate
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	u, err := h.Service.UpdateUser(ctx, utils.GetUserIDFromRequest(r), ps.ByName("id"), req)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, u)
}

// GET /api/v1/admin/orders?status=
func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	page, err := utils.ParsePage(r)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	status := models.OrderStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		utils.RespondWithErr(w, r, apperr.Validation("invalid order status %q", status))
		return
	}
	list, total, err := h.Service.Orders.Find(ctx, repository.OrderQuery{Status: status, Page: page})
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithPage(w, list, len(list), total, page)
}

// GET /api/v1/admin/inventory/low-stock
func (h *Handlers) GetLowStock(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	page, err := utils.ParsePage(r)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	list, total, err := h.Service.Inventory.LowStockReport(ctx, page)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithPage(w, list, len(list), total, page)
}

// POST /api/v1/admin/coupons
func (h *Handlers) CreateCoupon(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req CouponRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	c, err := h.Service.CreateCoupon(ctx, req)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusCreated, c)
}
