package cart

import (
	"context"
	"net/http"
	"time"

	"trendaryo/utils"

	"github.com/julienschmidt/httprouter"
)

type Handlers struct {
	Service *Service
}

func NewHandlers(s *Service) *Handlers {
	return &Handlers{Service: s}
}

type itemBody struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// GET /api/v1/cart
func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	v, err := h.Service.View(ctx, utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, v)
}

// POST /api/v1/cart/items
func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	body := itemBody{Quantity: 1}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	v, err := h.Service.Add(ctx, utils.GetUserIDFromRequest(r), body.ProductID, body.Quantity)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusCreated, v)
}

// PUT /api/v1/cart/items/:productId
func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var body itemBody
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	v, err := h.Service.Update(ctx, utils.GetUserIDFromRequest(r), ps.ByName("productId"), body.Quantity)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, v)
}

// DELETE /api/v1/cart/items/:productId
func (h *Handlers) RemoveCartItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	v, err := h.Service.Remove(ctx, utils.GetUserIDFromRequest(r), ps.ByName("productId"))
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, v)
}

// DELETE /api/v1/cart
func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Service.Clear(ctx, utils.GetUserIDFromRequest(r)); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, utils.M{})
}

// POST /api/v1/cart/coupon
func (h *Handlers) ApplyCoupon(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var body struct {
		Code string `json:"code"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	v, err := h.Service.ApplyCoupon(ctx, utils.GetUserIDFromRequest(r), body.Code)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, v)
}

// POST /api/v1/cart/checkout
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req CheckoutRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	o, err := h.Service.Checkout(ctx, utils.GetUserIDFromRequest(r), req)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusCreated, o)
}

// GET /api/v1/wishlist
func (h *Handlers) GetWishlist(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := h.Service.Wishlist(ctx, utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "count": len(list), "data": list})
}

// POST /api/v1/wishlist
func (h *Handlers) AddToWishlist(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var body itemBody
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	if err := h.Service.Wish(ctx, utils.GetUserIDFromRequest(r), body.ProductID); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, utils.M{"productId": body.ProductID})
}

// DELETE /api/v1/wishlist/:productId
func (h *Handlers) RemoveFromWishlist(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Service.Unwish(ctx, utils.GetUserIDFromRequest(r), ps.ByName("productId")); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, utils.M{})
}
