package pay

import (
	"context"
	"net/http"
	"time"

	"trendaryo/apperr"
	"trendaryo/utils"

	"github.com/julienschmidt/httprouter"
)

type Handlers struct {
	Service *Service
}

func NewHandlers(s *Service) *Handlers {
	return &Handlers{Service: s}
}

// POST /api/v1/payments/intent
func (h *Handlers) CreateIntent(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body struct {
		OrderID string `json:"orderId"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	if body.OrderID == "" {
		utils.RespondWithErr(w, r, apperr.Validation("orderId is required"))
		return
	}
	intent, err := h.Service.CreateIntent(ctx, utils.GetUserIDFromRequest(r), body.OrderID)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusCreated, intent)
}

// POST /api/v1/payments/confirm
func (h *Handlers) Confirm(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body struct {
		OrderID         string `json:"orderId"`
		PaymentIntentID string `json:"paymentIntentId"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	if body.OrderID == "" {
		utils.RespondWithErr(w, r, apperr.Validation("orderId is required"))
		return
	}
	o, err := h.Service.Confirm(ctx, utils.GetUserIDFromRequest(r), body.OrderID, body.PaymentIntentID)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, o)
}
