package orders

import (
	"context"
	"net/http"
	"time"

	"trendaryo/apperr"
	"trendaryo/middleware"
	"trendaryo/models"
	"trendaryo/repository"
	"trendaryo/utils"

	"github.com/julienschmidt/httprouter"
)

type Handlers struct {
	Service *Service
}

func NewHandlers(s *Service) *Handlers {
	return &Handlers{Service: s}
}

// orderView adds the derived fields to an order response.
type orderView struct {
	*models.Order
	StatusText            string    `json:"statusText"`
	EstimatedDeliveryDate time.Time `json:"estimatedDeliveryDate"`
	CanBeCancelled        bool      `json:"canBeCancelled"`
}

func view(o *models.Order) orderView {
	return orderView{
		Order:                 o,
		StatusText:            o.Status.Text(),
		EstimatedDeliveryDate: o.EstimatedDeliveryDate(),
		CanBeCancelled:        CanCancel(o.Status),
	}
}

func views(list []models.Order) []orderView {
	out := make([]orderView, len(list))
	for i := range list {
		out[i] = view(&list[i])
	}
	return out
}

// POST /api/v1/orders
func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req PlaceRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	o, err := h.Service.Place(ctx, utils.GetUserIDFromRequest(r), req)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusCreated, view(o))
}

// GET /api/v1/orders
func (h *Handlers) GetMyOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	page, err := utils.ParsePage(r)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	list, total, err := h.Service.Orders.Find(ctx, repository.OrderQuery{UserID: utils.GetUserIDFromRequest(r), Page: page})
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithPage(w, views(list), len(list), total, page)
}

// GET /api/v1/orders/:id
func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Service.Get(ctx, ps.ByName("id"), utils.GetUserIDFromRequest(r), middleware.IsAdmin(r))
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, view(o))
}

// GET /api/v1/order-number/:number
func (h *Handlers) GetOrderByNumber(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Service.GetByNumber(ctx, ps.ByName("number"), utils.GetUserIDFromRequest(r), middleware.IsAdmin(r))
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, view(o))
}

// POST /api/v1/orders/:id/cancel
func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var body struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength > 0 {
		if err := utils.DecodeJSON(r, &body); err != nil {
			utils.RespondWithErr(w, r, err)
			return
		}
	}

	userID := utils.GetUserIDFromRequest(r)
	if _, err := h.Service.Get(ctx, ps.ByName("id"), userID, middleware.IsAdmin(r)); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	o, err := h.Service.Cancel(ctx, ps.ByName("id"), userID, body.Reason)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, view(o))
}

// PUT /api/v1/orders/:id/status
func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var body struct {
		Status models.OrderStatus `json:"status"`
		Note   string             `json:"note"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	if body.Status == "" {
		utils.RespondWithErr(w, r, apperr.Validation("status is required"))
		return
	}

	req := TransitionRequest{To: body.Status, Actor: utils.GetUserIDFromRequest(r), Note: body.Note}
	if body.Status == models.OrderRefunded {
		req.PaymentStatus = models.PaymentRefunded
	}
	o, err := h.Service.Transition(ctx, ps.ByName("id"), req)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, view(o))
}
