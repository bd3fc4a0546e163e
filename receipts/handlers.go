package receipts

import (
	"context"
	"net/http"
	"time"

	"trendaryo/apperr"
	"trendaryo/middleware"
	"trendaryo/orders"
	"trendaryo/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Orders *orders.Service
	Signer *Signer
}

func NewHandlers(o *orders.Service, s *Signer) *Handlers {
	return &Handlers{Orders: o, Signer: s}
}

// GET /api/v1/orders/:id/receipt
func (h *Handlers) GetReceipt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	o, err := h.Orders.Get(ctx, ps.ByName("id"), utils.GetUserIDFromRequest(r), middleware.IsAdmin(r))
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	pdf, err := Render(o, h.Signer.Ref(o.ID, o.OrderNumber))
	if err != nil {
		log.Error().Err(err).Str("order", o.OrderNumber).Msg("render receipt")
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to generate receipt")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+utils.SanitizeFilename("receipt-"+o.OrderNumber+".pdf")+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// GET /api/v1/receipts/verify?ref=
func (h *Handlers) Verify(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, number, err := h.Signer.Verify(r.URL.Query().Get("ref"))
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	o, err := h.Orders.Orders.FindByID(ctx, id)
	if err == nil && o.OrderNumber != number {
		err = apperr.Validation("receipt reference does not match the order")
	}
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, utils.M{
		"valid":         true,
		"orderNumber":   o.OrderNumber,
		"status":        o.Status,
		"paymentStatus": o.PaymentStatus,
		"total":         o.Total,
		"createdAt":     o.CreatedAt,
	})
}
