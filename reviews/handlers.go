package reviews

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

var sorts = map[string]repository.Sort{
	"":           {Field: "createdAt", Desc: true},
	"-createdAt": {Field: "createdAt", Desc: true},
	"createdAt":  {Field: "createdAt"},
	"rating":     {Field: "rating"},
	"-rating":    {Field: "rating", Desc: true},
	"helpful":    {Field: "helpful.count", Desc: true},
	"-helpful":   {Field: "helpful.count", Desc: true},
}

// GET /api/v1/products/:id/reviews
func (h *Handlers) GetProductReviews(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	order, ok := sorts[r.URL.Query().Get("sort")]
	if !ok {
		utils.RespondWithErr(w, r, apperr.Validation("cannot sort reviews by %q", r.URL.Query().Get("sort")))
		return
	}
	page, err := utils.ParsePage(r)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	list, total, err := h.Service.List(ctx, ps.ByName("id"), []repository.Sort{order}, page)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithPage(w, list, len(list), total, page)
}

// GET /api/v1/reviews/:id
func (h *Handlers) GetReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rv, err := h.Service.Get(ctx, ps.ByName("id"))
	if err == nil && rv.Status != models.ReviewApproved && rv.UserID != utils.GetUserIDFromRequest(r) && !middleware.IsStaff(r) {
		err = apperr.NotFound("review not found")
	}
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, rv)
}

// POST /api/v1/products/:id/reviews
func (h *Handlers) CreateReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req CreateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	rv, err := h.Service.Create(ctx, utils.GetUserIDFromRequest(r), ps.ByName("id"), req)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusCreated, rv)
}

// PUT /api/v1/reviews/:id
func (h *Handlers) UpdateReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req UpdateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	rv, err := h.Service.Update(ctx, ps.ByName("id"), utils.GetUserIDFromRequest(r), req)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, rv)
}

// DELETE /api/v1/reviews/:id
func (h *Handlers) DeleteReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Service.Delete(ctx, ps.ByName("id"), utils.GetUserIDFromRequest(r), middleware.IsStaff(r)); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, utils.M{})
}

// PUT /api/v1/reviews/:id/status
func (h *Handlers) ModerateReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var body struct {
		Status         models.ReviewStatus `json:"status"`
		ModeratorNotes string              `json:"moderatorNotes"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	rv, err := h.Service.Moderate(ctx, ps.ByName("id"), body.Status, body.ModeratorNotes)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, rv)
}

func (h *Handlers) helpful(w http.ResponseWriter, r *http.Request, ps httprouter.Params, on bool) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rv, err := h.Service.MarkHelpful(ctx, ps.ByName("id"), utils.GetUserIDFromRequest(r), on)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, rv.Helpful)
}

// POST /api/v1/reviews/:id/helpful
func (h *Handlers) MarkHelpful(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.helpful(w, r, ps, true)
}

// DELETE /api/v1/reviews/:id/helpful
func (h *Handlers) UnmarkHelpful(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.helpful(w, r, ps, false)
}

// POST /api/v1/reviews/:id/report
func (h *Handlers) ReportReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var body struct {
		Reason string `json:"reason"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	if err := h.Service.Report(ctx, ps.ByName("id"), utils.GetUserIDFromRequest(r), body.Reason); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, utils.M{"message": "review reported"})
}
