package products

import (
	"bufio"
	"context"
	"net/http"
	"slices"
	"time"

	"trendaryo/apperr"
	"trendaryo/inventory"
	"trendaryo/middleware"
	"trendaryo/models"
	"trendaryo/utils"

	"github.com/julienschmidt/httprouter"
)

type Handlers struct {
	Service *Service
}

func NewHandlers(s *Service) *Handlers {
	return &Handlers{Service: s}
}

// productView adds the derived fields to a product response.
type productView struct {
	*models.Product
	OnSale             bool `json:"onSale"`
	DiscountPercentage int  `json:"discountPercentage"`
	InStock            bool `json:"inStock"`
	LowStock           bool `json:"lowStock"`
}

func view(p *models.Product) productView {
	return productView{
		Product:            p,
		OnSale:             p.OnSale(),
		DiscountPercentage: p.DiscountPercentage(),
		InStock:            p.Stock > 0,
		LowStock:           inventory.LowStock(p),
	}
}

func views(list []models.Product) []productView {
	out := make([]productView, len(list))
	for i := range list {
		out[i] = view(&list[i])
	}
	return out
}

// visible hides unpublished products from customers.
func visible(r *http.Request, p *models.Product) error {
	if !Sellable(p) && !middleware.IsStaff(r) {
		return apperr.NotFound("product not found")
	}
	return nil
}

// GET /api/v1/products
func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q, err := ParseQuery(r.URL.Query())
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	if !middleware.IsStaff(r) {
		if slices.ContainsFunc(q.Statuses, func(s models.ProductStatus) bool {
			return s == models.ProductDraft || s == models.ProductArchived
		}) {
			utils.RespondWithErr(w, r, apperr.Forbidden("only staff can list unpublished products"))
			return
		}
		if len(q.Statuses) == 0 {
			q.Statuses = []models.ProductStatus{models.ProductActive, models.ProductOutOfStock}
		}
	}
	list, total, err := h.Service.List(ctx, q)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithPage(w, views(list), len(list), total, q.Page)
}

// GET /api/v1/products/:id
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Service.Get(ctx, ps.ByName("id"))
	if err == nil {
		err = visible(r, p)
	}
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, view(p))
}

// GET /api/v1/catalog/slug/:slug
func (h *Handlers) GetProductBySlug(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Service.GetBySlug(ctx, ps.ByName("slug"))
	if err == nil {
		err = visible(r, p)
	}
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, view(p))
}

func respondList(w http.ResponseWriter, list []models.Product) {
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "count": len(list), "data": views(list)})
}

// GET /api/v1/catalog/trending
func (h *Handlers) GetTrending(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := h.Service.Trending(ctx)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	respondList(w, list)
}

// GET /api/v1/catalog/sale
func (h *Handlers) GetOnSale(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := h.Service.OnSale(ctx)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	respondList(w, list)
}

// GET /api/v1/catalog/category/:category
func (h *Handlers) GetByCategory(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	page, err := utils.ParsePage(r)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	list, total, err := h.Service.ByCategory(ctx, ps.ByName("category"), page)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithPage(w, views(list), len(list), total, page)
}

// GET /api/v1/products/:id/related
func (h *Handlers) GetRelated(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := h.Service.Related(ctx, ps.ByName("id"))
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	respondList(w, list)
}

// POST /api/v1/products
func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var in Input
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	p, err := h.Service.Create(ctx, utils.GetUserIDFromRequest(r), in)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusCreated, view(p))
}

// PUT /api/v1/products/:id
func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var in Input
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	p, err := h.Service.Update(ctx, ps.ByName("id"), in)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, view(p))
}

// DELETE /api/v1/products/:id
func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Service.Delete(ctx, ps.ByName("id")); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, utils.M{})
}

// PATCH /api/v1/products/:id/stock
func (h *Handlers) AdjustStock(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var body struct {
		Delta *int `json:"delta"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	if body.Delta == nil {
		utils.RespondWithErr(w, r, apperr.Validation("delta is required"))
		return
	}
	p, err := h.Service.AdjustStock(ctx, ps.ByName("id"), *body.Delta)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, view(p))
}

// POST /api/v1/products/:id/images
func (h *Handlers) UploadImage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, MaxImageSize+1<<20)
	if err := r.ParseMultipartForm(MaxImageSize); err != nil {
		utils.RespondWithErr(w, r, apperr.Validation("please upload a file"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		utils.RespondWithErr(w, r, apperr.Validation("please upload a file"))
		return
	}
	defer file.Close()

	src := bufio.NewReader(file)
	head, _ := src.Peek(512)
	if !utils.SupportedImageTypes[http.DetectContentType(head)] {
		utils.RespondWithErr(w, r, apperr.Validation("please upload an image file"))
		return
	}
	p, err := h.Service.AddImage(ctx, ps.ByName("id"), src, r.FormValue("alt"))
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, view(p))
}
