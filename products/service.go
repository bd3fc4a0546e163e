// Package products serves the catalog: listing with the typed filter,
// curated listings, admin maintenance, stock adjustment and images.
package products

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"trendaryo/apperr"
	"trendaryo/inventory"
	"trendaryo/models"
	"trendaryo/mq"
	"trendaryo/rdx"
	"trendaryo/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	CacheTTL = 10 * time.Minute

	trendingLimit = 10
	saleLimit     = 20
	relatedLimit  = 4
)

// Input carries the editable fields of a product. Nil fields are left
// untouched on update.
type Input struct {
	Name              *string                `json:"name"`
	Slug              *string                `json:"slug"`
	Description       *string                `json:"description"`
	ShortDescription  *string                `json:"shortDescription"`
	Price             *decimal.Decimal       `json:"price"`
	ComparePrice      *decimal.Decimal       `json:"comparePrice"`
	CostPrice         *decimal.Decimal       `json:"costPrice"`
	SKU               *string                `json:"sku"`
	Barcode           *string                `json:"barcode"`
	Category          *string                `json:"category"`
	SubCategory       *string                `json:"subCategory"`
	Brand             *string                `json:"brand"`
	Tags              []string               `json:"tags"`
	Status            *models.ProductStatus  `json:"status"`
	TrendStatus       *models.TrendStatus    `json:"trendStatus"`
	Stock             *int                   `json:"stock"`
	LowStockThreshold *int                   `json:"lowStockThreshold"`
	Weight            *models.Weight         `json:"weight"`
	Dimensions        *models.Dimensions     `json:"dimensions"`
	Specifications    []models.Specification `json:"specifications"`
	Features          []models.Feature       `json:"features"`
	SEO               *models.SEO            `json:"seo"`
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// apply copies the present fields of in onto p. Stock is applied by Create only.
func (in *Input) apply(p *models.Product) {
	set(&p.Name, in.Name)
	set(&p.Description, in.Description)
	set(&p.ShortDescription, in.ShortDescription)
	set(&p.Price, in.Price)
	set(&p.CostPrice, in.CostPrice)
	set(&p.SKU, in.SKU)
	set(&p.Barcode, in.Barcode)
	set(&p.Category, in.Category)
	set(&p.SubCategory, in.SubCategory)
	set(&p.Brand, in.Brand)
	set(&p.Status, in.Status)
	set(&p.TrendStatus, in.TrendStatus)
	set(&p.LowStockThreshold, in.LowStockThreshold)
	if in.ComparePrice != nil {
		if in.ComparePrice.IsZero() {
			p.ComparePrice = nil
		} else {
			cp := *in.ComparePrice
			p.ComparePrice = &cp
		}
	}
	if in.Tags != nil {
		p.Tags = normalizeTags(in.Tags)
	}
	if in.Weight != nil {
		p.Weight = in.Weight
	}
	if in.Dimensions != nil {
		p.Dimensions = in.Dimensions
	}
	if in.Specifications != nil {
		p.Specifications = in.Specifications
	}
	if in.Features != nil {
		p.Features = in.Features
	}
	if in.SEO != nil {
		p.SEO = in.SEO
	}
	p.Name = strings.TrimSpace(p.Name)
	p.SKU = strings.TrimSpace(p.SKU)
	p.Category = strings.TrimSpace(p.Category)
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func validate(p *models.Product) error {
	switch {
	case p.Name == "":
		return apperr.Validation("please add a product name")
	case len(p.Name) > 200:
		return apperr.Validation("name cannot be more than 200 characters")
	case strings.TrimSpace(p.Description) == "":
		return apperr.Validation("please add a description")
	case len(p.Description) > 2000:
		return apperr.Validation("description cannot be more than 2000 characters")
	case len(p.ShortDescription) > 500:
		return apperr.Validation("short description cannot be more than 500 characters")
	case p.Price.IsNegative():
		return apperr.Validation("price must be positive")
	case p.CostPrice.IsNegative():
		return apperr.Validation("cost price must be positive")
	case p.ComparePrice != nil && !p.ComparePrice.GreaterThan(p.Price):
		return apperr.Validation("compare price must be greater than price")
	case p.Stock < 0:
		return apperr.Validation("stock cannot be negative")
	case p.LowStockThreshold < 0:
		return apperr.Validation("low stock threshold cannot be negative")
	case !p.Status.Valid():
		return apperr.Validation("invalid status %q", p.Status)
	case !p.TrendStatus.Valid():
		return apperr.Validation("invalid trendStatus %q", p.TrendStatus)
	case p.Slug == "":
		return apperr.Validation("name must contain letters or digits")
	}
	return nil
}

// Sellable reports whether a product is visible to customers.
func Sellable(p *models.Product) bool {
	return p.Status == models.ProductActive || p.Status == models.ProductOutOfStock
}

type Service struct {
	Products  repository.ProductRepository
	Inventory *inventory.Service
	Cache     rdx.Cache
	Images    *ImageStore
	Events    mq.Emitter
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) emit(ctx context.Context, name string, p *models.Product) {
	s.Cache.Del(ctx, rdx.ProductKey(p.ID))
	s.Events.Emit(ctx, mq.Event{Name: name, EntityType: "product", EntityID: p.ID, Status: string(p.Status)})
}

// Create stores a new product from in. Stock defaults to zero and derives
// the initial status when the product is sellable.
func (s *Service) Create(ctx context.Context, userID string, in Input) (*models.Product, error) {
	now := s.now()
	p := &models.Product{
		ID:                uuid.New().String(),
		Brand:             models.DefaultBrand,
		Status:            models.ProductActive,
		Tags:              []string{},
		Images:            []models.ProductImage{},
		LowStockThreshold: models.DefaultLowStockThreshold,
		Ratings:           models.RatingSummary{Distribution: models.EmptyDistribution()},
		CreatedBy:         userID,
		CreatedAt:         now,
		UpdatedAt:         now,
		PublishedAt:       now,
	}
	in.apply(p)
	set(&p.Stock, in.Stock)
	if p.Brand == "" {
		p.Brand = models.DefaultBrand
	}
	p.Slug = Slugify(p.Name)
	if in.Slug != nil && Slugify(*in.Slug) != "" {
		p.Slug = Slugify(*in.Slug)
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	if Sellable(p) {
		p.Stock, p.Status = inventory.Apply(p.Stock, 0)
	}
	if err := s.Products.Insert(ctx, p); err != nil {
		return nil, err
	}
	log.Info().Str("product", p.ID).Str("slug", p.Slug).Msg("product created")
	s.emit(ctx, mq.ProductCreated, p)
	return p, nil
}

// Update applies a partial edit. Stock, ratings and counters are not editable here.
func (s *Service) Update(ctx context.Context, id string, in Input) (*models.Product, error) {
	if in.Stock != nil {
		return nil, apperr.Validation("stock is changed through the stock endpoint")
	}
	p, err := s.Products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldName := p.Name
	in.apply(p)
	switch {
	case in.Slug != nil:
		p.Slug = Slugify(*in.Slug)
	case p.Name != oldName:
		p.Slug = Slugify(p.Name)
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now()
	if err := s.Products.Save(ctx, p); err != nil {
		return nil, err
	}
	if p, err = s.Products.FindByID(ctx, id); err != nil {
		return nil, err
	}
	s.emit(ctx, mq.ProductUpdated, p)
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	p, err := s.Products.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Products.Delete(ctx, id); err != nil {
		return err
	}
	if s.Images != nil {
		for _, img := range p.Images {
			s.Images.Remove(img.URL)
		}
	}
	s.emit(ctx, mq.ProductDeleted, p)
	return nil
}

// Get fetches a product through the cache and counts the view.
func (s *Service) Get(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.cached(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Products.Increment(ctx, id, repository.Counters{Views: 1}); err != nil {
		log.Warn().Err(err).Str("product", id).Msg("count product view")
	} else {
		p.ViewCount++
	}
	return p, nil
}

func (s *Service) cached(ctx context.Context, id string) (*models.Product, error) {
	key := rdx.ProductKey(id)
	if body, ok := s.Cache.Get(ctx, key); ok {
		var p models.Product
		if err := json.Unmarshal(body, &p); err == nil {
			return &p, nil
		}
		s.Cache.Del(ctx, key)
	}
	p, err := s.Products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if body, err := json.Marshal(p); err == nil {
		s.Cache.Set(ctx, key, body, CacheTTL)
	}
	return p, nil
}

// GetBySlug fetches a product by slug and counts the view.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	p, err := s.Products.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := s.Products.Increment(ctx, p.ID, repository.Counters{Views: 1}); err != nil {
		log.Warn().Err(err).Str("product", p.ID).Msg("count product view")
	} else {
		p.ViewCount++
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, q repository.ProductQuery) ([]models.Product, int64, error) {
	return s.Products.Find(ctx, q)
}

var active = []models.ProductStatus{models.ProductActive}

func (s *Service) Trending(ctx context.Context) ([]models.Product, error) {
	list, _, err := s.Products.Find(ctx, repository.ProductQuery{
		Trends:   []models.TrendStatus{models.TrendHot, models.TrendNew, models.TrendFeatured},
		Statuses: active,
		Sort:     []repository.Sort{{Field: "createdAt", Desc: true}},
		Page:     repository.Page{Page: 1, Limit: trendingLimit},
	})
	return list, err
}

func (s *Service) OnSale(ctx context.Context) ([]models.Product, error) {
	list, _, err := s.Products.Find(ctx, repository.ProductQuery{
		OnSale:   true,
		Statuses: active,
		Sort:     []repository.Sort{{Field: "createdAt", Desc: true}},
		Page:     repository.Page{Page: 1, Limit: saleLimit},
	})
	return list, err
}

// Related lists other active products of the same category.
func (s *Service) Related(ctx context.Context, id string) ([]models.Product, error) {
	p, err := s.Products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	list, _, err := s.Products.Find(ctx, repository.ProductQuery{
		Category:  p.Category,
		ExcludeID: p.ID,
		Statuses:  active,
		Sort:      []repository.Sort{{Field: "ratings.average", Desc: true}},
		Page:      repository.Page{Page: 1, Limit: relatedLimit},
	})
	return list, err
}

func (s *Service) ByCategory(ctx context.Context, category string, page repository.Page) ([]models.Product, int64, error) {
	return s.Products.Find(ctx, repository.ProductQuery{
		Category: category,
		Statuses: active,
		Sort:     []repository.Sort{{Field: "createdAt", Desc: true}},
		Page:     page,
	})
}

// AdjustStock applies an admin stock correction.
func (s *Service) AdjustStock(ctx context.Context, id string, delta int) (*models.Product, error) {
	if delta == 0 {
		return nil, apperr.Validation("delta must not be zero")
	}
	p, err := s.Inventory.Adjust(ctx, id, delta)
	if err != nil {
		return nil, err
	}
	s.Cache.Del(ctx, rdx.ProductKey(id))
	return p, nil
}

// AddImage stores an uploaded image and appends it to the product. The
// first image becomes the primary one and supplies the thumbnail.
func (s *Service) AddImage(ctx context.Context, id string, src io.Reader, alt string) (*models.Product, error) {
	if s.Images == nil {
		return nil, apperr.Validation("image uploads are disabled")
	}
	p, err := s.Products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	saved, err := s.Images.Save(src)
	if err != nil {
		return nil, err
	}
	if alt == "" {
		alt = p.Name
	}
	first := len(p.Images) == 0
	p.Images = append(p.Images, models.ProductImage{URL: saved.URL, Alt: alt, IsPrimary: first})
	if first || p.Thumbnail == "" {
		p.Thumbnail = saved.ThumbnailURL
	}
	p.UpdatedAt = s.now()
	if err := s.Products.Save(ctx, p); err != nil {
		s.Images.Remove(saved.URL)
		return nil, err
	}
	s.emit(ctx, mq.ProductUpdated, p)
	return p, nil
}
