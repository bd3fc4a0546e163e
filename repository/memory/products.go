// Package memory is an in-process implementation of the repository
// interfaces. It backs the tests and the --memory mode of the server and
// honours the same atomicity contracts as the MongoDB store.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"trendaryo/apperr"
	"trendaryo/inventory"
	"trendaryo/models"
	"trendaryo/repository"
)

type Products struct {
	mu    sync.RWMutex
	items map[string]*models.Product
	now   func() time.Time
}

func NewProducts() *Products {
	return &Products{items: make(map[string]*models.Product), now: time.Now}
}

func cloneProduct(p *models.Product) *models.Product {
	c := *p
	c.Tags = slices.Clone(p.Tags)
	c.Images = slices.Clone(p.Images)
	c.Specifications = slices.Clone(p.Specifications)
	c.Features = slices.Clone(p.Features)
	if p.Ratings.Distribution != nil {
		c.Ratings.Distribution = make(map[int]int, len(p.Ratings.Distribution))
		for k, v := range p.Ratings.Distribution {
			c.Ratings.Distribution[k] = v
		}
	}
	if p.ComparePrice != nil {
		cp := *p.ComparePrice
		c.ComparePrice = &cp
	}
	if p.Weight != nil {
		w := *p.Weight
		c.Weight = &w
	}
	if p.Dimensions != nil {
		d := *p.Dimensions
		c.Dimensions = &d
	}
	if p.SEO != nil {
		s := *p.SEO
		s.Keywords = slices.Clone(p.SEO.Keywords)
		c.SEO = &s
	}
	return &c
}

func (s *Products) FindByID(_ context.Context, id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.items[id]
	if !ok {
		return nil, apperr.NotFound("product %s not found", id)
	}
	return cloneProduct(p), nil
}

func (s *Products) FindBySlug(_ context.Context, slug string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.items {
		if p.Slug == slug {
			return cloneProduct(p), nil
		}
	}
	return nil, apperr.NotFound("product %s not found", slug)
}

func matchProduct(p *models.Product, q repository.ProductQuery) bool {
	if q.Category != "" && p.Category != q.Category {
		return false
	}
	if q.SubCategory != "" && p.SubCategory != q.SubCategory {
		return false
	}
	if q.Brand != "" && p.Brand != q.Brand {
		return false
	}
	if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, p.Status) {
		return false
	}
	if len(q.Trends) > 0 && !slices.Contains(q.Trends, p.TrendStatus) {
		return false
	}
	if len(q.Tags) > 0 && !slices.ContainsFunc(p.Tags, func(t string) bool { return slices.Contains(q.Tags, t) }) {
		return false
	}
	if !q.Price.Contains(p.Price) || !q.Stock.Contains(p.Stock) {
		return false
	}
	if q.MinRating != nil && p.Ratings.Average < *q.MinRating {
		return false
	}
	if q.OnSale && !p.OnSale() {
		return false
	}
	if q.LowStock && !inventory.LowStock(p) {
		return false
	}
	if q.ExcludeID != "" && p.ID == q.ExcludeID {
		return false
	}
	if q.Search != "" {
		term := strings.ToLower(q.Search)
		text := strings.ToLower(p.Name + " " + p.Description + " " + strings.Join(p.Tags, " "))
		if !strings.Contains(text, term) {
			return false
		}
	}
	return true
}

func compareProducts(a, b *models.Product, field string) int {
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "price":
		return a.Price.Cmp(b.Price)
	case "stock":
		return a.Stock - b.Stock
	case "ratings.average":
		return cmpFloat(a.Ratings.Average, b.Ratings.Average)
	case "ratings.count":
		return a.Ratings.Count - b.Ratings.Count
	case "purchaseCount":
		return cmpInt64(a.PurchaseCount, b.PurchaseCount)
	case "viewCount":
		return cmpInt64(a.ViewCount, b.ViewCount)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// paginate returns the window of items selected by p.
func paginate[T any](items []T, p repository.Page) []T {
	skip := int(p.Skip())
	if skip >= len(items) {
		return []T{}
	}
	items = items[skip:]
	if p.Limit > 0 && len(items) > p.Limit {
		items = items[:p.Limit]
	}
	return items
}

func (s *Products) Find(_ context.Context, q repository.ProductQuery) ([]models.Product, int64, error) {
	s.mu.RLock()
	var matched []*models.Product
	for _, p := range s.items {
		if matchProduct(p, q) {
			matched = append(matched, cloneProduct(p))
		}
	}
	s.mu.RUnlock()

	order := q.Sort
	if len(order) == 0 {
		order = []repository.Sort{{Field: "createdAt", Desc: true}}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		for _, o := range order {
			c := compareProducts(matched[i], matched[j], o.Field)
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return matched[i].ID < matched[j].ID
	})

	total := int64(len(matched))
	page := paginate(matched, q.Page)
	out := make([]models.Product, len(page))
	for i, p := range page {
		out[i] = *p
	}
	return out, total, nil
}

func (s *Products) Insert(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[p.ID]; ok {
		return apperr.Conflict("product %s already exists", p.ID)
	}
	for _, other := range s.items {
		if other.Slug == p.Slug {
			return apperr.Conflict("slug %q is already taken", p.Slug)
		}
		if p.SKU != "" && other.SKU == p.SKU {
			return apperr.Conflict("sku %q is already taken", p.SKU)
		}
	}
	s.items[p.ID] = cloneProduct(p)
	return nil
}

func (s *Products) Save(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[p.ID]
	if !ok {
		return apperr.NotFound("product %s not found", p.ID)
	}
	for _, other := range s.items {
		if other.ID != p.ID && other.Slug == p.Slug {
			return apperr.Conflict("slug %q is already taken", p.Slug)
		}
	}
	next := cloneProduct(p)
	next.Stock = cur.Stock
	next.Ratings = cur.Ratings
	next.RatingsVersion = cur.RatingsVersion
	next.ViewCount = cur.ViewCount
	next.PurchaseCount = cur.PurchaseCount
	next.WishlistCount = cur.WishlistCount
	next.CreatedAt = cur.CreatedAt
	if next.Status == models.ProductActive || next.Status == models.ProductOutOfStock {
		_, next.Status = inventory.Apply(cur.Stock, 0)
	}
	s.items[p.ID] = next
	return nil
}

func (s *Products) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return apperr.NotFound("product %s not found", id)
	}
	delete(s.items, id)
	return nil
}

func (s *Products) AdjustStock(_ context.Context, id string, delta int) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return nil, apperr.NotFound("product %s not found", id)
	}
	p.Stock, p.Status = inventory.Apply(p.Stock, delta)
	p.UpdatedAt = s.now()
	return cloneProduct(p), nil
}

func (s *Products) SetRatings(_ context.Context, id string, expected int64, r models.RatingSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return apperr.NotFound("product %s not found", id)
	}
	if p.RatingsVersion != expected {
		return apperr.Conflict("ratings of product %s changed concurrently", id)
	}
	p.Ratings = r
	p.RatingsVersion++
	return nil
}

func (s *Products) Increment(_ context.Context, id string, c repository.Counters) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return apperr.NotFound("product %s not found", id)
	}
	p.ViewCount += c.Views
	p.PurchaseCount += c.Purchases
	p.WishlistCount += c.Wishlists
	if p.WishlistCount < 0 {
		p.WishlistCount = 0
	}
	return nil
}
