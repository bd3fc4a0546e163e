// Package inventory owns stock arithmetic: the zero clamp, status
// derivation and the low-stock report.
package inventory

import (
	"context"

	"trendaryo/models"
	"trendaryo/mq"
	"trendaryo/repository"

	"github.com/rs/zerolog/log"
)

// Apply returns the stock after adding delta, floored at zero, and the
// status that stock level implies. lowStockThreshold plays no part here.
func Apply(stock, delta int) (int, models.ProductStatus) {
	next := stock + delta
	if next < 0 {
		next = 0
	}
	if next == 0 {
		return 0, models.ProductOutOfStock
	}
	return next, models.ProductActive
}

// LowStock reports whether p is at or below its low-stock threshold.
func LowStock(p *models.Product) bool {
	return p.Stock <= p.LowStockThreshold
}

type Service struct {
	Products repository.ProductRepository
	Events   mq.Emitter
}

func NewService(products repository.ProductRepository, events mq.Emitter) *Service {
	return &Service{Products: products, Events: events}
}

// Adjust applies delta to the product's stock. Negative deltas are sales,
// positive ones restocks or cancellation reversals. The store performs the
// clamp and the status update as a single atomic write.
func (s *Service) Adjust(ctx context.Context, productID string, delta int) (*models.Product, error) {
	p, err := s.Products.AdjustStock(ctx, productID, delta)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("product", productID).Int("delta", delta).Int("stock", p.Stock).Msg("stock adjusted")

	stock := p.Stock
	s.Events.Emit(ctx, mq.Event{
		Name:       mq.StockChanged,
		EntityType: "product",
		EntityID:   p.ID,
		Stock:      &stock,
		Status:     string(p.Status),
	})
	return p, nil
}

// LowStockReport lists products at or below their threshold, lowest stock first.
func (s *Service) LowStockReport(ctx context.Context, page repository.Page) ([]models.Product, int64, error) {
	return s.Products.Find(ctx, repository.ProductQuery{
		LowStock: true,
		Sort:     []repository.Sort{{Field: "stock"}},
		Page:     page,
	})
}
