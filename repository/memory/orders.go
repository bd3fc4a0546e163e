package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"trendaryo/apperr"
	"trendaryo/models"
	"trendaryo/repository"
)

type Orders struct {
	mu    sync.RWMutex
	items map[string]*models.Order
}

func NewOrders() *Orders {
	return &Orders{items: make(map[string]*models.Order)}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	c.StatusHistory = slices.Clone(o.StatusHistory)
	c.PaymentDetails.PaidAt = clonePtr(o.PaymentDetails.PaidAt)
	c.ShippingMethod.EstimatedDelivery = clonePtr(o.ShippingMethod.EstimatedDelivery)
	c.CancelledAt = clonePtr(o.CancelledAt)
	c.ShippedAt = clonePtr(o.ShippedAt)
	c.DeliveredAt = clonePtr(o.DeliveredAt)
	return &c
}

func (s *Orders) FindByID(_ context.Context, id string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.items[id]
	if !ok {
		return nil, apperr.NotFound("order %s not found", id)
	}
	return cloneOrder(o), nil
}

func (s *Orders) FindByNumber(_ context.Context, number string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.items {
		if o.OrderNumber == number {
			return cloneOrder(o), nil
		}
	}
	return nil, apperr.NotFound("order %s not found", number)
}

func (s *Orders) Find(_ context.Context, q repository.OrderQuery) ([]models.Order, int64, error) {
	s.mu.RLock()
	var matched []*models.Order
	for _, o := range s.items {
		if q.UserID != "" && o.UserID != q.UserID {
			continue
		}
		if q.Status != "" && o.Status != q.Status {
			continue
		}
		matched = append(matched, cloneOrder(o))
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if c := matched[i].CreatedAt.Compare(matched[j].CreatedAt); c != 0 {
			return c > 0
		}
		return matched[i].ID < matched[j].ID
	})

	total := int64(len(matched))
	page := paginate(matched, q.Page)
	out := make([]models.Order, len(page))
	for i, o := range page {
		out[i] = *o
	}
	return out, total, nil
}

func (s *Orders) Insert(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.items {
		if other.OrderNumber == o.OrderNumber {
			return apperr.Conflict("order number %s already exists", o.OrderNumber)
		}
	}
	s.items[o.ID] = cloneOrder(o)
	return nil
}

func (s *Orders) Transition(_ context.Context, id string, from models.OrderStatus, c repository.StatusChange) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.items[id]
	if !ok {
		return nil, apperr.NotFound("order %s not found", id)
	}
	if o.Status != from {
		return nil, apperr.Conflict("order %s is %s, not %s", id, o.Status, from)
	}
	applyStatusChange(o, c)
	return cloneOrder(o), nil
}

// applyStatusChange mirrors the $set/$push document built by the Mongo store.
func applyStatusChange(o *models.Order, c repository.StatusChange) {
	at := c.At
	o.Status = c.To
	o.StatusHistory = append(o.StatusHistory, c.Entry)
	o.UpdatedAt = at
	if c.StockDeducted != nil {
		o.StockDeducted = *c.StockDeducted
	}
	if c.PaymentStatus != "" {
		o.PaymentStatus = c.PaymentStatus
	}
	switch c.To {
	case models.OrderCancelled:
		o.CancelledAt = &at
	case models.OrderShipped:
		o.ShippedAt = &at
	case models.OrderDelivered:
		o.DeliveredAt = &at
	}
}

func (s *Orders) SetPayment(_ context.Context, id string, status models.PaymentStatus, details models.PaymentDetails) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.items[id]
	if !ok {
		return apperr.NotFound("order %s not found", id)
	}
	o.PaymentStatus = status
	o.PaymentDetails = details
	o.PaymentDetails.PaidAt = clonePtr(details.PaidAt)
	return nil
}

func (s *Orders) HasDelivered(_ context.Context, userID, productID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.items {
		if o.UserID == userID && o.Status == models.OrderDelivered && o.Contains(productID) {
			return true, nil
		}
	}
	return false, nil
}
