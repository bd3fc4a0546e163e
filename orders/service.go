// Package orders prices, numbers and moves orders through their status
// machine, keeping product stock in step with order state.
package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"trendaryo/apperr"
	"trendaryo/inventory"
	"trendaryo/models"
	"trendaryo/mq"
	"trendaryo/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const numberAttempts = 3

// ItemRequest is one requested line of a new order.
type ItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Variant   string `json:"variant,omitempty"`
}

type PlaceRequest struct {
	Items           []ItemRequest         `json:"items"`
	ShippingAddress models.Address        `json:"shippingAddress"`
	BillingAddress  models.BillingAddress `json:"billingAddress"`
	PaymentMethod   models.PaymentMethod  `json:"paymentMethod"`
	CouponCode      string                `json:"couponCode,omitempty"`
	Notes           string                `json:"notes,omitempty"`
}

func (r PlaceRequest) validate() error {
	if len(r.Items) == 0 {
		return apperr.Validation("order must contain at least one item")
	}
	for i, it := range r.Items {
		if it.ProductID == "" {
			return apperr.Validation("item %d: productId is required", i+1)
		}
		if it.Quantity < 1 {
			return apperr.Validation("item %d: quantity must be at least 1", i+1)
		}
	}
	a := r.ShippingAddress
	if a.Street == "" || a.City == "" || a.Country == "" || a.ZipCode == "" {
		return apperr.Validation("shipping address requires street, city, country and zipCode")
	}
	if !r.PaymentMethod.Valid() {
		return apperr.Validation("invalid payment method %q", r.PaymentMethod)
	}
	return nil
}

type Service struct {
	Orders    repository.OrderRepository
	Products  repository.ProductRepository
	Users     repository.UserRepository
	Coupons   repository.CouponRepository
	Inventory *inventory.Service
	Numbers   *Numberer
	Pricing   Pricing
	Currency  string
	Events    mq.Emitter
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// snapshot loads the products of req and captures the line items.
func (s *Service) snapshot(ctx context.Context, req []ItemRequest) ([]models.LineItem, error) {
	items := make([]models.LineItem, 0, len(req))
	for _, it := range req {
		p, err := s.Products.FindByID(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		if p.Status == models.ProductDraft || p.Status == models.ProductArchived {
			return nil, apperr.Validation("product %s is not available", p.Name)
		}
		if !p.InStock(it.Quantity) {
			return nil, apperr.Validation("only %d of %s left in stock", p.Stock, p.Name)
		}
		items = append(items, models.LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  it.Quantity,
			Image:     p.Thumbnail,
			SKU:       p.SKU,
			Variant:   it.Variant,
		})
	}
	return items, nil
}

// Coupon looks up and validates a coupon code against subtotal.
func (s *Service) Coupon(ctx context.Context, code string, items []models.LineItem) (*models.Coupon, error) {
	if code == "" {
		return nil, nil
	}
	c, err := s.Coupons.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Validation("invalid coupon code")
		}
		return nil, err
	}
	base, err := ComputeTotals(items, decimal.Zero, decimal.Zero, decimal.Zero)
	if err != nil {
		return nil, err
	}
	if err := ValidateCoupon(c, base.Subtotal, s.now()); err != nil {
		return nil, err
	}
	return c, nil
}

// Place validates and prices a new order and stores it as pending. Stock is
// only checked here; it is taken when the order is confirmed.
func (s *Service) Place(ctx context.Context, userID string, req PlaceRequest) (*models.Order, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	items, err := s.snapshot(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	coupon, err := s.Coupon(ctx, strings.TrimSpace(req.CouponCode), items)
	if err != nil {
		return nil, err
	}
	quote, err := s.Pricing.Quote(items, coupon)
	if err != nil {
		return nil, err
	}
	if quote.Total.IsNegative() {
		return nil, apperr.Validation("order total cannot be negative")
	}

	now := s.now()
	billing := req.BillingAddress
	if billing.SameAsShipping || billing.Street == "" {
		billing = models.BillingAddress{SameAsShipping: true, Address: req.ShippingAddress}
	}
	o := &models.Order{
		ID:              uuid.New().String(),
		UserID:          userID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  billing,
		Subtotal:        quote.Subtotal,
		ShippingCost:    quote.ShippingCost,
		Tax:             quote.Tax,
		Discount:        quote.Discount,
		DiscountCode:    quote.DiscountCode,
		Total:           quote.Total,
		Currency:        s.Currency,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   models.PaymentPending,
		Status:          models.OrderPending,
		StatusHistory:   []models.StatusEntry{{Status: models.OrderPending, ChangedAt: now, ChangedBy: userID}},
		Notes:           models.OrderNotes{Customer: req.Notes},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if o.Currency == "" {
		o.Currency = "USD"
	}

	for attempt := 1; ; attempt++ {
		if o.OrderNumber, err = s.Numbers.Generate(ctx, now); err != nil {
			return nil, err
		}
		err = s.Orders.Insert(ctx, o)
		if err == nil {
			break
		}
		if !errors.Is(err, apperr.ErrConflict) || attempt >= numberAttempts {
			return nil, err
		}
		log.Warn().Str("number", o.OrderNumber).Msg("order number taken, drawing another")
	}

	if err := s.Users.RecordOrder(ctx, userID, o.Total, now); err != nil {
		log.Error().Err(err).Str("user", userID).Msg("record order in user stats")
	}
	s.Events.Emit(ctx, mq.Event{Name: mq.OrderPlaced, EntityType: "order", EntityID: o.ID, Status: string(o.Status)})
	log.Info().Str("order", o.OrderNumber).Str("user", userID).Str("total", o.Total.String()).Msg("order placed")
	return o, nil
}

// TransitionRequest describes a status change of an order.
type TransitionRequest struct {
	To            models.OrderStatus
	Actor         string
	Note          string
	PaymentStatus models.PaymentStatus
}

// Transition moves an order to req.To. The write is conditional on the
// status just read, so of two concurrent transitions only one applies and
// the stock side effects run at most once.
func (s *Service) Transition(ctx context.Context, orderID string, req TransitionRequest) (*models.Order, error) {
	if !req.To.Valid() {
		return nil, apperr.Validation("invalid order status %q", req.To)
	}
	o, err := s.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, req.To) {
		return nil, apperr.Conflict("cannot move order %s from %s to %s", o.OrderNumber, o.Status, req.To)
	}

	now := s.now()
	deduct := !o.StockDeducted && !restocks(req.To)
	restock := o.StockDeducted && restocks(req.To)
	change := repository.StatusChange{
		To:            req.To,
		Entry:         models.StatusEntry{Status: req.To, Note: req.Note, ChangedAt: now, ChangedBy: req.Actor},
		PaymentStatus: req.PaymentStatus,
		At:            now,
	}
	if deduct || restock {
		flag := deduct
		change.StockDeducted = &flag
	}

	updated, err := s.Orders.Transition(ctx, orderID, o.Status, change)
	if err != nil {
		return nil, err
	}

	sign := 0
	switch {
	case deduct:
		sign = -1
	case restock:
		sign = 1
	}
	if sign != 0 {
		if err := s.moveStock(ctx, updated, sign); err != nil {
			s.revert(ctx, updated, o, req.Actor)
			return nil, err
		}
	}

	s.Events.Emit(ctx, mq.Event{Name: mq.OrderStatusChanged, EntityType: "order", EntityID: updated.ID, Status: string(updated.Status)})
	log.Info().Str("order", updated.OrderNumber).Str("from", string(o.Status)).Str("to", string(updated.Status)).Msg("order status changed")
	return updated, nil
}

// moveStock applies sign × quantity to every line. If a line fails, the
// lines already applied are undone and the error is returned.
func (s *Service) moveStock(ctx context.Context, o *models.Order, sign int) error {
	for i, it := range o.Items {
		if _, err := s.Inventory.Adjust(ctx, it.ProductID, sign*it.Quantity); err != nil {
			log.Error().Err(err).Str("order", o.OrderNumber).Str("product", it.ProductID).Int("delta", sign*it.Quantity).Msg("adjust stock")
			for _, done := range o.Items[:i] {
				if _, uerr := s.Inventory.Adjust(context.WithoutCancel(ctx), done.ProductID, -sign*done.Quantity); uerr != nil {
					log.Error().Err(uerr).Str("order", o.OrderNumber).Str("product", done.ProductID).Msg("undo stock adjustment")
				}
			}
			return err
		}
	}
	for _, it := range o.Items {
		if err := s.Products.Increment(ctx, it.ProductID, repository.Counters{Purchases: int64(-sign * it.Quantity)}); err != nil {
			log.Error().Err(err).Str("product", it.ProductID).Msg("update purchase count")
		}
	}
	return nil
}

// revert moves an order back to prev's status and stock flag after its
// stock side effects failed. The reversal is recorded in the history.
func (s *Service) revert(ctx context.Context, updated, prev *models.Order, actor string) {
	now := s.now()
	flag := prev.StockDeducted
	_, err := s.Orders.Transition(context.WithoutCancel(ctx), updated.ID, updated.Status, repository.StatusChange{
		To:            prev.Status,
		Entry:         models.StatusEntry{Status: prev.Status, Note: "Reverted: stock adjustment failed", ChangedAt: now, ChangedBy: actor},
		StockDeducted: &flag,
		PaymentStatus: prev.PaymentStatus,
		At:            now,
	})
	if err != nil {
		log.Error().Err(err).Str("order", updated.OrderNumber).Str("to", string(prev.Status)).Msg("revert order status")
	}
}

// Cancel cancels an order that has not shipped yet.
func (s *Service) Cancel(ctx context.Context, orderID, actor, reason string) (*models.Order, error) {
	o, err := s.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanCancel(o.Status) {
		return nil, apperr.Conflict("order %s can no longer be cancelled", o.OrderNumber)
	}
	if reason == "" {
		reason = "Cancelled by customer"
	}
	return s.Transition(ctx, orderID, TransitionRequest{To: models.OrderCancelled, Actor: actor, Note: reason})
}

// Get returns an order visible to userID; admins see every order.
func (s *Service) Get(ctx context.Context, orderID, userID string, admin bool) (*models.Order, error) {
	o, err := s.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !admin && o.UserID != userID {
		return nil, apperr.Forbidden("not authorized to access this order")
	}
	return o, nil
}

func (s *Service) GetByNumber(ctx context.Context, number, userID string, admin bool) (*models.Order, error) {
	o, err := s.Orders.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !admin && o.UserID != userID {
		return nil, apperr.Forbidden("not authorized to access this order")
	}
	return o, nil
}
