package cart

import (
	"context"
	"errors"
	"slices"
	"strings"

	"trendaryo/apperr"
	"trendaryo/models"
	"trendaryo/orders"
	"trendaryo/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// MaxQuantity caps a single cart line.
const MaxQuantity = 99

type Line struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Thumbnail string          `json:"thumbnail"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Stock     int             `json:"stock"`
	Available bool            `json:"available"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// View is a cart priced from the live catalog. Unavailable lines are shown
// but left out of the totals.
type View struct {
	Items       []Line       `json:"items"`
	Coupon      string       `json:"coupon,omitempty"`
	CouponError string       `json:"couponError,omitempty"`
	Totals      orders.Quote `json:"totals"`
}

type Service struct {
	Store    Store
	Products repository.ProductRepository
	Orders   *orders.Service
}

func sellable(p *models.Product) bool {
	return p.Status == models.ProductActive || p.Status == models.ProductOutOfStock
}

func (s *Service) product(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.Products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sellable(p) {
		return nil, apperr.NotFound("product %s not found", id)
	}
	return p, nil
}

func checkQuantity(qty int) error {
	if qty < 1 || qty > MaxQuantity {
		return apperr.Validation("quantity must be between 1 and %d", MaxQuantity)
	}
	return nil
}

// View loads the cart and prices it. Lines whose product is gone are
// dropped from the session.
func (s *Service) View(ctx context.Context, userID string) (*View, error) {
	sess, err := s.Store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(sess.Items))
	for id := range sess.Items {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	v := &View{Items: []Line{}}
	var priced []models.LineItem
	for _, id := range ids {
		qty := sess.Items[id]
		p, err := s.product(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			if _, err := s.Store.Remove(ctx, userID, id); err != nil {
				log.Warn().Err(err).Str("user", userID).Str("product", id).Msg("drop stale cart line")
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		line := Line{
			ProductID: p.ID,
			Name:      p.Name,
			Slug:      p.Slug,
			Thumbnail: p.Thumbnail,
			Price:     p.Price,
			Quantity:  qty,
			Stock:     p.Stock,
			Available: p.InStock(qty),
			LineTotal: p.Price.Mul(decimal.NewFromInt(int64(qty))),
		}
		v.Items = append(v.Items, line)
		if line.Available {
			priced = append(priced, models.LineItem{ProductID: p.ID, Name: p.Name, Price: p.Price, Quantity: qty})
		}
	}

	var coupon *models.Coupon
	if sess.Coupon != "" {
		v.Coupon = sess.Coupon
		coupon, err = s.Orders.Coupon(ctx, sess.Coupon, priced)
		if err != nil {
			if !errors.Is(err, apperr.ErrValidation) {
				return nil, err
			}
			v.CouponError = apperr.Message(err)
			coupon = nil
		}
	}
	if v.Totals, err = s.Orders.Pricing.Quote(priced, coupon); err != nil {
		return nil, err
	}
	return v, nil
}

// Add puts qty more of a product in the cart, bounded by its stock.
func (s *Service) Add(ctx context.Context, userID, productID string, qty int) (*View, error) {
	if err := checkQuantity(qty); err != nil {
		return nil, err
	}
	p, err := s.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	sess, err := s.Store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	want := sess.Items[productID] + qty
	if err := checkQuantity(want); err != nil {
		return nil, err
	}
	if !p.InStock(want) {
		return nil, apperr.Validation("only %d of %s left in stock", p.Stock, p.Name)
	}
	if _, err := s.Store.Add(ctx, userID, productID, qty); err != nil {
		return nil, err
	}
	return s.View(ctx, userID)
}

// Update sets the quantity of a cart line.
func (s *Service) Update(ctx context.Context, userID, productID string, qty int) (*View, error) {
	if err := checkQuantity(qty); err != nil {
		return nil, err
	}
	sess, err := s.Store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, ok := sess.Items[productID]; !ok {
		return nil, apperr.NotFound("product %s is not in the cart", productID)
	}
	p, err := s.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.InStock(qty) {
		return nil, apperr.Validation("only %d of %s left in stock", p.Stock, p.Name)
	}
	if err := s.Store.Set(ctx, userID, productID, qty); err != nil {
		return nil, err
	}
	return s.View(ctx, userID)
}

func (s *Service) Remove(ctx context.Context, userID, productID string) (*View, error) {
	ok, err := s.Store.Remove(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("product %s is not in the cart", productID)
	}
	return s.View(ctx, userID)
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.Store.Clear(ctx, userID)
}

// ApplyCoupon validates code against the current cart and keeps it on the
// session. An empty code removes the coupon.
func (s *Service) ApplyCoupon(ctx context.Context, userID, code string) (*View, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code != "" {
		v, err := s.View(ctx, userID)
		if err != nil {
			return nil, err
		}
		var items []models.LineItem
		for _, l := range v.Items {
			if l.Available {
				items = append(items, models.LineItem{ProductID: l.ProductID, Price: l.Price, Quantity: l.Quantity})
			}
		}
		if _, err := s.Orders.Coupon(ctx, code, items); err != nil {
			return nil, err
		}
	}
	if err := s.Store.SetCoupon(ctx, userID, code); err != nil {
		return nil, err
	}
	return s.View(ctx, userID)
}

// CheckoutRequest is an order request without items; they come from the cart.
type CheckoutRequest struct {
	ShippingAddress models.Address        `json:"shippingAddress"`
	BillingAddress  models.BillingAddress `json:"billingAddress"`
	PaymentMethod   models.PaymentMethod  `json:"paymentMethod"`
	Notes           string                `json:"notes,omitempty"`
}

// Checkout places an order for the whole cart and empties it.
func (s *Service) Checkout(ctx context.Context, userID string, req CheckoutRequest) (*models.Order, error) {
	sess, err := s.Store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(sess.Items) == 0 {
		return nil, apperr.Validation("your cart is empty")
	}
	items := make([]orders.ItemRequest, 0, len(sess.Items))
	for id, qty := range sess.Items {
		items = append(items, orders.ItemRequest{ProductID: id, Quantity: qty})
	}
	slices.SortFunc(items, func(a, b orders.ItemRequest) int { return strings.Compare(a.ProductID, b.ProductID) })

	o, err := s.Orders.Place(ctx, userID, orders.PlaceRequest{
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		PaymentMethod:   req.PaymentMethod,
		CouponCode:      sess.Coupon,
		Notes:           req.Notes,
	})
	if err != nil {
		return nil, err
	}
	if err := s.Store.Clear(ctx, userID); err != nil {
		log.Error().Err(err).Str("user", userID).Str("order", o.OrderNumber).Msg("clear cart after checkout")
	}
	return o, nil
}

// Wishlist returns the wished products that still exist.
func (s *Service) Wishlist(ctx context.Context, userID string) ([]models.Product, error) {
	ids, err := s.Store.Wishlist(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		p, err := s.product(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

// Wish adds a product to the wishlist. The product's wishlist count only
// moves when membership changes.
func (s *Service) Wish(ctx context.Context, userID, productID string) error {
	if _, err := s.product(ctx, productID); err != nil {
		return err
	}
	added, err := s.Store.Wish(ctx, userID, productID)
	if err != nil || !added {
		return err
	}
	return s.Products.Increment(ctx, productID, repository.Counters{Wishlists: 1})
}

func (s *Service) Unwish(ctx context.Context, userID, productID string) error {
	removed, err := s.Store.Unwish(ctx, userID, productID)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotFound("product %s is not in the wishlist", productID)
	}
	err = s.Products.Increment(ctx, productID, repository.Counters{Wishlists: -1})
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	return err
}
