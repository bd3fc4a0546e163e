// Package repository declares the persistence interfaces the storefront
// consumes. Besides find/save semantics it exposes the handful of atomic
// store-level operations the consistency rules rely on: clamped stock
// adjustment, compare-and-swap of the rating aggregate, conditional status
// transitions and per-key sequences.
package repository

import (
	"context"
	"time"

	"trendaryo/models"

	"github.com/shopspring/decimal"
)

const (
	DefaultLimit = 12
	MaxLimit     = 100
)

// Page selects a 1-based page. A zero Limit means no limit.
type Page struct {
	Page  int
	Limit int
}

func (p Page) Skip() int64 {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	return int64((p.Page - 1) * p.Limit)
}

type Sort struct {
	Field string
	Desc  bool
}

type DecimalRange struct {
	Gt, Gte, Lt, Lte *decimal.Decimal
}

func (r DecimalRange) Empty() bool {
	return r.Gt == nil && r.Gte == nil && r.Lt == nil && r.Lte == nil
}

func (r DecimalRange) Contains(v decimal.Decimal) bool {
	switch {
	case r.Gt != nil && !v.GreaterThan(*r.Gt):
		return false
	case r.Gte != nil && v.LessThan(*r.Gte):
		return false
	case r.Lt != nil && !v.LessThan(*r.Lt):
		return false
	case r.Lte != nil && v.GreaterThan(*r.Lte):
		return false
	}
	return true
}

type IntRange struct {
	Gt, Gte, Lt, Lte *int
}

func (r IntRange) Empty() bool {
	return r.Gt == nil && r.Gte == nil && r.Lt == nil && r.Lte == nil
}

func (r IntRange) Contains(v int) bool {
	switch {
	case r.Gt != nil && v <= *r.Gt:
		return false
	case r.Gte != nil && v < *r.Gte:
		return false
	case r.Lt != nil && v >= *r.Lt:
		return false
	case r.Lte != nil && v > *r.Lte:
		return false
	}
	return true
}

// ProductQuery is the typed, allow-listed product filter. Empty fields do
// not constrain the result.
type ProductQuery struct {
	Category    string
	SubCategory string
	Brand       string
	Statuses    []models.ProductStatus
	Trends      []models.TrendStatus
	Tags        []string
	Price       DecimalRange
	Stock       IntRange
	MinRating   *float64
	Search      string
	OnSale      bool
	LowStock    bool
	ExcludeID   string
	Sort        []Sort
	Page        Page
}

// Counters are atomic increments applied to a product.
type Counters struct {
	Views     int64
	Purchases int64
	Wishlists int64
}

type ProductRepository interface {
	FindByID(ctx context.Context, id string) (*models.Product, error)
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	Find(ctx context.Context, q ProductQuery) ([]models.Product, int64, error)
	Insert(ctx context.Context, p *models.Product) error
	// Save writes the editable fields of p. Stock, ratings and counters are
	// owned by AdjustStock, SetRatings and Increment.
	Save(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id string) error
	// AdjustStock atomically sets stock to max(0, stock+delta) and derives
	// status from the result.
	AdjustStock(ctx context.Context, id string, delta int) (*models.Product, error)
	// SetRatings writes the aggregate only if ratingsVersion still equals
	// expected, returning a Conflict error otherwise.
	SetRatings(ctx context.Context, id string, expected int64, r models.RatingSummary) error
	Increment(ctx context.Context, id string, c Counters) error
}

type ReviewQuery struct {
	ProductID string
	UserID    string
	Status    models.ReviewStatus
	Sort      []Sort
	Page      Page
}

type ReviewRepository interface {
	FindByID(ctx context.Context, id string) (*models.Review, error)
	Find(ctx context.Context, q ReviewQuery) ([]models.Review, int64, error)
	// Insert returns a Conflict error when the user already reviewed the product.
	Insert(ctx context.Context, r *models.Review) error
	Save(ctx context.Context, r *models.Review) error
	Delete(ctx context.Context, id string) error
	// MarkHelpful adds userID to the helpful set; false when already present.
	MarkHelpful(ctx context.Context, id, userID string) (bool, error)
	UnmarkHelpful(ctx context.Context, id, userID string) (bool, error)
	Report(ctx context.Context, id string, reason models.ReportReason) error
}

type OrderQuery struct {
	UserID string
	Status models.OrderStatus
	Page   Page
}

// StatusChange is applied by Transition together with the history entry.
type StatusChange struct {
	To            models.OrderStatus
	Entry         models.StatusEntry
	StockDeducted *bool
	PaymentStatus models.PaymentStatus
	At            time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindByNumber(ctx context.Context, number string) (*models.Order, error)
	Find(ctx context.Context, q OrderQuery) ([]models.Order, int64, error)
	// Insert returns a Conflict error on a duplicate order number.
	Insert(ctx context.Context, o *models.Order) error
	// Transition moves the order from status `from` and appends c.Entry to
	// the history. It returns a Conflict error if the stored status is no
	// longer `from`.
	Transition(ctx context.Context, id string, from models.OrderStatus, c StatusChange) (*models.Order, error)
	SetPayment(ctx context.Context, id string, status models.PaymentStatus, details models.PaymentDetails) error
	// HasDelivered reports whether userID has a delivered order containing productID.
	HasDelivered(ctx context.Context, userID, productID string) (bool, error)
}

type UserQuery struct {
	Role models.Role
	Page Page
}

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Find(ctx context.Context, q UserQuery) ([]models.User, int64, error)
	// Insert returns a Conflict error on a duplicate email.
	Insert(ctx context.Context, u *models.User) error
	// Save writes profile fields, role, activity flag and password.
	Save(ctx context.Context, u *models.User) error
	RecordLogin(ctx context.Context, id string, at time.Time) error
	RecordOrder(ctx context.Context, id string, total decimal.Decimal, at time.Time) error
	SetRefreshToken(ctx context.Context, id, hash string, expiry time.Time) error
	FindByRefreshToken(ctx context.Context, hash string) (*models.User, error)
}

type CouponRepository interface {
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	Insert(ctx context.Context, c *models.Coupon) error
}

// SequenceRepository hands out monotonically increasing values per key.
type SequenceRepository interface {
	Next(ctx context.Context, key string) (int64, error)
}

// IdempotencyRecord is a stored response replayed for a repeated request.
type IdempotencyRecord struct {
	Key         string    `bson:"_id"`
	RequestHash string    `bson:"requestHash"`
	StatusCode  int       `bson:"statusCode"`
	Body        []byte    `bson:"body"`
	ContentType string    `bson:"contentType"`
	CreatedAt   time.Time `bson:"createdAt"`
	ExpiresAt   time.Time `bson:"expiresAt"`
}

type IdempotencyRepository interface {
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	// Put returns a Conflict error when the key is already stored.
	Put(ctx context.Context, rec *IdempotencyRecord) error
}
