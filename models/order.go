package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending          OrderStatus = "pending"
	OrderConfirmed        OrderStatus = "confirmed"
	OrderProcessing       OrderStatus = "processing"
	OrderReadyForShipment OrderStatus = "ready_for_shipment"
	OrderShipped          OrderStatus = "shipped"
	OrderOutForDelivery   OrderStatus = "out_for_delivery"
	OrderDelivered        OrderStatus = "delivered"
	OrderCancelled        OrderStatus = "cancelled"
	OrderReturned         OrderStatus = "returned"
	OrderRefunded         OrderStatus = "refunded"
)

var orderStatusText = map[OrderStatus]string{
	OrderPending:          "Order Placed",
	OrderConfirmed:        "Order Confirmed",
	OrderProcessing:       "Processing",
	OrderReadyForShipment: "Ready for Shipment",
	OrderShipped:          "Shipped",
	OrderOutForDelivery:   "Out for Delivery",
	OrderDelivered:        "Delivered",
	OrderCancelled:        "Cancelled",
	OrderReturned:         "Returned",
	OrderRefunded:         "Refunded",
}

func (s OrderStatus) Valid() bool {
	_, ok := orderStatusText[s]
	return ok
}

// Text is the display label of the status.
func (s OrderStatus) Text() string {
	if t, ok := orderStatusText[s]; ok {
		return t
	}
	return string(s)
}

type PaymentMethod string

const (
	PaymentCreditCard PaymentMethod = "credit_card"
	PaymentPaypal     PaymentMethod = "paypal"
	PaymentStripe     PaymentMethod = "stripe"
	PaymentApplePay   PaymentMethod = "apple_pay"
	PaymentGooglePay  PaymentMethod = "google_pay"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCreditCard, PaymentPaypal, PaymentStripe, PaymentApplePay, PaymentGooglePay:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentProcessing        PaymentStatus = "processing"
	PaymentPaid              PaymentStatus = "paid"
	PaymentFailed            PaymentStatus = "failed"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

// LineItem is the product snapshot captured when the order is created.
type LineItem struct {
	ProductID string          `json:"productId" bson:"productId"`
	Name      string          `json:"name" bson:"name"`
	Price     decimal.Decimal `json:"price" bson:"price"`
	Quantity  int             `json:"quantity" bson:"quantity"`
	Image     string          `json:"image,omitempty" bson:"image,omitempty"`
	SKU       string          `json:"sku,omitempty" bson:"sku,omitempty"`
	Variant   string          `json:"variant,omitempty" bson:"variant,omitempty"`
}

type Address struct {
	Type         string `json:"type,omitempty" bson:"type,omitempty"` // home, work, other
	Street       string `json:"street" bson:"street"`
	City         string `json:"city" bson:"city"`
	State        string `json:"state,omitempty" bson:"state,omitempty"`
	Country      string `json:"country" bson:"country"`
	ZipCode      string `json:"zipCode" bson:"zipCode"`
	ContactName  string `json:"contactName,omitempty" bson:"contactName,omitempty"`
	ContactPhone string `json:"contactPhone,omitempty" bson:"contactPhone,omitempty"`
}

type BillingAddress struct {
	SameAsShipping bool `json:"sameAsShipping" bson:"sameAsShipping"`
	Address        `bson:",inline"`
}

type PaymentDetails struct {
	TransactionID   string     `json:"transactionId,omitempty" bson:"transactionId,omitempty"`
	PaymentIntentID string     `json:"paymentIntentId,omitempty" bson:"paymentIntentId,omitempty"`
	ReceiptURL      string     `json:"receiptUrl,omitempty" bson:"receiptUrl,omitempty"`
	PaidAt          *time.Time `json:"paidAt,omitempty" bson:"paidAt,omitempty"`
}

type ShippingMethod struct {
	Carrier           string     `json:"carrier,omitempty" bson:"carrier,omitempty"`
	Service           string     `json:"service,omitempty" bson:"service,omitempty"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery,omitempty" bson:"estimatedDelivery,omitempty"`
	TrackingNumber    string     `json:"trackingNumber,omitempty" bson:"trackingNumber,omitempty"`
	TrackingURL       string     `json:"trackingUrl,omitempty" bson:"trackingUrl,omitempty"`
}

// StatusEntry is one record of the append-only status history.
type StatusEntry struct {
	Status    OrderStatus `json:"status" bson:"status"`
	Note      string      `json:"note,omitempty" bson:"note,omitempty"`
	ChangedAt time.Time   `json:"changedAt" bson:"changedAt"`
	ChangedBy string      `json:"changedBy,omitempty" bson:"changedBy,omitempty"`
}

type OrderNotes struct {
	Customer string `json:"customer,omitempty" bson:"customer,omitempty"`
	Admin    string `json:"admin,omitempty" bson:"admin,omitempty"`
}

type Order struct {
	ID              string          `json:"id" bson:"_id"`
	OrderNumber     string          `json:"orderNumber" bson:"orderNumber"`
	UserID          string          `json:"userId" bson:"userId"`
	Items           []LineItem      `json:"items" bson:"items"`
	ShippingAddress Address         `json:"shippingAddress" bson:"shippingAddress"`
	BillingAddress  BillingAddress  `json:"billingAddress" bson:"billingAddress"`
	Subtotal        decimal.Decimal `json:"subtotal" bson:"subtotal"`
	ShippingCost    decimal.Decimal `json:"shippingCost" bson:"shippingCost"`
	Tax             decimal.Decimal `json:"tax" bson:"tax"`
	Discount        decimal.Decimal `json:"discount" bson:"discount"`
	DiscountCode    string          `json:"discountCode,omitempty" bson:"discountCode,omitempty"`
	Total           decimal.Decimal `json:"total" bson:"total"`
	Currency        string          `json:"currency" bson:"currency"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod" bson:"paymentMethod"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus" bson:"paymentStatus"`
	PaymentDetails  PaymentDetails  `json:"paymentDetails" bson:"paymentDetails"`
	ShippingMethod  ShippingMethod  `json:"shippingMethod" bson:"shippingMethod"`
	Status          OrderStatus     `json:"status" bson:"status"`
	StatusHistory   []StatusEntry   `json:"statusHistory" bson:"statusHistory"`
	Notes           OrderNotes      `json:"notes" bson:"notes"`
	StockDeducted   bool            `json:"-" bson:"stockDeducted"`
	CreatedAt       time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt" bson:"updatedAt"`
	CancelledAt     *time.Time      `json:"cancelledAt,omitempty" bson:"cancelledAt,omitempty"`
	ShippedAt       *time.Time      `json:"shippedAt,omitempty" bson:"shippedAt,omitempty"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty" bson:"deliveredAt,omitempty"`
}

const defaultDeliveryWindow = 7 * 24 * time.Hour

// EstimatedDeliveryDate falls back to seven days after creation when no
// carrier estimate is known.
func (o *Order) EstimatedDeliveryDate() time.Time {
	if o.ShippingMethod.EstimatedDelivery != nil {
		return *o.ShippingMethod.EstimatedDelivery
	}
	return o.CreatedAt.Add(defaultDeliveryWindow)
}

// Contains reports whether the order has a line for productID.
func (o *Order) Contains(productID string) bool {
	for _, it := range o.Items {
		if it.ProductID == productID {
			return true
		}
	}
	return false
}
