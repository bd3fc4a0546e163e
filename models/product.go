package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductDraft      ProductStatus = "draft"
	ProductActive     ProductStatus = "active"
	ProductArchived   ProductStatus = "archived"
	ProductOutOfStock ProductStatus = "out_of_stock"
)

func (s ProductStatus) Valid() bool {
	switch s {
	case ProductDraft, ProductActive, ProductArchived, ProductOutOfStock:
		return true
	}
	return false
}

type TrendStatus string

const (
	TrendNone     TrendStatus = ""
	TrendNew      TrendStatus = "new"
	TrendHot      TrendStatus = "hot"
	TrendLimited  TrendStatus = "limited"
	TrendFeatured TrendStatus = "featured"
)

func (s TrendStatus) Valid() bool {
	switch s {
	case TrendNone, TrendNew, TrendHot, TrendLimited, TrendFeatured:
		return true
	}
	return false
}

const (
	DefaultBrand             = "Trendaryo"
	DefaultLowStockThreshold = 10
)

type ProductImage struct {
	URL       string `json:"url" bson:"url"`
	Alt       string `json:"alt,omitempty" bson:"alt,omitempty"`
	IsPrimary bool   `json:"isPrimary" bson:"isPrimary"`
}

type Weight struct {
	Value float64 `json:"value" bson:"value"`
	Unit  string  `json:"unit" bson:"unit"` // g, kg, lb, oz
}

type Dimensions struct {
	Length float64 `json:"length" bson:"length"`
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
	Unit   string  `json:"unit" bson:"unit"` // cm, in
}

type Specification struct {
	Name  string `json:"name" bson:"name"`
	Value string `json:"value" bson:"value"`
}

type Feature struct {
	Title       string `json:"title" bson:"title"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
	Icon        string `json:"icon,omitempty" bson:"icon,omitempty"`
}

type SEO struct {
	Title       string   `json:"title,omitempty" bson:"title,omitempty"`
	Description string   `json:"description,omitempty" bson:"description,omitempty"`
	Keywords    []string `json:"keywords,omitempty" bson:"keywords,omitempty"`
}

// RatingSummary is the aggregate derived from a product's approved reviews.
// Distribution maps each star value 1..5 to its count; all five keys are present.
type RatingSummary struct {
	Average      float64     `json:"average" bson:"average"`
	Count        int         `json:"count" bson:"count"`
	Distribution map[int]int `json:"distribution" bson:"distribution"`
}

// EmptyDistribution returns a distribution with every star value at zero.
func EmptyDistribution() map[int]int {
	d := make(map[int]int, MaxRating)
	for star := MinRating; star <= MaxRating; star++ {
		d[star] = 0
	}
	return d
}

type Product struct {
	ID                string           `json:"id" bson:"_id"`
	Name              string           `json:"name" bson:"name"`
	Slug              string           `json:"slug" bson:"slug"`
	Description       string           `json:"description" bson:"description"`
	ShortDescription  string           `json:"shortDescription,omitempty" bson:"shortDescription,omitempty"`
	Price             decimal.Decimal  `json:"price" bson:"price"`
	ComparePrice      *decimal.Decimal `json:"comparePrice,omitempty" bson:"comparePrice,omitempty"`
	CostPrice         decimal.Decimal  `json:"costPrice" bson:"costPrice"`
	SKU               string           `json:"sku,omitempty" bson:"sku,omitempty"`
	Barcode           string           `json:"barcode,omitempty" bson:"barcode,omitempty"`
	Category          string           `json:"category" bson:"category"`
	SubCategory       string           `json:"subCategory,omitempty" bson:"subCategory,omitempty"`
	Brand             string           `json:"brand" bson:"brand"`
	Tags              []string         `json:"tags" bson:"tags"`
	Status            ProductStatus    `json:"status" bson:"status"`
	TrendStatus       TrendStatus      `json:"trendStatus,omitempty" bson:"trendStatus,omitempty"`
	Images            []ProductImage   `json:"images" bson:"images"`
	Thumbnail         string           `json:"thumbnail" bson:"thumbnail"`
	Stock             int              `json:"stock" bson:"stock"`
	LowStockThreshold int              `json:"lowStockThreshold" bson:"lowStockThreshold"`
	Weight            *Weight          `json:"weight,omitempty" bson:"weight,omitempty"`
	Dimensions        *Dimensions      `json:"dimensions,omitempty" bson:"dimensions,omitempty"`
	Specifications    []Specification  `json:"specifications,omitempty" bson:"specifications,omitempty"`
	Features          []Feature        `json:"features,omitempty" bson:"features,omitempty"`
	Ratings           RatingSummary    `json:"ratings" bson:"ratings"`
	RatingsVersion    int64            `json:"-" bson:"ratingsVersion"`
	ViewCount         int64            `json:"viewCount" bson:"viewCount"`
	PurchaseCount     int64            `json:"purchaseCount" bson:"purchaseCount"`
	WishlistCount     int64            `json:"wishlistCount" bson:"wishlistCount"`
	SEO               *SEO             `json:"seo,omitempty" bson:"seo,omitempty"`
	CreatedBy         string           `json:"createdBy,omitempty" bson:"createdBy,omitempty"`
	CreatedAt         time.Time        `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt" bson:"updatedAt"`
	PublishedAt       time.Time        `json:"publishedAt" bson:"publishedAt"`
}

// InStock reports whether quantity units can be sold.
func (p *Product) InStock(quantity int) bool {
	return p.Stock >= quantity
}

// OnSale reports whether comparePrice marks a discount.
func (p *Product) OnSale() bool {
	return p.ComparePrice != nil && p.ComparePrice.GreaterThan(p.Price)
}

// DiscountPercentage is the rounded percentage off comparePrice, 0 when not on sale.
func (p *Product) DiscountPercentage() int {
	if !p.OnSale() {
		return 0
	}
	off := p.ComparePrice.Sub(p.Price).Div(*p.ComparePrice).Mul(decimal.NewFromInt(100))
	return int(off.Round(0).IntPart())
}
