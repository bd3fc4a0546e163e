package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleVendor    Role = "vendor"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleModerator, RoleVendor:
		return true
	}
	return false
}

type Preferences struct {
	Newsletter         bool   `json:"newsletter" bson:"newsletter"`
	Marketing          bool   `json:"marketing" bson:"marketing"`
	EmailNotifications bool   `json:"emailNotifications" bson:"emailNotifications"`
	Currency           string `json:"currency" bson:"currency"`
	Language           string `json:"language" bson:"language"`
}

// DefaultPreferences is applied on registration.
func DefaultPreferences() Preferences {
	return Preferences{Newsletter: true, EmailNotifications: true, Currency: "USD", Language: "en"}
}

type UserStats struct {
	OrdersCount   int             `json:"ordersCount" bson:"ordersCount"`
	TotalSpent    decimal.Decimal `json:"totalSpent" bson:"totalSpent"`
	LastOrderDate *time.Time      `json:"lastOrderDate,omitempty" bson:"lastOrderDate,omitempty"`
	LastLoginDate *time.Time      `json:"lastLoginDate,omitempty" bson:"lastLoginDate,omitempty"`
	LoginCount    int             `json:"loginCount" bson:"loginCount"`
}

type User struct {
	ID            string      `json:"id" bson:"_id"`
	Email         string      `json:"email" bson:"email"`
	Password      string      `json:"-" bson:"password"`
	Name          string      `json:"name" bson:"name"`
	Role          Role        `json:"role" bson:"role"`
	Phone         string      `json:"phone,omitempty" bson:"phone,omitempty"`
	Addresses     []Address   `json:"addresses,omitempty" bson:"addresses,omitempty"`
	DateOfBirth   *time.Time  `json:"dateOfBirth,omitempty" bson:"dateOfBirth,omitempty"`
	Gender        string      `json:"gender,omitempty" bson:"gender,omitempty"`
	Preferences   Preferences `json:"preferences" bson:"preferences"`
	Stats         UserStats   `json:"stats" bson:"stats"`
	IsVerified    bool        `json:"isVerified" bson:"isVerified"`
	IsActive      bool        `json:"isActive" bson:"isActive"`
	RefreshToken  string      `json:"-" bson:"refreshToken,omitempty"`
	RefreshExpiry *time.Time  `json:"-" bson:"refreshExpiry,omitempty"`
	CreatedAt     time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt" bson:"updatedAt"`
}

// Initials returns up to two upper-case initials of the user's name.
func (u *User) Initials() string {
	var b strings.Builder
	for _, part := range strings.Fields(u.Name) {
		b.WriteString(strings.ToUpper(part[:1]))
		if b.Len() == 2 {
			break
		}
	}
	return b.String()
}

type Coupon struct {
	Code      string          `json:"code" bson:"_id"`
	Discount  decimal.Decimal `json:"discount" bson:"discount"` // percent, 10 means 10%
	MinSpend  decimal.Decimal `json:"minSpend" bson:"minSpend"`
	ExpiresAt time.Time       `json:"expiresAt" bson:"expiresAt"`
	Active    bool            `json:"active" bson:"active"`
}
