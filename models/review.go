package models

import "time"

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
	ReviewSpam     ReviewStatus = "spam"
)

func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewPending, ReviewApproved, ReviewRejected, ReviewSpam:
		return true
	}
	return false
}

const (
	MinRating = 1
	MaxRating = 5
)

type ReviewImage struct {
	URL string `json:"url" bson:"url"`
	Alt string `json:"alt,omitempty" bson:"alt,omitempty"`
}

type Helpful struct {
	Count int      `json:"count" bson:"count"`
	Users []string `json:"users" bson:"users"`
}

type ReportReason struct {
	Reason     string    `json:"reason" bson:"reason"`
	ReportedBy string    `json:"reportedBy" bson:"reportedBy"`
	ReportedAt time.Time `json:"reportedAt" bson:"reportedAt"`
}

type Reported struct {
	Count   int            `json:"count" bson:"count"`
	Reasons []ReportReason `json:"reasons,omitempty" bson:"reasons,omitempty"`
}

type Review struct {
	ID               string        `json:"id" bson:"_id"`
	ProductID        string        `json:"productId" bson:"productId"`
	UserID           string        `json:"userId" bson:"userId"`
	OrderID          string        `json:"orderId,omitempty" bson:"orderId,omitempty"`
	Rating           int           `json:"rating" bson:"rating"`
	Title            string        `json:"title,omitempty" bson:"title,omitempty"`
	Comment          string        `json:"comment" bson:"comment"`
	Images           []ReviewImage `json:"images,omitempty" bson:"images,omitempty"`
	VerifiedPurchase bool          `json:"verifiedPurchase" bson:"verifiedPurchase"`
	Helpful          Helpful       `json:"helpful" bson:"helpful"`
	IsFeatured       bool          `json:"isFeatured" bson:"isFeatured"`
	Status           ReviewStatus  `json:"status" bson:"status"`
	ModeratorNotes   string        `json:"moderatorNotes,omitempty" bson:"moderatorNotes,omitempty"`
	Reported         Reported      `json:"reported" bson:"reported"`
	CreatedAt        time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// ValidRating reports whether r is an allowed star value.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}
