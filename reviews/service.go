// Package reviews handles product reviews and keeps the rating aggregate
// in step with the set of approved reviews.
package reviews

import (
	"context"
	"errors"
	"strings"
	"time"

	"trendaryo/apperr"
	"trendaryo/models"
	"trendaryo/mq"
	"trendaryo/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Recomputer rebuilds a product's rating aggregate.
type Recomputer interface {
	Recompute(ctx context.Context, productID string) error
}

type CreateRequest struct {
	Rating  int                  `json:"rating"`
	Title   string               `json:"title"`
	Comment string               `json:"comment"`
	OrderID string               `json:"orderId"`
	Images  []models.ReviewImage `json:"images"`
}

type UpdateRequest struct {
	Rating  *int    `json:"rating"`
	Title   *string `json:"title"`
	Comment *string `json:"comment"`
}

func check(r *models.Review) error {
	switch {
	case !models.ValidRating(r.Rating):
		return apperr.Validation("rating must be between %d and %d", models.MinRating, models.MaxRating)
	case strings.TrimSpace(r.Comment) == "":
		return apperr.Validation("please add a comment")
	case len(r.Comment) > 2000:
		return apperr.Validation("comment cannot be more than 2000 characters")
	case len(r.Title) > 200:
		return apperr.Validation("title cannot be more than 200 characters")
	}
	return nil
}

type Service struct {
	Reviews     repository.ReviewRepository
	Products    repository.ProductRepository
	Orders      repository.OrderRepository
	Ratings     Recomputer
	AutoApprove bool
	Events      mq.Emitter
	Now         func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// recompute refreshes the aggregate after the review write already
// happened. A product deleted in the meantime is not an error here.
func (s *Service) recompute(ctx context.Context, r *models.Review) error {
	err := s.Ratings.Recompute(ctx, r.ProductID)
	if errors.Is(err, apperr.ErrNotFound) {
		log.Warn().Str("product", r.ProductID).Str("review", r.ID).Msg("rating recompute skipped, product is gone")
		err = nil
	}
	if err != nil {
		return err
	}
	s.Events.Emit(ctx, mq.Event{
		Name:       mq.ReviewChanged,
		EntityType: "review",
		EntityID:   r.ID,
		ItemID:     r.ProductID,
		Status:     string(r.Status),
	})
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Review, error) {
	return s.Reviews.FindByID(ctx, id)
}

// List returns the approved reviews of a product.
func (s *Service) List(ctx context.Context, productID string, order []repository.Sort, page repository.Page) ([]models.Review, int64, error) {
	return s.Reviews.Find(ctx, repository.ReviewQuery{
		ProductID: productID,
		Status:    models.ReviewApproved,
		Sort:      order,
		Page:      page,
	})
}

// Create stores the user's review of a product. Each user reviews a product once.
func (s *Service) Create(ctx context.Context, userID, productID string, req CreateRequest) (*models.Review, error) {
	now := s.now()
	r := &models.Review{
		ID:        uuid.New().String(),
		ProductID: productID,
		UserID:    userID,
		OrderID:   req.OrderID,
		Rating:    req.Rating,
		Title:     strings.TrimSpace(req.Title),
		Comment:   strings.TrimSpace(req.Comment),
		Images:    req.Images,
		Helpful:   models.Helpful{Users: []string{}},
		Status:    models.ReviewPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := check(r); err != nil {
		return nil, err
	}
	if _, err := s.Products.FindByID(ctx, productID); err != nil {
		return nil, err
	}
	verified, err := s.Orders.HasDelivered(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	r.VerifiedPurchase = verified
	if s.AutoApprove {
		r.Status = models.ReviewApproved
	}

	if err := s.Reviews.Insert(ctx, r); err != nil {
		return nil, err
	}
	if r.Status == models.ReviewApproved {
		if err := s.recompute(ctx, r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Update edits the author's own review.
func (s *Service) Update(ctx context.Context, id, userID string, req UpdateRequest) (*models.Review, error) {
	r, err := s.Reviews.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != userID {
		return nil, apperr.Forbidden("not authorized to update this review")
	}
	oldRating := r.Rating
	if req.Rating != nil {
		r.Rating = *req.Rating
	}
	if req.Title != nil {
		r.Title = strings.TrimSpace(*req.Title)
	}
	if req.Comment != nil {
		r.Comment = strings.TrimSpace(*req.Comment)
	}
	if err := check(r); err != nil {
		return nil, err
	}
	r.UpdatedAt = s.now()
	if err := s.Reviews.Save(ctx, r); err != nil {
		return nil, err
	}
	if r.Status == models.ReviewApproved && r.Rating != oldRating {
		if err := s.recompute(ctx, r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Delete removes a review. Only its author or staff may do so.
func (s *Service) Delete(ctx context.Context, id, userID string, staff bool) error {
	r, err := s.Reviews.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if r.UserID != userID && !staff {
		return apperr.Forbidden("not authorized to delete this review")
	}
	if err := s.Reviews.Delete(ctx, id); err != nil {
		return err
	}
	if r.Status == models.ReviewApproved {
		return s.recompute(ctx, r)
	}
	return nil
}

// Moderate sets the review status. Moving into or out of approved
// recomputes the product aggregate.
func (s *Service) Moderate(ctx context.Context, id string, status models.ReviewStatus, notes string) (*models.Review, error) {
	if !status.Valid() {
		return nil, apperr.Validation("invalid review status %q", status)
	}
	r, err := s.Reviews.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	old := r.Status
	r.Status = status
	if notes != "" {
		r.ModeratorNotes = notes
	}
	r.UpdatedAt = s.now()
	if err := s.Reviews.Save(ctx, r); err != nil {
		return nil, err
	}
	if old != status && (old == models.ReviewApproved || status == models.ReviewApproved) {
		if err := s.recompute(ctx, r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MarkHelpful adds or removes the user's helpful vote.
func (s *Service) MarkHelpful(ctx context.Context, id, userID string, helpful bool) (*models.Review, error) {
	r, err := s.Reviews.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID == userID {
		return nil, apperr.Validation("you cannot vote on your own review")
	}
	var changed bool
	if helpful {
		changed, err = s.Reviews.MarkHelpful(ctx, id, userID)
	} else {
		changed, err = s.Reviews.UnmarkHelpful(ctx, id, userID)
	}
	if err != nil {
		return nil, err
	}
	if !changed {
		if helpful {
			return nil, apperr.Conflict("you already marked this review as helpful")
		}
		return nil, apperr.Conflict("you have not marked this review as helpful")
	}
	return s.Reviews.FindByID(ctx, id)
}

// Report flags a review for moderation. Each user reports a review once.
func (s *Service) Report(ctx context.Context, id, userID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperr.Validation("please give a reason for the report")
	}
	if len(reason) > 500 {
		return apperr.Validation("reason cannot be more than 500 characters")
	}
	if _, err := s.Reviews.FindByID(ctx, id); err != nil {
		return err
	}
	return s.Reviews.Report(ctx, id, models.ReportReason{Reason: reason, ReportedBy: userID, ReportedAt: s.now()})
}
