package mongodb

import (
	"context"

	"trendaryo/apperr"
	"trendaryo/models"
	"trendaryo/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type Reviews struct {
	coll *mongo.Collection
}

func (s *Reviews) FindByID(ctx context.Context, id string) (*models.Review, error) {
	var r models.Review
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return nil, wrap(err, "review %s", id)
	}
	return &r, nil
}

func (s *Reviews) Find(ctx context.Context, q repository.ReviewQuery) ([]models.Review, int64, error) {
	filter := bson.M{}
	if q.ProductID != "" {
		filter["productId"] = q.ProductID
	}
	if q.UserID != "" {
		filter["userId"] = q.UserID
	}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	return findPage[models.Review](ctx, s.coll, filter, findOptions(q.Sort, "createdAt", q.Page))
}

func (s *Reviews) Insert(ctx context.Context, r *models.Review) error {
	if r.Helpful.Users == nil {
		r.Helpful.Users = []string{}
	}
	if _, err := s.coll.InsertOne(ctx, r); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict("you have already reviewed this product")
		}
		return wrap(err, "review %s", r.ID)
	}
	return nil
}

func (s *Reviews) Save(ctx context.Context, r *models.Review) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": r.ID}, bson.M{"$set": bson.M{
		"rating":           r.Rating,
		"title":            r.Title,
		"comment":          r.Comment,
		"images":           r.Images,
		"isFeatured":       r.IsFeatured,
		"status":           r.Status,
		"moderatorNotes":   r.ModeratorNotes,
		"verifiedPurchase": r.VerifiedPurchase,
		"updatedAt":        r.UpdatedAt,
	}})
	return matched(res, err, "review %s", r.ID)
}

func (s *Reviews) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return wrap(err, "review %s", id)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("review %s not found", id)
	}
	return nil
}

// toggleHelpful applies update when filter matches. A miss means either
// the review is gone or the membership was already in the wanted state.
func (s *Reviews) toggleHelpful(ctx context.Context, id string, filter, update bson.M) (bool, error) {
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, wrap(err, "review %s", id)
	}
	if res.ModifiedCount > 0 {
		return true, nil
	}
	if _, err := s.FindByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *Reviews) MarkHelpful(ctx context.Context, id, userID string) (bool, error) {
	return s.toggleHelpful(ctx, id,
		bson.M{"_id": id, "helpful.users": bson.M{"$ne": userID}},
		bson.M{"$push": bson.M{"helpful.users": userID}, "$inc": bson.M{"helpful.count": 1}},
	)
}

func (s *Reviews) UnmarkHelpful(ctx context.Context, id, userID string) (bool, error) {
	return s.toggleHelpful(ctx, id,
		bson.M{"_id": id, "helpful.users": userID},
		bson.M{"$pull": bson.M{"helpful.users": userID}, "$inc": bson.M{"helpful.count": -1}},
	)
}

func (s *Reviews) Report(ctx context.Context, id string, reason models.ReportReason) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "reported.reasons.reportedBy": bson.M{"$ne": reason.ReportedBy}},
		bson.M{"$push": bson.M{"reported.reasons": reason}, "$inc": bson.M{"reported.count": 1}},
	)
	if err != nil {
		return wrap(err, "review %s", id)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if _, err := s.FindByID(ctx, id); err != nil {
		return err
	}
	return apperr.Conflict("you have already reported this review")
}
