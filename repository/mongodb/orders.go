package mongodb

import (
	"context"

	"trendaryo/apperr"
	"trendaryo/models"
	"trendaryo/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Orders struct {
	coll *mongo.Collection
}

func (s *Orders) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		return nil, wrap(err, "order %s", id)
	}
	return &o, nil
}

func (s *Orders) FindByNumber(ctx context.Context, number string) (*models.Order, error) {
	var o models.Order
	if err := s.coll.FindOne(ctx, bson.M{"orderNumber": number}).Decode(&o); err != nil {
		return nil, wrap(err, "order %s", number)
	}
	return &o, nil
}

func (s *Orders) Find(ctx context.Context, q repository.OrderQuery) ([]models.Order, int64, error) {
	filter := bson.M{}
	if q.UserID != "" {
		filter["userId"] = q.UserID
	}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	return findPage[models.Order](ctx, s.coll, filter, findOptions(nil, "createdAt", q.Page))
}

func (s *Orders) Insert(ctx context.Context, o *models.Order) error {
	if _, err := s.coll.InsertOne(ctx, o); err != nil {
		return wrap(err, "order %s", o.OrderNumber)
	}
	return nil
}

// Transition only matches while the stored status is still from, which
// makes concurrent transitions of one order mutually exclusive.
func (s *Orders) Transition(ctx context.Context, id string, from models.OrderStatus, c repository.StatusChange) (*models.Order, error) {
	set := bson.M{"status": c.To, "updatedAt": c.At}
	if c.StockDeducted != nil {
		set["stockDeducted"] = *c.StockDeducted
	}
	if c.PaymentStatus != "" {
		set["paymentStatus"] = c.PaymentStatus
	}
	switch c.To {
	case models.OrderCancelled:
		set["cancelledAt"] = c.At
	case models.OrderShipped:
		set["shippedAt"] = c.At
	case models.OrderDelivered:
		set["deliveredAt"] = c.At
	}
	update := bson.M{"$set": set, "$push": bson.M{"statusHistory": c.Entry}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var o models.Order
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": from}, update, opts).Decode(&o)
	if err == nil {
		return &o, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, wrap(err, "order %s", id)
	}
	cur, ferr := s.FindByID(ctx, id)
	if ferr != nil {
		return nil, ferr
	}
	return nil, apperr.Conflict("order %s is %s, not %s", id, cur.Status, from)
}

func (s *Orders) SetPayment(ctx context.Context, id string, status models.PaymentStatus, details models.PaymentDetails) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"paymentStatus":  status,
		"paymentDetails": details,
	}, "$currentDate": bson.M{"updatedAt": true}})
	return matched(res, err, "order %s", id)
}

func (s *Orders) HasDelivered(ctx context.Context, userID, productID string) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{
		"userId":          userID,
		"status":          models.OrderDelivered,
		"items.productId": productID,
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, apperr.Persistence(err, "count delivered orders")
	}
	return n > 0, nil
}
