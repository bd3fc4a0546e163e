package mongodb

import (
	"context"
	"strings"

	"trendaryo/models"
	"trendaryo/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Coupons struct {
	coll *mongo.Collection
}

func (s *Coupons) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	code = strings.ToLower(code)
	var c models.Coupon
	if err := s.coll.FindOne(ctx, bson.M{"_id": code}).Decode(&c); err != nil {
		return nil, wrap(err, "coupon %s", code)
	}
	return &c, nil
}

func (s *Coupons) Insert(ctx context.Context, c *models.Coupon) error {
	c.Code = strings.ToLower(c.Code)
	if _, err := s.coll.InsertOne(ctx, c); err != nil {
		return wrap(err, "coupon %s", c.Code)
	}
	return nil
}

// Sequences keeps one counter document per key.
type Sequences struct {
	coll *mongo.Collection
}

func (s *Sequences) Next(ctx context.Context, key string) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": key}, bson.M{"$inc": bson.M{"seq": 1}}, opts).Decode(&doc)
	if err != nil {
		return 0, wrap(err, "sequence %s", key)
	}
	return doc.Seq, nil
}

type Idempotency struct {
	coll *mongo.Collection
}

func (s *Idempotency) Get(ctx context.Context, key string) (*repository.IdempotencyRecord, error) {
	var rec repository.IdempotencyRecord
	if err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&rec); err != nil {
		return nil, wrap(err, "idempotency key %s", key)
	}
	return &rec, nil
}

func (s *Idempotency) Put(ctx context.Context, rec *repository.IdempotencyRecord) error {
	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		return wrap(err, "idempotency key %s", rec.Key)
	}
	return nil
}
