// Package mongodb implements the repository interfaces on MongoDB.
package mongodb

import (
	"context"
	"errors"
	"regexp"

	"trendaryo/apperr"
	"trendaryo/db"
	"trendaryo/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store holds one repository per collection of the storefront database.
type Store struct {
	Products    *Products
	Reviews     *Reviews
	Orders      *Orders
	Users       *Users
	Coupons     *Coupons
	Sequences   *Sequences
	Idempotency *Idempotency
}

func NewStore(database *mongo.Database) *Store {
	return &Store{
		Products:    &Products{coll: database.Collection(db.ProductsCollection)},
		Reviews:     &Reviews{coll: database.Collection(db.ReviewsCollection)},
		Orders:      &Orders{coll: database.Collection(db.OrdersCollection)},
		Users:       &Users{coll: database.Collection(db.UsersCollection)},
		Coupons:     &Coupons{coll: database.Collection(db.CouponsCollection)},
		Sequences:   &Sequences{coll: database.Collection(db.CountersCollection)},
		Idempotency: &Idempotency{coll: database.Collection(db.IdempotencyCollection)},
	}
}

// wrap maps driver errors onto the apperr kinds.
func wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperr.NotFound(format+" not found", args...)
	case mongo.IsDuplicateKeyError(err):
		return apperr.Conflict(format+" already exists", args...)
	default:
		return apperr.Persistence(err, format, args...)
	}
}

func sortDoc(order []repository.Sort, fallback string) bson.D {
	if len(order) == 0 {
		return bson.D{{Key: fallback, Value: -1}, {Key: "_id", Value: 1}}
	}
	d := make(bson.D, 0, len(order)+1)
	for _, s := range order {
		dir := 1
		if s.Desc {
			dir = -1
		}
		d = append(d, bson.E{Key: s.Field, Value: dir})
	}
	return append(d, bson.E{Key: "_id", Value: 1})
}

func findOptions(order []repository.Sort, fallback string, page repository.Page) *options.FindOptions {
	opts := options.Find().SetSort(sortDoc(order, fallback)).SetSkip(page.Skip())
	if page.Limit > 0 {
		opts.SetLimit(int64(page.Limit))
	}
	return opts
}

// findPage runs filter and decodes the page into out, returning the total match count.
func findPage[T any](ctx context.Context, coll *mongo.Collection, filter any, opts *options.FindOptions) ([]T, int64, error) {
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, apperr.Persistence(err, "count %s", coll.Name())
	}
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, apperr.Persistence(err, "find %s", coll.Name())
	}
	defer cursor.Close(ctx)

	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, 0, apperr.Persistence(err, "decode %s", coll.Name())
	}
	return out, total, nil
}

func matched(res *mongo.UpdateResult, err error, format string, args ...any) error {
	if err != nil {
		return wrap(err, format, args...)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound(format+" not found", args...)
	}
	return nil
}

func quoteSearch(s string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
}
