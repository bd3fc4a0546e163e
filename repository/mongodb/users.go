package mongodb

import (
	"context"
	"strings"
	"time"

	"trendaryo/models"
	"trendaryo/repository"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type Users struct {
	coll *mongo.Collection
}

func (s *Users) findOne(ctx context.Context, filter bson.M, what string) (*models.User, error) {
	var u models.User
	if err := s.coll.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, wrap(err, "user %s", what)
	}
	return &u, nil
}

func (s *Users) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id}, id)
}

func (s *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(email)
	return s.findOne(ctx, bson.M{"email": email}, email)
}

func (s *Users) Find(ctx context.Context, q repository.UserQuery) ([]models.User, int64, error) {
	filter := bson.M{}
	if q.Role != "" {
		filter["role"] = q.Role
	}
	opts := findOptions(nil, "createdAt", q.Page).SetProjection(bson.M{"password": 0, "refreshToken": 0})
	return findPage[models.User](ctx, s.coll, filter, opts)
}

func (s *Users) Insert(ctx context.Context, u *models.User) error {
	if _, err := s.coll.InsertOne(ctx, u); err != nil {
		return wrap(err, "email %s", u.Email)
	}
	return nil
}

func (s *Users) Save(ctx context.Context, u *models.User) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{"$set": bson.M{
		"email":       u.Email,
		"password":    u.Password,
		"name":        u.Name,
		"role":        u.Role,
		"phone":       u.Phone,
		"addresses":   u.Addresses,
		"dateOfBirth": u.DateOfBirth,
		"gender":      u.Gender,
		"preferences": u.Preferences,
		"isVerified":  u.IsVerified,
		"isActive":    u.IsActive,
		"updatedAt":   u.UpdatedAt,
	}})
	return matched(res, err, "user %s", u.ID)
}

func (s *Users) RecordLogin(ctx context.Context, id string, at time.Time) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"stats.loginCount": 1},
		"$set": bson.M{"stats.lastLoginDate": at},
	})
	return matched(res, err, "user %s", id)
}

// RecordOrder adds total to stats.totalSpent server side; $inc works on
// Decimal128 so concurrent orders do not lose each other's amounts.
func (s *Users) RecordOrder(ctx context.Context, id string, total decimal.Decimal, at time.Time) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"stats.ordersCount": 1, "stats.totalSpent": total},
		"$set": bson.M{"stats.lastOrderDate": at},
	})
	return matched(res, err, "user %s", id)
}

func (s *Users) SetRefreshToken(ctx context.Context, id, hash string, expiry time.Time) error {
	update := bson.M{"$set": bson.M{"refreshToken": hash, "refreshExpiry": expiry}}
	if hash == "" {
		update = bson.M{"$unset": bson.M{"refreshToken": "", "refreshExpiry": ""}}
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	return matched(res, err, "user %s", id)
}

func (s *Users) FindByRefreshToken(ctx context.Context, hash string) (*models.User, error) {
	if hash == "" {
		return nil, wrap(mongo.ErrNoDocuments, "refresh token")
	}
	return s.findOne(ctx, bson.M{"refreshToken": hash}, "with that refresh token")
}

