package db

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	ProductsCollection    = "products"
	ReviewsCollection     = "reviews"
	OrdersCollection      = "orders"
	UsersCollection       = "users"
	CouponsCollection     = "coupons"
	CountersCollection    = "counters"
	IdempotencyCollection = "idempotency_keys"
)

// Collections lists every collection the storefront writes.
func Collections() []string {
	return []string{
		ProductsCollection, ReviewsCollection, OrdersCollection, UsersCollection,
		CouponsCollection, CountersCollection, IdempotencyCollection,
	}
}

var Client *mongo.Client

// Connect dials MongoDB with the storefront codec registry and pings the
// primary before returning the database handle.
func Connect(ctx context.Context, uri, database string) (*mongo.Database, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetRegistry(Registry()).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	Client = client
	log.Info().Str("database", database).Msg("connected to MongoDB")
	return client.Database(database), nil
}

func Disconnect(ctx context.Context) {
	if Client == nil {
		return
	}
	if err := Client.Disconnect(ctx); err != nil {
		log.Error().Err(err).Msg("disconnect MongoDB")
	}
}
