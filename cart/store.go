// Package cart keeps each user's cart, coupon and wishlist as server-side
// session state and turns a cart into an order at checkout.
package cart

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	"trendaryo/apperr"

	"github.com/redis/go-redis/v9"
)

// SessionTTL is how long an untouched cart survives.
const SessionTTL = 30 * 24 * time.Hour

// Session is a user's cart: product id to quantity plus an optional coupon.
type Session struct {
	Items  map[string]int
	Coupon string
}

type Store interface {
	Get(ctx context.Context, userID string) (*Session, error)
	// Add increases the quantity of a line and returns the new quantity.
	Add(ctx context.Context, userID, productID string, qty int) (int, error)
	Set(ctx context.Context, userID, productID string, qty int) error
	Remove(ctx context.Context, userID, productID string) (bool, error)
	SetCoupon(ctx context.Context, userID, code string) error
	Clear(ctx context.Context, userID string) error

	Wishlist(ctx context.Context, userID string) ([]string, error)
	// Wish adds productID to the wishlist and reports whether it was new.
	Wish(ctx context.Context, userID, productID string) (bool, error)
	Unwish(ctx context.Context, userID, productID string) (bool, error)
}

type RedisStore struct {
	Conn *redis.Client
}

func cartKey(userID string) string     { return "cart:" + userID }
func couponKey(userID string) string   { return "cart:" + userID + ":coupon" }
func wishlistKey(userID string) string { return "wishlist:" + userID }

func (s *RedisStore) Get(ctx context.Context, userID string) (*Session, error) {
	raw, err := s.Conn.HGetAll(ctx, cartKey(userID)).Result()
	if err != nil {
		return nil, apperr.Persistence(err, "load cart")
	}
	sess := &Session{Items: make(map[string]int, len(raw))}
	for id, v := range raw {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			sess.Items[id] = n
		}
	}
	code, err := s.Conn.Get(ctx, couponKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, apperr.Persistence(err, "load cart coupon")
	}
	sess.Coupon = code
	return sess, nil
}

func (s *RedisStore) touch(ctx context.Context, pipe redis.Pipeliner, userID string) {
	pipe.Expire(ctx, cartKey(userID), SessionTTL)
	pipe.Expire(ctx, couponKey(userID), SessionTTL)
}

func (s *RedisStore) Add(ctx context.Context, userID, productID string, qty int) (int, error) {
	pipe := s.Conn.TxPipeline()
	n := pipe.HIncrBy(ctx, cartKey(userID), productID, int64(qty))
	s.touch(ctx, pipe, userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, apperr.Persistence(err, "add to cart")
	}
	return int(n.Val()), nil
}

func (s *RedisStore) Set(ctx context.Context, userID, productID string, qty int) error {
	pipe := s.Conn.TxPipeline()
	pipe.HSet(ctx, cartKey(userID), productID, qty)
	s.touch(ctx, pipe, userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperr.Persistence(err, "update cart")
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, userID, productID string) (bool, error) {
	n, err := s.Conn.HDel(ctx, cartKey(userID), productID).Result()
	if err != nil {
		return false, apperr.Persistence(err, "remove from cart")
	}
	return n > 0, nil
}

func (s *RedisStore) SetCoupon(ctx context.Context, userID, code string) error {
	var err error
	if code == "" {
		err = s.Conn.Del(ctx, couponKey(userID)).Err()
	} else {
		err = s.Conn.Set(ctx, couponKey(userID), code, SessionTTL).Err()
	}
	if err != nil {
		return apperr.Persistence(err, "store cart coupon")
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	if err := s.Conn.Del(ctx, cartKey(userID), couponKey(userID)).Err(); err != nil {
		return apperr.Persistence(err, "clear cart")
	}
	return nil
}

func (s *RedisStore) Wishlist(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.Conn.SMembers(ctx, wishlistKey(userID)).Result()
	if err != nil {
		return nil, apperr.Persistence(err, "load wishlist")
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *RedisStore) Wish(ctx context.Context, userID, productID string) (bool, error) {
	n, err := s.Conn.SAdd(ctx, wishlistKey(userID), productID).Result()
	if err != nil {
		return false, apperr.Persistence(err, "add to wishlist")
	}
	return n > 0, nil
}

func (s *RedisStore) Unwish(ctx context.Context, userID, productID string) (bool, error) {
	n, err := s.Conn.SRem(ctx, wishlistKey(userID), productID).Result()
	if err != nil {
		return false, apperr.Persistence(err, "remove from wishlist")
	}
	return n > 0, nil
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu        sync.Mutex
	carts     map[string]map[string]int
	coupons   map[string]string
	wishlists map[string]map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		carts:     make(map[string]map[string]int),
		coupons:   make(map[string]string),
		wishlists: make(map[string]map[string]bool),
	}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := maps.Clone(s.carts[userID])
	if items == nil {
		items = map[string]int{}
	}
	return &Session{Items: items, Coupon: s.coupons[userID]}, nil
}

func (s *MemoryStore) cart(userID string) map[string]int {
	c, ok := s.carts[userID]
	if !ok {
		c = make(map[string]int)
		s.carts[userID] = c
	}
	return c
}

func (s *MemoryStore) Add(_ context.Context, userID, productID string, qty int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cart(userID)
	c[productID] += qty
	return c[productID], nil
}

func (s *MemoryStore) Set(_ context.Context, userID, productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart(userID)[productID] = qty
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, userID, productID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.carts[userID]
	if _, ok := c[productID]; !ok {
		return false, nil
	}
	delete(c, productID)
	return true, nil
}

func (s *MemoryStore) SetCoupon(_ context.Context, userID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code == "" {
		delete(s.coupons, userID)
	} else {
		s.coupons[userID] = code
	}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
	delete(s.coupons, userID)
	return nil
}

func (s *MemoryStore) Wishlist(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := slices.Collect(maps.Keys(s.wishlists[userID]))
	slices.Sort(ids)
	return ids, nil
}

func (s *MemoryStore) Wish(_ context.Context, userID, productID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wishlists[userID]
	if !ok {
		w = make(map[string]bool)
		s.wishlists[userID] = w
	}
	if w[productID] {
		return false, nil
	}
	w[productID] = true
	return true, nil
}

func (s *MemoryStore) Unwish(_ context.Context, userID, productID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.wishlists[userID][productID] {
		return false, nil
	}
	delete(s.wishlists[userID], productID)
	return true, nil
}
