package memory

import (
	"context"
	"strings"
	"sync"

	"trendaryo/apperr"
	"trendaryo/models"
	"trendaryo/repository"
)

type Coupons struct {
	mu    sync.RWMutex
	items map[string]models.Coupon
}

func NewCoupons() *Coupons {
	return &Coupons{items: make(map[string]models.Coupon)}
}

func (s *Coupons) FindByCode(_ context.Context, code string) (*models.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.items[strings.ToLower(code)]
	if !ok {
		return nil, apperr.NotFound("coupon %s not found", code)
	}
	return &c, nil
}

func (s *Coupons) Insert(_ context.Context, c *models.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := strings.ToLower(c.Code)
	if _, ok := s.items[code]; ok {
		return apperr.Conflict("coupon %s already exists", code)
	}
	cp := *c
	cp.Code = code
	s.items[code] = cp
	return nil
}

type Sequences struct {
	mu     sync.Mutex
	values map[string]int64
}

func NewSequences() *Sequences {
	return &Sequences{values: make(map[string]int64)}
}

func (s *Sequences) Next(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key]++
	return s.values[key], nil
}

type Idempotency struct {
	mu    sync.Mutex
	items map[string]repository.IdempotencyRecord
}

func NewIdempotency() *Idempotency {
	return &Idempotency{items: make(map[string]repository.IdempotencyRecord)}
}

func (s *Idempotency) Get(_ context.Context, key string) (*repository.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[key]
	if !ok {
		return nil, apperr.NotFound("idempotency key %s not found", key)
	}
	rec.Body = append([]byte(nil), rec.Body...)
	return &rec, nil
}

func (s *Idempotency) Put(_ context.Context, rec *repository.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[rec.Key]; ok {
		return apperr.Conflict("idempotency key %s already stored", rec.Key)
	}
	cp := *rec
	cp.Body = append([]byte(nil), rec.Body...)
	s.items[rec.Key] = cp
	return nil
}

// Store bundles one of each in-memory repository.
type Store struct {
	Products    *Products
	Reviews     *Reviews
	Orders      *Orders
	Users       *Users
	Coupons     *Coupons
	Sequences   *Sequences
	Idempotency *Idempotency
}

func NewStore() *Store {
	return &Store{
		Products:    NewProducts(),
		Reviews:     NewReviews(),
		Orders:      NewOrders(),
		Users:       NewUsers(),
		Coupons:     NewCoupons(),
		Sequences:   NewSequences(),
		Idempotency: NewIdempotency(),
	}
}
