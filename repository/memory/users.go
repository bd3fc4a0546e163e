package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"trendaryo/apperr"
	"trendaryo/models"
	"trendaryo/repository"

	"github.com/shopspring/decimal"
)

type Users struct {
	mu    sync.RWMutex
	items map[string]*models.User
}

func NewUsers() *Users {
	return &Users{items: make(map[string]*models.User)}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Addresses = slices.Clone(u.Addresses)
	c.DateOfBirth = clonePtr(u.DateOfBirth)
	c.RefreshExpiry = clonePtr(u.RefreshExpiry)
	c.Stats.LastLoginDate = clonePtr(u.Stats.LastLoginDate)
	c.Stats.LastOrderDate = clonePtr(u.Stats.LastOrderDate)
	return &c
}

func (s *Users) get(id string) (*models.User, error) {
	u, ok := s.items[id]
	if !ok {
		return nil, apperr.NotFound("user %s not found", id)
	}
	return u, nil
}

func (s *Users) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return cloneUser(u), nil
}

func (s *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(email)
	for _, u := range s.items {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, apperr.NotFound("user %s not found", email)
}

func (s *Users) Find(_ context.Context, q repository.UserQuery) ([]models.User, int64, error) {
	s.mu.RLock()
	var matched []*models.User
	for _, u := range s.items {
		if q.Role != "" && u.Role != q.Role {
			continue
		}
		matched = append(matched, cloneUser(u))
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if c := matched[i].CreatedAt.Compare(matched[j].CreatedAt); c != 0 {
			return c > 0
		}
		return matched[i].ID < matched[j].ID
	})
	total := int64(len(matched))
	page := paginate(matched, q.Page)
	out := make([]models.User, len(page))
	for i, u := range page {
		out[i] = *u
	}
	return out, total, nil
}

func (s *Users) Insert(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.items {
		if other.Email == u.Email {
			return apperr.Conflict("email %s is already registered", u.Email)
		}
	}
	s.items[u.ID] = cloneUser(u)
	return nil
}

func (s *Users) Save(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.get(u.ID)
	if err != nil {
		return err
	}
	for _, other := range s.items {
		if other.ID != u.ID && other.Email == u.Email {
			return apperr.Conflict("email %s is already registered", u.Email)
		}
	}
	next := cloneUser(u)
	next.Stats = cur.Stats
	next.RefreshToken = cur.RefreshToken
	next.RefreshExpiry = cur.RefreshExpiry
	next.CreatedAt = cur.CreatedAt
	s.items[u.ID] = next
	return nil
}

func (s *Users) RecordLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.get(id)
	if err != nil {
		return err
	}
	u.Stats.LoginCount++
	u.Stats.LastLoginDate = &at
	return nil
}

func (s *Users) RecordOrder(_ context.Context, id string, total decimal.Decimal, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.get(id)
	if err != nil {
		return err
	}
	u.Stats.OrdersCount++
	u.Stats.TotalSpent = u.Stats.TotalSpent.Add(total)
	u.Stats.LastOrderDate = &at
	return nil
}

func (s *Users) SetRefreshToken(_ context.Context, id, hash string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.get(id)
	if err != nil {
		return err
	}
	u.RefreshToken = hash
	if hash == "" {
		u.RefreshExpiry = nil
	} else {
		u.RefreshExpiry = &expiry
	}
	return nil
}

func (s *Users) FindByRefreshToken(_ context.Context, hash string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if hash != "" {
		for _, u := range s.items {
			if u.RefreshToken == hash {
				return cloneUser(u), nil
			}
		}
	}
	return nil, apperr.NotFound("refresh token not found")
}
