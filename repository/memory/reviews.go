package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"trendaryo/apperr"
	"trendaryo/models"
	"trendaryo/repository"
)

type Reviews struct {
	mu    sync.RWMutex
	items map[string]*models.Review
}

func NewReviews() *Reviews {
	return &Reviews{items: make(map[string]*models.Review)}
}

func cloneReview(r *models.Review) *models.Review {
	c := *r
	c.Images = slices.Clone(r.Images)
	c.Helpful.Users = slices.Clone(r.Helpful.Users)
	c.Reported.Reasons = slices.Clone(r.Reported.Reasons)
	return &c
}

func (s *Reviews) FindByID(_ context.Context, id string) (*models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.items[id]
	if !ok {
		return nil, apperr.NotFound("review %s not found", id)
	}
	return cloneReview(r), nil
}

func compareReviews(a, b *models.Review, field string) int {
	switch field {
	case "rating":
		return a.Rating - b.Rating
	case "helpful.count":
		return a.Helpful.Count - b.Helpful.Count
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func (s *Reviews) Find(_ context.Context, q repository.ReviewQuery) ([]models.Review, int64, error) {
	s.mu.RLock()
	var matched []*models.Review
	for _, r := range s.items {
		if q.ProductID != "" && r.ProductID != q.ProductID {
			continue
		}
		if q.UserID != "" && r.UserID != q.UserID {
			continue
		}
		if q.Status != "" && r.Status != q.Status {
			continue
		}
		matched = append(matched, cloneReview(r))
	}
	s.mu.RUnlock()

	order := q.Sort
	if len(order) == 0 {
		order = []repository.Sort{{Field: "createdAt", Desc: true}}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		for _, o := range order {
			c := compareReviews(matched[i], matched[j], o.Field)
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return matched[i].ID < matched[j].ID
	})

	total := int64(len(matched))
	page := paginate(matched, q.Page)
	out := make([]models.Review, len(page))
	for i, r := range page {
		out[i] = *r
	}
	return out, total, nil
}

func (s *Reviews) Insert(_ context.Context, r *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.items {
		if other.ProductID == r.ProductID && other.UserID == r.UserID {
			return apperr.Conflict("you have already reviewed this product")
		}
	}
	s.items[r.ID] = cloneReview(r)
	return nil
}

func (s *Reviews) Save(_ context.Context, r *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[r.ID]
	if !ok {
		return apperr.NotFound("review %s not found", r.ID)
	}
	next := cloneReview(r)
	next.Helpful = cur.Helpful
	next.Reported = cur.Reported
	s.items[r.ID] = next
	return nil
}

func (s *Reviews) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return apperr.NotFound("review %s not found", id)
	}
	delete(s.items, id)
	return nil
}

func (s *Reviews) MarkHelpful(_ context.Context, id, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[id]
	if !ok {
		return false, apperr.NotFound("review %s not found", id)
	}
	if slices.Contains(r.Helpful.Users, userID) {
		return false, nil
	}
	r.Helpful.Users = append(r.Helpful.Users, userID)
	r.Helpful.Count++
	return true, nil
}

func (s *Reviews) UnmarkHelpful(_ context.Context, id, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[id]
	if !ok {
		return false, apperr.NotFound("review %s not found", id)
	}
	i := slices.Index(r.Helpful.Users, userID)
	if i < 0 {
		return false, nil
	}
	r.Helpful.Users = slices.Delete(r.Helpful.Users, i, i+1)
	r.Helpful.Count--
	return true, nil
}

func (s *Reviews) Report(_ context.Context, id string, reason models.ReportReason) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[id]
	if !ok {
		return apperr.NotFound("review %s not found", id)
	}
	for _, prev := range r.Reported.Reasons {
		if prev.ReportedBy == reason.ReportedBy {
			return apperr.Conflict("you have already reported this review")
		}
	}
	r.Reported.Reasons = append(r.Reported.Reasons, reason)
	r.Reported.Count++
	return nil
}
