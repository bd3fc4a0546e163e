// Package search keeps the product-name autocomplete index in a Redis
// sorted set queried by lexicographic range.
package search

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"trendaryo/apperr"
	"trendaryo/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSuggestions = 8
	maxSuggestions     = 20
)

// Suggestion is one autocomplete hit.
type Suggestion struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Index interface {
	Put(ctx context.Context, id, name string) error
	Remove(ctx context.Context, id string) error
	Suggest(ctx context.Context, prefix string, limit int) ([]Suggestion, error)
}

// sep separates the member fields. NUL is stripped from names, so it never
// occurs inside one.
const sep = "\x00"

func clean(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, sep, ""))
}

// member encodes the lowercased name first so lexicographic ranges match on
// prefixes; id and display name follow.
func member(id, name string) string {
	name = clean(name)
	return strings.ToLower(name) + sep + id + sep + name
}

func decode(m string) (Suggestion, bool) {
	parts := strings.SplitN(m, sep, 3)
	if len(parts) != 3 {
		return Suggestion{}, false
	}
	return Suggestion{ID: parts[1], Name: parts[2]}, true
}

type RedisIndex struct {
	Conn *redis.Client
}

func zsetKey() string  { return "autocomplete:products" }
func namesKey() string { return "autocomplete:products:members" }

func (x *RedisIndex) Put(ctx context.Context, id, name string) error {
	if err := x.Remove(ctx, id); err != nil {
		return err
	}
	m := member(id, name)
	pipe := x.Conn.TxPipeline()
	pipe.ZAdd(ctx, zsetKey(), redis.Z{Score: 0, Member: m})
	pipe.HSet(ctx, namesKey(), id, m)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperr.Persistence(err, "index product %s", id)
	}
	return nil
}

func (x *RedisIndex) Remove(ctx context.Context, id string) error {
	prev, err := x.Conn.HGet(ctx, namesKey(), id).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return apperr.Persistence(err, "lookup indexed product %s", id)
	}
	pipe := x.Conn.TxPipeline()
	pipe.ZRem(ctx, zsetKey(), prev)
	pipe.HDel(ctx, namesKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperr.Persistence(err, "unindex product %s", id)
	}
	return nil
}

func (x *RedisIndex) Suggest(ctx context.Context, prefix string, limit int) ([]Suggestion, error) {
	prefix = strings.ToLower(clean(prefix))
	results, err := x.Conn.ZRangeByLex(ctx, zsetKey(), &redis.ZRangeBy{
		Min:   "[" + prefix,
		Max:   "[" + prefix + "\xff",
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, apperr.Persistence(err, "search autocomplete")
	}
	out := make([]Suggestion, 0, len(results))
	for _, m := range results {
		if s, ok := decode(m); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// MemoryIndex is a process-local Index.
type MemoryIndex struct {
	mu      sync.RWMutex
	members map[string]string
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{members: make(map[string]string)}
}

func (x *MemoryIndex) Put(_ context.Context, id, name string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.members[id] = member(id, name)
	return nil
}

func (x *MemoryIndex) Remove(_ context.Context, id string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.members, id)
	return nil
}

func (x *MemoryIndex) Suggest(_ context.Context, prefix string, limit int) ([]Suggestion, error) {
	prefix = strings.ToLower(clean(prefix))
	x.mu.RLock()
	var hits []string
	for _, m := range x.members {
		if strings.HasPrefix(m, prefix) {
			hits = append(hits, m)
		}
	}
	x.mu.RUnlock()

	sort.Strings(hits)
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]Suggestion, 0, len(hits))
	for _, m := range hits {
		if s, ok := decode(m); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

type Handlers struct {
	Index Index
}

// GET /api/v1/catalog/suggest?q=
func (h *Handlers) Suggest(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		utils.RespondWithData(w, http.StatusOK, []Suggestion{})
		return
	}
	limit := DefaultSuggestions
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = min(n, maxSuggestions)
	}
	hits, err := h.Index.Suggest(ctx, q, limit)
	if err != nil {
		log.Warn().Err(err).Str("q", q).Msg("autocomplete lookup")
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, hits)
}
