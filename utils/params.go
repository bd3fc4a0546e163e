package utils

import (
	"net/http"
	"strconv"
	"strings"

	"trendaryo/apperr"
	"trendaryo/repository"
)

// ParsePage reads page and limit, applying the defaults and the limit cap.
func ParsePage(r *http.Request) (repository.Page, error) {
	q := r.URL.Query()
	page := repository.Page{Page: 1, Limit: repository.DefaultLimit}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return page, apperr.Validation("page must be a positive integer")
		}
		page.Page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return page, apperr.Validation("limit must be a positive integer")
		}
		page.Limit = min(n, repository.MaxLimit)
	}
	return page, nil
}

type PageRef struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type Pagination struct {
	Next *PageRef `json:"next,omitempty"`
	Prev *PageRef `json:"prev,omitempty"`
}

// Paginate builds the next/prev links of a page out of total results.
func Paginate(p repository.Page, total int64) Pagination {
	var out Pagination
	if int64(p.Page*p.Limit) < total {
		out.Next = &PageRef{Page: p.Page + 1, Limit: p.Limit}
	}
	if p.Page > 1 {
		out.Prev = &PageRef{Page: p.Page - 1, Limit: p.Limit}
	}
	return out
}

// RespondWithPage writes a list response with count, total and pagination.
func RespondWithPage(w http.ResponseWriter, data any, count int, total int64, p repository.Page) {
	RespondWithJSON(w, http.StatusOK, M{
		"success":    true,
		"count":      count,
		"total":      total,
		"pagination": Paginate(p, total),
		"data":       data,
	})
}

// SplitTags takes a comma-separated string and returns a cleaned []string
func SplitTags(input string) []string {
	if input == "" {
		return []string{}
	}
	var tags []string
	seen := make(map[string]bool)
	for _, p := range strings.Split(input, ",") {
		tag := strings.ToLower(strings.TrimSpace(p))
		if tag == "" || seen[tag] {
			continue
		}
		tags = append(tags, tag)
		seen[tag] = true
	}
	return tags
}
