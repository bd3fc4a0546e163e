package products

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"trendaryo/apperr"
	"trendaryo/models"
	"trendaryo/repository"

	"github.com/shopspring/decimal"
)

var sortable = map[string]bool{
	"name":            true,
	"price":           true,
	"createdAt":       true,
	"ratings.average": true,
	"purchaseCount":   true,
	"viewCount":       true,
}

var equality = map[string]bool{
	"category":    true,
	"subCategory": true,
	"brand":       true,
	"status":      true,
	"trendStatus": true,
	"tags":        true,
	"search":      true,
	"sort":        true,
	"page":        true,
	"limit":       true,
}

// rangeKey matches `price[gte]` style keys.
var rangeKey = regexp.MustCompile(`^(price|stock|rating)\[(gt|gte|lt|lte)\]$`)

// ParseQuery turns listing query parameters into a typed product filter.
// Keys outside the allow-list are rejected.
func ParseQuery(values url.Values) (repository.ProductQuery, error) {
	q := repository.ProductQuery{
		Page: repository.Page{Page: 1, Limit: repository.DefaultLimit},
		Sort: []repository.Sort{{Field: "createdAt", Desc: true}},
	}
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		v := strings.TrimSpace(vals[0])
		if m := rangeKey.FindStringSubmatch(key); m != nil {
			if err := parseRange(&q, m[1], m[2], v); err != nil {
				return q, err
			}
			continue
		}
		if !equality[key] {
			return q, apperr.Validation("unknown filter %q", key)
		}
		if err := parseField(&q, key, v); err != nil {
			return q, err
		}
	}
	return q, nil
}

func parseField(q *repository.ProductQuery, key, v string) error {
	switch key {
	case "category":
		q.Category = v
	case "subCategory":
		q.SubCategory = v
	case "brand":
		q.Brand = v
	case "search":
		q.Search = v
	case "tags":
		for _, t := range strings.Split(v, ",") {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				q.Tags = append(q.Tags, t)
			}
		}
	case "status":
		for _, s := range strings.Split(v, ",") {
			st := models.ProductStatus(strings.TrimSpace(s))
			if !st.Valid() {
				return apperr.Validation("invalid status %q", s)
			}
			q.Statuses = append(q.Statuses, st)
		}
	case "trendStatus":
		for _, s := range strings.Split(v, ",") {
			ts := models.TrendStatus(strings.TrimSpace(s))
			if ts == models.TrendNone || !ts.Valid() {
				return apperr.Validation("invalid trendStatus %q", s)
			}
			q.Trends = append(q.Trends, ts)
		}
	case "sort":
		sorts, err := parseSort(v)
		if err != nil {
			return err
		}
		q.Sort = sorts
	case "page":
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return apperr.Validation("page must be a positive integer")
		}
		q.Page.Page = n
	case "limit":
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return apperr.Validation("limit must be a positive integer")
		}
		q.Page.Limit = min(n, repository.MaxLimit)
	}
	return nil
}

func parseSort(v string) ([]repository.Sort, error) {
	var out []repository.Sort
	for _, f := range strings.Split(v, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		s := repository.Sort{Field: strings.TrimPrefix(f, "-"), Desc: strings.HasPrefix(f, "-")}
		if !sortable[s.Field] {
			return nil, apperr.Validation("cannot sort by %q", s.Field)
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, apperr.Validation("sort is empty")
	}
	return out, nil
}

func parseRange(q *repository.ProductQuery, field, op, v string) error {
	switch field {
	case "price":
		d, err := decimal.NewFromString(v)
		if err != nil {
			return apperr.Validation("price[%s] must be a number", op)
		}
		switch op {
		case "gt":
			q.Price.Gt = &d
		case "gte":
			q.Price.Gte = &d
		case "lt":
			q.Price.Lt = &d
		case "lte":
			q.Price.Lte = &d
		}
	case "stock":
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperr.Validation("stock[%s] must be an integer", op)
		}
		switch op {
		case "gt":
			q.Stock.Gt = &n
		case "gte":
			q.Stock.Gte = &n
		case "lt":
			q.Stock.Lt = &n
		case "lte":
			q.Stock.Lte = &n
		}
	case "rating":
		if op != "gte" {
			return apperr.Validation("rating only supports [gte]")
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > models.MaxRating {
			return apperr.Validation("rating[gte] must be between 0 and 5")
		}
		q.MinRating = &f
	}
	return nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases name and collapses every run of other characters into
// a single dash.
func Slugify(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
}
