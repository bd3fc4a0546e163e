package products

import (
	"net/url"
	"testing"

	"trendaryo/apperr"
	"trendaryo/models"
	"trendaryo/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQueryDefaults(t *testing.T) {
	q, err := ParseQuery(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, repository.Page{Page: 1, Limit: repository.DefaultLimit}, q.Page)
	assert.Equal(t, []repository.Sort{{Field: "createdAt", Desc: true}}, q.Sort)
}

func TestParseQuery(t *testing.T) {
	values, err := url.ParseQuery("category=shoes&brand=Acme&tags=Summer,%20sale&price[gte]=10&price[lt]=99.5" +
		"&stock[gt]=0&rating[gte]=4&status=active,out_of_stock&trendStatus=hot&search=air&sort=-price,name&page=2&limit=500")
	require.NoError(t, err)

	q, err := ParseQuery(values)
	require.NoError(t, err)
	assert.Equal(t, "shoes", q.Category)
	assert.Equal(t, "Acme", q.Brand)
	assert.Equal(t, []string{"summer", "sale"}, q.Tags)
	assert.Equal(t, "10", q.Price.Gte.String())
	assert.Equal(t, "99.5", q.Price.Lt.String())
	assert.Equal(t, 0, *q.Stock.Gt)
	assert.InDelta(t, 4.0, *q.MinRating, 1e-9)
	assert.Equal(t, []models.ProductStatus{models.ProductActive, models.ProductOutOfStock}, q.Statuses)
	assert.Equal(t, []models.TrendStatus{models.TrendHot}, q.Trends)
	assert.Equal(t, "air", q.Search)
	assert.Equal(t, []repository.Sort{{Field: "price", Desc: true}, {Field: "name"}}, q.Sort)
	assert.Equal(t, repository.Page{Page: 2, Limit: repository.MaxLimit}, q.Page)
}

func TestParseQueryRejects(t *testing.T) {
	for _, raw := range []string{
		"select=name",
		"price[ne]=3",
		"password=x",
		"category[$ne]=x",
		"price[gte]=abc",
		"stock[lt]=1.5",
		"rating[lt]=3",
		"rating[gte]=7",
		"sort=password",
		"sort=,",
		"status=deleted",
		"trendStatus=cold",
		"page=0",
		"limit=-1",
	} {
		t.Run(raw, func(t *testing.T) {
			values, err := url.ParseQuery(raw)
			require.NoError(t, err)
			_, err = ParseQuery(values)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestSlugify(t *testing.T) {
	for in, want := range map[string]string{
		"Air Max 90":          "air-max-90",
		"  Summer -- Sale!! ": "summer-sale",
		"Café Crème":          "caf-cr-me",
		"***":                 "",
	} {
		assert.Equal(t, want, Slugify(in), in)
	}
}
