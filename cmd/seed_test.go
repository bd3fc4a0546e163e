package cmd

import (
	"context"
	"os"
	"strings"
	"testing"

	"trendaryo/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeedRejectsUnknownFields(t *testing.T) {
	_, err := ParseSeed(strings.NewReader("products:\n  - name: x\n    colour: red\n"))
	require.Error(t, err)
}

func TestImportBundledSeed(t *testing.T) {
	f, err := os.Open("../seed/data.yaml")
	require.NoError(t, err)
	defer f.Close()
	data, err := ParseSeed(f)
	require.NoError(t, err)

	app := newTestApp(t)
	ctx := context.Background()
	targets := seedTargets{Users: app.Users, Admin: app.Admin, Products: app.Products}

	res, err := importSeed(ctx, targets, data)
	require.NoError(t, err)
	assert.Equal(t, seedResult{Users: 3, Coupons: 2, Products: 5}, res)

	u, err := app.Backends.Users.FindByEmail(ctx, "admin@trendaryo.test")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)

	c, err := app.Backends.Coupons.FindByCode(ctx, "welcome10")
	require.NoError(t, err)
	assert.True(t, c.Active)
	assert.Equal(t, "10", c.Discount.String())

	again, err := importSeed(ctx, targets, data)
	require.NoError(t, err)
	assert.Equal(t, seedResult{Skipped: 10}, again)

	hits, err := app.Backends.Index.Suggest(ctx, "merino", 10)
	require.NoError(t, err)
	assert.Empty(t, hits, "draft products stay out of autocomplete")

	n, err := reindex(ctx, app.Backends.Products, app.Backends.Index)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	hits, err = app.Backends.Index.Suggest(ctx, "canvas", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Canvas Weekender Bag", hits[0].Name)
}
