package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"trendaryo/admin"
	"trendaryo/apperr"
	"trendaryo/auth"
	"trendaryo/config"
	"trendaryo/db"
	"trendaryo/models"
	"trendaryo/products"
	"trendaryo/rdx"
	"trendaryo/repository"
	"trendaryo/repository/mongodb"
	"trendaryo/search"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	seedFile   string
	seedDelete bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Import or delete sample storefront data",
	Long: `Load users, coupons and products from a YAML file into MongoDB.

Records that already exist are skipped, so the command can be re-run.
With --delete every storefront collection is dropped instead.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "seed/data.yaml", "YAML file to import")
	seedCmd.Flags().BoolVarP(&seedDelete, "delete", "d", false, "drop all storefront collections")
	rootCmd.AddCommand(seedCmd)
}

// SeedData is the layout of a seed file.
type SeedData struct {
	Users    []SeedUser    `yaml:"users"`
	Coupons  []SeedCoupon  `yaml:"coupons"`
	Products []SeedProduct `yaml:"products"`
}

type SeedUser struct {
	Name     string      `yaml:"name"`
	Email    string      `yaml:"email"`
	Password string      `yaml:"password"`
	Role     models.Role `yaml:"role"`
}

type SeedCoupon struct {
	Code     string          `yaml:"code"`
	Discount decimal.Decimal `yaml:"discount"`
	MinSpend decimal.Decimal `yaml:"minSpend"`
	ValidFor time.Duration   `yaml:"validFor"`
}

type SeedProduct struct {
	Name             string               `yaml:"name"`
	Description      string               `yaml:"description"`
	ShortDescription string               `yaml:"shortDescription"`
	Price            decimal.Decimal      `yaml:"price"`
	ComparePrice     *decimal.Decimal     `yaml:"comparePrice"`
	SKU              string               `yaml:"sku"`
	Category         string               `yaml:"category"`
	SubCategory      string               `yaml:"subCategory"`
	Brand            string               `yaml:"brand"`
	Tags             []string             `yaml:"tags"`
	Stock            int                  `yaml:"stock"`
	Status           models.ProductStatus `yaml:"status"`
	TrendStatus      models.TrendStatus   `yaml:"trendStatus"`
}

func (sp SeedProduct) input() products.Input {
	in := products.Input{
		Name:         &sp.Name,
		Description:  &sp.Description,
		Price:        &sp.Price,
		ComparePrice: sp.ComparePrice,
		Category:     &sp.Category,
		Brand:        &sp.Brand,
		Tags:         sp.Tags,
		Stock:        &sp.Stock,
	}
	if sp.ShortDescription != "" {
		in.ShortDescription = &sp.ShortDescription
	}
	if sp.SKU != "" {
		in.SKU = &sp.SKU
	}
	if sp.SubCategory != "" {
		in.SubCategory = &sp.SubCategory
	}
	if sp.Status != "" {
		in.Status = &sp.Status
	}
	if sp.TrendStatus != "" {
		in.TrendStatus = &sp.TrendStatus
	}
	return in
}

func ParseSeed(r io.Reader) (*SeedData, error) {
	var data SeedData
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse seed data: %w", err)
	}
	return &data, nil
}

// seedTargets are the services a seed import writes through, so seeded
// records pass the same validation as API writes.
type seedTargets struct {
	Users    *auth.Service
	Admin    *admin.Service
	Products *products.Service
}

type seedResult struct {
	Users, Coupons, Products, Skipped int
}

func importSeed(ctx context.Context, t seedTargets, data *SeedData) (seedResult, error) {
	var res seedResult
	var ownerID string

	for _, su := range data.Users {
		sess, err := t.Users.Register(ctx, auth.RegisterRequest{Name: su.Name, Email: su.Email, Password: su.Password})
		if errors.Is(err, apperr.ErrConflict) {
			log.Warn().Str("email", su.Email).Msg("user exists; skipping")
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("user %s: %w", su.Email, err)
		}
		u := sess.User
		if su.Role != "" && su.Role != u.Role {
			if u, err = t.Admin.UpdateUser(ctx, "", u.ID, admin.UserUpdate{Role: &su.Role}); err != nil {
				return res, fmt.Errorf("user %s: %w", su.Email, err)
			}
		}
		if u.Role == models.RoleAdmin && ownerID == "" {
			ownerID = u.ID
		}
		res.Users++
	}

	now := time.Now()
	for _, sc := range data.Coupons {
		validFor := sc.ValidFor
		if validFor <= 0 {
			validFor = 30 * 24 * time.Hour
		}
		_, err := t.Admin.CreateCoupon(ctx, admin.CouponRequest{
			Code:      sc.Code,
			Discount:  sc.Discount,
			MinSpend:  sc.MinSpend,
			ExpiresAt: now.Add(validFor),
		})
		if errors.Is(err, apperr.ErrConflict) {
			log.Warn().Str("code", sc.Code).Msg("coupon exists; skipping")
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("coupon %s: %w", sc.Code, err)
		}
		res.Coupons++
	}

	for _, sp := range data.Products {
		_, err := t.Products.Create(ctx, ownerID, sp.input())
		if errors.Is(err, apperr.ErrConflict) {
			log.Warn().Str("product", sp.Name).Msg("product exists; skipping")
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("product %s: %w", sp.Name, err)
		}
		res.Products++
	}
	return res, nil
}

// reindex rebuilds the autocomplete index from the sellable catalog.
func reindex(ctx context.Context, list repository.ProductRepository, index search.Index) (int, error) {
	const batch = 200
	q := repository.ProductQuery{
		Statuses: []models.ProductStatus{models.ProductActive, models.ProductOutOfStock},
		Page:     repository.Page{Page: 1, Limit: batch},
	}
	n := 0
	for {
		page, _, err := list.Find(ctx, q)
		if err != nil {
			return n, err
		}
		for _, p := range page {
			if err := index.Put(ctx, p.ID, p.Name); err != nil {
				return n, err
			}
			n++
		}
		if len(page) < batch {
			return n, nil
		}
		q.Page.Page++
	}
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	ctx := cmd.Context()

	database, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return err
	}
	defer db.Disconnect(context.Background())

	if seedDelete {
		for _, coll := range db.Collections() {
			if err := database.Collection(coll).Drop(ctx); err != nil {
				return fmt.Errorf("drop %s: %w", coll, err)
			}
		}
		log.Info().Msg("storefront data deleted")
		return nil
	}

	f, err := os.Open(seedFile)
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := ParseSeed(f)
	if err != nil {
		return err
	}

	if err := mongodb.EnsureIndexes(ctx, database); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	conn, err := rdx.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer conn.Close()

	b := redisBackends(mongodb.NewStore(database), conn)
	app := newApp(cfg, b)
	res, err := importSeed(ctx, seedTargets{Users: app.Users, Admin: app.Admin, Products: app.Products}, data)
	if err != nil {
		return err
	}
	indexed, err := reindex(ctx, b.Products, b.Index)
	if err != nil {
		return fmt.Errorf("failed to rebuild search index: %w", err)
	}
	log.Info().
		Int("users", res.Users).
		Int("coupons", res.Coupons).
		Int("products", res.Products).
		Int("skipped", res.Skipped).
		Int("indexed", indexed).
		Msg("seed data imported")
	return nil
}
