package mongodb

import (
	"context"
	"time"

	"trendaryo/apperr"
	"trendaryo/models"
	"trendaryo/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Products struct {
	coll *mongo.Collection
}

func (s *Products) FindByID(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, wrap(err, "product %s", id)
	}
	return &p, nil
}

func (s *Products) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var p models.Product
	if err := s.coll.FindOne(ctx, bson.M{"slug": slug}).Decode(&p); err != nil {
		return nil, wrap(err, "product %s", slug)
	}
	return &p, nil
}

func decimalRange(r repository.DecimalRange) bson.M {
	m := bson.M{}
	if r.Gt != nil {
		m["$gt"] = *r.Gt
	}
	if r.Gte != nil {
		m["$gte"] = *r.Gte
	}
	if r.Lt != nil {
		m["$lt"] = *r.Lt
	}
	if r.Lte != nil {
		m["$lte"] = *r.Lte
	}
	return m
}

func intRange(r repository.IntRange) bson.M {
	m := bson.M{}
	if r.Gt != nil {
		m["$gt"] = *r.Gt
	}
	if r.Gte != nil {
		m["$gte"] = *r.Gte
	}
	if r.Lt != nil {
		m["$lt"] = *r.Lt
	}
	if r.Lte != nil {
		m["$lte"] = *r.Lte
	}
	return m
}

// productFilter translates the typed query into a Mongo filter. Only the
// fields of ProductQuery ever reach the database.
func productFilter(q repository.ProductQuery) bson.M {
	filter := bson.M{}
	if q.Category != "" {
		filter["category"] = q.Category
	}
	if q.SubCategory != "" {
		filter["subCategory"] = q.SubCategory
	}
	if q.Brand != "" {
		filter["brand"] = q.Brand
	}
	if len(q.Statuses) > 0 {
		filter["status"] = bson.M{"$in": q.Statuses}
	}
	if len(q.Trends) > 0 {
		filter["trendStatus"] = bson.M{"$in": q.Trends}
	}
	if len(q.Tags) > 0 {
		filter["tags"] = bson.M{"$in": q.Tags}
	}
	if !q.Price.Empty() {
		filter["price"] = decimalRange(q.Price)
	}
	if !q.Stock.Empty() {
		filter["stock"] = intRange(q.Stock)
	}
	if q.MinRating != nil {
		filter["ratings.average"] = bson.M{"$gte": *q.MinRating}
	}
	if q.ExcludeID != "" {
		filter["_id"] = bson.M{"$ne": q.ExcludeID}
	}
	var exprs bson.A
	if q.OnSale {
		exprs = append(exprs, bson.M{"$gt": bson.A{"$comparePrice", "$price"}})
		filter["comparePrice"] = bson.M{"$exists": true}
	}
	if q.LowStock {
		exprs = append(exprs, bson.M{"$lte": bson.A{"$stock", "$lowStockThreshold"}})
	}
	switch len(exprs) {
	case 0:
	case 1:
		filter["$expr"] = exprs[0]
	default:
		filter["$expr"] = bson.M{"$and": exprs}
	}
	if q.Search != "" {
		filter["$or"] = bson.A{
			bson.M{"name": quoteSearch(q.Search)},
			bson.M{"description": quoteSearch(q.Search)},
			bson.M{"tags": quoteSearch(q.Search)},
		}
	}
	return filter
}

func (s *Products) Find(ctx context.Context, q repository.ProductQuery) ([]models.Product, int64, error) {
	return findPage[models.Product](ctx, s.coll, productFilter(q), findOptions(q.Sort, "createdAt", q.Page))
}

func (s *Products) Insert(ctx context.Context, p *models.Product) error {
	if _, err := s.coll.InsertOne(ctx, p); err != nil {
		return wrap(err, "product %s", p.Slug)
	}
	return nil
}

func (s *Products) Save(ctx context.Context, p *models.Product) error {
	set := bson.M{
		"name":              p.Name,
		"slug":              p.Slug,
		"description":       p.Description,
		"shortDescription":  p.ShortDescription,
		"price":             p.Price,
		"comparePrice":      p.ComparePrice,
		"costPrice":         p.CostPrice,
		"sku":               p.SKU,
		"barcode":           p.Barcode,
		"category":          p.Category,
		"subCategory":       p.SubCategory,
		"brand":             p.Brand,
		"tags":              p.Tags,
		"trendStatus":       p.TrendStatus,
		"images":            p.Images,
		"thumbnail":         p.Thumbnail,
		"lowStockThreshold": p.LowStockThreshold,
		"weight":            p.Weight,
		"dimensions":        p.Dimensions,
		"specifications":    p.Specifications,
		"features":          p.Features,
		"seo":               p.SEO,
		"publishedAt":       p.PublishedAt,
		"updatedAt":         p.UpdatedAt,
	}
	update := bson.A{bson.M{"$set": set}}
	switch p.Status {
	case models.ProductDraft, models.ProductArchived:
		set["status"] = p.Status
	default:
		// sellable products keep the status implied by their stock
		update = append(update, bson.M{"$set": bson.M{"status": bson.M{
			"$cond": bson.A{bson.M{"$eq": bson.A{"$stock", 0}}, models.ProductOutOfStock, models.ProductActive},
		}}})
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": p.ID}, update)
	return matched(res, err, "product %s", p.ID)
}

func (s *Products) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return wrap(err, "product %s", id)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("product %s not found", id)
	}
	return nil
}

// AdjustStock runs the clamp and the status derivation as one pipeline
// update, so concurrent callers serialize on the document.
func (s *Products) AdjustStock(ctx context.Context, id string, delta int) (*models.Product, error) {
	pipeline := bson.A{
		bson.M{"$set": bson.M{
			"stock": bson.M{"$max": bson.A{0, bson.M{"$add": bson.A{"$stock", delta}}}},
		}},
		bson.M{"$set": bson.M{
			"status":    bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$stock", 0}}, models.ProductOutOfStock, models.ProductActive}},
			"updatedAt": "$$NOW",
		}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p models.Product
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, pipeline, opts).Decode(&p); err != nil {
		return nil, wrap(err, "product %s", id)
	}
	return &p, nil
}

func (s *Products) SetRatings(ctx context.Context, id string, expected int64, r models.RatingSummary) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "ratingsVersion": expected},
		bson.M{
			"$set": bson.M{"ratings": r},
			"$inc": bson.M{"ratingsVersion": 1},
		},
	)
	if err != nil {
		return wrap(err, "product %s", id)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if _, err := s.FindByID(ctx, id); err != nil {
		return err
	}
	return apperr.Conflict("ratings of product %s changed concurrently", id)
}

func (s *Products) Increment(ctx context.Context, id string, c repository.Counters) error {
	inc := bson.M{}
	if c.Views != 0 {
		inc["viewCount"] = c.Views
	}
	if c.Purchases != 0 {
		inc["purchaseCount"] = c.Purchases
	}
	if c.Wishlists != 0 {
		inc["wishlistCount"] = c.Wishlists
	}
	if len(inc) == 0 {
		return nil
	}
	filter := bson.M{"_id": id}
	if c.Wishlists < 0 {
		filter["wishlistCount"] = bson.M{"$gte": -c.Wishlists}
	}
	res, err := s.coll.UpdateOne(ctx, filter, bson.M{"$inc": inc, "$set": bson.M{"updatedAt": time.Now()}})
	if err != nil {
		return wrap(err, "product %s", id)
	}
	if res.MatchedCount == 0 && c.Wishlists >= 0 {
		return apperr.NotFound("product %s not found", id)
	}
	return nil
}
