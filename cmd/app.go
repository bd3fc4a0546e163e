package cmd

import (
	"context"
	"errors"
	"net/http"

	"trendaryo/admin"
	"trendaryo/apperr"
	"trendaryo/auth"
	"trendaryo/cart"
	"trendaryo/config"
	"trendaryo/inventory"
	"trendaryo/live"
	"trendaryo/middleware"
	"trendaryo/mq"
	"trendaryo/orders"
	"trendaryo/pay"
	"trendaryo/products"
	"trendaryo/ratelim"
	"trendaryo/ratings"
	"trendaryo/rdx"
	"trendaryo/receipts"
	"trendaryo/repository"
	"trendaryo/repository/memory"
	"trendaryo/repository/mongodb"
	"trendaryo/reviews"
	"trendaryo/routes"
	"trendaryo/search"
	"trendaryo/stripe"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

// Login and registration get a tighter budget than the rest of the API.
const (
	authRPS   = 0.2
	authBurst = 10
)

type cacheLocker interface {
	rdx.Cache
	rdx.Locker
}

// backends are the stores and transports a server runs on.
type backends struct {
	Products    repository.ProductRepository
	Reviews     repository.ReviewRepository
	Orders      repository.OrderRepository
	Users       repository.UserRepository
	Coupons     repository.CouponRepository
	Sequences   repository.SequenceRepository
	Idempotency repository.IdempotencyRepository
	Cache       cacheLocker
	Carts       cart.Store
	Index       search.Index
	Events      mq.Emitter
	// Worker consumes Events. In memory mode it is also the emitter.
	Worker *mq.Worker
}

// memoryBackends keeps everything in process; nothing survives a restart.
func memoryBackends() *backends {
	st := memory.NewStore()
	w := mq.NewWorker(nil, "")
	return &backends{
		Products:    st.Products,
		Reviews:     st.Reviews,
		Orders:      st.Orders,
		Users:       st.Users,
		Coupons:     st.Coupons,
		Sequences:   st.Sequences,
		Idempotency: st.Idempotency,
		Cache:       rdx.NewMemoryCache(),
		Carts:       cart.NewMemoryStore(),
		Index:       search.NewMemoryIndex(),
		Events:      w,
		Worker:      w,
	}
}

func redisBackends(st *mongodb.Store, conn *redis.Client) *backends {
	return &backends{
		Products:    st.Products,
		Reviews:     st.Reviews,
		Orders:      st.Orders,
		Users:       st.Users,
		Coupons:     st.Coupons,
		Sequences:   st.Sequences,
		Idempotency: st.Idempotency,
		Cache:       &rdx.RedisCache{Conn: conn},
		Carts:       &cart.RedisStore{Conn: conn},
		Index:       &search.RedisIndex{Conn: conn},
		Events:      mq.NewRedisEmitter(conn, mq.DefaultChannel),
		Worker:      mq.NewWorker(conn, mq.DefaultChannel),
	}
}

// App is a fully wired storefront.
type App struct {
	Config      *config.Config
	Backends    *backends
	Auth        *middleware.Auth
	Hub         *live.Hub
	Limiter     *ratelim.RateLimiter
	AuthLimiter *ratelim.RateLimiter
	Products    *products.Service
	Users       *auth.Service
	Admin       *admin.Service
	Router      *httprouter.Router
	Handler     http.Handler
}

func newApp(cfg *config.Config, b *backends) *App {
	flat, freeOver, taxRate := cfg.Money()
	jwt := middleware.NewAuth(cfg.JWTSecret, cfg.JWTExpire)
	stock := inventory.NewService(b.Products, b.Events)

	productSvc := &products.Service{
		Products:  b.Products,
		Inventory: stock,
		Cache:     b.Cache,
		Images:    products.NewImageStore(cfg.UploadDir),
		Events:    b.Events,
	}
	orderSvc := &orders.Service{
		Orders:    b.Orders,
		Products:  b.Products,
		Users:     b.Users,
		Coupons:   b.Coupons,
		Inventory: stock,
		Numbers:   &orders.Numberer{Sequences: b.Sequences},
		Pricing:   orders.Pricing{FlatShipping: flat, FreeShippingThreshold: freeOver, TaxRate: taxRate},
		Currency:  cfg.Currency,
		Events:    b.Events,
	}
	reviewSvc := &reviews.Service{
		Reviews:     b.Reviews,
		Products:    b.Products,
		Orders:      b.Orders,
		Ratings:     ratings.NewAggregator(b.Products, b.Reviews),
		AutoApprove: cfg.ReviewAutoApprove,
		Events:      b.Events,
	}
	userSvc := &auth.Service{Users: b.Users, Auth: jwt, RefreshTTL: cfg.RefreshTokenTTL}
	adminSvc := &admin.Service{Users: b.Users, Orders: b.Orders, Coupons: b.Coupons, Inventory: stock}
	paySvc := &pay.Service{Orders: orderSvc, Gateway: stripe.NewStub(), Locks: b.Cache}

	a := &App{
		Config:      cfg,
		Backends:    b,
		Auth:        jwt,
		Hub:         live.NewHub(),
		Limiter:     ratelim.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		AuthLimiter: ratelim.NewRateLimiter(authRPS, authBurst),
		Products:    productSvc,
		Users:       userSvc,
		Admin:       adminSvc,
		Router:      httprouter.New(),
	}

	routes.RoutesWrapper(a.Router, &routes.Deps{
		Auth:        jwt,
		AuthLimiter: a.AuthLimiter,
		Users:       auth.NewHandlers(userSvc),
		Products:    products.NewHandlers(productSvc),
		Reviews:     reviews.NewHandlers(reviewSvc),
		Cart:        cart.NewHandlers(&cart.Service{Store: b.Carts, Products: b.Products, Orders: orderSvc}),
		Orders:      orders.NewHandlers(orderSvc),
		Admin:       admin.NewHandlers(adminSvc),
		Pay:         pay.NewHandlers(paySvc),
		Idempotency: &pay.Idempotency{Records: b.Idempotency},
		Receipts:    receipts.NewHandlers(orderSvc, receipts.NewSigner(cfg.ReceiptSecret)),
		Live:        live.NewHandlers(a.Hub, b.Products, cfg.Origins()),
		Search:      &search.Handlers{Index: b.Index},
		UploadDir:   cfg.UploadDir,
	})
	a.Router.GET("/health", health)
	a.Router.PanicHandler = panicHandler

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", pay.IdempotencyHeader},
		AllowCredentials: true,
	}).Handler(a.Router)
	a.Handler = middleware.Logging(middleware.SecurityHeaders(a.Limiter.Handler(corsHandler)))

	registerHandlers(b.Worker, b, a.Hub)
	return a
}

func health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"success":true,"status":"ok"}`))
}

func panicHandler(w http.ResponseWriter, r *http.Request, v any) {
	log.Error().Interface("panic", v).Str("path", r.URL.Path).Msg("handler panicked")
	http.Error(w, `{"success":false,"error":"internal server error"}`, http.StatusInternalServerError)
}

// registerHandlers keeps the product cache, the autocomplete index and the
// live subscribers in step with storefront events.
func registerHandlers(w *mq.Worker, b *backends, hub *live.Hub) {
	invalidate := func(ctx context.Context, e mq.Event) error {
		id := e.EntityID
		if e.EntityType != "product" {
			id = e.ItemID
		}
		if id != "" {
			b.Cache.Del(ctx, rdx.ProductKey(id))
		}
		return nil
	}
	w.On(invalidate, mq.ProductCreated, mq.ProductUpdated, mq.ProductDeleted, mq.StockChanged, mq.ReviewChanged)

	w.On(func(ctx context.Context, e mq.Event) error {
		p, err := b.Products.FindByID(ctx, e.EntityID)
		if errors.Is(err, apperr.ErrNotFound) {
			return b.Index.Remove(ctx, e.EntityID)
		}
		if err != nil {
			return err
		}
		if !products.Sellable(p) {
			return b.Index.Remove(ctx, p.ID)
		}
		return b.Index.Put(ctx, p.ID, p.Name)
	}, mq.ProductCreated, mq.ProductUpdated)

	w.On(func(ctx context.Context, e mq.Event) error {
		return b.Index.Remove(ctx, e.EntityID)
	}, mq.ProductDeleted)

	w.On(hub.HandleEvent, mq.StockChanged)

	w.On(func(_ context.Context, e mq.Event) error {
		log.Debug().Str("event", e.Name).Str("order", e.EntityID).Str("status", e.Status).Msg("order event")
		return nil
	}, mq.OrderPlaced, mq.OrderStatusChanged)
}
