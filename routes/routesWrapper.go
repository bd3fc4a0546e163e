// Package routes mounts every storefront handler on the router.
package routes

import (
	"trendaryo/admin"
	"trendaryo/auth"
	"trendaryo/cart"
	"trendaryo/live"
	"trendaryo/middleware"
	"trendaryo/orders"
	"trendaryo/pay"
	"trendaryo/products"
	"trendaryo/ratelim"
	"trendaryo/receipts"
	"trendaryo/reviews"
	"trendaryo/search"

	"github.com/julienschmidt/httprouter"
)

// Deps carries the handler sets the routes are bound to.
type Deps struct {
	Auth        *middleware.Auth
	AuthLimiter *ratelim.RateLimiter
	Users       *auth.Handlers
	Products    *products.Handlers
	Reviews     *reviews.Handlers
	Cart        *cart.Handlers
	Orders      *orders.Handlers
	Admin       *admin.Handlers
	Pay         *pay.Handlers
	Idempotency *pay.Idempotency
	Receipts    *receipts.Handlers
	Live        *live.Handlers
	Search      *search.Handlers
	UploadDir   string
}

func RoutesWrapper(router *httprouter.Router, d *Deps) {
	AddStaticRoutes(router, d.UploadDir)
	AddAuthRoutes(router, d)
	AddProductRoutes(router, d)
	AddCatalogRoutes(router, d)
	AddReviewsRoutes(router, d)
	AddCartRoutes(router, d)
	AddOrderRoutes(router, d)
	AddPayRoutes(router, d)
	AddReceiptRoutes(router, d)
	AddAdminRoutes(router, d)
}
