package routes

import (
	"net/http"

	"trendaryo/models"

	"github.com/julienschmidt/httprouter"
)

func AddStaticRoutes(router *httprouter.Router, uploadDir string) {
	router.ServeFiles("/uploads/*filepath", http.Dir(uploadDir))
}

func AddAuthRoutes(router *httprouter.Router, d *Deps) {
	limit := d.AuthLimiter.Limit
	router.POST("/api/v1/auth/register", limit(d.Users.Register))
	router.POST("/api/v1/auth/login", limit(d.Users.Login))
	router.POST("/api/v1/auth/token/refresh", limit(d.Users.RefreshToken))
	router.GET("/api/v1/auth/me", d.Auth.Authenticate(d.Users.Me))
	router.PUT("/api/v1/auth/updatedetails", d.Auth.Authenticate(d.Users.UpdateDetails))
	router.PUT("/api/v1/auth/updatepassword", d.Auth.Authenticate(d.Users.UpdatePassword))
	router.POST("/api/v1/auth/logout", d.Auth.Authenticate(d.Users.Logout))
}

func AddProductRoutes(router *httprouter.Router, d *Deps) {
	h := d.Products
	router.GET("/api/v1/products", d.Auth.OptionalAuth(h.GetProducts))
	router.GET("/api/v1/products/:id", d.Auth.OptionalAuth(h.GetProduct))
	router.GET("/api/v1/products/:id/related", h.GetRelated)
	router.GET("/api/v1/products/:id/live", d.Live.ProductLive)

	router.POST("/api/v1/products", d.Auth.RequireRole(h.CreateProduct, models.RoleAdmin))
	router.PUT("/api/v1/products/:id", d.Auth.RequireRole(h.UpdateProduct, models.RoleAdmin))
	router.DELETE("/api/v1/products/:id", d.Auth.RequireRole(h.DeleteProduct, models.RoleAdmin))
	router.PATCH("/api/v1/products/:id/stock", d.Auth.RequireRole(h.AdjustStock, models.RoleAdmin))
	router.POST("/api/v1/products/:id/images", d.Auth.RequireRole(h.UploadImage, models.RoleAdmin))
}

func AddCatalogRoutes(router *httprouter.Router, d *Deps) {
	h := d.Products
	router.GET("/api/v1/catalog/slug/:slug", d.Auth.OptionalAuth(h.GetProductBySlug))
	router.GET("/api/v1/catalog/trending", h.GetTrending)
	router.GET("/api/v1/catalog/sale", h.GetOnSale)
	router.GET("/api/v1/catalog/category/:category", h.GetByCategory)
	router.GET("/api/v1/catalog/suggest", d.Search.Suggest)
}

func AddReviewsRoutes(router *httprouter.Router, d *Deps) {
	h := d.Reviews
	router.GET("/api/v1/products/:id/reviews", h.GetProductReviews)
	router.POST("/api/v1/products/:id/reviews", d.Auth.Authenticate(h.CreateReview))
	router.GET("/api/v1/reviews/:id", d.Auth.OptionalAuth(h.GetReview))
	router.PUT("/api/v1/reviews/:id", d.Auth.Authenticate(h.UpdateReview))
	router.DELETE("/api/v1/reviews/:id", d.Auth.Authenticate(h.DeleteReview))
	router.PUT("/api/v1/reviews/:id/status", d.Auth.RequireRole(h.ModerateReview, models.RoleAdmin, models.RoleModerator))
	router.POST("/api/v1/reviews/:id/helpful", d.Auth.Authenticate(h.MarkHelpful))
	router.DELETE("/api/v1/reviews/:id/helpful", d.Auth.Authenticate(h.UnmarkHelpful))
	router.POST("/api/v1/reviews/:id/report", d.Auth.Authenticate(h.ReportReview))
}

func AddCartRoutes(router *httprouter.Router, d *Deps) {
	h := d.Cart
	router.GET("/api/v1/cart", d.Auth.Authenticate(h.GetCart))
	router.DELETE("/api/v1/cart", d.Auth.Authenticate(h.ClearCart))
	router.POST("/api/v1/cart/items", d.Auth.Authenticate(h.AddToCart))
	router.PUT("/api/v1/cart/items/:productId", d.Auth.Authenticate(h.UpdateCartItem))
	router.DELETE("/api/v1/cart/items/:productId", d.Auth.Authenticate(h.RemoveCartItem))
	router.POST("/api/v1/cart/coupon", d.Auth.Authenticate(h.ApplyCoupon))
	router.POST("/api/v1/cart/checkout", d.Auth.Authenticate(d.Idempotency.Wrap(h.Checkout)))

	router.GET("/api/v1/wishlist", d.Auth.Authenticate(h.GetWishlist))
	router.POST("/api/v1/wishlist", d.Auth.Authenticate(h.AddToWishlist))
	router.DELETE("/api/v1/wishlist/:productId", d.Auth.Authenticate(h.RemoveFromWishlist))
}

func AddOrderRoutes(router *httprouter.Router, d *Deps) {
	h := d.Orders
	router.POST("/api/v1/orders", d.Auth.Authenticate(d.Idempotency.Wrap(h.CreateOrder)))
	router.GET("/api/v1/orders", d.Auth.Authenticate(h.GetMyOrders))
	router.GET("/api/v1/orders/:id", d.Auth.Authenticate(h.GetOrder))
	router.POST("/api/v1/orders/:id/cancel", d.Auth.Authenticate(h.CancelOrder))
	router.PUT("/api/v1/orders/:id/status", d.Auth.RequireRole(h.UpdateOrderStatus, models.RoleAdmin))
	router.GET("/api/v1/order-number/:number", d.Auth.Authenticate(h.GetOrderByNumber))
}

func AddAdminRoutes(router *httprouter.Router, d *Deps) {
	h := d.Admin
	router.GET("/api/v1/admin/users", d.Auth.RequireRole(h.GetUsers, models.RoleAdmin))
	router.PUT("/api/v1/admin/users/:id", d.Auth.RequireRole(h.UpdateUser, models.RoleAdmin))
	router.GET("/api/v1/admin/orders", d.Auth.RequireRole(h.GetOrders, models.RoleAdmin))
	router.GET("/api/v1/admin/inventory/low-stock", d.Auth.RequireRole(h.GetLowStock, models.RoleAdmin))
	router.POST("/api/v1/admin/coupons", d.Auth.RequireRole(h.CreateCoupon, models.RoleAdmin))
}
