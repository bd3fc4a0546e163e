package routes

import (
	"github.com/julienschmidt/httprouter"
)

func AddPayRoutes(router *httprouter.Router, d *Deps) {
	router.POST("/api/v1/payments/intent", d.Auth.Authenticate(d.Idempotency.Wrap(d.Pay.CreateIntent)))
	router.POST("/api/v1/payments/confirm", d.Auth.Authenticate(d.Idempotency.Wrap(d.Pay.Confirm)))
}

func AddReceiptRoutes(router *httprouter.Router, d *Deps) {
	router.GET("/api/v1/orders/:id/receipt", d.Auth.Authenticate(d.Receipts.GetReceipt))
	router.GET("/api/v1/receipts/verify", d.Receipts.Verify)
}
