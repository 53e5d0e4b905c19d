package transport

import (
	"github.com/labstack/echo/v4"

	v2controllers "github.com/escrowhub/escrowhub.go/controllers_v2"
	"github.com/escrowhub/escrowhub.go/lib/service"
)

func RegisterV2Endpoints(svc *service.EscrowService, e *echo.Echo, secured *echo.Group, securedWithStrictRateLimit *echo.Group, strictRateLimitMiddleware echo.MiddlewareFunc, adminMw echo.MiddlewareFunc, logMw echo.MiddlewareFunc) {
	e.GET("/v2/health", v2controllers.NewHealthController().Check)

	// token issuance requires the admin token
	e.POST("/auth", v2controllers.NewAuthController(svc).Auth, strictRateLimitMiddleware, adminMw, logMw)

	invoiceCtrl := v2controllers.NewInvoiceController(svc)
	disputeCtrl := v2controllers.NewDisputeController(svc)

	secured.POST("/v2/invoices", invoiceCtrl.AddInvoice)
	secured.GET("/v2/invoices/count", invoiceCtrl.CountInvoices)
	secured.GET("/v2/invoices/:id", invoiceCtrl.GetInvoice)
	secured.GET("/v2/invoices/:id/status", invoiceCtrl.GetInvoiceStatus)
	secured.GET("/v2/invoices/:id/events", invoiceCtrl.GetInvoiceEvents)
	secured.POST("/v2/invoices/:id/complete", invoiceCtrl.CompleteInvoice)
	secured.POST("/v2/invoices/:id/cancel", invoiceCtrl.CancelInvoice)
	// transitions that move value get the strict limit
	securedWithStrictRateLimit.POST("/v2/invoices/:id/fund", invoiceCtrl.FundInvoice)
	securedWithStrictRateLimit.POST("/v2/invoices/:id/release", invoiceCtrl.ReleasePayment)
	securedWithStrictRateLimit.POST("/v2/admin/disputes/:id/resolve", disputeCtrl.ResolveDispute)
	securedWithStrictRateLimit.POST("/v2/admin/arbiter", disputeCtrl.TransferArbiter)
}
