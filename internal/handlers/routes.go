package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/staybook/settlement-backend/internal/middleware"
	"github.com/staybook/settlement-backend/pkg/jwt"
)

// Routes bundles the handlers mounted under /api/v1
type Routes struct {
	Settlement *SettlementHandler
	Wallet     *WalletHandler
	Admin      *AdminHandler
	JWT        *jwt.Service
	Logger     *logrus.Logger
}

// Register mounts every API route on router
func (r Routes) Register(router gin.IRouter) {
	v1 := router.Group("/api/v1")

	// Public
	v1.POST("/pricing/preview", r.Settlement.PreviewPrice)

	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(r.JWT, r.Logger))
	{
		bookings := protected.Group("/bookings")
		bookings.POST("", r.Settlement.CreateBooking)
		bookings.GET("/:id", r.Settlement.GetBooking)
		bookings.GET("/:id/payable", r.Settlement.GetPayable)
		bookings.POST("/:id/lock-price", r.Settlement.LockPrice)
		bookings.POST("/:id/promo", r.Settlement.ApplyPromo)
		bookings.POST("/:id/pay", r.Settlement.ConfirmPayment)
		bookings.POST("/:id/cancel", r.Settlement.CancelBooking)

		wallet := protected.Group("/wallet")
		wallet.GET("", r.Wallet.GetWallet)

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireRole("admin"))
		admin.POST("/sweep", r.Admin.Sweep)
		admin.POST("/bookings/:id/expire", r.Admin.ExpireBooking)
		admin.POST("/wallets/:user_id/credit", r.Wallet.Credit)
	}
}
