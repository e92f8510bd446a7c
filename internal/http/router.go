package api

import (
	stdhttp "net/http"

	intconfig "tripbook/internal/config"
	h "tripbook/internal/http/handlers"
	"tripbook/internal/http/middleware"
	"tripbook/internal/services"
	"tripbook/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func NewRouter(env intconfig.Env, auth middleware.TokenParser) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS(env.CORSAllowedOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		utils.Logger().Warn("failed to set trusted proxies", zap.Error(err))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route tidak ditemukan",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	limiter := middleware.NewRateLimiter(env.MaxPaymentsPerMin)
	admin := []gin.HandlerFunc{middleware.BearerAuth(auth), middleware.RequireRoles(services.RoleAdmin)}

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)
		api.GET("/routes", h.Routes)

		// Auth
		api.POST("/auth/login", limiter.Middleware(), h.Login)

		// Payments
		payments := api.Group("/payments")
		payments.POST("", limiter.Middleware(), h.CreatePayment)
		payments.GET("/:id", h.GetPaymentStatus)
		payments.GET("/:id/receipt", middleware.BearerAuth(auth), middleware.RequireRoles(services.RoleAdmin), h.GetPaymentReceiptPDF)

		// Gateway webhooks
		api.POST("/webhooks/openpix", h.OpenPixWebhook)

		// Seats
		seats := api.Group("/trips/:tripId/buses/:busId/seats")
		seats.GET("", h.ListSeats)
		seats.POST("/:seat/claim", h.ClaimSeat)
		seatsAdmin := seats.Group("", admin...)
		seatsAdmin.PUT("/:seat", h.AssignSeat)
		seatsAdmin.POST("/:seat/block", h.BlockSeat)
		seatsAdmin.DELETE("/:seat", h.ReleaseSeat)

		// Reconciliation
		reconcile := api.Group("/admin/reconcile", admin...)
		reconcile.POST("/sync", h.ReconcileSyncAll)
		reconcile.POST("/payments/:id", h.ReconcileSyncPayment)
		reconcile.GET("/check", h.ReconcileCheckLatest)
		reconcile.POST("/sweep", h.ReconcileSweepStale)
	}

	h.SetRouter(r)
	return r
}
