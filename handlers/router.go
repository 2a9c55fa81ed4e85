package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ironspideychinu/TuckHub/config"
	"github.com/ironspideychinu/TuckHub/models"
)

func corsConfig(cfg *config.Config) (cors.Config, bool) {
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "X-Request-Id"},
		MaxAge:        12 * time.Hour,
	}

	switch {
	case len(cfg.AllowedOrigins) > 0:
		corsCfg.AllowOrigins = cfg.AllowedOrigins
		corsCfg.AllowCredentials = true
	case cfg.Development():
		// Development: Allow all origins
		corsCfg.AllowAllOrigins = true
	default:
		// Production without CLIENT_ORIGIN: same-origin only.
		return corsCfg, false
	}
	return corsCfg, true
}

// NewRouter mounts the REST surface under /api and the order stream at /ws/orders.
// Payment routes exist only in the payment flow and POST /api/orders only in
// the immediate flow.
func NewRouter(h *Handler, cfg *config.Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(h.Logger))

	if corsCfg, ok := corsConfig(cfg); ok {
		router.Use(cors.New(corsCfg))
	}

	router.GET("/ws/orders", gin.WrapH(h.Socket))

	api := router.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	auth := h.AuthMiddleware()

	// --- Authentication Routes ---
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.RegisterHandler)
		authGroup.POST("/login", h.LoginHandler)
		authGroup.GET("/me", auth, h.MeHandler)
		if h.Microsoft != nil {
			authGroup.GET("/microsoft", h.MicrosoftLoginHandler)
			authGroup.GET("/microsoft/callback", h.MicrosoftCallbackHandler)
		}
	}

	menuGroup := api.Group("/menu")
	{
		menuGroup.GET("", h.ListMenuHandler)
		staffOnly := menuGroup.Group("", auth, Authorize(models.CanManageMenu))
		staffOnly.POST("", h.CreateMenuItemHandler)
		staffOnly.PATCH("/:item_id", h.UpdateMenuItemHandler)
		staffOnly.DELETE("/:item_id", h.DeleteMenuItemHandler)
	}

	categoryGroup := api.Group("/categories")
	{
		categoryGroup.GET("", h.ListCategoriesHandler)
		adminOnly := categoryGroup.Group("", auth, Authorize(models.CanManageCatalog))
		adminOnly.POST("", h.CreateCategoryHandler)
		adminOnly.PATCH("/:category_id", h.UpdateCategoryHandler)
		adminOnly.DELETE("/:category_id", h.DeleteCategoryHandler)
	}

	orderGroup := api.Group("/orders", auth)
	{
		placing := orderGroup.Group("", RequireMicrosoftForStudent(), Authorize(models.CanPlaceOrders))
		if cfg.OrderFlow == config.FlowPayment {
			placing.POST("/create-payment-intent", h.CreatePaymentIntentHandler)
			placing.POST("/verify-payment", h.VerifyPaymentHandler)
		} else {
			placing.POST("", h.PlaceOrderHandler)
		}

		orderGroup.GET("/user/:user_id", RequireMicrosoftForStudent(), h.GetUserOrdersHandler)
		orderGroup.GET("/:order_id", RequireMicrosoftForStudent(), h.GetOrderHandler)
		orderGroup.GET("", Authorize(models.CanViewAllOrders), h.ListOrdersHandler)

		managing := orderGroup.Group("", Authorize(models.CanManageOrders))
		managing.PATCH("/:order_id/status", h.UpdateOrderStatusHandler)
		managing.PATCH("/:order_id/assign-runner", h.AssignRunnerHandler)
	}

	if cfg.OrderFlow == config.FlowPayment {
		api.POST("/webhooks/payment-gateway", h.PaymentWebhookHandler)
	}

	runnerGroup := api.Group("/runner", auth, Authorize(models.CanDeliver))
	{
		runnerGroup.GET("/orders", h.RunnerOrdersHandler)
		runnerGroup.PATCH("/orders/:order_id/delivered", h.MarkDeliveredHandler)
	}

	adminGroup := api.Group("/admin", auth, Authorize(models.CanAdminister))
	{
		adminGroup.GET("/users", h.ListUsersHandler)
		adminGroup.PATCH("/users/:user_id/role", h.UpdateUserRoleHandler)
		adminGroup.GET("/reports", h.ReportsHandler)
	}

	return router
}
