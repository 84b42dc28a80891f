package routers

import (
	"github.com/gin-gonic/gin"
	"github.com/steamtrust/backend/config"
	"github.com/steamtrust/backend/controllers"
	"github.com/steamtrust/backend/controllers/accounts"
	"github.com/steamtrust/backend/controllers/admin"
	"github.com/steamtrust/backend/routers/middleware"
)

// Controllers groups the handlers mounted by Routes
type Controllers struct {
	Public *controllers.Controller
	Admin  *admin.Controller
	Auth   *accounts.AuthController
}

// Routes builds the HTTP router
func Routes(ctrls Controllers, serverConf *config.ServerConfiguration, authConf *config.AuthConfiguration) *gin.Engine {
	if !serverConf.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if serverConf.Debug {
		router.Use(gin.Logger())
	}
	router.Use(middleware.CORSMiddleware(serverConf.AllowedHosts))
	router.Use(middleware.LanguageMiddleware())

	router.GET("/health", ctrls.Public.Health)

	v1 := router.Group("/v1")
	rateLimited := middleware.RateLimitMiddleware(serverConf)

	paymentRoutes(v1.Group("/payment", rateLimited), ctrls.Public)
	promoRoutes(v1.Group("/promocode", rateLimited), ctrls.Public)
	webhookRoutes(v1, ctrls.Public)

	v1.POST("/auth/login", rateLimited, ctrls.Auth.Login)

	protected := middleware.JWTMiddleware(authConf.Secret)
	adminRoutes(v1.Group("/admin", rateLimited, protected), ctrls.Admin)
	b2bRoutes(v1.Group("/b2b", rateLimited, protected), ctrls.Admin)

	return router
}

func paymentRoutes(group *gin.RouterGroup, ctrl *controllers.Controller) {
	group.POST("", ctrl.CreatePayment)
	group.GET("/methods", ctrl.GetActiveMethods)
	group.GET("/:id", ctrl.GetPayment)
}

func promoRoutes(group *gin.RouterGroup, ctrl *controllers.Controller) {
	group.GET("/active", ctrl.GetActivePromo)
	group.POST("/:code/activate", ctrl.ActivatePromoCode)
}

// webhookRoutes mounts the provider callbacks, outside the rate limiter
func webhookRoutes(group *gin.RouterGroup, ctrl *controllers.Controller) {
	group.POST("/:provider/pay", ctrl.HandleWebhook)
	group.POST("/webhook", ctrl.HandleWebhook)
}

func adminRoutes(group *gin.RouterGroup, ctrl *admin.Controller) {
	group.GET("/payments", ctrl.ListPayments)

	group.GET("/methods", ctrl.ListMethods)
	group.POST("/methods", ctrl.CreateMethod)
	group.PUT("/methods/:id", ctrl.UpdateMethod)

	group.GET("/promocodes", ctrl.ListPromoCodes)
	group.POST("/promocodes", ctrl.CreatePromoCode)
	group.GET("/promocodes/:code", ctrl.GetPromoCode)
	group.PUT("/promocodes/:id", ctrl.UpdatePromoCode)
}

func b2bRoutes(group *gin.RouterGroup, ctrl *admin.Controller) {
	group.GET("/balance", ctrl.GetB2BBalance)
	group.GET("/transactions", ctrl.GetB2BTransactions)
	group.GET("/currencies", ctrl.GetB2BCurrencies)
	group.GET("/currencies/:from/:to/:amount", ctrl.ConvertB2BCurrency)
	group.GET("/payments/:code", ctrl.GetB2BPayment)
}
