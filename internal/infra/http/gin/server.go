package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"depositrent/internal/infra/config"
	"depositrent/internal/infra/obs"
)

type Handlers struct {
	Auth           AuthHTTP
	Deposits       DepositHTTP
	Bookings       BookingHTTP
	Reports        ReportHTTP
	AuthMiddleware gin.HandlerFunc
	Metrics        http.Handler
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics))
	}
	mountAPIDocs(router)

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.POST("/auth/logout", h.Auth.Logout)
		api.GET("/auth/me", h.Auth.Me)
	}
	if h.Deposits != nil {
		deposits := api.Group("/deposits")
		deposits.GET("", h.Deposits.List)
		deposits.POST("", h.Deposits.Create)
		deposits.GET("/:name", h.Deposits.Get)
		deposits.GET("/:name/calendar", h.Deposits.Calendar)
		deposits.GET("/:name/availability", h.Deposits.CheckAvailability)
		deposits.POST("/:name/availability", h.Deposits.AddAvailability)
		deposits.DELETE("/:name/availability", h.Deposits.RemoveAvailability)
		deposits.POST("/:name/promotions", h.Deposits.AttachPromotion)
		deposits.DELETE("/:name/promotions/:id", h.Deposits.DetachPromotion)
		deposits.GET("/:name/quote", h.Deposits.Quote)
	}
	if h.Bookings != nil {
		bookings := api.Group("/bookings")
		bookings.POST("", h.Bookings.Create)
		bookings.GET("", h.Bookings.List)
		bookings.GET("/:id", h.Bookings.Get)
		bookings.POST("/:id/approve", h.Bookings.Approve)
		bookings.POST("/:id/reject", h.Bookings.Reject)
	}
	if h.Reports != nil {
		api.POST("/reports/bookings", h.Reports.Bookings)
	}
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
