package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"staymarket/internal/infra/config"
	"staymarket/internal/infra/obs"
)

type QuoteHTTP interface {
	Create(c *gin.Context)
}

type ReservationHTTP interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	Confirm(c *gin.Context)
	Cancel(c *gin.Context)
	Complete(c *gin.Context)
}

type SearchHTTP interface {
	Search(c *gin.Context)
}

type CalendarHTTP interface {
	Calendar(c *gin.Context)
	CheckAvailability(c *gin.Context)
	SetOverride(c *gin.Context)
}

type Handlers struct {
	Quote       QuoteHTTP
	Reservation ReservationHTTP
	Search      SearchHTTP
	Calendar    CalendarHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Search != nil {
		api.GET("/stays", h.Search.Search)
	}
	if h.Calendar != nil {
		api.GET("/properties/:id/calendar", h.Calendar.Calendar)
		api.GET("/properties/:id/availability", h.Calendar.CheckAvailability)
		api.PUT("/properties/:id/calendar/override", h.Calendar.SetOverride)
	}
	if h.Quote != nil {
		api.POST("/quotes", h.Quote.Create)
	}
	if h.Reservation != nil {
		api.POST("/reservations", h.Reservation.Create)
		api.GET("/reservations/:id", h.Reservation.Get)
		api.POST("/reservations/:id/confirm", h.Reservation.Confirm)
		api.POST("/reservations/:id/cancel", h.Reservation.Cancel)
		api.POST("/reservations/:id/complete", h.Reservation.Complete)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
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
