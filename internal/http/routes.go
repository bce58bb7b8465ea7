package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"party_server/internal/config"
	"party_server/internal/http/handlers"
	"party_server/internal/http/middleware"
	"party_server/internal/ws"
)

// Deps is everything the HTTP surface needs from the running server.
type Deps struct {
	Config   *config.Config
	Handler  *handlers.Handler
	Health   *handlers.HealthHandler
	Limiter  *middleware.RateLimiter
	Identity middleware.IdentityResolver
	Hub      *ws.Hub
	Router   *ws.Router
}

// NewEngine builds the gin engine with the shared middleware stack.
func NewEngine(cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Metrics())

	// CORS for production (frontend on different domain)
	cc := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization", "Origin"},
		MaxAge:       12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = cfg.AllowedOrigins
		cc.AllowCredentials = true
	}
	r.Use(cors.New(cc))
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	cfg := d.Config

	// Health checks (no rate limiting)
	r.GET("/health", d.Health.Health)
	r.GET("/healthz", d.Health.Liveness)
	r.GET("/readyz", d.Health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket: one connection is one actor
	r.GET("/ws", ws.HandleWS(d.Hub, d.Router, d.Identity, cfg.AllowedOrigins, ws.Limits{
		Rate:  cfg.WSMessageRate,
		Burst: cfg.WSMessageBurst,
	}))

	v1 := r.Group("/api/v1")
	v1.Use(d.Limiter.Limit(cfg.APIRateLimit, cfg.APIRateWindow))
	{
		v1.GET("/rooms", d.Handler.ListRooms)
		v1.GET("/games", d.Handler.ListGames)
		v1.GET("/me/outcomes",
			middleware.Auth(d.Identity),
			d.Limiter.LimitIdentity(cfg.APIRateLimit, time.Minute),
			d.Handler.MyOutcomes,
		)
	}
}
