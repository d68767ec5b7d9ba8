package http

import (
	"context"
	"net/http"
	"time"

	"trainhub_backend/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// NewRouter assembles the Gin engine: shared middleware, health endpoints,
// and every module's routes under /api/v1.
func NewRouter(app *App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(corsMiddleware(app))

	limiter := httpkit.NewIPRateLimiter(rate.Limit(20), 40, app.Logger)
	engine.Use(limiter.RateLimit())

	engine.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/api/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := app.Health.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	authMiddleware := httpkit.AuthRequired(app.Config)

	v1 := engine.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(authMiddleware)

	rc := &RouterContext{
		Engine:         engine,
		V1:             v1,
		Protected:      protected,
		Config:         app.Config,
		AuthMiddleware: authMiddleware,
	}

	for _, module := range app.Modules {
		module.RegisterRoutes(rc)
		app.Logger.Info("module_routes_registered", "module", module.Name())
	}

	return engine
}

func corsMiddleware(app *App) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: app.Config.GetCORSAllowCreds(),
		MaxAge:           12 * time.Hour,
	}
	if app.Config.GetCORSAllowAll() {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = app.Config.GetCORSOrigins()
	}
	return cors.New(cfg)
}
