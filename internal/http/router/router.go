// Package router builds the Gin engine and mounts all registered modules.
package router

import (
	"context"
	"net/http"

	apphttp "crmhub_backend/internal/http"
	"crmhub_backend/platform/config"
	"crmhub_backend/platform/httpkit"
	"crmhub_backend/platform/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// New builds the Gin engine with shared middleware and mounts every module.
func New(cfg RouterConfig, log *logger.Logger, health HealthChecker, modules []apphttp.Module) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestLogger(log))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(corsMiddleware(cfg))

	limiter := httpkit.NewIPRateLimiter(rate.Limit(50), 100, log)
	engine.Use(limiter.RateLimit())
	authLimiter := httpkit.NewIPRateLimiter(rate.Limit(1), 10, log)

	engine.GET("/healthz", func(c *gin.Context) {
		if health != nil {
			if err := health.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(httpkit.Auth(cfg))

	routerCtx := &apphttp.RouterContext{
		Engine:          engine,
		V1:              v1,
		Protected:       protected,
		Config:          cfg,
		AuthRateLimiter: authLimiter,
	}

	for _, module := range modules {
		module.RegisterRoutes(routerCtx)
		log.Info("module routes registered", "module", module.Name())
	}

	return engine
}

func corsMiddleware(cfg config.HTTPConfig) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	if cfg.GetCORSAllowAll() {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.GetCORSOrigins()
		corsConfig.AllowCredentials = cfg.GetCORSAllowCreds()
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	return cors.New(corsConfig)
}
