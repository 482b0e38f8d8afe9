package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/solovyshn/Blockly-for-Dwenguino/internal/infra/config"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/transport/http/handlers"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/transport/http/middleware"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Sessions  *usecase.SessionService
	Telemetry *usecase.TelemetryService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config   *config.AppConfig
	Logger   *zap.Logger
	Metrics  *middleware.HTTPMetrics
	Services ServiceSet
	Database DatabaseChecker
	Cache    CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	cookie := middleware.NewSessionCookie(deps.Config.Cookie, deps.Config.App.Env)

	requireAuth := middleware.RequireAuth(cookie, deps.Services.Sessions)
	requireAdmin := middleware.RequireAdmin(cookie, deps.Services.Sessions)
	softAuth := middleware.SoftAuth(cookie, deps.Services.Sessions)

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)
	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(
		deps.Services.Sessions,
		cookie,
		deps.Config.App.VerificationRedirectURL,
	)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.GET("/verify-account/:userId/:secretCode", authHandler.VerifyAccount)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/resend-activation", authHandler.ResendActivation)
		authGroup.POST("/refresh-token", authHandler.RefreshToken)
		authGroup.POST("/request-password-reset", authHandler.RequestPasswordReset)
		authGroup.POST("/reset-password", authHandler.ResetPassword)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/me", requireAuth, authHandler.Me)
	}

	eventHandler := handlers.NewEventHandler(deps.Services.Telemetry)
	r.POST("/events", softAuth, eventHandler.Record)

	adminHandler := handlers.NewAdminHandler(deps.Services.Sessions, deps.Services.Telemetry)
	adminGroup := r.Group("/admin")
	adminGroup.Use(requireAdmin)
	{
		adminGroup.GET("/users", adminHandler.ListUsers)
		adminGroup.GET("/events/stats", adminHandler.EventStats)
		adminGroup.GET("/events/recent", adminHandler.RecentEvents)
	}

	return r
}
