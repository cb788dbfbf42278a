package bootstrap

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/projectdash/dashboard-backend/config"
	"github.com/projectdash/dashboard-backend/internal/account"
	httpapi "github.com/projectdash/dashboard-backend/internal/api/http"
	"github.com/projectdash/dashboard-backend/internal/api/http/middleware"
	"github.com/projectdash/dashboard-backend/internal/auth"
	authhttp "github.com/projectdash/dashboard-backend/internal/auth/http"
	authmw "github.com/projectdash/dashboard-backend/internal/auth/middleware"
	authservice "github.com/projectdash/dashboard-backend/internal/auth/service"
	"github.com/projectdash/dashboard-backend/internal/capability"
	"github.com/projectdash/dashboard-backend/internal/export"
	"github.com/projectdash/dashboard-backend/internal/metrics"
	projecthttp "github.com/projectdash/dashboard-backend/internal/projects/http"
	"github.com/projectdash/dashboard-backend/internal/projects/service"
)

type RouterDeps struct {
	Config      *config.Config
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	DB          *sql.DB
	Redis       *redis.Client
	Stores      Stores
	Detector    capability.Detector
	Identity    auth.IdentityService
	Revocations auth.RevocationList
	Exporter    *export.Exporter
	// IPRateLimiter runs before authentication; RateLimiter after it.
	IPRateLimiter *middleware.RateLimiter
	RateLimiter   *middleware.RateLimiter
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	cfg := dep.Config

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware(dep.Logger))
	r.Use(dep.Metrics.Middleware())
	if origins := cfg.Security.CORSAllowedOrigins; len(origins) > 0 {
		r.Use(cors.New(corsConfig(origins)))
	}

	healthHandler := httpapi.NewHealthHandler(cfg.App.Name, cfg.App.Version, dep.DB, dep.Redis)
	healthHandler.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(dep.Metrics.Handler()))

	api := r.Group("/api")
	api.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	if dep.IPRateLimiter != nil {
		api.Use(dep.IPRateLimiter.Handler(middleware.ByClientIP))
	}

	admin := api.Group("/admin", middleware.APIKey(cfg.Security.AdminAPIKey))
	capability.NewHandler(dep.Detector).Register(admin.Group("/capabilities"))

	verifier := auth.NewTokenVerifier(dep.Identity, dep.Revocations)
	secured := api.Group("")
	secured.Use(authmw.FirebaseAuthMiddleware(verifier, dep.Metrics))
	if dep.RateLimiter != nil {
		secured.Use(dep.RateLimiter.Handler(middleware.ByPrincipal))
	}

	opts := service.Options{
		EnforceTaskOwnership:   cfg.Security.EnforceTaskOwnership,
		EnforceExportOwnership: cfg.Security.EnforceExportOwnership,
		TxTimeout:              cfg.Database.TxTimeout,
	}
	projects := projecthttp.New(
		service.NewProjectService(dep.Stores.Projects, dep.Detector, dep.Metrics, opts),
		service.NewTaskService(dep.Stores.Tasks, dep.Detector, dep.Metrics, opts),
		dep.Exporter,
	)
	projects.RegisterProjects(secured.Group("/projects"))
	projects.RegisterTasks(secured.Group("/tasks"))

	var identity account.IdentityRemover
	if dep.Identity != nil {
		identity = dep.Identity
	}
	accountSvc := account.NewService(dep.Stores.Accounts, dep.Detector, identity, dep.Revocations, dep.Metrics, account.Options{
		TxTimeout:      cfg.Database.TxTimeout,
		CleanupTimeout: cfg.Firebase.CleanupTimeout,
	})
	account.NewHandler(accountSvc).Register(secured.Group("/account"))

	authhttp.New(authservice.NewAuthService(dep.Stores.Profiles)).Register(secured.Group("/auth"))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "kind": "not_found", "error": "route not found"})
	})

	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			c.AllowCredentials = false
			return c
		}
	}
	c.AllowOrigins = origins
	return c
}
