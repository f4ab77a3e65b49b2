package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Elzini/tenant-gateway/shared/config"
	"github.com/Elzini/tenant-gateway/shared/middleware"
	"github.com/Elzini/tenant-gateway/shared/tenancy"
	"github.com/Elzini/tenant-gateway/shared/utils"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}

	cfg := config.LoadGatewayConfig()

	// Redis for resolution caching and rate-limit counters (shared with the
	// gateway, so resolve() sees the same window the hot path fills).
	if err := utils.InitRedis(); err != nil {
		logrus.Warnf("Failed to connect to Redis, caching disabled: %v", err)
	}
	defer utils.CloseRedis()

	// Initialize database
	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	registry := tenancy.NewGormRegistry(db)
	parser := tenancy.NewHostnameParser(cfg.BaseDomains, cfg.PreviewDomainSuffix)
	deps := &adminDeps{
		registry:   registry,
		resolver:   tenancy.NewResolver(registry, utils.GetRedisClient(), cfg.ResolverCacheTTL, cfg.LookupTimeout),
		limiter:    utils.NewRateLimiter(utils.GetRedisClient(), cfg.RateLimitRequests, cfg.RateLimitWindow, !cfg.Strict()),
		reserved:   tenancy.NewReservedSet(cfg.ReservedSubdomains),
		baseDomain: parser.PrimaryBaseDomain(),
	}

	authMiddleware := middleware.NewAuthMiddleware(os.Getenv("ADMIN_JWT_SECRET"))

	// Initialize Gin router
	router := gin.Default()

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Tenant service is healthy", nil)
	})

	// Administrative surface
	admin := router.Group("/")
	admin.Use(authMiddleware.RequireAdmin())
	{
		admin.POST("/rpc", handleRPC(deps))

		admin.GET("/resolve/:subdomain", handleResolve(deps))
		admin.GET("/companies/:company_id/health", handleHealth(deps))
		admin.GET("/tenants", handleList(deps))
	}

	port := os.Getenv("TENANT_SERVICE_PORT")
	if port == "" {
		port = "8002"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		logrus.Infof("Tenant service starting on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start tenant service:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down tenant service...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Tenant service forced to shutdown:", err)
	}
}
