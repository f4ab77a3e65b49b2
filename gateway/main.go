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
	"github.com/Elzini/tenant-gateway/shared/events"
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

	// Redis backs the resolver cache and rate-limit counters. A missing
	// Redis degrades both to their fail-open paths instead of blocking
	// startup.
	if err := utils.InitRedis(); err != nil {
		logrus.Warnf("Failed to connect to Redis, caching and rate limiting degraded: %v", err)
	}
	defer utils.CloseRedis()

	// Tenant registry
	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to connect to tenant registry database:", err)
	}
	registry := tenancy.NewGormRegistry(db)

	parser := tenancy.NewHostnameParser(cfg.BaseDomains, cfg.PreviewDomainSuffix)
	reserved := tenancy.NewReservedSet(cfg.ReservedSubdomains)
	resolver := tenancy.NewResolver(registry, utils.GetRedisClient(), cfg.ResolverCacheTTL, cfg.LookupTimeout)
	limiter := utils.NewRateLimiter(utils.GetRedisClient(), cfg.RateLimitRequests, cfg.RateLimitWindow, !cfg.Strict())

	// Routing-event audit stream (optional)
	var producer *events.Producer
	if cfg.KafkaBroker != "" {
		producer = events.NewProducer(cfg.KafkaBroker, cfg.RoutingEventsTopic)
		defer producer.Close()
	} else {
		logrus.Warn("KAFKA_BROKER not set, routing events disabled")
	}

	forwarder := NewForwarder(cfg.OriginURL, cfg.TenantIDHeader, cfg.TenantSubdomainHeader, cfg.OriginTimeout)
	tenantMiddleware := middleware.NewTenantMiddleware(
		cfg, parser, reserved, resolver, limiter, producer, renderTenantNotFound,
	)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())

	// Health check endpoint (served by the gateway itself, never proxied)
	router.GET("/healthz", func(c *gin.Context) {
		utils.OKResponse(c, "Tenant gateway is healthy", gin.H{
			"isolation_mode": string(cfg.IsolationMode),
			"lookup_breaker": string(resolver.BreakerState()),
		})
	})

	// Everything else runs the routing pipeline and is proxied to the origin.
	router.NoRoute(tenantMiddleware.Handler(), forwarder.Handle)

	port := os.Getenv("GATEWAY_PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		logrus.Infof("Tenant gateway starting on port %s (origin %s)", port, cfg.OriginURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start tenant gateway:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down tenant gateway...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Gateway forced to shutdown:", err)
	}
}
