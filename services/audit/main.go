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
	"github.com/Elzini/tenant-gateway/shared/utils"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}

	cfg := config.LoadGatewayConfig()
	if cfg.KafkaBroker == "" {
		log.Fatal("KAFKA_BROKER must be set for the audit service")
	}

	bucket := os.Getenv("AUDIT_S3_BUCKET")
	if bucket == "" {
		log.Fatal("AUDIT_S3_BUCKET must be set for the audit service")
	}

	// Database for failed-archive rows
	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	if err := db.AutoMigrate(&FailedArchive{}); err != nil {
		log.Fatal("Failed to migrate failed_archives table:", err)
	}

	archiver, err := NewS3Archiver(os.Getenv("AWS_REGION"), bucket)
	if err != nil {
		log.Fatal("Failed to initialize S3 archiver:", err)
	}
	defer archiver.Close()

	consumer, err := NewKafkaConsumer(cfg.KafkaBroker, cfg.RoutingEventsTopic, db)
	if err != nil {
		log.Fatal("Failed to initialize Kafka consumer:", err)
	}
	defer consumer.Close()

	consumeCtx, stopConsumer := context.WithCancel(context.Background())
	go consumer.Consume(consumeCtx, archiver)

	// Initialize Gin router
	router := gin.Default()

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Audit service is healthy", nil)
	})

	// Observability endpoint for the archiver
	router.GET("/audit/status", func(c *gin.Context) {
		utils.OKResponse(c, "Archiver status", archiver.GetStatus())
	})

	port := os.Getenv("AUDIT_SERVICE_PORT")
	if port == "" {
		port = "8003"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		logrus.Infof("Audit service starting on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start audit service:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down audit service...")
	stopConsumer()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Audit service forced to shutdown:", err)
	}
}
