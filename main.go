package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"marketpulse/config"
	"marketpulse/controllers"
	"marketpulse/models"
	"marketpulse/routes"
	"marketpulse/scheduler"
	"marketpulse/services/aggregator"
	"marketpulse/services/archive"
	"marketpulse/services/marketdata"
	"marketpulse/services/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := models.MigrateMarketModels(db); err != nil {
		log.Fatalf("Failed to migrate database schema: %v", err)
	}
	log.Println("Database connected successfully")

	stockStore := store.NewStockStore(db)
	snapshotStore := store.NewSnapshotStore(db)

	limiter := marketdata.NewWindowLimiter(cfg.RateLimitPerMinute, time.Minute)
	client := marketdata.NewFMPClient(cfg.FMPAPIKey, cfg.FMPBaseURL, limiter)

	agg := aggregator.New(client, stockStore, snapshotStore)

	snapshotArchive, err := archive.NewSnapshotArchive(context.Background(), cfg.MongoURI)
	if err != nil {
		log.Printf("Warning: MongoDB archive unavailable, continuing without it: %v", err)
		snapshotArchive = &archive.SnapshotArchive{}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestLogger())

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": "marketpulse", "status": "running"})
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.Ping() != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	api := controllers.NewAPIController(stockStore, snapshotStore, agg, snapshotArchive)
	routes.SetupRoutes(router, api)

	sched := scheduler.New(agg, snapshotArchive, cfg.CollectIntervalMinutes)
	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	gracefulShutdown(server, sched, snapshotArchive, db)
}

// gracefulShutdown waits for SIGINT or SIGTERM, then stops the
// scheduler, drains the HTTP server and closes the backing stores.
func gracefulShutdown(server *http.Server, sched *scheduler.Scheduler, arc *archive.SnapshotArchive, db *gorm.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Warning: server shutdown: %v", err)
	}
	if err := arc.Close(ctx); err != nil {
		log.Printf("Warning: archive close: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("Warning: database close: %v", err)
		}
	}

	log.Println("Shutdown complete")
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("%s %s %d %s", c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start).Round(time.Microsecond))
	}
}
