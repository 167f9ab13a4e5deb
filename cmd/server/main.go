package main

import (
	"context" // context package is needed for Redis operations

	"bookshelf/internal/api"    // Custom package for HTTP handlers
	"bookshelf/internal/auth"   // Custom package for the identity service
	"bookshelf/internal/config" // Custom package for configuration
	"bookshelf/internal/db"     // Custom package for database access
	"bookshelf/internal/media"  // Custom package for uploaded files

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{}) // Machine-readable logs in production
	}
	if cfg.JWTSecret == "" {
		logrus.Fatal("JWT_SECRET must be set") // Cookies cannot be signed without it
	}

	// Connect to the database
	gdb, err := db.Open(cfg.DSN(), !cfg.IsProd)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Build the router with every route wired
	r, err := api.NewRouter(api.Deps{
		DB:             gdb,                                                              // Relational store
		Redis:          redisClient,                                                      // Sessions and admin cache
		Auth:           auth.NewService(gdb, redisClient, cfg.JWTSecret, cfg.SessionTTL), // Identity service
		Media:          &media.Store{Root: cfg.MediaRoot},                                // Cover images
		Secret:         cfg.JWTSecret,                                                    // Flash cookie signing
		TrustedProxies: []string{"127.0.0.1"},                                            // Set trusted proxies for Gin
	})
	if err != nil {
		logrus.Fatalf("failed to build router: %v", err)
	}

	logrus.WithField("port", cfg.AppPort).Info("Server running") // Log server start
	if err := r.Run(":" + cfg.AppPort); err != nil {             // Start the server on port cfg.AppPort
		logrus.Fatalf("server stopped: %v", err)
	}
}
