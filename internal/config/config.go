package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // For session lifetime parsing

	"github.com/joho/godotenv" // For loading .env files
)

// Default values used when the environment leaves a setting empty
const (
	DefaultAppPort    = "8080"
	DefaultMediaRoot  = "media"
	DefaultSessionTTL = 14 * 24 * time.Hour
)

// Config holds the application configuration
type Config struct {
	AppPort    string        // Application port
	DBUser     string        // Database user
	DBPassword string        // Database password
	DBHost     string        // Database host
	DBPort     string        // Database port
	DBName     string        // Database name
	JWTSecret  string        // Secret used to sign session and flash cookies
	SessionTTL time.Duration // Lifetime of a login session
	RedisAddr  string        // Redis server address
	RedisPass  string        // Redis password
	RedisDB    int           // Redis database number
	MediaRoot  string        // Directory holding uploaded cover images
	IsProd     bool          // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	sessionTTL, err := time.ParseDuration(os.Getenv("SESSION_TTL"))
	if err != nil || sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL // Fall back to two weeks
	}
	return &Config{
		AppPort:    getEnv("APP_PORT", DefaultAppPort),     // Application port
		DBUser:     os.Getenv("DB_USER"),                   // Database user
		DBPassword: os.Getenv("DB_PASSWORD"),               // Database password
		DBHost:     getEnv("DB_HOST", "127.0.0.1"),         // Database host
		DBPort:     getEnv("DB_PORT", "3306"),              // Database port
		DBName:     os.Getenv("DB_NAME"),                   // Database name
		JWTSecret:  os.Getenv("JWT_SECRET"),                // Cookie signing secret
		SessionTTL: sessionTTL,                             // Session lifetime
		RedisAddr:  getEnv("REDIS_ADDR", "127.0.0.1:6379"), // Redis server address
		RedisPass:  os.Getenv("REDIS_PASS"),                // Redis password
		RedisDB:    redisDB,                                // Redis database number
		MediaRoot:  getEnv("MEDIA_ROOT", DefaultMediaRoot), // Cover image directory
		IsProd:     os.Getenv("IS_PROD") == "true",         // Is production environment
	}
}

// DSN builds the MySQL Data Source Name for GORM
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?charset=utf8mb4&parseTime=true"
}

// getEnv returns the environment value for key or fallback when it is empty
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
