/*
Package config provides configuration management for the briefing backend.

This package separates configuration concerns from business logic and provides
a centralized way to manage application configuration including pipeline
sizing, stream delivery, storage, and other service dependencies.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/Nexora-Open-Source/briefing-backend/cache"
	"github.com/Nexora-Open-Source/briefing-backend/container"
	"github.com/Nexora-Open-Source/briefing-backend/middleware"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all application configuration
type Config struct {
	ProjectID       string
	LogLevel        string
	ServerPort      string
	UseMockServices bool
	// Rate limiting configuration
	RateLimitRequestsPerMinute float64
	RateLimitBurst             int
	// Enhanced CORS configuration
	CORSConfig CORSConfig
	// Cleanup intervals
	ClientCleanupInterval time.Duration
	// Pipeline settings
	PipelineConfig PipelineConfig
	// Stream delivery settings
	StreamConfig StreamConfig
	// Cache TTL settings
	CacheConfig CacheConfig
	// Digest settings
	DigestUserIDs []int64
}

// PipelineConfig holds pipeline and scheduler configuration
type PipelineConfig struct {
	Workers             int           `json:"workers"`
	QueueSize           int           `json:"queue_size"`
	BackpressureEnabled bool          `json:"backpressure_enabled"`
	RejectThreshold     float64       `json:"reject_threshold"`
	WaitTimeout         time.Duration `json:"wait_timeout"`
	MaxAttempts         int           `json:"max_attempts"`
	RetryInitialBackoff time.Duration `json:"retry_initial_backoff"`
	RetryMaxBackoff     time.Duration `json:"retry_max_backoff"`
	LeaseTTL            time.Duration `json:"lease_ttl"`
	FetchRequestsPerSec float64       `json:"fetch_requests_per_sec"`
}

// StreamConfig holds SSE delivery configuration
type StreamConfig struct {
	BufferSize        int           `json:"buffer_size"`
	IdleGrace         time.Duration `json:"idle_grace"`
	HeartbeatInterval time.Duration `json:"heartbeat_interval"`
}

// CacheConfig holds snapshot cache TTL configuration
type CacheConfig struct {
	ActiveTTL   time.Duration `json:"active_ttl"`
	TerminalTTL time.Duration `json:"terminal_ttl"`
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	// Environment-specific settings
	Environment string
	// Allowed origins based on environment
	DevelopmentOrigins []string
	StagingOrigins     []string
	ProductionOrigins  []string
	// Additional CORS settings
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
	// Dynamic origin validation
	AllowSubdomains bool
	AllowedDomains  []string
}

// Services holds all service dependencies
type Services struct {
	Container *container.Container
	Logger    *logrus.Logger
}

// AppConfig holds both configuration and services
type AppConfig struct {
	Config   *Config
	Services *Services
}

// NewConfig creates a new configuration instance
func NewConfig() *Config {
	// Local development reads overrides from .env; missing files are fine.
	_ = godotenv.Load()

	environment := getEnv("ENVIRONMENT", "development")

	return &Config{
		ProjectID:       getEnv("PROJECT_ID", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		UseMockServices: getEnvBool("USE_MOCK_SERVICES", false),
		// Rate limiting defaults (60 requests per minute, burst of 10)
		RateLimitRequestsPerMinute: getEnvFloat("RATE_LIMIT_RPM", 60.0),
		RateLimitBurst:             getEnvInt("RATE_LIMIT_BURST", 10),
		// Enhanced CORS configuration
		CORSConfig: CORSConfig{
			Environment: environment,
			DevelopmentOrigins: getEnvSlice("DEV_CORS_ORIGINS", []string{
				"http://localhost:3000",
				"http://localhost:3001",
				"http://127.0.0.1:3000",
				"http://127.0.0.1:3001",
				"http://localhost:8080",
			}),
			StagingOrigins: getEnvSlice("STAGING_CORS_ORIGINS", []string{
				"https://staging.yourdomain.com",
				"https://staging-api.yourdomain.com",
			}),
			ProductionOrigins: getEnvSlice("PROD_CORS_ORIGINS", []string{
				"https://yourdomain.com",
				"https://www.yourdomain.com",
				"https://api.yourdomain.com",
			}),
			AllowedMethods: getEnvSlice("CORS_ALLOWED_METHODS", []string{
				"GET", "POST", "PUT", "DELETE", "OPTIONS",
			}),
			AllowedHeaders: getEnvSlice("CORS_ALLOWED_HEADERS", []string{
				"Content-Type", "Authorization", "X-Requested-With",
				"X-Request-ID", "Accept", "Origin", "Cache-Control",
				"Last-Event-ID",
			}),
			ExposedHeaders: getEnvSlice("CORS_EXPOSED_HEADERS", []string{
				"X-Request-ID",
			}),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", true),
			MaxAge:           getEnvInt("CORS_MAX_AGE", 86400), // 24 hours
			AllowSubdomains:  getEnvBool("CORS_ALLOW_SUBDOMAINS", false),
			AllowedDomains:   getEnvSlice("CORS_ALLOWED_DOMAINS", []string{}),
		},
		// Cleanup intervals
		ClientCleanupInterval: getEnvDuration("CLIENT_CLEANUP_INTERVAL", 1*time.Minute),
		// Pipeline settings
		PipelineConfig: PipelineConfig{
			Workers:             getEnvInt("PIPELINE_WORKERS", 3),
			QueueSize:           getEnvInt("PIPELINE_QUEUE_SIZE", 50),
			BackpressureEnabled: getEnvBool("PIPELINE_BACKPRESSURE", true),
			RejectThreshold:     getEnvFloat("PIPELINE_REJECT_THRESHOLD", 0.8), // Reject at 80% capacity
			WaitTimeout:         getEnvDuration("PIPELINE_WAIT_TIMEOUT", 5*time.Second),
			MaxAttempts:         getEnvInt("PIPELINE_MAX_ATTEMPTS", 3),
			RetryInitialBackoff: getEnvDuration("PIPELINE_RETRY_INITIAL_BACKOFF", 1*time.Second),
			RetryMaxBackoff:     getEnvDuration("PIPELINE_RETRY_MAX_BACKOFF", 30*time.Second),
			LeaseTTL:            getEnvDuration("PIPELINE_LEASE_TTL", 5*time.Minute),
			FetchRequestsPerSec: getEnvFloat("FETCH_REQUESTS_PER_SEC", 10.0),
		},
		// Stream delivery settings
		StreamConfig: StreamConfig{
			BufferSize:        getEnvInt("STREAM_BUFFER_SIZE", 16),
			IdleGrace:         getEnvDuration("STREAM_IDLE_GRACE", 30*time.Second),
			HeartbeatInterval: getEnvDuration("STREAM_HEARTBEAT_INTERVAL", 30*time.Second),
		},
		// Cache TTL settings
		CacheConfig: CacheConfig{
			ActiveTTL:   getEnvDuration("CACHE_ACTIVE_TTL", 2*time.Second),
			TerminalTTL: getEnvDuration("CACHE_TERMINAL_TTL", 10*time.Minute),
		},
		// Digest settings
		DigestUserIDs: getEnvInt64Slice("DIGEST_USER_IDS", []int64{}),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ProjectID == "" && !c.UseMockServices {
		return fmt.Errorf("PROJECT_ID environment variable is required unless USE_MOCK_SERVICES is set")
	}
	if c.PipelineConfig.Workers <= 0 {
		return fmt.Errorf("PIPELINE_WORKERS must be positive")
	}
	if c.StreamConfig.BufferSize <= 0 {
		return fmt.Errorf("STREAM_BUFFER_SIZE must be positive")
	}
	return nil
}

// NewServices creates and initializes all service dependencies using DI container
func NewServices(config *Config) (*Services, error) {
	logger := middleware.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.InfoLevel)
	}
	if level, err := logrus.ParseLevel(config.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	// Initialize Datastore client unless running against mocks
	var datastoreClient *datastore.Client
	if !config.UseMockServices {
		client, err := datastore.NewClient(context.Background(), config.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to create Datastore client: %v", err)
		}
		datastoreClient = client
		logger.WithField("project_id", config.ProjectID).Info("Datastore client initialized successfully")
	} else {
		logger.Warn("Running with mock services, artifacts are kept in memory")
	}

	// Initialize cache
	inMemoryCache := cache.NewInMemoryCache(30 * time.Minute)
	cacheManager := cache.NewManager(
		inMemoryCache,
		logger,
		config.CacheConfig.ActiveTTL,
		config.CacheConfig.TerminalTTL,
	)
	logger.Info("Cache manager initialized successfully")

	// Initialize dependency injection container
	diContainer := container.NewContainer()
	err := diContainer.InitializeServices(container.Dependencies{
		DatastoreClient: datastoreClient,
		CacheManager:    cacheManager,
		Logger:          logger,
		Pipeline: container.PipelineSettings{
			Workers:             config.PipelineConfig.Workers,
			QueueSize:           config.PipelineConfig.QueueSize,
			BackpressureEnabled: config.PipelineConfig.BackpressureEnabled,
			RejectThreshold:     config.PipelineConfig.RejectThreshold,
			WaitTimeout:         config.PipelineConfig.WaitTimeout,
			MaxAttempts:         config.PipelineConfig.MaxAttempts,
			RetryInitialBackoff: config.PipelineConfig.RetryInitialBackoff,
			RetryMaxBackoff:     config.PipelineConfig.RetryMaxBackoff,
			LeaseTTL:            config.PipelineConfig.LeaseTTL,
			FetchRequestsPerSec: config.PipelineConfig.FetchRequestsPerSec,
		},
		Stream: container.StreamSettings{
			BufferSize:        config.StreamConfig.BufferSize,
			IdleGrace:         config.StreamConfig.IdleGrace,
			HeartbeatInterval: config.StreamConfig.HeartbeatInterval,
		},
		DigestUserIDs: config.DigestUserIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize dependency container: %v", err)
	}

	return &Services{
		Container: diContainer,
		Logger:    logger,
	}, nil
}

// NewAppConfig creates a new application configuration with all dependencies
func NewAppConfig() (*AppConfig, error) {
	config := NewConfig()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %v", err)
	}

	services, err := NewServices(config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %v", err)
	}

	return &AppConfig{
		Config:   config,
		Services: services,
	}, nil
}

// Close gracefully closes all service connections
func (s *Services) Close() error {
	if s.Container != nil {
		return s.Container.Close()
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFloat gets an environment variable as float64 with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvInt gets an environment variable as int with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable as time.Duration with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as bool with a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvSlice gets an environment variable as a string slice with a default value
func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// getEnvInt64Slice gets an environment variable as an int64 slice with a default value
func getEnvInt64Slice(key string, defaultValue []int64) []int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []int64
	for _, part := range strings.Split(value, ",") {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
			out = append(out, parsed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
