package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage and persistence backends
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendLocal    = "local"
	BackendS3       = "s3"
)

// Search cache modes
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	TablePrefix string
	JWKSURL     string
	CORSOrigins string
	// Backends
	StoreBackend   string // postgres | memory
	StorageBackend string // local | s3
	StorageDir     string
	S3             S3Config
	// Upload rules
	MaxUploadBytes    int64
	AllowedExtensions []string
	// Search
	SearchMaxPageSize     int
	SearchDefaultPageSize int
	SearchCache           string // none | memory | redis
	SearchCacheTTL        time.Duration
	Redis                 RedisConfig
	// Reminders
	NATSURL          string
	ReminderSubject  string
	ReminderInterval time.Duration
	ReminderRetry    time.Duration
	BusinessHours    BusinessHours
	// Access policy
	PolicyFile string
	Policy     Policy
	// Logging
	LogDir      string
	LogMaxFiles int
}

// S3Config holds object storage settings
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	PathStyle bool
}

// RedisConfig holds search cache connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// DefaultAllowedExtensions is used when ALLOWED_EXTENSIONS is unset
var DefaultAllowedExtensions = []string{
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".odt", ".ods", ".txt", ".csv", ".png", ".jpg", ".jpeg",
}

// Load reads configuration from the environment and the optional policy file
func Load() (*Config, error) {
	env := getEnv("ENVIRONMENT", "dev")

	hours, err := ParseBusinessHours(getEnv("BUSINESS_HOURS", "08-18"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    env,
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		TablePrefix:    getTablePrefix(env),
		JWKSURL:        getEnv("JWKS_URL", ""),
		CORSOrigins:    getEnv("CORS_ORIGINS", "http://localhost:3000"),
		StoreBackend:   getEnv("STORE_BACKEND", BackendPostgres),
		StorageBackend: getEnv("STORAGE_BACKEND", BackendLocal),
		StorageDir:     getEnv("STORAGE_DIR", "./data/files"),
		S3: S3Config{
			Endpoint:  getEnv("S3_ENDPOINT", "localhost:9000"),
			Region:    getEnv("S3_REGION", "us-east-1"),
			Bucket:    getEnv("S3_BUCKET", "deptdocs"),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			UseSSL:    getEnvBool("S3_USE_SSL", false),
			PathStyle: getEnvBool("S3_PATH_STYLE", true),
		},
		MaxUploadBytes:        getEnvInt64("MAX_UPLOAD_BYTES", 50<<20),
		AllowedExtensions:     getEnvList("ALLOWED_EXTENSIONS", DefaultAllowedExtensions),
		SearchMaxPageSize:     getEnvInt("SEARCH_MAX_PAGE_SIZE", 100),
		SearchDefaultPageSize: getEnvInt("SEARCH_DEFAULT_PAGE_SIZE", 20),
		SearchCache:           getEnv("SEARCH_CACHE", CacheMemory),
		SearchCacheTTL:        getEnvDuration("SEARCH_CACHE_TTL", time.Minute),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		NATSURL:          getEnv("NATS_URL", "nats://localhost:4222"),
		ReminderSubject:  getEnv("REMINDER_SUBJECT", "deptdocs.reminders.send"),
		ReminderInterval: getEnvDuration("REMINDER_INTERVAL", 6*time.Hour),
		ReminderRetry:    getEnvDuration("REMINDER_RETRY", 30*time.Minute),
		BusinessHours:    hours,
		PolicyFile:       getEnv("POLICY_FILE", ""),
		Policy:           DefaultPolicy(),
		LogDir:           getEnv("LOG_DIR", ""),
		LogMaxFiles:      getEnvInt("LOG_MAX_FILES", 10),
	}
	cfg.Policy.AllowedExtensions = cfg.AllowedExtensions
	cfg.Policy.MaxUploadBytes = cfg.MaxUploadBytes

	if cfg.PolicyFile != "" {
		if err := cfg.Policy.LoadFile(cfg.PolicyFile); err != nil {
			return nil, err
		}
	}
	cfg.Policy.normalize()
	cfg.MaxUploadBytes = cfg.Policy.MaxUploadBytes
	cfg.AllowedExtensions = cfg.Policy.AllowedExtensions

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.StorageBackend {
	case BackendLocal, BackendS3:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	switch c.SearchCache {
	case CacheNone, CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("unknown SEARCH_CACHE %q", c.SearchCache)
	}
	if c.SearchDefaultPageSize > c.SearchMaxPageSize {
		return fmt.Errorf("SEARCH_DEFAULT_PAGE_SIZE exceeds SEARCH_MAX_PAGE_SIZE")
	}
	return nil
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if n, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil {
		return n
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, trimming blanks
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
