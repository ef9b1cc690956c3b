package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Deadline policies for attempt submission.
const (
	DeadlinePolicyLenient = "lenient"
	DeadlinePolicyStrict  = "strict"
)

// Config holds application configuration
type Config struct {
	Port     string `validate:"required,numeric"`
	AppEnv   string `validate:"required"`
	LogMode  string `validate:"required,oneof=dev development prod production test"`
	DBDriver string `validate:"required,oneof=postgres mysql sqlite"`
	DBHost   string
	DBPort   string
	DBUser   string
	DBPass   string
	DBName   string
	// DBDSN overrides the host/port/user/password/name fields when set.
	DBDSN          string
	DBMaxOpenConns int `validate:"gt=0"`
	DBMaxIdleConns int `validate:"gte=0"`

	// AdminEmail signs up with the ADMIN role.
	AdminEmail string `validate:"omitempty,email"`

	JWTKey    string        `validate:"required"`
	JWTTTL    time.Duration `validate:"gt=0"`
	SaltRound int           `validate:"gte=4,lte=31"`

	RedisAddr     string
	RedisPassword string
	RedisDB       int           `validate:"gte=0"`
	CacheTTL      time.Duration `validate:"gt=0"`

	AttemptDeadlinePolicy string `validate:"required,oneof=lenient strict"`
	AttemptGraceSeconds   int    `validate:"gte=0"`
	AttemptSweepSpec      string `validate:"required"`

	SendgridAPIKey  string
	EmailSender     string
	EmailSenderName string

	WebhookURL     string `validate:"omitempty,url"`
	WebhookSecret  string
	WebhookTimeout time.Duration `validate:"gt=0"`
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	cfg := &Config{
		Port:     getEnv("PORT", "3000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogMode:  getEnv("LOG_MODE", "dev"),
		DBDriver: strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:   getEnv("DB_HOST", "localhost"),
		DBPort:   getEnv("DB_PORT", "5432"),
		DBUser:   getEnv("DB_USER", "postgres"),
		DBPass:   getEnv("DB_PASSWORD", ""),
		DBName:   getEnv("DB_NAME", "lms"),
		DBDSN:    getEnv("DB_DSN", ""),

		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),

		AdminEmail: strings.ToLower(getEnv("ADMIN_EMAIL", "")),

		JWTKey:    getEnv("JWT_SECRET_KEY", "defaultSecret"),
		JWTTTL:    getEnvDuration("JWT_TTL", 24*time.Hour),
		SaltRound: getEnvInt("SALT_ROUND", 10),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      getEnvDuration("CACHE_TTL", 10*time.Minute),

		AttemptDeadlinePolicy: strings.ToLower(getEnv("ATTEMPT_DEADLINE_POLICY", DeadlinePolicyLenient)),
		AttemptGraceSeconds:   getEnvInt("ATTEMPT_GRACE_SECONDS", 30),
		AttemptSweepSpec:      getEnv("ATTEMPT_SWEEP_SPEC", "@every 1m"),

		SendgridAPIKey:  getEnv("SENDGRID_API_KEY", ""),
		EmailSender:     getEnv("EMAIL_SENDER", ""),
		EmailSenderName: getEnv("EMAIL_SENDER_NAME", "LMS"),

		WebhookURL:     getEnv("WEBHOOK_URL", ""),
		WebhookSecret:  getEnv("WEBHOOK_SECRET", ""),
		WebhookTimeout: getEnvDuration("WEBHOOK_TIMEOUT", 5*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Validate critical configuration
	if cfg.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}

	AppConfig = cfg
	return cfg, nil
}

// Validate checks the struct tags of the loaded configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// StrictDeadline reports whether submissions after ends_at are rejected.
func (c *Config) StrictDeadline() bool {
	return c.AttemptDeadlinePolicy == DeadlinePolicyStrict
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to duration: %v", key, err)
		return defaultValue
	}
	return d
}
