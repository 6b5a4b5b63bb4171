package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Security  SecurityConfig
	Twilio    TwilioConfig
	GSTPortal GSTPortalConfig
	Reports   ReportsConfig
	S3        S3Config
	Metrics   MetricsConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret      string
	TokenExpiry time.Duration
	CookieName  string
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig is built once at startup and handed to the validators and
// the header middleware. Nothing mutates it afterwards.
type SecurityConfig struct {
	Password         PasswordPolicy
	MaxInputLength   int
	AllowedFileTypes []string
	MaxFileSize      int64
	Headers          SecurityHeaders
}

type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumbers   bool
	RequireSpecial   bool
}

type SecurityHeaders struct {
	ContentSecurityPolicy   string
	StrictTransportSecurity string
	ContentTypeOptions      string
	FrameOptions            string
	XSSProtection           string
	ReferrerPolicy          string
	PermissionsPolicy       string
}

// TwilioConfig configures the Verify service. Empty credentials switch the
// client to development mode.
type TwilioConfig struct {
	AccountSID       string
	AuthToken        string
	VerifyServiceSID string
	BaseURL          string
	Timeout          time.Duration
}

type GSTPortalConfig struct {
	BaseURL string
	Timeout time.Duration
}

type ReportsConfig struct {
	MinAttestations int
	StatsCron       string
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // CloudFront or S3 direct URL
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "nidaro"),
			Password: getEnv("DB_PASSWORD", "nidaro"),
			DBName:   getEnv("DB_NAME", "nidaro"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			TokenExpiry: parseDuration(getEnv("JWT_TOKEN_EXPIRY", "168h"), 7*24*time.Hour),
			CookieName:  getEnv("AUTH_COOKIE_NAME", "auth_token"),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173,https://nidaro.com,https://www.nidaro.com")),
			AllowedMethods: parseSlice(getEnv("ALLOWED_METHODS", "GET,POST,PUT,DELETE,PATCH,OPTIONS")),
			AllowedHeaders: parseSlice(getEnv("ALLOWED_HEADERS", "Content-Type,Authorization,X-Requested-With")),
		},
		Security: DefaultSecurityConfig(),
		Twilio: TwilioConfig{
			AccountSID:       getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:        getEnv("TWILIO_AUTH_TOKEN", ""),
			VerifyServiceSID: getEnv("TWILIO_VERIFY_SERVICE_SID", ""),
			BaseURL:          getEnv("TWILIO_VERIFY_BASE_URL", "https://verify.twilio.com/v2"),
			Timeout:          parseDuration(getEnv("TWILIO_TIMEOUT", "10s"), 10*time.Second),
		},
		GSTPortal: GSTPortalConfig{
			BaseURL: getEnv("GST_PORTAL_BASE_URL", "https://services.gst.gov.in"),
			Timeout: parseDuration(getEnv("GST_PORTAL_TIMEOUT", "15s"), 15*time.Second),
		},
		Reports: ReportsConfig{
			MinAttestations: parseInt(getEnv("REPORTS_MIN_ATTESTATIONS", "3"), 3),
			StatsCron:       getEnv("REPORTS_STATS_CRON", "*/5 * * * *"),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "ap-south-1"),
			Bucket:          getEnv("AWS_S3_BUCKET", ""), // empty disables evidence uploads
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
		},
		Metrics: MetricsConfig{
			Enabled: getEnv("METRICS_ENABLED", "true") == "true",
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	if config.Server.Environment == "production" && config.JWT.Secret == "change-me-in-production" {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}

	return config, nil
}

// DefaultSecurityConfig returns the platform security policy.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		Password: PasswordPolicy{
			MinLength:        8,
			RequireUppercase: true,
			RequireLowercase: true,
			RequireNumbers:   true,
			RequireSpecial:   true,
		},
		MaxInputLength:   1000,
		AllowedFileTypes: []string{"image/jpeg", "image/png", "image/gif", "application/pdf"},
		MaxFileSize:      5 * 1024 * 1024,
		Headers: SecurityHeaders{
			ContentSecurityPolicy:   "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:;",
			StrictTransportSecurity: "max-age=31536000; includeSubDomains; preload",
			ContentTypeOptions:      "nosniff",
			FrameOptions:            "DENY",
			XSSProtection:           "1; mode=block",
			ReferrerPolicy:          "strict-origin-when-cross-origin",
			PermissionsPolicy:       "geolocation=(), microphone=(), camera=()",
		},
	}
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseSlice(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
