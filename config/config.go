package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const weddingLayout = "2006-01-02T15:04:05"

// Config holds application configuration loaded from environment.
type Config struct {
	Server      ServerConfig
	PersonStore PersonStoreConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	AWS         AWSConfig
	Wedding     WeddingConfig
	Sessions    SessionsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// PersonStoreConfig locates the remote person resource, and the port cmd/personstore serves it on.
type PersonStoreConfig struct {
	BaseURL    string
	Resource   string
	TimeoutSec int
	Port       string
}

// DatabaseConfig holds PostgreSQL connection settings. Only cmd/personstore uses it.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/wedding?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings. An empty Addr keeps visitor data in memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTLDays  int
}

// AWSConfig holds AWS credentials and the gallery bucket. An empty bucket disables the gallery.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	Endpoint             string
	GalleryBucket        string
	GalleryPrefix        string
	PresignExpireMinutes int
}

// WeddingConfig holds the event date and where invitation links point.
type WeddingConfig struct {
	Date          time.Time
	InviteBaseURL string
}

// SessionsConfig controls how long idle registration and admin sessions live.
type SessionsConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Enabled reports whether a database was configured at all.
func (c DatabaseConfig) Enabled() bool {
	return c.URL != "" || c.Host != ""
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	loc, err := time.LoadLocation(getEnv("WEDDING_TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("WEDDING_TIMEZONE: %w", err)
	}
	date, err := time.ParseInLocation(weddingLayout, getEnv("WEDDING_DATE", "2025-11-28T17:00:00"), loc)
	if err != nil {
		return nil, fmt.Errorf("WEDDING_DATE: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		},
		PersonStore: PersonStoreConfig{
			BaseURL:    getEnv("PERSON_STORE_URL", "https://6876f512dba809d901ed84d4.mockapi.io/JsonInvitados"),
			Resource:   getEnv("PERSON_STORE_RESOURCE", "person"),
			TimeoutSec: getEnvInt("PERSON_STORE_TIMEOUT_SEC", 10),
			Port:       getEnv("PERSON_STORE_PORT", "8090"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "wedding"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTLDays:  getEnvInt("VISITOR_DATA_TTL_DAYS", 180),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:             getEnv("AWS_S3_ENDPOINT", ""),
			GalleryBucket:        getEnv("AWS_S3_GALLERY_BUCKET", ""),
			GalleryPrefix:        getEnv("AWS_S3_GALLERY_PREFIX", "gallery"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Wedding: WeddingConfig{
			Date:          date,
			InviteBaseURL: getEnv("INVITE_BASE_URL", "http://localhost:5173/register"),
		},
		Sessions: SessionsConfig{
			IdleTTL:       time.Duration(getEnvInt("SESSION_IDLE_TTL_MIN", 120)) * time.Minute,
			SweepInterval: time.Duration(getEnvInt("SESSION_SWEEP_INTERVAL_SEC", 60)) * time.Second,
		},
	}
	return cfg, nil
}

// AllowedOrigins splits CORSAllowedOrigins.
func (c ServerConfig) AllowedOrigins() []string {
	return splitTrim(c.CORSAllowedOrigins, ",")
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
