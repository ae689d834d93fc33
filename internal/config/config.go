package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort      string
	ShutdownTimeout time.Duration
	SwaggerHost     string
	LogLevel        string
	LogFormat       string
	Database        Database
	Upload          Upload
}

// Database describes the MySQL connection and pool bounds.
type Database struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
	SlowQuery       time.Duration
	AutoMigrate     bool
}

// Upload describes where uploaded images land and what is accepted.
type Upload struct {
	Dir              string
	URLPrefix        string
	MaxFileSize      int64
	MaxFiles         int
	AllowedExts      []string
	AllowedMIMETypes []string
}

// Load builds Config from environment with sensible defaults.
// A .env file in the working directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		SwaggerHost:     os.Getenv("SWAGGER_HOST"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
		Database: Database{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 3306),
			User:            getEnv("DB_USER", "root"),
			Password:        os.Getenv("DB_PASSWORD"),
			Name:            getEnv("DB_NAME", "webcrud"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			QueryTimeout:    getEnvDuration("DB_QUERY_TIMEOUT", 5*time.Second),
			SlowQuery:       getEnvDuration("DB_SLOW_QUERY", 200*time.Millisecond),
			AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Upload: Upload{
			Dir:              getEnv("UPLOAD_DIR", "public/uploads"),
			URLPrefix:        getEnv("UPLOAD_URL_PREFIX", "/uploads"),
			MaxFileSize:      int64(getEnvInt("UPLOAD_MAX_FILE_SIZE", 2*1024*1024)),
			MaxFiles:         getEnvInt("UPLOAD_MAX_FILES", 5),
			AllowedExts:      getEnvList("UPLOAD_ALLOWED_EXTS", []string{".jpg", ".jpeg", ".png", ".gif"}),
			AllowedMIMETypes: getEnvList("UPLOAD_ALLOWED_MIME_TYPES", []string{"image/jpeg", "image/png", "image/gif"}),
		},
	}
}

// Validate reports configuration values the server cannot run with.
func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT must not be empty")
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be positive, got %d", c.Database.MaxOpenConns)
	}
	if c.Database.MaxIdleConns < 0 || c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("DB_MAX_IDLE_CONNS must be between 0 and %d, got %d", c.Database.MaxOpenConns, c.Database.MaxIdleConns)
	}
	if c.Upload.Dir == "" {
		return fmt.Errorf("UPLOAD_DIR must not be empty")
	}
	if c.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("UPLOAD_MAX_FILE_SIZE must be positive, got %d", c.Upload.MaxFileSize)
	}
	if c.Upload.MaxFiles <= 0 {
		return fmt.Errorf("UPLOAD_MAX_FILES must be positive, got %d", c.Upload.MaxFiles)
	}
	if len(c.Upload.AllowedExts) == 0 {
		return fmt.Errorf("UPLOAD_ALLOWED_EXTS must not be empty")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

// getEnvList reads a comma separated list; extensions are normalized to ".ext".
func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" {
			continue
		}
		if strings.HasSuffix(key, "_EXTS") && !strings.HasPrefix(item, ".") {
			item = "." + item
		}
		out = append(out, item)
	}
	if len(out) == 0 {
		return def
	}
	return out
}
