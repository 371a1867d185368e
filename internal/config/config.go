package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig
	DB     DBConfig
	JWT    JWTConfig
	S3     S3Config
	Log    LogConfig
	OCR    OCRConfig
	Engine EngineConfig
	CORS   CORSConfig
	Queue  QueueConfig
	Email  EmailConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// JWTConfig holds JWT signing and expiry settings.
type JWTConfig struct {
	Secret             string        `mapstructure:"secret"`
	AccessTokenExpiry  time.Duration `mapstructure:"access_expiry"`
	RefreshTokenExpiry time.Duration `mapstructure:"refresh_expiry"`
	Issuer             string        `mapstructure:"issuer"`
}

// S3Config holds AWS S3 settings for document storage.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OCRProviderConfig holds settings for a single OCR provider.
type OCRProviderConfig struct {
	Provider    string   `mapstructure:"provider"`
	APIKey      string   `mapstructure:"api_key"`
	Endpoint    string   `mapstructure:"endpoint"`
	Languages   []string `mapstructure:"languages"`
	TimeoutSecs int      `mapstructure:"timeout_secs"`
}

// OCRConfig holds OCR provider settings with multi-provider fallback.
type OCRConfig struct {
	Primary   OCRProviderConfig `mapstructure:"primary"`
	Secondary OCRProviderConfig `mapstructure:"secondary"`
	Tertiary  OCRProviderConfig `mapstructure:"tertiary"`
	Preprocess bool             `mapstructure:"preprocess"`
}

// Chain returns the configured providers in fallback order.
func (o *OCRConfig) Chain() []*OCRProviderConfig {
	var chain []*OCRProviderConfig
	for _, cfg := range []*OCRProviderConfig{&o.Primary, &o.Secondary, &o.Tertiary} {
		if cfg.Provider != "" {
			chain = append(chain, cfg)
		}
	}
	return chain
}

// EngineConfig holds extraction engine tuning knobs.
type EngineConfig struct {
	LineTolerancePx float64 `mapstructure:"line_tolerance_px"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// QueueConfig holds extraction queue worker settings.
type QueueConfig struct {
	PollIntervalSecs int `mapstructure:"poll_interval_secs"`
	MaxRetries       int `mapstructure:"max_retries"`
	Concurrency      int `mapstructure:"concurrency"`
}

// EmailConfig holds email delivery settings.
type EmailConfig struct {
	Provider    string `mapstructure:"provider"`
	Region      string `mapstructure:"region"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
	FrontendURL string `mapstructure:"frontend_url"`
}

// Load reads configuration from environment variables with the SILKROUTE_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SILKROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "silkroute")
	v.SetDefault("db.password", "silkroute_secret")
	v.SetDefault("db.name", "silkroute_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// JWT defaults
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.access_expiry", "15m")
	v.SetDefault("jwt.refresh_expiry", "168h")
	v.SetDefault("jwt.issuer", "silkroute")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "silkroute-documents")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.max_file_size_mb", 50)
	v.SetDefault("s3.presign_expiry", 3600)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// OCR provider defaults: Google Vision first, local Tesseract as the
	// final fallback so extraction still works without cloud credentials.
	v.SetDefault("ocr.primary.provider", "vision")
	v.SetDefault("ocr.primary.api_key", "")
	v.SetDefault("ocr.primary.endpoint", "")
	v.SetDefault("ocr.primary.languages", "ru,uz,en")
	v.SetDefault("ocr.primary.timeout_secs", 30)
	v.SetDefault("ocr.secondary.provider", "")
	v.SetDefault("ocr.secondary.api_key", "")
	v.SetDefault("ocr.secondary.endpoint", "")
	v.SetDefault("ocr.secondary.languages", "ru,en")
	v.SetDefault("ocr.secondary.timeout_secs", 30)
	v.SetDefault("ocr.tertiary.provider", "tesseract")
	v.SetDefault("ocr.tertiary.api_key", "")
	v.SetDefault("ocr.tertiary.endpoint", "")
	v.SetDefault("ocr.tertiary.languages", "rus,eng")
	v.SetDefault("ocr.tertiary.timeout_secs", 60)
	v.SetDefault("ocr.preprocess", true)

	// Engine defaults
	v.SetDefault("engine.line_tolerance_px", 10.0)

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Queue defaults
	v.SetDefault("queue.poll_interval_secs", 10)
	v.SetDefault("queue.max_retries", 3)
	v.SetDefault("queue.concurrency", 5)

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "eu-central-1")
	v.SetDefault("email.from_address", "noreply@silkroute.example")
	v.SetDefault("email.from_name", "SilkRoute")
	v.SetDefault("email.frontend_url", "http://localhost:3000")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Comma-separated env values need manual splitting.
	cfg.CORS.AllowedOrigins = splitCSV(v.GetString("cors.allowed_origins"))
	cfg.OCR.Primary.Languages = splitCSV(v.GetString("ocr.primary.languages"))
	cfg.OCR.Secondary.Languages = splitCSV(v.GetString("ocr.secondary.languages"))
	cfg.OCR.Tertiary.Languages = splitCSV(v.GetString("ocr.tertiary.languages"))

	return &cfg, nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
