package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	DB          DBConfig
	S3          S3Config
	Storage     StorageConfig
	Transform   TransformConfig
	Definitions DefinitionsConfig
	Metrics     MetricsConfig
	Log         LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port          string        `mapstructure:"port"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	Environment   string        `mapstructure:"environment"`
	MaxUploadSize int64         `mapstructure:"max_upload_size_mb"`
	// AllowedOrigins lists CORS origins, comma separated in the environment.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
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

	// ConnMaxLifetime recycles pooled connections; zero keeps them forever.
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds S3 settings. Bucket, VirtualHost, AssetHost and DefaultACL
// are the defaults every attachment definition falls back to.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	VirtualHost   bool   `mapstructure:"virtual_host"`
	AssetHost     string `mapstructure:"asset_host"`
	DefaultACL    string `mapstructure:"default_acl"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// DefaultEndpoint returns the endpoint used for URL building: the configured
// endpoint, or the regional AWS endpoint.
func (s *S3Config) DefaultEndpoint() string {
	if s.Endpoint != "" {
		return strings.TrimRight(s.Endpoint, "/")
	}
	region := s.Region
	if region == "" {
		region = "us-east-1"
	}
	return "https://s3." + region + ".amazonaws.com"
}

// StorageConfig selects the storage backend.
type StorageConfig struct {
	Backend string             `mapstructure:"backend"`
	Local   LocalStorageConfig `mapstructure:"local"`
}

// LocalStorageConfig holds filesystem backend settings.
type LocalStorageConfig struct {
	Root          string `mapstructure:"root"`
	PublicURL     string `mapstructure:"public_url"`
	SigningSecret string `mapstructure:"signing_secret"`
}

// TransformConfig holds version transform settings.
type TransformConfig struct {
	TimeoutSecs int    `mapstructure:"timeout_secs"`
	Concurrency int    `mapstructure:"concurrency"`
	TempDir     string `mapstructure:"temp_dir"`
}

// Timeout returns the per-version timeout.
func (t *TransformConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutSecs) * time.Second
}

// DefinitionsConfig points at the attachment definitions file.
type DefinitionsConfig struct {
	Path string `mapstructure:"path"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LogConfig holds logging settings. Level "debug" adds file and line to log
// output and runs gin in debug mode.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from environment variables with the ATTACHR_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ATTACHR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.max_upload_size_mb", 50)
	v.SetDefault("server.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "attachr")
	v.SetDefault("db.password", "attachr_secret")
	v.SetDefault("db.name", "attachr_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)
	v.SetDefault("db.conn_max_lifetime", "30m")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.virtual_host", false)
	v.SetDefault("s3.asset_host", "")
	v.SetDefault("s3.default_acl", "private")
	v.SetDefault("s3.presign_expiry", 300)

	// Storage defaults
	v.SetDefault("storage.backend", "s3")
	v.SetDefault("storage.local.root", "data/attachments")
	v.SetDefault("storage.local.public_url", "/files")
	v.SetDefault("storage.local.signing_secret", "change-me-in-production")

	// Transform defaults
	v.SetDefault("transform.timeout_secs", 15)
	v.SetDefault("transform.concurrency", 4)
	v.SetDefault("transform.temp_dir", "")

	// Definitions defaults
	v.SetDefault("definitions.path", "attachments.yaml")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Log defaults
	v.SetDefault("log.level", "info")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                  "ATTACHR_SERVER_PORT",
		"server.read_timeout":          "ATTACHR_SERVER_READ_TIMEOUT",
		"server.write_timeout":         "ATTACHR_SERVER_WRITE_TIMEOUT",
		"server.environment":           "ATTACHR_SERVER_ENVIRONMENT",
		"server.max_upload_size_mb":    "ATTACHR_SERVER_MAX_UPLOAD_SIZE_MB",
		"server.allowed_origins":       "ATTACHR_SERVER_ALLOWED_ORIGINS",
		"db.host":                      "ATTACHR_DB_HOST",
		"db.port":                      "ATTACHR_DB_PORT",
		"db.user":                      "ATTACHR_DB_USER",
		"db.password":                  "ATTACHR_DB_PASSWORD",
		"db.name":                      "ATTACHR_DB_NAME",
		"db.sslmode":                   "ATTACHR_DB_SSLMODE",
		"db.max_open":                  "ATTACHR_DB_MAX_OPEN",
		"db.max_idle":                  "ATTACHR_DB_MAX_IDLE",
		"db.conn_max_lifetime":         "ATTACHR_DB_CONN_MAX_LIFETIME",
		"s3.region":                    "ATTACHR_S3_REGION",
		"s3.bucket":                    "ATTACHR_S3_BUCKET",
		"s3.endpoint":                  "ATTACHR_S3_ENDPOINT",
		"s3.access_key":                "ATTACHR_S3_ACCESS_KEY",
		"s3.secret_key":                "ATTACHR_S3_SECRET_KEY",
		"s3.virtual_host":              "ATTACHR_S3_VIRTUAL_HOST",
		"s3.asset_host":                "ATTACHR_S3_ASSET_HOST",
		"s3.default_acl":               "ATTACHR_S3_DEFAULT_ACL",
		"s3.presign_expiry":            "ATTACHR_S3_PRESIGN_EXPIRY",
		"storage.backend":              "ATTACHR_STORAGE_BACKEND",
		"storage.local.root":           "ATTACHR_STORAGE_LOCAL_ROOT",
		"storage.local.public_url":     "ATTACHR_STORAGE_LOCAL_PUBLIC_URL",
		"storage.local.signing_secret": "ATTACHR_STORAGE_LOCAL_SIGNING_SECRET",
		"transform.timeout_secs":       "ATTACHR_TRANSFORM_TIMEOUT_SECS",
		"transform.concurrency":        "ATTACHR_TRANSFORM_CONCURRENCY",
		"transform.temp_dir":           "ATTACHR_TRANSFORM_TEMP_DIR",
		"definitions.path":             "ATTACHR_DEFINITIONS_PATH",
		"metrics.enabled":              "ATTACHR_METRICS_ENABLED",
		"metrics.path":                 "ATTACHR_METRICS_PATH",
		"log.level":                    "ATTACHR_LOG_LEVEL",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if ATTACHR_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("ATTACHR_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:          serverPort,
		ReadTimeout:   v.GetDuration("server.read_timeout"),
		WriteTimeout:  v.GetDuration("server.write_timeout"),
		Environment:   v.GetString("server.environment"),
		MaxUploadSize: v.GetInt64("server.max_upload_size_mb"),
	}
	for _, origin := range strings.Split(v.GetString("server.allowed_origins"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.Server.AllowedOrigins = append(cfg.Server.AllowedOrigins, origin)
		}
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),

		ConnMaxLifetime: v.GetDuration("db.conn_max_lifetime"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		VirtualHost:   v.GetBool("s3.virtual_host"),
		AssetHost:     v.GetString("s3.asset_host"),
		DefaultACL:    v.GetString("s3.default_acl"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Storage = StorageConfig{
		Backend: v.GetString("storage.backend"),
		Local: LocalStorageConfig{
			Root:          v.GetString("storage.local.root"),
			PublicURL:     v.GetString("storage.local.public_url"),
			SigningSecret: v.GetString("storage.local.signing_secret"),
		},
	}
	cfg.Transform = TransformConfig{
		TimeoutSecs: v.GetInt("transform.timeout_secs"),
		Concurrency: v.GetInt("transform.concurrency"),
		TempDir:     v.GetString("transform.temp_dir"),
	}
	cfg.Definitions = DefinitionsConfig{
		Path: v.GetString("definitions.path"),
	}
	cfg.Metrics = MetricsConfig{
		Enabled: v.GetBool("metrics.enabled"),
		Path:    v.GetString("metrics.path"),
	}
	cfg.Log = LogConfig{
		Level: v.GetString("log.level"),
	}

	if cfg.Transform.Concurrency <= 0 {
		cfg.Transform.Concurrency = 1
	}

	return cfg, nil
}
