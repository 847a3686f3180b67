package config

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL string `mapstructure:"database_url"`
	RedisURL    string `mapstructure:"redis_url"`
	Port        string `mapstructure:"port"`
	CORSOrigin  string `mapstructure:"cors_origin"`

	// Supabase
	SupabaseURL       string `mapstructure:"supabase_url"`
	SupabaseJWTSecret string `mapstructure:"supabase_jwt_secret"`

	// Organization given to profiles whose token names none
	DefaultOrgID string `mapstructure:"default_org_id"`

	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`

	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	AuditBufferSize int           `mapstructure:"audit_buffer_size"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

// StorageConfig points at the S3-compatible object store (Supabase Storage).
type StorageConfig struct {
	Endpoint     string        `mapstructure:"endpoint"`
	Region       string        `mapstructure:"region"`
	AccessKey    string        `mapstructure:"access_key"`
	SecretKey    string        `mapstructure:"secret_key"`
	UsePathStyle bool          `mapstructure:"use_path_style"`
	SignedURLTTL time.Duration `mapstructure:"signed_url_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// App holds the global config instance
var App Config

// LoadConfig loads configuration from file and environment variables
func LoadConfig(path string) error {
	// .env is a local development convenience; it is usually absent in containers
	if err := godotenv.Load(); err == nil {
		logrus.Info("Loaded .env file")
	}

	v := viper.New()

	v.SetDefault("port", "8080")
	v.SetDefault("cors_origin", "*")
	v.SetDefault("default_org_id", "00000000-0000-0000-0000-000000000001")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.use_path_style", true)
	v.SetDefault("storage.signed_url_ttl", time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("read_timeout", 10*time.Second)
	v.SetDefault("audit_buffer_size", 256)
	v.SetDefault("max_upload_bytes", 50<<20)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("dev.config") // dev.config.yaml
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("execdash")

	// Standard keys used by Docker and the Supabase CLI
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("redis_url", "REDIS_URL")
	_ = v.BindEnv("port", "PORT")

	_ = v.BindEnv("supabase_url", "SUPABASE_URL")
	_ = v.BindEnv("supabase_jwt_secret", "SUPABASE_JWT_SECRET")

	_ = v.BindEnv("storage.endpoint", "S3_ENDPOINT")
	_ = v.BindEnv("storage.region", "S3_REGION")
	_ = v.BindEnv("storage.access_key", "S3_ACCESS_KEY")
	_ = v.BindEnv("storage.secret_key", "S3_SECRET_KEY")
	_ = v.BindEnv("storage.signed_url_ttl", "SIGNED_URL_TTL")

	_ = v.BindEnv("log.level", "LOG_LEVEL")
	_ = v.BindEnv("log.format", "LOG_FORMAT")

	_ = v.BindEnv("default_org_id", "DEFAULT_ORG_ID")
	_ = v.BindEnv("read_timeout", "READ_TIMEOUT")
	_ = v.BindEnv("audit_buffer_size", "AUDIT_BUFFER_SIZE")

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		logrus.Debug("No config file found, using defaults and environment variables")
	} else {
		logrus.Infof("Loaded config from: %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return err
	}
	App = cfg
	return nil
}

// ConfigureLogger applies the log settings to the standard logrus logger.
func ConfigureLogger(c LogConfig) error {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	if c.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
