package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the runtime configuration of the folio server and CLI, read from
// the environment.
type Config struct {
	Environment string `env:"ENVIRONMENT" env-default:"development" validate:"oneof=development production testing"`

	DB      DbConfig
	Storage StorageConfig
	S3      S3Config
	Auth    AuthConfig

	MaxUploadBytes  int64    `env:"FOLIO_MAX_UPLOAD_BYTES" env-default:"10485760" validate:"gt=0"`
	MetricsEnabled  bool     `env:"FOLIO_METRICS_ENABLED" env-default:"true"`
	ObjectKeyLayout string   `env:"FOLIO_OBJECT_KEY_LAYOUT" env-default:"flat" validate:"oneof=flat sharded"`
	CORSOrigins     []string `env:"FOLIO_CORS_ORIGINS" env-separator:","`
	CacheMaxAge     int      `env:"FOLIO_CACHE_MAX_AGE" env-default:"0" validate:"gte=0"`
}

type DbConfig struct {
	Type        string `env:"FOLIO_DB_TYPE" env-default:"memory" validate:"oneof=memory postgres sqlite"`
	URL         string `env:"DATABASE_URL"`
	Port        uint16 `env:"CONTENT_PG_PORT" env-default:"5432"`
	Host        string `env:"CONTENT_PG_HOST" env-default:"localhost"`
	Name        string `env:"CONTENT_PG_NAME" env-default:"folio"`
	User        string `env:"CONTENT_PG_USER" env-default:"folio"`
	Password    string `env:"CONTENT_PG_PASSWORD" env-default:"pwd"`
	MaxConns    int32  `env:"FOLIO_DB_MAX_CONNS" env-default:"4" validate:"gt=0"`
	AutoMigrate bool   `env:"FOLIO_DB_AUTO_MIGRATE" env-default:"true"`
	SQLitePath  string `env:"FOLIO_SQLITE_PATH" env-default:"./data/folio.db"`
}

type StorageConfig struct {
	Type      string `env:"FOLIO_STORAGE_TYPE" env-default:"memory" validate:"oneof=memory fs s3"`
	BaseDir   string `env:"FOLIO_FS_BASE_DIR" env-default:"./data/assets"`
	URLPrefix string `env:"FOLIO_ASSET_URL_PREFIX" env-default:"/assets"`
}

type S3Config struct {
	Endpoint        string `env:"AWS_S3_ENDPOINT"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	BucketName      string `env:"AWS_S3_BUCKET"`
	Region          string `env:"AWS_S3_REGION" env-default:"us-east-1"`
	UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
	PublicRead      bool   `env:"AWS_S3_PUBLIC_READ" env-default:"false"`
	PublicBaseURL   string `env:"FOLIO_PUBLIC_BASE_URL" validate:"omitempty,url"`
	EnableSSE       bool   `env:"AWS_S3_ENABLE_SSE" env-default:"false"`
	SSEAlgorithm    string `env:"AWS_S3_SSE_ALGORITHM" env-default:"AES256" validate:"oneof=AES256 aws:kms"`
	SSEKMSKeyID     string `env:"AWS_S3_SSE_KMS_KEY_ID"`
	CreateBucket    bool   `env:"AWS_S3_CREATE_BUCKET" env-default:"false"`
}

type AuthConfig struct {
	AdminEmails    string        `env:"ADMIN_EMAIL"`
	Secret         string        `env:"AUTH_SECRET"`
	SessionTTL     time.Duration `env:"AUTH_SESSION_TTL" env-default:"12h" validate:"gt=0"`
	IdentityHeader string        `env:"AUTH_IDENTITY_HEADER" env-default:"X-Forwarded-Email"`
	Disabled       bool          `env:"AUTH_DISABLED" env-default:"false"`

	// Sign-in is only mounted when the proxy proves itself with this secret.
	ProxySecret       string `env:"AUTH_PROXY_SECRET"`
	ProxySecretHeader string `env:"AUTH_PROXY_SECRET_HEADER" env-default:"X-Folio-Proxy-Secret"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg, err := ReadEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAuth(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadEnv is Load without the auth checks. Offline tools that never serve
// requests use it.
func ReadEnv() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := cfg.validateStores(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Usage describes every variable Load reads.
func Usage() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return err.Error()
	}
	return text
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the rules spanning several fields.
func (c *Config) Validate() error {
	if err := c.validateStores(); err != nil {
		return err
	}
	return c.validateAuth()
}

func (c *Config) validateStores() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Storage.Type == "s3" && c.S3.BucketName == "" {
		return errors.New("AWS_S3_BUCKET is required when FOLIO_STORAGE_TYPE=s3")
	}
	if c.Storage.Type == "fs" && c.Storage.BaseDir == "" {
		return errors.New("FOLIO_FS_BASE_DIR is required when FOLIO_STORAGE_TYPE=fs")
	}
	if c.DB.Type == "sqlite" && c.DB.SQLitePath == "" {
		return errors.New("FOLIO_SQLITE_PATH is required when FOLIO_DB_TYPE=sqlite")
	}
	return nil
}

func (c *Config) validateAuth() error {
	if !c.Auth.Disabled {
		if c.Auth.Secret == "" {
			return errors.New("AUTH_SECRET is required unless AUTH_DISABLED=true")
		}
		if c.Auth.AdminEmails == "" {
			return errors.New("ADMIN_EMAIL is required unless AUTH_DISABLED=true")
		}
	} else if c.Environment == "production" {
		return errors.New("AUTH_DISABLED is not allowed in production")
	}

	return nil
}

// DatabaseURL returns DATABASE_URL, or a URL assembled from the CONTENT_PG_*
// variables when it is unset.
func (c DbConfig) DatabaseURL() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}
	return u.String()
}
