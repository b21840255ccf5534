package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageS3    = "s3"
	StorageMinio = "minio"
	StorageLocal = "local"
)

const mib = 1024 * 1024

type Config struct {
	Env  string
	Port int

	CORS        CORSConfig
	Log         LogConfig
	Mail        MailConfig
	Storage     StorageConfig
	Limits      LimitsConfig
	Redis       RedisConfig
	Idempotency IdempotencyConfig
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MailConfig configures the transactional email provider and recipients.
type MailConfig struct {
	APIKey              string
	APIKeySecretID      string
	SourceEmail         string
	CompetitionEmail    string
	DestinationEmail    string
	AsyncConfirmations  bool
	ConfirmationRetries int
	AttachReceipt       bool
}

// StorageConfig selects and configures the object storage backend.
type StorageConfig struct {
	Driver         string
	Bucket         string
	Region         string
	Endpoint       string
	ForcePathStyle bool

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool

	LocalDir           string
	LocalSigningSecret string
	PublicBaseURL      string

	UploadURLTTL time.Duration
}

// LimitsConfig holds the file size ceilings for both submission paths.
type LimitsConfig struct {
	MaxUploadSize      int64
	MaxAttachmentSize  int64
	LargeFileThreshold int64
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// IdempotencyConfig toggles duplicate-submission suppression.
type IdempotencyConfig struct {
	Enabled bool
	TTL     time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	competition := v.GetString("COMPETITION_EMAIL")
	destination := v.GetString("DESTINATION_EMAIL")
	if destination == "" {
		destination = competition
	}
	cfg.Mail = MailConfig{
		APIKey:              v.GetString("RESEND_API_KEY"),
		APIKeySecretID:      v.GetString("RESEND_API_KEY_SECRET_ID"),
		SourceEmail:         v.GetString("SOURCE_EMAIL"),
		CompetitionEmail:    competition,
		DestinationEmail:    destination,
		AsyncConfirmations:  v.GetBool("ASYNC_CONFIRMATIONS"),
		ConfirmationRetries: v.GetInt("CONFIRMATION_RETRIES"),
		AttachReceipt:       v.GetBool("ATTACH_RECEIPT_PDF"),
	}

	cfg.Storage = StorageConfig{
		Driver:             strings.ToLower(v.GetString("STORAGE_DRIVER")),
		Bucket:             v.GetString("S3_BUCKET_NAME"),
		Region:             v.GetString("AWS_REGION"),
		Endpoint:           v.GetString("S3_ENDPOINT"),
		ForcePathStyle:     v.GetBool("S3_FORCE_PATH_STYLE"),
		MinioEndpoint:      v.GetString("MINIO_ENDPOINT"),
		MinioAccessKey:     v.GetString("MINIO_ACCESS_KEY"),
		MinioSecretKey:     v.GetString("MINIO_SECRET_KEY"),
		MinioUseSSL:        v.GetBool("MINIO_USE_SSL"),
		LocalDir:           v.GetString("LOCAL_STORAGE_DIR"),
		LocalSigningSecret: v.GetString("LOCAL_SIGNING_SECRET"),
		PublicBaseURL:      strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		UploadURLTTL:       parseDuration(v.GetString("UPLOAD_URL_TTL"), time.Hour),
	}

	cfg.Limits = LimitsConfig{
		MaxUploadSize:      positiveOr(v.GetInt64("MAX_UPLOAD_SIZE"), 500*mib),
		MaxAttachmentSize:  positiveOr(v.GetInt64("MAX_ATTACHMENT_SIZE"), 50*mib),
		LargeFileThreshold: positiveOr(v.GetInt64("LARGE_FILE_THRESHOLD"), 5*mib),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Idempotency = IdempotencyConfig{
		Enabled: v.GetBool("IDEMPOTENCY_ENABLED"),
		TTL:     parseDuration(v.GetString("IDEMPOTENCY_TTL"), 24*time.Hour),
	}

	return cfg
}

// Validate reports configuration that would make the service unusable.
// The API key may be absent when it is resolved from a secret at startup.
func (c *Config) Validate() error {
	var problems []string
	if c.Mail.APIKey == "" && c.Mail.APIKeySecretID == "" {
		problems = append(problems, "RESEND_API_KEY environment variable is not set")
	}
	if c.Mail.SourceEmail == "" {
		problems = append(problems, "SOURCE_EMAIL environment variable is not set")
	}
	if c.Mail.CompetitionEmail == "" {
		problems = append(problems, "COMPETITION_EMAIL environment variable is not set")
	}
	switch c.Storage.Driver {
	case StorageS3:
		if c.Storage.Bucket == "" {
			problems = append(problems, "S3_BUCKET_NAME environment variable is not set")
		}
	case StorageMinio:
		if c.Storage.Bucket == "" {
			problems = append(problems, "S3_BUCKET_NAME environment variable is not set")
		}
		if c.Storage.MinioEndpoint == "" {
			problems = append(problems, "MINIO_ENDPOINT environment variable is not set")
		}
	case StorageLocal:
		if c.Storage.LocalSigningSecret == "" {
			problems = append(problems, "LOCAL_SIGNING_SECRET environment variable is not set")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported STORAGE_DRIVER %q", c.Storage.Driver))
	}
	if c.Limits.LargeFileThreshold > c.Limits.MaxUploadSize {
		problems = append(problems, "LARGE_FILE_THRESHOLD exceeds MAX_UPLOAD_SIZE")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("RESEND_API_KEY", "")
	v.SetDefault("RESEND_API_KEY_SECRET_ID", "")
	v.SetDefault("SOURCE_EMAIL", "")
	v.SetDefault("COMPETITION_EMAIL", "neurotechscholars@gmail.com")
	v.SetDefault("DESTINATION_EMAIL", "")
	v.SetDefault("ASYNC_CONFIRMATIONS", false)
	v.SetDefault("CONFIRMATION_RETRIES", 3)
	v.SetDefault("ATTACH_RECEIPT_PDF", true)

	v.SetDefault("STORAGE_DRIVER", StorageS3)
	v.SetDefault("S3_BUCKET_NAME", "")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_FORCE_PATH_STYLE", false)
	v.SetDefault("MINIO_ENDPOINT", "")
	v.SetDefault("MINIO_ACCESS_KEY", "")
	v.SetDefault("MINIO_SECRET_KEY", "")
	v.SetDefault("MINIO_USE_SSL", true)
	v.SetDefault("LOCAL_STORAGE_DIR", "./uploads")
	v.SetDefault("LOCAL_SIGNING_SECRET", "dev_local_uploads_secret")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("UPLOAD_URL_TTL", "1h")

	v.SetDefault("MAX_UPLOAD_SIZE", 500*mib)
	v.SetDefault("MAX_ATTACHMENT_SIZE", 50*mib)
	v.SetDefault("LARGE_FILE_THRESHOLD", 5*mib)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("IDEMPOTENCY_ENABLED", false)
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func positiveOr(value, fallback int64) int64 {
	if value <= 0 {
		return fallback
	}
	return value
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
