package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage backend identifiers.
const (
	StorageBackendS3    = "s3"
	StorageBackendLocal = "local"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Uploads  UploadConfig
	Quota    QuotaConfig
	Storage  StorageConfig
	Tasks    TasksConfig
	Usage    UsageStatsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// UploadConfig bounds multipart uploads on the processing endpoints.
type UploadConfig struct {
	MaxFileSizeBytes int64
	MaxFilesPerJob   int
}

// QuotaConfig controls admission limits for guest callers.
type QuotaConfig struct {
	GuestDailyLimit int
}

// StorageConfig selects and configures the artifact store backend.
type StorageConfig struct {
	Backend string

	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3Endpoint     string
	S3PublicBase   string
	PresignURLs    bool
	PresignExpires time.Duration

	LocalDir        string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

// TasksConfig tunes the background task queue for post-completion side effects.
type TasksConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// UsageStatsConfig governs the usage statistics endpoint cache.
type UsageStatsConfig struct {
	CacheTTL time.Duration
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxUpload := v.GetInt64("MAX_FILE_SIZE")
	if maxUpload <= 0 {
		maxUpload = 50 * 1024 * 1024
	}
	maxFiles := v.GetInt("MAX_FILES_PER_JOB")
	if maxFiles <= 0 {
		maxFiles = 10
	}
	cfg.Uploads = UploadConfig{
		MaxFileSizeBytes: maxUpload,
		MaxFilesPerJob:   maxFiles,
	}

	guestLimit := v.GetInt("GUEST_DAILY_LIMIT")
	if guestLimit <= 0 {
		guestLimit = 3
	}
	cfg.Quota = QuotaConfig{GuestDailyLimit: guestLimit}

	cfg.Storage = StorageConfig{
		Backend:         strings.ToLower(v.GetString("STORAGE_BACKEND")),
		S3Region:        v.GetString("S3_REGION"),
		S3Bucket:        v.GetString("S3_BUCKET"),
		S3AccessKey:     v.GetString("S3_ACCESS_KEY"),
		S3SecretKey:     v.GetString("S3_SECRET_KEY"),
		S3Endpoint:      v.GetString("S3_ENDPOINT"),
		S3PublicBase:    v.GetString("S3_PUBLIC_BASE_URL"),
		PresignURLs:     v.GetBool("S3_PRESIGN_URLS"),
		PresignExpires:  parseDuration(v.GetString("S3_PRESIGN_EXPIRES"), 24*time.Hour),
		LocalDir:        v.GetString("STORAGE_LOCAL_DIR"),
		SignedURLSecret: v.GetString("STORAGE_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("STORAGE_SIGNED_URL_TTL"), 24*time.Hour),
	}

	cfg.Tasks = TasksConfig{
		Workers:    v.GetInt("TASKS_WORKERS"),
		BufferSize: v.GetInt("TASKS_BUFFER_SIZE"),
		MaxRetries: v.GetInt("TASKS_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("TASKS_RETRY_DELAY"), time.Second),
	}

	cfg.Usage = UsageStatsConfig{
		CacheTTL: parseDuration(v.GetString("USAGE_STATS_CACHE_TTL"), time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "pdf_api")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("MAX_FILE_SIZE", 50*1024*1024)
	v.SetDefault("MAX_FILES_PER_JOB", 10)
	v.SetDefault("GUEST_DAILY_LIMIT", 3)

	v.SetDefault("STORAGE_BACKEND", StorageBackendLocal)
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_BUCKET", "processed-files")
	v.SetDefault("S3_PRESIGN_URLS", false)
	v.SetDefault("S3_PRESIGN_EXPIRES", "24h")
	v.SetDefault("STORAGE_LOCAL_DIR", "./processed")
	v.SetDefault("STORAGE_SIGNED_URL_SECRET", "dev_storage_secret")
	v.SetDefault("STORAGE_SIGNED_URL_TTL", "24h")

	v.SetDefault("TASKS_WORKERS", 2)
	v.SetDefault("TASKS_BUFFER_SIZE", 64)
	v.SetDefault("TASKS_MAX_RETRIES", 3)
	v.SetDefault("TASKS_RETRY_DELAY", "1s")

	v.SetDefault("USAGE_STATS_CACHE_TTL", "1m")
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
