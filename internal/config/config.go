package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPAddr           = ":8080"
	defaultJWTSecret          = "change-me-jwt-secret"
	defaultJWTTTL             = "24h"
	defaultStorageDriver      = "local"
	defaultStorageLocalDir    = "./uploads"
	defaultStoragePublicBase  = "/static/uploads"
	defaultS3Region           = "auto"
	defaultSyncTickInterval   = "5m"
	defaultSourceFetchTimeout = "60s"
	defaultExpirationInterval = "24h"
	defaultArchiveChunkBytes  = 250 * 1024 * 1024
	defaultUploadConcurrency  = 4
	defaultUploadMaxBytes     = 100 * 1024 * 1024
	defaultSharedFolderAPIURL = "https://cloud-api.yandex.net/v1/disk/public/resources"
	defaultScraperUserAgent   = "photogallery-sync/1.0"
	defaultSectionLockTTL     = "15m"
	defaultDriveAPIURL        = "https://www.googleapis.com/drive/v3"
)

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

type Config struct {
	AppEnv   string
	HTTPAddr string
	LogLevel string

	DatabaseURL string
	JWTSecret   string
	JWTTTL      time.Duration

	CORSAllowedOrigins []string

	StorageDriver        string
	StorageLocalDir      string
	StoragePublicBaseURL string
	S3                   S3Config
	Minio                MinioConfig

	Redis       RedisConfig
	RabbitMQURL string
	Google      GoogleConfig

	DriveAPIURL        string
	SharedFolderAPIURL string
	ScraperUserAgent   string

	SyncTickInterval   time.Duration
	SourceFetchTimeout time.Duration
	SectionLockTTL     time.Duration
	ExpirationInterval time.Duration
	ArchiveChunkBytes  int64
	UploadConcurrency  int64
	UploadMaxBytes     int64
	RunBackgroundJobs  bool
}

// Load reads the process configuration from the environment.
// A missing DATABASE_URL is fatal for every binary, so it is rejected here.
func Load() (*Config, error) {
	cfg := &Config{}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.LogLevel = strings.TrimSpace(getEnv("LOG_LEVEL", "info"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.CORSAllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))

	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(getEnv("STORAGE_DRIVER", defaultStorageDriver)))
	cfg.StorageLocalDir = strings.TrimSpace(getEnv("STORAGE_LOCAL_DIR", defaultStorageLocalDir))
	cfg.StoragePublicBaseURL = strings.TrimRight(strings.TrimSpace(getEnv("STORAGE_PUBLIC_BASE_URL", defaultStoragePublicBase)), "/")

	cfg.S3 = S3Config{
		Bucket:    strings.TrimSpace(os.Getenv("S3_BUCKET")),
		Region:    strings.TrimSpace(getEnv("S3_REGION", defaultS3Region)),
		Endpoint:  strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
		AccessKey: strings.TrimSpace(os.Getenv("S3_ACCESS_KEY")),
		SecretKey: strings.TrimSpace(os.Getenv("S3_SECRET_KEY")),
	}
	cfg.Minio = MinioConfig{
		Endpoint:  strings.TrimSpace(os.Getenv("MINIO_ENDPOINT")),
		AccessKey: strings.TrimSpace(os.Getenv("MINIO_ACCESS_KEY")),
		SecretKey: strings.TrimSpace(os.Getenv("MINIO_SECRET_KEY")),
		Bucket:    strings.TrimSpace(os.Getenv("MINIO_BUCKET")),
		UseSSL:    parseBoolEnv("MINIO_USE_SSL", "false"),
	}

	cfg.Redis.Addr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	cfg.RabbitMQURL = strings.TrimSpace(os.Getenv("RABBITMQ_URL"))
	cfg.Google = GoogleConfig{
		ClientID:     strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID")),
		ClientSecret: strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_SECRET")),
		CallbackURL:  strings.TrimSpace(os.Getenv("GOOGLE_CALLBACK_URL")),
	}
	cfg.DriveAPIURL = strings.TrimRight(strings.TrimSpace(getEnv("DRIVE_API_URL", defaultDriveAPIURL)), "/")
	cfg.SharedFolderAPIURL = strings.TrimSpace(getEnv("SHARED_FOLDER_API_URL", defaultSharedFolderAPIURL))
	cfg.ScraperUserAgent = strings.TrimSpace(getEnv("SCRAPER_USER_AGENT", defaultScraperUserAgent))
	cfg.RunBackgroundJobs = parseBoolEnv("RUN_BACKGROUND_JOBS", "false")

	var err error
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL); err != nil {
		return nil, err
	}
	if cfg.SyncTickInterval, err = parseDurationEnv("SYNC_TICK_INTERVAL", defaultSyncTickInterval); err != nil {
		return nil, err
	}
	if cfg.SourceFetchTimeout, err = parseDurationEnv("SOURCE_FETCH_TIMEOUT", defaultSourceFetchTimeout); err != nil {
		return nil, err
	}
	if cfg.SectionLockTTL, err = parseDurationEnv("SECTION_LOCK_TTL", defaultSectionLockTTL); err != nil {
		return nil, err
	}
	if cfg.ExpirationInterval, err = parseDurationEnv("EXPIRATION_INTERVAL", defaultExpirationInterval); err != nil {
		return nil, err
	}
	if cfg.Redis.DB, err = parseIntEnv("REDIS_DB", 0); err != nil {
		return nil, err
	}
	chunk, err := parseIntEnv("ARCHIVE_CHUNK_BYTES", defaultArchiveChunkBytes)
	if err != nil {
		return nil, err
	}
	cfg.ArchiveChunkBytes = int64(chunk)
	conc, err := parseIntEnv("UPLOAD_CONCURRENCY", defaultUploadConcurrency)
	if err != nil {
		return nil, err
	}
	cfg.UploadConcurrency = int64(conc)
	maxBytes, err := parseIntEnv("UPLOAD_MAX_BYTES", defaultUploadMaxBytes)
	if err != nil {
		return nil, err
	}
	cfg.UploadMaxBytes = int64(maxBytes)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	log.Printf("runtime config: env=%s storage=%s redis=%t rabbitmq=%t", cfg.AppEnv, cfg.StorageDriver, cfg.Redis.Addr != "", cfg.RabbitMQURL != "")

	return cfg, nil
}

// IsProd reports whether the process runs in a production-like environment.
func (c *Config) IsProd() bool {
	return isProdLike(c.AppEnv)
}

func validateConfig(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	switch cfg.StorageDriver {
	case "local", "s3", "minio":
	default:
		return fmt.Errorf("STORAGE_DRIVER must be one of: local, s3, minio")
	}
	if cfg.StorageLocalDir == "" {
		return fmt.Errorf("STORAGE_LOCAL_DIR must not be empty")
	}
	if cfg.SyncTickInterval <= 0 {
		return fmt.Errorf("SYNC_TICK_INTERVAL must be > 0")
	}
	if cfg.SourceFetchTimeout <= 0 {
		return fmt.Errorf("SOURCE_FETCH_TIMEOUT must be > 0")
	}
	if cfg.SectionLockTTL <= 0 {
		return fmt.Errorf("SECTION_LOCK_TTL must be > 0")
	}
	if cfg.ExpirationInterval <= 0 {
		return fmt.Errorf("EXPIRATION_INTERVAL must be > 0")
	}
	if cfg.ArchiveChunkBytes <= 0 {
		return fmt.Errorf("ARCHIVE_CHUNK_BYTES must be > 0")
	}
	if cfg.UploadConcurrency <= 0 {
		return fmt.Errorf("UPLOAD_CONCURRENCY must be > 0")
	}
	if cfg.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be > 0")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
