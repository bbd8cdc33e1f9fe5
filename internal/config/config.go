package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	LogFile  string
	SeedDemo bool

	KVBackend    string // sqlite | redis
	DBDSN        string
	RedisURL     string
	StoreTimeout time.Duration

	BlobBackend     string // fs | s3
	MediaDir        string
	PublicBaseURL   string
	S3Bucket        string
	S3Region        string
	S3PublicBaseURL string

	AdminAccessCode string

	MaxAdminUploadBytes    int64
	MaxCustomerUploadBytes int64

	NotifyWebhookURL string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("[config] %s=%q is not a number, using %d", key, v, def)
	}
	return def
}

func Load() Config {
	// .env is optional
	if err := godotenv.Load(); err == nil {
		log.Printf("[config] loaded .env")
	}

	port := getenv("PORT", "8080")
	timeout, err := time.ParseDuration(getenv("STORE_TIMEOUT", "5s"))
	if err != nil || timeout <= 0 {
		timeout = 5 * time.Second
	}
	seed, _ := strconv.ParseBool(os.Getenv("SEED_DEMO"))

	cfg := Config{
		Port:     port,
		LogFile:  os.Getenv("LOG_FILE"),
		SeedDemo: seed,

		KVBackend:    getenv("KV_BACKEND", "sqlite"),
		DBDSN:        getenv("DB_DSN", "autolot.db"),
		RedisURL:     os.Getenv("REDIS_URL"),
		StoreTimeout: timeout,

		BlobBackend:     getenv("BLOB_BACKEND", "fs"),
		MediaDir:        getenv("MEDIA_DIR", "./media"),
		PublicBaseURL:   getenv("PUBLIC_BASE_URL", "http://localhost:"+port),
		S3Bucket:        os.Getenv("S3_BUCKET"),
		S3Region:        os.Getenv("S3_REGION"),
		S3PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),

		AdminAccessCode: os.Getenv("ADMIN_ACCESS_CODE"),

		MaxAdminUploadBytes:    int64(getenvInt("MAX_ADMIN_UPLOAD_MB", 100)) << 20,
		MaxCustomerUploadBytes: int64(getenvInt("MAX_CUSTOMER_UPLOAD_MB", 50)) << 20,

		NotifyWebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
	}
	log.Printf("[config] PORT=%s KV_BACKEND=%s BLOB_BACKEND=%s MEDIA_DIR=%s STORE_TIMEOUT=%s ADMIN_ACCESS_CODE=%s",
		cfg.Port, cfg.KVBackend, cfg.BlobBackend, cfg.MediaDir, cfg.StoreTimeout, mask(cfg.AdminAccessCode))
	if cfg.AdminAccessCode == "" {
		log.Printf("[config] ADMIN_ACCESS_CODE not set: admin routes will refuse every request")
	}
	return cfg
}

func mask(s string) string {
	if s == "" {
		return "<unset>"
	}
	return "****"
}
