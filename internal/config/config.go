package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=kada port=5432 sslmode=disable"

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string
	LogLevel    string

	// empty disables the dashboard cache and the rollover lock
	RedisAddress string

	FirestoreProjectID       string
	FirestoreCredentialsJSON string
	MirrorWriteTimeout       time.Duration

	GCSBucket          string
	GCSCredentialsJSON string

	PubSubProjectID       string
	PubSubCredentialsJSON string
	PushTopic             string

	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string
	RazorpayBaseURL       string

	BusinessTimezone string
	TrialDays        int
	RolloverEnabled  bool
}

func Load() *Config {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		DatabaseDSN: getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		CORSOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		RedisAddress: getEnv("REDIS_ADDRESS", ""),

		FirestoreProjectID:       getEnv("FIRESTORE_PROJECT_ID", ""),
		FirestoreCredentialsJSON: getEnv("FIRESTORE_CREDENTIALS_JSON", ""),
		MirrorWriteTimeout:       getDuration("MIRROR_WRITE_TIMEOUT", 5*time.Second),

		GCSBucket:          getEnv("GCS_BUCKET", ""),
		GCSCredentialsJSON: getEnv("GCS_CREDENTIALS_JSON", ""),

		PubSubProjectID:       getEnv("PUBSUB_PROJECT_ID", getEnv("GOOGLE_CLOUD_PROJECT", "")),
		PubSubCredentialsJSON: getEnv("PUBSUB_CREDENTIALS_JSON", ""),
		PushTopic:             getEnv("PUSH_TOPIC", "kada-push"),

		RazorpayKeyID:         getEnv("RAZORPAY_KEY_ID", ""),
		RazorpayKeySecret:     getEnv("RAZORPAY_KEY_SECRET", ""),
		RazorpayWebhookSecret: getEnv("RAZORPAY_WEBHOOK_SECRET", ""),
		RazorpayBaseURL:       getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com"),

		BusinessTimezone: getEnv("BUSINESS_TIMEZONE", "Asia/Kolkata"),
		TrialDays:        getInt("TRIAL_DAYS", 14),
		RolloverEnabled:  getBool("ROLLOVER_ENABLED", true),
	}

	logger := GetLogger()
	SetLevel(cfg.LogLevel)

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}
	if len(cfg.JWTSecret) < 32 {
		logger.Fatal("JWT_SECRET must be at least 32 characters")
	}
	if cfg.DatabaseDSN == defaultDSN {
		logger.Warn("DATABASE_DSN is using the local default")
	}
	if cfg.CORSOrigins == "http://localhost:5173" {
		logger.Warn("CORS_ALLOWED_ORIGINS is using the local default")
	}
	if cfg.FirestoreProjectID == "" {
		logger.Warn("FIRESTORE_PROJECT_ID is not set, the mirror runs in memory")
	}

	return cfg
}

// Location returns the business timezone, falling back to IST.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.BusinessTimezone)
	if err != nil {
		return time.FixedZone("IST", 5*60*60+30*60)
	}
	return loc
}

// CORSOriginList splits the comma separated origin list.
func (c *Config) CORSOriginList() []string {
	origins := strings.Split(c.CORSOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
