package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Sessions (opaque, absolute expiry)
	SessionTTL time.Duration

	// Email tokens
	VerifyTokenTTL time.Duration
	ResetTokenTTL  time.Duration

	// Login attempt guard
	MaxLoginAttempts int
	AttemptWindow    time.Duration
	LockoutDuration  time.Duration
	AttemptRetention time.Duration

	// Referral codes
	ReferralCodeLength int
	ReferralMaxRetries int

	// Login providers
	TelegramBotToken   string
	GoogleClientID     string
	GitHubClientID     string
	GitHubStateSecret  string
	ProviderAuthWindow time.Duration

	// Password policy
	PasswordMinEntropy float64

	// Outbound email
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string
	BaseURL      string

	// Uploaded avatars are served under this prefix; provider avatars
	// never overwrite a locally uploaded one.
	UploadURLPrefix string

	// Server
	Port        string
	CORSOrigins string
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "mingle_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		SessionTTL: parseDuration(getEnv("SESSION_TTL", "720h"), 720*time.Hour),

		VerifyTokenTTL: parseDuration(getEnv("VERIFY_TOKEN_TTL", "24h"), 24*time.Hour),
		ResetTokenTTL:  parseDuration(getEnv("RESET_TOKEN_TTL", "1h"), time.Hour),

		MaxLoginAttempts: parseInt(getEnv("MAX_LOGIN_ATTEMPTS", "5"), 5),
		AttemptWindow:    parseDuration(getEnv("ATTEMPT_WINDOW", "15m"), 15*time.Minute),
		LockoutDuration:  parseDuration(getEnv("LOCKOUT_DURATION", "30m"), 30*time.Minute),
		AttemptRetention: parseDuration(getEnv("ATTEMPT_RETENTION", "24h"), 24*time.Hour),

		ReferralCodeLength: parseInt(getEnv("REFERRAL_CODE_LENGTH", "8"), 8),
		ReferralMaxRetries: parseInt(getEnv("REFERRAL_MAX_RETRIES", "5"), 5),

		TelegramBotToken:   getEnv("TELEGRAM_BOT_TOKEN", ""),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GitHubClientID:     getEnv("GITHUB_CLIENT_ID", ""),
		GitHubStateSecret:  getEnv("GITHUB_STATE_SECRET", ""),
		ProviderAuthWindow: parseDuration(getEnv("PROVIDER_AUTH_WINDOW", "24h"), 24*time.Hour),

		PasswordMinEntropy: parseFloat(getEnv("PASSWORD_MIN_ENTROPY", "40"), 40),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     parseInt(getEnv("SMTP_PORT", "587"), 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		EmailFrom:    getEnv("EMAIL_FROM", "no-reply@mingle.app"),
		BaseURL:      getEnv("BASE_URL", "http://localhost:8080"),

		UploadURLPrefix: getEnv("UPLOAD_URL_PREFIX", "/uploads/"),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(s string, fallback float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return f
}
