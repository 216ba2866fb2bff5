package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	// DefaultJWTSecret only exists so development works without a .env file.
	DefaultJWTSecret = "defaultsecret"
	minJWTSecretLen  = 32
)

type Config struct {
	AppEnv         string
	APIPort        string
	AppBaseURL     string
	AllowedOrigins []string
	JWTKey         []byte
	ExportLinkTTL  time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	DBMaxOpenConns int
	DBMaxIdleConns int
	DBConnLifetime time.Duration

	// AutoMigrate applies pending migrations when the server starts.
	AutoMigrate bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTPTTL            time.Duration
	OTPIPLimit        int
	OTPIPWindow       time.Duration
	OTPEmailLimit     int
	OTPEmailWindow    time.Duration
	AdminLoginLimit   int
	AdminLoginWindow  time.Duration
	AdminSessionTTL   time.Duration
	SessionLifetime   time.Duration
	CacheTTL          time.Duration
	CacheSweepEvery   time.Duration
	MaintenanceEvery  time.Duration
	MailQueueName     string
	MailFrom          string
	SMTPHost          string
	SMTPPort          int
	SMTPUser          string
	SMTPPassword      string
	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PublicBaseURL   string
	MaxUploadBytes    int64
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		AppEnv:         getEnv("APP_ENV", EnvDevelopment),
		APIPort:        getEnv("API_PORT", "8080"),
		AppBaseURL:     strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:8080"), "/"),
		AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		JWTKey:         []byte(getEnv("JWT_SECRET", DefaultJWTSecret)),
		ExportLinkTTL:  time.Duration(getEnvAsInt("EXPORT_LINK_TTL_MINUTES", 5)) * time.Minute,

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "user"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "hackathon_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBConnLifetime: time.Duration(getEnvAsInt("DB_CONN_LIFETIME_MINUTES", 5)) * time.Minute,

		AutoMigrate: getEnvAsBool("AUTO_MIGRATE", true),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		OTPTTL:           time.Duration(getEnvAsInt("OTP_TTL_MINUTES", 10)) * time.Minute,
		OTPIPLimit:       getEnvAsInt("OTP_IP_LIMIT", 10),
		OTPIPWindow:      time.Duration(getEnvAsInt("OTP_IP_WINDOW_MINUTES", 60)) * time.Minute,
		OTPEmailLimit:    getEnvAsInt("OTP_EMAIL_LIMIT", 3),
		OTPEmailWindow:   time.Duration(getEnvAsInt("OTP_EMAIL_WINDOW_MINUTES", 10)) * time.Minute,
		AdminLoginLimit:  getEnvAsInt("ADMIN_LOGIN_LIMIT", 5),
		AdminLoginWindow: time.Duration(getEnvAsInt("ADMIN_LOGIN_WINDOW_MINUTES", 15)) * time.Minute,
		AdminSessionTTL:  time.Duration(getEnvAsInt("ADMIN_SESSION_HOURS", 8)) * time.Hour,
		SessionLifetime:  time.Duration(getEnvAsInt("SESSION_DAYS", 30)) * 24 * time.Hour,
		CacheTTL:         time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 300)) * time.Second,
		CacheSweepEvery:  time.Duration(getEnvAsInt("CACHE_SWEEP_SECONDS", 60)) * time.Second,
		MaintenanceEvery: time.Duration(getEnvAsInt("MAINTENANCE_MINUTES", 15)) * time.Minute,

		MailQueueName: getEnv("MAIL_QUEUE_NAME", "mail_outbox_queue"),
		MailFrom:      getEnv("MAIL_FROM", "no-reply@hackathon.local"),
		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPPort:      getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:      getEnv("SMTP_USER", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),

		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Region:          getEnv("S3_REGION", "auto"),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3PublicBaseURL:   strings.TrimRight(getEnv("S3_PUBLIC_BASE_URL", ""), "/"),
		MaxUploadBytes:    int64(getEnvAsInt("MAX_UPLOAD_MB", 10)) << 20,
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
}

// IsProduction reports whether the service runs with production hardening
// (secure cookies, strict origin checks, no error details).
func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// Validate rejects settings the server must not run with. In production the
// export link signing key has to be set explicitly and be long enough.
func (c *Config) Validate() error {
	if !c.IsProduction() {
		return nil
	}
	if string(c.JWTKey) == DefaultJWTSecret {
		return errors.New("JWT_SECRET must be set in production")
	}
	if len(c.JWTKey) < minJWTSecretLen {
		return errors.New("JWT_SECRET must be at least 32 bytes in production")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
