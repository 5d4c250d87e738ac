package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	SMTP         SMTPConfig
	Auth         AuthConfig
	Storage      StorageConfig
	Registration RegistrationConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Environment  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type AuthConfig struct {
	JWTSecret     string
	SessionTTL    time.Duration
	TOTPIssuer    string
	TicketHMACKey string
}

type StorageConfig struct {
	Backend   string // "local" or "s3"
	LocalPath string
	S3Bucket  string
	S3Region  string
}

type RegistrationConfig struct {
	// ApprovalPolicy selects what happens once an applicant verifies their
	// email: "manual" parks the record for admin review, "auto" approves
	// and issues the ticket immediately.
	ApprovalPolicy string
	OTPTTL         time.Duration
}

const (
	ApprovalPolicyManual = "manual"
	ApprovalPolicyAuto   = "auto"
)

func NewConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "5000"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			Environment:  getEnv("SERVER_ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "saazebharat"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Enabled:  getEnvBool("REDIS_ENABLED", false),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASS", ""),
			From:     getEnv("SMTP_FROM", `"Saaz-e-Bharat" <noreply@saazebharat.com>`),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", ""),
			SessionTTL:    getEnvDuration("SESSION_TTL", 24*time.Hour),
			TOTPIssuer:    getEnv("TOTP_ISSUER", "Saaz-e-Bharat"),
			TicketHMACKey: getEnv("TICKET_HMAC_KEY", ""),
		},
		Storage: StorageConfig{
			Backend:   getEnv("STORAGE_BACKEND", "local"),
			LocalPath: getEnv("STORAGE_LOCAL_PATH", "uploads"),
			S3Bucket:  getEnv("STORAGE_S3_BUCKET", ""),
			S3Region:  getEnv("STORAGE_S3_REGION", "ap-south-1"),
		},
		Registration: RegistrationConfig{
			ApprovalPolicy: getEnv("APPROVAL_POLICY", ApprovalPolicyManual),
			OTPTTL:         getEnvDuration("OTP_TTL", 30*time.Minute),
		},
	}
}

func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" sslmode=" + c.SSLMode
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
