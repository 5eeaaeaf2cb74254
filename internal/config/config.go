package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Email    EmailConfig
	Auth     AuthConfig
	Tickets  TicketConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	PostgresDSN   string
	MigrationsDir string
	AutoMigrate   bool
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromAddress  string
}

type AuthConfig struct {
	JWTSecret   string
	AdminSecret string
	TokenTTL    time.Duration
}

type TicketConfig struct {
	// IssueMode selects the issuance strategy: "sequence" for 4-digit
	// numbered tickets, "pool" for pre-provisioned id/secret pairs.
	IssueMode   string
	CounterName string
	MailSubject string
	// ExportOffsetHours fixes the calendar-day boundary used by the
	// export range, in hours east of UTC.
	ExportOffsetHours int
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			PostgresDSN:   getEnv("POSTGRES_DSN", ""),
			MigrationsDir: getEnv("MIGRATIONS_DIR", "./migrations"),
			AutoMigrate:   getEnvBool("AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnv("KAFKA_ADDR", "localhost:9092")},
			Enabled: getEnvBool("KAFKA_ENABLED", false),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:     getEnvInt("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromAddress:  getEnv("EMAIL_ADDRESS", ""),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("JWT_SECRET", ""),
			AdminSecret: getEnv("ADMIN_PASSWORD", ""),
			TokenTTL:    time.Duration(getEnvInt("TOKEN_TTL_MINUTES", 60)) * time.Minute,
		},
		Tickets: TicketConfig{
			IssueMode:         getEnv("ISSUE_MODE", "sequence"),
			CounterName:       getEnv("TICKET_COUNTER", "ticket"),
			MailSubject:       getEnv("MAIL_SUBJECT", "Your workshop ticket"),
			ExportOffsetHours: getEnvInt("EXPORT_TZ_OFFSET_HOURS", 7),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
