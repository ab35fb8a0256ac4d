package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	JWTSecret   string
	MongoURI    string
	DBName      string
	SkipAuth    bool
	Environment string
	AppId       string
	FSPath      string // Physical directory for uploaded import files
	FSURL       string // URL path prefix for file access

	AllowedOrigins  string
	MaxImportSizeMB int
	TimeZone        string
	ClinicOpen      string // first bookable slot, HH:MM
	ClinicClose     string // end of the last bookable slot, HH:MM

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	WarehouseDSN     string
	SyncSchedule     string
	ReminderSchedule string

	SMSGatewayURL        string
	SMSGatewayToken      string
	WhatsAppGatewayURL   string
	WhatsAppGatewayToken string
	SMTPHost             string
	SMTPPort             int
	SMTPUsername         string
	SMTPPassword         string
	SMTPFrom             string
	InboxWebhookSecret   string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "secret"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:      getEnv("DB_NAME", "go-clinic"),
		SkipAuth:    getEnv("SKIP_AUTH", "false") == "true",
		Environment: getEnv("ENVIRONMENT", "development"),
		AppId:       getEnv("APP_ID", "go-clinic"),
		FSPath:      getEnv("FS_PATH", "./uploads"),
		FSURL:       getEnv("FS_URL", "/fs/uploads"),

		AllowedOrigins:  getEnv("ALLOWED_ORIGINS", "http://localhost:3000, http://localhost:3001"),
		MaxImportSizeMB: getEnvInt("MAX_IMPORT_SIZE_MB", 5),
		TimeZone:        getEnv("TIME_ZONE", "UTC"),
		ClinicOpen:      getEnv("CLINIC_OPEN", "08:00"),
		ClinicClose:     getEnv("CLINIC_CLOSE", "20:00"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		WarehouseDSN:     getEnv("WAREHOUSE_DSN", ""),
		SyncSchedule:     getEnv("SYNC_SCHEDULE", "@every 1h"),
		ReminderSchedule: getEnv("REMINDER_SCHEDULE", "0 18 * * *"),

		SMSGatewayURL:        getEnv("SMS_GATEWAY_URL", ""),
		SMSGatewayToken:      getEnv("SMS_GATEWAY_TOKEN", ""),
		WhatsAppGatewayURL:   getEnv("WHATSAPP_GATEWAY_URL", ""),
		WhatsAppGatewayToken: getEnv("WHATSAPP_GATEWAY_TOKEN", ""),
		SMTPHost:             getEnv("SMTP_HOST", ""),
		SMTPPort:             getEnvInt("SMTP_PORT", 587),
		SMTPUsername:         getEnv("SMTP_USERNAME", ""),
		SMTPPassword:         getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:             getEnv("SMTP_FROM", "no-reply@go-clinic.local"),
		InboxWebhookSecret:   getEnv("INBOX_WEBHOOK_SECRET", ""),
	}, nil
}

// MaxImportBytes is the upload limit for import files.
func (c *Config) MaxImportBytes() int64 {
	return int64(c.MaxImportSizeMB) * 1024 * 1024
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		log.Printf("Invalid integer for %s, using %d", key, fallback)
		return fallback
	}
	return n
}
