package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken   string
	AdminChatID     int64
	CredentialsFile string // JSON сервисного аккаунта Google
	SpreadsheetID   string
	CalendarID      string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	HoldTTL             time.Duration // время жизни hold до авто-освобождения
	HoldWarningLead     time.Duration // за сколько до истечения слать напоминание
	WaitlistMaxTimeDiff time.Duration // допустимое отклонение желаемого времени
	WaitlistNotifyLimit int           // сколько кандидатов уведомлять на одно освобождение
	HorizonDays         int           // горизонт генерации слотов
	CacheTTL            time.Duration // TTL кэша справочников
	SweepInterval       time.Duration // период сверочного прохода по hold'ам

	Timezone    *time.Location
	MetricsAddr string
	Environment string
}

// Load читает конфигурацию из .env файла и переменных окружения
func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		TelegramToken:   os.Getenv("TELEGRAM_TOKEN"),
		AdminChatID:     getEnvInt64("ADMIN_CHAT_ID", 0),
		CredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
		SpreadsheetID:   os.Getenv("SPREADSHEET_ID"),
		CalendarID:      os.Getenv("CALENDAR_ID"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		HoldTTL:             getEnvDuration("HOLD_TTL", 15*time.Minute),
		HoldWarningLead:     getEnvDuration("HOLD_WARNING_LEAD", 5*time.Minute),
		WaitlistMaxTimeDiff: getEnvDuration("WAITLIST_MAX_TIME_DIFF", 2*time.Hour),
		WaitlistNotifyLimit: getEnvInt("WAITLIST_NOTIFY_LIMIT", 1),
		HorizonDays:         getEnvInt("HORIZON_DAYS", 14),
		CacheTTL:            getEnvDuration("CACHE_TTL", 5*time.Minute),
		SweepInterval:       getEnvDuration("SWEEP_INTERVAL", 15*time.Minute),

		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		Environment: getEnv("ENV", "development"),
	}

	// Проверяем обязательные поля
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is required but not set")
	}
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("SPREADSHEET_ID is required but not set")
	}
	if cfg.CalendarID == "" {
		return nil, fmt.Errorf("CALENDAR_ID is required but not set")
	}

	tz := getEnv("TIMEZONE", "Europe/Moscow")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	cfg.Timezone = loc

	if cfg.HoldWarningLead >= cfg.HoldTTL {
		return nil, fmt.Errorf("HOLD_WARNING_LEAD must be less than HOLD_TTL")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("Invalid int for %s, using default %d", key, fallback)
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
		log.Printf("Invalid int64 for %s, using default %d", key, fallback)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("Invalid duration for %s, using default %s", key, fallback)
	}
	return fallback
}
