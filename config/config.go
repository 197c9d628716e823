package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	ListenAddr      string
	CSVExportPath   string
	SourcesPath     string
	ChromeBin       string
	SettleDelayMs   int
	FetchTimeoutSec int
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "sheriff_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		ListenAddr:      getEnv("LISTEN_ADDR", ":8080"),
		CSVExportPath:   getEnv("CSV_EXPORT_PATH", "./output/listings.csv"),
		SourcesPath:     getEnv("SOURCES_PATH", ""),
		ChromeBin:       getEnv("CHROME_BIN", ""),
		SettleDelayMs:   getEnvInt("SETTLE_DELAY_MS", 5000),
		FetchTimeoutSec: getEnvInt("FETCH_TIMEOUT_SEC", 60),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}
