package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Catalog sources.
const (
	CatalogFromStore  = "store"
	CatalogFromHTTP   = "http"
	CatalogFromSheets = "sheets"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	MongoDB   MongoDBConfig
	SQLite    SQLiteConfig
	Catalog   CatalogConfig
	Sheets    SheetsConfig
	Kafka     KafkaConfig
	Scheduler SchedulerConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// SQLiteConfig holds settings for the embedded relational store.
type SQLiteConfig struct {
	Path string
}

// CatalogConfig selects where farms and products are read from.
type CatalogConfig struct {
	Source  string
	BaseURL string
	Timeout time.Duration
}

// SheetsConfig contains configuration required to read the product catalog from Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	ProductsRange   string
}

// KafkaConfig enables domain event publishing when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// SchedulerConfig holds the route sweep settings.
type SchedulerConfig struct {
	RouteSweepCron string
	Timezone       string
}

// LogConfig controls the logger.
type LogConfig struct {
	Level string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	timeout, err := time.ParseDuration(getenvWithDefault("CATALOG_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("CATALOG_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Store: StoreConfig{
			Driver: getenvWithDefault("STORE_DRIVER", DriverMongo),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "agromarket"),
		},
		SQLite: SQLiteConfig{
			Path: getenvWithDefault("SQLITE_PATH", "agromarket.db"),
		},
		Catalog: CatalogConfig{
			Source:  getenvWithDefault("CATALOG_SOURCE", CatalogFromStore),
			BaseURL: os.Getenv("CATALOG_BASE_URL"),
			Timeout: timeout,
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_CATALOG_ID"),
			ProductsRange:   getenvWithDefault("GOOGLE_SHEET_PRODUCTS_RANGE", "Products!A2:D"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getenvWithDefault("KAFKA_TOPIC", "agromarket.transport"),
		},
		Scheduler: SchedulerConfig{
			RouteSweepCron: getenvWithDefault("ROUTE_SWEEP_CRON", "5 0 * * *"),
			Timezone:       getenvWithDefault("TIMEZONE", "Africa/Conakry"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Store.Driver {
	case DriverMongo:
		if c.MongoDB.URI == "" {
			return errors.New("MONGODB_URI must be provided when STORE_DRIVER=mongo")
		}
		if c.MongoDB.DBName == "" {
			return errors.New("MONGODB_DB_NAME must not be empty")
		}
	case DriverSQLite:
		if c.SQLite.Path == "" {
			return errors.New("SQLITE_PATH must be provided when STORE_DRIVER=sqlite")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER %q is not one of mongo, sqlite, memory", c.Store.Driver)
	}

	switch c.Catalog.Source {
	case CatalogFromStore:
	case CatalogFromHTTP:
		if c.Catalog.BaseURL == "" {
			return errors.New("CATALOG_BASE_URL must be provided when CATALOG_SOURCE=http")
		}
	case CatalogFromSheets:
		switch {
		case c.Sheets.CredentialsPath == "":
			return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided when CATALOG_SOURCE=sheets")
		case c.Sheets.SpreadsheetID == "":
			return errors.New("GOOGLE_SHEET_CATALOG_ID must be provided when CATALOG_SOURCE=sheets")
		case c.Sheets.ProductsRange == "":
			return errors.New("GOOGLE_SHEET_PRODUCTS_RANGE must not be empty")
		}
	default:
		return fmt.Errorf("CATALOG_SOURCE %q is not one of store, http, sheets", c.Catalog.Source)
	}

	if c.Catalog.Timeout <= 0 {
		return errors.New("CATALOG_TIMEOUT must be positive")
	}

	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("KAFKA_TOPIC must be provided when KAFKA_BROKERS is set")
	}

	if c.Scheduler.RouteSweepCron == "" {
		return errors.New("ROUTE_SWEEP_CRON must be provided")
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q: %w", c.Scheduler.Timezone, err)
	}

	return nil
}

// Location resolves the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
