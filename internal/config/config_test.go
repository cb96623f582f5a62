package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"APP_PORT", "STORE_DRIVER", "MONGODB_URI", "MONGODB_DB_NAME", "SQLITE_PATH",
	"CATALOG_SOURCE", "CATALOG_BASE_URL", "CATALOG_TIMEOUT",
	"GOOGLE_SHEETS_CREDENTIALS_PATH", "GOOGLE_SHEET_CATALOG_ID", "GOOGLE_SHEET_PRODUCTS_RANGE",
	"KAFKA_BROKERS", "KAFKA_TOPIC", "ROUTE_SWEEP_CRON", "TIMEZONE", "LOG_LEVEL",
}

// clearEnv blanks every key so values from the host do not leak into the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaultsWithMemoryStore(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, CatalogFromStore, cfg.Catalog.Source)
	assert.Equal(t, 15*time.Second, cfg.Catalog.Timeout)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "agromarket.transport", cfg.Kafka.Topic)
	assert.Equal(t, "Africa/Conakry", cfg.Location().String())
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := "STORE_DRIVER=sqlite\nSQLITE_PATH=/tmp/agro.db\nAPP_PORT=9090\nCATALOG_TIMEOUT=3s\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// godotenv does not override variables that already exist, so unset the blanks.
	for _, k := range []string{"STORE_DRIVER", "SQLITE_PATH", "APP_PORT", "CATALOG_TIMEOUT"} {
		require.NoError(t, os.Unsetenv(k))
	}

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/agro.db", cfg.SQLite.Path)
	assert.Equal(t, 3*time.Second, cfg.Catalog.Timeout)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: "8080"},
			Store:     StoreConfig{Driver: DriverMemory},
			Catalog:   CatalogConfig{Source: CatalogFromStore, Timeout: time.Second},
			Sheets:    SheetsConfig{ProductsRange: "Products!A2:D"},
			Kafka:     KafkaConfig{Topic: "t"},
			Scheduler: SchedulerConfig{RouteSweepCron: "5 0 * * *", Timezone: "UTC"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "mongo without uri", mutate: func(c *Config) { c.Store.Driver = DriverMongo; c.MongoDB.DBName = "x" }, wantErr: "MONGODB_URI"},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "postgres" }, wantErr: "STORE_DRIVER"},
		{name: "http catalog without url", mutate: func(c *Config) { c.Catalog.Source = CatalogFromHTTP }, wantErr: "CATALOG_BASE_URL"},
		{name: "sheets without credentials", mutate: func(c *Config) { c.Catalog.Source = CatalogFromSheets }, wantErr: "GOOGLE_SHEETS_CREDENTIALS_PATH"},
		{name: "unknown catalog", mutate: func(c *Config) { c.Catalog.Source = "ftp" }, wantErr: "CATALOG_SOURCE"},
		{name: "brokers without topic", mutate: func(c *Config) { c.Kafka.Brokers = []string{"k:9092"}; c.Kafka.Topic = "" }, wantErr: "KAFKA_TOPIC"},
		{name: "bad timezone", mutate: func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }, wantErr: "TIMEZONE"},
		{name: "missing port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: "APP_PORT"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
