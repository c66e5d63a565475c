package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreGorm     = "gorm"
	StoreMinio    = "minio"
)

type AppConfig struct {
	HTTPPort      string
	Env           string
	LogLevel      string
	StoreDriver   string
	DatabaseDSN   string
	SQLitePath    string
	SwaggerEnable bool
	EventLogDir   string
	MasterToken   string
	Postgres      PostgresConfig
	Storage       StorageConfig
	ClanAPI       EndpointConfig
	ActionsHook   EndpointConfig
	Feed          EndpointConfig
	Reconcile     ReconcileConfig
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

func (s StorageConfig) Enabled() bool {
	return s.Endpoint != "" && s.AccessKey != "" && s.SecretKey != "" && s.Bucket != ""
}

// EndpointConfig é uma URL externa com token bearer opcional.
type EndpointConfig struct {
	URL   string
	Token string
}

func (e EndpointConfig) Enabled() bool { return e.URL != "" }

// ReconcileConfig carries the thresholds of the notification pipeline.
type ReconcileConfig struct {
	StaleAfter        time.Duration
	WelcomeStaleAfter time.Duration
	PruneInterval     time.Duration
	ReloadTimeout     time.Duration
}

func Load() *AppConfig {
	pg := PostgresConfig{
		Host:     getEnv("POSTGRES_HOST", ""),
		Port:     getEnv("POSTGRES_PORT", ""),
		User:     getEnv("POSTGRES_USER", ""),
		Password: getEnv("POSTGRES_PASSWORD", ""),
		DBName:   getEnv("POSTGRES_DB", ""),
		SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
	}

	storage := StorageConfig{
		Endpoint:  getEnv("STORAGE_ENDPOINT", ""),
		AccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
		SecretKey: getEnv("STORAGE_SECRET_KEY", ""),
		Bucket:    getEnv("STORAGE_BUCKET", ""),
		Region:    getEnv("STORAGE_REGION", ""),
		UseSSL:    getEnv("STORAGE_USE_SSL", "false") == "true",
		Prefix:    getEnv("STORAGE_PREFIX", "ledgers"),
	}

	// MINIO_* continua aceito quando STORAGE_* não foi definido.
	if storage.Endpoint == "" {
		storage.Endpoint = getEnv("MINIO_ENDPOINT", "")
	}
	if storage.AccessKey == "" {
		storage.AccessKey = getEnv("MINIO_ACCESS_KEY", "")
	}
	if storage.SecretKey == "" {
		storage.SecretKey = getEnv("MINIO_SECRET_KEY", "")
	}
	if storage.Bucket == "" {
		storage.Bucket = getEnv("MINIO_BUCKET", "")
	}
	if storage.Region == "" {
		storage.Region = getEnv("MINIO_REGION", "")
	}
	if !storage.UseSSL {
		storage.UseSSL = getEnv("MINIO_USE_SSL", "false") == "true"
	}

	dsn := getEnv("DATABASE_DSN", "")
	driver := strings.ToLower(getEnv("STORE_DRIVER", ""))
	if driver == "" {
		switch {
		case strings.HasPrefix(strings.ToLower(dsn), "postgres"), pg.Host != "":
			driver = StorePostgres
		case storage.Enabled():
			driver = StoreMinio
		default:
			driver = StoreMemory
		}
	}
	if (driver == StorePostgres || driver == StoreGorm) && dsn == "" {
		dsn = buildPostgresDSN(pg)
	}

	return &AppConfig{
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		Env:           getEnv("APP_ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "INFO"),
		StoreDriver:   driver,
		DatabaseDSN:   dsn,
		SQLitePath:    getEnv("SQLITE_PATH", "file:ledger.db"),
		SwaggerEnable: getEnv("SWAGGER_ENABLE", "true") == "true",
		EventLogDir:   strings.TrimSpace(getEnv("EVENT_LOG_DIR", "")),
		MasterToken:   getEnv("API_MASTER_TOKEN", ""),
		Postgres:      pg,
		Storage:       storage,
		ClanAPI: EndpointConfig{
			URL:   strings.TrimSpace(getEnv("CLAN_API_URL", "")),
			Token: getEnv("CLAN_API_TOKEN", ""),
		},
		ActionsHook: EndpointConfig{
			URL:   strings.TrimSpace(getEnv("ACTIONS_WEBHOOK_URL", "")),
			Token: getEnv("ACTIONS_WEBHOOK_TOKEN", ""),
		},
		Feed: EndpointConfig{
			URL:   strings.TrimSpace(getEnv("FEED_URL", "")),
			Token: getEnv("FEED_TOKEN", ""),
		},
		Reconcile: ReconcileConfig{
			StaleAfter:        getDuration("STALE_AFTER_SECONDS", time.Second, 5*time.Minute),
			WelcomeStaleAfter: getDuration("WELCOME_STALE_AFTER_SECONDS", time.Second, time.Minute),
			PruneInterval:     getDuration("PRUNE_INTERVAL_MINUTES", time.Minute, 60*time.Minute),
			ReloadTimeout:     getDuration("RELOAD_TIMEOUT_SECONDS", time.Second, 10*time.Second),
		},
	}
}

func buildPostgresDSN(pg PostgresConfig) string {
	host := pg.Host
	if host == "" {
		host = "localhost"
	}
	port := pg.Port
	if port == "" {
		port = "5432"
	}
	ssl := pg.SSLMode
	if ssl == "" {
		ssl = "disable"
	}

	u := &url.URL{Scheme: "postgres", Host: fmt.Sprintf("%s:%s", host, port)}
	if pg.User != "" {
		if pg.Password != "" {
			u.User = url.UserPassword(pg.User, pg.Password)
		} else {
			u.User = url.User(pg.User)
		}
	}
	if pg.DBName != "" {
		u.Path = pg.DBName
	}
	q := u.Query()
	q.Set("sslmode", ssl)
	u.RawQuery = q.Encode()
	return u.String()
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getDuration reads a positive integer count of unit; anything else falls back to def.
func getDuration(key string, unit, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Printf("warning: invalid %s=%q, using %s", key, raw, def)
		return def
	}
	return time.Duration(n) * unit
}

func MustLoad() *AppConfig {
	cfg := Load()
	if cfg.HTTPPort == "" {
		log.Fatal("HTTP_PORT required")
	}
	switch cfg.StoreDriver {
	case StoreMemory, StoreSQLite:
	case StorePostgres, StoreGorm:
		if cfg.DatabaseDSN == "" {
			log.Fatal("DATABASE_DSN required for postgres store")
		}
	case StoreMinio:
		if !cfg.Storage.Enabled() {
			log.Fatal("STORAGE_ENDPOINT, STORAGE_ACCESS_KEY, STORAGE_SECRET_KEY and STORAGE_BUCKET required for minio store")
		}
	default:
		log.Fatalf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	return cfg
}
