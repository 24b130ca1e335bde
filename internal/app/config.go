package app

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"insider-data/internal/model"
	"insider-data/internal/provider/edgar"
	"insider-data/internal/provider/polygon"
	"insider-data/internal/store"
)

// Config holds application configuration from env
type Config struct {
	DataDir      string
	EntitiesFile string
	LogLevel     string // debug | info | warn | error
	LogFile      string

	ArchiveBaseURL  string
	UserAgent       string
	ArchiveMaxRPS   int
	ThrottleBackoff time.Duration
	DelayUnit       time.Duration

	PolygonAPIKeys    []string
	PolygonBaseURL    string
	PolygonReqPerMin  int
	PriceCacheTTL     time.Duration
	SeenBackend       string // parquet | sqlite
	ExportFormat      string // "" | csv | json | parquet
	Workers           int
	StaleLock         time.Duration
	StartDate         string
	EndDate           string
	DaysRange         int
	Incremental       bool
	Schedule          bool // rerun daily at RunHour:RunMinute UTC
	RunHour, RunMinute int
}

// LoadConfig reads config from environment. A .env file in the working
// directory is loaded first; variables already set win.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env", "error", err)
	}
	cfg := &Config{
		DataDir:          getEnv("DATA_DIR", "data"),
		EntitiesFile:     os.Getenv("CIKS_FILE"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFile:          os.Getenv("LOG_FILE"),
		ArchiveBaseURL:   getEnv("ARCHIVE_BASE_URL", edgar.DefaultBaseURL),
		UserAgent:        getEnv("USER_AGENT", edgar.DefaultUserAgent),
		ArchiveMaxRPS:    getEnvInt("ARCHIVE_MAX_RPS", edgar.DefaultMaxRPS),
		ThrottleBackoff:  time.Duration(getEnvInt("THROTTLE_BACKOFF_SEC", 60)) * time.Second,
		DelayUnit:        time.Duration(getEnvInt("DELAY_UNIT_MS", 1000)) * time.Millisecond,
		PolygonAPIKeys:   parsePolygonAPIKeys(),
		PolygonBaseURL:   getEnv("POLYGON_BASE_URL", polygon.DefaultBaseURL),
		PolygonReqPerMin: getEnvInt("POLYGON_REQ_PER_MIN", polygon.DefaultRequestsPerMinute),
		PriceCacheTTL:    time.Duration(getEnvInt("PRICE_CACHE_TTL_MIN", 60)) * time.Minute,
		SeenBackend:      strings.ToLower(getEnv("SEEN_BACKEND", "parquet")),
		ExportFormat:     strings.ToLower(os.Getenv("EXPORT_FORMAT")),
		Workers:          getEnvInt("WORKERS", 2),
		StaleLock:        time.Duration(getEnvInt("STALE_LOCK_HOURS", 12)) * time.Hour,
		StartDate:        os.Getenv("START_DATE"),
		EndDate:          os.Getenv("END_DATE"),
		DaysRange:        getEnvInt("DAYS_RANGE", 0),
		Incremental:      getEnvBool("INCREMENTAL"),
		Schedule:         getEnvBool("SCHEDULE"),
		RunHour:          0,
		RunMinute:        30,
	}
	if h := os.Getenv("RUN_HOUR"); h != "" {
		if v, err := strconv.Atoi(h); err == nil && v >= 0 && v <= 23 {
			cfg.RunHour = v
		}
	}
	if m := os.Getenv("RUN_MINUTE"); m != "" {
		if v, err := strconv.Atoi(m); err == nil && v >= 0 && v <= 59 {
			cfg.RunMinute = v
		}
	}
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		slog.Warn("invalid integer, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func getEnvBool(key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && v
}

func parsePolygonAPIKeys() []string {
	s := os.Getenv("POLYGON_API_KEYS")
	if s == "" {
		s = os.Getenv("POLYGON_API_KEY")
	}
	if s == "" {
		return nil
	}
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// Window resolves the configured date window at now; nil means unbounded.
func (c *Config) Window(now time.Time) (*model.Window, error) {
	return model.ResolveWindow(c.StartDate, c.EndDate, c.DaysRange, now)
}

// BaseDir returns data/form4
func (c *Config) BaseDir() string {
	return filepath.Join(c.DataDir, filepath.Dir(store.TransactionsDir))
}

// ExportDir returns data/form4/export
func (c *Config) ExportDir() string {
	return filepath.Join(c.BaseDir(), "export")
}

// ProgressPath returns path to .lastrun.json
func (c *Config) ProgressPath() string {
	return filepath.Join(c.BaseDir(), ".lastrun.json")
}
