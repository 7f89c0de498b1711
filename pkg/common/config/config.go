package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Laudus ERP API
	LaudusBaseURL    string
	LaudusUsername   string
	LaudusPassword   string
	LaudusCompanyVAT string
	FetchTimeout     time.Duration
	LoginTimeout     time.Duration
	LaudusRateRPS    int

	// Report query options, passed through verbatim to the API
	ShowAccountsWithZeroBalance  bool
	ShowOnlyAccountsWithActivity bool
	ShowLevels                   string
	CostCenterID                 string
	BookID                       string

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka (empty brokers disables event publication)
	KafkaBrokers []string
	KafkaTopic   string

	// Run tuning
	TargetsFile    string
	TargetDate     string
	RetryInterval  time.Duration
	RunWindow      time.Duration
	RefreshCadence int
	LoadSource     string

	// Sinks and observability
	LogDir      string
	FallbackDir string
	StatusAddr  string
	RedisRunKey string
	RedisRunTTL time.Duration

	// Backfill
	BackfillStartDate   string
	BackfillEndDate     string
	MaxDatesPerRun      int
	BackfillMaxRetries  int
	BackfillRetryDelay  time.Duration
	DelayBetweenTargets time.Duration
	DelayBetweenDates   time.Duration
}

func Load() *Config {
	return &Config{
		LaudusBaseURL:    getEnv("LAUDUS_API_URL", "https://api.laudus.cl"),
		LaudusUsername:   getEnv("LAUDUS_USERNAME", "API"),
		LaudusPassword:   getEnv("LAUDUS_PASSWORD", ""),
		LaudusCompanyVAT: getEnv("LAUDUS_COMPANY_VAT", ""),
		FetchTimeout:     getDuration("FETCH_TIMEOUT", 15*time.Minute),
		LoginTimeout:     getDuration("LOGIN_TIMEOUT", 30*time.Second),
		LaudusRateRPS:    getIntEnv("LAUDUS_RATE_RPS", 2),

		ShowAccountsWithZeroBalance:  getBoolEnv("SHOW_ACCOUNTS_WITH_ZERO_BALANCE", true),
		ShowOnlyAccountsWithActivity: getBoolEnv("SHOW_ONLY_ACCOUNTS_WITH_ACTIVITY", false),
		ShowLevels:                   getEnv("SHOW_LEVELS", ""),
		CostCenterID:                 getEnv("COST_CENTER_ID", ""),
		BookID:                       getEnv("BOOK_ID", ""),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "balancesync"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:       getEnv("POSTGRES_DB", "laudus_data"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers: getStringSliceEnv("KAFKA_BROKERS", nil),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "balancesync.documents"),

		TargetsFile:    getEnv("TARGETS_FILE", ""),
		TargetDate:     getEnv("TARGET_DATE", ""),
		RetryInterval:  getDuration("RETRY_INTERVAL", 5*time.Minute),
		RunWindow:      getDuration("RUN_WINDOW", 5*time.Hour),
		RefreshCadence: getIntEnv("REFRESH_CADENCE", 3),
		LoadSource:     getEnv("LOAD_SOURCE", "automatic"),

		LogDir:      getEnv("LOG_DIR", "logs"),
		FallbackDir: getEnv("FALLBACK_DIR", "fallback"),
		StatusAddr:  getEnv("STATUS_ADDR", ""),
		RedisRunKey: getEnv("REDIS_RUN_KEY", "balancesync:lastrun"),
		RedisRunTTL: getDuration("REDIS_RUN_TTL", 72*time.Hour),

		BackfillStartDate:   getEnv("BACKFILL_START_DATE", ""),
		BackfillEndDate:     getEnv("BACKFILL_END_DATE", ""),
		MaxDatesPerRun:      getIntEnv("MAX_DATES_PER_RUN", 7),
		BackfillMaxRetries:  getIntEnv("BACKFILL_MAX_RETRIES", 3),
		BackfillRetryDelay:  getDuration("BACKFILL_RETRY_DELAY", 5*time.Minute),
		DelayBetweenTargets: getDuration("DELAY_BETWEEN_TARGETS", 5*time.Minute),
		DelayBetweenDates:   getDuration("DELAY_BETWEEN_DATES", 2*time.Minute),
	}
}

// Validate reports the environment variables that must be set for any
// run that talks to the Laudus API.
func (c *Config) Validate() []string {
	var missing []string
	if c.LaudusPassword == "" {
		missing = append(missing, "LAUDUS_PASSWORD")
	}
	if c.LaudusCompanyVAT == "" {
		missing = append(missing, "LAUDUS_COMPANY_VAT")
	}
	return missing
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
