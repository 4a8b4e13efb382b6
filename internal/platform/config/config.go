package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName      string
	HTTPPort         string
	DatabaseDriver   string
	PostgresDSN      string
	KafkaBrokers     []string
	AutoMigrate      bool
	SettingsSeedFile string

	DistributionConcurrency      int
	DistributionPageSize         int
	DistributionCreditsPerSecond float64
	SchedulerPollInterval        time.Duration
	ReferralQualifyingEvents     []string

	EnableDistributionScheduler bool
	EnableReferralConsumer      bool
	EnableLedgerAuditor         bool
	EnableMetrics               bool
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "profitshare"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	driver := strings.ToLower(strings.TrimSpace(os.Getenv("DATABASE_DRIVER")))
	if driver == "" {
		driver = DriverPostgres
	}
	if driver != DriverPostgres && driver != DriverSQLite {
		return Config{}, fmt.Errorf("unsupported DATABASE_DRIVER %q", driver)
	}

	brokers := envList("KAFKA_BROKERS")
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}
	qualifying := envList("REFERRAL_QUALIFYING_EVENTS")
	if len(qualifying) == 0 {
		qualifying = []string{"first_deposit"}
	}

	concurrency, err := envInt("DISTRIBUTION_CONCURRENCY", 8)
	if err != nil {
		return Config{}, err
	}
	pageSize, err := envInt("DISTRIBUTION_PAGE_SIZE", 200)
	if err != nil {
		return Config{}, err
	}
	creditsPerSecond, err := envFloat("DISTRIBUTION_CREDITS_PER_SECOND", 0)
	if err != nil {
		return Config{}, err
	}
	pollInterval, err := envDuration("SCHEDULER_POLL_INTERVAL", time.Minute)
	if err != nil {
		return Config{}, err
	}

	return Config{
		ServiceName:      service,
		HTTPPort:         port,
		DatabaseDriver:   driver,
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		KafkaBrokers:     brokers,
		AutoMigrate:      envBool("AUTO_MIGRATE", true),
		SettingsSeedFile: strings.TrimSpace(os.Getenv("SETTINGS_SEED_FILE")),

		DistributionConcurrency:      concurrency,
		DistributionPageSize:         pageSize,
		DistributionCreditsPerSecond: creditsPerSecond,
		SchedulerPollInterval:        pollInterval,
		ReferralQualifyingEvents:     qualifying,

		EnableDistributionScheduler: envBool("ENABLE_DISTRIBUTION_SCHEDULER", true),
		EnableReferralConsumer:      envBool("ENABLE_REFERRAL_CONSUMER", true),
		EnableLedgerAuditor:         envBool("ENABLE_LEDGER_AUDITOR", true),
		EnableMetrics:               envBool("ENABLE_METRICS", true),
	}, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return value, nil
}

func envFloat(name string, fallback float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("%s must be a non-negative number, got %q", name, raw)
	}
	return value, nil
}

func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", name, raw)
	}
	return value, nil
}

func envList(name string) []string {
	var items []string
	for _, value := range strings.Split(os.Getenv(name), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}
