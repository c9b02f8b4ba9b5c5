package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port                   string  `mapstructure:"PORT"`
	Env                    string  `mapstructure:"ENV"`
	LogLevel               string  `mapstructure:"LOG_LEVEL"`
	StoreDriver            string  `mapstructure:"STORE_DRIVER"`
	DatabaseURL            string  `mapstructure:"DATABASE_URL"`
	DBMaxConns             int32   `mapstructure:"DB_MAX_CONNS"`
	DBMinConns             int32   `mapstructure:"DB_MIN_CONNS"`
	JWTSecret              string  `mapstructure:"JWT_SECRET"`
	TokenTTLMinutes        int     `mapstructure:"TOKEN_TTL_MINUTES"`
	QueueTimezone          string  `mapstructure:"QUEUE_TIMEZONE"`
	SystemUserID           string  `mapstructure:"SYSTEM_USER_ID"`
	RateLimitPerMinute     int     `mapstructure:"RATE_LIMIT_PER_MIN"`
	RateLimitBurst         int     `mapstructure:"RATE_LIMIT_BURST"`
	UserRateLimitPerMinute int     `mapstructure:"USER_RATE_LIMIT_PER_MIN"`
	UserRateLimitBurst     int     `mapstructure:"USER_RATE_LIMIT_BURST"`
	KafkaBrokers           string  `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic             string  `mapstructure:"KAFKA_TOPIC"`
	ReportFontPath         string  `mapstructure:"REPORT_FONT_PATH"`
	ServiceName            string  `mapstructure:"OTEL_SERVICE_NAME"`
	OTLPEndpoint           string  `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure           bool    `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	TraceSampleRatio       float64 `mapstructure:"OTEL_TRACES_SAMPLE_RATIO"`
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

const DefaultSystemUserID = "00000000-0000-0000-0000-000000000001"

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "STORE_DRIVER", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"JWT_SECRET", "TOKEN_TTL_MINUTES", "QUEUE_TIMEZONE", "SYSTEM_USER_ID",
	"RATE_LIMIT_PER_MIN", "RATE_LIMIT_BURST", "USER_RATE_LIMIT_PER_MIN", "USER_RATE_LIMIT_BURST",
	"KAFKA_BROKERS", "KAFKA_TOPIC", "REPORT_FONT_PATH", "OTEL_SERVICE_NAME",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE", "OTEL_TRACES_SAMPLE_RATIO",
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", DriverPostgres)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("TOKEN_TTL_MINUTES", 120)
	v.SetDefault("QUEUE_TIMEZONE", "Local")
	v.SetDefault("SYSTEM_USER_ID", DefaultSystemUserID)
	v.SetDefault("RATE_LIMIT_PER_MIN", 120)
	v.SetDefault("RATE_LIMIT_BURST", 30)
	v.SetDefault("USER_RATE_LIMIT_PER_MIN", 600)
	v.SetDefault("USER_RATE_LIMIT_BURST", 120)
	v.SetDefault("KAFKA_TOPIC", "hospital.calls")
	v.SetDefault("OTEL_SERVICE_NAME", "hospital-service")
	v.SetDefault("OTEL_TRACES_SAMPLE_RATIO", 1.0)
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func (c Config) IsDev() bool {
	return c.Env == "development"
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is %q", DriverPostgres)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMemory, c.StoreDriver)
	}
	if c.JWTSecret == "" && !c.IsDev() {
		return fmt.Errorf("JWT_SECRET is required outside development")
	}
	if c.TokenTTLMinutes <= 0 {
		return fmt.Errorf("TOKEN_TTL_MINUTES must be positive")
	}
	if c.SystemUserID == "" {
		return fmt.Errorf("SYSTEM_USER_ID is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		return fmt.Errorf("OTEL_TRACES_SAMPLE_RATIO must be between 0 and 1")
	}
	return nil
}

func (c Config) Location() (*time.Location, error) {
	if c.QueueTimezone == "" || c.QueueTimezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.QueueTimezone)
	if err != nil {
		return nil, fmt.Errorf("QUEUE_TIMEZONE: %w", err)
	}
	return loc, nil
}

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

func (c Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
