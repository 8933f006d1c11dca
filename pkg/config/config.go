package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	CORS      CORSConfig
	Scheduler SchedulerConfig
}

type CORSConfig struct {
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig governs the constraint-based plan generator: solver search
// budget and the dry-run proposal cache.
type SchedulerConfig struct {
	Enabled         bool
	ProposalTTL     time.Duration
	SlotsPerDay     int
	MultiStart      bool
	MaxAttempts     int
	Patience        int
	TimePerAttempt  time.Duration
	BaseSeed        int64
	SeedStep        int64
	SearchWorkers   int
	RandomizeSearch bool
	UseValueHints   bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.CORS = CORSConfig{
		AllowedOrigins: splitCSV(v.GetString("CORS_ALLOWED_ORIGINS")),
	}

	cfg.Scheduler = SchedulerConfig{
		Enabled:         v.GetBool("ENABLE_SCHEDULER"),
		ProposalTTL:     parseDuration(v.GetString("SCHEDULER_PROPOSAL_TTL"), 30*time.Minute),
		SlotsPerDay:     v.GetInt("SCHEDULER_SLOTS_PER_DAY"),
		MultiStart:      v.GetBool("SCHEDULER_MULTI_START"),
		MaxAttempts:     v.GetInt("SCHEDULER_MAX_ATTEMPTS"),
		Patience:        v.GetInt("SCHEDULER_PATIENCE"),
		TimePerAttempt:  parseDuration(v.GetString("SCHEDULER_TIME_PER_ATTEMPT"), 5*time.Second),
		BaseSeed:        v.GetInt64("SCHEDULER_BASE_SEED"),
		SeedStep:        v.GetInt64("SCHEDULER_SEED_STEP"),
		SearchWorkers:   v.GetInt("SCHEDULER_SEARCH_WORKERS"),
		RandomizeSearch: v.GetBool("SCHEDULER_RANDOMIZE_SEARCH"),
		UseValueHints:   v.GetBool("SCHEDULER_USE_VALUE_HINTS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "timeplan")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CORS_ALLOWED_ORIGINS", "")

	v.SetDefault("ENABLE_SCHEDULER", true)
	v.SetDefault("SCHEDULER_PROPOSAL_TTL", "30m")
	v.SetDefault("SCHEDULER_SLOTS_PER_DAY", 8)
	v.SetDefault("SCHEDULER_MULTI_START", true)
	v.SetDefault("SCHEDULER_MAX_ATTEMPTS", 10)
	v.SetDefault("SCHEDULER_PATIENCE", 3)
	v.SetDefault("SCHEDULER_TIME_PER_ATTEMPT", "5s")
	v.SetDefault("SCHEDULER_BASE_SEED", 42)
	v.SetDefault("SCHEDULER_SEED_STEP", 17)
	v.SetDefault("SCHEDULER_SEARCH_WORKERS", 8)
	v.SetDefault("SCHEDULER_RANDOMIZE_SEARCH", true)
	v.SetDefault("SCHEDULER_USE_VALUE_HINTS", true)
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
