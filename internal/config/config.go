package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Target        TargetConfig
	Store         StoreConfig
	AI            AIConfig
	Auth          AuthConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// TargetConfig describes the database that user-supplied SQL runs against.
// URL is the raw, possibly messy value straight from the environment; the
// query package cleans it up per attempt so rotated credentials are picked
// up without a restart.
type TargetConfig struct {
	URL          string
	OpenTimeout  time.Duration
	QueryTimeout time.Duration
	PreviewRows  int
}

// StoreConfig describes the service's own metadata database (users,
// query logs, column usage). A postgres:// DSN selects pgx; anything else
// is treated as a SQLite file for local development.
type StoreConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

type AIConfig struct {
	Endpoint    string
	APIKey      string
	Deployment  string
	APIVersion  string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

type AuthConfig struct {
	Secret   string
	TokenTTL time.Duration
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("SQLBOT_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid SQLBOT_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "SQLBOT_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLBOT_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SQLBOT_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SQLBOT_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SQLBOT_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if raw, ok := TargetURL(lookup); ok {
		cfg.Target.URL = raw
	}
	if err := applyDuration(lookup, "SQLBOT_TARGET_OPEN_TIMEOUT", &cfg.Target.OpenTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SQLBOT_TARGET_QUERY_TIMEOUT", &cfg.Target.QueryTimeout); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "SQLBOT_TARGET_PREVIEW_ROWS", &cfg.Target.PreviewRows); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLBOT_STORE_DSN", &cfg.Store.DSN); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "SQLBOT_STORE_MAX_OPEN_CONNS", &cfg.Store.MaxOpenConns); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "SQLBOT_STORE_MAX_IDLE_CONNS", &cfg.Store.MaxIdleConns); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SQLBOT_STORE_CONN_MAX_IDLE_TIME", &cfg.Store.ConnMaxIdleTime); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SQLBOT_STORE_CONN_MAX_LIFETIME", &cfg.Store.ConnMaxLifetime); err != nil {
		return Config{}, err
	}
	if err := applyStringAliased(lookup, "SQLBOT_AI_ENDPOINT", "AZURE_OPENAI_ENDPOINT", &cfg.AI.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyStringAliased(lookup, "SQLBOT_AI_API_KEY", "AZURE_OPENAI_KEY", &cfg.AI.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLBOT_AI_DEPLOYMENT", &cfg.AI.Deployment); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLBOT_AI_API_VERSION", &cfg.AI.APIVersion); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "SQLBOT_AI_TEMPERATURE", &cfg.AI.Temperature); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "SQLBOT_AI_MAX_TOKENS", &cfg.AI.MaxTokens); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SQLBOT_AI_TIMEOUT", &cfg.AI.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyStringAliased(lookup, "SQLBOT_AUTH_SECRET", "JWT_SECRET", &cfg.Auth.Secret); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SQLBOT_AUTH_TOKEN_TTL", &cfg.Auth.TokenTTL); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "SQLBOT_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "SQLBOT_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if cfg.Store.DSN == "" {
		return Config{}, fmt.Errorf("store dsn is required")
	}
	return cfg, nil
}

// TargetURL reads the raw target connection string, honoring the legacy
// POSTGRES_URL name existing deployments already set. Absence is not an
// error: the query executor serves its fixed fallback dataset instead.
func TargetURL(lookup LookupFunc) (string, bool) {
	if raw, ok := lookup("SQLBOT_TARGET_URL"); ok && strings.TrimSpace(raw) != "" {
		return raw, true
	}
	if raw, ok := lookup("POSTGRES_URL"); ok && strings.TrimSpace(raw) != "" {
		return raw, true
	}
	return "", false
}

// TargetURLSource adapts a lookup into the per-attempt source the query
// resolver re-reads on every connection, so credentials rotated in the
// environment take effect without a restart.
func TargetURLSource(lookup LookupFunc) func() (string, bool) {
	return func() (string, bool) {
		return TargetURL(lookup)
	}
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "sqlbot-api"},
		HTTP: HTTPConfig{
			Address:      ":8000",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Target: TargetConfig{
			OpenTimeout:  5 * time.Second,
			QueryTimeout: 30 * time.Second,
			PreviewRows:  5,
		},
		Store: StoreConfig{
			DSN:             "file:sqlbot.db",
			MaxOpenConns:    10,
			MaxIdleConns:    10,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
		},
		AI: AIConfig{
			Deployment:  "gpt-4o-mini",
			APIVersion:  "2024-06-01",
			Temperature: 0.1,
			MaxTokens:   400,
			Timeout:     30 * time.Second,
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18000"
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyStringAliased(lookup LookupFunc, key, alias string, dst *string) error {
	if raw, ok := lookup(key); ok {
		*dst = strings.TrimSpace(raw)
		return nil
	}
	raw, ok := lookup(alias)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
