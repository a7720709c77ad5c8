package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"
	BackendAuto   = "auto"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Google    GoogleConfig    `mapstructure:"google"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	OTP       OTPConfig       `mapstructure:"otp"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type StorageConfig struct {
	Backend string `mapstructure:"backend"`
}

type GoogleConfig struct {
	SheetsID    string `mapstructure:"sheets_id"`
	ClientEmail string `mapstructure:"client_email"`
	PrivateKey  string `mapstructure:"private_key"`
}

// Complete reports whether every credential needed for the sheets backend is set.
func (g GoogleConfig) Complete() bool {
	return g.SheetsID != "" && g.ClientEmail != "" && g.PrivateKey != ""
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
	URL  string `mapstructure:"url"`
}

// DSN returns the SQLite data source, preferring the URL over the path.
// URLs follow the SQLAlchemy form: sqlite:///relative.db, sqlite:////abs.db,
// and a bare sqlite:// for an in-memory database.
func (d DatabaseConfig) DSN() string {
	if d.URL == "" {
		return d.Path
	}
	for _, prefix := range []string{"sqlite:///", "sqlite://", "sqlite:"} {
		if path, ok := strings.CutPrefix(d.URL, prefix); ok {
			if path == "" {
				return ":memory:"
			}
			return path
		}
	}
	return d.URL
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type OTPConfig struct {
	TTL        time.Duration `mapstructure:"ttl"`
	Length     int           `mapstructure:"length"`
	ExposeCode bool          `mapstructure:"expose_code"`
}

type AuthConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	JWTSecret   string `mapstructure:"jwt_secret"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ResolvedBackend picks the storage backend. In auto mode the sheets backend
// wins when all Google credentials are present.
func (c *Config) ResolvedBackend() string {
	switch strings.ToLower(c.Storage.Backend) {
	case BackendSheets:
		return BackendSheets
	case BackendSQLite:
		return BackendSQLite
	}
	if c.Google.Complete() {
		return BackendSheets
	}
	return BackendSQLite
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Backend) {
	case "", BackendAuto, BackendSQLite:
	case BackendSheets:
		if !c.Google.Complete() {
			return errors.New("sheets backend requires GOOGLE_SHEETS_ID, GOOGLE_CLIENT_EMAIL and GOOGLE_PRIVATE_KEY")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required when auth is enabled")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 4000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("storage.backend", BackendAuto)
	v.SetDefault("database.path", "data/app.db")
	v.SetDefault("otp.ttl", 5*time.Minute)
	v.SetDefault("otp.length", 6)
	v.SetDefault("otp.expose_code", false)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.expiry_hours", 24)
	v.SetDefault("rate_limit.rps", 50)
	v.SetDefault("rate_limit.burst", 100)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Flat environment names used by existing deployments.
var envAliases = map[string][]string{
	"server.port":          {"PORT", "BACKEND_PORT"},
	"storage.backend":      {"STORAGE_BACKEND"},
	"google.sheets_id":     {"GOOGLE_SHEETS_ID"},
	"google.client_email":  {"GOOGLE_CLIENT_EMAIL"},
	"google.private_key":   {"GOOGLE_PRIVATE_KEY"},
	"database.path":        {"DATABASE_PATH"},
	"database.url":         {"DATABASE_URL"},
	"redis.url":            {"REDIS_URL"},
	"auth.jwt_secret":      {"JWT_SECRET"},
	"cors.allowed_origins": {"CORS_ALLOWED_ORIGINS"},
	"log.level":            {"LOG_LEVEL"},
}

// LoadConfig reads .env, an optional config.yaml from . or ./config, and
// environment overrides (server.port may be set as SERVER_PORT or PORT).
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		args := append([]string{key, strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Keys pasted into a single env line carry literal \n sequences.
	config.Google.PrivateKey = strings.ReplaceAll(config.Google.PrivateKey, `\n`, "\n")
	if len(config.CORS.AllowedOrigins) == 1 && strings.Contains(config.CORS.AllowedOrigins[0], ",") {
		config.CORS.AllowedOrigins = splitList(config.CORS.AllowedOrigins[0])
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
