// Package config loads process configuration.
//
// Sources, lowest precedence first: built-in defaults, an optional YAML file,
// environment variables, then explicitly set command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	minJWTSecretLength = 32
)

type HTTPConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	// CORSOrigins lists the browser origins allowed to call the API. Empty allows any origin.
	CORSOrigins []string `koanf:"cors_origins"`
}

type StorageConfig struct {
	Backend     string `koanf:"backend"`
	DatabaseURL string `koanf:"database_url"`
	// AutoMigrate applies pending migrations on startup (postgres only).
	AutoMigrate bool `koanf:"auto_migrate"`
}

type AuthConfig struct {
	JWTSecret          string `koanf:"jwt_secret"`
	BcryptCost         int    `koanf:"bcrypt_cost"`
	RevealUnknownEmail bool   `koanf:"reveal_unknown_email"`
}

type TripsConfig struct {
	DedupByAccount bool `koanf:"dedup_by_account"`
}

type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

type Config struct {
	HTTP    HTTPConfig    `koanf:"http"`
	Storage StorageConfig `koanf:"storage"`
	Auth    AuthConfig    `koanf:"auth"`
	Trips   TripsConfig   `koanf:"trips"`
	Log     LogConfig     `koanf:"log"`
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}

func Defaults() Config {
	return Config{
		HTTP: HTTPConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Storage: StorageConfig{Backend: StorageMemory},
		Auth:    AuthConfig{BcryptCost: 10},
		Log:     LogConfig{Format: "json", Level: "info"},
	}
}

// envKeys maps environment variables onto config keys.
var envKeys = map[string]string{
	"HOST":                  "http.host",
	"PORT":                  "http.port",
	"STORAGE_BACKEND":       "storage.backend",
	"DATABASE_URL":          "storage.database_url",
	"AUTO_MIGRATE":          "storage.auto_migrate",
	"JWT_SECRET":            "auth.jwt_secret",
	"BCRYPT_COST":           "auth.bcrypt_cost",
	"REVEAL_UNKNOWN_EMAIL":  "auth.reveal_unknown_email",
	"TRIP_DEDUP_BY_ACCOUNT": "trips.dedup_by_account",
	"LOG_FORMAT":            "log.format",
	"LOG_LEVEL":             "log.level",
	"SHUTDOWN_TIMEOUT":      "http.shutdown_timeout",
	"CORS_ORIGINS":          "http.cors_origins",
}

// envListKeys hold comma-separated lists.
var envListKeys = map[string]bool{
	"http.cors_origins": true,
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"host":                 "http.host",
	"port":                 "http.port",
	"storage":              "storage.backend",
	"database-url":         "storage.database_url",
	"auto-migrate":         "storage.auto_migrate",
	"bcrypt-cost":          "auth.bcrypt_cost",
	"reveal-unknown-email": "auth.reveal_unknown_email",
	"dedup-trips":          "trips.dedup_by_account",
	"log-format":           "log.format",
	"log-level":            "log.level",
	"shutdown-timeout":     "http.shutdown_timeout",
	"cors-origins":         "http.cors_origins",
}

// RegisterFlags adds the configuration flags to fs, with Defaults() as flag defaults.
// The JWT secret is deliberately not a flag; it would leak into process listings.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("host", d.HTTP.Host, "HTTP listen host")
	fs.Int("port", d.HTTP.Port, "HTTP listen port")
	fs.String("storage", d.Storage.Backend, "storage backend (memory|postgres)")
	fs.String("database-url", d.Storage.DatabaseURL, "PostgreSQL connection string")
	fs.Bool("auto-migrate", d.Storage.AutoMigrate, "apply pending migrations on startup")
	fs.Int("bcrypt-cost", d.Auth.BcryptCost, "bcrypt work factor")
	fs.Bool("reveal-unknown-email", d.Auth.RevealUnknownEmail, "report unknown login emails distinctly")
	fs.Bool("dedup-trips", d.Trips.DedupByAccount, "make trip creation upsert by account")
	fs.String("log-format", d.Log.Format, "log format (json|text)")
	fs.String("log-level", d.Log.Level, "log level (debug|info|warn|error)")
	fs.Duration("shutdown-timeout", d.HTTP.ShutdownTimeout, "graceful shutdown timeout")
	fs.StringSlice("cors-origins", d.HTTP.CORSOrigins, "allowed CORS origins (comma-separated; empty allows any)")
}

// Load builds the Config. path may be empty; fs may be nil.
func Load(fs *pflag.FlagSet, path string) (Config, error) {
	return load(fs, path, os.LookupEnv)
}

func load(fs *pflag.FlagSet, path string, lookupEnv func(string) (string, bool)) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	for env, key := range envKeys {
		if v, ok := lookupEnv(env); ok && v != "" {
			var val any = v
			if envListKeys[key] {
				val = splitList(v)
			}
			if err := k.Set(key, val); err != nil {
				return Config{}, fmt.Errorf("apply %s: %w", env, err)
			}
		}
	}

	if fs != nil {
		// Only flags the user actually set override file and env values; for unset flags
		// posflag fills a key solely when no other source provided it.
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, fmt.Errorf("load flags: %w", err)
		}
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate reports every problem with c at once.
func (c Config) Validate() error {
	var errs []error
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port must be in 1..65535, got %d", c.HTTP.Port))
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("http.shutdown_timeout must be positive"))
	}
	switch c.Storage.Backend {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("storage.database_url is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be %q or %q, got %q", StorageMemory, StoragePostgres, c.Storage.Backend))
	}
	if len(c.Auth.JWTSecret) < minJWTSecretLength {
		errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least %d bytes", minJWTSecretLength))
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("auth.bcrypt_cost must be in %d..%d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.Auth.BcryptCost))
	}
	for _, o := range c.HTTP.CORSOrigins {
		if strings.TrimSpace(o) == "" {
			errs = append(errs, errors.New("http.cors_origins must not contain empty entries"))
			break
		}
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
