package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
)

type config struct {
	Port     int    `toml:"port"`
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	DB       struct {
		Driver             string        `toml:"driver"`
		DSN                string        `toml:"dsn"`
		MaxOpenConnections int           `toml:"max_open_conns"`
		MaxIdleConnections int           `toml:"max_idle_conns"`
		MaxIdleTime        time.Duration `toml:"max_idle_time"`
		AutoMigrate        bool          `toml:"auto_migrate"`
	} `toml:"db"`
	JWT struct {
		Secret          string        `toml:"secret"`
		SessionLifetime time.Duration `toml:"session_lifetime"`
	} `toml:"jwt"`
	Limiter struct {
		Enabled             bool    `toml:"enabled"`
		MaxRequestPerSecond float64 `toml:"rps"`
		Burst               int     `toml:"burst"`
	} `toml:"limiter"`
	CORS struct {
		TrustedOrigins []string `toml:"trusted_origins"`
	} `toml:"cors"`
	Cookies struct {
		Secure bool `toml:"secure"`
	} `toml:"cookies"`
}

func defaultConfig() config {
	var cfg config
	cfg.Port = 3000
	cfg.Env = "development"
	cfg.LogLevel = "info"
	cfg.DB.Driver = "postgres"
	cfg.DB.MaxOpenConnections = 25
	cfg.DB.MaxIdleConnections = 25
	cfg.DB.MaxIdleTime = 15 * time.Minute
	cfg.JWT.SessionLifetime = 30 * 24 * time.Hour
	cfg.Limiter.Enabled = true
	cfg.Limiter.MaxRequestPerSecond = 4
	cfg.Limiter.Burst = 8
	return cfg
}

// bindFlags registers command-line flags writing straight into cfg.
func bindFlags(fs *pflag.FlagSet, cfg *config) {
	fs.IntVar(&cfg.Port, "port", cfg.Port, "Server port")
	fs.StringVar(&cfg.Env, "env", cfg.Env, "Environment [development|production]")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level [debug|info|warn|error]")

	fs.StringVar(&cfg.DB.Driver, "db-driver", cfg.DB.Driver, "Database driver [postgres|sqlite]")
	fs.StringVar(&cfg.DB.DSN, "db-dsn", cfg.DB.DSN, "Database DSN")
	fs.IntVar(&cfg.DB.MaxOpenConnections, "db-max-open-conns", cfg.DB.MaxOpenConnections, "Database max open connections")
	fs.IntVar(&cfg.DB.MaxIdleConnections, "db-max-idle-conns", cfg.DB.MaxIdleConnections, "Database max idle connections")
	fs.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", cfg.DB.MaxIdleTime, "Database max connection idle time")
	fs.BoolVar(&cfg.DB.AutoMigrate, "db-auto-migrate", cfg.DB.AutoMigrate, "Run schema migrations on startup")

	fs.StringVar(&cfg.JWT.Secret, "jwt-secret", cfg.JWT.Secret, "JWT secret")
	fs.DurationVar(&cfg.JWT.SessionLifetime, "session-lifetime", cfg.JWT.SessionLifetime, "Web session lifetime")

	fs.BoolVar(&cfg.Limiter.Enabled, "limiter-enabled", cfg.Limiter.Enabled, "Enable rate limiter")
	fs.Float64Var(&cfg.Limiter.MaxRequestPerSecond, "limiter-rps", cfg.Limiter.MaxRequestPerSecond, "Rate limiter maximum requests per second")
	fs.IntVar(&cfg.Limiter.Burst, "limiter-burst", cfg.Limiter.Burst, "Rate limiter maximum burst")

	fs.BoolVar(&cfg.Cookies.Secure, "cookie-secure", cfg.Cookies.Secure, "Mark cookies Secure (HTTPS only)")
}

// loadConfig resolves cfg in order of precedence: defaults, the TOML file at
// path, environment variables, then flags explicitly set on the command line.
func loadConfig(fs *pflag.FlagSet, cfg *config, path string) error {
	changed := make(map[string]string)
	fs.Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})

	*cfg = defaultConfig()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return err
	}
	for name, value := range changed {
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
	}
	return cfg.validate()
}

func applyEnv(cfg *config) error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	cfg.Env = getEnv("APP_ENV", cfg.Env)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.DB.Driver = getEnv("DB_DRIVER", cfg.DB.Driver)
	cfg.DB.DSN = getEnv("DB_DSN", cfg.DB.DSN)
	cfg.JWT.Secret = getEnv("JWT_SECRET", cfg.JWT.Secret)
	if v := os.Getenv("SESSION_LIFETIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SESSION_LIFETIME %q: %w", v, err)
		}
		cfg.JWT.SessionLifetime = d
	}
	if v := os.Getenv("LIMITER_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid LIMITER_ENABLED %q: %w", v, err)
		}
		cfg.Limiter.Enabled = enabled
	}
	if v := os.Getenv("CORS_TRUSTED_ORIGINS"); v != "" {
		cfg.CORS.TrustedOrigins = strings.Fields(v)
	}
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid COOKIE_SECURE %q: %w", v, err)
		}
		cfg.Cookies.Secure = secure
	}
	return nil
}

func (cfg *config) validate() error {
	switch cfg.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", cfg.DB.Driver)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.JWT.SessionLifetime <= 0 {
		return fmt.Errorf("session lifetime must be positive, got %s", cfg.JWT.SessionLifetime)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
