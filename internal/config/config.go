// Package config provides configuration management using Viper.
// It loads configuration from environment variables, .env files, and config files.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerPort                = 5050
	defaultServerHost                = "0.0.0.0"
	defaultReadTimeout               = 30 * time.Second
	defaultWriteTimeout              = 30 * time.Second
	defaultDatabasePath              = "./data/rerun.db"
	defaultDatabaseConnectionTimeout = 5 * time.Second
	defaultDatabaseEnableWAL         = true
	defaultMigrationsPath            = "file://./migrations"
	defaultLogLevel                  = "info"
	defaultLogPretty                 = false
	defaultDefaultDuration           = 30 * time.Second
	defaultProbeTimeout              = 5 * time.Second
	defaultRescanDebounce            = 2 * time.Second
	defaultBreakInterval             = 10 * time.Minute
	defaultBreakDuration             = 3 * time.Minute
	defaultGuideSpan                 = 6 * time.Hour
	defaultGuideExportPath           = "./data/guide.xml"
	envPrefix                        = "RERUN"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Logging   LoggingConfig
	Library   LibraryConfig
	Broadcast BroadcastConfig
	Guide     GuideConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Path              string
	MigrationsPath    string
	ConnectionTimeout time.Duration
	EnableWAL         bool
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Pretty bool
}

// LibraryConfig holds media library configuration.
// Root is the folder whose channel subfolders are scanned.
type LibraryConfig struct {
	Root            string
	Extensions      []string
	DefaultDuration time.Duration
	ProbeTimeout    time.Duration
	Watch           bool
	RescanDebounce  time.Duration
}

// BroadcastConfig holds the default break policy applied to every channel
type BroadcastConfig struct {
	BreakInterval time.Duration
	BreakDuration time.Duration
	UseBumpers    bool
	ShuffleShows  bool
}

// GuideConfig holds guide projection defaults
type GuideConfig struct {
	Span       time.Duration
	ExportPath string
}

// Load reads configuration from .env file, config files, environment variables, and defaults
func Load() (*Config, error) {
	// .env files are optional in production and CI where env vars are set directly
	_ = godotenv.Load() // nolint:errcheck // .env file is optional

	v := viper.New()

	setDefaults(v)

	// Config file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/rerun")

	// Environment variable settings
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// normalize brings configured values into canonical form. Extensions are
// matched against filepath.Ext output, so they are stored lowercase with a
// leading dot regardless of how they were written.
func (c *Config) normalize() {
	for i, ext := range c.Library.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Library.Extensions[i] = ext
	}
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.host", defaultServerHost)
	v.SetDefault("server.readtimeout", defaultReadTimeout)
	v.SetDefault("server.writetimeout", defaultWriteTimeout)

	// Database defaults
	v.SetDefault("database.path", defaultDatabasePath)
	v.SetDefault("database.migrationspath", defaultMigrationsPath)
	v.SetDefault("database.connectiontimeout", defaultDatabaseConnectionTimeout)
	v.SetDefault("database.enablewal", defaultDatabaseEnableWAL)

	// Logging defaults
	v.SetDefault("logging.level", defaultLogLevel)
	v.SetDefault("logging.pretty", defaultLogPretty)

	// Library defaults
	v.SetDefault("library.root", "./media")
	v.SetDefault("library.extensions", []string{"mp4", "avi", "mkv", "mov", "ts", "m4v", "wmv", "flv", "webm"})
	v.SetDefault("library.defaultduration", defaultDefaultDuration)
	v.SetDefault("library.probetimeout", defaultProbeTimeout)
	v.SetDefault("library.watch", true)
	v.SetDefault("library.rescandebounce", defaultRescanDebounce)

	// Broadcast defaults
	v.SetDefault("broadcast.breakinterval", defaultBreakInterval)
	v.SetDefault("broadcast.breakduration", defaultBreakDuration)
	v.SetDefault("broadcast.usebumpers", true)
	v.SetDefault("broadcast.shuffleshows", true)

	// Guide defaults
	v.SetDefault("guide.span", defaultGuideSpan)
	v.SetDefault("guide.exportpath", defaultGuideExportPath)
}

// Validate checks that configuration values are valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("invalid read timeout: %v (must be > 0)", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("invalid write timeout: %v (must be > 0)", c.Server.WriteTimeout)
	}
	if c.Database.ConnectionTimeout <= 0 {
		return fmt.Errorf("invalid database connection timeout: %v (must be > 0)", c.Database.ConnectionTimeout)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.Logging.Level, strings.Join(validLevels, ", "))
	}

	if len(c.Library.Extensions) == 0 {
		return fmt.Errorf("library extensions must not be empty")
	}
	if c.Library.DefaultDuration <= 0 {
		return fmt.Errorf("invalid default duration: %v (must be > 0)", c.Library.DefaultDuration)
	}
	if c.Library.ProbeTimeout <= 0 {
		return fmt.Errorf("invalid probe timeout: %v (must be > 0)", c.Library.ProbeTimeout)
	}
	if c.Library.Watch && c.Library.RescanDebounce <= 0 {
		return fmt.Errorf("invalid rescan debounce: %v (must be > 0 when watching)", c.Library.RescanDebounce)
	}

	if c.Broadcast.BreakInterval <= 0 {
		return fmt.Errorf("invalid break interval: %v (must be > 0)", c.Broadcast.BreakInterval)
	}
	if c.Broadcast.BreakDuration <= 0 {
		return fmt.Errorf("invalid break duration: %v (must be > 0)", c.Broadcast.BreakDuration)
	}

	if c.Guide.Span <= 0 {
		return fmt.Errorf("invalid guide span: %v (must be > 0)", c.Guide.Span)
	}

	// Library root existence is checked when the first scan runs
	return nil
}

// contains checks if a string slice contains a specific value
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
