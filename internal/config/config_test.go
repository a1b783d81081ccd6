package config

import (
	"os"
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Server defaults
	if cfg.Server.Port != defaultServerPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, defaultServerPort)
	}
	if cfg.Server.Host != defaultServerHost {
		t.Errorf("Server.Host = %s, want %s", cfg.Server.Host, defaultServerHost)
	}

	// Database defaults
	if cfg.Database.Path != defaultDatabasePath {
		t.Errorf("Database.Path = %s, want %s", cfg.Database.Path, defaultDatabasePath)
	}
	if cfg.Database.MigrationsPath != defaultMigrationsPath {
		t.Errorf("Database.MigrationsPath = %s, want %s", cfg.Database.MigrationsPath, defaultMigrationsPath)
	}
	if cfg.Database.EnableWAL != defaultDatabaseEnableWAL {
		t.Errorf("Database.EnableWAL = %v, want %v", cfg.Database.EnableWAL, defaultDatabaseEnableWAL)
	}

	// Logging defaults
	if cfg.Logging.Level != defaultLogLevel {
		t.Errorf("Logging.Level = %s, want %s", cfg.Logging.Level, defaultLogLevel)
	}
	if cfg.Logging.Pretty != defaultLogPretty {
		t.Errorf("Logging.Pretty = %v, want %v", cfg.Logging.Pretty, defaultLogPretty)
	}

	// Library defaults, extensions come back normalized with a leading dot
	if cfg.Library.Root != "./media" {
		t.Errorf("Library.Root = %s, want ./media", cfg.Library.Root)
	}
	if len(cfg.Library.Extensions) == 0 {
		t.Fatal("Library.Extensions is empty")
	}
	if cfg.Library.Extensions[0] != ".mp4" {
		t.Errorf("Library.Extensions[0] = %s, want .mp4", cfg.Library.Extensions[0])
	}
	if cfg.Library.DefaultDuration != defaultDefaultDuration {
		t.Errorf("Library.DefaultDuration = %v, want %v", cfg.Library.DefaultDuration, defaultDefaultDuration)
	}
	if !cfg.Library.Watch {
		t.Error("Library.Watch = false, want true")
	}
	if cfg.Library.RescanDebounce != defaultRescanDebounce {
		t.Errorf("Library.RescanDebounce = %v, want %v", cfg.Library.RescanDebounce, defaultRescanDebounce)
	}

	// Broadcast defaults
	if cfg.Broadcast.BreakInterval != defaultBreakInterval {
		t.Errorf("Broadcast.BreakInterval = %v, want %v", cfg.Broadcast.BreakInterval, defaultBreakInterval)
	}
	if cfg.Broadcast.BreakDuration != defaultBreakDuration {
		t.Errorf("Broadcast.BreakDuration = %v, want %v", cfg.Broadcast.BreakDuration, defaultBreakDuration)
	}
	if !cfg.Broadcast.UseBumpers {
		t.Error("Broadcast.UseBumpers = false, want true")
	}
	if !cfg.Broadcast.ShuffleShows {
		t.Error("Broadcast.ShuffleShows = false, want true")
	}

	// Guide defaults
	if cfg.Guide.Span != defaultGuideSpan {
		t.Errorf("Guide.Span = %v, want %v", cfg.Guide.Span, defaultGuideSpan)
	}
	if cfg.Guide.ExportPath != defaultGuideExportPath {
		t.Errorf("Guide.ExportPath = %s, want %s", cfg.Guide.ExportPath, defaultGuideExportPath)
	}
}

// validConfig returns a configuration that passes validation, for mutation
// in the table below
func validConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  defaultReadTimeout,
			WriteTimeout: defaultWriteTimeout,
		},
		Database: DatabaseConfig{
			Path:              "./data/rerun.db",
			MigrationsPath:    defaultMigrationsPath,
			ConnectionTimeout: defaultDatabaseConnectionTimeout,
			EnableWAL:         true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: false,
		},
		Library: LibraryConfig{
			Root:            "./media",
			Extensions:      []string{".mp4", ".mkv"},
			DefaultDuration: 30 * time.Second,
			ProbeTimeout:    5 * time.Second,
			Watch:           true,
			RescanDebounce:  2 * time.Second,
		},
		Broadcast: BroadcastConfig{
			BreakInterval: 10 * time.Minute,
			BreakDuration: 3 * time.Minute,
			UseBumpers:    true,
			ShuffleShows:  true,
		},
		Guide: GuideConfig{
			Span:       6 * time.Hour,
			ExportPath: "./data/guide.xml",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "invalid server port (too low)",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid server port (too high)",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "invalid read timeout",
			mutate:  func(c *Config) { c.Server.ReadTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "invalid" },
			wantErr: true,
		},
		{
			name:    "empty extensions",
			mutate:  func(c *Config) { c.Library.Extensions = nil },
			wantErr: true,
		},
		{
			name:    "invalid default duration",
			mutate:  func(c *Config) { c.Library.DefaultDuration = 0 },
			wantErr: true,
		},
		{
			name:    "invalid probe timeout",
			mutate:  func(c *Config) { c.Library.ProbeTimeout = -time.Second },
			wantErr: true,
		},
		{
			name:    "watching requires a debounce",
			mutate:  func(c *Config) { c.Library.RescanDebounce = 0 },
			wantErr: true,
		},
		{
			name: "debounce not needed when not watching",
			mutate: func(c *Config) {
				c.Library.Watch = false
				c.Library.RescanDebounce = 0
			},
			wantErr: false,
		},
		{
			name:    "invalid break interval",
			mutate:  func(c *Config) { c.Broadcast.BreakInterval = 0 },
			wantErr: true,
		},
		{
			name:    "invalid break duration",
			mutate:  func(c *Config) { c.Broadcast.BreakDuration = -time.Minute },
			wantErr: true,
		},
		{
			name:    "invalid guide span",
			mutate:  func(c *Config) { c.Guide.Span = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	_ = os.Setenv("RERUN_SERVER_PORT", "9090")
	_ = os.Setenv("RERUN_LOGGING_LEVEL", "debug")
	_ = os.Setenv("RERUN_LIBRARY_ROOT", "/srv/media")
	_ = os.Setenv("RERUN_BROADCAST_BREAKINTERVAL", "5m")
	_ = os.Setenv("RERUN_GUIDE_SPAN", "12h")
	defer func() {
		_ = os.Unsetenv("RERUN_SERVER_PORT")
		_ = os.Unsetenv("RERUN_LOGGING_LEVEL")
		_ = os.Unsetenv("RERUN_LIBRARY_ROOT")
		_ = os.Unsetenv("RERUN_BROADCAST_BREAKINTERVAL")
		_ = os.Unsetenv("RERUN_GUIDE_SPAN")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
	if cfg.Library.Root != "/srv/media" {
		t.Errorf("Library.Root = %s, want /srv/media", cfg.Library.Root)
	}
	if cfg.Broadcast.BreakInterval != 5*time.Minute {
		t.Errorf("Broadcast.BreakInterval = %v, want 5m", cfg.Broadcast.BreakInterval)
	}
	if cfg.Guide.Span != 12*time.Hour {
		t.Errorf("Guide.Span = %v, want 12h", cfg.Guide.Span)
	}
}

func TestExtensionNormalization(t *testing.T) {
	_ = os.Setenv("RERUN_LIBRARY_EXTENSIONS", "MP4, mkv ,.AVI")
	defer func() {
		_ = os.Unsetenv("RERUN_LIBRARY_EXTENSIONS")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []string{".mp4", ".mkv", ".avi"}
	if len(cfg.Library.Extensions) != len(want) {
		t.Fatalf("Library.Extensions = %v, want %v", cfg.Library.Extensions, want)
	}
	for i, ext := range want {
		if cfg.Library.Extensions[i] != ext {
			t.Errorf("Library.Extensions[%d] = %s, want %s", i, cfg.Library.Extensions[i], ext)
		}
	}
}

func TestContains(t *testing.T) {
	tests := []struct {
		name  string
		slice []string
		item  string
		want  bool
	}{
		{
			name:  "item exists",
			slice: []string{"one", "two", "three"},
			item:  "two",
			want:  true,
		},
		{
			name:  "item does not exist",
			slice: []string{"one", "two", "three"},
			item:  "four",
			want:  false,
		},
		{
			name:  "empty slice",
			slice: []string{},
			item:  "one",
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := contains(tt.slice, tt.item)
			if got != tt.want {
				t.Errorf("contains() = %v, want %v", got, tt.want)
			}
		})
	}
}
