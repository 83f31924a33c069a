package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "GBDASH_"

// Config is the top-level configuration for the dashboard console.
type Config struct {
	Backend     BackendConfig     `yaml:"backend" envPrefix:"BACKEND_"`
	Console     ConsoleConfig     `yaml:"console" envPrefix:"CONSOLE_"`
	Dashboard   DashboardConfig   `yaml:"dashboard" envPrefix:"DASHBOARD_"`
	HealthCheck HealthCheckConfig `yaml:"health_check" envPrefix:"HEALTH_"`
	Log         LogConfig         `yaml:"log" envPrefix:"LOG_"`
}

// BackendConfig describes the project API the dashboard talks to.
type BackendConfig struct {
	BaseURL         string        `yaml:"base_url" env:"URL" validate:"required,url"`
	Timeout         time.Duration `yaml:"timeout" env:"TIMEOUT" validate:"gte=0"`
	RequestIDHeader string        `yaml:"request_id_header" env:"REQUEST_ID_HEADER"`
}

// ConsoleConfig defines where the console server listens.
type ConsoleConfig struct {
	Bind    string `yaml:"bind" env:"BIND"`
	Port    int    `yaml:"port" env:"PORT" validate:"gte=0,lte=65535"`
	APIKey  string `yaml:"api_key" env:"API_KEY"`
	TLSCert string `yaml:"tls_cert" env:"TLS_CERT"`
	TLSKey  string `yaml:"tls_key" env:"TLS_KEY"`
}

// DashboardConfig tunes controller behaviour that is safe to change at runtime.
type DashboardConfig struct {
	NotificationTTL  time.Duration `yaml:"notification_ttl" env:"NOTIFICATION_TTL" validate:"gte=0"`
	SearchDebounce   time.Duration `yaml:"search_debounce" env:"SEARCH_DEBOUNCE" validate:"gte=0"`
	ProgressInterval time.Duration `yaml:"progress_interval" env:"PROGRESS_INTERVAL" validate:"gte=0"`
	ProgressCap      float64       `yaml:"progress_cap" env:"PROGRESS_CAP" validate:"gte=0,lt=100"`
	DownloadDir      string        `yaml:"download_dir" env:"DOWNLOAD_DIR"`
	ExportPrefix     string        `yaml:"export_prefix" env:"EXPORT_PREFIX"`
}

// HealthCheckConfig defines health check parameters for the console's dependencies.
type HealthCheckConfig struct {
	Interval         time.Duration `yaml:"interval" env:"INTERVAL" validate:"gte=0"`
	FailureThreshold int           `yaml:"failure_threshold" env:"FAILURE_THRESHOLD" validate:"gte=0"`
	Timeout          time.Duration `yaml:"timeout" env:"TIMEOUT" validate:"gte=0"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" env:"FORMAT" validate:"omitempty,oneof=text json"`
}

// TLSEnabled returns true if both TLS cert and key paths are configured.
func (c ConsoleConfig) TLSEnabled() bool {
	return c.TLSCert != "" && c.TLSKey != ""
}

// SlogLevel maps the configured level name onto a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// substituteEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func substituteEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envVarPattern.FindSubmatch(match)[1]
		if val, ok := os.LookupEnv(string(varName)); ok {
			return []byte(val)
		}
		return match
	})
}

// LoadEnvFiles loads the given dotenv files that exist and returns how many were read.
func LoadEnvFiles(files ...string) (int, error) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load reads a YAML config file, applies ${VAR} substitution and GBDASH_* overrides,
// fills defaults and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		data = substituteEnvVars(data)
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://localhost:5000"
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 30 * time.Second
	}
	if cfg.Backend.RequestIDHeader == "" {
		cfg.Backend.RequestIDHeader = "X-Request-ID"
	}
	if cfg.Console.Bind == "" {
		cfg.Console.Bind = "127.0.0.1"
	}
	if cfg.Console.Port == 0 {
		cfg.Console.Port = 8090
	}
	if cfg.Dashboard.NotificationTTL == 0 {
		cfg.Dashboard.NotificationTTL = 4 * time.Second
	}
	if cfg.Dashboard.SearchDebounce == 0 {
		cfg.Dashboard.SearchDebounce = 500 * time.Millisecond
	}
	if cfg.Dashboard.ProgressInterval == 0 {
		cfg.Dashboard.ProgressInterval = 800 * time.Millisecond
	}
	if cfg.Dashboard.ProgressCap == 0 {
		cfg.Dashboard.ProgressCap = 85
	}
	if cfg.Dashboard.DownloadDir == "" {
		cfg.Dashboard.DownloadDir = "downloads"
	}
	if cfg.Dashboard.ExportPrefix == "" {
		cfg.Dashboard.ExportPrefix = "경북관련사업"
	}
	if cfg.HealthCheck.Interval == 0 {
		cfg.HealthCheck.Interval = 30 * time.Second
	}
	if cfg.HealthCheck.FailureThreshold == 0 {
		cfg.HealthCheck.FailureThreshold = 3
	}
	if cfg.HealthCheck.Timeout == 0 {
		cfg.HealthCheck.Timeout = 5 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

func validate(cfg *Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		return err
	}
	if (cfg.Console.TLSCert == "") != (cfg.Console.TLSKey == "") {
		return fmt.Errorf("console: tls_cert and tls_key must be set together")
	}
	return nil
}

// Watcher watches a config file for changes and calls the callback with the new config.
type Watcher struct {
	path     string
	callback func(*Config)
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a new config file watcher.
func NewWatcher(path string, callback func(*Config)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	if err := w.Add(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching config file: %w", err)
	}

	cw := &Watcher{
		path:     path,
		callback: callback,
		watcher:  w,
		stopCh:   make(chan struct{}),
	}

	go cw.run()
	return cw, nil
}

func (cw *Watcher) run() {
	// Editors emit bursts of writes; reload once they settle.
	var debounce *time.Timer
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, cw.reload)
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "err", err)
		case <-cw.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return
		}
	}
}

func (cw *Watcher) reload() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cfg, err := Load(cw.path)
	if err != nil {
		slog.Error("config hot-reload failed", "path", cw.path, "err", err)
		return
	}

	slog.Info("configuration reloaded", "path", cw.path)
	cw.callback(cfg)
}

// Stop stops the config watcher. Safe to call multiple times.
func (cw *Watcher) Stop() error {
	var err error
	cw.stopOnce.Do(func() {
		close(cw.stopCh)
		err = cw.watcher.Close()
	})
	return err
}
