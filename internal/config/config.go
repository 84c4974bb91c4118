package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Default locations of the fixed assets, relative to static.base_dir.
const (
	DefaultFaviconPath   = "modules/StaticFiles/static/img/favicon.ico"
	DefaultAboutPath     = "modules/StaticFiles/static/templates/about.html"
	DefaultBackdropsPath = "modules/StaticFiles/static/img/backdrops/backdrops.json"
	DefaultMetricsPath   = "/metrics"
)

// DefaultModuleRoots maps every recognized module name to its default root
// directory, relative to static.base_dir.
var DefaultModuleRoots = map[string]string{
	"general":      "modules/StaticFiles/static",
	"interface":    "modules/LabelUI/static",
	"reception":    "modules/Reception/static",
	"dataAdmin":    "modules/DataAdministration/static",
	"projectAdmin": "modules/ProjectAdministration/static",
}

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Static  StaticConfig  `koanf:"static"`
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string     `koanf:"host"`
	Port    int        `koanf:"port"`
	Mode    string     `koanf:"mode"`
	Timeout string     `koanf:"timeout"`
	CORS    CORSConfig `koanf:"cors"`
	// TrustRequestID reuses X-Request-ID from a fronting proxy.
	TrustRequestID bool `koanf:"trust_request_id"`
}

// CORSConfig holds CORS middleware settings.
type CORSConfig struct {
	AllowOrigins []string `koanf:"allow_origins"`
	MaxAge       string   `koanf:"max_age"`
}

// StaticConfig locates the asset roots and fixed files on disk.
type StaticConfig struct {
	BaseDir   string            `koanf:"base_dir"`
	Modules   map[string]string `koanf:"modules"`
	Favicon   string            `koanf:"favicon"`
	About     string            `koanf:"about"`
	Backdrops string            `koanf:"backdrops"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level           string `koanf:"level"`
	Format          string `koanf:"format"`
	Color           *bool  `koanf:"color"`
	FilePath        string `koanf:"file_path"`
	MaxSizeMB       int    `koanf:"max_size_mb"`
	RetentionDays   int    `koanf:"retention_days"`
	MaxBackups      int    `koanf:"max_backups"`
	CompressRotated *bool  `koanf:"compress_rotated"`
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment so that Load picks them up as APP__ overrides. Variables that
// are already set are not overwritten. A missing file is not an error.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from a YAML file and overlays environment variables.
// Environment variables use the prefix "APP__" and double-underscore as the
// hierarchy separator. Single underscores are preserved as part of the key name.
// For example, APP__SERVER__PORT=9090 overrides server.port and
// APP__STATIC__BASE_DIR=/srv/aide overrides static.base_dir.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}

	// APP__SERVER__PORT -> server.port
	// APP__STATIC__MODULES__INTERFACE -> static.modules.interface
	if err := k.Load(env.Provider("APP__", ".", func(s string) string {
		key := strings.TrimPrefix(s, "APP__")
		key = strings.ToLower(key)
		key = strings.ReplaceAll(key, "__", ".")
		return canonicalEnvKey(key)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints and supported values, and fills in
// defaults for optional static and metrics settings.
func (c *Config) Validate() error {
	mode := strings.TrimSpace(c.Server.Mode)
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		c.Server.Mode = mode
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", c.Server.Mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", c.Server.Port)
	}

	host := strings.TrimSpace(c.Server.Host)
	if host == "" {
		return fmt.Errorf("server.host is required")
	}
	c.Server.Host = host

	// Whitespace-only means unset.
	c.Server.Timeout = strings.TrimSpace(c.Server.Timeout)
	c.Server.CORS.MaxAge = strings.TrimSpace(c.Server.CORS.MaxAge)

	if t := c.Server.Timeout; t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return fmt.Errorf("invalid server.timeout %q: %w", c.Server.Timeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid server.timeout %q: must be greater than 0", c.Server.Timeout)
		}
	}

	if ma := c.Server.CORS.MaxAge; ma != "" {
		d, err := time.ParseDuration(ma)
		if err != nil {
			return fmt.Errorf("invalid server.cors.max_age %q: must be a valid duration (e.g. \"24h\", \"3600s\"): %w", c.Server.CORS.MaxAge, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid server.cors.max_age %q: must be greater than 0", c.Server.CORS.MaxAge)
		}
	}

	if err := c.Static.validate(); err != nil {
		return err
	}

	c.Metrics.Path = strings.TrimSpace(c.Metrics.Path)
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("invalid metrics.path %q: must start with '/'", c.Metrics.Path)
	}

	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Log.Level = level
	default:
		return fmt.Errorf("invalid log.level %q: must be one of %q, %q, %q, %q", c.Log.Level, "debug", "info", "warn", "error")
	}

	format := strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch format {
	case "text", "json":
		c.Log.Format = format
	default:
		return fmt.Errorf("invalid log.format %q: must be one of %q, %q", c.Log.Format, "text", "json")
	}

	return nil
}

func (s *StaticConfig) validate() error {
	s.BaseDir = strings.TrimSpace(s.BaseDir)
	if s.BaseDir == "" {
		s.BaseDir = "."
	}

	modules := make(map[string]string, len(DefaultModuleRoots))
	for name, dir := range DefaultModuleRoots {
		modules[name] = dir
	}
	seen := make(map[string]string, len(s.Modules))
	for name, dir := range s.Modules {
		canonical, ok := canonicalModuleName(name)
		if !ok {
			return fmt.Errorf("invalid static.modules key %q: must be one of %s", name, strings.Join(ModuleNames(), ", "))
		}
		if prev, dup := seen[canonical]; dup {
			pair := []string{prev, name}
			sort.Strings(pair)
			return fmt.Errorf("static.modules.%s is set more than once (%q and %q)", canonical, pair[0], pair[1])
		}
		seen[canonical] = name
		dir = strings.TrimSpace(dir)
		if dir == "" {
			return fmt.Errorf("static.modules.%s cannot be empty", canonical)
		}
		modules[canonical] = dir
	}
	s.Modules = modules

	fixed := []struct {
		name  string
		value *string
		def   string
	}{
		{"static.favicon", &s.Favicon, DefaultFaviconPath},
		{"static.about", &s.About, DefaultAboutPath},
		{"static.backdrops", &s.Backdrops, DefaultBackdropsPath},
	}
	for _, f := range fixed {
		v := strings.TrimSpace(*f.value)
		if v == "" {
			v = f.def
		}
		if strings.HasSuffix(v, "/") {
			return fmt.Errorf("invalid %s %q: must name a file", f.name, *f.value)
		}
		*f.value = v
	}

	return nil
}

// canonicalModuleName matches a configured key against the recognized module
// names. koanf lowercases keys that arrive from environment variables, so the
// match ignores case.
// canonicalEnvKey restores the module name casing that env keys lose, so
// APP__STATIC__MODULES__DATAADMIN overrides static.modules.dataAdmin instead
// of landing beside it.
func canonicalEnvKey(key string) string {
	const prefix = "static.modules."
	name, ok := strings.CutPrefix(key, prefix)
	if !ok {
		return key
	}
	if canonical, ok := canonicalModuleName(name); ok {
		return prefix + canonical
	}
	return key
}

func canonicalModuleName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for known := range DefaultModuleRoots {
		if strings.EqualFold(known, name) {
			return known, true
		}
	}
	return "", false
}

// ModuleNames returns the recognized module names in sorted order.
func ModuleNames() []string {
	names := make([]string, 0, len(DefaultModuleRoots))
	for name := range DefaultModuleRoots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
