// Package nconfig loads the server configuration from YAML and the
// environment.
package nconfig

import (
	"bytes"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Kernel kinds accepted in Config.Kernel.
const (
	KernelEvent      = "event"
	KernelMiddleware = "middleware"
)

type Config struct {
	Env        string `yaml:"env"`
	Kernel     string `yaml:"kernel"`
	ProjectDir string `yaml:"project_dir"`
	CacheDir   string `yaml:"cache_dir"`

	Server  Server  `yaml:"server"`
	Log     Log     `yaml:"log"`
	Metrics Metrics `yaml:"metrics"`
	Tracing Tracing `yaml:"tracing"`
	Body    Body    `yaml:"body"`
}

type Server struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type Log struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type Tracing struct {
	Enabled bool `yaml:"enabled"`
}

type Body struct {
	Methods []string `yaml:"methods"`
	// ExposeErrors puts 5xx error messages in error responses.
	ExposeErrors bool `yaml:"expose_errors"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Env:        "prod",
		Kernel:     KernelEvent,
		ProjectDir: ".",
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Log: Log{
			Level:   "info",
			Service: "nkernel",
		},
		Metrics: Metrics{
			Enabled: true,
			Path:    "/metrics",
		},
		Body: Body{
			Methods: []string{"POST", "PUT", "PATCH", "DELETE"},
		},
	}
}

// Load reads path on top of the defaults, applies environment overrides
// and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
		if err := Decode(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "config %s", path)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = strings.TrimSuffix(cfg.ProjectDir, "/") + "/tmp/cache"
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode parses YAML into cfg. Unknown keys are an error.
func Decode(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return errors.Wrap(dec.Decode(cfg), "decode yaml")
}

// ApplyEnv overrides fields from the environment using lookup, which is
// normally os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	str("NKERNEL_ENV", &c.Env)
	str("NKERNEL_KERNEL", &c.Kernel)
	str("NKERNEL_PROJECT_DIR", &c.ProjectDir)
	str("NKERNEL_CACHE_DIR", &c.CacheDir)
	str("NKERNEL_ADDR", &c.Server.Addr)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_SERVICE", &c.Log.Service)

	for name, dst := range map[string]*bool{
		"NKERNEL_METRICS": &c.Metrics.Enabled,
		"NKERNEL_TRACING": &c.Tracing.Enabled,
	} {
		if v, ok := lookup(name); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return errors.Wrapf(err, "%s", name)
			}
			*dst = b
		}
	}
	if v, ok := lookup("NKERNEL_SHUTDOWN_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrap(err, "NKERNEL_SHUTDOWN_TIMEOUT")
		}
		c.Server.ShutdownTimeout = d
	}
	return nil
}

func (c Config) Validate() error {
	switch c.Kernel {
	case KernelEvent, KernelMiddleware:
	default:
		return errors.Errorf("kernel must be %q or %q, not %q", KernelEvent, KernelMiddleware, c.Kernel)
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	for name, d := range map[string]time.Duration{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
	} {
		if d <= 0 {
			return errors.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}
	return nil
}
