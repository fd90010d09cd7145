// Package nlog configures the process logger and hands out component
// loggers.
package nlog

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for configuring the base logger.
type Config struct {
	Level   string    // "debug", "info", ...; falls back to LOG_LEVEL
	Output  io.Writer // defaults to os.Stdout
	Service string    // falls back to LOG_SERVICE, then "nkernel"
}

var (
	lock       sync.RWMutex
	configured bool
	base       zerolog.Logger
)

// Configure replaces the base logger. Only the first call has an effect
// unless Reset is called in between.
func Configure(cfg Config) {
	lock.Lock()
	defer lock.Unlock()
	if configured {
		return
	}
	configured = true

	level := zerolog.InfoLevel
	if cfg.Level == "" {
		cfg.Level = os.Getenv("LOG_LEVEL")
	}
	if cfg.Level != "" {
		if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil {
			level = parsed
		}
	}
	zerolog.TimeFieldFormat = time.RFC3339

	writer := cfg.Output
	if writer == nil {
		writer = os.Stdout
	}
	service := cfg.Service
	if service == "" {
		service = os.Getenv("LOG_SERVICE")
		if service == "" {
			service = "nkernel"
		}
	}
	base = zerolog.New(writer).Level(level).With().
		Timestamp().
		Str("service", service).
		Logger()
}

// Reset forgets the current configuration so the next Configure wins.
func Reset() {
	lock.Lock()
	defer lock.Unlock()
	configured = false
}

// Base returns the configured logger, configuring defaults on first use.
func Base() zerolog.Logger {
	lock.RLock()
	ok := configured
	l := base
	lock.RUnlock()
	if ok {
		return l
	}
	Configure(Config{})
	lock.RLock()
	defer lock.RUnlock()
	return base
}

// WithComponent returns a child logger annotated with the component name.
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str("component", component).Logger()
}
