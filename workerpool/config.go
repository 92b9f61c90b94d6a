package workerpool

import (
	"log/slog"
	"runtime"

	"github.com/kercylan98/options"
)

// NewConfig returns the pool's default configuration: one idle worker per
// detected CPU, growth capped at 2*MaxIdle+1, logging through the standard
// library's default logger.
func NewConfig() Config {
	c := &config{
		maxIdle: runtime.NumCPU(),
		logger:  slog.Default(),
	}
	c.LogicOptions = options.NewLogicOptions[OptionsFetcher, Options](c, c)
	return c
}

// Config is the pool's fluent configurator, built the same way the
// teacher's wheel Configuration is: a LogicOptions-backed builder pair.
type Config interface {
	Options
	OptionsFetcher
}

// Options is the fluent "With..." side of Config.
type Options interface {
	options.LogicOptions[OptionsFetcher, Options]

	// WithMaxIdle sets the idle-worker baseline the 2*MaxIdle+1 growth cap
	// is computed from.
	WithMaxIdle(maxIdle int) Config

	// WithLogger overrides the pool's logger.
	WithLogger(logger *slog.Logger) Config
}

// OptionsFetcher is the read side of Config consumed by New.
type OptionsFetcher interface {
	FetchMaxIdle() int
	FetchLogger() *slog.Logger
}

type config struct {
	options.LogicOptions[OptionsFetcher, Options]
	maxIdle int
	logger  *slog.Logger
}

func (c *config) WithMaxIdle(maxIdle int) Config {
	if maxIdle < 1 {
		maxIdle = 1
	}
	c.maxIdle = maxIdle
	return c
}

func (c *config) WithLogger(logger *slog.Logger) Config {
	if logger != nil {
		c.logger = logger
	}
	return c
}

func (c *config) FetchMaxIdle() int { return c.maxIdle }

func (c *config) FetchLogger() *slog.Logger { return c.logger }
