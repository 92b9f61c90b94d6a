package timer

import (
	"log/slog"
	"sync"

	"github.com/kercylan98/options"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewManagerConfig returns the Manager's default configuration: the
// standard library's default logger, no worker pool installed.
func NewManagerConfig() ManagerConfig {
	c := &managerConfig{logger: slog.Default()}
	c.LogicOptions = options.NewLogicOptions[ManagerOptionsFetcher, ManagerOptions](c, c)
	return c
}

// ManagerConfig is the Manager's fluent configurator, in the same
// LogicOptions shape the teacher's timing.Configuration uses.
type ManagerConfig interface {
	ManagerOptions
	ManagerOptionsFetcher
}

// ManagerOptions is the fluent "With..." side of ManagerConfig.
type ManagerOptions interface {
	options.LogicOptions[ManagerOptionsFetcher, ManagerOptions]

	// WithLogger overrides the logger used for OS-facility failures and
	// recovered callback panics.
	WithLogger(logger *slog.Logger) ManagerConfig

	// WithLogFile points the default JSON logger at a rotating file
	// instead of slog.Default's destination, in the same
	// lumberjack.Logger-as-io.Writer shape the pack's alert-history-service
	// uses. maxSizeMB/maxBackups/maxAgeDays follow lumberjack's own units.
	WithLogFile(path string, maxSizeMB, maxBackups, maxAgeDays int) ManagerConfig
}

// ManagerOptionsFetcher is the read side of ManagerConfig consumed by
// Configure.
type ManagerOptionsFetcher interface {
	FetchLogger() *slog.Logger
}

type managerConfig struct {
	options.LogicOptions[ManagerOptionsFetcher, ManagerOptions]
	logger *slog.Logger
}

func (c *managerConfig) WithLogger(logger *slog.Logger) ManagerConfig {
	if logger != nil {
		c.logger = logger
	}
	return c
}

func (c *managerConfig) WithLogFile(path string, maxSizeMB, maxBackups, maxAgeDays int) ManagerConfig {
	writer := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	c.logger = slog.New(slog.NewJSONHandler(writer, nil))
	return c
}

func (c *managerConfig) FetchLogger() *slog.Logger { return c.logger }

// Configure applies cfg to the package-wide Manager before it is first
// used. It panics if Instance has already created the singleton — the
// same "configure before first use" contract the teacher's time wheel
// follows via its Builder.
func Configure(cfg ManagerConfig) {
	if instance != nil {
		panic("timer: Configure called after the manager was already instantiated")
	}
	instanceOnce.Do(func() {
		instance = newManager()
		instance.SetLogger(cfg.FetchLogger())
	})
}

// ResetForTesting tears down the package-wide singleton so a test can
// force a fresh Manager (and a fresh kernel timer) on the next Instance
// call. It is not safe to call while any Timer from the previous instance
// might still fire.
func ResetForTesting() {
	if instance != nil {
		_ = instance.kernel.Close()
	}
	instance = nil
	instanceOnce = sync.Once{}
}
