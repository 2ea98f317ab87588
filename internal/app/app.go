package app

import (
	"io"
	"log/slog"

	"github.com/vk/bakemeta/internal/depends"
	"github.com/vk/bakemeta/internal/fetch"
	"github.com/vk/bakemeta/internal/parse"
	"github.com/vk/bakemeta/internal/recipename"
	"github.com/vk/bakemeta/internal/statcache"
	"github.com/vk/bakemeta/internal/vardeps"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle. Every cache it owns is an isolated instance, so two Apps
// never share mutable state.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *parse.Registry
	cache    *statcache.Cache
	recorder *depends.Recorder
	splitter *recipename.Splitter
	decls    *vardeps.Registry
	fetcher  fetch.Fetcher
}

// NewApp is the constructor for the main application. It returns a
// fully initialized App instance with its own logger, caches, and
// handler registry. When no modules are given, the built-in handlers
// are registered in their standard precedence order.
func NewApp(outW io.Writer, appConfig *Config, modules ...parse.Module) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	cache := statcache.New()
	recorder := depends.NewRecorder(cache)
	splitter := recipename.NewSplitter()
	decls := vardeps.New()

	reg := parse.New()
	if len(modules) == 0 {
		modules = coreModules(recorder, splitter)
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All handler modules registered.", "count", len(modules))

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		cache:    cache,
		recorder: recorder,
		splitter: splitter,
		decls:    decls,
		fetcher:  fetch.NewS3(fetch.S3Options{}),
	}
}

// SetFetcher replaces the source fetcher. This is primarily for
// testing.
func (a *App) SetFetcher(f fetch.Fetcher) {
	a.fetcher = f
}

// Registry returns the application's handler registry. This is
// primarily for testing.
func (a *App) Registry() *parse.Registry {
	return a.registry
}

// Recorder returns the application's dependency recorder. This is
// primarily for testing.
func (a *App) Recorder() *depends.Recorder {
	return a.recorder
}
