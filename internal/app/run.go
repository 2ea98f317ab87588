package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vk/bakemeta/internal/ctxlog"
	"github.com/vk/bakemeta/internal/depends"
	"github.com/vk/bakemeta/internal/fsutil"
	"github.com/vk/bakemeta/internal/metadata"
	"github.com/vk/bakemeta/internal/siggen"
)

// result carries the outcome of parsing one recipe.
type result struct {
	file      string
	signature uint64
	deps      int
	stale     []string
	err       error
}

// Run executes the main application logic based on the provided
// configuration: parse the base configuration, then every recipe file
// under RecipePath on a worker pool, and report the recorded
// dependency state of each.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	// A fresh invocation must not inherit fingerprints from a previous
	// one.
	a.cache.Clear()

	d := metadata.New()
	if appConfig.ConfPath != "" {
		d.SetVar(depends.SearchPathVar, filepath.Dir(appConfig.ConfPath))
		if _, err := a.registry.Handle(ctx, appConfig.ConfPath, d, false, true); err != nil {
			return fmt.Errorf("failed to parse base configuration: %w", err)
		}
	}
	if d.GetString(depends.SearchPathVar) == "" {
		d.SetVar(depends.SearchPathVar, appConfig.RecipePath)
	}

	// Everything recorded so far belongs to the base set; per-recipe
	// accumulation starts from here.
	depends.MarkBase(d)
	a.logger.Debug("Base configuration parsed.", "base_deps", len(depends.Entries(d)))

	if err := a.registry.InitParser(d, siggen.BasicFactory(a.decls)); err != nil {
		return fmt.Errorf("failed to initialize signature generator: %w", err)
	}

	files, err := fsutil.FindFilesByExtensions(appConfig.RecipePath, ".bb")
	if err != nil {
		return fmt.Errorf("failed to find recipe files in %s: %w", appConfig.RecipePath, err)
	}
	if len(files) == 0 {
		a.logger.Warn("No recipe files found.", "path", appConfig.RecipePath)
		return nil
	}

	a.logger.Info("Parsing recipes.", "count", len(files), "workers", appConfig.WorkerCount)
	results := a.parseAll(ctx, files, d, appConfig.WorkerCount, appConfig.ProbeSources)

	var errs []error
	for _, res := range results {
		if res.err != nil {
			a.logger.Error("Recipe failed to parse.", "file", res.file, "error", res.err)
			errs = append(errs, res.err)
		}
	}
	a.logger.Info("Parse finished.", "recipes", len(files), "failed", len(errs))
	return errors.Join(errs...)
}

// parseAll fans the recipe files out over a fixed-size worker pool.
// The stat cache and handler registry are shared; both guard their
// state with locks, so workers only need isolated build contexts.
func (a *App) parseAll(ctx context.Context, files []string, base *metadata.Data, workers int, probe bool) []result {
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan string)
	out := make(chan result)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range jobs {
				out <- a.parseOne(ctx, file, base, probe)
			}
		}()
	}
	go func() {
		for _, file := range files {
			jobs <- file
		}
		close(jobs)
	}()
	go func() {
		wg.Wait()
		close(out)
	}()

	results := make([]result, 0, len(files))
	for res := range out {
		results = append(results, res)
	}
	return results
}

// parseOne forks a per-recipe context off the base configuration,
// dispatches the file, and summarizes its recorded dependency state.
func (a *App) parseOne(ctx context.Context, file string, base *metadata.Data, probe bool) result {
	d := base.Copy()
	if _, err := a.registry.Handle(ctx, file, d, false, false); err != nil {
		return result{file: file, err: fmt.Errorf("parse %s: %w", file, err)}
	}

	if probe {
		a.probeSource(ctx, file, d)
	}

	entries := depends.Entries(d)
	var stale []string
	for _, e := range entries {
		if !a.cache.Check(e.Path, e.Fingerprint) {
			stale = append(stale, e.Path)
		}
	}

	var sig uint64
	if gen := a.registry.Generator(); gen != nil {
		sig = gen.Signature(d)
	}

	a.logger.Info("Recipe parsed.",
		"file", file,
		"dependencies", len(entries),
		"signature", fmt.Sprintf("%016x", sig),
		"stale", len(stale))
	return result{file: file, signature: sig, deps: len(entries), stale: stale}
}

// probeSource checks whether the recipe's s3:// source object exists.
// The outcome is informational; a missing upstream object is not a
// parse failure.
func (a *App) probeSource(ctx context.Context, file string, d *metadata.Data) {
	uri := d.GetString("SRC_URI")
	if !strings.HasPrefix(uri, "s3://") || a.fetcher == nil {
		return
	}
	exists, err := a.fetcher.Probe(ctx, uri)
	if err != nil {
		a.logger.Warn("Source probe failed.", "file", file, "uri", uri, "error", err)
		return
	}
	a.logger.Info("Source probed.", "file", file, "uri", uri, "exists", exists)
}
