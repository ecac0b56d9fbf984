package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/vanderheijden86/agglo/internal/datasource"
	"github.com/vanderheijden86/agglo/pkg/config"
	"github.com/vanderheijden86/agglo/pkg/watcher"
)

func runCache(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("agglo cache", flag.ContinueOnError)
	fs.SetOutput(stderr)
	common := addCommonFlags(fs)
	verify := fs.Bool("verify", false, "Compare the cache against the CSV and report differences")
	watch := fs.Bool("watch", false, "Rebuild the cache whenever the CSV changes")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	stopProfile, err := common.startProfile()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer stopProfile()
	defer common.reportMetrics(stderr)

	cfg, err := common.resolveConfig()
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}
	opts := loadOptions(cfg, stderrWarner(stderr))

	if *verify {
		return verifyCache(opts, stdout, stderr)
	}

	n, err := datasource.RebuildCache(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error rebuilding cache: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Cached %d rows in %s\n", n, cfg.CachePath())

	if *watch {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := watchCache(ctx, cfg, opts, stdout, stderr); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}
	return 0
}

// watcherOptions maps the watch config onto dataset watcher options.
func watcherOptions(c config.WatchConfig) []watcher.WatcherOption {
	return []watcher.WatcherOption{
		watcher.WithForcePoll(c.Poll),
		watcher.WithPollInterval(c.PollInterval),
		watcher.WithDebounceDuration(c.Debounce),
	}
}

// watchCache rebuilds the cache on every dataset change until ctx is done.
func watchCache(ctx context.Context, cfg config.Config, opts datasource.LoadOptions, stdout, stderr io.Writer) error {
	w, err := watcher.NewWatcher(cfg.DatasetPath(), append(watcherOptions(cfg.Watch),
		watcher.WithOnChange(func() {
			n, err := datasource.RebuildCache(opts)
			if err != nil {
				fmt.Fprintf(stderr, "Error rebuilding cache: %v\n", err)
				return
			}
			fmt.Fprintf(stdout, "Cached %d rows in %s\n", n, cfg.CachePath())
		}),
		watcher.WithOnError(func(err error) {
			fmt.Fprintf(stderr, "Watch error: %v\n", err)
		}),
	)...)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	fmt.Fprintf(stdout, "Watching %s\n", cfg.DatasetPath())
	<-ctx.Done()
	return nil
}

// verifyCache compares the CSV with its cache. Exit code 1 means the
// cache is missing, unreadable or out of sync.
func verifyCache(opts datasource.LoadOptions, stdout, stderr io.Writer) int {
	sources, err := datasource.DiscoverSources(datasource.DiscoveryOptions{
		DataDir:                opts.DataDir,
		DatasetName:            opts.DatasetName,
		CacheName:              opts.CacheName,
		ValidateAfterDiscovery: true,
		IncludeInvalid:         true,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	var csvSource, cacheSource *datasource.DataSource
	for i := range sources {
		switch sources[i].Type {
		case datasource.SourceTypeCSV:
			csvSource = &sources[i]
		case datasource.SourceTypeCache:
			cacheSource = &sources[i]
		}
	}
	if csvSource == nil {
		fmt.Fprintf(stderr, "Error: dataset %s not found\n", opts.DatasetName)
		return 1
	}
	if cacheSource == nil {
		fmt.Fprintln(stdout, "No cache found; run 'agglo cache' to build one")
		return 1
	}
	for _, s := range []*datasource.DataSource{csvSource, cacheSource} {
		if !s.Valid {
			fmt.Fprintf(stdout, "Invalid %s: %s\n", s.Type, s.ValidationError)
			return 1
		}
	}

	diff, err := datasource.CompareSources(*csvSource, *cacheSource, datasource.DefaultDiffOptions())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, diff.Summary())
	if diff.HasInconsistencies() {
		return 1
	}
	return 0
}
