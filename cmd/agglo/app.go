package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/agglo/internal/datasource"
	"github.com/vanderheijden86/agglo/pkg/config"
	"github.com/vanderheijden86/agglo/pkg/debug"
	"github.com/vanderheijden86/agglo/pkg/geo"
	"github.com/vanderheijden86/agglo/pkg/loader"
	"github.com/vanderheijden86/agglo/pkg/lookup"
	"github.com/vanderheijden86/agglo/pkg/model"
	"github.com/vanderheijden86/agglo/pkg/view"
)

// app is everything the dashboard and exporter need, loaded once.
type app struct {
	session    *view.Session
	metadata   []model.MetadataEntry
	boundaries *geo.Collection
	source     datasource.DataSource
}

func loadOptions(cfg config.Config, warn func(string)) datasource.LoadOptions {
	return datasource.LoadOptions{
		DataDir:        cfg.Data.Dir,
		DatasetName:    cfg.Data.Dataset,
		CacheName:      cfg.Data.Cache,
		SchemaPath:     cfg.SchemaPath(),
		WarningHandler: warn,
	}
}

// loadApp loads the dataset, metadata and boundaries concurrently. Only a
// dataset failure is fatal; missing metadata or boundaries are warned about.
func loadApp(ctx context.Context, cfg config.Config, policy view.SelectionPolicy, warn func(string)) (*app, error) {
	var (
		result     datasource.LoadResult
		metadata   []model.MetadataEntry
		boundaries *geo.Collection
		mu         sync.Mutex
	)
	debug.Section("startup")
	emit := warn
	warn = func(msg string) {
		mu.Lock()
		defer mu.Unlock()
		emit(msg)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		result, err = datasource.LoadDataset(loadOptions(cfg, warn))
		return err
	})
	g.Go(func() error {
		m, err := loader.LoadMetadata(cfg.MetadataPath())
		if err != nil {
			warn(fmt.Sprintf("metadata unavailable: %v", err))
			return nil
		}
		metadata = m
		return nil
	})
	g.Go(func() error {
		b, err := loadBoundaries(gctx, cfg)
		if err != nil {
			warn(fmt.Sprintf("county boundaries unavailable: %v", err))
			return nil
		}
		boundaries = b
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	session, err := newSession(result.Rows, policy)
	if err != nil {
		return nil, err
	}
	debug.Log("loaded %d rows from %s", len(result.Rows), result.Source.Path)
	return &app{
		session:    session,
		metadata:   metadata,
		boundaries: boundaries,
		source:     result.Source,
	}, nil
}

// newSession normalizes rows in place and starts a session over them.
func newSession(rows []model.Row, policy view.SelectionPolicy) (*view.Session, error) {
	if fixed := lookup.NormalizeRows(rows); fixed > 0 {
		debug.Log("normalized %d geo ids", fixed)
	}
	return view.NewSession(view.NewReactor(rows, lookup.Derive(rows), policy))
}

// reloadSession rereads the dataset and metadata for a running dashboard.
func reloadSession(cfg config.Config, policy view.SelectionPolicy) (*view.Session, []model.MetadataEntry, error) {
	debug.Section("reload")
	var warnings []string
	result, err := datasource.LoadDataset(loadOptions(cfg, func(msg string) { warnings = append(warnings, msg) }))
	if err != nil {
		return nil, nil, err
	}
	for _, w := range warnings {
		debug.Log("reload: %s", w)
	}
	session, err := newSession(result.Rows, policy)
	if err != nil {
		return nil, nil, err
	}
	meta, err := loader.LoadMetadata(cfg.MetadataPath())
	if err != nil {
		debug.Log("reload: metadata unavailable: %v", err)
	}
	return session, meta, nil
}

// loadBoundaries reads the configured boundary file, or fetches the
// boundary URL through the local cache.
func loadBoundaries(ctx context.Context, cfg config.Config) (*geo.Collection, error) {
	b := cfg.Boundaries
	switch {
	case b.Disabled:
		return nil, nil
	case b.Path != "":
		return geo.Load(b.Path)
	case b.URL != "":
		ctx, cancel := context.WithTimeout(ctx, geo.DefaultFetchTimeout)
		defer cancel()
		return geo.Fetch(ctx, b.URL, cfg.BoundaryCachePath())
	}
	return nil, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
