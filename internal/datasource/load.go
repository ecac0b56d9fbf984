package datasource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/agglo/pkg/debug"
	"github.com/vanderheijden86/agglo/pkg/loader"
	"github.com/vanderheijden86/agglo/pkg/metrics"
	"github.com/vanderheijden86/agglo/pkg/model"
)

// LoadOptions configures LoadDataset.
type LoadOptions struct {
	DataDir     string
	DatasetName string
	CacheName   string
	// SchemaPath is an optional YAML column schema; empty or missing means
	// loader.DefaultSchema.
	SchemaPath string
	// DisableCache skips reading and writing the SQLite cache.
	DisableCache bool
	// WarningHandler receives non-fatal problems (bad CSV lines, cache
	// failures). If nil, warnings are printed to os.Stderr.
	WarningHandler func(string)
}

// LoadResult is the outcome of LoadDataset.
type LoadResult struct {
	Rows []model.Row
	// Source is the source the rows were read from.
	Source DataSource
	// CacheRebuilt is true when the CSV was parsed and the cache rewritten.
	CacheRebuilt bool
}

// LoadDataset loads dataset rows from the freshest valid source. A cache that
// is at least as new as the CSV is read directly; otherwise the CSV is parsed
// and the cache (re)built from it.
func LoadDataset(opts LoadOptions) (LoadResult, error) {
	defer debug.LogEnterExit("LoadDataset")()
	defer metrics.Timer(metrics.DatasetLoad)()

	parseOpts := loader.ParseOptions{WarningHandler: opts.WarningHandler}
	warn := parseOpts.Warn()

	schema, err := resolveSchema(opts.SchemaPath)
	if err != nil {
		return LoadResult{}, err
	}
	parseOpts.Schema = &schema

	cacheName := opts.CacheName
	if opts.DisableCache {
		cacheName = ""
	}
	sources, err := DiscoverSources(DiscoveryOptions{
		DataDir:                opts.DataDir,
		DatasetName:            opts.DatasetName,
		CacheName:              cacheName,
		Schema:                 &schema,
		ValidateAfterDiscovery: true,
		IncludeInvalid:         true,
		Verbose:                debug.Enabled(),
		Logger:                 func(msg string) { debug.Log("%s", msg) },
	})
	if err != nil {
		return LoadResult{}, err
	}

	var csvSource *DataSource
	for i := range sources {
		s := sources[i]
		if s.Type == SourceTypeCSV {
			csvSource = &sources[i]
		}
		if s.Type == SourceTypeCache && !s.Valid {
			warn(fmt.Sprintf("ignoring cache %s: %s", s.Path, s.ValidationError))
		}
	}

	best, err := SelectBestSource(sources)
	if err != nil {
		if csvSource != nil && !csvSource.Valid {
			return LoadResult{}, fmt.Errorf("%w: %s", ErrNoSource, csvSource.ValidationError)
		}
		return LoadResult{}, fmt.Errorf("%w in %s", ErrNoSource, opts.DataDir)
	}

	stale := csvSource != nil && csvSource.Valid && cacheIsStale(best, *csvSource)
	if best.Type == SourceTypeCache && !stale {
		rows, err := LoadFromSource(best, parseOpts)
		if err == nil {
			metrics.DatasetCache.Hit()
			debug.Log("loaded %d rows from cache %s", len(rows), best.Path)
			return LoadResult{Rows: rows, Source: best}, nil
		}
		warn(fmt.Sprintf("cache %s unreadable, rebuilding: %v", best.Path, err))
	}
	metrics.DatasetCache.Miss()

	if csvSource == nil || !csvSource.Valid {
		return LoadResult{}, fmt.Errorf("%w: dataset %s not found", ErrNoSource, filepath.Join(opts.DataDir, opts.DatasetName))
	}

	rows, err := LoadFromSource(*csvSource, parseOpts)
	if err != nil {
		return LoadResult{}, err
	}
	result := LoadResult{Rows: rows, Source: *csvSource}

	if !opts.DisableCache && opts.CacheName != "" {
		cachePath := filepath.Join(opts.DataDir, opts.CacheName)
		if err := WriteCache(cachePath, rows, *csvSource); err != nil {
			warn(fmt.Sprintf("could not write cache %s: %v", cachePath, err))
		} else {
			result.CacheRebuilt = true
			debug.Log("rebuilt cache %s (%d rows)", cachePath, len(rows))
		}
	}
	return result, nil
}

// RebuildCache parses the CSV and rewrites the cache unconditionally.
// Returns the number of cached rows.
func RebuildCache(opts LoadOptions) (int, error) {
	schema, err := resolveSchema(opts.SchemaPath)
	if err != nil {
		return 0, err
	}
	csvPath := filepath.Join(opts.DataDir, opts.DatasetName)
	info, err := os.Stat(csvPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoSource, err)
	}
	source := DataSource{
		Type:     SourceTypeCSV,
		Path:     csvPath,
		Priority: PriorityCSV,
		ModTime:  info.ModTime(),
		Size:     info.Size(),
	}
	rows, err := loader.LoadRows(csvPath, loader.ParseOptions{Schema: &schema, WarningHandler: opts.WarningHandler})
	if err != nil {
		return 0, err
	}
	if err := WriteCache(filepath.Join(opts.DataDir, opts.CacheName), rows, source); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// LoadFromSource loads rows from a specific DataSource, dispatching to the
// appropriate reader based on source type.
func LoadFromSource(source DataSource, opts loader.ParseOptions) ([]model.Row, error) {
	return loadRowsFromSource(source, opts)
}

func loadRowsFromSource(source DataSource, opts loader.ParseOptions) ([]model.Row, error) {
	switch source.Type {
	case SourceTypeCache:
		reader, err := NewCacheReader(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache %s: %w", source.Path, err)
		}
		defer reader.Close()
		return reader.LoadRows()

	case SourceTypeCSV:
		return loader.LoadRows(source.Path, opts)

	default:
		return nil, fmt.Errorf("unknown source type: %s", source.Type)
	}
}

// cacheIsStale reports whether the cache was built from a different version
// of the CSV than the one on disk.
func cacheIsStale(cache DataSource, csvSource DataSource) bool {
	if cache.Type != SourceTypeCache {
		return false
	}
	reader, err := NewCacheReader(cache)
	if err != nil {
		return true
	}
	defer reader.Close()
	meta, err := reader.Meta()
	if err != nil {
		return true
	}
	return !meta.SourceModTime.Equal(csvSource.ModTime)
}

func resolveSchema(path string) (loader.Schema, error) {
	if path == "" {
		return loader.DefaultSchema(), nil
	}
	schema, err := loader.LoadSchema(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return loader.DefaultSchema(), nil
		}
		return loader.Schema{}, err
	}
	return schema, nil
}
