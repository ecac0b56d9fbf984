// Package datasource discovers, validates, and selects the freshest valid
// source of dataset rows: the CSV file itself or the SQLite cache built
// from it.
package datasource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/agglo/pkg/loader"
)

// ErrNoSource is returned when neither the CSV nor a usable cache exists.
var ErrNoSource = errors.New("no valid dataset source")

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeCache is the SQLite cache built from the CSV
	SourceTypeCache SourceType = "sqlite_cache"
	// SourceTypeCSV is the raw dataset CSV
	SourceTypeCSV SourceType = "csv"
)

// Priority values for source types (higher = more authoritative)
const (
	PriorityCache = 100
	PriorityCSV   = 50
)

// DataSource represents a potential source of dataset rows
type DataSource struct {
	// Type identifies the source type
	Type SourceType `json:"type"`
	// Path is the path to the source file
	Path string `json:"path"`
	// Priority determines preference when timestamps are equal (higher = preferred)
	Priority int `json:"priority"`
	// ModTime is the last modification time of the source
	ModTime time.Time `json:"mod_time"`
	// Valid indicates whether the source passed validation
	Valid bool `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false)
	ValidationError string `json:"validation_error,omitempty"`
	// RowCount is the number of cached rows (caches only, set during validation)
	RowCount int `json:"row_count"`
	// Size is the file size in bytes
	Size int64 `json:"size"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, rows=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.RowCount, status)
}

// DiscoveryOptions configures source discovery behavior
type DiscoveryOptions struct {
	// DataDir holds the dataset CSV and its cache
	DataDir string
	// DatasetName is the CSV file name within DataDir
	DatasetName string
	// CacheName is the SQLite cache file name within DataDir
	CacheName string
	// Schema is used to validate the CSV header (nil means loader.DefaultSchema)
	Schema *loader.Schema
	// ValidateAfterDiscovery runs validation on each discovered source
	ValidateAfterDiscovery bool
	// IncludeInvalid includes sources that failed validation in results
	IncludeInvalid bool
	// Verbose enables detailed logging during discovery
	Verbose bool
	// Logger receives log messages when Verbose is true
	Logger func(msg string)
}

// DiscoverSources finds the dataset CSV and its cache, newest first.
func DiscoverSources(opts DiscoveryOptions) ([]DataSource, error) {
	if opts.Logger == nil {
		opts.Logger = func(string) {}
	}
	if opts.DataDir == "" {
		return nil, fmt.Errorf("data directory is required")
	}

	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovering sources in: %s", opts.DataDir))
	}

	var sources []DataSource
	candidates := []struct {
		name     string
		typ      SourceType
		priority int
	}{
		{opts.CacheName, SourceTypeCache, PriorityCache},
		{opts.DatasetName, SourceTypeCSV, PriorityCSV},
	}
	for _, c := range candidates {
		if c.name == "" {
			continue
		}
		path := filepath.Join(opts.DataDir, c.name)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		sources = append(sources, DataSource{
			Type:     c.typ,
			Path:     path,
			Priority: c.priority,
			ModTime:  info.ModTime(),
			Size:     info.Size(),
		})
		if opts.Verbose {
			opts.Logger(fmt.Sprintf("Found %s: %s (mod=%s)", c.typ, path, info.ModTime().Format(time.RFC3339)))
		}
	}

	// Validate sources if requested
	if opts.ValidateAfterDiscovery {
		schema := loader.DefaultSchema()
		if opts.Schema != nil {
			schema = *opts.Schema
		}
		for i := range sources {
			if err := validateSource(&sources[i], schema); err != nil && opts.Verbose {
				opts.Logger(fmt.Sprintf("Validation failed for %s: %v", sources[i].Path, err))
			}
		}
	}

	// Filter out invalid sources if not including them
	if opts.ValidateAfterDiscovery && !opts.IncludeInvalid {
		var validSources []DataSource
		for _, s := range sources {
			if s.Valid {
				validSources = append(validSources, s)
			}
		}
		sources = validSources
	}

	// Sort by mod time, then priority
	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})

	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovered %d sources", len(sources)))
	}

	return sources, nil
}

// ValidateSource checks that a source can be read, using the default schema
// for CSV headers. It records the outcome on the source.
func ValidateSource(s *DataSource) error {
	return validateSource(s, loader.DefaultSchema())
}

func validateSource(s *DataSource, schema loader.Schema) error {
	var err error
	switch s.Type {
	case SourceTypeCSV:
		err = validateCSV(s.Path, schema)
	case SourceTypeCache:
		var n int
		n, err = validateCache(s.Path)
		s.RowCount = n
	default:
		err = fmt.Errorf("unknown source type: %s", s.Type)
	}

	s.Valid = err == nil
	s.ValidationError = ""
	if err != nil {
		s.ValidationError = err.Error()
	}
	return err
}

// validateCSV checks that the header names every column the schema maps.
func validateCSV(path string, schema loader.Schema) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open CSV: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.LazyQuotes = true
	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return fmt.Errorf("CSV is empty")
		}
		return fmt.Errorf("cannot read CSV header: %w", err)
	}

	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = true
	}
	var missing []string
	for _, col := range []string{
		schema.Fields.GeoID, schema.Fields.County, schema.Fields.IndustryCode, schema.Fields.Industry,
		schema.Fields.MetricCode, schema.Fields.Metric, schema.Fields.Year, schema.Fields.Value,
	} {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("CSV header is missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// validateCache checks the cache schema version and its recorded row count.
func validateCache(path string) (int, error) {
	reader, err := NewCacheReader(DataSource{Type: SourceTypeCache, Path: path})
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	meta, err := reader.Meta()
	if err != nil {
		return 0, err
	}
	if meta.SchemaVersion != CacheSchemaVersion {
		return 0, fmt.Errorf("cache schema version %d, want %d", meta.SchemaVersion, CacheSchemaVersion)
	}
	count, err := reader.CountRows()
	if err != nil {
		return 0, err
	}
	if count != meta.RowCount {
		return count, fmt.Errorf("cache holds %d rows, meta records %d", count, meta.RowCount)
	}
	if count == 0 {
		return 0, fmt.Errorf("cache is empty")
	}
	return count, nil
}

// SelectBestSource returns the freshest valid source. A cache wins a tie
// with the CSV it was built from.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	var best *DataSource
	for i := range sources {
		s := &sources[i]
		if !s.Valid {
			continue
		}
		if best == nil ||
			s.ModTime.After(best.ModTime) ||
			(s.ModTime.Equal(best.ModTime) && s.Priority > best.Priority) {
			best = s
		}
	}
	if best == nil {
		return DataSource{}, ErrNoSource
	}
	return *best, nil
}
