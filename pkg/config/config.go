// Package config handles loading and saving agglo configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/agglo/config.yaml
//   - State:   ~/.local/state/agglo/ (boundary cache, debug log)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DataDirEnvVar overrides Data.Dir when set.
const DataDirEnvVar = "AGGLO_DATA_DIR"

// ForcePollEnvVar switches the dataset watcher to polling when set to a
// true value.
const ForcePollEnvVar = "AGGLO_FORCE_POLLING"

// DefaultBoundaryURL is the county polygon collection keyed by FIPS code.
const DefaultBoundaryURL = "https://raw.githubusercontent.com/plotly/datasets/master/geojson-counties-fips.json"

// DataConfig locates the dataset files.
type DataConfig struct {
	Dir      string `yaml:"dir,omitempty"`
	Dataset  string `yaml:"dataset,omitempty"`  // CSV file name
	Metadata string `yaml:"metadata,omitempty"` // metadata CSV file name
	Schema   string `yaml:"schema,omitempty"`   // optional column type schema (YAML)
	Cache    string `yaml:"cache,omitempty"`    // SQLite cache file name
}

// BoundaryConfig locates the county boundary reference.
type BoundaryConfig struct {
	Path string `yaml:"path,omitempty"` // local GeoJSON file; wins over URL
	URL  string `yaml:"url,omitempty"`
	// CacheFile stores the downloaded copy of URL.
	CacheFile string `yaml:"cache_file,omitempty"`
	Disabled  bool   `yaml:"disabled,omitempty"`
}

// SelectionConfig controls how highlighted map rows react to filter changes.
type SelectionConfig struct {
	Policy string `yaml:"policy,omitempty"` // clear, preserve
}

// ExportConfig holds figure export defaults.
type ExportConfig struct {
	Dir    string `yaml:"dir,omitempty"`
	Format string `yaml:"format,omitempty"` // svg, png, json
}

// WatchConfig tunes the dataset watcher. Polling is chosen automatically
// on network mounts; Poll forces it everywhere.
type WatchConfig struct {
	Poll         bool          `yaml:"poll,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
	Debounce     time.Duration `yaml:"debounce,omitempty"`
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	Title    string `yaml:"title,omitempty"`
	DarkMode bool   `yaml:"dark_mode,omitempty"`
}

// Config is the top-level configuration for agglo.
type Config struct {
	Data       DataConfig      `yaml:"data,omitempty"`
	Boundaries BoundaryConfig  `yaml:"boundaries,omitempty"`
	Selection  SelectionConfig `yaml:"selection,omitempty"`
	Export     ExportConfig    `yaml:"export,omitempty"`
	Watch      WatchConfig     `yaml:"watch,omitempty"`
	UI         UIConfig        `yaml:"ui,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Data: DataConfig{
			Dir:      "data",
			Dataset:  "Proximity-Adjusted LQ.csv",
			Metadata: "Proximity-Adjusted LQ Metadata.csv",
			Schema:   "dtypes.yaml",
			Cache:    "Proximity-Adjusted LQ.sqlite3",
		},
		Boundaries: BoundaryConfig{
			URL:       DefaultBoundaryURL,
			CacheFile: "geojson-counties-fips.json",
		},
		Selection: SelectionConfig{
			Policy: "clear",
		},
		Export: ExportConfig{
			Dir:    "figures",
			Format: "svg",
		},
		Watch: WatchConfig{
			PollInterval: 2 * time.Second,
			Debounce:     500 * time.Millisecond,
		},
		UI: UIConfig{
			Title: "Measuring Industrial Agglomeration",
		},
	}
}

// ConfigDir returns the XDG config directory for agglo.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "agglo")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "agglo")
}

// StateDir returns the XDG state directory for agglo.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "agglo")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "agglo")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig().ApplyEnv(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg.ApplyEnv(), nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Data.Dir = expandHome(cfg.Data.Dir)
	cfg.Boundaries.Path = expandHome(cfg.Boundaries.Path)
	cfg.Export.Dir = expandHome(cfg.Export.Dir)

	return cfg.ApplyEnv(), nil
}

// ApplyEnv returns a copy of c with environment overrides applied.
func (c Config) ApplyEnv() Config {
	if dir := strings.TrimSpace(os.Getenv(DataDirEnvVar)); dir != "" {
		c.Data.Dir = expandHome(dir)
	}
	if envBool(ForcePollEnvVar) {
		c.Watch.Poll = true
	}
	return c
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// DatasetPath returns the dataset CSV path.
func (c Config) DatasetPath() string {
	return filepath.Join(c.Data.Dir, c.Data.Dataset)
}

// MetadataPath returns the metadata CSV path.
func (c Config) MetadataPath() string {
	return filepath.Join(c.Data.Dir, c.Data.Metadata)
}

// SchemaPath returns the column type schema path, or "" when none is configured.
func (c Config) SchemaPath() string {
	if c.Data.Schema == "" {
		return ""
	}
	return filepath.Join(c.Data.Dir, c.Data.Schema)
}

// CachePath returns the SQLite cache path.
func (c Config) CachePath() string {
	return filepath.Join(c.Data.Dir, c.Data.Cache)
}

// BoundaryCachePath returns where a downloaded boundary file is kept.
func (c Config) BoundaryCachePath() string {
	if c.Boundaries.CacheFile == "" {
		return ""
	}
	if filepath.IsAbs(c.Boundaries.CacheFile) {
		return c.Boundaries.CacheFile
	}
	dir := StateDir()
	if dir == "" {
		return filepath.Join(c.Data.Dir, c.Boundaries.CacheFile)
	}
	return filepath.Join(dir, c.Boundaries.CacheFile)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
