package datasource

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/agglo/pkg/debug"
	"github.com/vanderheijden86/agglo/pkg/metrics"
	"github.com/vanderheijden86/agglo/pkg/model"
)

// CacheSchemaVersion is bumped whenever the cache layout changes; older
// caches fail validation and get rebuilt.
const CacheSchemaVersion = 2

// CacheMeta is the bookkeeping stored in the cache's meta table.
type CacheMeta struct {
	SchemaVersion int
	RowCount      int
	SourcePath    string
	SourceModTime time.Time
	BuiltAt       time.Time
}

// createCacheSchema creates the dictionary tables, the fact table and the
// meta table.
func createCacheSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS geos (
			id INTEGER PRIMARY KEY,
			code TEXT NOT NULL,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS industries (
			id INTEGER PRIMARY KEY,
			code TEXT NOT NULL,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS metrics (
			id INTEGER PRIMARY KEY,
			code TEXT NOT NULL,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS facts (
			position INTEGER PRIMARY KEY,
			geo_id INTEGER NOT NULL REFERENCES geos(id),
			industry_id INTEGER NOT NULL REFERENCES industries(id),
			metric_id INTEGER NOT NULL REFERENCES metrics(id),
			year TEXT NOT NULL,
			value REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_facts_filter ON facts(industry_id, metric_id, year)`,
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create cache schema: %w", err)
		}
	}
	return nil
}

// dictionary assigns dense ids to distinct (code, name) pairs in first-seen order.
type dictionary struct {
	ids     map[[2]string]int64
	entries [][2]string
}

func newDictionary() *dictionary {
	return &dictionary{ids: make(map[[2]string]int64)}
}

func (d *dictionary) id(code, name string) int64 {
	key := [2]string{code, name}
	if id, ok := d.ids[key]; ok {
		return id
	}
	id := int64(len(d.entries) + 1)
	d.ids[key] = id
	d.entries = append(d.entries, key)
	return id
}

// WriteCache writes rows to a fresh SQLite cache at path. The file is built
// next to path and renamed into place, so readers never observe a partial
// cache.
func WriteCache(path string, rows []model.Row, source DataSource) (err error) {
	defer metrics.TimerWithCallback(metrics.CacheBuild, func(d time.Duration) {
		debug.LogTiming("cache write "+path, d)
	})()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale temp cache: %w", err)
	}

	db, err := sql.Open("sqlite", tmp)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	dbClosed := false
	defer func() {
		if !dbClosed {
			db.Close()
		}
		if err != nil {
			os.Remove(tmp)
		}
	}()

	if err := createCacheSchema(db); err != nil {
		return err
	}
	if err := insertRows(db, rows); err != nil {
		return fmt.Errorf("insert rows: %w", err)
	}
	meta := CacheMeta{
		SchemaVersion: CacheSchemaVersion,
		RowCount:      len(rows),
		SourcePath:    source.Path,
		SourceModTime: source.ModTime,
		BuiltAt:       time.Now(),
	}
	if err := insertMeta(db, meta); err != nil {
		return fmt.Errorf("insert meta: %w", err)
	}
	if _, err := db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("vacuum cache: %w", err)
	}

	if err := db.Close(); err != nil {
		return fmt.Errorf("close cache: %w", err)
	}
	dbClosed = true

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("install cache: %w", err)
	}
	return nil
}

func insertRows(db *sql.DB, rows []model.Row) error {
	geos, industries, metricDict := newDictionary(), newDictionary(), newDictionary()

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO facts (position, geo_id, industry_id, metric_id, year, value)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range rows {
		_, err := stmt.Exec(
			i,
			geos.id(r.GeoID, r.County),
			industries.id(r.IndustryCode, r.Industry),
			metricDict.id(r.MetricCode, r.Metric),
			string(r.Year),
			sql.NullFloat64{Float64: r.Value, Valid: !math.IsNaN(r.Value)},
		)
		if err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	for table, dict := range map[string]*dictionary{
		"geos":       geos,
		"industries": industries,
		"metrics":    metricDict,
	} {
		if err := insertDictionary(tx, table, dict); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertDictionary(tx *sql.Tx, table string, dict *dictionary) error {
	stmt, err := tx.Prepare(fmt.Sprintf(`INSERT INTO %s (id, code, name) VALUES (?, ?, ?)`, table))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range dict.entries {
		if _, err := stmt.Exec(i+1, e[0], e[1]); err != nil {
			return fmt.Errorf("insert %s entry: %w", table, err)
		}
	}
	return nil
}

func insertMeta(db *sql.DB, meta CacheMeta) error {
	values := map[string]string{
		"schema_version":  strconv.Itoa(meta.SchemaVersion),
		"row_count":       strconv.Itoa(meta.RowCount),
		"source_path":     meta.SourcePath,
		"source_mod_time": meta.SourceModTime.UTC().Format(time.RFC3339Nano),
		"built_at":        meta.BuiltAt.UTC().Format(time.RFC3339Nano),
	}
	for k, v := range values {
		if _, err := db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return err
		}
	}
	return nil
}
