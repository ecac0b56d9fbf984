package datasource

import (
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/agglo/pkg/model"
)

// CacheReader provides read access to a dataset cache
type CacheReader struct {
	db   *sql.DB
	path string
}

// NewCacheReader opens a cache for reading
func NewCacheReader(source DataSource) (*CacheReader, error) {
	if source.Type != SourceTypeCache {
		return nil, fmt.Errorf("source is not a cache: %s", source.Type)
	}

	// Open in read-only mode with various pragmas for read performance
	db, err := sql.Open("sqlite", readOnlyDSN(source.Path))
	if err != nil {
		return nil, fmt.Errorf("cannot open cache: %w", err)
	}

	pragmas := []string{
		"PRAGMA cache_size = -64000",  // 64MB cache
		"PRAGMA mmap_size = 268435456", // 256MB mmap
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		// Non-fatal
		_, _ = db.Exec(pragma)
	}

	return &CacheReader{
		db:   db,
		path: source.Path,
	}, nil
}

func readOnlyDSN(path string) string {
	escaped := strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23", " ", "%20").Replace(path)
	return fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", escaped)
}

// Close closes the database connection
func (r *CacheReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Meta reads the cache bookkeeping.
func (r *CacheReader) Meta() (CacheMeta, error) {
	rows, err := r.db.Query(`SELECT key, value FROM meta`)
	if err != nil {
		return CacheMeta{}, fmt.Errorf("read cache meta: %w", err)
	}
	defer rows.Close()

	var meta CacheMeta
	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return CacheMeta{}, fmt.Errorf("scan cache meta: %w", err)
		}
		switch key {
		case "schema_version":
			meta.SchemaVersion, _ = strconv.Atoi(value.String)
		case "row_count":
			meta.RowCount, _ = strconv.Atoi(value.String)
		case "source_path":
			meta.SourcePath = value.String
		case "source_mod_time":
			meta.SourceModTime, _ = time.Parse(time.RFC3339Nano, value.String)
		case "built_at":
			meta.BuiltAt, _ = time.Parse(time.RFC3339Nano, value.String)
		}
	}
	if err := rows.Err(); err != nil {
		return CacheMeta{}, fmt.Errorf("error iterating cache meta: %w", err)
	}
	return meta, nil
}

// LoadRows reads every cached row in source order. A NULL value is a
// missing value and comes back as NaN.
func (r *CacheReader) LoadRows() ([]model.Row, error) {
	geos, err := r.loadDictionary("geos")
	if err != nil {
		return nil, err
	}
	industries, err := r.loadDictionary("industries")
	if err != nil {
		return nil, err
	}
	metricDict, err := r.loadDictionary("metrics")
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(`
		SELECT geo_id, industry_id, metric_id, year, value
		FROM facts
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	var out []model.Row
	for rows.Next() {
		var geoID, industryID, metricID int64
		var year string
		var value sql.NullFloat64
		if err := rows.Scan(&geoID, &industryID, &metricID, &year, &value); err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		g, okG := geos[geoID]
		ind, okI := industries[industryID]
		m, okM := metricDict[metricID]
		if !okG || !okI || !okM {
			return nil, fmt.Errorf("cache references unknown dictionary entry (geo=%d industry=%d metric=%d)", geoID, industryID, metricID)
		}
		row := model.Row{
			GeoID:        g[0],
			County:       g[1],
			IndustryCode: ind[0],
			Industry:     ind[1],
			MetricCode:   m[0],
			Metric:       m[1],
			Year:         model.Period(year),
			Value:        math.NaN(),
		}
		if value.Valid {
			row.Value = value.Float64
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating facts: %w", err)
	}
	return out, nil
}

func (r *CacheReader) loadDictionary(table string) (map[int64][2]string, error) {
	rows, err := r.db.Query(fmt.Sprintf(`SELECT id, code, name FROM %s`, table))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	dict := make(map[int64][2]string)
	for rows.Next() {
		var id int64
		var code, name string
		if err := rows.Scan(&id, &code, &name); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		dict[id] = [2]string{code, name}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", table, err)
	}
	return dict, nil
}

// CountRows returns the number of cached rows
func (r *CacheReader) CountRows() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM facts").Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
