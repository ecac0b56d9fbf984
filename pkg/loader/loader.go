// Package loader reads the location-quotient dataset and its metadata table
// from CSV.
package loader

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/vanderheijden86/agglo/pkg/model"
)

// QuietEnvVar suppresses the default stderr warning handler when set to "1".
const QuietEnvVar = "AGGLO_QUIET"

// ParseOptions configures the behavior of ParseRows.
type ParseOptions struct {
	// Schema maps source columns to row fields. Zero value means DefaultSchema.
	Schema *Schema

	// WarningHandler is called with warning messages (e.g., unparsable values).
	// If nil, warnings are printed to os.Stderr.
	WarningHandler func(string)
}

// Warn returns the configured warning handler, or the stderr default.
func (o ParseOptions) Warn() func(string) {
	if o.WarningHandler != nil {
		return o.WarningHandler
	}
	if os.Getenv(QuietEnvVar) == "1" {
		return func(string) {}
	}
	return func(msg string) {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
	}
}

// LoadRows reads dataset rows from a CSV file.
func LoadRows(path string, opts ParseOptions) ([]model.Row, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no dataset found at %s", path)
		}
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	return ParseRows(file, opts)
}

// ParseRows parses CSV content with a header line into rows.
// Handles UTF-8 BOM stripping and malformed records. A missing or
// unparsable value is kept as NaN so the row still holds its position;
// only unparsable text is warned about. Row order follows the input.
func ParseRows(r io.Reader, opts ParseOptions) ([]model.Row, error) {
	schema := DefaultSchema()
	if opts.Schema != nil {
		schema = *opts.Schema
	}
	warn := opts.Warn()

	cr := csv.NewReader(newBOMReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("dataset is empty")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols, err := resolveColumns(header, schema)
	if err != nil {
		return nil, err
	}

	intern := newInterner()
	// category columns share one copy per distinct label; text columns get
	// their own copy so rows never pin the CSV line buffer.
	column := func(name string) func(string) string {
		if schema.Kind(name) == KindCategory {
			return intern
		}
		return strings.Clone
	}
	f := schema.Fields
	geoID, county := column(f.GeoID), column(f.County)
	industryCode, industry := column(f.IndustryCode), column(f.Industry)
	metricCode, metric := column(f.MetricCode), column(f.Metric)
	year := column(f.Year)

	var rows []model.Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				warn(fmt.Sprintf("skipping malformed record on line %d: %v", perr.Line, perr.Err))
				continue
			}
			return nil, fmt.Errorf("error reading dataset: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if isBlank(record) {
			continue
		}
		if len(record) <= cols.max {
			warn(fmt.Sprintf("skipping line %d: expected %d fields, got %d", line, cols.max+1, len(record)))
			continue
		}

		value, ok := parseValue(record[cols.value])
		if !ok {
			warn(fmt.Sprintf("line %d: unparsable value %q kept as missing", line, strings.TrimSpace(record[cols.value])))
		}

		row := model.Row{
			// Geo ids are kept verbatim; the lookup step repairs codes that
			// lost their leading zero.
			GeoID:        geoID(record[cols.geoID]),
			County:       county(strings.TrimSpace(record[cols.county])),
			IndustryCode: industryCode(strings.TrimSpace(record[cols.industryCode])),
			Industry:     industry(record[cols.industry]),
			MetricCode:   metricCode(strings.TrimSpace(record[cols.metricCode])),
			Metric:       metric(strings.TrimSpace(record[cols.metric])),
			Year:         model.Period(year(strings.TrimSpace(record[cols.year]))),
			Value:        value,
		}

		if err := row.Validate(); err != nil {
			warn(fmt.Sprintf("skipping invalid row on line %d: %v", line, err))
			continue
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// missingTokens are the cell contents read as a missing value without a
// warning, matching the usual spreadsheet and pandas NA markers.
var missingTokens = map[string]bool{
	"": true, "NA": true, "N/A": true, "NaN": true, "nan": true, "null": true, "NULL": true, "#N/A": true,
}

// parseValue returns the cell as a float, or NaN for a missing value. ok is
// false when the cell held text that is neither a number nor a missing marker.
func parseValue(cell string) (v float64, ok bool) {
	cell = strings.TrimSpace(cell)
	if missingTokens[cell] {
		return math.NaN(), true
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return math.NaN(), false
	}
	return v, true
}

type columnIndex struct {
	geoID, county, industryCode, industry int
	metricCode, metric, year, value       int
	max                                   int
}

func resolveColumns(header []string, schema Schema) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(h)] = i
	}

	var missing []string
	lookup := func(col string) int {
		i, ok := pos[col]
		if !ok {
			missing = append(missing, col)
			return -1
		}
		return i
	}

	f := schema.Fields
	idx := columnIndex{
		geoID:        lookup(f.GeoID),
		county:       lookup(f.County),
		industryCode: lookup(f.IndustryCode),
		industry:     lookup(f.Industry),
		metricCode:   lookup(f.MetricCode),
		metric:       lookup(f.Metric),
		year:         lookup(f.Year),
		value:        lookup(f.Value),
	}
	if len(missing) > 0 {
		return columnIndex{}, fmt.Errorf("dataset is missing columns: %s", strings.Join(missing, ", "))
	}
	for _, i := range []int{idx.geoID, idx.county, idx.industryCode, idx.industry, idx.metricCode, idx.metric, idx.year, idx.value} {
		if i > idx.max {
			idx.max = i
		}
	}
	return idx, nil
}

// newInterner deduplicates repeated category labels so rows share storage.
func newInterner() func(string) string {
	seen := make(map[string]string, 1024)
	return func(s string) string {
		if v, ok := seen[s]; ok {
			return v
		}
		s = strings.Clone(s)
		seen[s] = s
		return s
	}
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// newBOMReader drops a leading UTF-8 Byte Order Mark.
func newBOMReader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}
