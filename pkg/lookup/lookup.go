// Package lookup derives the code-to-name tables and the period list that
// drive the dashboard selectors and chart labels.
//
// Tables are built once from the normalized row set and never mutated.
package lookup

import (
	"sort"
	"strings"

	"github.com/vanderheijden86/agglo/pkg/metrics"
	"github.com/vanderheijden86/agglo/pkg/model"
)

// Option is one selector entry.
type Option struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Table maps codes to display names, keeping the first name seen per code.
type Table struct {
	codes []string
	names map[string]string
}

func newTable() *Table {
	return &Table{names: make(map[string]string)}
}

func (t *Table) add(code, name string) {
	if _, ok := t.names[code]; ok {
		return
	}
	t.names[code] = name
	t.codes = append(t.codes, code)
}

// Name returns the display name for code.
func (t *Table) Name(code string) (string, bool) {
	if t == nil {
		return "", false
	}
	name, ok := t.names[code]
	return name, ok
}

// NameOr returns the display name for code, or fallback when unknown.
func (t *Table) NameOr(code, fallback string) string {
	if name, ok := t.Name(code); ok {
		return name
	}
	return fallback
}

// Has reports whether code has an entry.
func (t *Table) Has(code string) bool {
	_, ok := t.Name(code)
	return ok
}

// Len returns the number of distinct codes.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.codes)
}

// Codes returns the codes in first-appearance order.
func (t *Table) Codes() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.codes))
	copy(out, t.codes)
	return out
}

// Options returns (code, name) pairs sorted by name, then code.
func (t *Table) Options() []Option {
	if t == nil {
		return nil
	}
	opts := make([]Option, 0, len(t.codes))
	for _, c := range t.codes {
		opts = append(opts, Option{Code: c, Name: t.names[c]})
	}
	sort.SliceStable(opts, func(i, j int) bool {
		if opts[i].Name != opts[j].Name {
			return opts[i].Name < opts[j].Name
		}
		return opts[i].Code < opts[j].Code
	})
	return opts
}

// Tables bundles the three dimension lookups with the period list.
type Tables struct {
	Geo      *Table
	Industry *Table
	Metric   *Table
	// Periods holds the distinct years in chronological order.
	Periods []model.Period
}

// Derive builds lookup tables from rows. Rows are expected to be normalized
// (see NormalizeRows); Derive itself does not modify them.
func Derive(rows []model.Row) *Tables {
	defer metrics.Timer(metrics.LookupDerive)()

	t := &Tables{
		Geo:      newTable(),
		Industry: newTable(),
		Metric:   newTable(),
	}
	seen := make(map[model.Period]struct{})
	for _, r := range rows {
		t.Geo.add(r.GeoID, r.County)
		t.Industry.add(r.IndustryCode, CleanIndustryName(r.Industry))
		t.Metric.add(r.MetricCode, r.Metric)
		if _, ok := seen[r.Year]; !ok {
			seen[r.Year] = struct{}{}
			t.Periods = append(t.Periods, r.Year)
		}
	}
	SortPeriods(t.Periods)
	return t
}

// HasPeriod reports whether p is in the period list.
func (t *Tables) HasPeriod(p model.Period) bool {
	for _, q := range t.Periods {
		if q == p {
			return true
		}
	}
	return false
}

// LatestPeriod returns the most recent period.
func (t *Tables) LatestPeriod() (model.Period, bool) {
	if len(t.Periods) == 0 {
		return "", false
	}
	return t.Periods[len(t.Periods)-1], true
}

// MetricOptions returns the headline metrics (LQ, CLQ) present in the data,
// or every metric when neither is present.
func (t *Tables) MetricOptions() []Option {
	var opts []Option
	for _, code := range model.HeadlineMetrics {
		if name, ok := t.Metric.Name(code); ok {
			opts = append(opts, Option{Code: code, Name: name})
		}
	}
	if len(opts) == 0 {
		return t.Metric.Options()
	}
	return opts
}

// PeriodOptions returns the periods as selector entries.
func (t *Tables) PeriodOptions() []Option {
	opts := make([]Option, len(t.Periods))
	for i, p := range t.Periods {
		opts[i] = Option{Code: string(p), Name: string(p)}
	}
	return opts
}

// SortPeriods orders periods chronologically in place.
func SortPeriods(periods []model.Period) {
	sort.SliceStable(periods, func(i, j int) bool {
		return periods[i].Less(periods[j])
	})
}

// NormalizeGeoID repairs a county code that lost its leading zero and
// picked up a trailing space: "18157 " becomes "018157".
func NormalizeGeoID(code string) string {
	if strings.HasSuffix(code, " ") {
		return "0" + code[:len(code)-1]
	}
	return code
}

// leadingJunk is ASCII punctuation plus ASCII whitespace.
const leadingJunk = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~ \t\n\r\v\f"

// CleanIndustryName strips leading punctuation and whitespace.
func CleanIndustryName(name string) string {
	return strings.TrimLeft(name, leadingJunk)
}

// NormalizeRows applies the geo id and industry name fixes in place and
// returns the number of geo ids that were repaired.
func NormalizeRows(rows []model.Row) int {
	fixed := 0
	for i := range rows {
		if g := NormalizeGeoID(rows[i].GeoID); g != rows[i].GeoID {
			rows[i].GeoID = g
			fixed++
		}
		rows[i].Industry = CleanIndustryName(rows[i].Industry)
	}
	return fixed
}
