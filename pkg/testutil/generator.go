// Package testutil provides dataset fixture generators and assertions.
// All generators produce deterministic output for reproducible tests.
package testutil

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/vanderheijden86/agglo/pkg/model"
)

// DatasetHeader is the CSV header of the location-quotient dataset.
var DatasetHeader = []string{
	"IBRC_Geo_ID", "Description", "NAICS Code", "NAICS Description",
	"PA-LQ_Code", "PA-LQ_Code_Description", "Year", "PA-LQ_Data",
}

// Industry sectors used by the generator, in NAICS order.
var sectors = []struct{ code, name string }{
	{"11", "Agriculture, Forestry, Fishing and Hunting"},
	{"21", "Mining, Quarrying, and Oil and Gas Extraction"},
	{"22", "Utilities"},
	{"23", "Construction"},
	{"31-33", "Manufacturing"},
	{"42", "Wholesale Trade"},
	{"44-45", "Retail Trade"},
	{"48-49", "Transportation and Warehousing"},
	{"51", "Information"},
	{"52", "Finance and Insurance"},
}

// Metric kinds beyond the two headline quotients.
var extraMetrics = []struct{ code, name string }{
	{"100", "Employment"},
	{"400", "Establishments"},
	{"500", "Average Wage"},
}

// GeneratorConfig controls dataset generation.
type GeneratorConfig struct {
	Seed         int64          // Random seed for determinism (0 = 42)
	Counties     int            // Number of counties (default: 4)
	Industries   int            // Number of industry sectors, max 10 (default: 3)
	Years        []model.Period // Periods to cover (default: 2016-2019)
	ExtraMetrics int            // Non-headline metric kinds, max 3 (default: 1)
	// PaddedGeoIDs stores every zero-led county code the way the raw CSV
	// does: leading zero dropped, trailing space added.
	PaddedGeoIDs bool
	// DirtyIndustryNames prefixes industry names with punctuation.
	DirtyIndustryNames bool
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:         42,
		Counties:     4,
		Industries:   3,
		Years:        []model.Period{"2016", "2017", "2018", "2019"},
		ExtraMetrics: 1,
	}
}

// Generator creates dataset fixtures.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	def := DefaultConfig()
	if cfg.Seed == 0 {
		cfg.Seed = def.Seed
	}
	if cfg.Counties <= 0 {
		cfg.Counties = def.Counties
	}
	if cfg.Industries <= 0 {
		cfg.Industries = def.Industries
	}
	if cfg.Industries > len(sectors) {
		cfg.Industries = len(sectors)
	}
	if len(cfg.Years) == 0 {
		cfg.Years = def.Years
	}
	if cfg.ExtraMetrics < 0 {
		cfg.ExtraMetrics = 0
	}
	if cfg.ExtraMetrics > len(extraMetrics) {
		cfg.ExtraMetrics = len(extraMetrics)
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// CountyCode returns the normalized code of the i-th generated county.
// Even counties get zero-led codes (state 01), odd ones state 18.
func CountyCode(i int) string {
	if i%2 == 0 {
		return fmt.Sprintf("01%03d", 2*i+1)
	}
	return fmt.Sprintf("18%03d", 2*i+1)
}

// CountyName returns the display name of the i-th generated county.
func CountyName(i int) string {
	state := "AL"
	if i%2 == 1 {
		state = "IN"
	}
	return fmt.Sprintf("County %02d, %s", i, state)
}

// Rows generates one row per (county, industry, metric, year) combination,
// ordered county-major.
func (g *Generator) Rows() []model.Row {
	metrics := []struct{ code, name string }{
		{model.MetricLQ, "LQ"},
		{model.MetricCLQ, "CLQ"},
	}
	metrics = append(metrics, extraMetrics[:g.cfg.ExtraMetrics]...)

	rows := make([]model.Row, 0, g.cfg.Counties*g.cfg.Industries*len(metrics)*len(g.cfg.Years))
	for c := 0; c < g.cfg.Counties; c++ {
		geo := CountyCode(c)
		if g.cfg.PaddedGeoIDs && strings.HasPrefix(geo, "0") {
			geo = geo[1:] + " "
		}
		for _, sec := range sectors[:g.cfg.Industries] {
			name := sec.name
			if g.cfg.DirtyIndustryNames {
				name = "- " + name
			}
			for _, m := range metrics {
				for _, y := range g.cfg.Years {
					rows = append(rows, model.Row{
						GeoID:        geo,
						County:       CountyName(c),
						IndustryCode: sec.code,
						Industry:     name,
						MetricCode:   m.code,
						Metric:       m.name,
						Year:         y,
						Value:        math.Round(g.rng.Float64()*300) / 100,
					})
				}
			}
		}
	}
	return rows
}

// ToCSV renders rows in the dataset's CSV layout.
func ToCSV(rows []model.Row) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write(DatasetHeader)
	for _, r := range rows {
		_ = w.Write([]string{
			r.GeoID, r.County, r.IndustryCode, r.Industry,
			r.MetricCode, r.Metric, string(r.Year),
			strconv.FormatFloat(r.Value, 'f', -1, 64),
		})
	}
	w.Flush()
	return sb.String()
}

// MetadataCSV returns a metadata file with the usual four preamble lines.
func MetadataCSV() string {
	return "Proximity-Adjusted Location Quotients\n" +
		"Source: synthetic fixture\n" +
		"\n" +
		"\n" +
		"Column,Description,Source\n" +
		"IBRC_Geo_ID,County FIPS code,Census Bureau\n" +
		"NAICS Code,Industry sector code,BLS QCEW\n" +
		"PA-LQ_Data,Metric value,IBRC\n"
}

// QuickRows generates the default dataset.
func QuickRows() []model.Row {
	return NewDefault().Rows()
}

// QuickRawRows generates the default dataset as it appears in the raw CSV,
// with padded geo ids and dirty industry names.
func QuickRawRows() []model.Row {
	cfg := DefaultConfig()
	cfg.PaddedGeoIDs = true
	cfg.DirtyIndustryNames = true
	return New(cfg).Rows()
}

// Empty returns an empty row set.
func Empty() []model.Row {
	return []model.Row{}
}
