// Package model defines the dataset records shared by every agglo package.
package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Metric codes of the two headline location quotients.
const (
	MetricLQ  = "300" // traditional location quotient
	MetricCLQ = "200" // proximity-adjusted location quotient (PA-LQ)
)

// HeadlineMetrics lists the metric codes shown when the line chart is
// colored by metric kind.
var HeadlineMetrics = []string{MetricLQ, MetricCLQ}

// IsHeadlineMetric reports whether code is LQ or CLQ.
func IsHeadlineMetric(code string) bool {
	return code == MetricLQ || code == MetricCLQ
}

// Period is a dataset year. It is stored as text but ordered numerically.
type Period string

// Less orders periods chronologically. Two numeric periods compare as
// integers; anything else falls back to a lexical comparison.
func (p Period) Less(o Period) bool {
	a, errA := strconv.Atoi(strings.TrimSpace(string(p)))
	b, errB := strconv.Atoi(strings.TrimSpace(string(o)))
	if errA == nil && errB == nil {
		return a < b
	}
	return p < o
}

func (p Period) String() string {
	return string(p)
}

// ColorDimension selects how the line chart splits its series.
type ColorDimension string

const (
	ColorByIndustry ColorDimension = "industry"
	ColorByMetric   ColorDimension = "metric"
)

// Valid reports whether d is one of the known dimensions.
func (d ColorDimension) Valid() bool {
	return d == ColorByIndustry || d == ColorByMetric
}

// Label returns the selector label for the dimension.
func (d ColorDimension) Label() string {
	switch d {
	case ColorByIndustry:
		return "Industry"
	case ColorByMetric:
		return "Metric"
	default:
		return string(d)
	}
}

// Row is one dataset record: a metric value for a county, industry and year.
type Row struct {
	GeoID        string  `json:"geo_id"`
	County       string  `json:"county"`
	IndustryCode string  `json:"industry_code"`
	Industry     string  `json:"industry"`
	MetricCode   string  `json:"metric_code"`
	Metric       string  `json:"metric"`
	Year         Period  `json:"year"`
	Value        float64 `json:"value"`
}

// Validate checks the fields every downstream join relies on.
func (r Row) Validate() error {
	var errs []error
	if r.GeoID == "" {
		errs = append(errs, errors.New("geo id is required"))
	}
	if r.IndustryCode == "" {
		errs = append(errs, errors.New("industry code is required"))
	}
	if r.MetricCode == "" {
		errs = append(errs, errors.New("metric code is required"))
	}
	if strings.TrimSpace(string(r.Year)) == "" {
		errs = append(errs, errors.New("year is required"))
	}
	return errors.Join(errs...)
}

// Key returns the (geo, industry, metric, year) tuple as a string.
func (r Row) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s", r.GeoID, r.IndustryCode, r.MetricCode, r.Year)
}

// MetadataEntry describes the provenance of one dataset column.
type MetadataEntry struct {
	Column      string `json:"column"`
	Description string `json:"description"`
	Source      string `json:"source"`
}

// Dataset is the immutable row set together with its column metadata.
type Dataset struct {
	Rows     []Row
	Metadata []MetadataEntry
	// Source is the file the rows were read from (CSV or cache).
	Source string
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}
