package loader

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed dtypes.yaml
var defaultSchemaYAML []byte

// ColumnKind is the storage type of a source column.
type ColumnKind string

const (
	KindCategory ColumnKind = "category" // interned, repeated labels share storage
	KindText     ColumnKind = "text"     // copied per row
	KindFloat    ColumnKind = "float"
)

// FieldMap names the source column backing each row field.
type FieldMap struct {
	GeoID        string `yaml:"geo_id"`
	County       string `yaml:"county"`
	IndustryCode string `yaml:"industry_code"`
	Industry     string `yaml:"industry"`
	MetricCode   string `yaml:"metric_code"`
	Metric       string `yaml:"metric"`
	Year         string `yaml:"year"`
	Value        string `yaml:"value"`
}

// Schema describes the dataset columns: their kinds and which field each one feeds.
type Schema struct {
	Columns map[string]ColumnKind `yaml:"columns"`
	Fields  FieldMap              `yaml:"fields"`
}

// DefaultSchema returns the built-in schema for the Proximity-Adjusted LQ dataset.
func DefaultSchema() Schema {
	s, err := decodeSchema(defaultSchemaYAML, Schema{})
	if err != nil {
		panic(fmt.Sprintf("loader: invalid built-in schema: %v", err))
	}
	return s
}

// LoadSchema reads a schema file. Fields left out of the file fall back to
// the built-in schema.
func LoadSchema(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("reading schema: %w", err)
	}
	return ParseSchema(data)
}

// ParseSchema decodes a YAML schema on top of the built-in defaults.
func ParseSchema(data []byte) (Schema, error) {
	return decodeSchema(data, DefaultSchema())
}

func decodeSchema(data []byte, s Schema) (Schema, error) {
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Schema{}, fmt.Errorf("parsing schema: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Schema{}, err
	}
	return s, nil
}

// Validate checks that every field is mapped and the value column is numeric.
func (s Schema) Validate() error {
	var errs []error
	for name, col := range s.Fields.byName() {
		if col == "" {
			errs = append(errs, fmt.Errorf("field %s has no column", name))
		}
	}
	for col, kind := range s.Columns {
		switch kind {
		case KindCategory, KindText, KindFloat:
		default:
			errs = append(errs, fmt.Errorf("column %q: unknown kind %q", col, kind))
		}
	}
	if kind, ok := s.Columns[s.Fields.Value]; ok && kind != KindFloat {
		errs = append(errs, fmt.Errorf("value column %q must be %s, got %s", s.Fields.Value, KindFloat, kind))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid schema: %w", errors.Join(errs...))
	}
	return nil
}

// Kind returns the kind of a column, defaulting to text.
func (s Schema) Kind(column string) ColumnKind {
	if k, ok := s.Columns[column]; ok {
		return k
	}
	return KindText
}

func (f FieldMap) byName() map[string]string {
	return map[string]string{
		"geo_id":        f.GeoID,
		"county":        f.County,
		"industry_code": f.IndustryCode,
		"industry":      f.Industry,
		"metric_code":   f.MetricCode,
		"metric":        f.Metric,
		"year":          f.Year,
		"value":         f.Value,
	}
}
