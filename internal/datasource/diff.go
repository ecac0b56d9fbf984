package datasource

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/vanderheijden86/agglo/pkg/loader"
	"github.com/vanderheijden86/agglo/pkg/model"
)

// SourceDiff represents differences between two data sources
type SourceDiff struct {
	// SourceA is the path of the first source
	SourceA string
	// SourceB is the path of the second source
	SourceB string
	// MissingInA contains row keys present in B but not in A
	MissingInA []string
	// MissingInB contains row keys present in A but not in B
	MissingInB []string
	// ValueMismatch contains rows whose values differ between sources
	ValueMismatch []ValueDifference
	// CountA is the number of rows in source A
	CountA int
	// CountB is the number of rows in source B
	CountB int
}

// ValueDifference represents a value mismatch for a single row
type ValueDifference struct {
	Key    string  `json:"key"`
	ValueA float64 `json:"value_a"`
	ValueB float64 `json:"value_b"`
}

// HasInconsistencies returns true if there are any differences between sources
func (d SourceDiff) HasInconsistencies() bool {
	return len(d.MissingInA) > 0 || len(d.MissingInB) > 0 || len(d.ValueMismatch) > 0
}

// Summary returns a human-readable summary of the differences
func (d SourceDiff) Summary() string {
	if !d.HasInconsistencies() {
		return fmt.Sprintf("Sources match (%d rows each)", d.CountA)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Inconsistencies found between %s and %s:\n", d.SourceA, d.SourceB)

	if d.CountA != d.CountB {
		fmt.Fprintf(&sb, "  - Count mismatch: %d vs %d\n", d.CountA, d.CountB)
	}
	writeKeys := func(keys []string, in, notIn string) {
		if len(keys) == 0 {
			return
		}
		fmt.Fprintf(&sb, "  - %d rows in %s but not %s\n", len(keys), in, notIn)
		if len(keys) <= 5 {
			for _, k := range keys {
				fmt.Fprintf(&sb, "    - %s\n", k)
			}
		}
	}
	writeKeys(d.MissingInA, d.SourceB, d.SourceA)
	writeKeys(d.MissingInB, d.SourceA, d.SourceB)

	if len(d.ValueMismatch) > 0 {
		fmt.Fprintf(&sb, "  - %d rows with different values\n", len(d.ValueMismatch))
		if len(d.ValueMismatch) <= 5 {
			for _, m := range d.ValueMismatch {
				fmt.Fprintf(&sb, "    - %s: %g vs %g\n", m.Key, m.ValueA, m.ValueB)
			}
		}
	}

	return sb.String()
}

// DiffOptions configures the diff operation
type DiffOptions struct {
	// Tolerance is the largest absolute value difference treated as equal
	Tolerance float64
	// MaxDifferences limits the number of differences tracked (0 = unlimited)
	MaxDifferences int
}

// DefaultDiffOptions returns sensible default diff options
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{
		Tolerance:      1e-9,
		MaxDifferences: 100,
	}
}

// DetectInconsistencies compares two row sets keyed by (geo, industry, metric, year).
// Duplicate keys resolve to their first occurrence.
func DetectInconsistencies(rowsA, rowsB []model.Row, sourceA, sourceB string, opts DiffOptions) SourceDiff {
	diff := SourceDiff{
		SourceA: sourceA,
		SourceB: sourceB,
	}

	mapA := keyRows(rowsA)
	mapB := keyRows(rowsB)
	diff.CountA = len(mapA)
	diff.CountB = len(mapB)

	room := func(n int) bool {
		return opts.MaxDifferences == 0 || n < opts.MaxDifferences
	}

	for key := range mapA {
		if _, exists := mapB[key]; !exists && room(len(diff.MissingInB)) {
			diff.MissingInB = append(diff.MissingInB, key)
		}
	}

	for key, b := range mapB {
		a, exists := mapA[key]
		if !exists {
			if room(len(diff.MissingInA)) {
				diff.MissingInA = append(diff.MissingInA, key)
			}
			continue
		}
		if valuesDiffer(a.Value, b.Value, opts.Tolerance) && room(len(diff.ValueMismatch)) {
			diff.ValueMismatch = append(diff.ValueMismatch, ValueDifference{
				Key:    key,
				ValueA: a.Value,
				ValueB: b.Value,
			})
		}
	}

	sort.Strings(diff.MissingInA)
	sort.Strings(diff.MissingInB)
	sort.Slice(diff.ValueMismatch, func(i, j int) bool {
		return diff.ValueMismatch[i].Key < diff.ValueMismatch[j].Key
	})

	return diff
}

// valuesDiffer treats two missing values as equal and a missing value as
// different from any number.
func valuesDiffer(a, b, tolerance float64) bool {
	nanA, nanB := math.IsNaN(a), math.IsNaN(b)
	if nanA || nanB {
		return nanA != nanB
	}
	return math.Abs(a-b) > tolerance
}

func keyRows(rows []model.Row) map[string]model.Row {
	m := make(map[string]model.Row, len(rows))
	for _, r := range rows {
		k := r.Key()
		if _, dup := m[k]; !dup {
			m[k] = r
		}
	}
	return m
}

// CompareSources loads and compares two data sources
func CompareSources(sourceA, sourceB DataSource, opts DiffOptions) (*SourceDiff, error) {
	rowsA, err := loadRowsFromSource(sourceA, loader.ParseOptions{WarningHandler: func(string) {}})
	if err != nil {
		return nil, fmt.Errorf("failed to load source A (%s): %w", sourceA.Path, err)
	}

	rowsB, err := loadRowsFromSource(sourceB, loader.ParseOptions{WarningHandler: func(string) {}})
	if err != nil {
		return nil, fmt.Errorf("failed to load source B (%s): %w", sourceB.Path, err)
	}

	diff := DetectInconsistencies(rowsA, rowsB, sourceA.Path, sourceB.Path, opts)
	return &diff, nil
}
