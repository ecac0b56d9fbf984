package testutil

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/agglo/pkg/model"
)

// AssertRowCount verifies the expected number of rows.
func AssertRowCount(t *testing.T, rows []model.Row, expected int) {
	t.Helper()
	if len(rows) != expected {
		t.Errorf("expected %d rows, got %d", expected, len(rows))
	}
}

// AssertAllValid verifies all rows pass validation.
func AssertAllValid(t *testing.T, rows []model.Row) {
	t.Helper()
	for i, r := range rows {
		if err := r.Validate(); err != nil {
			t.Errorf("row %d (%s) invalid: %v", i, r.Key(), err)
		}
	}
}

// AssertNoDuplicateKeys verifies (geo, industry, metric, year) is unique.
func AssertNoDuplicateKeys(t *testing.T, rows []model.Row) {
	t.Helper()
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		if seen[r.Key()] {
			t.Errorf("duplicate row key: %s", r.Key())
		}
		seen[r.Key()] = true
	}
}

// AssertFloatNear verifies two floats differ by at most tol.
func AssertFloatNear(t *testing.T, expected, actual, tol float64) {
	t.Helper()
	if math.Abs(expected-actual) > tol {
		t.Errorf("expected %v, got %v (tolerance %v)", expected, actual, tol)
	}
}

// AssertJSONEqual compares two values after JSON round-tripping.
// Useful for comparing structs that may have different Go representations
// but equivalent JSON forms.
func AssertJSONEqual(t *testing.T, expected, actual any) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}

	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}

	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}

// Golden file helpers

// GoldenFile handles golden file comparisons.
type GoldenFile struct {
	t      *testing.T
	dir    string
	name   string
	update bool
}

// NewGoldenFile creates a golden file helper.
// If GENERATE_GOLDEN env var is set, golden files will be updated.
func NewGoldenFile(t *testing.T, dir, name string) *GoldenFile {
	t.Helper()
	return &GoldenFile{
		t:      t,
		dir:    dir,
		name:   name,
		update: os.Getenv("GENERATE_GOLDEN") != "",
	}
}

// Path returns the full path to the golden file.
func (g *GoldenFile) Path() string {
	return filepath.Join(g.dir, g.name)
}

// Assert compares actual content against the golden file.
// If GENERATE_GOLDEN is set, updates the golden file instead.
func (g *GoldenFile) Assert(actual string) {
	g.t.Helper()

	path := g.Path()

	if g.update {
		// Update golden file
		if err := os.MkdirAll(g.dir, 0755); err != nil {
			g.t.Fatalf("failed to create golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(actual), 0644); err != nil {
			g.t.Fatalf("failed to write golden file: %v", err)
		}
		g.t.Logf("updated golden file: %s", path)
		return
	}

	// Compare against golden file
	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			g.t.Fatalf("golden file does not exist: %s\nRun with GENERATE_GOLDEN=1 to create it", path)
		}
		g.t.Fatalf("failed to read golden file: %v", err)
	}

	if string(expected) != actual {
		// Find first difference for helpful error message
		expectedLines := strings.Split(string(expected), "\n")
		actualLines := strings.Split(actual, "\n")

		for i := 0; i < len(expectedLines) || i < len(actualLines); i++ {
			var expLine, actLine string
			if i < len(expectedLines) {
				expLine = expectedLines[i]
			}
			if i < len(actualLines) {
				actLine = actualLines[i]
			}
			if expLine != actLine {
				g.t.Errorf("golden file mismatch at line %d:\nexpected: %s\nactual:   %s\n\nFull diff (expected vs actual):\n%s\nvs\n%s",
					i+1, expLine, actLine, string(expected), actual)
				return
			}
		}
		g.t.Errorf("golden file mismatch (length differs)")
	}
}

// AssertJSON compares actual value as JSON against the golden file.
func (g *GoldenFile) AssertJSON(actual any) {
	g.t.Helper()

	data, err := json.MarshalIndent(actual, "", "  ")
	if err != nil {
		g.t.Fatalf("failed to marshal actual value: %v", err)
	}

	g.Assert(string(data))
}

// Dataset directory helpers

// WriteDataset writes rows as a CSV file named name in dir and returns its path.
func WriteDataset(t *testing.T, dir, name string, rows []model.Row) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(ToCSV(rows)), 0644); err != nil {
		t.Fatalf("failed to write dataset: %v", err)
	}
	return path
}

// WriteMetadata writes the fixture metadata CSV named name in dir.
func WriteMetadata(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(MetadataCSV()), 0644); err != nil {
		t.Fatalf("failed to write metadata: %v", err)
	}
	return path
}

// Row helpers

// FilterRows returns the rows matching pred, preserving order.
func FilterRows(rows []model.Row, pred func(model.Row) bool) []model.Row {
	var out []model.Row
	for _, r := range rows {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// CountByMetric counts rows per metric code.
func CountByMetric(rows []model.Row) map[string]int {
	counts := make(map[string]int)
	for _, r := range rows {
		counts[r.MetricCode]++
	}
	return counts
}

// GeoIDs returns the distinct geo ids in first-appearance order.
func GeoIDs(rows []model.Row) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, r := range rows {
		if !seen[r.GeoID] {
			seen[r.GeoID] = true
			ids = append(ids, r.GeoID)
		}
	}
	return ids
}

// HasTrailingSpace reports whether any geo id still carries the raw padding.
func HasTrailingSpace(rows []model.Row) bool {
	for _, r := range rows {
		if strings.HasSuffix(r.GeoID, " ") {
			return true
		}
	}
	return false
}
