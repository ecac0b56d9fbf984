package export

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/agglo/pkg/figure"
	"github.com/vanderheijden86/agglo/pkg/testutil"
)

func TestGenerateReport(t *testing.T) {
	m, l, _ := sampleFigures(t)
	report := GenerateReport(ReportOptions{
		Title:     "Measuring | Agglomeration",
		Selection: [][2]string{{"Year", "2019"}, {"County", "County 00, AL (01001)"}},
		Map:       m,
		Line:      l,
		Selected:  []int{1},
		Mean:      1.234,
		Generated: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})

	for _, want := range []string{
		"# Measuring \\| Agglomeration",
		"*Generated: Wed, 01 May 2024 12:00:00 UTC*",
		"| **Year** | 2019 |",
		"| **Mean Value of Selection** | 1.23 |",
		"| 1 | " + testutil.CountyName(1) + " | " + testutil.CountyCode(1),
		"| 2016 |",
		"| 2019 |",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
	if strings.Count(report, "✓") != 1 {
		t.Errorf("expected exactly one selected marker:\n%s", report)
	}
	for _, s := range l.Series {
		if !strings.Contains(report, s.Name) {
			t.Errorf("report missing series %q", s.Name)
		}
	}
}

func TestGenerateReportEmptyFigures(t *testing.T) {
	report := GenerateReport(ReportOptions{Mean: math.NaN()})
	for _, want := range []string{
		"# Location Quotient Report",
		"| **Mean Value of Selection** | n/a |",
		"_No counties match this selection._",
		"_No data for this county._",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestGenerateReportMissingPoint(t *testing.T) {
	line := &figure.LineFigure{
		Title: "Location Quotients for County 00, AL",
		Series: []figure.Series{
			{Key: "300", Name: "LQ", Points: []figure.Point{{X: "2018", Y: 1}, {X: "2019", Y: 2}}},
			{Key: "200", Name: "CLQ", Points: []figure.Point{{X: "2019", Y: 3}}},
		},
	}
	report := GenerateReport(ReportOptions{Line: line})
	if !strings.Contains(report, "| 2018 | 1.00 |  |") {
		t.Errorf("expected blank cell for missing point:\n%s", report)
	}
	if !strings.Contains(report, "| 2019 | 2.00 | 3.00 |") {
		t.Errorf("expected full row for 2019:\n%s", report)
	}
}

func TestSaveReport(t *testing.T) {
	m, l, _ := sampleFigures(t)
	path, err := SaveReport(filepath.Join(t.TempDir(), "out", ReportFileName), ReportOptions{Map: m, Line: l})
	if err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	if filepath.Ext(path) != ".md" {
		t.Errorf("path = %q, want .md extension", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if !strings.HasPrefix(string(data), "# ") {
		t.Errorf("unexpected report start %q", string(data[:20]))
	}

	if _, err := SaveReport("", ReportOptions{}); err == nil {
		t.Error("expected error for empty path")
	}
}
