package testutil

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/agglo/pkg/model"
)

func TestRowsCoverEveryCombination(t *testing.T) {
	rows := QuickRows()
	// 4 counties * 3 industries * (2 headline + 1 extra) metrics * 4 years
	AssertRowCount(t, rows, 4*3*3*4)
	AssertAllValid(t, rows)
	AssertNoDuplicateKeys(t, rows)

	counts := CountByMetric(rows)
	if counts[model.MetricLQ] != 48 || counts[model.MetricCLQ] != 48 || counts["100"] != 48 {
		t.Errorf("unexpected metric counts: %v", counts)
	}
}

func TestDeterminism(t *testing.T) {
	a := QuickRows()
	b := QuickRows()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("row %d differs between runs: %+v vs %+v", i, a[i], b[i])
		}
	}

	cfg := DefaultConfig()
	cfg.Seed = 7
	c := New(cfg).Rows()
	same := true
	for i := range a {
		if a[i].Value != c[i].Value {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical values")
	}
}

func TestRawRows(t *testing.T) {
	rows := QuickRawRows()
	if !HasTrailingSpace(rows) {
		t.Error("expected padded geo ids in raw rows")
	}
	for _, r := range rows {
		if !strings.HasPrefix(r.Industry, "- ") {
			t.Fatalf("expected dirty industry name, got %q", r.Industry)
		}
	}
	ids := GeoIDs(rows)
	if ids[0] != "1001 " {
		t.Errorf("expected first county as \"1001 \", got %q", ids[0])
	}
}

func TestToCSV(t *testing.T) {
	rows := []model.Row{{
		GeoID: "18157 ", County: "Tippecanoe County, IN", IndustryCode: "11",
		Industry: "Ag", MetricCode: "300", Metric: "LQ", Year: "2019", Value: 1.25,
	}}
	out := ToCSV(rows)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 line, got %d", len(lines))
	}
	if lines[0] != strings.Join(DatasetHeader, ",") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[1] != `18157 ,"Tippecanoe County, IN",11,Ag,300,LQ,2019,1.25` {
		t.Errorf("unexpected record %q", lines[1])
	}
}

func TestConfigClamps(t *testing.T) {
	g := New(GeneratorConfig{Industries: 99, ExtraMetrics: 99, Counties: 1, Years: []model.Period{"2020"}})
	rows := g.Rows()
	AssertRowCount(t, rows, 1*len(sectors)*(2+len(extraMetrics))*1)
}
