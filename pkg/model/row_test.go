package model

import (
	"sort"
	"testing"
)

func TestPeriodLessNumeric(t *testing.T) {
	periods := []Period{"2010", "999", "2021", "2005"}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Less(periods[j]) })

	want := []Period{"999", "2005", "2010", "2021"}
	for i := range want {
		if periods[i] != want[i] {
			t.Fatalf("position %d: expected %s, got %s (all: %v)", i, want[i], periods[i], periods)
		}
	}
}

func TestPeriodLessFallsBackToLexical(t *testing.T) {
	if !Period("2020Q1").Less("2020Q2") {
		t.Error("expected 2020Q1 < 2020Q2")
	}
	if Period("b").Less("a") {
		t.Error("expected b to not sort before a")
	}
}

func TestIsHeadlineMetric(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{MetricLQ, true},
		{MetricCLQ, true},
		{"100", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsHeadlineMetric(tt.code); got != tt.want {
			t.Errorf("IsHeadlineMetric(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestColorDimensionValid(t *testing.T) {
	if !ColorByIndustry.Valid() || !ColorByMetric.Valid() {
		t.Fatal("expected built-in dimensions to be valid")
	}
	if ColorDimension("county").Valid() {
		t.Error("expected unknown dimension to be invalid")
	}
}

func TestRowValidate(t *testing.T) {
	ok := Row{GeoID: "018157", IndustryCode: "31", MetricCode: MetricLQ, Year: "2020"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := (Row{}).Validate(); err == nil {
		t.Fatal("expected error for empty row")
	}
}
