package ui

import (
	"testing"

	"github.com/vanderheijden86/agglo/pkg/lookup"
)

func TestFuzzyScoreExactMatch(t *testing.T) {
	score := fuzzyScore("utilities", "utilities")
	if score != 1000 {
		t.Errorf("Expected exact match score 1000, got %d", score)
	}
}

func TestFuzzyScorePrefixMatch(t *testing.T) {
	score := fuzzyScore("Manufacturing", "manu")
	if score < 500 {
		t.Errorf("Expected prefix match score >= 500, got %d", score)
	}
}

func TestFuzzyScoreContainsMatch(t *testing.T) {
	score := fuzzyScore("Wholesale Trade", "trade")
	if score < 200 {
		t.Errorf("Expected contains match score >= 200, got %d", score)
	}
}

func TestFuzzyScoreSubsequenceMatch(t *testing.T) {
	score := fuzzyScore("Construction", "cnst")
	if score <= 0 {
		t.Errorf("Expected subsequence match score > 0, got %d", score)
	}
}

func TestFuzzyScoreNoMatch(t *testing.T) {
	if score := fuzzyScore("Utilities", "xyz"); score != 0 {
		t.Errorf("Expected no match score 0, got %d", score)
	}
}

func TestFuzzyScoreCaseInsensitive(t *testing.T) {
	score1 := fuzzyScore("CLQ", "clq")
	score2 := fuzzyScore("clq", "CLQ")
	if score1 != 1000 || score2 != 1000 {
		t.Errorf("Expected case-insensitive exact match, got scores %d and %d", score1, score2)
	}
}

func TestFuzzyScoreWordBoundaryBonus(t *testing.T) {
	score1 := fuzzyScore("retail-trade", "rt")
	score2 := fuzzyScore("retailtrade", "rt")
	if score1 <= score2 {
		t.Errorf("Expected word boundary match to score higher: boundary=%d, no-boundary=%d", score1, score2)
	}
}

func industryOptions() []lookup.Option {
	return []lookup.Option{
		{Code: "11", Name: "Agriculture, Forestry, Fishing and Hunting"},
		{Code: "21", Name: "Mining, Quarrying, and Oil and Gas Extraction"},
		{Code: "22", Name: "Utilities"},
		{Code: "31-33", Name: "Manufacturing"},
	}
}

func TestPickerKeepsOptionOrder(t *testing.T) {
	picker := NewPickerModel("Select Industry", industryOptions(), TestTheme())

	if picker.FilteredCount() != 4 {
		t.Fatalf("Expected 4 options, got %d", picker.FilteredCount())
	}
	opt, ok := picker.Selected()
	if !ok || opt.Code != "11" {
		t.Errorf("Expected first option 11, got %+v (ok=%v)", opt, ok)
	}
	if picker.Title() != "Select Industry" {
		t.Errorf("Title = %q", picker.Title())
	}
}

func TestPickerNavigation(t *testing.T) {
	picker := NewPickerModel("x", industryOptions(), TestTheme())

	picker.MoveDown()
	picker.MoveDown()
	if opt, _ := picker.Selected(); opt.Code != "22" {
		t.Errorf("Expected 22 after two MoveDown, got %s", opt.Code)
	}

	picker.MoveDown()
	picker.MoveDown()
	if opt, _ := picker.Selected(); opt.Code != "31-33" {
		t.Errorf("Expected 31-33 at end boundary, got %s", opt.Code)
	}

	picker.MoveUp()
	if opt, _ := picker.Selected(); opt.Code != "22" {
		t.Errorf("Expected 22 after MoveUp, got %s", opt.Code)
	}

	picker.MoveUp()
	picker.MoveUp()
	picker.MoveUp()
	if opt, _ := picker.Selected(); opt.Code != "11" {
		t.Errorf("Expected 11 at start boundary, got %s", opt.Code)
	}
}

func TestPickerSelectCode(t *testing.T) {
	picker := NewPickerModel("x", industryOptions(), TestTheme())
	picker.SelectCode("22")
	if opt, _ := picker.Selected(); opt.Code != "22" {
		t.Errorf("Expected cursor on 22, got %s", opt.Code)
	}
	picker.SelectCode("99")
	if opt, _ := picker.Selected(); opt.Code != "22" {
		t.Errorf("Unknown code should leave cursor alone, got %s", opt.Code)
	}
}

func TestPickerQueryMatchesNameOrCode(t *testing.T) {
	picker := NewPickerModel("x", industryOptions(), TestTheme())

	picker.SetQuery("util")
	if picker.FilteredCount() != 1 {
		t.Fatalf("Expected 1 match for 'util', got %d", picker.FilteredCount())
	}
	if opt, _ := picker.Selected(); opt.Code != "22" {
		t.Errorf("Expected Utilities, got %+v", opt)
	}

	picker.SetQuery("31")
	if opt, _ := picker.Selected(); opt.Code != "31-33" {
		t.Errorf("Expected code match on 31-33, got %+v", opt)
	}

	picker.SetQuery("zzz")
	if picker.FilteredCount() != 0 {
		t.Errorf("Expected no matches, got %d", picker.FilteredCount())
	}
	if _, ok := picker.Selected(); ok {
		t.Error("Expected no selection with no matches")
	}
}

func TestPickerRanksExactAboveSubsequence(t *testing.T) {
	opts := []lookup.Option{
		{Code: "300", Name: "LQ"},
		{Code: "200", Name: "CLQ"},
	}
	picker := NewPickerModel("x", opts, TestTheme())
	picker.SetQuery("lq")
	if picker.FilteredCount() != 2 {
		t.Fatalf("Expected both metrics to match, got %d", picker.FilteredCount())
	}
	if opt, _ := picker.Selected(); opt.Code != "300" {
		t.Errorf("Expected exact match LQ first, got %+v", opt)
	}
}

func TestPickerEmptySelection(t *testing.T) {
	picker := NewPickerModel("x", nil, TestTheme())
	if _, ok := picker.Selected(); ok {
		t.Error("Expected no selection from empty options")
	}
}

func TestPickerReset(t *testing.T) {
	picker := NewPickerModel("x", industryOptions(), TestTheme())
	picker.MoveDown()
	picker.SetQuery("mining")
	picker.Reset()

	if picker.InputValue() != "" {
		t.Errorf("Expected empty input after Reset, got %s", picker.InputValue())
	}
	if picker.selectedIndex != 0 {
		t.Errorf("Expected selectedIndex 0 after Reset, got %d", picker.selectedIndex)
	}
	if picker.FilteredCount() != 4 {
		t.Errorf("Expected all options after Reset, got %d", picker.FilteredCount())
	}
}

func TestPickerViewShowsTitleAndCodes(t *testing.T) {
	picker := NewPickerModel("Select Industry", industryOptions(), TestTheme())
	picker.SetSize(100, 30)
	out := picker.View()
	for _, want := range []string{"Select Industry", "Utilities", "31-33"} {
		if !containsPlain(out, want) {
			t.Errorf("picker view missing %q", want)
		}
	}
}

func TestItoaHelper(t *testing.T) {
	tests := []struct {
		input    int
		expected string
	}{
		{0, "0"},
		{1, "1"},
		{42, "42"},
		{100, "100"},
		{-5, "-5"},
	}

	for _, tc := range tests {
		if result := itoa(tc.input); result != tc.expected {
			t.Errorf("itoa(%d) = %s, want %s", tc.input, result, tc.expected)
		}
	}
}
