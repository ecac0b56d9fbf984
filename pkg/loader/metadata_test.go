package loader_test

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/agglo/pkg/loader"
)

func TestParseMetadata(t *testing.T) {
	content := "Proximity-Adjusted Location Quotients\n" +
		"Prepared by the Indiana Business Research Center\n" +
		"\n" +
		"Notes follow\n" +
		"Column,Description,Source,Extra\n" +
		"IBRC_Geo_ID,\"County FIPS code\",Census,ignored\n" +
		"PA-LQ_Data,Metric value,IBRC\n" +
		",,\n" +
		"Year\n"

	entries, err := loader.ParseMetadata(strings.NewReader(content))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d: %+v", len(entries), entries)
	}
	if entries[0].Column != "IBRC_Geo_ID" || entries[0].Description != "County FIPS code" || entries[0].Source != "Census" {
		t.Errorf("Unexpected first entry: %+v", entries[0])
	}
	if entries[2].Column != "Year" || entries[2].Source != "" {
		t.Errorf("Expected short record to be padded, got %+v", entries[2])
	}
}

func TestParseMetadata_ShortFile(t *testing.T) {
	entries, err := loader.ParseMetadata(strings.NewReader("only\ntwo lines\n"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries, got %d", len(entries))
	}
}

func TestLoadMetadata_Missing(t *testing.T) {
	if _, err := loader.LoadMetadata("/nonexistent/meta.csv"); err == nil {
		t.Fatal("Expected error for missing metadata file")
	}
}
