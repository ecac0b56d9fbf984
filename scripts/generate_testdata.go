//go:build ignore

// generate_testdata.go creates synthetic dataset directories for benchmarking
// and manual testing.
// Usage: go run scripts/generate_testdata.go [output-dir]
//
// Creates, under testdata/datasets by default:
//
//	small/   (10 counties, 3 industries)
//	medium/  (100 counties, 10 industries)
//	large/   (1000 counties, 10 industries, all extra metrics)
//
// Each directory holds the dataset CSV, its metadata CSV and a matching
// county GeoJSON, ready for `agglo --data-dir <dir> --boundaries <dir>/counties.json`.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/agglo/pkg/config"
	"github.com/vanderheijden86/agglo/pkg/testutil"
)

type datasetSpec struct {
	name       string
	counties   int
	industries int
	extra      int
}

var datasets = []datasetSpec{
	{"small", 10, 3, 1},
	{"medium", 100, 10, 1},
	{"large", 1000, 10, 3},
}

func main() {
	outputDir := filepath.Join("testdata", "datasets")
	if len(os.Args) > 1 {
		outputDir = os.Args[1]
	}
	names := config.DefaultConfig().Data

	for _, ds := range datasets {
		dir := filepath.Join(outputDir, ds.name)
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", dir, err)
			os.Exit(1)
		}

		cfg := testutil.DefaultConfig()
		cfg.Seed = int64(ds.counties)
		cfg.Counties = ds.counties
		cfg.Industries = ds.industries
		cfg.ExtraMetrics = ds.extra
		cfg.PaddedGeoIDs = true
		cfg.DirtyIndustryNames = true
		rows := testutil.New(cfg).Rows()

		fmt.Printf("Generating %s dataset (%d rows)...\n", ds.name, len(rows))
		files := map[string]string{
			names.Dataset:   testutil.ToCSV(rows),
			names.Metadata:  testutil.MetadataCSV(),
			"counties.json": testutil.CountiesGeoJSON(ds.counties),
		}
		for name, content := range files {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", path, err)
				os.Exit(1)
			}
			fmt.Printf("  Written %s (%d bytes)\n", path, len(content))
		}
	}

	fmt.Println("\nDone! Test datasets created in", outputDir)
}
