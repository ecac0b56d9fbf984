package loader

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vanderheijden86/agglo/pkg/model"
)

// MetadataPreambleLines is the number of free-text lines above the metadata header.
const MetadataPreambleLines = 4

// LoadMetadata reads the column metadata table from a CSV file.
func LoadMetadata(path string) ([]model.MetadataEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata: %w", err)
	}
	defer file.Close()

	return ParseMetadata(file)
}

// ParseMetadata skips the preamble and header, keeping the first three
// columns of each remaining record.
func ParseMetadata(r io.Reader) ([]model.MetadataEntry, error) {
	br := bufio.NewReader(newBOMReader(r))
	for i := 0; i < MetadataPreambleLines; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("reading metadata preamble: %w", err)
		}
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	if _, err := cr.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("reading metadata header: %w", err)
	}

	var entries []model.MetadataEntry
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			return nil, fmt.Errorf("reading metadata: %w", err)
		}
		if isBlank(record) {
			continue
		}
		var cells [3]string
		for i := 0; i < len(cells) && i < len(record); i++ {
			cells[i] = strings.TrimSpace(record[i])
		}
		entries = append(entries, model.MetadataEntry{
			Column:      cells[0],
			Description: cells[1],
			Source:      cells[2],
		})
	}
	return entries, nil
}
