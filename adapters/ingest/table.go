package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"scorecard/domain/dataset"
)

// missingTokens are cell values read as missing
var missingTokens = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"NaN":  true,
	"nan":  true,
	"null": true,
	"NULL": true,
	"None": true,
}

// NormalizeName lower-cases a header and replaces spaces with underscores
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// BuildTable converts a header row plus data rows into a table. A column is
// numeric when every non-missing cell parses as a float; otherwise it is
// categorical.
func BuildTable(rows [][]string) (*dataset.Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no header row")
	}
	header := rows[0]
	data := rows[1:]

	seen := make(map[string]int, len(header))
	columns := make([]dataset.Column, len(header))
	for j, raw := range header {
		name := NormalizeName(raw)
		if name == "" {
			return nil, fmt.Errorf("column %d has an empty header", j+1)
		}
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("columns %d and %d both normalize to %q", prev+1, j+1, name)
		}
		seen[name] = j

		cells := make([]string, len(data))
		for i, row := range data {
			cells[i] = strings.TrimSpace(row[j])
		}
		columns[j] = inferColumn(name, cells)
	}
	return dataset.New(columns...)
}

func inferColumn(name string, cells []string) dataset.Column {
	floats := make([]float64, len(cells))
	numeric := true
	for i, c := range cells {
		if missingTokens[c] {
			floats[i] = nan
			continue
		}
		v, err := strconv.ParseFloat(c, 64)
		if err != nil {
			numeric = false
			break
		}
		floats[i] = v
	}
	if numeric {
		return dataset.NumericColumn(name, floats)
	}

	strs := make([]string, len(cells))
	for i, c := range cells {
		if !missingTokens[c] {
			strs[i] = c
		}
	}
	return dataset.CategoricalColumn(name, strs)
}
