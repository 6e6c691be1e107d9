package registry

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/comorbid-index-engine/internal/domain"
)

// FileOptions describes the column layout of a registry CSV extract.
type FileOptions struct {
	// KeyColumns name the columns that jointly identify a patient, in
	// significance order.
	KeyColumns []string
	// SiteColumn names the cancer-site column.
	SiteColumn string
	// MetastaticColumn names the extent-of-disease flag column. Values
	// "1", "true", "yes" and "y" mark metastatic disease.
	MetastaticColumn string
}

// ReadCSV parses a registry extract. Rows with an unrecognised cancer site
// are rejected rather than skipped: a CSV extract is curated input, and a
// bad site means the extract does not match the expected layout.
func ReadCSV(r io.Reader, opts FileOptions) ([]domain.RegistryRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading registry header: %w", err)
	}

	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[strings.ToLower(strings.TrimSpace(name))] = i
	}

	keyIdx := make([]int, len(opts.KeyColumns))
	for i, name := range opts.KeyColumns {
		idx, ok := colIndex[strings.ToLower(name)]
		if !ok {
			return nil, domain.NewConfigError("key_columns", name, fmt.Errorf("column not found in registry extract"))
		}
		keyIdx[i] = idx
	}
	siteIdx, ok := colIndex[strings.ToLower(opts.SiteColumn)]
	if !ok {
		return nil, domain.NewConfigError("site_column", opts.SiteColumn, fmt.Errorf("column not found in registry extract"))
	}
	metaIdx, ok := colIndex[strings.ToLower(opts.MetastaticColumn)]
	if !ok {
		return nil, domain.NewConfigError("metastatic_column", opts.MetastaticColumn, fmt.Errorf("column not found in registry extract"))
	}

	var out []domain.RegistryRecord
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading registry row: %w", err)
		}
		line++

		fields := make([]string, len(keyIdx))
		for i, idx := range keyIdx {
			fields[i] = strings.TrimSpace(row[idx])
		}

		site := domain.CancerSite(strings.ToUpper(strings.TrimSpace(row[siteIdx])))
		if !site.IsValid() {
			return nil, fmt.Errorf("registry row %d: unknown cancer site %q", line, row[siteIdx])
		}

		out = append(out, domain.RegistryRecord{
			Patient:    domain.NewPatientKey(fields...),
			Site:       site,
			Metastatic: isTruthy(row[metaIdx]),
		})
	}
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
