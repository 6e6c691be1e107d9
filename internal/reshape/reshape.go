// Package reshape converts wide-format admission extracts (one row per
// encounter, several diagnosis columns under a shared naming prefix) into the
// long format the engine consumes.
package reshape

import (
	"fmt"
	"strings"

	"github.com/comorbid-index-engine/internal/domain"
)

// Options identifies the patient key columns and the diagnosis column prefix
// in a wide extract.
type Options struct {
	KeyColumns []string
	CodePrefix string
}

// WideToLong emits one CodeRecord per non-blank diagnosis code. Encounters
// with zero codes emit one placeholder record so their patients are still
// observed downstream; the aggregator gives them an all-zero row rather than
// dropping them. Header column lookup is case-insensitive.
func WideToLong(header []string, rows [][]string, opts Options) ([]domain.CodeRecord, error) {
	if len(opts.KeyColumns) == 0 {
		return nil, domain.NewConfigError("key_columns", "", fmt.Errorf("at least one patient key column is required"))
	}
	if opts.CodePrefix == "" {
		return nil, domain.NewConfigError("code_prefix", "", fmt.Errorf("diagnosis column prefix is required"))
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}

	keyIdx := make([]int, len(opts.KeyColumns))
	for i, col := range opts.KeyColumns {
		idx, ok := index[strings.ToLower(col)]
		if !ok {
			return nil, domain.NewConfigError("key_columns", col, fmt.Errorf("column not present in input header"))
		}
		keyIdx[i] = idx
	}

	prefix := strings.ToLower(opts.CodePrefix)
	var codeIdx []int
	for i, col := range header {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(col)), prefix) {
			codeIdx = append(codeIdx, i)
		}
	}
	if len(codeIdx) == 0 {
		return nil, domain.NewConfigError("code_prefix", opts.CodePrefix, fmt.Errorf("no diagnosis columns match prefix"))
	}

	out := make([]domain.CodeRecord, 0, len(rows))
	for rowNum, row := range rows {
		fields := make([]string, len(keyIdx))
		for i, idx := range keyIdx {
			if idx >= len(row) {
				return nil, fmt.Errorf("row %d: too few columns for key field %q", rowNum+1, opts.KeyColumns[i])
			}
			fields[i] = strings.TrimSpace(row[idx])
		}
		patient := domain.NewPatientKey(fields...)

		emitted := 0
		for _, idx := range codeIdx {
			if idx >= len(row) {
				continue
			}
			code := strings.TrimSpace(row[idx])
			if code == "" {
				continue
			}
			out = append(out, domain.CodeRecord{Patient: patient, Code: code})
			emitted++
		}
		if emitted == 0 {
			// Placeholder keeps the encounter's patient in the cohort.
			out = append(out, domain.CodeRecord{Patient: patient})
		}
	}
	return out, nil
}
