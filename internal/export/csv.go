// Package export writes run results as flat output tables. Column naming
// constraints (length and character limits for downstream statistical
// packages) are handled here, not in the engine.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/comorbid-index-engine/internal/engine"
)

// Downstream statistical tooling limits variable names.
const maxColumnLen = 32

// sanitizeColumn enforces the output column constraints: no spaces or
// colons, at most 32 characters.
func sanitizeColumn(name string) string {
	name = strings.NewReplacer(" ", "_", ":", "_").Replace(name)
	if len(name) > maxColumnLen {
		name = name[:maxColumnLen]
	}
	return name
}

// WriteCSV writes one row per patient: the key fields, then the declared
// indicator columns (when present), then score and band (when present).
// Column presence follows the run's output toggles.
func WriteCSV(w io.Writer, result *engine.Result, keyColumns []string) error {
	cw := csv.NewWriter(w)

	includeIndicators := len(result.Patients) > 0 && result.Patients[0].Indicators != nil
	includeScores := len(result.Patients) > 0 && result.Patients[0].Scored

	header := make([]string, 0, len(keyColumns)+len(result.Categories)+2)
	for _, col := range keyColumns {
		header = append(header, sanitizeColumn(col))
	}
	if includeIndicators {
		for _, c := range result.Categories {
			header = append(header, sanitizeColumn(string(c)))
		}
	}
	if includeScores {
		header = append(header, "score", "score_band")
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, p := range result.Patients {
		fields := p.Patient.Fields()
		if len(fields) != len(keyColumns) {
			return fmt.Errorf("patient key has %d fields, expected %d", len(fields), len(keyColumns))
		}
		row := make([]string, 0, len(header))
		row = append(row, fields...)
		if includeIndicators {
			for _, c := range result.Categories {
				row = append(row, strconv.Itoa(int(p.Indicators[c])))
			}
		}
		if includeScores {
			row = append(row,
				strconv.FormatFloat(p.Score, 'f', -1, 64),
				strconv.Itoa(int(p.Band)),
			)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
