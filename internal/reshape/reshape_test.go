package reshape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comorbid-index-engine/internal/domain"
)

var opts = Options{
	KeyColumns: []string{"hospital", "patient_id"},
	CodePrefix: "diag",
}

func TestWideToLong(t *testing.T) {
	header := []string{"hospital", "patient_id", "admit_date", "diag01", "diag02", "diag03"}
	rows := [][]string{
		{"A", "p1", "2024-01-01", "I219", "E119", ""},
		{"A", "p2", "2024-02-01", "J44", "", ""},
	}

	records, err := WideToLong(header, rows, opts)
	require.NoError(t, err)
	require.Len(t, records, 3)

	p1 := domain.NewPatientKey("A", "p1")
	assert.Equal(t, domain.CodeRecord{Patient: p1, Code: "I219"}, records[0])
	assert.Equal(t, domain.CodeRecord{Patient: p1, Code: "E119"}, records[1])
	assert.Equal(t, "J44", records[2].Code)
}

// An encounter with every diagnosis column blank still yields a placeholder
// record, so its patient stays in the cohort denominator.
func TestWideToLongEmptyEncounter(t *testing.T) {
	header := []string{"hospital", "patient_id", "diag01", "diag02"}
	rows := [][]string{
		{"A", "p1", "", ""},
	}

	records, err := WideToLong(header, rows, opts)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.NewPatientKey("A", "p1"), records[0].Patient)
	assert.Empty(t, records[0].Code)
}

func TestWideToLongCaseInsensitiveHeader(t *testing.T) {
	header := []string{"Hospital", "PATIENT_ID", "Diag01"}
	rows := [][]string{{"A", "p1", "I219"}}

	records, err := WideToLong(header, rows, opts)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "I219", records[0].Code)
}

func TestWideToLongRaggedRow(t *testing.T) {
	header := []string{"hospital", "patient_id", "diag01", "diag02"}
	rows := [][]string{
		{"A", "p1", "I219"}, // trailing diagnosis column missing entirely
	}

	records, err := WideToLong(header, rows, opts)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "I219", records[0].Code)
}

func TestWideToLongConfigErrors(t *testing.T) {
	header := []string{"hospital", "patient_id", "diag01"}
	rows := [][]string{{"A", "p1", "I219"}}

	tests := []struct {
		name string
		opts Options
	}{
		{"no key columns", Options{CodePrefix: "diag"}},
		{"no code prefix", Options{KeyColumns: []string{"hospital"}}},
		{"missing key column", Options{KeyColumns: []string{"dhb"}, CodePrefix: "diag"}},
		{"no matching code columns", Options{KeyColumns: []string{"hospital"}, CodePrefix: "dx"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := WideToLong(header, rows, tt.opts)
			require.Error(t, err)

			var cfgErr *domain.ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}
