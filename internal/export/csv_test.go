package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comorbid-index-engine/internal/domain"
	"github.com/comorbid-index-engine/internal/engine"
)

func sampleResult() *engine.Result {
	return &engine.Result{
		RunID:      "run-1",
		Index:      domain.IndexM3,
		Categories: []domain.CategoryID{"myocardial_infarction", "heart_failure"},
		Patients: []engine.PatientResult{
			{
				Patient: domain.NewPatientKey("A", "p1"),
				Indicators: map[domain.CategoryID]uint8{
					"myocardial_infarction": 1,
					"heart_failure":         0,
				},
				Score:  0.44,
				Band:   domain.BandMild,
				Scored: true,
			},
			{
				Patient: domain.NewPatientKey("A", "p2"),
				Indicators: map[domain.CategoryID]uint8{
					"myocardial_infarction": 0,
					"heart_failure":         0,
				},
				Score:  0,
				Band:   domain.BandNone,
				Scored: true,
			},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleResult(), []string{"hospital", "patient_id"}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{
		"hospital", "patient_id",
		"myocardial_infarction", "heart_failure",
		"score", "score_band",
	}, rows[0])
	assert.Equal(t, []string{"A", "p1", "1", "0", "0.44", "1"}, rows[1])
	assert.Equal(t, []string{"A", "p2", "0", "0", "0", "0"}, rows[2])
}

func TestWriteCSVIndicatorsOnly(t *testing.T) {
	result := sampleResult()
	for i := range result.Patients {
		result.Patients[i].Scored = false
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, result, []string{"hospital", "patient_id"}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.NotContains(t, rows[0], "score")
	assert.Len(t, rows[1], 4)
}

func TestWriteCSVKeyMismatch(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, sampleResult(), []string{"patient_id"})
	require.Error(t, err)
}

func TestSanitizeColumn(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"has space", "has_space"},
		{"a:b", "a_b"},
		{"this_category_name_is_far_too_long_for_output", "this_category_name_is_far_too_lo"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeColumn(tt.in))
		assert.LessOrEqual(t, len(sanitizeColumn(tt.in)), maxColumnLen)
	}
}
