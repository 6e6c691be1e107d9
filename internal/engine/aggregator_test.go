package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comorbid-index-engine/internal/domain"
	"github.com/comorbid-index-engine/internal/ruleset"
)

func aggregate(t *testing.T, records []domain.CodeRecord) *domain.IndicatorMatrix {
	t.Helper()
	rs := ruleset.M3()
	classifier, err := NewClassifier(rs.Table, testLogger())
	require.NoError(t, err)
	return NewAggregator(classifier, testLogger()).Aggregate(records)
}

func TestAggregateSetsIndicators(t *testing.T) {
	p := domain.NewPatientKey("p1")
	m := aggregate(t, []domain.CodeRecord{
		{Patient: p, Code: "I219"},
		{Patient: p, Code: "E119"},
	})

	assert.Equal(t, uint8(1), m.Get(p, ruleset.CatMyocardialInfarction))
	assert.Equal(t, uint8(1), m.Get(p, ruleset.CatDiabetesUncomplicated))
	assert.Equal(t, uint8(0), m.Get(p, ruleset.CatCongestiveHeartFailure))
}

// Repeat codes collapse to a single indicator; indicators are presence flags,
// not counts.
func TestAggregateIdempotentPerCategory(t *testing.T) {
	p := domain.NewPatientKey("p1")
	m := aggregate(t, []domain.CodeRecord{
		{Patient: p, Code: "I219"},
		{Patient: p, Code: "I220"},
		{Patient: p, Code: "I21"},
	})

	assert.Equal(t, uint8(1), m.Get(p, ruleset.CatMyocardialInfarction))
}

// Every patient seen in the input gets a row, even when no code matches or
// the record is a reshape placeholder with an empty code. Patients are never
// dropped from the denominator.
func TestAggregateKeepsNonMatchingPatients(t *testing.T) {
	noMatch := domain.NewPatientKey("p1")
	placeholder := domain.NewPatientKey("p2")

	m := aggregate(t, []domain.CodeRecord{
		{Patient: noMatch, Code: "Z999"},
		{Patient: placeholder, Code: ""},
	})

	assert.Equal(t, 2, m.Len())
	for _, p := range []domain.PatientKey{noMatch, placeholder} {
		require.True(t, m.Has(p))
		for cat, v := range m.Row(p) {
			assert.Equal(t, uint8(0), v, "patient %s category %s", p, cat)
		}
	}
}

func TestAggregateMalformedCounted(t *testing.T) {
	rs := ruleset.M3()
	classifier, err := NewClassifier(rs.Table, testLogger())
	require.NoError(t, err)

	p := domain.NewPatientKey("p1")
	m := NewAggregator(classifier, testLogger()).Aggregate([]domain.CodeRecord{
		{Patient: p, Code: "not-a-code"},
		{Patient: p, Code: "I219"},
	})

	assert.Equal(t, uint8(1), m.Get(p, ruleset.CatMyocardialInfarction))
	assert.Equal(t, int64(1), classifier.MalformedCount())
}
