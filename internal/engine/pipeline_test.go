package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comorbid-index-engine/internal/domain"
	"github.com/comorbid-index-engine/internal/ruleset"
)

func m3Options() Options {
	return Options{
		Index:             domain.IndexM3,
		IncludeIndicators: true,
		IncludeScores:     true,
		Workers:           1,
	}
}

func TestPipelineM3EndToEnd(t *testing.T) {
	p1 := domain.NewPatientKey("p1")
	p2 := domain.NewPatientKey("p2")
	p3 := domain.NewPatientKey("p3")

	in := Input{
		Records: []domain.CodeRecord{
			{Patient: p1, Code: "I21.9"},
			{Patient: p2, Code: "E119"},
			{Patient: p2, Code: "I201"},
			{Patient: p3, Code: "C787"},
			{Patient: p3, Code: "C189"},
		},
	}

	pipeline, err := New(m3Options(), testLogger())
	require.NoError(t, err)

	result, err := pipeline.Run(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, result.Patients, 3)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, domain.IndexM3, result.Index)

	byPatient := map[domain.PatientKey]PatientResult{}
	for _, p := range result.Patients {
		byPatient[p.Patient] = p
	}

	// Single infarction: one weighted condition.
	assert.Equal(t, uint8(1), byPatient[p1].Indicators[ruleset.CatMyocardialInfarction])
	assert.InDelta(t, 0.44, byPatient[p1].Score, 1e-9)
	assert.Equal(t, domain.BandMild, byPatient[p1].Band)

	// Diabetes merged to complicated; only the complicated weight counts.
	assert.Equal(t, uint8(1), byPatient[p2].Indicators[ruleset.CatDiabetesComplicated])
	assert.Equal(t, uint8(0), byPatient[p2].Indicators[ruleset.CatDiabetesUncomplicated])
	assert.InDelta(t, 0.75, byPatient[p2].Score, 1e-9)

	// Metastatic dominance leaves exactly the metastatic weight.
	assert.InDelta(t, 1.53, byPatient[p3].Score, 1e-9)
	assert.Equal(t, domain.BandModerate, byPatient[p3].Band)
}

// Worker count never changes the output.
func TestPipelineWorkerParity(t *testing.T) {
	var in Input
	codes := []string{"I219", "E119", "I201", "C189", "I10", "I120", "Z999", "D509", "J44"}
	for i := 0; i < 40; i++ {
		p := domain.NewPatientKey("hosp", string(rune('a'+i%26)), string(rune('0'+i/26)))
		in.Records = append(in.Records, domain.CodeRecord{Patient: p, Code: codes[i%len(codes)]})
	}

	run := func(workers int) *Result {
		opts := m3Options()
		opts.Workers = workers
		pipeline, err := New(opts, testLogger())
		require.NoError(t, err)
		result, err := pipeline.Run(context.Background(), in)
		require.NoError(t, err)
		result.RunID = ""
		return result
	}

	assert.Equal(t, run(1), run(4))
	assert.Equal(t, run(1), run(7))
}

func TestPipelineRejectsNoOutputs(t *testing.T) {
	_, err := New(Options{Index: domain.IndexM3}, testLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoOutputs)
}

func TestPipelineRejectsUnknownIndex(t *testing.T) {
	_, err := New(Options{
		Index:             domain.IndexVariant("charlson"),
		IncludeIndicators: true,
	}, testLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownIndex)
}

func TestPipelineRejectsSiteForM3(t *testing.T) {
	opts := m3Options()
	opts.Site = domain.SiteColon
	_, err := New(opts, testLogger())
	require.Error(t, err)

	var cfgErr *domain.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestPipelineIndicatorsOnly(t *testing.T) {
	p := domain.NewPatientKey("p1")
	opts := m3Options()
	opts.IncludeScores = false

	pipeline, err := New(opts, testLogger())
	require.NoError(t, err)

	result, err := pipeline.Run(context.Background(), Input{
		Records: []domain.CodeRecord{{Patient: p, Code: "I219"}},
	})
	require.NoError(t, err)
	require.Len(t, result.Patients, 1)

	row := result.Patients[0]
	assert.Equal(t, uint8(1), row.Indicators[ruleset.CatMyocardialInfarction])
	assert.False(t, row.Scored)
	assert.Equal(t, domain.BandUndefined, row.Band)
}

// C3 with a colon cohort: pre-treatment anemia is weight-suppressed for the
// site but its indicator is preserved; a pre-treatment infarction scores
// normally.
func TestPipelineC3SiteSuppression(t *testing.T) {
	p := domain.NewPatientKey("p1")
	opts := Options{
		Index:             domain.IndexC3,
		Site:              domain.SiteColon,
		IncludeIndicators: true,
		IncludeScores:     true,
		Workers:           1,
	}

	pipeline, err := New(opts, testLogger())
	require.NoError(t, err)

	result, err := pipeline.Run(context.Background(), Input{
		Records: []domain.CodeRecord{{Patient: p, Code: "I500"}},
		PreTreatment: []domain.CodeRecord{
			{Patient: p, Code: "D509"},
			{Patient: p, Code: "I219"},
		},
	})
	require.NoError(t, err)
	require.Len(t, result.Patients, 1)

	row := result.Patients[0]
	assert.Equal(t, uint8(1), row.Indicators[domain.PreTreatment(ruleset.CatAnemia)])
	assert.Equal(t, uint8(1), row.Indicators[domain.PreTreatment(ruleset.CatMyocardialInfarction)])
	assert.Equal(t, uint8(1), row.Indicators[ruleset.CatCongestiveHeartFailure])

	// CHF 1.13 + pre-treatment MI 0.69; suppressed anemia contributes zero.
	assert.InDelta(t, 1.82, row.Score, 1e-9)
	assert.Equal(t, domain.BandModerate, row.Band)
}

// The cohort's own primary-site codes never count as other malignancy, but a
// different site's primary code does.
func TestPipelineC3OtherMalignancy(t *testing.T) {
	ownSite := domain.NewPatientKey("p1")
	otherSite := domain.NewPatientKey("p2")
	opts := Options{
		Index:         domain.IndexC3,
		Site:          domain.SiteColon,
		IncludeScores: true,
		Workers:       1,
	}

	pipeline, err := New(opts, testLogger())
	require.NoError(t, err)

	result, err := pipeline.Run(context.Background(), Input{
		PreTreatment: []domain.CodeRecord{
			{Patient: ownSite, Code: "C189"},  // the cohort's own cancer
			{Patient: otherSite, Code: "C61"}, // an unrelated prostate primary
		},
	})
	require.NoError(t, err)

	byPatient := map[domain.PatientKey]PatientResult{}
	for _, p := range result.Patients {
		byPatient[p.Patient] = p
	}

	assert.InDelta(t, 0.0, byPatient[ownSite].Score, 1e-9)
	assert.InDelta(t, 0.56, byPatient[otherSite].Score, 1e-9)
}

// The emit hook sees every patient exactly once, concurrently with the run.
func TestPipelineRunFuncEmits(t *testing.T) {
	var in Input
	for _, id := range []string{"p1", "p2", "p3", "p4"} {
		in.Records = append(in.Records, domain.CodeRecord{
			Patient: domain.NewPatientKey(id), Code: "I219",
		})
	}

	opts := m3Options()
	opts.Workers = 4
	pipeline, err := New(opts, testLogger())
	require.NoError(t, err)

	var mu sync.Mutex
	seen := map[domain.PatientKey]int{}
	result, err := pipeline.RunFunc(context.Background(), in, func(p PatientResult) {
		mu.Lock()
		seen[p.Patient]++
		mu.Unlock()
	})
	require.NoError(t, err)

	require.Len(t, seen, len(result.Patients))
	for p, n := range seen {
		assert.Equal(t, 1, n, "patient %s emitted %d times", p, n)
	}
}

func TestPipelineResultsSorted(t *testing.T) {
	var in Input
	for _, id := range []string{"zeta", "alpha", "mike", "bravo"} {
		in.Records = append(in.Records, domain.CodeRecord{
			Patient: domain.NewPatientKey(id), Code: "I219",
		})
	}

	opts := m3Options()
	opts.Workers = 3
	pipeline, err := New(opts, testLogger())
	require.NoError(t, err)

	result, err := pipeline.Run(context.Background(), in)
	require.NoError(t, err)

	for i := 1; i < len(result.Patients); i++ {
		assert.Less(t, string(result.Patients[i-1].Patient), string(result.Patients[i].Patient))
	}
}
