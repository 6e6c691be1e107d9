package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comorbid-index-engine/internal/domain"
	"github.com/comorbid-index-engine/internal/engine"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteRoundTrip(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	result := &engine.Result{
		RunID: "run-1",
		Index: domain.IndexC3,
		Site:  domain.SiteColon,
		Patients: []engine.PatientResult{
			{
				Patient:    domain.NewPatientKey("hosp-a", "p1"),
				Indicators: map[domain.CategoryID]uint8{"renal_disease": 1},
				Score:      1.12,
				Band:       domain.BandModerate,
				Scored:     true,
			},
			{
				Patient: domain.NewPatientKey("hosp-a", "p2"),
				Band:    domain.BandUndefined,
			},
		},
		MalformedCodes: 2,
	}

	require.NoError(t, store.SaveRun(ctx, result))

	summary, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "c3", summary.Index)
	assert.Equal(t, "COLON", summary.Site)
	assert.Equal(t, 2, summary.Patients)
	assert.Equal(t, int64(2), summary.Malformed)

	results, err := store.GetResults(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].Scored)
	assert.InDelta(t, 1.12, results[0].Score, 1e-9)
	assert.Equal(t, domain.BandModerate, results[0].Band)
	assert.Equal(t, uint8(1), results[0].Indicators["renal_disease"])

	assert.False(t, results[1].Scored)
	assert.Equal(t, domain.BandUndefined, results[1].Band)
}

func TestSQLiteGetRunNotFound(t *testing.T) {
	store := newSQLiteStore(t)

	_, err := store.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteListRuns(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	for _, id := range []string{"run-1", "run-2", "run-3"} {
		require.NoError(t, store.SaveRun(ctx, &engine.Result{
			RunID: id,
			Index: domain.IndexM3,
		}))
	}

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	runs, err = store.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}
