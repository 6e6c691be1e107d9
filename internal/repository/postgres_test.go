package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comorbid-index-engine/internal/domain"
	"github.com/comorbid-index-engine/internal/engine"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &PostgresStore{db: db}, mock
}

func TestPostgresSaveRun(t *testing.T) {
	store, mock := newMockStore(t)

	result := &engine.Result{
		RunID: "run-1",
		Index: domain.IndexM3,
		Patients: []engine.PatientResult{
			{
				Patient:    domain.PatientKey("p1"),
				Indicators: map[domain.CategoryID]uint8{"myocardial_infarction": 1},
				Score:      0.44,
				Band:       domain.BandMild,
				Scored:     true,
			},
			{
				Patient: domain.PatientKey("p2"),
				Band:    domain.BandUndefined,
			},
		},
		MalformedCodes: 3,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO runs").
		WithArgs("run-1", "m3", "", 2, int64(3), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectPrepare("INSERT INTO score_results")
	mock.ExpectExec("INSERT INTO score_results").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO score_results").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.SaveRun(context.Background(), result)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetRunNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, index_name").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "index_name", "cancer_site", "patients", "malformed", "created_at"}))

	_, err := store.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgresGetResults(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"patient", "score", "band", "indicators"}).
		AddRow("p1", 0.44, 1, []byte(`{"myocardial_infarction":1}`)).
		AddRow("p2", nil, nil, nil)
	mock.ExpectQuery("SELECT patient, score, band, indicators").
		WithArgs("run-1").
		WillReturnRows(rows)

	results, err := store.GetResults(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].Scored)
	assert.InDelta(t, 0.44, results[0].Score, 1e-9)
	assert.Equal(t, domain.BandMild, results[0].Band)
	assert.Equal(t, uint8(1), results[0].Indicators["myocardial_infarction"])

	assert.False(t, results[1].Scored)
	assert.Equal(t, domain.BandUndefined, results[1].Band)
	assert.Nil(t, results[1].Indicators)
}

func TestPostgresListRuns(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "index_name", "cancer_site", "patients", "malformed", "created_at"}).
		AddRow("run-2", "c3", "COLON", 10, int64(0), now).
		AddRow("run-1", "m3", "", 5, int64(1), now)
	mock.ExpectQuery("SELECT id, index_name").
		WithArgs(50).
		WillReturnRows(rows)

	runs, err := store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, "c3", runs[0].Index)
}
