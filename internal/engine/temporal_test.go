package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comorbid-index-engine/internal/domain"
	"github.com/comorbid-index-engine/internal/ruleset"
)

// The same clinical event lands in different namespaces depending on which
// window carries it: an infarction coded pre-treatment sets only the
// pre-treatment indicator.
func TestDualPassDisjointNamespaces(t *testing.T) {
	rs, err := ruleset.C3(domain.SiteColon)
	require.NoError(t, err)

	p := domain.NewPatientKey("p1")
	allTime := []domain.CodeRecord{
		{Patient: p, Code: "I500"}, // CHF, all-time namespace
	}
	preTreatment := []domain.CodeRecord{
		{Patient: p, Code: "I219"}, // MI, pre-treatment namespace only
	}

	m, malformed, err := DualPassAggregate(allTime, preTreatment, rs.Table, rs.PreTable, testLogger())
	require.NoError(t, err)
	assert.Equal(t, int64(0), malformed)

	assert.Equal(t, uint8(1), m.Get(p, ruleset.CatCongestiveHeartFailure))
	assert.Equal(t, uint8(1), m.Get(p, domain.PreTreatment(ruleset.CatMyocardialInfarction)))
}

// An MI code in the all-time window matches nothing there: the all-time C3
// table carries no MI category, so it cannot leak across the window boundary.
func TestDualPassWindowIsolation(t *testing.T) {
	rs, err := ruleset.C3(domain.SiteColon)
	require.NoError(t, err)

	p := domain.NewPatientKey("p1")
	allTime := []domain.CodeRecord{{Patient: p, Code: "I219"}}

	m, _, err := DualPassAggregate(allTime, nil, rs.Table, rs.PreTable, testLogger())
	require.NoError(t, err)

	assert.Equal(t, uint8(0), m.Get(p, domain.PreTreatment(ruleset.CatMyocardialInfarction)))
	for cat, v := range m.Row(p) {
		assert.Equal(t, uint8(0), v, "category %s", cat)
	}
}

// A patient present in only one window still gets a complete unioned row.
func TestDualPassUnionZeroFills(t *testing.T) {
	rs, err := ruleset.C3(domain.SiteColon)
	require.NoError(t, err)

	allOnly := domain.NewPatientKey("p1")
	preOnly := domain.NewPatientKey("p2")

	m, _, err := DualPassAggregate(
		[]domain.CodeRecord{{Patient: allOnly, Code: "I500"}},
		[]domain.CodeRecord{{Patient: preOnly, Code: "D509"}},
		rs.Table, rs.PreTable, testLogger(),
	)
	require.NoError(t, err)

	assert.Equal(t, uint8(1), m.Get(allOnly, ruleset.CatCongestiveHeartFailure))
	assert.Equal(t, uint8(0), m.Get(allOnly, domain.PreTreatment(ruleset.CatAnemia)))

	assert.Equal(t, uint8(1), m.Get(preOnly, domain.PreTreatment(ruleset.CatAnemia)))
	assert.Equal(t, uint8(0), m.Get(preOnly, ruleset.CatCongestiveHeartFailure))
}

func TestDualPassMalformedSummed(t *testing.T) {
	rs, err := ruleset.C3(domain.SiteColon)
	require.NoError(t, err)

	p := domain.NewPatientKey("p1")
	_, malformed, err := DualPassAggregate(
		[]domain.CodeRecord{{Patient: p, Code: "bogus"}},
		[]domain.CodeRecord{{Patient: p, Code: "9x9"}},
		rs.Table, rs.PreTable, testLogger(),
	)
	require.NoError(t, err)
	assert.Equal(t, int64(2), malformed)
}
