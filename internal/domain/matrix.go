package domain

import (
	"fmt"
	"sort"
)

// IndicatorMatrix is the dense per-patient category indicator table. For
// every patient added and every declared category there is always a defined
// 0/1 entry; missing-is-zero is guaranteed by construction.
type IndicatorMatrix struct {
	categories []CategoryID
	index      map[CategoryID]int
	rows       map[PatientKey][]uint8
}

// NewIndicatorMatrix creates an empty matrix over the given category columns.
// Column order is preserved for output.
func NewIndicatorMatrix(categories []CategoryID) *IndicatorMatrix {
	index := make(map[CategoryID]int, len(categories))
	cols := make([]CategoryID, len(categories))
	copy(cols, categories)
	for i, c := range cols {
		index[c] = i
	}
	return &IndicatorMatrix{
		categories: cols,
		index:      index,
		rows:       make(map[PatientKey][]uint8),
	}
}

// AddPatient ensures a zero-filled row exists for the patient. Patients with
// no matching codes still appear in the output with every category at 0.
func (m *IndicatorMatrix) AddPatient(p PatientKey) {
	if _, ok := m.rows[p]; !ok {
		m.rows[p] = make([]uint8, len(m.categories))
	}
}

// Set writes a 0/1 indicator for a known category, creating the patient row
// if necessary. Unknown categories are reported, never silently widened.
func (m *IndicatorMatrix) Set(p PatientKey, c CategoryID, v uint8) error {
	i, ok := m.index[c]
	if !ok {
		return fmt.Errorf("category %q not declared in matrix", c)
	}
	m.AddPatient(p)
	if v > 1 {
		v = 1
	}
	m.rows[p][i] = v
	return nil
}

// Get reads an indicator. Unknown patients or categories read as 0.
func (m *IndicatorMatrix) Get(p PatientKey, c CategoryID) uint8 {
	i, ok := m.index[c]
	if !ok {
		return 0
	}
	row, ok := m.rows[p]
	if !ok {
		return 0
	}
	return row[i]
}

// Has reports whether the patient is present in the matrix.
func (m *IndicatorMatrix) Has(p PatientKey) bool {
	_, ok := m.rows[p]
	return ok
}

// Categories returns the column order of the matrix.
func (m *IndicatorMatrix) Categories() []CategoryID {
	out := make([]CategoryID, len(m.categories))
	copy(out, m.categories)
	return out
}

// Patients returns all patient keys in sorted order.
func (m *IndicatorMatrix) Patients() []PatientKey {
	out := make([]PatientKey, 0, len(m.rows))
	for p := range m.rows {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of patient rows.
func (m *IndicatorMatrix) Len() int {
	return len(m.rows)
}

// Row returns the patient's indicators keyed by category id. Unknown patients
// return a complete all-zero row, preserving the dense contract.
func (m *IndicatorMatrix) Row(p PatientKey) map[CategoryID]uint8 {
	out := make(map[CategoryID]uint8, len(m.categories))
	row := m.rows[p]
	for i, c := range m.categories {
		if row == nil {
			out[c] = 0
		} else {
			out[c] = row[i]
		}
	}
	return out
}

// Merge copies every row of other into m. Both matrices must share the same
// category columns; used to concatenate per-partition results.
func (m *IndicatorMatrix) Merge(other *IndicatorMatrix) error {
	if len(m.categories) != len(other.categories) {
		return fmt.Errorf("cannot merge matrices with different column sets")
	}
	for i, c := range m.categories {
		if other.categories[i] != c {
			return fmt.Errorf("cannot merge matrices with different column sets")
		}
	}
	for p, row := range other.rows {
		dst := make([]uint8, len(row))
		copy(dst, row)
		m.rows[p] = dst
	}
	return nil
}

// UnionMatrices concatenates two matrices with disjoint category namespaces
// on patient key. A patient missing from one side gets zeros for that side's
// categories rather than being dropped. Overlapping namespaces are an error:
// the union is a column-wise concatenation, not a conflict-resolving merge.
func UnionMatrices(a, b *IndicatorMatrix) (*IndicatorMatrix, error) {
	for _, c := range b.categories {
		if _, clash := a.index[c]; clash {
			return nil, fmt.Errorf("%w: %s", ErrNamespaceOverlap, c)
		}
	}

	cols := make([]CategoryID, 0, len(a.categories)+len(b.categories))
	cols = append(cols, a.categories...)
	cols = append(cols, b.categories...)
	out := NewIndicatorMatrix(cols)

	for p, row := range a.rows {
		dst := make([]uint8, len(cols))
		copy(dst, row)
		out.rows[p] = dst
	}
	for p, row := range b.rows {
		dst, ok := out.rows[p]
		if !ok {
			dst = make([]uint8, len(cols))
			out.rows[p] = dst
		}
		copy(dst[len(a.categories):], row)
	}
	return out, nil
}
