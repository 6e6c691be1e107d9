package domain

import (
	"fmt"
	"strings"
)

// CategoryID is the stable identifier of one clinical category in an index's
// classification scheme. Display labels are presentation only; all engine
// logic keys on the id.
type CategoryID string

// PreTreatment maps a category id into the disjoint pre-treatment namespace
// used by the C3 dual-pass classification.
func PreTreatment(id CategoryID) CategoryID {
	return "pretx_" + id
}

// CategoryDefinition declares one clinical category: its id, display label
// and the ordered set of literal ICD-10 code prefixes that detect it.
type CategoryDefinition struct {
	ID       CategoryID `json:"id" yaml:"id"`
	Label    string     `json:"label" yaml:"label"`
	Prefixes []string   `json:"prefixes" yaml:"prefixes"`
}

// Matches reports whether the normalized code starts with any of the
// category's prefixes. Matching is anchored at the start of the code string;
// a prefix occurring mid-string is never a match.
func (d CategoryDefinition) Matches(code string) bool {
	for _, p := range d.Prefixes {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}

// RuleTable is an ordered list of category definitions. Declaration order is
// significant: the first category whose prefix matches wins.
type RuleTable struct {
	Index      IndexVariant
	Categories []CategoryDefinition
}

// Validate checks the table's structural invariants. Duplicate category ids
// are a configuration error. Overlapping prefixes across categories are
// deliberately not rejected; first-declared-wins is the defined resolution.
func (t *RuleTable) Validate() error {
	seen := make(map[CategoryID]struct{}, len(t.Categories))
	for _, c := range t.Categories {
		if c.ID == "" {
			return NewConfigError("rule_table", t.Index.String(), fmt.Errorf("category with empty id"))
		}
		if len(c.Prefixes) == 0 {
			return NewConfigError("rule_table", string(c.ID), fmt.Errorf("category %q declares no prefixes", c.ID))
		}
		if _, dup := seen[c.ID]; dup {
			return NewConfigError("rule_table", string(c.ID), fmt.Errorf("%w: %s", ErrDuplicateCategory, c.ID))
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}

// CategoryIDs returns the declared category ids in table order.
func (t *RuleTable) CategoryIDs() []CategoryID {
	ids := make([]CategoryID, len(t.Categories))
	for i, c := range t.Categories {
		ids[i] = c.ID
	}
	return ids
}

// Lookup returns the definition for a category id.
func (t *RuleTable) Lookup(id CategoryID) (CategoryDefinition, bool) {
	for _, c := range t.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return CategoryDefinition{}, false
}

// WeightTable maps category ids to real-valued score coefficients. A
// coefficient of exactly zero is a legitimate value, used both for genuinely
// non-contributory categories and for site-suppressed ones; a category absent
// from the table is an error.
type WeightTable struct {
	Index   IndexVariant
	Weights map[CategoryID]float64
}

// Weight returns the coefficient for a category. Absence is distinguished
// from a zero coefficient and reported as ErrWeightMissing.
func (w WeightTable) Weight(id CategoryID) (float64, error) {
	v, ok := w.Weights[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrWeightMissing, id)
	}
	return v, nil
}

// Validate checks that every category declared in the rule table carries a
// coefficient.
func (w WeightTable) Validate(t *RuleTable) error {
	for _, id := range t.CategoryIDs() {
		if _, ok := w.Weights[id]; !ok {
			return NewConfigError("weight_table", string(id), fmt.Errorf("%w: %s", ErrWeightMissing, id))
		}
	}
	return nil
}

// WithSuppressed returns a copy of the table with the given categories'
// coefficients forced to zero. Ids not present in the table are ignored; the
// receiver is never mutated.
func (w WeightTable) WithSuppressed(ids ...CategoryID) WeightTable {
	out := WeightTable{Index: w.Index, Weights: make(map[CategoryID]float64, len(w.Weights))}
	for id, v := range w.Weights {
		out.Weights[id] = v
	}
	for _, id := range ids {
		if _, ok := out.Weights[id]; ok {
			out.Weights[id] = 0
		}
	}
	return out
}
