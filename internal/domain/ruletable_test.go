package domain

import (
	"errors"
	"testing"
)

func validTable() *RuleTable {
	return &RuleTable{
		Index: IndexM3,
		Categories: []CategoryDefinition{
			{ID: "first", Prefixes: []string{"A01", "A02"}},
			{ID: "second", Prefixes: []string{"A0"}},
		},
	}
}

func TestRuleTableValidate(t *testing.T) {
	if err := validTable().Validate(); err != nil {
		t.Fatalf("valid table rejected: %v", err)
	}

	tests := []struct {
		name  string
		table *RuleTable
	}{
		{"empty id", &RuleTable{Index: IndexM3, Categories: []CategoryDefinition{
			{ID: "", Prefixes: []string{"A01"}},
		}}},
		{"no prefixes", &RuleTable{Index: IndexM3, Categories: []CategoryDefinition{
			{ID: "x", Prefixes: nil},
		}}},
		{"duplicate id", &RuleTable{Index: IndexM3, Categories: []CategoryDefinition{
			{ID: "x", Prefixes: []string{"A01"}},
			{ID: "x", Prefixes: []string{"B01"}},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Errorf("expected ConfigError, got %T", err)
			}
		})
	}
}

// Overlapping prefixes across categories are allowed; resolution is by
// declaration order at classification time.
func TestRuleTableAllowsOverlap(t *testing.T) {
	if err := validTable().Validate(); err != nil {
		t.Fatalf("overlapping prefixes rejected: %v", err)
	}
}

func TestCategoryMatchesAnchored(t *testing.T) {
	def := CategoryDefinition{ID: "mi", Prefixes: []string{"I21", "I22"}}

	tests := []struct {
		code string
		want bool
	}{
		{"I21", true},
		{"I219", true},
		{"I2199", true},
		{"I23", false},
		{"XI21", false}, // prefix mid-string is not a match
		{"", false},
	}

	for _, tt := range tests {
		if got := def.Matches(tt.code); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestWeightTableWeight(t *testing.T) {
	w := WeightTable{Index: IndexM3, Weights: map[CategoryID]float64{
		"weighted": 0.5,
		"zero":     0,
	}}

	if v, err := w.Weight("weighted"); err != nil || v != 0.5 {
		t.Errorf("Weight(weighted) = %v, %v", v, err)
	}

	// A zero coefficient is a real value, not an absence.
	if v, err := w.Weight("zero"); err != nil || v != 0 {
		t.Errorf("Weight(zero) = %v, %v", v, err)
	}

	if _, err := w.Weight("missing"); !errors.Is(err, ErrWeightMissing) {
		t.Errorf("Weight(missing) = %v, want ErrWeightMissing", err)
	}
}

func TestWeightTableValidate(t *testing.T) {
	table := validTable()

	complete := WeightTable{Index: IndexM3, Weights: map[CategoryID]float64{
		"first": 0.5, "second": 0,
	}}
	if err := complete.Validate(table); err != nil {
		t.Fatalf("complete weight table rejected: %v", err)
	}

	incomplete := WeightTable{Index: IndexM3, Weights: map[CategoryID]float64{
		"first": 0.5,
	}}
	err := incomplete.Validate(table)
	if !errors.Is(err, ErrWeightMissing) {
		t.Errorf("Validate() = %v, want ErrWeightMissing", err)
	}
}

func TestWithSuppressed(t *testing.T) {
	w := WeightTable{Index: IndexC3, Weights: map[CategoryID]float64{
		"a": 0.5, "b": 0.75,
	}}

	suppressed := w.WithSuppressed("a", "not-present")

	if v, _ := suppressed.Weight("a"); v != 0 {
		t.Errorf("suppressed weight = %v, want 0", v)
	}
	if v, _ := suppressed.Weight("b"); v != 0.75 {
		t.Errorf("untouched weight = %v, want 0.75", v)
	}
	// The receiver is never mutated.
	if v, _ := w.Weight("a"); v != 0.5 {
		t.Errorf("original mutated: weight = %v, want 0.5", v)
	}
	// Suppressing an absent id adds nothing.
	if _, err := suppressed.Weight("not-present"); !errors.Is(err, ErrWeightMissing) {
		t.Error("suppression must not introduce new weight entries")
	}
}

func TestPreTreatmentNamespace(t *testing.T) {
	if got := PreTreatment("anemia"); got != "pretx_anemia" {
		t.Errorf("PreTreatment(anemia) = %q", got)
	}
}
