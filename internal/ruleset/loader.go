package ruleset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/comorbid-index-engine/internal/domain"
)

// tableFile is the on-disk YAML shape of an externally supplied rule and
// weight table. The full clinical code lists are data, maintained outside
// the binary; this loader is how they enter a run.
type tableFile struct {
	Index      string                       `yaml:"index"`
	Categories []domain.CategoryDefinition  `yaml:"categories"`
	Weights    map[domain.CategoryID]float64 `yaml:"weights"`
	Overrides  domain.OverrideRules          `yaml:"overrides"`
}

// LoadTable reads a rule table, weight table and override configuration from
// a YAML file, validating the structural invariants before anything else can
// consume them. Any failure here is a configuration error and fails the run.
func LoadTable(path string) (Ruleset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Ruleset{}, domain.NewConfigError("table_file", path, err)
	}

	var f tableFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Ruleset{}, domain.NewConfigError("table_file", path, fmt.Errorf("parsing YAML: %w", err))
	}

	index := domain.IndexVariant(f.Index)
	if !index.IsValid() {
		return Ruleset{}, domain.NewConfigError("index", f.Index, domain.ErrUnknownIndex)
	}

	table := &domain.RuleTable{Index: index, Categories: f.Categories}
	if err := table.Validate(); err != nil {
		return Ruleset{}, err
	}

	weights := domain.WeightTable{Index: index, Weights: f.Weights}
	if err := weights.Validate(table); err != nil {
		return Ruleset{}, err
	}

	return Ruleset{Table: table, Weights: weights, Overrides: f.Overrides}, nil
}
