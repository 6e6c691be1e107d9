package domain

// Override rule configuration. The rule families are data: each index
// variant declares which categories participate in which adjustments, and
// the resolver applies the families in a fixed order because later families
// read the output of earlier ones.

// ComplicationMerge promotes an uncomplicated condition to its complicated
// variant when a separate complication-detector category is also set.
type ComplicationMerge struct {
	Uncomplicated CategoryID `yaml:"uncomplicated"`
	Detector      CategoryID `yaml:"detector"`
	Complicated   CategoryID `yaml:"complicated"`
}

// ExclusivePair clears the losing category whenever both variants of a
// condition end up set from independently coded records.
type ExclusivePair struct {
	Keep  CategoryID `yaml:"keep"`
	Clear CategoryID `yaml:"clear"`
}

// ExclusionRule forces a target category to zero whenever an
// exclusion-detector category is set, regardless of the target's own direct
// evidence.
type ExclusionRule struct {
	Detector CategoryID `yaml:"detector"`
	Target   CategoryID `yaml:"target"`
}

// DominanceRule clears every subordinate category when the dominant one is
// set. Used for metastatic cancer subsuming all site-specific cancers.
type DominanceRule struct {
	Dominant     CategoryID   `yaml:"dominant"`
	Subordinates []CategoryID `yaml:"subordinates"`
}

// OverrideRules bundles the adjustment configuration for one index variant.
type OverrideRules struct {
	Merges     []ComplicationMerge `yaml:"merges"`
	Exclusive  []ExclusivePair     `yaml:"exclusive"`
	Exclusions []ExclusionRule     `yaml:"exclusions"`
	Dominance  []DominanceRule     `yaml:"dominance"`

	// RegistrySiteCategories maps each registry tumour site onto the
	// diagnosis-derived cancer category it is OR-ed into (M3 cross-source
	// merge). Nil for indices without a registry source.
	RegistrySiteCategories map[CancerSite]CategoryID `yaml:"registry_site_categories"`

	// MetastaticCategory receives the registry's metastatic-extent flag,
	// which is authoritative over diagnosis-derived evidence.
	MetastaticCategory CategoryID `yaml:"metastatic_category"`
}
