// Package engine implements the comorbidity classification and scoring
// pipeline: prefix classification, indicator aggregation, override
// resolution and weighted index scoring.
package engine

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/comorbid-index-engine/internal/domain"
	"github.com/comorbid-index-engine/pkg/icd"
)

// Administrative extracts repeat the same handful of codes millions of
// times; memoizing normalized-code lookups keeps classification linear in
// distinct codes rather than records.
const classifierCacheSize = 8192

// Classifier maps one raw diagnosis code to at most one clinical category.
// Classification is a pure function of (code, rule table); the LRU cache is
// an invisible memoization layer and is safe for concurrent use.
type Classifier struct {
	table     *domain.RuleTable
	cache     *lru.Cache[string, domain.CategoryID]
	logger    *logrus.Logger
	malformed atomic.Int64
}

// NewClassifier creates a classifier over a validated rule table.
func NewClassifier(table *domain.RuleTable, logger *logrus.Logger) (*Classifier, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	cache, err := lru.New[string, domain.CategoryID](classifierCacheSize)
	if err != nil {
		return nil, err
	}
	return &Classifier{table: table, cache: cache, logger: logger}, nil
}

// Table returns the rule table the classifier matches against.
func (c *Classifier) Table() *domain.RuleTable {
	return c.table
}

// Classify returns the single matching category for a raw code, or false for
// no match. Categories are evaluated in declared table order and the first
// category with a matching prefix wins. Malformed codes are counted, logged
// at debug level and treated as non-matches; they never abort a run.
func (c *Classifier) Classify(raw string) (domain.CategoryID, bool) {
	code, err := icd.Normalize(raw)
	if err != nil {
		c.malformed.Add(1)
		c.logger.WithField("code", raw).Debug("Skipping malformed diagnosis code")
		return "", false
	}

	if cat, ok := c.cache.Get(code); ok {
		return cat, cat != ""
	}

	var match domain.CategoryID
	for _, def := range c.table.Categories {
		if def.Matches(code) {
			match = def.ID
			break
		}
	}

	// Negative results are cached as the empty id.
	c.cache.Add(code, match)
	return match, match != ""
}

// MalformedCount reports how many records were excluded as malformed codes.
func (c *Classifier) MalformedCount() int64 {
	return c.malformed.Load()
}
