package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/comorbid-index-engine/internal/domain"
)

// Resolver applies the override rule families to an indicator matrix in
// their fixed order. Later families read the output of earlier ones, so the
// sequence is load-bearing:
//
//  1. complication merges
//  2. mutual-exclusion cleanup
//  3. exclusion suppression
//  4. cross-source registry merge (before dominance, which may override it)
//  5. metastatic dominance cascade
//
// Site-specific suppression is not an indicator adjustment; it is applied to
// the weight table before scoring.
type Resolver struct {
	rules  domain.OverrideRules
	logger *logrus.Logger
}

// NewResolver creates a resolver for one index variant's override rules.
func NewResolver(rules domain.OverrideRules, logger *logrus.Logger) *Resolver {
	return &Resolver{rules: rules, logger: logger}
}

// Resolve mutates the matrix in place. Registry records are the optional
// cross-source cancer input; they are OR-ed into the diagnosis-derived
// indicators and the registry is authoritative for its own metastatic flag.
func (r *Resolver) Resolve(matrix *domain.IndicatorMatrix, registry []domain.RegistryRecord) {
	for _, p := range matrix.Patients() {
		r.applyMerges(matrix, p)
		r.applyExclusive(matrix, p)
		r.applyExclusions(matrix, p)
	}

	r.mergeRegistry(matrix, registry)

	// Dominance runs last: a metastatic record subsumes every site-specific
	// cancer indicator, including ones just merged from the registry.
	for _, p := range matrix.Patients() {
		r.applyDominance(matrix, p)
	}
}

func (r *Resolver) applyMerges(m *domain.IndicatorMatrix, p domain.PatientKey) {
	for _, rule := range r.rules.Merges {
		if m.Get(p, rule.Uncomplicated) == 1 && m.Get(p, rule.Detector) == 1 {
			_ = m.Set(p, rule.Complicated, 1)
			_ = m.Set(p, rule.Uncomplicated, 0)
		}
	}
}

func (r *Resolver) applyExclusive(m *domain.IndicatorMatrix, p domain.PatientKey) {
	for _, rule := range r.rules.Exclusive {
		if m.Get(p, rule.Keep) == 1 && m.Get(p, rule.Clear) == 1 {
			_ = m.Set(p, rule.Clear, 0)
		}
	}
}

func (r *Resolver) applyExclusions(m *domain.IndicatorMatrix, p domain.PatientKey) {
	for _, rule := range r.rules.Exclusions {
		if m.Get(p, rule.Detector) == 1 {
			_ = m.Set(p, rule.Target, 0)
		}
	}
}

func (r *Resolver) applyDominance(m *domain.IndicatorMatrix, p domain.PatientKey) {
	for _, rule := range r.rules.Dominance {
		if m.Get(p, rule.Dominant) != 1 {
			continue
		}
		for _, sub := range rule.Subordinates {
			_ = m.Set(p, sub, 0)
		}
	}
}

// mergeRegistry ORs registry tumour records into the cancer indicators.
// Patients known only to the registry are added to the matrix rather than
// dropped.
func (r *Resolver) mergeRegistry(m *domain.IndicatorMatrix, registry []domain.RegistryRecord) {
	if len(registry) == 0 || r.rules.RegistrySiteCategories == nil {
		return
	}

	merged := 0
	for _, rec := range registry {
		cat, known := r.rules.RegistrySiteCategories[rec.Site]
		if !known {
			r.logger.WithFields(logrus.Fields{
				"site": rec.Site.String(),
			}).Warn("Registry record with unmapped tumour site skipped")
			continue
		}
		m.AddPatient(rec.Patient)
		_ = m.Set(rec.Patient, cat, 1)
		if rec.Metastatic && r.rules.MetastaticCategory != "" {
			_ = m.Set(rec.Patient, r.rules.MetastaticCategory, 1)
		}
		merged++
	}

	if merged > 0 {
		r.logger.WithField("records", merged).Debug("Merged cancer registry records")
	}
}
