package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/comorbid-index-engine/internal/domain"
)

// ScoreResult is one patient's computed index score and ordinal band.
type ScoreResult struct {
	Patient domain.PatientKey `json:"patient"`
	Score   float64           `json:"score"`
	Band    domain.ScoreBand  `json:"band"`
}

// Scorer computes the weighted linear index score over a post-override
// indicator matrix. Site-specific zero overrides are already baked into the
// weight table it is constructed with.
type Scorer struct {
	weights domain.WeightTable
	logger  *logrus.Logger
}

// NewScorer creates a scorer over a weight table.
func NewScorer(weights domain.WeightTable, logger *logrus.Logger) *Scorer {
	return &Scorer{weights: weights, logger: logger}
}

// ScoreMatrix scores every patient row: score = sum of indicator * weight
// over all declared categories, then the fixed ordinal banding. A category
// present in the matrix but absent from the weight table is a configuration
// error and fails the run; a zero coefficient is a legitimate value and
// contributes nothing.
func (s *Scorer) ScoreMatrix(matrix *domain.IndicatorMatrix) ([]ScoreResult, error) {
	categories := matrix.Categories()

	// Resolve every column weight up front so a broken weight table fails
	// before any patient is scored.
	weights := make([]float64, len(categories))
	for i, c := range categories {
		w, err := s.weights.Weight(c)
		if err != nil {
			return nil, domain.NewConfigError("weight_table", string(c), err)
		}
		weights[i] = w
	}

	patients := matrix.Patients()
	results := make([]ScoreResult, 0, len(patients))
	for _, p := range patients {
		results = append(results, s.scorePatient(matrix, p, categories, weights))
	}

	s.logger.WithFields(logrus.Fields{
		"patients":   len(results),
		"categories": len(categories),
	}).Debug("Scored indicator matrix")

	return results, nil
}

// ScorePatient computes a single patient's result. Patients absent from the
// matrix get an undefined band, never a coerced zero.
func (s *Scorer) ScorePatient(matrix *domain.IndicatorMatrix, p domain.PatientKey) (ScoreResult, error) {
	if !matrix.Has(p) {
		return ScoreResult{Patient: p, Band: domain.BandUndefined}, nil
	}
	categories := matrix.Categories()
	weights := make([]float64, len(categories))
	for i, c := range categories {
		w, err := s.weights.Weight(c)
		if err != nil {
			return ScoreResult{}, domain.NewConfigError("weight_table", string(c), err)
		}
		weights[i] = w
	}
	return s.scorePatient(matrix, p, categories, weights), nil
}

func (s *Scorer) scorePatient(matrix *domain.IndicatorMatrix, p domain.PatientKey, categories []domain.CategoryID, weights []float64) ScoreResult {
	score := 0.0
	for i, c := range categories {
		if matrix.Get(p, c) == 1 {
			score += weights[i]
		}
	}
	return ScoreResult{Patient: p, Score: score, Band: domain.BandForScore(score)}
}
