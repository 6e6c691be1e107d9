package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/comorbid-index-engine/internal/domain"
)

// Aggregator runs the classifier over a patient population's long-format
// records and builds the dense indicator matrix.
type Aggregator struct {
	classifier *Classifier
	logger     *logrus.Logger
}

// NewAggregator creates an aggregator over a classifier.
func NewAggregator(classifier *Classifier, logger *logrus.Logger) *Aggregator {
	return &Aggregator{classifier: classifier, logger: logger}
}

// Aggregate classifies every record and returns the dense matrix: every
// patient observed in the input gets a defined 0/1 entry for every declared
// category. Duplicate (patient, category) matches collapse to a single
// binary indicator. Patients whose records all fail to match still appear
// with an all-zero row; empty codes are reshape placeholders and only mark
// the patient as observed.
func (a *Aggregator) Aggregate(records []domain.CodeRecord) *domain.IndicatorMatrix {
	matrix := domain.NewIndicatorMatrix(a.classifier.Table().CategoryIDs())

	matched := 0
	for _, r := range records {
		matrix.AddPatient(r.Patient)
		if r.Code == "" {
			continue
		}
		if cat, ok := a.classifier.Classify(r.Code); ok {
			// The category set comes from the classifier's own table, so
			// Set cannot fail here.
			_ = matrix.Set(r.Patient, cat, 1)
			matched++
		}
	}

	a.logger.WithFields(logrus.Fields{
		"records":  len(records),
		"matched":  matched,
		"patients": matrix.Len(),
	}).Debug("Aggregated indicator matrix")

	return matrix
}
