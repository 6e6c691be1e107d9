package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/comorbid-index-engine/internal/domain"
)

// DualPassAggregate runs classification independently over the full lookback
// window and the pre-treatment window, then unions the two matrices on
// patient key. The two tables declare disjoint category namespaces, so the
// union is a column-wise concatenation after key alignment; a patient with
// no qualifying records in one window is all-zero for that window's
// categories, not dropped.
//
// The boundary of the pre-treatment window (inclusive or exclusive at the
// cutoff instant) is the caller's partitioning contract; the engine never
// inspects dates.
func DualPassAggregate(
	allTime, preTreatment []domain.CodeRecord,
	allTable, preTable *domain.RuleTable,
	logger *logrus.Logger,
) (*domain.IndicatorMatrix, int64, error) {
	allClassifier, err := NewClassifier(allTable, logger)
	if err != nil {
		return nil, 0, err
	}
	preClassifier, err := NewClassifier(preTable, logger)
	if err != nil {
		return nil, 0, err
	}

	allMatrix := NewAggregator(allClassifier, logger).Aggregate(allTime)
	preMatrix := NewAggregator(preClassifier, logger).Aggregate(preTreatment)

	union, err := domain.UnionMatrices(allMatrix, preMatrix)
	if err != nil {
		return nil, 0, err
	}

	malformed := allClassifier.MalformedCount() + preClassifier.MalformedCount()
	return union, malformed, nil
}
