package ruleset

import "github.com/comorbid-index-engine/internal/domain"

// C3 returns the built-in cancer-cohort ruleset for a primary site.
//
// C3 classifies in two windows with disjoint category namespaces. Chronic
// conditions unlikely to be sequelae of the primary cancer live in the
// all-time namespace. Conditions that can be direct sequelae (anemia,
// coagulopathy, GI and hepatic disorders, renal and urinary disease) plus
// other malignancies are only counted from the pre-treatment window, under
// pretx_ ids, so post-registration coding of the cancer's own effects never
// inflates the comorbidity burden.
func C3(site domain.CancerSite) (Ruleset, error) {
	codes, err := DeriveSiteCodes(site)
	if err != nil {
		return Ruleset{}, err
	}

	allTime := []domain.CategoryDefinition{
		{ID: CatCongestiveHeartFailure, Label: "Congestive heart failure", Prefixes: []string{"I50"}},
		{ID: CatPeripheralVascular, Label: "Peripheral vascular disease", Prefixes: []string{"I70", "I71", "I731", "I738", "I739", "I771"}},
		{ID: CatCerebrovascular, Label: "Cerebrovascular disease", Prefixes: []string{"G45", "I60", "I61", "I62", "I63", "I64"}},
		{ID: CatDementia, Label: "Dementia", Prefixes: []string{"F00", "F01", "F02", "F03", "G30"}},
		{ID: CatChronicPulmonary, Label: "Chronic pulmonary disease", Prefixes: []string{"J40", "J41", "J42", "J43", "J44", "J47"}},
		{ID: CatConnectiveTissue, Label: "Connective tissue disease", Prefixes: []string{"M05", "M06", "M32", "M33", "M34"}},
		{ID: CatDepression, Label: "Depression", Prefixes: []string{"F32", "F33"}},
		{ID: CatAnxiety, Label: "Anxiety disorder", Prefixes: []string{"F40", "F41"}},

		{ID: CatDiabetesComplicated, Label: "Diabetes with complications", Prefixes: []string{
			"E102", "E103", "E104", "E105", "E107",
			"E112", "E113", "E114", "E115", "E117",
			"E132", "E133", "E134", "E135",
			"E142", "E143", "E144", "E145",
		}},
		{ID: CatDiabetesUncomplicated, Label: "Diabetes uncomplicated", Prefixes: []string{"E10", "E11", "E13", "E14"}},
		{ID: CatDiabetesComplication, Label: "Diabetes complication detector", Prefixes: []string{"I201", "H360", "N083"}},

		{ID: CatHypertensionUncomplicated, Label: "Hypertension uncomplicated", Prefixes: []string{"I10"}},
		{ID: CatHypertensionExclusion, Label: "Hypertension exclusion detector", Prefixes: []string{"I11", "I12", "I13"}},
		{ID: CatOsteoporosisUncomplicated, Label: "Osteoporosis", Prefixes: []string{"M81"}},
		{ID: CatOsteoporosisExclusion, Label: "Osteoporosis exclusion detector", Prefixes: []string{"M80"}},

		{ID: CatMetastaticCancer, Label: "Metastatic cancer", Prefixes: []string{"C77", "C78", "C79"}},
	}

	preTreatment := []domain.CategoryDefinition{
		{ID: domain.PreTreatment(CatMyocardialInfarction), Label: "Myocardial infarction (pre-treatment)", Prefixes: []string{"I21", "I22", "I23"}},
		{ID: domain.PreTreatment(CatUpperGastrointestinal), Label: "Upper gastrointestinal disorder (pre-treatment)", Prefixes: []string{"K25", "K26", "K27", "K28"}},
		{ID: domain.PreTreatment(CatLiverDisease), Label: "Liver disease (pre-treatment)", Prefixes: []string{"K70", "K72", "K73", "K74", "K766"}},
		{ID: domain.PreTreatment(CatIntestinalDisorder), Label: "Intestinal disorder (pre-treatment)", Prefixes: []string{"K55", "K57", "K58", "K59"}},
		{ID: domain.PreTreatment(CatRenalDisease), Label: "Chronic renal disease (pre-treatment)", Prefixes: []string{"N18", "N19", "N250"}},
		{ID: domain.PreTreatment(CatUrinaryTract), Label: "Urinary tract disorder (pre-treatment)", Prefixes: []string{"N30", "N31", "N32", "N35", "N39"}},
		{ID: domain.PreTreatment(CatAnemia), Label: "Anemia (pre-treatment)", Prefixes: []string{"D50", "D51", "D52", "D53", "D63", "D64"}},
		{ID: domain.PreTreatment(CatCoagulopathy), Label: "Coagulopathy (pre-treatment)", Prefixes: []string{"D65", "D66", "D67", "D68", "D69"}},

		// Site-derived: every malignancy prefix except the cohort's own
		// primary site.
		{ID: domain.PreTreatment(CatOtherMalignancy), Label: "Other malignancy (pre-treatment)", Prefixes: codes.Other},
	}

	weights := domain.WeightTable{
		Index: domain.IndexC3,
		Weights: map[domain.CategoryID]float64{
			CatCongestiveHeartFailure:    1.13,
			CatPeripheralVascular:        0.78,
			CatCerebrovascular:           0.60,
			CatDementia:                  1.35,
			CatChronicPulmonary:          0.75,
			CatConnectiveTissue:          0.44,
			CatDepression:                0.29,
			CatAnxiety:                   0.12,
			CatDiabetesComplicated:       0.88,
			CatDiabetesUncomplicated:     0.39,
			CatDiabetesComplication:      0,
			CatHypertensionUncomplicated: 0.25,
			CatHypertensionExclusion:     0,
			CatOsteoporosisUncomplicated: 0.17,
			CatOsteoporosisExclusion:     0,
			CatMetastaticCancer:          1.97,

			domain.PreTreatment(CatMyocardialInfarction):  0.69,
			domain.PreTreatment(CatUpperGastrointestinal): 0.26,
			domain.PreTreatment(CatLiverDisease):          0.95,
			domain.PreTreatment(CatIntestinalDisorder):    0.21,
			domain.PreTreatment(CatRenalDisease):          0.86,
			domain.PreTreatment(CatUrinaryTract):          0.16,
			domain.PreTreatment(CatAnemia):                0.34,
			domain.PreTreatment(CatCoagulopathy):          0.41,
			domain.PreTreatment(CatOtherMalignancy):       0.56,
		},
	}

	// Site-specific weight suppression (the C3 equivalent of indicator
	// zeroing, preserving raw indicators for inspection).
	weights = weights.WithSuppressed(SuppressedCategories(site)...)

	overrides := domain.OverrideRules{
		Merges: []domain.ComplicationMerge{
			{Uncomplicated: CatDiabetesUncomplicated, Detector: CatDiabetesComplication, Complicated: CatDiabetesComplicated},
		},
		Exclusive: []domain.ExclusivePair{
			{Keep: CatDiabetesComplicated, Clear: CatDiabetesUncomplicated},
		},
		Exclusions: []domain.ExclusionRule{
			{Detector: CatHypertensionExclusion, Target: CatHypertensionUncomplicated},
			{Detector: CatOsteoporosisExclusion, Target: CatOsteoporosisUncomplicated},
		},
		Dominance: []domain.DominanceRule{
			{Dominant: CatMetastaticCancer, Subordinates: []domain.CategoryID{domain.PreTreatment(CatOtherMalignancy)}},
		},
		MetastaticCategory: CatMetastaticCancer,
	}

	return Ruleset{
		Table:     &domain.RuleTable{Index: domain.IndexC3, Categories: allTime},
		PreTable:  &domain.RuleTable{Index: domain.IndexC3, Categories: preTreatment},
		Weights:   weights,
		Overrides: overrides,
	}, nil
}
