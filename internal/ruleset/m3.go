package ruleset

import "github.com/comorbid-index-engine/internal/domain"

// Ruleset bundles everything one index run consumes: the rule table (and,
// for C3, the disjoint pre-treatment table), the weight table and the
// override configuration. Rulesets are built fresh per run and never shared
// mutable state.
type Ruleset struct {
	Table     *domain.RuleTable
	PreTable  *domain.RuleTable // nil except for C3
	Weights   domain.WeightTable
	Overrides domain.OverrideRules
}

// M3 returns the built-in M3 multimorbidity ruleset. Table order is
// significant: the classifier resolves overlapping prefixes by first
// declared category.
func M3() Ruleset {
	categories := []domain.CategoryDefinition{
		{ID: CatMyocardialInfarction, Label: "Myocardial infarction", Prefixes: []string{"I21", "I22", "I23"}},
		{ID: CatCongestiveHeartFailure, Label: "Congestive heart failure", Prefixes: []string{"I50"}},
		{ID: CatPeripheralVascular, Label: "Peripheral vascular disease", Prefixes: []string{"I70", "I71", "I731", "I738", "I739", "I771"}},
		{ID: CatCerebrovascular, Label: "Cerebrovascular disease", Prefixes: []string{"G45", "I60", "I61", "I62", "I63", "I64"}},
		{ID: CatDementia, Label: "Dementia", Prefixes: []string{"F00", "F01", "F02", "F03", "G30"}},
		{ID: CatChronicPulmonary, Label: "Chronic pulmonary disease", Prefixes: []string{"J40", "J41", "J42", "J43", "J44", "J47"}},
		{ID: CatConnectiveTissue, Label: "Connective tissue disease", Prefixes: []string{"M05", "M06", "M32", "M33", "M34"}},
		{ID: CatUpperGastrointestinal, Label: "Upper gastrointestinal disorder", Prefixes: []string{"K25", "K26", "K27", "K28"}},
		{ID: CatLiverDisease, Label: "Liver disease", Prefixes: []string{"K70", "K72", "K73", "K74", "K766"}},
		{ID: CatIntestinalDisorder, Label: "Intestinal disorder", Prefixes: []string{"K55", "K57", "K58", "K59"}},
		{ID: CatRenalDisease, Label: "Chronic renal disease", Prefixes: []string{"N18", "N19", "N250"}},
		{ID: CatUrinaryTract, Label: "Urinary tract disorder", Prefixes: []string{"N30", "N31", "N32", "N35", "N39"}},
		{ID: CatAnemia, Label: "Anemia", Prefixes: []string{"D50", "D51", "D52", "D53", "D63", "D64"}},
		{ID: CatCoagulopathy, Label: "Coagulopathy", Prefixes: []string{"D65", "D66", "D67", "D68", "D69"}},
		{ID: CatDepression, Label: "Depression", Prefixes: []string{"F32", "F33"}},
		{ID: CatAnxiety, Label: "Anxiety disorder", Prefixes: []string{"F40", "F41"}},

		// Complicated diabetes must be declared before uncomplicated so that
		// organ-damage fourth characters resolve to the complicated variant.
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
		{ID: CatColorectalCancer, Label: "Colorectal cancer", Prefixes: []string{"C18", "C19", "C20", "C21"}},
		{ID: CatLungCancer, Label: "Lung cancer", Prefixes: []string{"C34"}},
		{ID: CatBreastCancer, Label: "Breast cancer", Prefixes: []string{"C50"}},
		{ID: CatProstateCancer, Label: "Prostate cancer", Prefixes: []string{"C61"}},
		{ID: CatBladderCancer, Label: "Bladder cancer", Prefixes: []string{"C67"}},
		{ID: CatKidneyCancer, Label: "Kidney cancer", Prefixes: []string{"C64"}},
		{ID: CatLiverCancer, Label: "Liver cancer", Prefixes: []string{"C22"}},
		{ID: CatStomachCancer, Label: "Stomach cancer", Prefixes: []string{"C16"}},
		{ID: CatOvarianCancer, Label: "Ovarian cancer", Prefixes: []string{"C56"}},
		{ID: CatUterineCancer, Label: "Uterine cancer", Prefixes: []string{"C54", "C55"}},
		{ID: CatHeadNeckCancer, Label: "Head and neck cancer", Prefixes: primarySitePrefixes[domain.SiteHeadNeck]},
	}

	// Everything malignant not claimed by a site category above.
	categories = append(categories, domain.CategoryDefinition{
		ID:       CatOtherMalignancy,
		Label:    "Other malignancy",
		Prefixes: remainingMalignancyPrefixes(categories),
	})

	weights := domain.WeightTable{
		Index: domain.IndexM3,
		Weights: map[domain.CategoryID]float64{
			CatMyocardialInfarction:   0.44,
			CatCongestiveHeartFailure: 0.63,
			CatPeripheralVascular:     0.30,
			CatCerebrovascular:        0.35,
			CatDementia:               1.08,
			CatChronicPulmonary:       0.48,
			CatConnectiveTissue:       0.28,
			CatUpperGastrointestinal:  0.20,
			CatLiverDisease:           0.55,
			CatIntestinalDisorder:     0.13,
			CatRenalDisease:           0.52,
			CatUrinaryTract:           0.12,
			CatAnemia:                 0.18,
			CatCoagulopathy:           0.29,
			CatDepression:             0.23,
			CatAnxiety:                0.10,

			CatDiabetesComplicated:   0.75,
			CatDiabetesUncomplicated: 0.31,
			// Detector categories steer overrides and contribute nothing.
			CatDiabetesComplication:      0,
			CatHypertensionUncomplicated: 0.19,
			CatHypertensionExclusion:     0,
			CatOsteoporosisUncomplicated: 0.11,
			CatOsteoporosisExclusion:     0,

			CatMetastaticCancer: 1.53,
			CatColorectalCancer: 0.85,
			CatLungCancer:       1.20,
			CatBreastCancer:     0.60,
			CatProstateCancer:   0.45,
			CatBladderCancer:    0.52,
			CatKidneyCancer:     0.58,
			CatLiverCancer:      1.10,
			CatStomachCancer:    1.00,
			CatOvarianCancer:    0.90,
			CatUterineCancer:    0.50,
			CatHeadNeckCancer:   0.70,
			CatOtherMalignancy:  0.70,
		},
	}

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
			{Dominant: CatMetastaticCancer, Subordinates: cancerCategories},
		},
		RegistrySiteCategories: registrySiteCategories,
		MetastaticCategory:     CatMetastaticCancer,
	}

	return Ruleset{
		Table:     &domain.RuleTable{Index: domain.IndexM3, Categories: categories},
		Weights:   weights,
		Overrides: overrides,
	}
}

// remainingMalignancyPrefixes computes the master malignancy set minus every
// prefix already claimed by a declared category, by exact prefix string.
func remainingMalignancyPrefixes(categories []domain.CategoryDefinition) []string {
	claimed := make(map[string]struct{})
	for _, c := range categories {
		for _, p := range c.Prefixes {
			claimed[p] = struct{}{}
		}
	}
	master := MasterMalignancyPrefixes()
	out := make([]string, 0, len(master))
	for _, p := range master {
		if _, taken := claimed[p]; taken {
			continue
		}
		out = append(out, p)
	}
	return out
}
