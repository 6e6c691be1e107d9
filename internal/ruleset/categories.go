// Package ruleset holds the built-in rule tables, weight tables and override
// configuration for the supported comorbidity indices, plus the site-specific
// malignancy code derivation. The built-in tables carry the category
// structure and a compact representative prefix set; full clinical code lists
// are external configuration loaded through LoadTable.
package ruleset

import "github.com/comorbid-index-engine/internal/domain"

// Well-known category ids referenced by override rules and site suppression.
// Ids are stable identifiers; labels are presentation only.
const (
	CatMyocardialInfarction   domain.CategoryID = "myocardial_infarction"
	CatCongestiveHeartFailure domain.CategoryID = "congestive_heart_failure"
	CatPeripheralVascular     domain.CategoryID = "peripheral_vascular"
	CatCerebrovascular        domain.CategoryID = "cerebrovascular"
	CatDementia               domain.CategoryID = "dementia"
	CatChronicPulmonary       domain.CategoryID = "chronic_pulmonary"
	CatConnectiveTissue       domain.CategoryID = "connective_tissue"
	CatUpperGastrointestinal  domain.CategoryID = "upper_gastrointestinal"
	CatLiverDisease           domain.CategoryID = "liver_disease"
	CatIntestinalDisorder     domain.CategoryID = "intestinal_disorder"
	CatRenalDisease           domain.CategoryID = "renal_disease"
	CatUrinaryTract           domain.CategoryID = "urinary_tract"
	CatAnemia                 domain.CategoryID = "anemia"
	CatCoagulopathy           domain.CategoryID = "coagulopathy"
	CatDepression             domain.CategoryID = "depression"
	CatAnxiety                domain.CategoryID = "anxiety"

	CatDiabetesUncomplicated domain.CategoryID = "diabetes_uncomplicated"
	CatDiabetesComplicated   domain.CategoryID = "diabetes_complicated"
	// Detector category: its indicator promotes diabetes to the complicated
	// variant and contributes nothing to the score itself.
	CatDiabetesComplication domain.CategoryID = "diabetes_complication"

	CatHypertensionUncomplicated domain.CategoryID = "hypertension_uncomplicated"
	CatHypertensionExclusion     domain.CategoryID = "hypertension_exclusion"
	CatOsteoporosisUncomplicated domain.CategoryID = "osteoporosis_uncomplicated"
	CatOsteoporosisExclusion     domain.CategoryID = "osteoporosis_exclusion"

	CatMetastaticCancer domain.CategoryID = "metastatic_cancer"
	CatColorectalCancer domain.CategoryID = "colorectal_cancer"
	CatLungCancer       domain.CategoryID = "lung_cancer"
	CatBreastCancer     domain.CategoryID = "breast_cancer"
	CatProstateCancer   domain.CategoryID = "prostate_cancer"
	CatBladderCancer    domain.CategoryID = "bladder_cancer"
	CatKidneyCancer     domain.CategoryID = "kidney_cancer"
	CatLiverCancer      domain.CategoryID = "liver_cancer"
	CatStomachCancer    domain.CategoryID = "stomach_cancer"
	CatOvarianCancer    domain.CategoryID = "ovarian_cancer"
	CatUterineCancer    domain.CategoryID = "uterine_cancer"
	CatHeadNeckCancer   domain.CategoryID = "headneck_cancer"
	CatOtherMalignancy  domain.CategoryID = "other_malignancy"
)

// cancerCategories lists every diagnosis-derived cancer category, the typed
// group the metastatic dominance cascade iterates over.
var cancerCategories = []domain.CategoryID{
	CatColorectalCancer, CatLungCancer, CatBreastCancer, CatProstateCancer,
	CatBladderCancer, CatKidneyCancer, CatLiverCancer, CatStomachCancer,
	CatOvarianCancer, CatUterineCancer, CatHeadNeckCancer, CatOtherMalignancy,
}

// registrySiteCategories maps registry tumour sites onto the cancer category
// their records are OR-ed into during the cross-source merge.
var registrySiteCategories = map[domain.CancerSite]domain.CategoryID{
	domain.SiteBladder:  CatBladderCancer,
	domain.SiteBreast:   CatBreastCancer,
	domain.SiteColon:    CatColorectalCancer,
	domain.SiteKidney:   CatKidneyCancer,
	domain.SiteLiver:    CatLiverCancer,
	domain.SiteOvarian:  CatOvarianCancer,
	domain.SiteUterine:  CatUterineCancer,
	domain.SiteRectal:   CatColorectalCancer,
	domain.SiteStomach:  CatStomachCancer,
	domain.SiteLung:     CatLungCancer,
	domain.SiteProstate: CatProstateCancer,
	domain.SiteHeadNeck: CatHeadNeckCancer,
}
