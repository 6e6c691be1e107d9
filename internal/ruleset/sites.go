package ruleset

import (
	"fmt"

	"github.com/comorbid-index-engine/internal/domain"
)

// SiteCodes carries the site-specific malignancy code prefix sets for one C3
// run: the primary-malignancy prefixes for the cohort's own cancer and the
// other-malignancy prefixes everything else falls under.
type SiteCodes struct {
	Primary []string
	Other   []string
}

// ICD-10 chapter II blocks that do not exist, plus conventional exclusions:
// C44 (non-melanoma skin) and C77-C79 (secondary/metastatic, a category of
// its own).
var skippedMalignancy = map[int]struct{}{
	27: {}, 28: {}, 29: {}, 35: {}, 36: {}, 42: {}, 44: {}, 59: {},
	77: {}, 78: {}, 79: {},
}

// MasterMalignancyPrefixes returns the full ordered set of primary-malignancy
// code prefixes (C00-C97 minus non-existent blocks and exclusions).
func MasterMalignancyPrefixes() []string {
	out := make([]string, 0, 87)
	for n := 0; n <= 97; n++ {
		if _, skip := skippedMalignancy[n]; skip {
			continue
		}
		out = append(out, fmt.Sprintf("C%02d", n))
	}
	return out
}

// primarySitePrefixes is the fixed lookup of per-site primary code prefixes.
// HEADNECK spans two disjoint prefix groups (lip/oral/pharynx and nasal
// cavity/larynx).
var primarySitePrefixes = map[domain.CancerSite][]string{
	domain.SiteBladder:  {"C67"},
	domain.SiteBreast:   {"C50"},
	domain.SiteColon:    {"C18", "C19"},
	domain.SiteKidney:   {"C64"},
	domain.SiteLiver:    {"C22"},
	domain.SiteOvarian:  {"C56"},
	domain.SiteUterine:  {"C54", "C55"},
	domain.SiteRectal:   {"C20"},
	domain.SiteStomach:  {"C16"},
	domain.SiteLung:     {"C34"},
	domain.SiteProstate: {"C61"},
	domain.SiteHeadNeck: {
		"C00", "C01", "C02", "C03", "C04", "C05", "C06", "C07",
		"C08", "C09", "C10", "C11", "C12", "C13", "C14",
		"C30", "C31", "C32",
	},
}

// DeriveSiteCodes computes the primary and other-malignancy prefix sets for a
// cancer site. The other set is the master set minus the primary set by
// exact prefix string, so unrelated codes sharing a leading digit are never
// accidentally excluded. Unsupported sites fail the whole run.
func DeriveSiteCodes(site domain.CancerSite) (SiteCodes, error) {
	primary, ok := primarySitePrefixes[site]
	if !ok {
		return SiteCodes{}, domain.NewConfigError("cancer_site", site.String(),
			fmt.Errorf("%w: %s", domain.ErrUnknownSite, site))
	}

	remove := make(map[string]struct{}, len(primary))
	for _, p := range primary {
		remove[p] = struct{}{}
	}

	master := MasterMalignancyPrefixes()
	other := make([]string, 0, len(master))
	for _, p := range master {
		if _, drop := remove[p]; drop {
			continue
		}
		other = append(other, p)
	}

	out := SiteCodes{
		Primary: append([]string(nil), primary...),
		Other:   other,
	}
	return out, nil
}

// siteSuppressedCategories lists, per site, the categories whose weight
// coefficients are zeroed so the primary cancer's own direct sequelae are not
// attributed to comorbidity. Zeroing the weight rather than the indicator
// keeps the raw indicator value available for inspection.
var siteSuppressedCategories = map[domain.CancerSite][]domain.CategoryID{
	domain.SiteColon:   {CatAnemia, CatIntestinalDisorder},
	domain.SiteRectal:  {CatAnemia, CatIntestinalDisorder},
	domain.SiteLiver:   {CatAnemia, CatCoagulopathy, CatUpperGastrointestinal, CatLiverDisease},
	domain.SiteStomach: {CatAnemia, CatCoagulopathy, CatUpperGastrointestinal, CatLiverDisease},
	domain.SiteKidney:  {CatRenalDisease, CatUrinaryTract},
	domain.SiteBladder: {CatRenalDisease, CatUrinaryTract},
}

// SuppressedCategories returns the weight-suppressed categories for a site in
// both the all-time and pre-treatment namespaces. Sites with no suppression
// return an empty slice.
func SuppressedCategories(site domain.CancerSite) []domain.CategoryID {
	base := siteSuppressedCategories[site]
	out := make([]domain.CategoryID, 0, len(base)*2)
	for _, id := range base {
		out = append(out, id, domain.PreTreatment(id))
	}
	return out
}
