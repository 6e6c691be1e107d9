// Package domain contains the core business entities for administrative
// comorbidity index scoring from coded diagnosis histories.
//
// The engine supports the M3 multimorbidity index and the cancer-cohort C3
// index. References: Stanley & Sarfati (2017) The new measuring
// multimorbidity index predicted mortality better than Charlson and
// Elixhauser indices. J Clin Epidemiol 92:99-110; Sarfati et al. (2014)
// Cancer-specific administrative data-based comorbidity indices provided
// valid alternative to Charlson and NHI indices. J Clin Epidemiol 67:586-95.
package domain

import (
	"errors"
	"math"
)

// IndexVariant identifies a comorbidity scoring scheme: one rule table plus
// one weight table (and, for C3, site-specific overrides).
type IndexVariant string

const (
	IndexM3 IndexVariant = "m3"
	IndexC3 IndexVariant = "c3"
)

// IsValid reports whether the variant is a supported index.
func (v IndexVariant) IsValid() bool {
	switch v {
	case IndexM3, IndexC3:
		return true
	default:
		return false
	}
}

// String returns the string representation of the index variant.
func (v IndexVariant) String() string {
	return string(v)
}

// CancerSite is the primary tumour location for a C3 run. It parameterises
// which malignancy code prefixes count as "other" cancer and which weight
// coefficients are suppressed to zero.
type CancerSite string

const (
	SiteBladder  CancerSite = "BLADDER"
	SiteBreast   CancerSite = "BREAST"
	SiteColon    CancerSite = "COLON"
	SiteKidney   CancerSite = "KIDNEY"
	SiteLiver    CancerSite = "LIVER"
	SiteOvarian  CancerSite = "OVARIAN"
	SiteUterine  CancerSite = "UTERINE"
	SiteRectal   CancerSite = "RECTAL"
	SiteStomach  CancerSite = "STOMACH"
	SiteLung     CancerSite = "LUNG"
	SiteProstate CancerSite = "PROSTATE"
	SiteHeadNeck CancerSite = "HEADNECK"

	// SiteNone is used for index variants that carry no site parameter.
	SiteNone CancerSite = ""
)

// AllSites lists every supported cancer site in a stable order.
func AllSites() []CancerSite {
	return []CancerSite{
		SiteBladder, SiteBreast, SiteColon, SiteKidney, SiteLiver,
		SiteOvarian, SiteUterine, SiteRectal, SiteStomach, SiteLung,
		SiteProstate, SiteHeadNeck,
	}
}

// IsValid reports whether the site is a supported cancer site.
// SiteNone is not a valid site for site-parameterised runs.
func (s CancerSite) IsValid() bool {
	for _, known := range AllSites() {
		if s == known {
			return true
		}
	}
	return false
}

// String returns the string representation of the cancer site.
func (s CancerSite) String() string {
	return string(s)
}

// ScoreBand is the ordinal severity category derived from the continuous
// index score.
type ScoreBand int

const (
	// BandUndefined marks a score that could not be computed. It is never
	// coerced to BandNone.
	BandUndefined ScoreBand = -1

	BandNone     ScoreBand = 0 // score <= 0
	BandMild     ScoreBand = 1 // 0 < score <= 1
	BandModerate ScoreBand = 2 // 1 < score <= 2
	BandSevere   ScoreBand = 3 // score > 2
)

// BandForScore maps a continuous score onto its ordinal band using the fixed
// index thresholds. NaN scores map to BandUndefined.
func BandForScore(score float64) ScoreBand {
	switch {
	case math.IsNaN(score):
		return BandUndefined
	case score <= 0:
		return BandNone
	case score <= 1:
		return BandMild
	case score <= 2:
		return BandModerate
	default:
		return BandSevere
	}
}

// String returns a short label for the band, suitable for reports.
func (b ScoreBand) String() string {
	switch b {
	case BandNone:
		return "none"
	case BandMild:
		return "mild"
	case BandModerate:
		return "moderate"
	case BandSevere:
		return "severe"
	default:
		return "undefined"
	}
}

// Sentinel errors for configuration and data integrity failures.
var (
	ErrNotFound          = errors.New("not found")
	ErrUnknownIndex      = errors.New("unknown comorbidity index variant")
	ErrUnknownSite       = errors.New("unknown cancer site")
	ErrDuplicateCategory = errors.New("duplicate category id in rule table")
	ErrWeightMissing     = errors.New("category missing from weight table")
	ErrNoOutputs         = errors.New("both indicator and score outputs are disabled")
	ErrNamespaceOverlap  = errors.New("category namespaces overlap")
)
