// Package icd normalizes raw ICD-10 diagnosis codes into the canonical form
// the prefix classifier matches against. Codes are treated as opaque strings;
// no clinical interpretation happens here.
package icd

import (
	"errors"
	"regexp"
	"strings"
)

// ErrMalformedCode indicates a value that cannot be an ICD-10 code even after
// normalization. Malformed codes are expected in administrative extracts and
// are excluded from matching, never fatal.
var ErrMalformedCode = errors.New("malformed ICD-10 code")

// An ICD-10 code is one letter, one digit, then up to five alphanumerics
// once the decimal point is stripped (e.g. I21.9 -> I219, U07.1 -> U071).
var codePattern = regexp.MustCompile(`^[A-Z][0-9][0-9A-Z]{0,5}$`)

// Normalize trims, uppercases and strips the decimal point from a raw code,
// returning the canonical matching form. Returns ErrMalformedCode when the
// result is not structurally an ICD-10 code.
func Normalize(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	code = strings.ReplaceAll(code, ".", "")
	if !codePattern.MatchString(code) {
		return "", ErrMalformedCode
	}
	return code, nil
}

// IsValid reports whether the raw value normalizes to a structurally valid
// ICD-10 code.
func IsValid(raw string) bool {
	_, err := Normalize(raw)
	return err == nil
}
