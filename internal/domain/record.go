package domain

import "strings"

// keySeparator joins patient key fields into a single opaque key. The unit
// separator never occurs in identifier values coming from admission extracts.
const keySeparator = "\x1f"

// PatientKey is an opaque composite key built from one or more caller-chosen
// identifier fields. It is deliberately never a per-encounter id: the whole
// diagnosis history of a patient aggregates under one key.
type PatientKey string

// NewPatientKey builds a composite key from identifier field values in the
// caller's declared column order.
func NewPatientKey(fields ...string) PatientKey {
	return PatientKey(strings.Join(fields, keySeparator))
}

// Fields splits the key back into its identifier field values.
func (k PatientKey) Fields() []string {
	return strings.Split(string(k), keySeparator)
}

// CodeRecord is one long-format input row: a single raw diagnosis code for a
// patient. An empty Code is a placeholder row emitted by the wide-to-long
// reshape for encounters without any coded diagnosis; it keeps the patient
// observable without contributing to any category.
type CodeRecord struct {
	Patient PatientKey `json:"patient"`
	Code    string     `json:"code"`
}

// RegistryRecord is one cancer-registry tumour record, keyed by site and
// metastatic extent. Registry data is merged into diagnosis-derived cancer
// indicators and is authoritative for its own metastatic flag.
type RegistryRecord struct {
	Patient    PatientKey `json:"patient"`
	Site       CancerSite `json:"site"`
	Metastatic bool       `json:"metastatic"`
}
