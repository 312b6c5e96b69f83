/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import "encoding/json"

// Confidence bands assigned to a parsed signal. A signal carrying both an amount
// and a reference always outranks one with only an amount, which always outranks
// one without an amount. A VPA adds a small bonus that never crosses a band.
const (
	ConfidenceAmountAndReference = 90
	ConfidenceAmountOnly         = 60
	ConfidenceReferenceOnly      = 30
	ConfidenceNone               = 0
	ConfidenceVPABonus           = 5

	ConfidenceHighThreshold   = 80
	ConfidenceMediumThreshold = 50
)

// ParsedSignal holds the payment fields extracted from an SMS. A nil field means
// the parser did not find it.
type ParsedSignal struct {
	Amount *int64  `json:"amount"`
	UTR    *string `json:"utr"`
	VPA    *string `json:"vpa"`
}

// HasAmount reports whether an amount was extracted.
func (s ParsedSignal) HasAmount() bool { return s.Amount != nil }

// HasReference reports whether a UTR/reference was extracted.
func (s ParsedSignal) HasReference() bool { return s.UTR != nil && *s.UTR != "" }

// HasVPA reports whether a payee VPA was extracted.
func (s ParsedSignal) HasVPA() bool { return s.VPA != nil && *s.VPA != "" }

// Confidence is derived from which fields were extracted and is never stored.
func (s ParsedSignal) Confidence() int {
	var score int
	switch {
	case s.HasAmount() && s.HasReference():
		score = ConfidenceAmountAndReference
	case s.HasAmount():
		score = ConfidenceAmountOnly
	case s.HasReference():
		score = ConfidenceReferenceOnly
	default:
		score = ConfidenceNone
	}
	if s.HasVPA() && (s.HasAmount() || s.HasReference()) {
		score += ConfidenceVPABonus
	}
	return score
}

// ConfidenceBand names the band the confidence score falls into.
func (s ParsedSignal) ConfidenceBand() string {
	c := s.Confidence()
	switch {
	case c >= ConfidenceHighThreshold:
		return "high"
	case c >= ConfidenceMediumThreshold:
		return "medium"
	default:
		return "low"
	}
}

// MarshalJSON includes the derived confidence alongside the extracted fields.
func (s ParsedSignal) MarshalJSON() ([]byte, error) {
	type signal ParsedSignal
	return json.Marshal(struct {
		signal
		Confidence int    `json:"confidence"`
		Band       string `json:"confidence_band"`
	}{signal(s), s.Confidence(), s.ConfidenceBand()})
}
