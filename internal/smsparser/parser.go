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

// Package smsparser extracts payment signals from bank and UPI SMS text.
package smsparser

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/paymatch/paymatch/model"
	"github.com/shopspring/decimal"
	"github.com/wacul/ptr"
)

var (
	// A currency marker followed by a number with optional thousands
	// separators and up to two decimal places.
	amountPattern = regexp.MustCompile(`(?i)(?:\brs\.?|\binr\b|₹)\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)

	// A reference label, an optional "no"/"number"/"id" suffix, an optional
	// "CR/" or "DR/" segment as in UPI/CR/<code>/<name>, then the code.
	referencePattern = regexp.MustCompile(`(?i)\b(?:utr|upi|ref(?:erence)?|txn\s?id)\b(?:[\s.]*(?:no|number|id)\b)?[\s.:#/-]*(?:(?:cr|dr)/)?([a-z0-9]{6,})`)

	vpaPattern = regexp.MustCompile(`[a-zA-Z0-9._-]+@[a-zA-Z]+`)

	hundred       = decimal.NewFromInt(100)
	maxMinorUnits = decimal.NewFromInt(math.MaxInt64)
)

// Parse turns raw SMS text into a ParsedSignal. It never fails: fields that
// cannot be found are left nil.
func Parse(text string) model.ParsedSignal {
	return model.ParsedSignal{
		Amount: ParseAmount(text),
		UTR:    ParseReference(text),
		VPA:    ParseVPA(text),
	}
}

// ParseAmount returns the first currency amount in text, in minor units.
func ParseAmount(text string) *int64 {
	match := amountPattern.FindStringSubmatch(text)
	if match == nil {
		return nil
	}

	literal := strings.ReplaceAll(match[1], ",", "")
	value, err := decimal.NewFromString(literal)
	if err != nil {
		return nil
	}

	minor := value.Mul(hundred).Round(0)
	if minor.GreaterThan(maxMinorUnits) {
		return nil
	}
	return ptr.Int64(minor.IntPart())
}

// ParseReference returns the code following the first reference label whose
// code contains at least one digit. Labels like "UPI" are also ordinary words
// in these messages, so purely alphabetic followers are skipped, as are
// codes that are really the start of an address such as "UPI ID name1@bank".
func ParseReference(text string) *string {
	for _, loc := range referencePattern.FindAllStringSubmatchIndex(text, -1) {
		code := text[loc[2]:loc[3]]
		if strings.IndexFunc(code, unicode.IsDigit) < 0 {
			continue
		}
		if continuesAsAddress(text[loc[3]:]) {
			continue
		}
		return ptr.String(code)
	}
	return nil
}

// continuesAsAddress reports whether rest, the text right after a code, shows
// the code was the local part of a VPA or a dotted name.
func continuesAsAddress(rest string) bool {
	if strings.HasPrefix(rest, "@") {
		return true
	}
	if len(rest) >= 2 && rest[0] == '.' {
		next := rune(rest[1])
		return unicode.IsLetter(next) || unicode.IsDigit(next) || next == '_' || next == '-'
	}
	return false
}

// ParseVPA returns the first localpart@domain token in text.
func ParseVPA(text string) *string {
	vpa := vpaPattern.FindString(text)
	if vpa == "" {
		return nil
	}
	return ptr.String(vpa)
}
