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

package smsparser

import (
	"testing"

	"github.com/paymatch/paymatch/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AmountAndReference(t *testing.T) {
	signal := Parse("Rs. 500.00 credited. UTR: ABC123XYZ")

	require.NotNil(t, signal.Amount)
	assert.Equal(t, int64(50000), *signal.Amount)
	require.NotNil(t, signal.UTR)
	assert.Equal(t, "ABC123XYZ", *signal.UTR)
	assert.Nil(t, signal.VPA)
	assert.GreaterOrEqual(t, signal.Confidence(), 80)
}

func TestParse_AmountOnly(t *testing.T) {
	signal := Parse("You received Rs 499.50")

	require.NotNil(t, signal.Amount)
	assert.Equal(t, int64(49950), *signal.Amount)
	assert.Nil(t, signal.UTR)
	assert.Equal(t, "medium", signal.ConfidenceBand())
}

func TestParse_NothingFound(t *testing.T) {
	signal := Parse("Your OTP for login is valid for 10 minutes")

	assert.Nil(t, signal.Amount)
	assert.Nil(t, signal.UTR)
	assert.Nil(t, signal.VPA)
	assert.Less(t, signal.Confidence(), 50)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected *int64
	}{
		{"rs with dot", "Rs.250 received", int64Ptr(25000)},
		{"lowercase", "rs 99.9 credited", int64Ptr(9990)},
		{"thousands separators", "INR 1,25,000.75 credited to a/c", int64Ptr(12500075)},
		{"rupee sign", "₹1,200 paid", int64Ptr(120000)},
		{"first match wins", "Rs 10 sent, balance Rs 9000", int64Ptr(1000)},
		{"whole number", "RS 7 received", int64Ptr(700)},
		{"no marker", "Amount 500 received", nil},
		{"marker inside a word", "Hours 500", nil},
		{"largest representable amount", "Rs 92233720368547758.07 credited", int64Ptr(9223372036854775807)},
		{"amount beyond int64 range", "Rs 184467440737096016.16 credited", nil},
		{"amount just beyond int64 range", "Rs 92233720368547758.08 credited", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAmount(tt.text)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.expected, *got)
		})
	}
}

func TestParseReference(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"utr colon", "UTR: 412345678901 credited", "412345678901"},
		{"upi ref no", "Rs 500 credited via UPI Ref No 309812345678", "309812345678"},
		{"ref dot", "Ref.AB12CD34 successful", "AB12CD34"},
		{"txn id", "TxnId:T2309121234 done", "T2309121234"},
		{"txn space id", "Txn ID 998877665544", "998877665544"},
		{"case insensitive", "utr abc123xyz", "abc123xyz"},
		{"skips alphabetic word after label", "UPI payment received. UTR 123456789012", "123456789012"},
		{"upi credit path", "Rs 500 credited UPI/CR/412345678901/RAHUL KUMAR", "412345678901"},
		{"upi debit path", "Rs 500 debited UPI/DR/309812345678/SHOP", "309812345678"},
		{"slash separated ref", "Ref/AB12CD34 successful", "AB12CD34"},
		{"sentence end after code", "Credited. UTR 412345678901.", "412345678901"},
		{"address skipped for later code", "From UPI ID rahul1990@oksbi. UTR 412345678901", "412345678901"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseReference(tt.text)
			require.NotNil(t, got)
			assert.Equal(t, tt.expected, *got)
		})
	}

	assert.Nil(t, ParseReference("Payment received. Thank you"))
	assert.Nil(t, ParseReference("UPI transaction successful"))
	assert.Nil(t, ParseReference("Rs 500.00 received from UPI ID rahul1990@oksbi"))
	assert.Nil(t, ParseReference("Rs 500.00 received from UPI ID rahul1990.k@oksbi"))
}

func TestParse_OversizedAmountNotFound(t *testing.T) {
	signal := Parse("Rs 184467440737096016.16 credited. UTR: ABC123XYZ")

	assert.Nil(t, signal.Amount)
	require.NotNil(t, signal.UTR)
	assert.Equal(t, "ABC123XYZ", *signal.UTR)
}

func TestParse_VPANotTakenAsReference(t *testing.T) {
	signal := Parse("Rs 500.00 received from UPI ID rahul1990@oksbi")

	assert.Nil(t, signal.UTR)
	require.NotNil(t, signal.VPA)
	assert.Equal(t, "rahul1990@oksbi", *signal.VPA)
	assert.Equal(t, model.ConfidenceAmountOnly+model.ConfidenceVPABonus, signal.Confidence())
}

func TestParseVPA(t *testing.T) {
	got := ParseVPA("Rs 100 received from john.doe-1@okaxis on 12-Sep")
	require.NotNil(t, got)
	assert.Equal(t, "john.doe-1@okaxis", *got)

	got = ParseVPA("from a@ybl and b@paytm")
	require.NotNil(t, got)
	assert.Equal(t, "a@ybl", *got)

	assert.Nil(t, ParseVPA("no address here"))
}

func TestParse_Deterministic(t *testing.T) {
	texts := []string{
		"Rs. 500.00 credited. UTR: ABC123XYZ",
		"INR 12,000 received from shop@upi Ref 1234567",
		"",
		"hello",
	}
	for _, text := range texts {
		assert.Equal(t, Parse(text), Parse(text))
	}
}

func TestParse_ConfidenceMonotonic(t *testing.T) {
	full := Parse("Rs 100 credited UTR 123456789")
	amountOnly := Parse("Rs 100 credited")
	none := Parse("credited")

	assert.Greater(t, full.Confidence(), amountOnly.Confidence())
	assert.Greater(t, amountOnly.Confidence(), none.Confidence())
	assert.Equal(t, model.ConfidenceNone, none.Confidence())
}

func TestParse_VPABonus(t *testing.T) {
	signal := Parse("Rs 100 credited from payer@okhdfc")
	assert.Equal(t, model.ConfidenceAmountOnly+model.ConfidenceVPABonus, signal.Confidence())

	vpaOnly := Parse("request from payer@okhdfc")
	assert.Equal(t, model.ConfidenceNone, vpaOnly.Confidence())
}

func int64Ptr(v int64) *int64 { return &v }
