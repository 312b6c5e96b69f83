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

import "time"

// RequestStatus is the settlement state of a pending payment request.
type RequestStatus string

const (
	RequestAwaiting         RequestStatus = "awaiting"
	RequestSettled          RequestStatus = "settled"
	RequestPartiallySettled RequestStatus = "partially_settled"
	RequestExpired          RequestStatus = "expired"
	RequestNeedsReview      RequestStatus = "needs_review"
)

// PendingRequest is a merchant-issued payment request awaiting settlement.
// Amount is in minor currency units.
type PendingRequest struct {
	RequestID  string        `json:"request_id"`
	MerchantID string        `json:"merchant_id"`
	Amount     int64         `json:"amount"`
	Status     RequestStatus `json:"status"`
	Reference  string        `json:"reference,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	ExpiresAt  time.Time     `json:"expires_at"`
	SettledAt  *time.Time    `json:"settled_at,omitempty"`
}

// IsExpired reports whether the request's expiry has passed at now. A zero
// expiry never expires.
func (r PendingRequest) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// IsEligible reports whether the request may be offered as a match candidate.
func (r PendingRequest) IsEligible(now time.Time) bool {
	return r.Status == RequestAwaiting && !r.IsExpired(now)
}
