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

import (
	"time"

	"github.com/paymatch/paymatch/model"
)

type CreatePendingRequest struct {
	RequestID  string     `json:"request_id"`
	MerchantID string     `json:"merchant_id"`
	Amount     int64      `json:"amount"`
	Reference  string     `json:"reference"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

func (r *CreatePendingRequest) ToPendingRequest() model.PendingRequest {
	request := model.PendingRequest{
		RequestID:  r.RequestID,
		MerchantID: r.MerchantID,
		Amount:     r.Amount,
		Reference:  r.Reference,
	}
	if r.ExpiresAt != nil {
		request.ExpiresAt = r.ExpiresAt.UTC()
	}
	return request
}
