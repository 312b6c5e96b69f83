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
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceivedAt_UnmarshalJSON(t *testing.T) {
	want := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "rfc3339 string", input: `"2024-06-01T18:00:00+05:30"`, want: want},
		{name: "unix seconds", input: `1717245000`, want: want},
		{name: "unix milliseconds", input: `1717245000000`, want: want},
		{name: "fractional seconds", input: `1717245000.25`, want: want.Add(250 * time.Millisecond)},
		{name: "numeric string", input: `"1717245000000"`, want: want},
		{name: "null", input: `null`},
		{name: "empty string", input: `""`},
		{name: "garbage", input: `"yesterday"`, wantErr: true},
		{name: "negative", input: `-5`, wantErr: true},
		{name: "beyond int64 milliseconds", input: `18446744073709551616`, wantErr: true},
		{name: "oversized numeric string", input: `"99999999999999999999999"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r ReceivedAt
			err := json.Unmarshal([]byte(tt.input), &r)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(r.Time), "got %v", r.Time)
		})
	}
}

func TestSMSWebhook_Decode(t *testing.T) {
	body := `{"device_id":"dev_1","sender":"VM-HDFCBK","message":"Rs 10 received","received_at":1717245000,"metadata":{"sim":1}}`

	var w SMSWebhook
	require.NoError(t, json.Unmarshal([]byte(body), &w))
	require.NoError(t, w.ValidateSMSWebhook())

	sub := w.ToSubmission("secret")
	assert.Equal(t, "dev_1", sub.DeviceID)
	assert.Equal(t, "secret", sub.Credential)
	assert.Equal(t, "Rs 10 received", sub.Text)
	assert.Equal(t, int64(1717245000), sub.ReceivedAt.Unix())
	assert.JSONEq(t, `{"sim":1}`, string(sub.MetaData))
}

func TestValidateSMSWebhook(t *testing.T) {
	valid := SMSWebhook{DeviceID: "dev_1", Message: "Rs 10", ReceivedAt: ReceivedAt{time.Now()}}

	tests := []struct {
		name    string
		mutate  func(w *SMSWebhook)
		wantErr bool
	}{
		{name: "valid", mutate: func(w *SMSWebhook) {}},
		{name: "missing device", mutate: func(w *SMSWebhook) { w.DeviceID = "" }, wantErr: true},
		{name: "blank message", mutate: func(w *SMSWebhook) { w.Message = "  " }, wantErr: true},
		{name: "missing received_at", mutate: func(w *SMSWebhook) { w.ReceivedAt = ReceivedAt{} }, wantErr: true},
		{name: "metadata object", mutate: func(w *SMSWebhook) { w.MetaData = json.RawMessage(`{"a":1}`) }},
		{name: "metadata array", mutate: func(w *SMSWebhook) { w.MetaData = json.RawMessage(`[1,2]`) }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := valid
			tt.mutate(&w)
			err := w.ValidateSMSWebhook()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateManualMatch(t *testing.T) {
	m := ManualMatch{}
	assert.Error(t, m.ValidateManualMatch())

	m.RequestID = "req_1"
	assert.NoError(t, m.ValidateManualMatch())

	m.Note = string(make([]byte, maxNoteLength+1))
	assert.Error(t, m.ValidateManualMatch())
}

func TestValidateCreatePendingRequest(t *testing.T) {
	r := CreatePendingRequest{MerchantID: "merchant_1", Amount: 50000}
	assert.NoError(t, r.ValidateCreatePendingRequest())

	r.Amount = -1
	assert.Error(t, r.ValidateCreatePendingRequest())

	r = CreatePendingRequest{Amount: 100}
	assert.Error(t, r.ValidateCreatePendingRequest())
}

func TestCreatePendingRequest_ToPendingRequest(t *testing.T) {
	expires := time.Date(2024, 6, 1, 18, 0, 0, 0, time.FixedZone("IST", 19800))
	r := CreatePendingRequest{MerchantID: "merchant_1", Amount: 100, Reference: "order-1", ExpiresAt: &expires}

	request := r.ToPendingRequest()
	assert.Equal(t, "merchant_1", request.MerchantID)
	assert.Equal(t, time.UTC, request.ExpiresAt.Location())
	assert.True(t, expires.Equal(request.ExpiresAt))

	r.ExpiresAt = nil
	assert.True(t, r.ToPendingRequest().ExpiresAt.IsZero())
}

func TestValidateRegisterDevice(t *testing.T) {
	d := RegisterDevice{MerchantID: "merchant_1", Name: "counter phone"}
	assert.NoError(t, d.ValidateRegisterDevice())

	d.Name = ""
	assert.Error(t, d.ValidateRegisterDevice())
}
