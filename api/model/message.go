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
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/paymatch/paymatch/model"
	"github.com/shopspring/decimal"
)

// millisThreshold separates unix seconds from unix milliseconds. Seconds will
// not reach it for tens of thousands of years.
var millisThreshold = decimal.NewFromInt(1_000_000_000_000)

var maxMillis = decimal.NewFromInt(math.MaxInt64)

var errInvalidReceivedAt = errors.New("received_at must be an RFC 3339 timestamp or a unix time in seconds or milliseconds")

// ReceivedAt accepts the forwarding app's timestamp either as an RFC 3339
// string or as a unix number in seconds or milliseconds.
type ReceivedAt struct {
	time.Time
}

func (r *ReceivedAt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			r.Time = t.UTC()
			return nil
		}
		return r.fromNumber(s)
	}

	return r.fromNumber(string(data))
}

func (r *ReceivedAt) fromNumber(raw string) error {
	n, err := decimal.NewFromString(raw)
	if err != nil {
		return errInvalidReceivedAt
	}
	if n.IsNegative() {
		return errors.New("received_at cannot be negative")
	}

	millis := n
	if n.LessThan(millisThreshold) {
		millis = n.Mul(decimal.NewFromInt(1000))
	}
	millis = millis.Round(0)
	if millis.GreaterThan(maxMillis) {
		return errInvalidReceivedAt
	}
	r.Time = time.UnixMilli(millis.IntPart()).UTC()
	return nil
}

func (r ReceivedAt) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Time)
}

// SMSWebhook is the body a forwarding device posts for every SMS it relays.
type SMSWebhook struct {
	DeviceID   string          `json:"device_id"`
	Sender     string          `json:"sender"`
	Message    string          `json:"message"`
	ReceivedAt ReceivedAt      `json:"received_at"`
	MetaData   json.RawMessage `json:"metadata,omitempty"`
}

func (w SMSWebhook) ToSubmission(credential string) model.Submission {
	return model.Submission{
		DeviceID:   w.DeviceID,
		Credential: credential,
		Sender:     w.Sender,
		Text:       w.Message,
		ReceivedAt: w.ReceivedAt.Time,
		MetaData:   w.MetaData,
	}
}

type SMSWebhookResponse struct {
	MessageID string               `json:"message_id"`
	Status    model.MessageStatus  `json:"status"`
	Duplicate bool                 `json:"duplicate"`
	Signal    model.ParsedSignal   `json:"signal"`
	Decision  *model.MatchDecision `json:"decision,omitempty"`
}

func NewSMSWebhookResponse(result *model.IngestResult) SMSWebhookResponse {
	return SMSWebhookResponse{
		MessageID: result.Message.MessageID,
		Status:    result.Message.Status,
		Duplicate: result.Duplicate,
		Signal:    result.Message.Signal,
		Decision:  result.Decision,
	}
}

type ManualMatch struct {
	RequestID string `json:"request_id"`
	Actor     string `json:"actor"`
	Note      string `json:"note"`
}

// OperatorAction carries who performed a dismissal, verification or revocation.
type OperatorAction struct {
	Actor string `json:"actor"`
	Note  string `json:"note"`
}
