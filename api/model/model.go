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
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const maxNoteLength = 500

func notBlank(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
}

func receivedAtSet(value interface{}) error {
	r, _ := value.(ReceivedAt)
	if r.IsZero() {
		return errors.New("cannot be blank")
	}
	return nil
}

// metadataObject allows metadata to be absent, null or a JSON object.
func metadataObject(value interface{}) error {
	raw, _ := value.(json.RawMessage)
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || raw[0] == '{' {
		return nil
	}
	return errors.New("must be a JSON object")
}

func (w *SMSWebhook) ValidateSMSWebhook() error {
	return validation.ValidateStruct(w,
		validation.Field(&w.DeviceID, validation.Required),
		validation.Field(&w.Message, validation.By(notBlank)),
		validation.Field(&w.ReceivedAt, validation.By(receivedAtSet)),
		validation.Field(&w.MetaData, validation.By(metadataObject)),
	)
}

func (m *ManualMatch) ValidateManualMatch() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.RequestID, validation.Required),
		validation.Field(&m.Note, validation.Length(0, maxNoteLength)),
	)
}

func (o *OperatorAction) ValidateOperatorAction() error {
	return validation.ValidateStruct(o,
		validation.Field(&o.Actor, validation.Length(0, 100)),
		validation.Field(&o.Note, validation.Length(0, maxNoteLength)),
	)
}

func (r *CreatePendingRequest) ValidateCreatePendingRequest() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.MerchantID, validation.Required),
		validation.Field(&r.Amount, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.Reference, validation.Length(0, 255)),
	)
}

func (d *RegisterDevice) ValidateRegisterDevice() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.MerchantID, validation.Required),
		validation.Field(&d.Name, validation.Required, validation.Length(1, 100)),
	)
}
