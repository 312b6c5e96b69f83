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

package paymatch

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/paymatch/paymatch/database"
	"github.com/paymatch/paymatch/internal/apierror"
	"github.com/paymatch/paymatch/model"
	"github.com/sirupsen/logrus"
)

const invalidDeviceCredentials = "Invalid device credentials"

// RegisterDevice creates a device for merchantID and returns it with its
// plaintext credential. Only the credential hash is stored.
func (p *Paymatch) RegisterDevice(ctx context.Context, merchantID, name string) (*model.Device, string, error) {
	err := validation.Errors{
		"merchant_id": validation.Validate(merchantID, validation.Required),
		"name":        validation.Validate(name, validation.Required, validation.Length(1, 100)),
	}.Filter()
	if err != nil {
		return nil, "", apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), nil)
	}

	device, credential, err := model.NewDevice(merchantID, name)
	if err != nil {
		return nil, "", apierror.NewAPIError(apierror.ErrInternalServer, "Failed to generate device credential", err)
	}
	device.CreatedAt = p.clock()

	if err := p.datasource.RegisterDevice(ctx, device); err != nil {
		return nil, "", err
	}
	return device, credential, nil
}

func (p *Paymatch) GetDevice(ctx context.Context, deviceID string) (*model.Device, error) {
	return p.datasource.GetDevice(ctx, deviceID)
}

// RevokeDevice stops a device from submitting messages.
func (p *Paymatch) RevokeDevice(ctx context.Context, deviceID, actor string) error {
	now := p.clock()
	if err := p.datasource.RevokeDevice(ctx, deviceID, now); err != nil {
		return err
	}

	event := model.NewAuditEvent(deviceID, model.AuditDeviceRevoked, actorPtr(actor), "", now)
	if err := p.datasource.RecordAuditEvent(ctx, event); err != nil {
		logrus.WithError(err).WithField("device_id", deviceID).Warn("device revoked but audit event was not recorded")
	}
	return nil
}

// AuthenticateDevice admits a device presenting a valid credential and stamps
// its last-seen time. Unknown, revoked and mismatched devices all get the
// same unauthorized error.
func (p *Paymatch) AuthenticateDevice(ctx context.Context, deviceID, credential string) (*model.Device, error) {
	device, err := p.datasource.GetDevice(ctx, deviceID)
	if err != nil {
		if errors.Is(err, database.ErrDeviceNotFound) {
			return nil, apierror.NewAPIError(apierror.ErrUnauthorized, invalidDeviceCredentials, nil)
		}
		return nil, err
	}

	if !device.IsActive() {
		logrus.WithField("device_id", deviceID).Warn("rejected submission from revoked device")
		return nil, apierror.NewAPIError(apierror.ErrUnauthorized, invalidDeviceCredentials, nil)
	}
	if !device.VerifyCredential(credential) {
		logrus.WithField("device_id", deviceID).Warn("rejected submission with invalid credential")
		return nil, apierror.NewAPIError(apierror.ErrUnauthorized, invalidDeviceCredentials, nil)
	}

	now := p.clock()
	if err := p.datasource.TouchDevice(ctx, deviceID, now); err != nil {
		logrus.WithError(err).WithField("device_id", deviceID).Warn("failed to update device last seen")
	} else {
		device.LastSeenAt = &now
	}
	return device, nil
}
