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

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/paymatch/paymatch/internal/apierror"
	"github.com/paymatch/paymatch/model"
	"go.opentelemetry.io/otel"
)

// RegisterDevice stores a new device. Only the credential hash is persisted.
func (d Datasource) RegisterDevice(ctx context.Context, device *model.Device) error {
	ctx, span := otel.Tracer("paymatch.database").Start(ctx, "Registering device")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO paymatch.devices (device_id, merchant_id, name, credential_hash, is_revoked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		device.DeviceID,
		device.MerchantID,
		device.Name,
		device.CredentialHash,
		device.IsRevoked,
		device.CreatedAt,
	)
	if err != nil {
		span.RecordError(err)
		if isUniqueViolation(err) {
			return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Device with ID '%s' already exists", device.DeviceID), err)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to register device", err)
	}

	return nil
}

// GetDevice retrieves a device by ID.
func (d Datasource) GetDevice(ctx context.Context, id string) (*model.Device, error) {
	ctx, span := otel.Tracer("paymatch.database").Start(ctx, "Fetching device")
	defer span.End()

	device := &model.Device{}
	var revokedAt, lastSeenAt sql.NullTime
	err := d.Conn.QueryRowContext(ctx, `
		SELECT device_id, merchant_id, name, credential_hash, is_revoked, revoked_at, created_at, last_seen_at
		FROM paymatch.devices
		WHERE device_id = $1
	`, id).Scan(
		&device.DeviceID,
		&device.MerchantID,
		&device.Name,
		&device.CredentialHash,
		&device.IsRevoked,
		&revokedAt,
		&device.CreatedAt,
		&lastSeenAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Device with ID '%s' not found", id), ErrDeviceNotFound)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve device", err)
	}

	device.RevokedAt = timePtr(revokedAt)
	device.LastSeenAt = timePtr(lastSeenAt)
	return device, nil
}

// RevokeDevice marks a device as revoked. Revoking twice is a no-op that keeps
// the original revocation time.
func (d Datasource) RevokeDevice(ctx context.Context, id string, revokedAt time.Time) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE paymatch.devices
		SET is_revoked = true, revoked_at = COALESCE(revoked_at, $2)
		WHERE device_id = $1
	`, id, revokedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to revoke device", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Device with ID '%s' not found", id), ErrDeviceNotFound)
	}

	return nil
}

// TouchDevice records the last time a device was successfully authenticated.
func (d Datasource) TouchDevice(ctx context.Context, id string, seenAt time.Time) error {
	_, err := d.Conn.ExecContext(ctx, `
		UPDATE paymatch.devices
		SET last_seen_at = $2
		WHERE device_id = $1
	`, id, seenAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update device last seen", err)
	}
	return nil
}
