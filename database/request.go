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

const requestColumns = `request_id, merchant_id, amount, status, reference, created_at, expires_at, settled_at`

// CreatePendingRequest stores a new payment request.
func (d Datasource) CreatePendingRequest(ctx context.Context, request *model.PendingRequest) error {
	ctx, span := otel.Tracer("paymatch.database").Start(ctx, "Saving pending request to db")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO paymatch.pending_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		request.RequestID,
		request.MerchantID,
		request.Amount,
		request.Status,
		request.Reference,
		request.CreatedAt,
		nullTime(request.ExpiresAt),
		request.SettledAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Pending request with ID '%s' already exists", request.RequestID), err)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create pending request", err)
	}
	return nil
}

// GetPendingRequest retrieves a payment request by ID regardless of status.
func (d Datasource) GetPendingRequest(ctx context.Context, id string) (*model.PendingRequest, error) {
	ctx, span := otel.Tracer("paymatch.database").Start(ctx, "Fetching pending request")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM paymatch.pending_requests
		WHERE request_id = $1
	`, id)

	request, err := scanRequest(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Pending request with ID '%s' not found", id), ErrRequestNotFound)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve pending request", err)
	}
	return request, nil
}

// GetEligibleRequests returns the merchant's requests that can still be
// matched at now, oldest first. It always reads fresh from the database.
func (d Datasource) GetEligibleRequests(ctx context.Context, merchantID string, now time.Time) ([]model.PendingRequest, error) {
	ctx, span := otel.Tracer("paymatch.database").Start(ctx, "Fetching eligible pending requests")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM paymatch.pending_requests
		WHERE merchant_id = $1
		  AND status = 'awaiting'
		  AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY created_at ASC
	`, merchantID, now)
	if err != nil {
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve eligible pending requests", err)
	}
	defer rows.Close()

	requests := make([]model.PendingRequest, 0)
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan pending request data", err)
		}
		requests = append(requests, *request)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over pending requests", err)
	}

	return requests, nil
}

// ExpireStaleRequests flips awaiting requests whose expiry has passed to
// expired and returns how many were changed.
func (d Datasource) ExpireStaleRequests(ctx context.Context, now time.Time) (int64, error) {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE paymatch.pending_requests
		SET status = 'expired'
		WHERE status = 'awaiting' AND expires_at IS NOT NULL AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to expire pending requests", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	return rows, nil
}

func scanRequest(row scanner) (*model.PendingRequest, error) {
	request := &model.PendingRequest{}
	var (
		reference sql.NullString
		expiresAt sql.NullTime
		settledAt sql.NullTime
	)

	err := row.Scan(
		&request.RequestID,
		&request.MerchantID,
		&request.Amount,
		&request.Status,
		&reference,
		&request.CreatedAt,
		&expiresAt,
		&settledAt,
	)
	if err != nil {
		return nil, err
	}

	request.Reference = reference.String
	if expiresAt.Valid {
		request.ExpiresAt = expiresAt.Time
	}
	request.SettledAt = timePtr(settledAt)
	return request, nil
}
