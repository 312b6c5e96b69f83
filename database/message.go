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
	"encoding/json"
	"fmt"
	"time"

	"github.com/paymatch/paymatch/internal/apierror"
	"github.com/paymatch/paymatch/model"
	"go.opentelemetry.io/otel"
)

const messageColumns = `message_id, device_id, merchant_id, sender, raw_text, received_at, meta_data,
		amount, utr, vpa, confidence, status, candidate_count, processed_at, created_at, submission_hash`

// RecordMessage persists a newly admitted message together with its parsed
// signal. Confidence is stored for querying only and is always recomputed
// from the signal fields when read back.
func (d Datasource) RecordMessage(ctx context.Context, msg *model.IncomingMessage) error {
	ctx, span := otel.Tracer("paymatch.database").Start(ctx, "Saving message to db")
	defer span.End()

	var metaData interface{}
	if len(msg.MetaData) > 0 {
		metaData = []byte(msg.MetaData)
	}

	var amount sql.NullInt64
	if msg.Signal.Amount != nil {
		amount = sql.NullInt64{Int64: *msg.Signal.Amount, Valid: true}
	}

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO paymatch.incoming_messages (`+messageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		msg.MessageID,
		msg.DeviceID,
		msg.MerchantID,
		msg.Sender,
		msg.RawText,
		msg.ReceivedAt,
		metaData,
		amount,
		nullString(msg.Signal.UTR),
		nullString(msg.Signal.VPA),
		msg.Signal.Confidence(),
		msg.Status,
		msg.CandidateCount,
		msg.ProcessedAt,
		msg.CreatedAt,
		msg.SubmissionHash,
	)
	if err != nil {
		span.RecordError(err)
		if isUniqueViolation(err) {
			return apierror.NewAPIError(apierror.ErrConflict, "Message has already been recorded", ErrDuplicateSubmission)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record message", err)
	}

	return nil
}

// GetMessage retrieves a message by ID.
func (d Datasource) GetMessage(ctx context.Context, id string) (*model.IncomingMessage, error) {
	ctx, span := otel.Tracer("paymatch.database").Start(ctx, "Fetching message")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+messageColumns+`
		FROM paymatch.incoming_messages
		WHERE message_id = $1
	`, id)

	msg, err := scanMessage(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Message with ID '%s' not found", id), ErrMessageNotFound)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve message", err)
	}
	return msg, nil
}

// GetMessageBySubmission looks up a message by the hash of its submission.
func (d Datasource) GetMessageBySubmission(ctx context.Context, submissionHash string) (*model.IncomingMessage, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+messageColumns+`
		FROM paymatch.incoming_messages
		WHERE submission_hash = $1
	`, submissionHash)

	msg, err := scanMessage(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Message for submission not found", ErrMessageNotFound)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve message", err)
	}
	return msg, nil
}

// UpdateMessageOutcome records a non-settling outcome for an unprocessed
// message. Settling outcomes go through ApplyMatch.
func (d Datasource) UpdateMessageOutcome(ctx context.Context, id string, status model.MessageStatus, candidateCount int, processedAt time.Time) error {
	ctx, span := otel.Tracer("paymatch.database").Start(ctx, "Updating message outcome")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE paymatch.incoming_messages
		SET status = $2, candidate_count = $3, processed_at = $4
		WHERE message_id = $1 AND status = 'unprocessed'
	`, id, status, candidateCount, processedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update message outcome", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Message with ID '%s' has already been processed", id), ErrMessageAlreadyProcessed)
	}
	return nil
}

// ListReviewQueue returns messages awaiting operator action, oldest first. An
// empty merchantID lists every merchant's queue.
func (d Datasource) ListReviewQueue(ctx context.Context, merchantID string, limit, offset int) ([]model.IncomingMessage, error) {
	ctx, span := otel.Tracer("paymatch.database").Start(ctx, "Listing review queue")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM paymatch.incoming_messages
		WHERE status = 'needs_review' AND ($1 = '' OR merchant_id = $1)
		ORDER BY received_at ASC
		LIMIT $2 OFFSET $3
	`, merchantID, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve review queue", err)
	}
	defer rows.Close()

	messages := make([]model.IncomingMessage, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan message data", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over messages", err)
	}

	return messages, nil
}

func scanMessage(row scanner) (*model.IncomingMessage, error) {
	msg := &model.IncomingMessage{}
	var (
		metaData    []byte
		amount      sql.NullInt64
		utr, vpa    sql.NullString
		confidence  int
		processedAt sql.NullTime
		hash        sql.NullString
	)

	err := row.Scan(
		&msg.MessageID,
		&msg.DeviceID,
		&msg.MerchantID,
		&msg.Sender,
		&msg.RawText,
		&msg.ReceivedAt,
		&metaData,
		&amount,
		&utr,
		&vpa,
		&confidence,
		&msg.Status,
		&msg.CandidateCount,
		&processedAt,
		&msg.CreatedAt,
		&hash,
	)
	if err != nil {
		return nil, err
	}

	if len(metaData) > 0 {
		msg.MetaData = json.RawMessage(metaData)
	}
	if amount.Valid {
		v := amount.Int64
		msg.Signal.Amount = &v
	}
	msg.Signal.UTR = stringPtr(utr)
	msg.Signal.VPA = stringPtr(vpa)
	msg.ProcessedAt = timePtr(processedAt)
	msg.SubmissionHash = hash.String
	return msg, nil
}
