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

	"github.com/paymatch/paymatch/internal/apierror"
	"github.com/paymatch/paymatch/model"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// ApplyMatch performs every write of a successful match in one transaction:
// it guards the message against double processing, settles the request only
// if it is still awaiting, and records the settlement, match record, message
// outcome and audit event. Either all of them are observable or none are.
func (d Datasource) ApplyMatch(ctx context.Context, application model.MatchApplication) error {
	ctx, span := otel.Tracer("paymatch.database").Start(ctx, "Applying match")
	defer span.End()
	span.SetAttributes(attribute.String("request.id", application.RequestID))

	err := d.withTx(ctx, func(tx *sql.Tx) error {
		if application.MessageID != nil {
			if err := lockUnprocessedMessage(ctx, tx, *application.MessageID); err != nil {
				return err
			}
		}

		if err := settleRequest(ctx, tx, application); err != nil {
			return err
		}

		if err := insertSettlement(ctx, tx, application.Settlement); err != nil {
			return err
		}

		if err := insertMatchRecord(ctx, tx, application.Record); err != nil {
			return err
		}

		if application.MessageID != nil {
			_, err := tx.ExecContext(ctx, `
				UPDATE paymatch.incoming_messages
				SET status = $2, processed_at = $3
				WHERE message_id = $1
			`, *application.MessageID, application.MessageStatus, application.SettledAt)
			if err != nil {
				return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update message status", err)
			}
		}

		return insertAuditEvent(ctx, tx, application.Audit)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	return nil
}

// DismissMessage marks a message under review as not matchable and records
// the audit event in the same transaction. No settlement is written.
func (d Datasource) DismissMessage(ctx context.Context, id string, event model.AuditEvent) error {
	ctx, span := otel.Tracer("paymatch.database").Start(ctx, "Dismissing message")
	defer span.End()

	return d.withTx(ctx, func(tx *sql.Tx) error {
		status, err := lockMessage(ctx, tx, id)
		if err != nil {
			return err
		}
		if status != model.MessageNeedsReview {
			return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Message with ID '%s' is %s and cannot be dismissed", id, status), ErrMessageNotReviewable)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE paymatch.incoming_messages
			SET status = $2, processed_at = $3
			WHERE message_id = $1
		`, id, model.MessageDismissed, event.CreatedAt)
		if err != nil {
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to dismiss message", err)
		}

		return insertAuditEvent(ctx, tx, event)
	})
}

// GetMatchRecordsByRequest returns the match records written for a request.
func (d Datasource) GetMatchRecordsByRequest(ctx context.Context, requestID string) ([]model.MatchRecord, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT record_id, request_id, message_id, score, match_type, actor, note, created_at
		FROM paymatch.match_records
		WHERE request_id = $1
		ORDER BY created_at ASC
	`, requestID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve match records", err)
	}
	defer rows.Close()

	records := make([]model.MatchRecord, 0)
	for rows.Next() {
		var (
			record           model.MatchRecord
			messageID, actor sql.NullString
		)
		if err := rows.Scan(&record.RecordID, &record.RequestID, &messageID, &record.Score, &record.MatchType, &actor, &record.Note, &record.CreatedAt); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan match record", err)
		}
		record.MessageID = stringPtr(messageID)
		record.Actor = stringPtr(actor)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over match records", err)
	}
	return records, nil
}

// GetSettlementsByRequest returns the settlement transactions recorded for a request.
func (d Datasource) GetSettlementsByRequest(ctx context.Context, requestID string) ([]model.SettlementTransaction, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT transaction_id, request_id, message_id, amount, utr, method, created_at
		FROM paymatch.settlement_transactions
		WHERE request_id = $1
		ORDER BY created_at ASC
	`, requestID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve settlements", err)
	}
	defer rows.Close()

	settlements := make([]model.SettlementTransaction, 0)
	for rows.Next() {
		var (
			txn            model.SettlementTransaction
			messageID, utr sql.NullString
		)
		if err := rows.Scan(&txn.TransactionID, &txn.RequestID, &messageID, &txn.Amount, &utr, &txn.Method, &txn.CreatedAt); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan settlement", err)
		}
		txn.MessageID = stringPtr(messageID)
		txn.UTR = stringPtr(utr)
		settlements = append(settlements, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over settlements", err)
	}
	return settlements, nil
}

// lockMessage takes a row lock on the message for the rest of the transaction
// and returns its current status.
func lockMessage(ctx context.Context, tx *sql.Tx, id string) (model.MessageStatus, error) {
	var status model.MessageStatus
	err := tx.QueryRowContext(ctx, `
		SELECT status FROM paymatch.incoming_messages WHERE message_id = $1 FOR UPDATE
	`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Message with ID '%s' not found", id), ErrMessageNotFound)
		}
		return "", apierror.NewAPIError(apierror.ErrInternalServer, "Failed to lock message", err)
	}
	return status, nil
}

func lockUnprocessedMessage(ctx context.Context, tx *sql.Tx, id string) error {
	status, err := lockMessage(ctx, tx, id)
	if err != nil {
		return err
	}
	if status.IsTerminal() {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Message with ID '%s' has already been processed", id), ErrMessageAlreadyProcessed)
	}
	return nil
}

// settleRequest flips the request to settled only while it is still awaiting
// and unexpired at the settlement time. The conditional update is the
// authoritative guard against double settlement.
func settleRequest(ctx context.Context, tx *sql.Tx, application model.MatchApplication) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE paymatch.pending_requests
		SET status = 'settled', settled_at = $2
		WHERE request_id = $1 AND status = 'awaiting'
		  AND (expires_at IS NULL OR expires_at > $2)
	`, application.RequestID, application.SettledAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to settle pending request", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Pending request with ID '%s' is no longer awaiting settlement", application.RequestID), ErrRequestNotAwaiting)
	}
	return nil
}

func insertSettlement(ctx context.Context, tx *sql.Tx, txn model.SettlementTransaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO paymatch.settlement_transactions (transaction_id, request_id, message_id, amount, utr, method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, txn.TransactionID, txn.RequestID, nullString(txn.MessageID), txn.Amount, nullString(txn.UTR), txn.Method, txn.CreatedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record settlement transaction", err)
	}
	return nil
}

func insertMatchRecord(ctx context.Context, tx *sql.Tx, record model.MatchRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO paymatch.match_records (record_id, request_id, message_id, score, match_type, actor, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, record.RecordID, record.RequestID, nullString(record.MessageID), record.Score, record.MatchType, nullString(record.Actor), record.Note, record.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apierror.NewAPIError(apierror.ErrConflict, "A match has already been recorded for this request or message", ErrDuplicateMatch)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record match", err)
	}
	return nil
}

func insertAuditEvent(ctx context.Context, exec execer, event model.AuditEvent) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal audit data", err)
	}

	_, err = exec.ExecContext(ctx, `
		INSERT INTO paymatch.audit_events (event_id, entity_id, action, actor, note, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, event.EventID, event.EntityID, event.Action, nullString(event.Actor), event.Note, data, event.CreatedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record audit event", errors.Wrap(err, "insert audit event"))
	}
	return nil
}
