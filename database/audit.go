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

	"github.com/paymatch/paymatch/internal/apierror"
	"github.com/paymatch/paymatch/model"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// RecordAuditEvent appends a standalone audit event.
func (d Datasource) RecordAuditEvent(ctx context.Context, event model.AuditEvent) error {
	return insertAuditEvent(ctx, d.Conn, event)
}

// GetAuditEvents returns the audit trail for an entity, oldest first.
func (d Datasource) GetAuditEvents(ctx context.Context, entityID string) ([]model.AuditEvent, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT event_id, entity_id, action, actor, note, data, created_at
		FROM paymatch.audit_events
		WHERE entity_id = $1
		ORDER BY created_at ASC
	`, entityID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve audit events", err)
	}
	defer rows.Close()

	events := make([]model.AuditEvent, 0)
	for rows.Next() {
		var (
			event model.AuditEvent
			actor sql.NullString
			data  []byte
		)
		if err := rows.Scan(&event.EventID, &event.EntityID, &event.Action, &actor, &event.Note, &data, &event.CreatedAt); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan audit event", err)
		}
		event.Actor = stringPtr(actor)
		if len(data) > 0 {
			if err := json.Unmarshal(data, &event.Data); err != nil {
				return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal audit data", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over audit events", err)
	}
	return events, nil
}
