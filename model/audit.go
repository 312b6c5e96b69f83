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

import "time"

// Audit actions.
const (
	AuditAutoMatched     = "match.auto"
	AuditManuallyMatched = "match.manual"
	AuditRequestVerified = "request.verified"
	AuditDismissed       = "message.dismissed"
	AuditDeviceRevoked   = "device.revoked"
)

// AuditEvent is an append-only trail entry for a state transition.
type AuditEvent struct {
	EventID   string                 `json:"event_id"`
	EntityID  string                 `json:"entity_id"`
	Action    string                 `json:"action"`
	Actor     *string                `json:"actor"`
	Note      string                 `json:"note"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// NewAuditEvent creates an audit event stamped at createdAt.
func NewAuditEvent(entityID, action string, actor *string, note string, createdAt time.Time) AuditEvent {
	return AuditEvent{
		EventID:   GenerateUUIDWithSuffix("audit"),
		EntityID:  entityID,
		Action:    action,
		Actor:     actor,
		Note:      note,
		Data:      map[string]interface{}{},
		CreatedAt: createdAt,
	}
}
