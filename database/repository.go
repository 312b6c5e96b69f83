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
	"time"

	"github.com/paymatch/paymatch/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	device         // Interface for device-related operations
	message        // Interface for incoming message operations
	pendingRequest // Interface for pending request operations
	match          // Interface for atomic match resolution
	audit          // Interface for audit trail operations
}

// device defines methods for the SMS-forwarding device registry.
type device interface {
	RegisterDevice(ctx context.Context, device *model.Device) error
	GetDevice(ctx context.Context, id string) (*model.Device, error)
	RevokeDevice(ctx context.Context, id string, revokedAt time.Time) error
	TouchDevice(ctx context.Context, id string, seenAt time.Time) error
}

// message defines methods for handling incoming messages.
type message interface {
	RecordMessage(ctx context.Context, msg *model.IncomingMessage) error
	GetMessage(ctx context.Context, id string) (*model.IncomingMessage, error)
	GetMessageBySubmission(ctx context.Context, submissionHash string) (*model.IncomingMessage, error)
	UpdateMessageOutcome(ctx context.Context, id string, status model.MessageStatus, candidateCount int, processedAt time.Time) error
	ListReviewQueue(ctx context.Context, merchantID string, limit, offset int) ([]model.IncomingMessage, error)
}

// pendingRequest defines methods for handling pending payment requests.
type pendingRequest interface {
	CreatePendingRequest(ctx context.Context, request *model.PendingRequest) error
	GetPendingRequest(ctx context.Context, id string) (*model.PendingRequest, error)
	GetEligibleRequests(ctx context.Context, merchantID string, now time.Time) ([]model.PendingRequest, error)
	ExpireStaleRequests(ctx context.Context, now time.Time) (int64, error)
}

// match defines the atomic resolution writes.
type match interface {
	ApplyMatch(ctx context.Context, application model.MatchApplication) error
	DismissMessage(ctx context.Context, id string, event model.AuditEvent) error
	GetMatchRecordsByRequest(ctx context.Context, requestID string) ([]model.MatchRecord, error)
	GetSettlementsByRequest(ctx context.Context, requestID string) ([]model.SettlementTransaction, error)
}

// audit defines methods for the append-only audit trail.
type audit interface {
	RecordAuditEvent(ctx context.Context, event model.AuditEvent) error
	GetAuditEvents(ctx context.Context, entityID string) ([]model.AuditEvent, error)
}
