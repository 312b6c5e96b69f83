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

package mocks

import (
	"context"
	"time"

	"github.com/paymatch/paymatch/model"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Device methods

func (m *MockDataSource) RegisterDevice(ctx context.Context, device *model.Device) error {
	args := m.Called(ctx, device)
	return args.Error(0)
}

func (m *MockDataSource) GetDevice(ctx context.Context, id string) (*model.Device, error) {
	args := m.Called(ctx, id)
	device, _ := args.Get(0).(*model.Device)
	return device, args.Error(1)
}

func (m *MockDataSource) RevokeDevice(ctx context.Context, id string, revokedAt time.Time) error {
	args := m.Called(ctx, id, revokedAt)
	return args.Error(0)
}

func (m *MockDataSource) TouchDevice(ctx context.Context, id string, seenAt time.Time) error {
	args := m.Called(ctx, id, seenAt)
	return args.Error(0)
}

// Message methods

func (m *MockDataSource) RecordMessage(ctx context.Context, msg *model.IncomingMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockDataSource) GetMessage(ctx context.Context, id string) (*model.IncomingMessage, error) {
	args := m.Called(ctx, id)
	msg, _ := args.Get(0).(*model.IncomingMessage)
	return msg, args.Error(1)
}

func (m *MockDataSource) GetMessageBySubmission(ctx context.Context, submissionHash string) (*model.IncomingMessage, error) {
	args := m.Called(ctx, submissionHash)
	msg, _ := args.Get(0).(*model.IncomingMessage)
	return msg, args.Error(1)
}

func (m *MockDataSource) UpdateMessageOutcome(ctx context.Context, id string, status model.MessageStatus, candidateCount int, processedAt time.Time) error {
	args := m.Called(ctx, id, status, candidateCount, processedAt)
	return args.Error(0)
}

func (m *MockDataSource) ListReviewQueue(ctx context.Context, merchantID string, limit, offset int) ([]model.IncomingMessage, error) {
	args := m.Called(ctx, merchantID, limit, offset)
	messages, _ := args.Get(0).([]model.IncomingMessage)
	return messages, args.Error(1)
}

// Pending request methods

func (m *MockDataSource) CreatePendingRequest(ctx context.Context, request *model.PendingRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockDataSource) GetPendingRequest(ctx context.Context, id string) (*model.PendingRequest, error) {
	args := m.Called(ctx, id)
	request, _ := args.Get(0).(*model.PendingRequest)
	return request, args.Error(1)
}

func (m *MockDataSource) GetEligibleRequests(ctx context.Context, merchantID string, now time.Time) ([]model.PendingRequest, error) {
	args := m.Called(ctx, merchantID, now)
	requests, _ := args.Get(0).([]model.PendingRequest)
	return requests, args.Error(1)
}

func (m *MockDataSource) ExpireStaleRequests(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// Match methods

func (m *MockDataSource) ApplyMatch(ctx context.Context, application model.MatchApplication) error {
	args := m.Called(ctx, application)
	return args.Error(0)
}

func (m *MockDataSource) DismissMessage(ctx context.Context, id string, event model.AuditEvent) error {
	args := m.Called(ctx, id, event)
	return args.Error(0)
}

func (m *MockDataSource) GetMatchRecordsByRequest(ctx context.Context, requestID string) ([]model.MatchRecord, error) {
	args := m.Called(ctx, requestID)
	records, _ := args.Get(0).([]model.MatchRecord)
	return records, args.Error(1)
}

func (m *MockDataSource) GetSettlementsByRequest(ctx context.Context, requestID string) ([]model.SettlementTransaction, error) {
	args := m.Called(ctx, requestID)
	settlements, _ := args.Get(0).([]model.SettlementTransaction)
	return settlements, args.Error(1)
}

// Audit methods

func (m *MockDataSource) RecordAuditEvent(ctx context.Context, event model.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockDataSource) GetAuditEvents(ctx context.Context, entityID string) ([]model.AuditEvent, error) {
	args := m.Called(ctx, entityID)
	events, _ := args.Get(0).([]model.AuditEvent)
	return events, args.Error(1)
}
