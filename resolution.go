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
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hibiken/asynq"
	"github.com/paymatch/paymatch/database"
	"github.com/paymatch/paymatch/internal/apierror"
	redlock "github.com/paymatch/paymatch/internal/lock"
	"github.com/paymatch/paymatch/internal/scorer"
	"github.com/paymatch/paymatch/model"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const defaultReviewPageSize = 50

// applyMatch settles request with the given evidence. msg is nil for a
// verification without SMS. The redis lock narrows the race window; the
// conditional update inside ApplyMatch decides the winner.
func (p *Paymatch) applyMatch(ctx context.Context, msg *model.IncomingMessage, request model.PendingRequest, score int, matchType model.MatchType, actor *string, note string) (*model.MatchRecord, error) {
	ctx, span := tracer.Start(ctx, "ApplyMatch")
	defer span.End()
	span.SetAttributes(attribute.String("request.id", request.RequestID), attribute.String("match.type", string(matchType)))

	if p.redis != nil {
		locker := redlock.NewLocker(p.redis, redlock.RequestLockKey(request.RequestID), model.GenerateUUIDWithSuffix("lock"))
		if err := locker.WaitLock(ctx, p.matching.LockTimeout(), p.matching.PersistenceTimeout()); err != nil {
			span.RecordError(err)
			return nil, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Pending request with ID '%s' is being settled by another action", request.RequestID), err)
		}
		defer func() {
			if err := locker.Unlock(context.Background()); err != nil {
				logrus.WithError(err).WithField("request_id", request.RequestID).Warn("failed to release request lock")
			}
		}()
	}

	application := p.newApplication(msg, request, score, matchType, actor, note)

	writeCtx, cancel := p.persistenceContext(ctx)
	defer cancel()
	if err := p.datasource.ApplyMatch(writeCtx, application); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &application.Record, nil
}

func (p *Paymatch) newApplication(msg *model.IncomingMessage, request model.PendingRequest, score int, matchType model.MatchType, actor *string, note string) model.MatchApplication {
	now := p.clock()

	var messageID, utr *string
	amount := request.Amount
	method := model.SettlementMethodManual
	action := model.AuditRequestVerified
	status := model.MessageManuallyMatched

	if msg != nil {
		id := msg.MessageID
		messageID = &id
		utr = msg.Signal.UTR
		if msg.Signal.Amount != nil {
			amount = *msg.Signal.Amount
		}
		method = model.SettlementMethodSMS
		action = model.AuditManuallyMatched
	}
	if matchType == model.MatchTypeAuto {
		action = model.AuditAutoMatched
		status = model.MessageAutoMatched
	}

	record := model.MatchRecord{
		RecordID:  model.GenerateUUIDWithSuffix("match"),
		RequestID: request.RequestID,
		MessageID: messageID,
		Score:     score,
		MatchType: matchType,
		Actor:     actor,
		Note:      note,
		CreatedAt: now,
	}

	audit := model.NewAuditEvent(request.RequestID, action, actor, note, now)
	audit.Data["record_id"] = record.RecordID
	audit.Data["score"] = score
	audit.Data["amount"] = amount
	if messageID != nil {
		audit.Data["message_id"] = *messageID
	}

	return model.MatchApplication{
		RequestID:     request.RequestID,
		MessageID:     messageID,
		MessageStatus: status,
		SettledAt:     now,
		Settlement: model.SettlementTransaction{
			TransactionID: model.GenerateUUIDWithSuffix("txn"),
			RequestID:     request.RequestID,
			MessageID:     messageID,
			Amount:        amount,
			UTR:           utr,
			Method:        method,
			CreatedAt:     now,
		},
		Record: record,
		Audit:  audit,
	}
}

// eligibleRequest loads a request and checks it can still be settled.
func (p *Paymatch) eligibleRequest(ctx context.Context, requestID string) (*model.PendingRequest, error) {
	request, err := p.datasource.GetPendingRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !request.IsEligible(p.clock()) {
		return nil, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Pending request with ID '%s' is %s and cannot be settled", requestID, request.Status), database.ErrRequestNotAwaiting)
	}
	return request, nil
}

// ManualMatch settles requestID with the message an operator picked from the
// review queue. A stale request or an already resolved message is a conflict
// and leaves both untouched.
func (p *Paymatch) ManualMatch(ctx context.Context, messageID, requestID, actor, note string) (*model.MatchRecord, error) {
	ctx, span := tracer.Start(ctx, "ManualMatch")
	defer span.End()

	msg, err := p.datasource.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Status.IsTerminal() {
		return nil, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Message with ID '%s' has already been processed", messageID), database.ErrMessageAlreadyProcessed)
	}

	request, err := p.eligibleRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.MerchantID != msg.MerchantID {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Pending request belongs to a different merchant than the message", nil)
	}

	score := 0
	for _, candidate := range scorer.Score(msg.Signal, []model.PendingRequest{*request}, scorer.Options{Tolerance: p.matching.Tolerance()}) {
		score = candidate.Score
	}

	record, err := p.applyMatch(ctx, msg, *request, score, model.MatchTypeManual, actorPtr(actor), note)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"message_id": messageID, "request_id": requestID, "actor": actor}).Info("message manually matched")
	p.publish(ctx, EventManuallyMatched, record)
	return record, nil
}

// VerifyRequest settles a request without SMS evidence, for payments the
// operator confirmed by other means.
func (p *Paymatch) VerifyRequest(ctx context.Context, requestID, actor, note string) (*model.MatchRecord, error) {
	ctx, span := tracer.Start(ctx, "VerifyRequest")
	defer span.End()

	request, err := p.eligibleRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	record, err := p.applyMatch(ctx, nil, *request, 0, model.MatchTypeManual, actorPtr(actor), note)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"request_id": requestID, "actor": actor}).Info("request manually verified")
	p.publish(ctx, EventRequestVerified, record)
	return record, nil
}

// Dismiss marks a message under review as not matchable. No settlement or
// match record is written; the dismissal is kept in the audit trail.
func (p *Paymatch) Dismiss(ctx context.Context, messageID, actor, note string) (*model.IncomingMessage, error) {
	ctx, span := tracer.Start(ctx, "Dismiss")
	defer span.End()

	msg, err := p.datasource.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	event := model.NewAuditEvent(messageID, model.AuditDismissed, actorPtr(actor), note, p.clock())
	event.Data["status_before"] = string(msg.Status)
	event.Data["candidate_count"] = msg.CandidateCount

	if err := p.datasource.DismissMessage(ctx, messageID, event); err != nil {
		return nil, err
	}

	msg.Status = model.MessageDismissed
	msg.ProcessedAt = &event.CreatedAt
	logrus.WithFields(logrus.Fields{"message_id": messageID, "actor": actor}).Info("message dismissed")
	p.publish(ctx, EventDismissed, msg)
	return msg, nil
}

// Candidates ranks the merchant's currently eligible requests for a message.
// The list is recomputed on every call.
func (p *Paymatch) Candidates(ctx context.Context, messageID string) ([]model.MatchCandidate, error) {
	msg, err := p.datasource.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return p.liveCandidates(ctx, msg)
}

// ReviewQueue lists messages awaiting manual action, oldest first.
func (p *Paymatch) ReviewQueue(ctx context.Context, merchantID string, limit, offset int) ([]model.ReviewEntry, error) {
	if limit <= 0 {
		limit = defaultReviewPageSize
	}
	if offset < 0 {
		offset = 0
	}

	messages, err := p.datasource.ListReviewQueue(ctx, merchantID, limit, offset)
	if err != nil {
		return nil, err
	}

	entries := make([]model.ReviewEntry, 0, len(messages))
	for _, msg := range messages {
		entries = append(entries, model.ReviewEntry{IncomingMessage: msg, Label: msg.ReviewLabel()})
	}
	return entries, nil
}

func (p *Paymatch) GetMessage(ctx context.Context, messageID string) (*model.IncomingMessage, error) {
	return p.datasource.GetMessage(ctx, messageID)
}

// CreatePendingRequest opens a request for settlement.
func (p *Paymatch) CreatePendingRequest(ctx context.Context, request model.PendingRequest) (*model.PendingRequest, error) {
	now := p.clock()
	err := validation.ValidateStruct(&request,
		validation.Field(&request.MerchantID, validation.Required),
		validation.Field(&request.Amount, validation.Required, validation.Min(int64(1))),
		validation.Field(&request.ExpiresAt, validation.By(func(value interface{}) error {
			if request.IsExpired(now) {
				return errors.New("must be in the future")
			}
			return nil
		})),
	)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), nil)
	}

	if request.RequestID == "" {
		request.RequestID = model.GenerateUUIDWithSuffix("req")
	}
	request.Status = model.RequestAwaiting
	request.CreatedAt = now
	request.SettledAt = nil

	if err := p.datasource.CreatePendingRequest(ctx, &request); err != nil {
		return nil, err
	}
	return &request, nil
}

func (p *Paymatch) GetPendingRequest(ctx context.Context, requestID string) (*model.PendingRequest, error) {
	return p.datasource.GetPendingRequest(ctx, requestID)
}

// GetMatchRecords returns the match records written against a request.
func (p *Paymatch) GetMatchRecords(ctx context.Context, requestID string) ([]model.MatchRecord, error) {
	return p.datasource.GetMatchRecordsByRequest(ctx, requestID)
}

func (p *Paymatch) GetSettlements(ctx context.Context, requestID string) ([]model.SettlementTransaction, error) {
	return p.datasource.GetSettlementsByRequest(ctx, requestID)
}

// GetAuditTrail returns the audit events recorded for a message, request or device.
func (p *Paymatch) GetAuditTrail(ctx context.Context, entityID string) ([]model.AuditEvent, error) {
	return p.datasource.GetAuditEvents(ctx, entityID)
}

// ExpireStaleRequests moves awaiting requests past their expiry to expired.
func (p *Paymatch) ExpireStaleRequests(ctx context.Context) (int64, error) {
	expired, err := p.datasource.ExpireStaleRequests(ctx, p.clock())
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		logrus.WithField("count", expired).Info("expired stale pending requests")
	}
	return expired, nil
}

// ProcessExpireRequests is the asynq handler for TaskExpireRequests.
func (p *Paymatch) ProcessExpireRequests(ctx context.Context, _ *asynq.Task) error {
	_, err := p.ExpireStaleRequests(ctx)
	return err
}
