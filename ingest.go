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
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/paymatch/paymatch/cache"
	"github.com/paymatch/paymatch/database"
	"github.com/paymatch/paymatch/internal/apierror"
	"github.com/paymatch/paymatch/internal/notification"
	"github.com/paymatch/paymatch/internal/scorer"
	"github.com/paymatch/paymatch/internal/smsparser"
	"github.com/paymatch/paymatch/model"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

func submissionCacheKey(hash string) string {
	return fmt.Sprintf("paymatch:submission:%s", hash)
}

func validateSubmission(sub model.Submission) error {
	return validation.ValidateStruct(&sub,
		validation.Field(&sub.DeviceID, validation.Required),
		validation.Field(&sub.Credential, validation.Required),
		validation.Field(&sub.Text, validation.By(func(value interface{}) error {
			if strings.TrimSpace(value.(string)) == "" {
				return errors.New("cannot be blank")
			}
			return nil
		})),
		validation.Field(&sub.ReceivedAt, validation.Required),
	)
}

// IngestMessage admits a submission from an authenticated device, parses it,
// persists it and resolves it synchronously. A repeated submission of the same
// device, text and received-at returns the original message marked duplicate.
func (p *Paymatch) IngestMessage(ctx context.Context, sub model.Submission) (*model.IngestResult, error) {
	ctx, span := tracer.Start(ctx, "IngestMessage")
	defer span.End()

	if err := validateSubmission(sub); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), nil)
	}

	device, err := p.AuthenticateDevice(ctx, sub.DeviceID, sub.Credential)
	if err != nil {
		return nil, err
	}

	hash := model.HashSubmission(device.DeviceID, sub.ReceivedAt.UTC().Format(time.RFC3339Nano), sub.Text)
	if existing := p.cachedSubmission(ctx, hash); existing != nil {
		return p.resumeDuplicate(ctx, existing)
	}

	msg := &model.IncomingMessage{
		MessageID:      model.GenerateUUIDWithSuffix("msg"),
		DeviceID:       device.DeviceID,
		MerchantID:     device.MerchantID,
		Sender:         sub.Sender,
		RawText:        sub.Text,
		ReceivedAt:     sub.ReceivedAt.UTC(),
		MetaData:       sub.MetaData,
		Signal:         smsparser.Parse(sub.Text),
		Status:         model.MessageUnprocessed,
		CreatedAt:      p.clock(),
		SubmissionHash: hash,
	}

	if err := p.datasource.RecordMessage(ctx, msg); err != nil {
		if !errors.Is(err, database.ErrDuplicateSubmission) {
			return nil, err
		}
		existing, getErr := p.datasource.GetMessageBySubmission(ctx, hash)
		if getErr != nil {
			return nil, getErr
		}
		p.rememberSubmission(ctx, hash, existing.MessageID)
		return p.resumeDuplicate(ctx, existing)
	}
	p.rememberSubmission(ctx, hash, msg.MessageID)

	span.SetAttributes(attribute.String("message.id", msg.MessageID))
	logrus.WithFields(logrus.Fields{
		"message_id": msg.MessageID,
		"device_id":  msg.DeviceID,
		"confidence": msg.Signal.Confidence(),
	}).Info("message recorded")

	decision, err := p.ProcessMessage(ctx, msg)
	if err != nil {
		return nil, err
	}
	return &model.IngestResult{Message: msg, Decision: decision}, nil
}

// resumeDuplicate answers a repeated submission with the stored message. A
// message whose earlier processing did not finish is processed again, so a
// device retry after a failure still moves it out of unprocessed.
func (p *Paymatch) resumeDuplicate(ctx context.Context, existing *model.IncomingMessage) (*model.IngestResult, error) {
	result := &model.IngestResult{Message: existing, Duplicate: true}
	if existing.Status != model.MessageUnprocessed {
		return result, nil
	}

	logrus.WithField("message_id", existing.MessageID).Info("reprocessing unprocessed message on resubmission")
	decision, err := p.ProcessMessage(ctx, existing)
	if err != nil {
		if !errors.Is(err, database.ErrMessageAlreadyProcessed) {
			return nil, err
		}
		current, getErr := p.datasource.GetMessage(ctx, existing.MessageID)
		if getErr != nil {
			return nil, getErr
		}
		result.Message = current
		return result, nil
	}
	result.Decision = decision
	return result, nil
}

func (p *Paymatch) cachedSubmission(ctx context.Context, hash string) *model.IncomingMessage {
	if p.dedupe == nil {
		return nil
	}
	var messageID string
	if err := p.dedupe.Get(ctx, submissionCacheKey(hash), &messageID); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			logrus.WithError(err).Warn("submission cache lookup failed")
		}
		return nil
	}
	msg, err := p.datasource.GetMessage(ctx, messageID)
	if err != nil {
		return nil
	}
	return msg
}

func (p *Paymatch) rememberSubmission(ctx context.Context, hash, messageID string) {
	if p.dedupe == nil {
		return
	}
	if err := p.dedupe.Set(ctx, submissionCacheKey(hash), messageID, p.matching.DedupeTTL()); err != nil {
		logrus.WithError(err).Warn("failed to cache submission")
	}
}

// DecideMatch applies the resolution rule to a ranked candidate list. The top
// candidate auto-matches only when its score reaches threshold and no other
// candidate shares that score.
func DecideMatch(signal model.ParsedSignal, candidates []model.MatchCandidate, threshold int) model.MatchDecision {
	if len(candidates) == 0 {
		return model.Unidentified(signal)
	}

	top := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score > top.Score {
			top = c
		}
	}

	tied := 0
	for _, c := range candidates {
		if c.Score == top.Score {
			tied++
		}
	}

	if top.Score >= threshold && tied == 1 {
		return model.AutoMatched(top.Request, signal, top.Score)
	}
	return model.NeedsReview(signal, candidates)
}

// ProcessMessage scores an unprocessed message against the merchant's eligible
// requests and applies the decision. Storage timeouts or a lost race route the
// message to review; only a message that was already resolved is an error.
func (p *Paymatch) ProcessMessage(ctx context.Context, msg *model.IncomingMessage) (*model.MatchDecision, error) {
	ctx, span := tracer.Start(ctx, "ProcessMessage")
	defer span.End()
	span.SetAttributes(attribute.String("message.id", msg.MessageID))

	candidates, err := p.liveCandidates(ctx, msg)
	if err != nil {
		logrus.WithError(err).WithField("message_id", msg.MessageID).Warn("could not load eligible requests, routing to review")
		decision := model.NeedsReview(msg.Signal, nil)
		return &decision, p.recordOutcome(ctx, msg, decision)
	}

	decision := DecideMatch(msg.Signal, candidates, p.matching.AutoMatchThreshold)
	if decision.Kind == model.DecisionAutoMatched {
		_, err := p.applyMatch(ctx, msg, *decision.Request, decision.Score, model.MatchTypeAuto, nil, "")
		if err == nil {
			msg.Status = model.MessageAutoMatched
			processedAt := p.clock()
			msg.ProcessedAt = &processedAt
			p.logDecision(msg, decision)
			p.publish(ctx, EventAutoMatched, decision)
			return &decision, nil
		}
		if errors.Is(err, database.ErrMessageAlreadyProcessed) {
			return nil, err
		}

		logrus.WithError(err).WithField("message_id", msg.MessageID).Warn("auto match could not be applied, routing to review")
		decision = model.NeedsReview(msg.Signal, candidates)
	}

	if err := p.recordOutcome(ctx, msg, decision); err != nil {
		return nil, err
	}
	return &decision, nil
}

func (p *Paymatch) liveCandidates(ctx context.Context, msg *model.IncomingMessage) ([]model.MatchCandidate, error) {
	readCtx, cancel := p.persistenceContext(ctx)
	defer cancel()

	requests, err := p.datasource.GetEligibleRequests(readCtx, msg.MerchantID, p.clock())
	if err != nil {
		return nil, err
	}
	return scorer.Score(msg.Signal, requests, scorer.Options{Tolerance: p.matching.Tolerance()}), nil
}

// recordOutcome moves an unprocessed message into review.
func (p *Paymatch) recordOutcome(ctx context.Context, msg *model.IncomingMessage, decision model.MatchDecision) error {
	processedAt := p.clock()
	err := p.datasource.UpdateMessageOutcome(ctx, msg.MessageID, decision.MessageStatus(), len(decision.Candidates), processedAt)
	if err != nil {
		if !errors.Is(err, database.ErrMessageAlreadyProcessed) {
			notification.NotifyError(err)
		}
		return err
	}

	msg.Status = decision.MessageStatus()
	msg.CandidateCount = len(decision.Candidates)
	msg.ProcessedAt = &processedAt
	p.logDecision(msg, decision)
	p.publish(ctx, EventNeedsReview, map[string]interface{}{
		"message_id": msg.MessageID,
		"label":      msg.ReviewLabel(),
		"decision":   decision,
	})
	return nil
}

func (p *Paymatch) logDecision(msg *model.IncomingMessage, decision model.MatchDecision) {
	fields := logrus.Fields{
		"message_id": msg.MessageID,
		"decision":   decision.Kind,
		"candidates": len(decision.Candidates),
	}
	if decision.Request != nil {
		fields["request_id"] = decision.Request.RequestID
	}
	logrus.WithFields(fields).Info("message resolved")
}
