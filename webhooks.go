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
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/paymatch/paymatch/config"
	"github.com/paymatch/paymatch/internal/request"
	"github.com/paymatch/paymatch/model"
	"github.com/sirupsen/logrus"
)

const (
	EventAutoMatched     = "match.auto"
	EventManuallyMatched = "match.manual"
	EventNeedsReview     = "message.needs_review"
	EventDismissed       = "message.dismissed"
	EventRequestVerified = "request.verified"
)

// NewWebhook represents the structure of a webhook notification.
type NewWebhook struct {
	EventID   string      `json:"event_id"`
	Event     string      `json:"event"`
	Payload   interface{} `json:"data"`
	CreatedAt time.Time   `json:"created_at"`
}

// EventPublisher hands outbound events to a delivery mechanism.
type EventPublisher interface {
	Publish(ctx context.Context, event NewWebhook) error
}

func newWebhook(event string, payload interface{}, at time.Time) NewWebhook {
	return NewWebhook{
		EventID:   model.GenerateUUIDWithSuffix("evt"),
		Event:     event,
		Payload:   payload,
		CreatedAt: at,
	}
}

// ProcessWebhook delivers a queued event to the configured webhook URL. A
// failed delivery is returned so asynq retries it; an undecodable payload is
// not retried.
func ProcessWebhook(ctx context.Context, task *asynq.Task) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}

	if conf.Notification.Webhook.Url == "" {
		return nil
	}

	var payload NewWebhook
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("error unmarshaling webhook payload: %v: %w", err, asynq.SkipRetry)
	}

	logrus.WithFields(logrus.Fields{"event": payload.Event, "event_id": payload.EventID}).Info("delivering webhook")
	_, err = request.PostJSON(ctx, conf.Notification.Webhook.Url, conf.Notification.Webhook.Headers, payload)
	return err
}
