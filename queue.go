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
	"errors"

	"github.com/hibiken/asynq"
	"github.com/paymatch/paymatch/config"
	redis_db "github.com/paymatch/paymatch/internal/redis-db"
)

const (
	WEBHOOK_QUEUE = "paymatch_webhooks"
	EXPIRY_QUEUE  = "paymatch_expiry"

	TaskExpireRequests = "paymatch:expire_requests"

	webhookMaxRetry = 10
)

// Queue represents a queue for handling background tasks.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// RedisClientOpt converts the configured redis DSN into asynq connection options.
func RedisClientOpt(conf *config.Configuration) (asynq.RedisClientOpt, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      redisOption.Addr,
		Username:  redisOption.Username,
		Password:  redisOption.Password,
		DB:        redisOption.DB,
		TLSConfig: redisOption.TLSConfig,
	}, nil
}

// NewQueue initializes a new Queue instance with the provided configuration.
func NewQueue(conf *config.Configuration) (*Queue, error) {
	queueOptions, err := RedisClientOpt(conf)
	if err != nil {
		return nil, err
	}
	return &Queue{
		Client:    asynq.NewClient(queueOptions),
		Inspector: asynq.NewInspector(queueOptions),
	}, nil
}

func newWebhookTask(event NewWebhook) (*asynq.Task, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(WEBHOOK_QUEUE, payload,
		asynq.Queue(WEBHOOK_QUEUE),
		asynq.TaskID(event.EventID),
		asynq.MaxRetry(webhookMaxRetry),
	), nil
}

// NewExpireRequestsTask builds the periodic task that expires stale requests.
func NewExpireRequestsTask() *asynq.Task {
	return asynq.NewTask(TaskExpireRequests, nil, asynq.Queue(EXPIRY_QUEUE), asynq.MaxRetry(0))
}

// Publish enqueues event for webhook delivery. Nothing is enqueued when no
// webhook URL is configured.
func (q *Queue) Publish(ctx context.Context, event NewWebhook) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	if conf.Notification.Webhook.Url == "" {
		return nil
	}

	task, err := newWebhookTask(event)
	if err != nil {
		return err
	}

	_, err = q.Client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}
