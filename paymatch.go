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
	"embed"
	"time"

	"github.com/paymatch/paymatch/cache"
	"github.com/paymatch/paymatch/config"
	"github.com/paymatch/paymatch/database"
	redis_db "github.com/paymatch/paymatch/internal/redis-db"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

//go:embed sql/*.sql
var SQLFiles embed.FS

var tracer = otel.Tracer("paymatch.service")

// Paymatch is the matching engine. It owns no mutable state of its own: every
// decision is taken from freshly read storage, and collaborators are injected.
type Paymatch struct {
	datasource database.IDataSource
	redis      redis.UniversalClient
	events     EventPublisher
	dedupe     cache.Cache
	matching   config.MatchingConfig
	now        func() time.Time
}

// Option configures optional collaborators of a Paymatch.
type Option func(*Paymatch)

// WithRedis enables the per-request redis lock around match application.
func WithRedis(client redis.UniversalClient) Option {
	return func(p *Paymatch) { p.redis = client }
}

// WithEventPublisher sets where outbound events are published.
func WithEventPublisher(publisher EventPublisher) Option {
	return func(p *Paymatch) { p.events = publisher }
}

// WithDedupeCache enables submission de-duplication ahead of the database.
func WithDedupeCache(c cache.Cache) Option {
	return func(p *Paymatch) { p.dedupe = c }
}

func WithMatchingConfig(matching config.MatchingConfig) Option {
	return func(p *Paymatch) { p.matching = matching }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Paymatch) { p.now = now }
}

// New builds a Paymatch over db. Without options it runs with the default
// matching policy, no lock, no cache and no event publishing.
func New(db database.IDataSource, opts ...Option) *Paymatch {
	p := &Paymatch{
		datasource: db,
		matching:   config.DefaultMatching(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewPaymatch wires a Paymatch from the loaded configuration: redis for the
// request lock and the submission cache, and the asynq queue for events.
func NewPaymatch(db database.IDataSource) (*Paymatch, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	redisClient, err := redis_db.NewRedisClient([]string{configuration.Redis.Dns}, configuration.Redis.SkipTLSVerify)
	if err != nil {
		return nil, err
	}

	queue, err := NewQueue(configuration)
	if err != nil {
		return nil, err
	}

	return New(db,
		WithRedis(redisClient.Client()),
		WithDedupeCache(cache.NewRedisCache(redisClient.Client())),
		WithEventPublisher(queue),
		WithMatchingConfig(configuration.Matching),
	), nil
}

func (p *Paymatch) clock() time.Time {
	return p.now().UTC()
}

// persistenceContext bounds a single read or write against storage.
func (p *Paymatch) persistenceContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.matching.PersistenceTimeout())
}

// publish sends an outbound event. Delivery problems never fail the caller's
// operation, which has already been committed.
func (p *Paymatch) publish(ctx context.Context, event string, payload interface{}) {
	if p.events == nil {
		return
	}
	if err := p.events.Publish(ctx, newWebhook(event, payload, p.clock())); err != nil {
		logrus.WithError(err).WithField("event", event).Warn("failed to publish event")
	}
}

func actorPtr(actor string) *string {
	if actor == "" {
		return nil
	}
	return &actor
}
