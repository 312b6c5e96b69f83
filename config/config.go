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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5001"

	DEFAULT_AMOUNT_TOLERANCE       = 100
	DEFAULT_AUTO_MATCH_THRESHOLD   = 100
	DEFAULT_PERSISTENCE_TIMEOUT_MS = 3000
	DEFAULT_LOCK_TIMEOUT_SEC       = 30
	DEFAULT_DEDUPE_TTL_SEC         = 86400

	DEFAULT_MONITORING_PORT    = "5004"
	DEFAULT_WORKER_CONCURRENCY = 5
	DEFAULT_EXPIRY_SCHEDULE    = "@every 1m"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"PAYMATCH_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"PAYMATCH_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"PAYMATCH_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"PAYMATCH_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"PAYMATCH_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"PAYMATCH_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns             string        `json:"dns" envconfig:"PAYMATCH_DATA_SOURCE_DNS"`
	MaxOpenConns    int           `json:"max_open_conns" envconfig:"PAYMATCH_DATA_SOURCE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `json:"max_idle_conns" envconfig:"PAYMATCH_DATA_SOURCE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" envconfig:"PAYMATCH_DATA_SOURCE_CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" envconfig:"PAYMATCH_DATA_SOURCE_CONN_MAX_IDLE_TIME"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"PAYMATCH_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"PAYMATCH_REDIS_SKIP_TLS_VERIFY"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"PAYMATCH_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"PAYMATCH_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"PAYMATCH_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"PAYMATCH_SLACK_WEBHOOK_URL"`
}

type OutboundWebhook struct {
	Url     string            `json:"url" envconfig:"PAYMATCH_WEBHOOK_URL"`
	Headers map[string]string `json:"headers"`
}

type Notification struct {
	Slack   SlackWebhook    `json:"slack"`
	Webhook OutboundWebhook `json:"webhook"`
}

// MatchingConfig holds the matching engine's policy knobs. Amounts are in
// minor currency units.
type MatchingConfig struct {
	AmountTolerance      *int64 `json:"amount_tolerance" envconfig:"PAYMATCH_MATCHING_AMOUNT_TOLERANCE"`
	AutoMatchThreshold   int    `json:"auto_match_threshold" envconfig:"PAYMATCH_MATCHING_AUTO_MATCH_THRESHOLD"`
	PersistenceTimeoutMs int    `json:"persistence_timeout_ms" envconfig:"PAYMATCH_MATCHING_PERSISTENCE_TIMEOUT_MS"`
	LockTimeoutSec       int    `json:"lock_timeout_sec" envconfig:"PAYMATCH_MATCHING_LOCK_TIMEOUT_SEC"`
	DedupeTTLSec         int    `json:"dedupe_ttl_sec" envconfig:"PAYMATCH_MATCHING_DEDUPE_TTL_SEC"`
}

func (m MatchingConfig) Tolerance() int64 {
	if m.AmountTolerance == nil {
		return DEFAULT_AMOUNT_TOLERANCE
	}
	return *m.AmountTolerance
}

func (m MatchingConfig) PersistenceTimeout() time.Duration {
	return time.Duration(m.PersistenceTimeoutMs) * time.Millisecond
}

func (m MatchingConfig) LockTimeout() time.Duration {
	return time.Duration(m.LockTimeoutSec) * time.Second
}

func (m MatchingConfig) DedupeTTL() time.Duration {
	return time.Duration(m.DedupeTTLSec) * time.Second
}

type QueueConfig struct {
	MonitoringPort string `json:"monitoring_port" envconfig:"PAYMATCH_QUEUE_MONITORING_PORT"`
	Concurrency    int    `json:"concurrency" envconfig:"PAYMATCH_QUEUE_CONCURRENCY"`
	ExpirySchedule string `json:"expiry_schedule" envconfig:"PAYMATCH_QUEUE_EXPIRY_SCHEDULE"`
}

func (q *QueueConfig) addDefaults() {
	if q.MonitoringPort == "" {
		q.MonitoringPort = DEFAULT_MONITORING_PORT
	}
	if q.Concurrency <= 0 {
		q.Concurrency = DEFAULT_WORKER_CONCURRENCY
	}
	if q.ExpirySchedule == "" {
		q.ExpirySchedule = DEFAULT_EXPIRY_SCHEDULE
	}
}

type TelemetryConfig struct {
	Enable       bool   `json:"enable" envconfig:"PAYMATCH_TELEMETRY_ENABLE"`
	PosthogKey   string `json:"posthog_key" envconfig:"PAYMATCH_TELEMETRY_POSTHOG_KEY"`
	OtlpEndpoint string `json:"otlp_endpoint" envconfig:"PAYMATCH_TELEMETRY_OTLP_ENDPOINT"`
}

type Configuration struct {
	ProjectName  string           `json:"project_name" envconfig:"PAYMATCH_PROJECT_NAME"`
	Server       ServerConfig     `json:"server"`
	DataSource   DataSourceConfig `json:"data_source"`
	Redis        RedisConfig      `json:"redis"`
	Notification Notification     `json:"notification"`
	RateLimit    RateLimitConfig  `json:"rate_limit"`
	Matching     MatchingConfig   `json:"matching"`
	Queue        QueueConfig      `json:"queue"`
	Telemetry    TelemetryConfig  `json:"telemetry"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("paymatch", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called paymatch.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Paymatch Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	cnf.DataSource.addDefaults()
	cnf.Matching.addDefaults()
	cnf.Queue.addDefaults()

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}

	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

func (d *DataSourceConfig) addDefaults() {
	if d.MaxOpenConns <= 0 {
		d.MaxOpenConns = 25
	}
	if d.MaxIdleConns <= 0 {
		d.MaxIdleConns = 10
	}
	if d.ConnMaxLifetime <= 0 {
		d.ConnMaxLifetime = 30 * time.Minute
	}
	if d.ConnMaxIdleTime <= 0 {
		d.ConnMaxIdleTime = 5 * time.Minute
	}
}

// A zero tolerance is a valid policy (exact matches only), so only unset or
// negative values are replaced.
func (m *MatchingConfig) addDefaults() {
	if m.AmountTolerance == nil || *m.AmountTolerance < 0 {
		tolerance := int64(DEFAULT_AMOUNT_TOLERANCE)
		m.AmountTolerance = &tolerance
	}
	if m.AutoMatchThreshold <= 0 || m.AutoMatchThreshold > 100 {
		m.AutoMatchThreshold = DEFAULT_AUTO_MATCH_THRESHOLD
	}
	if m.PersistenceTimeoutMs <= 0 {
		m.PersistenceTimeoutMs = DEFAULT_PERSISTENCE_TIMEOUT_MS
	}
	if m.LockTimeoutSec <= 0 {
		m.LockTimeoutSec = DEFAULT_LOCK_TIMEOUT_SEC
	}
	if m.DedupeTTLSec <= 0 {
		m.DedupeTTLSec = DEFAULT_DEDUPE_TTL_SEC
	}
}

// DefaultMatching returns the baseline matching policy.
func DefaultMatching() MatchingConfig {
	tolerance := int64(DEFAULT_AMOUNT_TOLERANCE)
	return MatchingConfig{
		AmountTolerance:      &tolerance,
		AutoMatchThreshold:   DEFAULT_AUTO_MATCH_THRESHOLD,
		PersistenceTimeoutMs: DEFAULT_PERSISTENCE_TIMEOUT_MS,
		LockTimeoutSec:       DEFAULT_LOCK_TIMEOUT_SEC,
		DedupeTTLSec:         DEFAULT_DEDUPE_TTL_SEC,
	}
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
