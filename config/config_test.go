package config

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAndAddDefaults(t *testing.T) {
	// Test case with empty ProjectName and DataSource DNS
	cnf := Configuration{
		ProjectName: "",
		DataSource: DataSourceConfig{
			Dns: "",
		},
		Redis: RedisConfig{
			Dns: "localhost:6379",
		},
	}

	err := cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "data source DNS is required" {
		t.Errorf("Expected data source DNS required error, got %v", err)
	}
	cnf = Configuration{
		DataSource: DataSourceConfig{
			Dns: "postgres://localhost:5432",
		},
		Redis: RedisConfig{
			Dns: "",
		},
	}

	err = cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "redis DNS is required" {
		t.Errorf("Expected redis DNS required error, got %v", err)
	}

	cnf = Configuration{
		ProjectName: "Test Project",
		DataSource: DataSourceConfig{
			Dns: " some-dns ",
		},
		Redis: RedisConfig{
			Dns: "localhost:6379",
		},
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if cnf.Server.Port != DEFAULT_PORT {
		t.Errorf("Expected default port %s, got %s", DEFAULT_PORT, cnf.Server.Port)
	}
	if cnf.DataSource.Dns != "some-dns" {
		t.Errorf("Expected trimmed DNS, got %q", cnf.DataSource.Dns)
	}
}

func TestValidateAndAddDefaults_Matching(t *testing.T) {
	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: "some-dns"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
	}

	require.NoError(t, cnf.validateAndAddDefaults())

	assert.Equal(t, "Paymatch Server", cnf.ProjectName)
	assert.Equal(t, int64(DEFAULT_AMOUNT_TOLERANCE), cnf.Matching.Tolerance())
	assert.Equal(t, DEFAULT_AUTO_MATCH_THRESHOLD, cnf.Matching.AutoMatchThreshold)
	assert.Equal(t, 3*time.Second, cnf.Matching.PersistenceTimeout())
	assert.Equal(t, 30*time.Second, cnf.Matching.LockTimeout())
	assert.Equal(t, 24*time.Hour, cnf.Matching.DedupeTTL())
	assert.Equal(t, 25, cnf.DataSource.MaxOpenConns)
	assert.Equal(t, 10800, *cnf.RateLimit.CleanupIntervalSec)
	assert.Nil(t, cnf.RateLimit.RequestsPerSecond)
	assert.Equal(t, DEFAULT_MONITORING_PORT, cnf.Queue.MonitoringPort)
	assert.Equal(t, DEFAULT_WORKER_CONCURRENCY, cnf.Queue.Concurrency)
	assert.Equal(t, "@every 1m", cnf.Queue.ExpirySchedule)
}

func TestValidateAndAddDefaults_ZeroToleranceKept(t *testing.T) {
	zero := int64(0)
	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: "some-dns"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
		Matching:   MatchingConfig{AmountTolerance: &zero, AutoMatchThreshold: 150},
	}

	require.NoError(t, cnf.validateAndAddDefaults())

	assert.Equal(t, int64(0), cnf.Matching.Tolerance())
	assert.Equal(t, DEFAULT_AUTO_MATCH_THRESHOLD, cnf.Matching.AutoMatchThreshold)
}

func TestValidateAndAddDefaults_RateLimit(t *testing.T) {
	rps := 10.0
	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: "some-dns"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
		RateLimit:  RateLimitConfig{RequestsPerSecond: &rps},
	}

	require.NoError(t, cnf.validateAndAddDefaults())
	require.NotNil(t, cnf.RateLimit.Burst)
	assert.Equal(t, 20, *cnf.RateLimit.Burst)
}

func TestLoadConfigFromFile(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "paymatch.json")
	if err != nil {
		t.Fatalf("Unable to create temporary file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	sampleConfig := map[string]interface{}{
		"project_name": "Temp Project",
		"data_source":  map[string]interface{}{"dns": "temp-dns"},
		"redis":        map[string]interface{}{"dns": "temp-redis"},
		"matching":     map[string]interface{}{"amount_tolerance": 250},
	}
	if err := json.NewEncoder(tmpFile).Encode(sampleConfig); err != nil {
		t.Fatalf("Unable to write to temporary file: %v", err)
	}
	tmpFile.Close()

	t.Setenv("PAYMATCH_PROJECT_NAME", "Env Project")
	t.Setenv("PAYMATCH_MATCHING_DEDUPE_TTL_SEC", "60")

	if err := loadConfigFromFile(tmpFile.Name()); err != nil {
		t.Fatalf("loadConfigFromFile failed: %v", err)
	}

	loadedConfig, err := Fetch()
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	assert.Equal(t, "Env Project", loadedConfig.ProjectName)
	assert.Equal(t, "temp-dns", loadedConfig.DataSource.Dns)
	assert.Equal(t, int64(250), loadedConfig.Matching.Tolerance())
	assert.Equal(t, time.Minute, loadedConfig.Matching.DedupeTTL())
}

func TestInitConfig(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "paymatch.json")
	if err != nil {
		t.Fatalf("Unable to create temporary file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	sampleConfig := Configuration{
		ProjectName: "InitConfig Test",
		DataSource: DataSourceConfig{
			Dns: "init-config-dns",
		}, Redis: RedisConfig{
			Dns: "localhost:6379",
		},
	}
	if err := json.NewEncoder(tmpFile).Encode(sampleConfig); err != nil {
		t.Fatalf("Unable to write to temporary file: %v", err)
	}
	tmpFile.Close()

	if err := InitConfig(tmpFile.Name()); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	loadedConfig, err := Fetch()
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if loadedConfig.ProjectName != "InitConfig Test" {
		t.Errorf("Expected ProjectName to be 'InitConfig Test', got '%s'", loadedConfig.ProjectName)
	}
	if loadedConfig.DataSource.Dns != "init-config-dns" {
		t.Errorf("Expected DataSource.Dns to be 'init-config-dns', got '%s'", loadedConfig.DataSource.Dns)
	}
}

func TestMockConfig(t *testing.T) {
	MockConfig(&Configuration{ProjectName: "mocked"})

	cnf, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "mocked", cnf.ProjectName)
}
