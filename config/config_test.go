package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	config := NewConfig()

	assert.Equal(t, "8080", config.ServerPort)
	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, 3, config.PipelineConfig.Workers)
	assert.Equal(t, 50, config.PipelineConfig.QueueSize)
	assert.True(t, config.PipelineConfig.BackpressureEnabled)
	assert.Equal(t, 0.8, config.PipelineConfig.RejectThreshold)
	assert.Equal(t, 3, config.PipelineConfig.MaxAttempts)
	assert.Equal(t, time.Second, config.PipelineConfig.RetryInitialBackoff)
	assert.Equal(t, 30*time.Second, config.PipelineConfig.RetryMaxBackoff)
	assert.Equal(t, 16, config.StreamConfig.BufferSize)
	assert.Equal(t, 30*time.Second, config.StreamConfig.HeartbeatInterval)
	assert.Equal(t, 2*time.Second, config.CacheConfig.ActiveTTL)
	assert.Equal(t, 10*time.Minute, config.CacheConfig.TerminalTTL)
	assert.Empty(t, config.DigestUserIDs)
}

func TestNewConfigEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("PIPELINE_WORKERS", "8")
	t.Setenv("PIPELINE_REJECT_THRESHOLD", "0.5")
	t.Setenv("PIPELINE_RETRY_INITIAL_BACKOFF", "250ms")
	t.Setenv("STREAM_BUFFER_SIZE", "64")
	t.Setenv("STREAM_HEARTBEAT_INTERVAL", "10s")
	t.Setenv("USE_MOCK_SERVICES", "true")
	t.Setenv("DIGEST_USER_IDS", "10, 20,30")

	config := NewConfig()

	assert.Equal(t, "9090", config.ServerPort)
	assert.Equal(t, 8, config.PipelineConfig.Workers)
	assert.Equal(t, 0.5, config.PipelineConfig.RejectThreshold)
	assert.Equal(t, 250*time.Millisecond, config.PipelineConfig.RetryInitialBackoff)
	assert.Equal(t, 64, config.StreamConfig.BufferSize)
	assert.Equal(t, 10*time.Second, config.StreamConfig.HeartbeatInterval)
	assert.True(t, config.UseMockServices)
	assert.Equal(t, []int64{10, 20, 30}, config.DigestUserIDs)
}

func TestNewConfigIgnoresMalformedValues(t *testing.T) {
	t.Setenv("PIPELINE_WORKERS", "lots")
	t.Setenv("PIPELINE_REJECT_THRESHOLD", "most")
	t.Setenv("STREAM_IDLE_GRACE", "soon")

	config := NewConfig()
	assert.Equal(t, 3, config.PipelineConfig.Workers)
	assert.Equal(t, 0.8, config.PipelineConfig.RejectThreshold)
	assert.Equal(t, 30*time.Second, config.StreamConfig.IdleGrace)
}

func TestValidateRequiresProjectID(t *testing.T) {
	config := NewConfig()
	config.ProjectID = ""
	config.UseMockServices = false

	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROJECT_ID")
}

func TestValidateMockModeNeedsNoProject(t *testing.T) {
	config := NewConfig()
	config.ProjectID = ""
	config.UseMockServices = true

	assert.NoError(t, config.Validate())
}

func TestValidateRejectsNonPositiveSizes(t *testing.T) {
	config := NewConfig()
	config.UseMockServices = true

	config.PipelineConfig.Workers = 0
	assert.Error(t, config.Validate())

	config.PipelineConfig.Workers = 3
	config.StreamConfig.BufferSize = 0
	assert.Error(t, config.Validate())
}

func TestNewServicesWithMocks(t *testing.T) {
	config := NewConfig()
	config.UseMockServices = true
	config.DigestUserIDs = []int64{10}

	services, err := NewServices(config)
	require.NoError(t, err)
	defer services.Close()

	require.NotNil(t, services.Container)

	handler, err := services.Container.GetHandler()
	require.NoError(t, err)
	assert.NotNil(t, handler)

	scheduler, err := services.Container.GetScheduler()
	require.NoError(t, err)
	assert.NotNil(t, scheduler)

	broadcaster, err := services.Container.GetBroadcaster()
	require.NoError(t, err)
	assert.NotNil(t, broadcaster)

	// No Datastore client in mock mode, so no readiness probe for it.
	assert.Nil(t, services.Container.DatastoreProbe())
}
