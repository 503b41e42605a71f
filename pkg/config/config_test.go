package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg := Load()

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "http://localhost:11434", cfg.InferenceEndpoint)
	assert.Equal(t, "llama3.2", cfg.PlannerModel)
	assert.Equal(t, "llava", cfg.VisionModel)
	assert.Equal(t, "nomic-embed-text", cfg.EmbeddingModel)

	assert.Equal(t, 10, cfg.MaxReplans)
	assert.Equal(t, 30*time.Second, cfg.PlanCallTimeout)
	assert.Equal(t, 30*time.Second, cfg.StepVerifyTimeout)
	assert.Equal(t, 2*time.Second, cfg.SecurityLLMTimeout)
	assert.Equal(t, 5*time.Second, cfg.EmbedTimeout)

	assert.InDelta(t, 0.7, cfg.VerifyThreshold, 0.0001)
	assert.Equal(t, 2, cfg.MemoryTopK)
	assert.Equal(t, 64, cfg.SubscriberBacklog)

	assert.Equal(t, "vector_memory.json", cfg.MemoryFile)
	assert.Equal(t, "memory.db", cfg.HistoryDB)
	assert.Equal(t, "logs/audit.log", cfg.AuditLog)

	assert.Equal(t, 5000, cfg.BrowseContentLimit)
	assert.Equal(t, 8000, cfg.ResearchContentLimit)
	assert.Equal(t, 50*time.Millisecond, cfg.TypeInterval)

	assert.Empty(t, cfg.LogFile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.AutomaticEnv()

	t.Setenv("INFERENCE_ENDPOINT", "http://models.internal:11434")
	t.Setenv("MAX_REPLANS", "3")
	t.Setenv("VERIFY_THRESHOLD", "0.9")

	cfg := Load()
	assert.Equal(t, "http://models.internal:11434", cfg.InferenceEndpoint)
	assert.Equal(t, 3, cfg.MaxReplans)
	assert.InDelta(t, 0.9, cfg.VerifyThreshold, 0.0001)
	assert.Equal(t, "llama3.2", cfg.PlannerModel, "untouched keys keep their defaults")
}

func TestLoad_ExplicitSetWins(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	viper.Set("port", 9100)
	viper.Set("plan_call_timeout", "45s")

	cfg := Load()
	require.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 45*time.Second, cfg.PlanCallTimeout)
}
