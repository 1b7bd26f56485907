package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvProvider, "")
	t.Setenv(EnvOpenAIAPIKey, "")
	t.Setenv(EnvVoyageAPIKey, "")
}

func TestNewExplicitConfig(t *testing.T) {
	p, err := New(Config{Provider: "openai", APIKey: "key", Model: "text-embedding-3-large"})
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p.Name())
	assert.Equal(t, "text-embedding-3-large", p.Model())

	p, err = New(Config{Provider: "local"})
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, p.Name())

	// empty provider falls back to the offline one
	p, err = New(Config{})
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, p.Name())
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: "cohere"})
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}

func TestNewFromEnvExplicitSelection(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv(EnvProvider, "voyage")
	t.Setenv(EnvVoyageAPIKey, "vk")

	p, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ProviderVoyage, p.Name())
}

func TestNewFromEnvKeyPriority(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv(EnvOpenAIAPIKey, "ok")
	t.Setenv(EnvVoyageAPIKey, "vk")

	p, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p.Name(), "openai wins when both keys are present")
}

func TestNewFromEnvDefaultsToLocal(t *testing.T) {
	clearProviderEnv(t)

	p, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, p.Name())
}

func TestNewFromEnvMissingKey(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv(EnvProvider, "openai")

	_, err := NewFromEnv()
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
}

func TestDetectProvider(t *testing.T) {
	clearProviderEnv(t)
	assert.Equal(t, ProviderLocal, DetectProvider())

	t.Setenv(EnvVoyageAPIKey, "vk")
	assert.Equal(t, ProviderVoyage, DetectProvider())

	t.Setenv(EnvOpenAIAPIKey, "ok")
	assert.Equal(t, ProviderOpenAI, DetectProvider())

	t.Setenv(EnvProvider, "local")
	assert.Equal(t, ProviderLocal, DetectProvider())
}
