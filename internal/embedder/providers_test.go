package embedder

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProviderDeterministic(t *testing.T) {
	p := NewLocalProvider()

	first, err := p.EmbedBatch(context.Background(), []string{"def f(): pass"})
	require.NoError(t, err)
	second, err := p.EmbedBatch(context.Background(), []string{"def f(): pass"})
	require.NoError(t, err)

	assert.Equal(t, first[0], second[0])
	assert.Len(t, first[0], LocalDimension)
	assert.Equal(t, LocalDimension, p.Dimension())
}

func TestLocalProviderDistinguishesTexts(t *testing.T) {
	p := NewLocalProvider()

	vectors, err := p.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.NotEqual(t, vectors[0], vectors[1])
}

func TestLocalProviderUnitVectors(t *testing.T) {
	p := NewLocalProvider()

	vectors, err := p.EmbedBatch(context.Background(), []string{"some text"})
	require.NoError(t, err)

	var sum float64
	for _, v := range vectors[0] {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestProvidersRejectEmptyTexts(t *testing.T) {
	p := NewLocalProvider()

	_, err := p.EmbedBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = p.EmbedBatch(context.Background(), []string{"ok", ""})
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestNormalizeVector(t *testing.T) {
	v := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := []float32{0, 0}
	assert.Equal(t, zero, NormalizeVector(zero))
}

func TestHTTPProvidersRequireKeys(t *testing.T) {
	_, err := NewOpenAIProvider("", "")
	assert.ErrorIs(t, err, ErrNoProviderEnabled)

	_, err = NewVoyageProvider("", "")
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
}

func TestHTTPProviderDefaults(t *testing.T) {
	o, err := NewOpenAIProvider("key", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultOpenAIModel, o.Model())
	assert.Equal(t, OpenAIDimension, o.Dimension())

	v, err := NewVoyageProvider("key", "voyage-code-3")
	require.NoError(t, err)
	assert.Equal(t, "voyage-code-3", v.Model())
	assert.Equal(t, VoyageDimension, v.Dimension())
}
