package cnn

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuranet/neuralnet"
	"neuranet/tensor"
)

func TestNetworkChainsStages(t *testing.T) {
	first := DefaultConfig()
	first.Filters, first.Padding = 2, 1
	first.PoolSize, first.PoolStride = 2, 2

	second := DefaultConfig()
	second.Filters, second.FilterRows, second.FilterCols, second.FilterLayers = 3, 2, 2, 2

	a, b := mustConvolution(t, first), mustConvolution(t, second)
	n := NewNetwork([]*Convolution{a, b})

	input := filled(8, 8, 1, 0.5)
	out, err := n.Compute(input)
	require.NoError(t, err)

	// 8x8 -> filtered 8x8x2 -> pooled 4x4x2 -> filtered 3x3x3
	assert.Equal(t, tensor.Shape{3, 3, 3}, out.Shape())

	mid, err := a.Forward(input)
	require.NoError(t, err)
	want, err := b.Forward(mid)
	require.NoError(t, err)
	assert.True(t, out.Equal(want, 0))

	flat, err := n.ComputeFlat(input)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{27, 1}, flat.Shape())
	assert.True(t, flat.Equal(want.Flatten(), 0))
}

func TestNetworkCopiesStages(t *testing.T) {
	stage := onesStage(t, DefaultConfig())
	n := NewNetwork([]*Convolution{stage})
	require.NoError(t, stage.SetBias(0, 100))

	out, err := n.Compute(filled(3, 3, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, []float64{9}, out.Data())

	stages := n.Stages()
	require.NoError(t, stages[0].SetBias(0, 100))
	assert.Equal(t, []float64{0}, n.Stages()[0].Biases())
}

func TestNetworkWithoutStages(t *testing.T) {
	input := filled(2, 2, 1, 3)
	out, err := NewNetwork(nil).Compute(input)
	require.NoError(t, err)
	assert.True(t, out.Equal(input, 0))
	assert.NotSame(t, input, out)
}

func TestNetworkReportsFailingStage(t *testing.T) {
	n := NewNetwork([]*Convolution{mustConvolution(t, DefaultConfig()), mustConvolution(t, DefaultConfig())})
	_, err := n.Compute(filled(4, 4, 1, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, tensor.ErrMalformedInput))
	assert.Contains(t, err.Error(), "stage 1")
}

func TestNetworkLogsStages(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Activation = neuralnet.ActivationReLU
	cfg.PoolSize, cfg.PoolStride = 3, 3
	n := NewNetwork([]*Convolution{mustConvolution(t, cfg)}, WithLogger(log.New(&buf, "", 0)))

	_, err := n.Compute(filled(5, 5, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, "stage 0 filtered [3 3 1] pooled [1 1 1]\n", buf.String())
}
