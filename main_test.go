package main

import (
	"bytes"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuranet/tensor"
)

func TestOneHotEncode(t *testing.T) {
	out, err := oneHotEncode([]int{2, 0}, 3)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, tensor.Shape{3, 1}, out[0].Shape())
	assert.Equal(t, []float64{0, 0, 1}, out[0].Data())
	assert.Equal(t, []float64{1, 0, 0}, out[1].Data())

	_, err = oneHotEncode([]int{3}, 3)
	assert.True(t, errors.Is(err, tensor.ErrMalformedInput))

	out, err = oneHotEncode(nil, 3)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestParseFlags(t *testing.T) {
	o, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, 5000, o.epochs)
	assert.Equal(t, 4, o.hidden)

	o, err = parseFlags([]string{"-epochs", "3", "-lr", "0.5", "-workers", "2"})
	require.NoError(t, err)
	assert.Equal(t, 3, o.epochs)
	assert.Equal(t, 0.5, o.lr)
	assert.Equal(t, 2, o.workers)

	_, err = parseFlags([]string{"-nope"})
	assert.Error(t, err)
}

func TestRunLogs(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, run([]string{"-epochs", "2", "-v"}, &buf))
	assert.Contains(t, buf.String(), "epoch 1 loss ")
	assert.Contains(t, buf.String(), "xor: loss ")
	assert.Contains(t, buf.String(), "stage 0 filtered [16 16 2] pooled [16 16 2]")
}

func TestRunRejectsBadHiddenSize(t *testing.T) {
	var buf bytes.Buffer
	err := run([]string{"-hidden", "0"}, &buf)
	assert.True(t, errors.Is(err, tensor.ErrMalformedInput))
}

func TestDetectEdges(t *testing.T) {
	var buf bytes.Buffer
	o, err := parseFlags([]string{"-edges", filepath.Join(t.TempDir(), "edges.png")})
	require.NoError(t, err)

	edges, err := detectEdges(o, log.New(&buf, "", 0))
	require.NoError(t, err)

	// left border of the square, normalised to the strongest response
	v, err := edges.At(8, 4, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
	v, err = edges.At(8, 8, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	file, err := os.Open(o.edges)
	require.NoError(t, err)
	defer file.Close()
	img, err := png.Decode(file)
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 16, img.Bounds().Dy())
	assert.Contains(t, buf.String(), "edge map saved as")
}
