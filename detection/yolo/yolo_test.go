package yolo

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/vehicle-vision/detection"
	"github.com/nvr-ai/vehicle-vision/images"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnchors(t *testing.T) {
	assert.Equal(t, 8400, Anchors(640))
	assert.Equal(t, 2100, Anchors(320))
}

func TestParseProvider(t *testing.T) {
	for in, want := range map[string]ExecutionProvider{
		"":         ProviderCPU,
		"CPU":      ProviderCPU,
		"cuda":     ProviderCUDA,
		" CoreML ": ProviderCoreML,
		"openvino": ProviderOpenVINO,
	} {
		got, err := ParseProvider(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseProvider("tpu")
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := DefaultConfig()
	valid.ModelPath = "model.onnx"
	valid.Labels = detection.PlateVehicleLabels
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "no model", mutate: func(c *Config) { c.ModelPath = "" }},
		{name: "odd input size", mutate: func(c *Config) { c.InputSize = 600 }},
		{name: "no labels", mutate: func(c *Config) { c.Labels = nil }},
		{name: "confidence above one", mutate: func(c *Config) { c.Confidence = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNew_MissingModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelPath = filepath.Join(t.TempDir(), "missing.onnx")
	cfg.Labels = detection.PlateVehicleLabels

	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, images.ErrAssetMissing))
}

func TestPrepareInput(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 0, B: 51, A: 255})
		}
	}

	const size = 32
	dst := make([]float32, 3*size*size)
	require.NoError(t, PrepareInput(img, size, dst))

	assert.InDelta(t, 1.0, dst[0], 1e-3)
	assert.InDelta(t, 0.0, dst[size*size], 1e-3)
	assert.InDelta(t, 0.2, dst[2*size*size], 1e-2)

	assert.Error(t, PrepareInput(img, size, make([]float32, 10)))
}

// syntheticOutput builds a 1 x (4+classes) x anchors tensor.
func syntheticOutput(classes, anchors int, boxes map[int][5]float32) []float32 {
	data := make([]float32, (4+classes)*anchors)
	for idx, b := range boxes {
		data[idx] = b[0]
		data[anchors+idx] = b[1]
		data[2*anchors+idx] = b[2]
		data[3*anchors+idx] = b[3]
		data[anchors*(4+int(b[4]))+idx] = 0.9
	}
	return data
}

func TestDecode(t *testing.T) {
	shape := Output{Classes: 2, Anchors: 10, InputSize: 100}
	data := syntheticOutput(2, 10, map[int][5]float32{
		0: {50, 50, 20, 10, 1}, // class 1 centered box
		1: {51, 50, 20, 10, 1}, // duplicate, suppressed
		2: {51, 50, 20, 10, 0}, // same place, other class, kept
		3: {98, 98, 10, 10, 0}, // clamped to the image
	})
	data[10*4+5] = 0.1 // anchor 5 scores below the threshold

	dets, err := Decode(data, shape, 200, 100, 0.25, 0.7)
	require.NoError(t, err)
	require.Len(t, dets, 3)

	var classOne detection.Detection
	for _, d := range dets {
		if d.ClassIndex == 1 {
			classOne = d
		}
	}
	assert.InDelta(t, 80, classOne.Box[0], 1e-3)
	assert.InDelta(t, 45, classOne.Box[1], 1e-3)
	assert.InDelta(t, 120, classOne.Box[2], 1e-3)
	assert.InDelta(t, 55, classOne.Box[3], 1e-3)
	assert.InDelta(t, 0.9, classOne.Confidence, 1e-6)

	for _, d := range dets {
		assert.LessOrEqual(t, d.Box[2], float32(200))
		assert.LessOrEqual(t, d.Box[3], float32(100))
	}

	_, err = Decode(data[:5], shape, 200, 100, 0.25, 0.7)
	assert.Error(t, err)
}
