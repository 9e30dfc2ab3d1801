package compress

import (
	"testing"

	"github.com/nvr-ai/vehicle-vision/codec"
	"github.com/nvr-ai/vehicle-vision/images"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sizedEncoder returns payloads whose length is size(param) and records the
// parameters it was called with.
func sizedEncoder(size func(int) int, calls *[]int) encodeFunc {
	return func(param int) ([]byte, error) {
		*calls = append(*calls, param)
		return make([]byte, size(param)), nil
	}
}

func TestSearchJPEG(t *testing.T) {
	linear := func(q int) int { return q * 1000 }

	tests := []struct {
		name      string
		target    int
		wantParam int
		wantCalls []int
		converged bool
	}{
		{
			name:      "fits at start quality",
			target:    1 << 20,
			wantParam: 95,
			wantCalls: []int{95},
			converged: true,
		},
		{
			name:      "steps down until it fits",
			target:    62_000,
			wantParam: 60,
			wantCalls: []int{95, 90, 85, 80, 75, 70, 65, 60},
			converged: true,
		},
		{
			name:      "never fits",
			target:    100,
			wantParam: 5,
			wantCalls: []int{95, 90, 85, 80, 75, 70, 65, 60, 55, 50, 45, 40, 35, 30, 25, 20, 15, 10, 5},
			converged: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []int
			res, err := searchJPEG(tt.target, sizedEncoder(linear, &calls))
			require.NoError(t, err)

			assert.Equal(t, tt.wantCalls, calls)
			assert.Equal(t, tt.wantParam, res.Param)
			assert.Equal(t, len(tt.wantCalls), res.Iterations)
			assert.Equal(t, tt.converged, res.Converged)
			assert.LessOrEqual(t, res.Iterations, MaxIterations)
		})
	}
}

func TestSearchPNG(t *testing.T) {
	// Higher levels produce smaller output.
	shrinking := func(l int) int { return (10 - l) * 100 }

	tests := []struct {
		name      string
		target    int
		wantParam int
		wantCalls []int
		converged bool
	}{
		{name: "under budget moves up", target: 450, wantParam: 8, wantCalls: []int{6, 7, 8}, converged: true},
		{name: "over budget moves down", target: 100, wantParam: 1, wantCalls: []int{6, 3, 1}, converged: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []int
			res, err := searchPNG(tt.target, sizedEncoder(shrinking, &calls))
			require.NoError(t, err)

			assert.Equal(t, tt.wantCalls, calls)
			assert.Equal(t, tt.wantParam, res.Param)
			assert.Equal(t, tt.converged, res.Converged)
		})
	}
}

func TestSearchJPEG_BoundedWhenNothingFits(t *testing.T) {
	calls := 0
	res, err := searchJPEG(10, func(q int) ([]byte, error) {
		calls++
		return make([]byte, 20), nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, calls, MaxIterations)
	assert.False(t, res.Converged)
}

func TestSearch_PropagatesEncoderErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := searchPNG(10, func(int) ([]byte, error) { return nil, boom })
	require.Error(t, err)
	assert.Equal(t, boom, errors.Cause(err))
}

func smoothBuffer(t *testing.T, width, height, channels int) *images.PixelBuffer {
	t.Helper()
	buf, err := images.NewPixelBuffer(width, height, channels)
	require.NoError(t, err)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := buf.Offset(x, y)
			for c := 0; c < channels; c++ {
				buf.Pix[i+c] = uint8((x*255/width + y*255/height + c*40) / 2)
			}
		}
	}
	return buf
}

func TestJPEG_SizeBudget(t *testing.T) {
	src := smoothBuffer(t, 320, 240, 3)

	for _, target := range []int{500, 4_000, 12_000, 1 << 20} {
		res, err := JPEG(src, target)
		require.NoError(t, err)

		// Within budget, or the scan ran out at the lowest quality step.
		if res.Converged {
			assert.LessOrEqual(t, len(res.Encoded), target)
		} else {
			assert.LessOrEqual(t, res.Param-JPEGStep, JPEGMinQuality)
		}

		h, w, c := res.Pixels.Shape()
		assert.Equal(t, []int{240, 320, 3}, []int{h, w, c})
	}
}

func TestJPEG_KeepsGrayLayout(t *testing.T) {
	res, err := JPEG(smoothBuffer(t, 64, 64, 1), 1<<20)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pixels.Channels)
}

func TestJPEG_MonotonicSize(t *testing.T) {
	src := smoothBuffer(t, 200, 150, 3)

	previous := 0
	for q := JPEGMinQuality; q <= JPEGMaxQuality; q += 9 {
		enc, err := codec.EncodeJPEG(src, q)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, enc.Len(), previous, "quality=%d", q)
		previous = enc.Len()
	}
}

func TestPNG_DecodesLosslessly(t *testing.T) {
	src := smoothBuffer(t, 90, 60, 3)

	res, err := PNG(src, 1<<20)
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Equal(t, images.Checksum(src), images.Checksum(res.Pixels))
}

func TestCompress_Dispatch(t *testing.T) {
	src := smoothBuffer(t, 32, 32, 3)

	res, err := Compress(src, Target{Bytes: 1 << 20, Format: images.FormatJPEG})
	require.NoError(t, err)
	assert.Equal(t, JPEGStartQuality, res.Param)

	res, err = Compress(src, Target{Bytes: 1 << 20, Format: images.FormatPNG})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Param, PNGStartLevel)

	_, err = Compress(src, Target{Bytes: 1 << 20, Format: images.FormatWebP})
	assert.Error(t, err)
}

func TestCompress_RejectsRGBA(t *testing.T) {
	rgba, err := images.NewPixelBuffer(8, 8, 4)
	require.NoError(t, err)

	_, err = JPEG(rgba, 1000)
	assert.True(t, errors.Is(err, images.ErrUnsupportedChannelLayout))
}

func TestDownscale(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{name: "landscape", width: 1000, height: 600, wantW: 500, wantH: 300},
		{name: "portrait", width: 300, height: 900, wantW: 166, wantH: 500},
		{name: "square", width: 800, height: 800, wantW: 500, wantH: 500},
		{name: "small is scaled up", width: 250, height: 100, wantW: 500, wantH: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Downscale(smoothBuffer(t, tt.width, tt.height, 3), DefaultMaxSide, DefaultDownscaleQuality)
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, out.Width)
			assert.Equal(t, tt.wantH, out.Height)
			assert.Equal(t, 3, out.Channels)
		})
	}
}
