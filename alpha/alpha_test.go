package alpha

import (
	"testing"

	"github.com/nvr-ai/vehicle-vision/codec"
	"github.com/nvr-ai/vehicle-vision/images"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rgbaBuffer(t *testing.T, width, height int) *images.PixelBuffer {
	t.Helper()
	buf, err := images.NewPixelBuffer(width, height, 4)
	require.NoError(t, err)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := buf.Offset(x, y)
			buf.Pix[i+0] = uint8(x * 9)
			buf.Pix[i+1] = uint8(y * 4)
			buf.Pix[i+2] = uint8(x * y)
			buf.Pix[i+3] = uint8(255 - x*5)
		}
	}
	return buf
}

func TestRecombine_NilAlphaIsIdentity(t *testing.T) {
	rgb, err := images.NewPixelBuffer(5, 3, 3)
	require.NoError(t, err)

	out, err := Recombine(rgb, nil)
	require.NoError(t, err)
	assert.Same(t, rgb, out)
}

func TestSplitRecombine_RGBARoundTripThroughPNG(t *testing.T) {
	src := rgbaBuffer(t, 40, 30)

	rgb, a, err := Split(src)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, 3, rgb.Channels)

	enc, err := codec.EncodePNGAlpha(rgb, a, codec.DefaultLevel, nil)
	require.NoError(t, err)
	decoded, err := codec.NewDecoder(zerolog.Nop()).Decode(enc.Data)
	require.NoError(t, err)
	require.NotNil(t, decoded.Alpha)
	assert.Equal(t, a.Pix, decoded.Alpha.Pix)

	out, err := Recombine(decoded.Pixels, decoded.Alpha)
	require.NoError(t, err)
	assert.Equal(t, images.Checksum(src), images.Checksum(out))
}

func TestRecombine_ResizesMismatchedAlpha(t *testing.T) {
	rgb, err := images.NewPixelBuffer(20, 10, 3)
	require.NoError(t, err)

	a := images.NewPlane(40, 20)
	for i := range a.Pix {
		a.Pix[i] = 128
	}

	out, err := Recombine(rgb, a)
	require.NoError(t, err)

	h, w, c := out.Shape()
	assert.Equal(t, 10, h)
	assert.Equal(t, 20, w)
	assert.Equal(t, 4, c)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			assert.Equal(t, uint8(128), out.Pix[out.Offset(x, y)+3])
		}
	}
}

func TestRecombine_RejectsNonRGB(t *testing.T) {
	gray, err := images.NewPixelBuffer(4, 4, 1)
	require.NoError(t, err)

	_, err = Recombine(gray, images.NewPlane(4, 4))
	require.Error(t, err)
	assert.True(t, errors.Is(err, images.ErrUnsupportedChannelLayout))
}

func TestSplit_PassesThroughOpaqueLayouts(t *testing.T) {
	for _, channels := range []int{1, 3} {
		buf, err := images.NewPixelBuffer(2, 2, channels)
		require.NoError(t, err)

		rgb, a, err := Split(buf)
		require.NoError(t, err)
		assert.Same(t, buf, rgb)
		assert.Nil(t, a)
	}

	_, _, err := Split(&images.PixelBuffer{Pix: make([]uint8, 8), Width: 2, Height: 2, Channels: 2})
	assert.True(t, errors.Is(err, images.ErrUnsupportedChannelLayout))
}
