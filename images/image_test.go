package images

import (
	"image"
	"image/color"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPixelBuffer(t *testing.T) {
	buf, err := NewPixelBuffer(4, 3, 3)
	require.NoError(t, err)
	h, w, c := buf.Shape()
	assert.Equal(t, []int{3, 4, 3}, []int{h, w, c})
	assert.Len(t, buf.Pix, 36)
	assert.Equal(t, 12, buf.Stride())
	assert.Equal(t, 1*12+2*3, buf.Offset(2, 1))

	_, err = NewPixelBuffer(4, 3, 2)
	assert.True(t, errors.Is(err, ErrUnsupportedChannelLayout))

	_, err = NewPixelBuffer(0, 3, 3)
	assert.Error(t, err)
}

func TestPixelBuffer_Encodable(t *testing.T) {
	rgb, _ := NewPixelBuffer(2, 2, 3)
	rgba, _ := NewPixelBuffer(2, 2, 4)

	assert.NoError(t, rgb.Encodable())
	assert.True(t, errors.Is(rgba.Encodable(), ErrUnsupportedChannelLayout))
	assert.Error(t, (&PixelBuffer{Pix: make([]uint8, 5), Width: 2, Height: 2, Channels: 1}).Encodable())
	assert.Error(t, (*PixelBuffer)(nil).Encodable())
}

func TestPixelBuffer_ImageRoundTrip(t *testing.T) {
	buf, _ := NewPixelBuffer(5, 4, 3)
	for i := range buf.Pix {
		buf.Pix[i] = uint8(i * 7)
	}

	img, err := buf.Image()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 5, 4), img.Bounds())
	assert.Equal(t, Checksum(buf), Checksum(FromImage(img)))

	clone := buf.Clone()
	clone.Pix[0]++
	assert.NotEqual(t, Checksum(buf), Checksum(clone))
}

func TestFromImage_SubImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	src.SetNRGBA(2, 2, color.NRGBA{R: 9, G: 8, B: 7, A: 255})

	buf := FromImage(src.SubImage(image.Rect(2, 2, 4, 4)))
	assert.Equal(t, 2, buf.Width)
	assert.Equal(t, []uint8{9, 8, 7}, buf.Pix[:3])
}

func TestResize(t *testing.T) {
	buf, _ := NewPixelBuffer(8, 6, 3)
	for i := range buf.Pix {
		buf.Pix[i] = 200
	}

	for _, filter := range []ResampleFilter{NearestNeighborFilter, BilinearFilter, BicubicFilter, LanczosFilter} {
		out := Resize(buf, 3, 5, filter)
		assert.Equal(t, 3, out.Width)
		assert.Equal(t, 5, out.Height)
		assert.Len(t, out.Pix, 3*5*3)
		for _, v := range out.Pix {
			assert.InDelta(t, 200, int(v), 1, "filter=%d", filter)
		}
	}

	same := Resize(buf, 8, 6, LanczosFilter)
	assert.Equal(t, Checksum(buf), Checksum(same))
	assert.NotSame(t, buf, same)

	degenerate := Resize(buf, 0, 6, BilinearFilter)
	assert.Equal(t, 1, degenerate.Width)
}

func TestResizePlane(t *testing.T) {
	p := NewPlane(4, 4)
	for i := range p.Pix {
		p.Pix[i] = 255
	}

	out := ResizePlane(p, 9, 2, BilinearFilter)
	assert.Equal(t, 9, out.Width)
	assert.Equal(t, 2, out.Height)
	for _, v := range out.Pix {
		assert.Equal(t, uint8(255), v)
	}
	assert.True(t, out.SameSize(&PixelBuffer{Width: 9, Height: 2}))
}

func TestGrayscale(t *testing.T) {
	buf, _ := NewPixelBuffer(3, 1, 3)
	copy(buf.Pix, []uint8{255, 0, 0, 0, 255, 0, 0, 0, 255})

	gray := Grayscale(buf)
	assert.Equal(t, 1, gray.Channels)
	assert.Equal(t, []uint8{76, 150, 29}, gray.Pix)
	assert.Equal(t, gray.Pix, Grayscale(gray).Pix)
}

func TestParallel_CoversRange(t *testing.T) {
	const size = 1000
	seen := make([]int, size)
	Parallel(size, func(start, end int) {
		for i := start; i < end; i++ {
			seen[i]++
		}
	})
	for i, n := range seen {
		require.Equal(t, 1, n, "index %d", i)
	}
}

func TestMetadata(t *testing.T) {
	md := NewMetadata("parameters", "seed=42", "Software", "vision", "parameters", "seed=7", "odd")
	assert.Equal(t, []string{"parameters", "Software"}, md.Keys())
	v, ok := md.Get("parameters")
	assert.True(t, ok)
	assert.Equal(t, "seed=7", v)

	filtered := md.Filter(func(key, _ string) bool { return key != "Software" })
	assert.Equal(t, []string{"parameters"}, filtered.Keys())

	var nilMD *Metadata
	assert.Equal(t, 0, nilMD.Len())
	assert.Empty(t, nilMD.Keys())
	_, ok = nilMD.Get("x")
	assert.False(t, ok)

	var zero Metadata
	zero.Set("k", "v")
	assert.Equal(t, 1, zero.Len())
}

func TestParseFormat(t *testing.T) {
	tests := map[string]ImageFormat{
		"jpg": FormatJPEG, ".JPEG": FormatJPEG, "image/png": FormatPNG,
		"webp": FormatWebP, "tif": FormatTIFF, "image/x-ms-bmp": FormatBMP, "gif": FormatGIF,
	}
	for in, want := range tests {
		got, ok := ParseFormat(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParseFormat("heic")
	assert.False(t, ok)

	assert.Equal(t, ".jpg", FormatJPEG.Extension())
	assert.Equal(t, ".png", FormatPNG.Extension())
	assert.True(t, FormatPNG.SupportsAlpha())
	assert.False(t, FormatJPEG.SupportsAlpha())
}
