package codec

import (
	"bytes"
	"compress/zlib"
	"image"
	"testing"

	"github.com/nvr-ai/vehicle-vision/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertTextChunks(t *testing.T) {
	data := encodePNG(t, gradientNRGBA(3, 3, false))
	md := images.NewMetadata(
		"parameters", "seed=42",
		"Title", "日本語",
		" bad", "leading space",
		"double  space", "x",
	)

	out, err := insertTextChunks(data, md)
	require.NoError(t, err)

	chunks := readPNGChunks(out)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "IHDR", chunks[0].Type)
	assert.Equal(t, "tEXt", chunks[1].Type)
	assert.Equal(t, "iTXt", chunks[2].Type)
	assert.Equal(t, "IEND", chunks[len(chunks)-1].Type)

	got := readPNGText(chunks)
	assert.Equal(t, []string{"parameters", "Title"}, got.Keys())
	v, _ := got.Get("Title")
	assert.Equal(t, "日本語", v)

	// Output must remain a valid PNG for the standard decoder.
	_, _, err = image.Decode(bytes.NewReader(out))
	assert.NoError(t, err)
}

func TestInsertTextChunks_NotPNG(t *testing.T) {
	_, err := insertTextChunks([]byte("nope"), images.NewMetadata("a", "b"))
	assert.Error(t, err)
}

func TestReadPNGText_Compressed(t *testing.T) {
	var z bytes.Buffer
	w := zlib.NewWriter(&z)
	_, err := w.Write([]byte("compressed value"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	ztxt := append([]byte("Software\x00\x00"), z.Bytes()...)
	itxt := append([]byte("Author\x00\x01\x00en\x00\x00"), z.Bytes()...)

	md := readPNGText([]pngChunk{
		{Type: "zTXt", Data: ztxt},
		{Type: "iTXt", Data: itxt},
		{Type: "tEXt", Data: []byte("no separator")},
	})

	assert.Equal(t, []string{"Software", "Author"}, md.Keys())
	v, _ := md.Get("Software")
	assert.Equal(t, "compressed value", v)
	v, _ = md.Get("Author")
	assert.Equal(t, "compressed value", v)
}

func TestReadOrientation(t *testing.T) {
	jpg := encodeJPEG(t, gradientNRGBA(4, 4, false))

	tests := []struct {
		name    string
		data    []byte
		want    Orientation
		wantErr bool
	}{
		{name: "no exif", data: jpg, want: 0},
		{name: "rotate 180", data: withJPEGExif(jpg, exifOrientation(3)), want: OrientationRotate180},
		{name: "out of range", data: withJPEGExif(jpg, exifOrientation(0)), wantErr: true},
		{name: "short header", data: withJPEGExif(jpg, []byte("II*")), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readOrientation(tt.data, images.FormatJPEG, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadOrientation_PNG(t *testing.T) {
	chunks := []pngChunk{{Type: "IHDR"}, {Type: "eXIf", Data: exifOrientation(8)}}

	got, err := readOrientation(nil, images.FormatPNG, chunks)
	require.NoError(t, err)
	assert.Equal(t, OrientationRotate270, got)
}

func TestReadOrientation_TIFF(t *testing.T) {
	got, err := readOrientation(exifOrientation(5), images.FormatTIFF, nil)
	require.NoError(t, err)
	assert.Equal(t, OrientationTranspose, got)

	// IFD0 with no entries.
	empty := []byte{'I', 'I', 42, 0, 8, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	got, err = readOrientation(empty, images.FormatTIFF, nil)
	require.NoError(t, err)
	assert.Equal(t, Orientation(0), got)
}

func TestApplyOrientation_Dimensions(t *testing.T) {
	src := gradientNRGBA(6, 2, false)

	for o := Orientation(0); o <= OrientationRotate270; o++ {
		b := applyOrientation(src, o).Bounds()
		if o >= OrientationTranspose {
			assert.Equal(t, image.Pt(2, 6), b.Size(), "orientation %d", o)
		} else {
			assert.Equal(t, image.Pt(6, 2), b.Size(), "orientation %d", o)
		}
	}
}

func TestStripDataURI(t *testing.T) {
	assert.Equal(t, "iVBORw0KGgo", StripDataURI("data:image/png;base64,iVBORw0KGgo"))
	assert.Equal(t, "abcd", StripDataURI("  abcd \n"))
	assert.Equal(t, "abcd", StripDataURI("prefix,abcd"))
}
