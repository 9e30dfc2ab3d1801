package images

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolution_MegaPixels(t *testing.T) {
	tests := []struct {
		name     string
		res      Resolution
		expected float64
	}{
		{name: "1080p", res: resolutions["1080p"], expected: 2.07},
		{name: "4k", res: resolutions["4k"], expected: 8.29},
		{name: "1mp", res: resolutions["1mp"], expected: 1.31},
		{name: "zero width", res: Resolution{Height: 1080}, expected: 0},
		{name: "negative width", res: Resolution{Width: -1920, Height: 1080}, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.res.MegaPixels())
		})
	}
}

func TestResolutions_Ordered(t *testing.T) {
	all := Resolutions()
	require.Len(t, all, len(resolutions))
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].Width*all[i-1].Height, all[i].Width*all[i].Height)
	}
}

func TestHighestResolutionUnder(t *testing.T) {
	r, ok := HighestResolutionUnder(2000, 1200)
	require.True(t, ok)
	assert.Equal(t, "1080p", r.Alias)

	_, ok = HighestResolutionUnder(100, 100)
	assert.False(t, ok)
}

func TestParseMaxSide(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "500", want: 500},
		{in: "720p", want: 1280},
		{in: " 4K ", want: 3840},
		{in: "vga", want: 640},
		{in: "0", wantErr: true},
		{in: "-3", wantErr: true},
		{in: "huge", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMaxSide(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
