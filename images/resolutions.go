package images

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Resolution is a named camera resolution preset.
type Resolution struct {
	// Name is the common name, e.g. "Full HD 1080p".
	Name string `json:"name" yaml:"name"`
	// Alias is the short lookup key, e.g. "1080p".
	Alias  string `json:"alias" yaml:"alias"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
}

// MegaPixels returns the pixel count in millions, rounded to two decimals
// (2.07 for 1080p).
func (r Resolution) MegaPixels() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	mp := float64(r.Width*r.Height) / 1_000_000.0
	return math.Round(mp*100) / 100
}

// LongestSide returns max(Width, Height).
func (r Resolution) LongestSide() int {
	return max(r.Width, r.Height)
}

func (r Resolution) String() string {
	return fmt.Sprintf("%s (%dx%d, %.2fMP)", r.Name, r.Width, r.Height, r.MegaPixels())
}

// resolutions holds the presets keyed by alias.
var resolutions = map[string]Resolution{
	"nhd":   {Name: "nHD", Alias: "nhd", Width: 640, Height: 360},
	"vga":   {Name: "VGA", Alias: "vga", Width: 640, Height: 480},
	"480p":  {Name: "FWVGA", Alias: "480p", Width: 854, Height: 480},
	"540p":  {Name: "qHD 540p", Alias: "540p", Width: 960, Height: 540},
	"720p":  {Name: "HD 720p", Alias: "720p", Width: 1280, Height: 720},
	"1mp":   {Name: "1MP (5:4)", Alias: "1mp", Width: 1280, Height: 1024},
	"1080p": {Name: "Full HD 1080p", Alias: "1080p", Width: 1920, Height: 1080},
	"3mp":   {Name: "3MP (4:3)", Alias: "3mp", Width: 2048, Height: 1536},
	"1440p": {Name: "QHD 1440p", Alias: "1440p", Width: 2560, Height: 1440},
	"4mp":   {Name: "4MP (16:9)", Alias: "4mp", Width: 2688, Height: 1520},
	"4k":    {Name: "4K UHD", Alias: "4k", Width: 3840, Height: 2160},
	"12mp":  {Name: "12MP (4:3)", Alias: "12mp", Width: 4000, Height: 3000},
}

// Resolutions returns every preset, smallest first.
func Resolutions() []Resolution {
	all := make([]Resolution, 0, len(resolutions))
	for _, r := range resolutions {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool {
		if a, b := all[i].Width*all[i].Height, all[j].Width*all[j].Height; a != b {
			return a < b
		}
		return all[i].Alias < all[j].Alias
	})
	return all
}

// ResolutionByAlias looks a preset up by alias, ignoring case.
func ResolutionByAlias(alias string) (Resolution, bool) {
	r, ok := resolutions[strings.ToLower(strings.TrimSpace(alias))]
	return r, ok
}

// HighestResolutionUnder returns the largest preset that fits inside width x
// height.
//
// Arguments:
//   - width: The maximum width.
//   - height: The maximum height.
//
// Returns:
//   - Resolution: The largest fitting preset.
//   - bool: False when no preset fits.
func HighestResolutionUnder(width, height int) (Resolution, bool) {
	var best Resolution
	found := false
	for _, r := range Resolutions() {
		if r.Width <= width && r.Height <= height {
			best, found = r, true
		}
	}
	return best, found
}

// ParseMaxSide reads a longest-side limit given either as a pixel count
// ("500") or as a preset alias ("720p" is 1280).
//
// @example
// side, err := ParseMaxSide("1080p") // 1920
func ParseMaxSide(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("size must be positive: %d", n)
		}
		return n, nil
	}
	if r, ok := ResolutionByAlias(s); ok {
		return r.LongestSide(), nil
	}
	return 0, fmt.Errorf("unknown size %q", s)
}
