// Package images - provides idempotent pixel-buffer operations used by the
// ingestion pipeline: resampling, grayscale conversion and channel helpers.
package images

import (
	"math"
	"runtime"
	"sync"
)

// ResampleFilter defines the resampling algorithm used for image scaling.
type ResampleFilter int

const (
	// NearestNeighborFilter uses nearest-neighbor interpolation (fastest, lowest quality).
	NearestNeighborFilter ResampleFilter = iota
	// BilinearFilter uses bilinear interpolation (fast, good quality).
	BilinearFilter
	// BicubicFilter uses bicubic interpolation (slower, better quality).
	BicubicFilter
	// LanczosFilter uses Lanczos resampling with a=3 (slowest, best quality).
	LanczosFilter
)

// kernel represents a resampling kernel function.
type kernel struct {
	// Support is the radius of the kernel in source pixels.
	Support float64
	// At evaluates the kernel at distance x.
	At func(x float64) float64
}

// kernels maps each filter type to its kernel function.
var kernels = map[ResampleFilter]kernel{
	NearestNeighborFilter: {
		Support: 0.5,
		At: func(x float64) float64 {
			if math.Abs(x) < 0.5 {
				return 1.0
			}
			return 0.0
		},
	},
	BilinearFilter: {
		Support: 1.0,
		At: func(x float64) float64 {
			// Triangle function.
			x = math.Abs(x)
			if x < 1.0 {
				return 1.0 - x
			}
			return 0.0
		},
	},
	BicubicFilter: {
		Support: 2.0,
		At: func(x float64) float64 {
			// Catmull-Rom (B=0, C=0.5).
			x = math.Abs(x)
			if x < 1.0 {
				return (1.5*x-2.5)*x*x + 1.0
			}
			if x < 2.0 {
				return ((-0.5*x+2.5)*x-4.0)*x + 2.0
			}
			return 0.0
		},
	},
	LanczosFilter: {
		Support: 3.0,
		At: func(x float64) float64 {
			if x == 0.0 {
				return 1.0
			}
			x = math.Abs(x)
			if x >= 3.0 {
				return 0.0
			}
			// sinc(x) * sinc(x/3)
			pix := math.Pi * x
			return (math.Sin(pix) / pix) * (math.Sin(pix/3.0) / (pix / 3.0))
		},
	},
}

// Contribution represents a single source sample's contribution to the output.
type Contribution struct {
	// pixel is the source pixel index.
	pixel int
	// weight is the contribution weight.
	weight float64
}

// contributions pre-computes the normalized weights for every output index
// along one axis.
//
// Arguments:
//   - srcSize: The source length along the axis.
//   - dstSize: The destination length along the axis.
//   - filter: The resampling filter.
//
// Returns:
//   - One weight list per destination index.
func contributions(srcSize, dstSize int, filter ResampleFilter) [][]Contribution {
	k := kernels[filter]

	// When downsampling, the filter support is expanded by the scale.
	scale := float64(srcSize) / float64(dstSize)
	filterScale := math.Max(scale, 1.0)
	support := k.Support * filterScale

	out := make([][]Contribution, dstSize)
	for i := 0; i < dstSize; i++ {
		center := (float64(i) + 0.5) * scale

		left := int(math.Floor(center - support))
		right := int(math.Ceil(center + support))
		if left < 0 {
			left = 0
		}
		if right >= srcSize {
			right = srcSize - 1
		}

		var weights []Contribution
		var sum float64
		for src := left; src <= right; src++ {
			distance := math.Abs(float64(src) - center + 0.5)
			weight := k.At(distance / filterScale)
			if weight != 0 {
				weights = append(weights, Contribution{pixel: src, weight: weight})
				sum += weight
			}
		}

		// Normalize so brightness is preserved.
		if sum != 0 {
			for j := range weights {
				weights[j].weight /= sum
			}
		}

		// Upsampling a single pixel can leave no weight inside the window.
		if len(weights) == 0 {
			nearest := int(center)
			if nearest >= srcSize {
				nearest = srcSize - 1
			}
			weights = []Contribution{{pixel: nearest, weight: 1}}
		}

		out[i] = weights
	}

	return out
}

// resampleSamples resizes interleaved 8-bit samples with separable filtering:
// a horizontal pass into an intermediate buffer followed by a vertical pass.
//
// Arguments:
//   - src: The source samples.
//   - srcW, srcH: The source dimensions.
//   - channels: Samples per pixel.
//   - dstW, dstH: The target dimensions.
//   - filter: The resampling filter.
//
// Returns:
//   - The resized samples.
func resampleSamples(src []uint8, srcW, srcH, channels, dstW, dstH int, filter ResampleFilter) []uint8 {
	if filter == NearestNeighborFilter {
		return nearestSamples(src, srcW, srcH, channels, dstW, dstH)
	}

	horizontal := contributions(srcW, dstW, filter)
	vertical := contributions(srcH, dstH, filter)

	intermediate := make([]uint8, dstW*srcH*channels)
	Parallel(srcH, func(partStart, partEnd int) {
		acc := make([]float64, channels)
		for y := partStart; y < partEnd; y++ {
			srcRow := src[y*srcW*channels : (y+1)*srcW*channels]
			dstRow := intermediate[y*dstW*channels : (y+1)*dstW*channels]
			for x := 0; x < dstW; x++ {
				for c := range acc {
					acc[c] = 0
				}
				for _, w := range horizontal[x] {
					base := w.pixel * channels
					for c := 0; c < channels; c++ {
						acc[c] += float64(srcRow[base+c]) * w.weight
					}
				}
				for c := 0; c < channels; c++ {
					dstRow[x*channels+c] = uint8(Clamp(acc[c], 0, 255) + 0.5)
				}
			}
		}
	})

	dst := make([]uint8, dstW*dstH*channels)
	Parallel(dstW, func(partStart, partEnd int) {
		acc := make([]float64, channels)
		for x := partStart; x < partEnd; x++ {
			for y := 0; y < dstH; y++ {
				for c := range acc {
					acc[c] = 0
				}
				for _, w := range vertical[y] {
					base := (w.pixel*dstW + x) * channels
					for c := 0; c < channels; c++ {
						acc[c] += float64(intermediate[base+c]) * w.weight
					}
				}
				base := (y*dstW + x) * channels
				for c := 0; c < channels; c++ {
					dst[base+c] = uint8(Clamp(acc[c], 0, 255) + 0.5)
				}
			}
		}
	})

	return dst
}

// nearestSamples performs nearest-neighbor resizing of interleaved samples.
func nearestSamples(src []uint8, srcW, srcH, channels, dstW, dstH int) []uint8 {
	dst := make([]uint8, dstW*dstH*channels)

	xRatio := float64(srcW) / float64(dstW)
	yRatio := float64(srcH) / float64(dstH)

	Parallel(dstH, func(partStart, partEnd int) {
		for y := partStart; y < partEnd; y++ {
			srcY := int(float64(y)*yRatio + 0.5)
			if srcY >= srcH {
				srcY = srcH - 1
			}
			for x := 0; x < dstW; x++ {
				srcX := int(float64(x)*xRatio + 0.5)
				if srcX >= srcW {
					srcX = srcW - 1
				}
				s := (srcY*srcW + srcX) * channels
				d := (y*dstW + x) * channels
				copy(dst[d:d+channels], src[s:s+channels])
			}
		}
	})

	return dst
}

// Resize resamples a pixel buffer to the given dimensions.
//
// Arguments:
//   - buf: The source buffer.
//   - width: The target width in pixels.
//   - height: The target height in pixels.
//   - filter: The resampling filter to use for interpolation.
//
// Returns:
//   - A new buffer with the same channel count. Resizing to the current
//     dimensions returns a copy.
//
// @example
// resized := Resize(buf, 224, 224, LanczosFilter)
func Resize(buf *PixelBuffer, width, height int, filter ResampleFilter) *PixelBuffer {
	// Invalid targets collapse to a 1x1 buffer to keep the call total.
	if width <= 0 || height <= 0 {
		return &PixelBuffer{Pix: make([]uint8, buf.Channels), Width: 1, Height: 1, Channels: buf.Channels}
	}
	if buf.Width == width && buf.Height == height {
		return buf.Clone()
	}
	return &PixelBuffer{
		Pix:      resampleSamples(buf.Pix, buf.Width, buf.Height, buf.Channels, width, height, filter),
		Width:    width,
		Height:   height,
		Channels: buf.Channels,
	}
}

// ResizePlane resamples a single-channel plane to the given dimensions.
//
// Arguments:
//   - p: The source plane.
//   - width: The target width in pixels.
//   - height: The target height in pixels.
//   - filter: The resampling filter to use for interpolation.
//
// Returns:
//   - A new plane. Resizing to the current dimensions returns a copy.
func ResizePlane(p *Plane, width, height int, filter ResampleFilter) *Plane {
	if width <= 0 || height <= 0 {
		return NewPlane(1, 1)
	}
	if p.Width == width && p.Height == height {
		pix := make([]uint8, len(p.Pix))
		copy(pix, p.Pix)
		return &Plane{Pix: pix, Width: width, Height: height}
	}
	return &Plane{
		Pix:    resampleSamples(p.Pix, p.Width, p.Height, 1, width, height, filter),
		Width:  width,
		Height: height,
	}
}

// Grayscale converts an RGB buffer to a single channel using the ITU-R 601-2
// luma transform (L = R*299/1000 + G*587/1000 + B*114/1000).
//
// Arguments:
//   - buf: A 1, 3 or 4 channel buffer. Alpha is ignored.
//
// Returns:
//   - A new 1 channel buffer; gray input is copied.
//
// @example
// gray := Grayscale(rgb)
func Grayscale(buf *PixelBuffer) *PixelBuffer {
	if buf.Channels == 1 {
		return buf.Clone()
	}

	dst := &PixelBuffer{Pix: make([]uint8, buf.Width*buf.Height), Width: buf.Width, Height: buf.Height, Channels: 1}
	Parallel(buf.Height, func(partStart, partEnd int) {
		for y := partStart; y < partEnd; y++ {
			for x := 0; x < buf.Width; x++ {
				i := buf.Offset(x, y)
				r := uint32(buf.Pix[i+0])
				g := uint32(buf.Pix[i+1])
				b := uint32(buf.Pix[i+2])
				// Integer arithmetic with rounding, matching the common 601-2 convention.
				dst.Pix[y*buf.Width+x] = uint8((r*299 + g*587 + b*114 + 500) / 1000)
			}
		}
	})

	return dst
}

// Clamp restricts a value to the specified range [min, max].
//
// @example
// clamped := Clamp(300.5, 0, 255) // Returns 255
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Parallel executes fn across partitions of [0, dataSize) on all CPU cores.
//
// Arguments:
//   - dataSize: The size of the data to process.
//   - fn: Function to execute for each partition (receives start and end indices).
//
// @example
//
//	Parallel(height, func(start, end int) {
//	    for y := start; y < end; y++ {
//	        // Process row y
//	    }
//	})
func Parallel(dataSize int, fn func(partStart, partEnd int)) {
	numGoroutines := runtime.NumCPU()

	// Small inputs are not worth the goroutine overhead.
	if dataSize < numGoroutines*2 {
		fn(0, dataSize)
		return
	}

	partSize := dataSize / numGoroutines

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		partStart := i * partSize
		partEnd := partStart + partSize

		// Last partition gets any remaining data.
		if i == numGoroutines-1 {
			partEnd = dataSize
		}

		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(partStart, partEnd)
	}

	wg.Wait()
}
