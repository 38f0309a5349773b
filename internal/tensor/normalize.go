package tensor

import "fmt"

// Layout permutations between channel-last and channel-first forms.
var (
	NHWCToNCHW = []int{0, 3, 1, 2}
	CHWToHWC   = []int{1, 2, 0}
)

// NormalizePixel maps an 8-bit value into [-1, 1].
func NormalizePixel(p uint8) float32 {
	return (float32(p)/255)*2 - 1
}

// DenormalizePixel maps a model output in [-1, 1] back into [0, 1].
func DenormalizePixel(v float32) float32 {
	return v*0.5 + 0.5
}

// FromPixels builds a channel-last HxWxC tensor in [-1, 1] from interleaved 8-bit pixels.
func FromPixels(pix []uint8, height, width, channels int) (Tensor, error) {
	if height <= 0 || width <= 0 || channels <= 0 {
		return Tensor{}, fmt.Errorf("invalid image size %dx%dx%d", height, width, channels)
	}
	if len(pix) != height*width*channels {
		return Tensor{}, fmt.Errorf("pixel buffer has %d bytes, want %d", len(pix), height*width*channels)
	}
	t := New(height, width, channels)
	for i, p := range pix {
		t.Data[i] = NormalizePixel(p)
	}
	return t, nil
}

// Denormalize rescales every element from [-1, 1] to [0, 1].
func Denormalize(t Tensor) Tensor {
	return t.Map(DenormalizePixel)
}

// ToPixels quantizes a [0, 1] tensor to 8-bit values, clamping and rounding.
func ToPixels(t Tensor) []uint8 {
	out := make([]uint8, len(t.Data))
	for i, v := range t.Data {
		out[i] = Quantize(v)
	}
	return out
}

// Quantize converts a [0, 1] value to the nearest 8-bit level.
func Quantize(v float32) uint8 {
	switch {
	case v != v: // NaN
		return 0
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}
