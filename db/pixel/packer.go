package pixel

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// Channels is the number of bytes stored per pixel (R, G, B, A).
const Channels = 4

// ErrTooLarge reports dimensions whose pixel buffer cannot or may not be
// allocated.
var ErrTooLarge = errors.New("image dimensions too large")

// ErrCapacity matches every *CapacityError via errors.Is.
var ErrCapacity = errors.New("payload exceeds image capacity")

// CapacityError reports a payload larger than the pixel buffer.
type CapacityError struct {
	Need uint64
	Have uint64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("payload of %d bytes exceeds image capacity of %d bytes", e.Need, e.Have)
}

func (e *CapacityError) Unwrap() error { return ErrCapacity }

// Capacity returns how many bytes a width x height image can hold. It
// saturates at math.MaxUint64 for dimensions whose byte count overflows.
func Capacity(width, height uint32) uint64 {
	pixels := uint64(width) * uint64(height)
	if pixels > math.MaxUint64/Channels {
		return math.MaxUint64
	}
	return pixels * Channels
}

// Pack lays b out over a width x height buffer, row-major with four
// channels per pixel, and zero-fills the rest.
func Pack(b []byte, width, height uint32) (*image.NRGBA, error) {
	capacity := Capacity(width, height)
	if uint64(len(b)) > capacity {
		return nil, &CapacityError{Need: uint64(len(b)), Have: capacity}
	}
	if capacity > math.MaxInt {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, width, height)
	}
	img := image.NewNRGBA(image.Rect(0, 0, int(width), int(height)))
	copy(img.Pix, b)
	return img, nil
}

// Unpack returns every byte of the buffer in the order Pack wrote them.
// It does not know how many of them are meaningful.
func Unpack(img *image.NRGBA) []byte {
	b := img.Bounds()
	rowLen := b.Dx() * Channels
	if img.Stride == rowLen && len(img.Pix) == rowLen*b.Dy() {
		out := make([]byte, len(img.Pix))
		copy(out, img.Pix)
		return out
	}
	out := make([]byte, 0, rowLen*b.Dy())
	for y := 0; y < b.Dy(); y++ {
		start := y * img.Stride
		out = append(out, img.Pix[start:start+rowLen]...)
	}
	return out
}
