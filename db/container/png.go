package container

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
)

// ErrContainer matches every *Error via errors.Is.
var ErrContainer = errors.New("png container error")

// Error wraps a failure of the PNG container codec.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("png %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() []error { return []error{ErrContainer, e.Err} }

// Encoder writes pixel buffers as PNG files.
type Encoder struct {
	CompressionLevel png.CompressionLevel
}

// Encode compresses img into PNG bytes.
func (e Encoder) Encode(img *image.NRGBA) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: e.CompressionLevel}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, &Error{Op: "encode", Err: err}
	}
	return buf.Bytes(), nil
}

// Decoder reads PNG files into pixel buffers.
type Decoder struct {
	// MaxPixels rejects images with more pixels before decoding them.
	// Zero means no limit.
	MaxPixels uint64
}

// Decode parses PNG bytes and returns the image as an 8-bit NRGBA buffer.
func (d Decoder) Decode(b []byte) (*image.NRGBA, error) {
	if d.MaxPixels > 0 {
		cfg, err := png.DecodeConfig(bytes.NewReader(b))
		if err != nil {
			return nil, &Error{Op: "decode", Err: err}
		}
		if n := uint64(cfg.Width) * uint64(cfg.Height); n > d.MaxPixels {
			return nil, &Error{Op: "decode", Err: fmt.Errorf("image of %dx%d exceeds %d pixels", cfg.Width, cfg.Height, d.MaxPixels)}
		}
	}
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, &Error{Op: "decode", Err: err}
	}
	return toNRGBA(img), nil
}

// Decode parses PNG bytes without a size limit.
func Decode(b []byte) (*image.NRGBA, error) {
	return Decoder{}.Decode(b)
}

func toNRGBA(img image.Image) *image.NRGBA {
	switch m := img.(type) {
	case *image.NRGBA:
		return m
	case *image.RGBA:
		// Opaque truecolor decodes as RGBA. With every alpha at 0xff the
		// premultiplied bytes equal the straight ones.
		if m.Opaque() {
			return &image.NRGBA{Pix: m.Pix, Stride: m.Stride, Rect: m.Rect}
		}
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
