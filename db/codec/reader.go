package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrBadMagic   = errors.New("bad magic")
	ErrBadVersion = errors.New("unsupported version")
	ErrTruncated  = errors.New("truncated payload")
	ErrMalformed  = errors.New("malformed payload")
)

// FormatError describes why a byte stream could not be decoded.
// Kind is one of the Err* sentinels above; Err is the underlying cause, if any.
type FormatError struct {
	Kind   error
	Offset int
	Detail string
	Err    error
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("format: %v at offset %d", e.Kind, e.Offset)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// reader walks the payload front to back and fails fast on short input.
type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

func (r *reader) take(n int, field string) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, &FormatError{Kind: ErrTruncated, Offset: r.off,
			Detail: fmt.Sprintf("%s needs %d bytes, %d left", field, n, r.remaining())}
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) u8(field string) (byte, error) {
	b, err := r.take(1, field)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16(field string) (uint16, error) {
	b, err := r.take(2, field)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) u32(field string) (uint32, error) {
	b, err := r.take(4, field)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) malformed(detail string, cause error) error {
	return &FormatError{Kind: ErrMalformed, Offset: r.off, Detail: detail, Err: cause}
}
