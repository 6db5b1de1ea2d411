package ase

// This file contains the low level cursor over the byte source. All
// multi-byte values in the format are little-endian.

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Errors returned by the decoder. Anything wrapping one of these aborts
// the whole document decode; there is no partial-success mode.
var (
	// ErrInvalidFile is returned when the top-level magic does not match.
	ErrInvalidFile = errors.New("ase: not an ase file")

	// ErrInvalidFrameHeader is returned when a per-frame magic does not match.
	ErrInvalidFrameHeader = errors.New("ase: bad frame header")

	// ErrUnexpectedEOF is returned when any fixed-size or length-prefixed
	// read requests more bytes than the source has left, including short
	// output from a compressed cel's inflate stream.
	ErrUnexpectedEOF = errors.New("ase: unexpected end of data")
)

// reader is a sequential cursor over an io.ReadSeeker.
//
// Every fixed-size read that comes up short fails with ErrUnexpectedEOF.
// The cursor can report and restore its absolute position, which the
// chunk loop uses to land exactly on each declared chunk boundary no
// matter how many bytes an individual chunk decoder consumed.
type reader struct {
	r io.ReadSeeker
}

func newReader(r io.ReadSeeker) *reader {
	return &reader{r: r}
}

// bytes reads exactly n bytes into a fresh buffer.
func (r *reader) bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: wanted %d more bytes", ErrUnexpectedEOF, n)
		}
		return nil, fmt.Errorf("ase: read failed: %s", err)
	}
	return b, nil
}

// skip advances the cursor past n reserved or padding bytes. The bytes
// are consumed rather than seeked over: a seek succeeds past the end of
// the source, which would let a truncated file decode.
func (r *reader) skip(n int64) error {
	if _, err := io.CopyN(io.Discard, r.r, n); err != nil {
		if err == io.EOF {
			return fmt.Errorf("%w: wanted %d more bytes", ErrUnexpectedEOF, n)
		}
		return fmt.Errorf("ase: skip %d failed: %s", n, err)
	}
	return nil
}

// pos reports the absolute position within the source.
func (r *reader) pos() (int64, error) {
	p, err := r.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("ase: could not query position: %s", err)
	}
	return p, nil
}

// seekTo moves the cursor to an absolute position.
func (r *reader) seekTo(p int64) error {
	if _, err := r.r.Seek(p, io.SeekStart); err != nil {
		return fmt.Errorf("ase: seek to %d failed: %s", p, err)
	}
	return nil
}

func (r *reader) u8() (uint8, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) i16() (int16, error) {
	v, err := r.u16()
	return int16(v), err
}

func (r *reader) i32() (int32, error) {
	v, err := r.u32()
	return int32(v), err
}

// fixed reads a 16.16 fixed-point value.
func (r *reader) fixed() (Fixed, error) {
	v, err := r.i32()
	return Fixed(v), err
}

// string reads a length-prefixed string: u16 byte count followed by that
// many bytes of UTF-8.
func (r *reader) string() (string, error) {
	n, err := r.u16()
	if err != nil {
		return "", err
	}
	b, err := r.bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// prefixed reads a length prefix of the given width (8, 16 or 32 bits)
// followed by length*elemSize bytes, returning the owned payload buffer.
func (r *reader) prefixed(prefixBits, elemSize int) ([]byte, error) {
	var n int
	switch prefixBits {
	case 8:
		v, err := r.u8()
		if err != nil {
			return nil, err
		}
		n = int(v)
	case 16:
		v, err := r.u16()
		if err != nil {
			return nil, err
		}
		n = int(v)
	case 32:
		v, err := r.u32()
		if err != nil {
			return nil, err
		}
		n = int(v)
	default:
		return nil, fmt.Errorf("ase: bad length prefix width %d; want 8, 16 or 32", prefixBits)
	}
	return r.bytes(n * elemSize)
}

// Fixed is a 16.16 fixed-point number as stored in the file.
type Fixed int32

// Float64 converts the fixed-point value to a float.
func (f Fixed) Float64() float64 {
	return float64(f) / 65536.0
}
