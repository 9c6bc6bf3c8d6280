// Package codec implements the fixed-width binary wire format for world
// saves. All scalars are little-endian, no alignment or padding. Writer and
// Reader are strictly symmetric: fields are encoded and decoded in the same
// order with no self-describing structure beyond counts and variant tags.
//
// Both sides use a sticky error (the bufio.Scanner idiom): after the first
// failure every further call is a no-op returning zero values, and the
// caller checks Err once at the end of the record.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"orbitfield/internal/sim/vmath"
)

// ErrTruncated reports a read past end-of-stream. A truncated save is
// corrupt; the load aborts with no partial state committed.
var ErrTruncated = errors.New("codec: truncated stream")

const maxTextLen = 1 << 16 // sanity cap for length-prefixed text fields

type Writer struct {
	w   io.Writer
	buf [16]byte
	err error
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) write(n int) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(w.buf[:n])
}

func (w *Writer) Int32(v int32) {
	binary.LittleEndian.PutUint32(w.buf[:4], uint32(v))
	w.write(4)
}

func (w *Writer) Float32(v float32) {
	binary.LittleEndian.PutUint32(w.buf[:4], math.Float32bits(v))
	w.write(4)
}

func (w *Writer) Vec3(v vmath.Vec3) {
	w.Float32(v.X)
	w.Float32(v.Y)
	w.Float32(v.Z)
}

func (w *Writer) Quat(q vmath.Quat) {
	w.Float32(q.X)
	w.Float32(q.Y)
	w.Float32(q.Z)
	w.Float32(q.W)
}

func (w *Writer) Color(c vmath.Color) {
	w.Float32(c.R)
	w.Float32(c.G)
	w.Float32(c.B)
	w.Float32(c.A)
}

// Text writes a length-prefixed UTF-8 string. Used for opaque structured
// text payloads such as RNG state snapshots.
func (w *Writer) Text(s string) {
	if len(s) > maxTextLen {
		if w.err == nil {
			w.err = fmt.Errorf("codec: text field of %d bytes exceeds cap", len(s))
		}
		return
	}
	w.Int32(int32(len(s)))
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, s)
}

type Reader struct {
	r       io.Reader
	buf     [16]byte
	version int32
	err     error
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (r *Reader) Err() error {
	return r.err
}

// Version reports the format version of the stream. Zero until ReadVersion
// is called, which also covers pre-versioned saves that carry no version
// field at all.
func (r *Reader) Version() int32 {
	return r.version
}

// ReadVersion consumes the leading version field and makes it available to
// every later version-gated read. Call once, before any other read.
func (r *Reader) ReadVersion() int32 {
	r.version = r.Int32()
	return r.version
}

func (r *Reader) read(n int) bool {
	if r.err != nil {
		return false
	}
	if _, err := io.ReadFull(r.r, r.buf[:n]); err != nil {
		r.err = fmt.Errorf("%w: %v", ErrTruncated, err)
		return false
	}
	return true
}

func (r *Reader) Int32() int32 {
	if !r.read(4) {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(r.buf[:4]))
}

func (r *Reader) Float32() float32 {
	if !r.read(4) {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(r.buf[:4]))
}

func (r *Reader) Vec3() vmath.Vec3 {
	return vmath.Vec3{X: r.Float32(), Y: r.Float32(), Z: r.Float32()}
}

func (r *Reader) Quat() vmath.Quat {
	return vmath.Quat{X: r.Float32(), Y: r.Float32(), Z: r.Float32(), W: r.Float32()}
}

func (r *Reader) Color() vmath.Color {
	return vmath.Color{R: r.Float32(), G: r.Float32(), B: r.Float32(), A: r.Float32()}
}

func (r *Reader) Text() string {
	n := r.Int32()
	if r.err != nil {
		return ""
	}
	if n < 0 || n > maxTextLen {
		r.err = fmt.Errorf("codec: bad text length %d", n)
		return ""
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		r.err = fmt.Errorf("%w: %v", ErrTruncated, err)
		return ""
	}
	return string(b)
}
