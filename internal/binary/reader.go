// Package binary provides bounds-checked little-endian reading primitives.
//
// CNT containers are little-endian throughout, so unlike generic binary
// helpers there is a single byte order here. All out-of-bounds reads
// surface as *types.TruncationError so parsing stages can classify them
// without string matching.
package binary

import (
	encbin "encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/proloyd/cntio/internal/types"
)

// SafeReader wraps io.ReaderAt with bounds checking and helpful error messages.
type SafeReader struct {
	r    io.ReaderAt
	path string
	size int64
}

// NewSafeReader creates a new SafeReader.
func NewSafeReader(r io.ReaderAt, size int64, path string) *SafeReader {
	return &SafeReader{
		r:    r,
		size: size,
		path: path,
	}
}

// Path returns the file path associated with this reader.
func (sr *SafeReader) Path() string {
	return sr.path
}

// Size returns the total size of the underlying file.
func (sr *SafeReader) Size() int64 {
	return sr.size
}

// ReadAt reads bytes at the given offset with context for error messages.
func (sr *SafeReader) ReadAt(b []byte, off int64, what string) error {
	if off < 0 || off >= sr.size || off+int64(len(b)) > sr.size {
		return &types.TruncationError{
			Path:   sr.path,
			What:   what,
			Offset: off,
			Length: len(b),
			Size:   sr.size,
		}
	}

	n, err := sr.r.ReadAt(b, off)
	if err != nil && err != io.EOF {
		return fmt.Errorf("%s: failed to read %s at offset %d: %w", sr.path, what, off, err)
	}
	if n < len(b) {
		return &types.TruncationError{
			Path:   sr.path,
			What:   what,
			Offset: off,
			Length: len(b),
			Size:   sr.size,
		}
	}

	return nil
}

// Read reads a little-endian value of type T from the given offset.
// T must be uint8, uint16, uint32, or uint64.
func Read[T uint8 | uint16 | uint32 | uint64](sr *SafeReader, off int64, what string) (T, error) {
	var zero T

	buf := make([]byte, sizeOf(zero))
	if err := sr.ReadAt(buf, off, what); err != nil {
		return zero, err
	}

	var val T
	switch any(zero).(type) {
	case uint8:
		val = T(buf[0])
	case uint16:
		val = T(encbin.LittleEndian.Uint16(buf))
	case uint32:
		val = T(encbin.LittleEndian.Uint32(buf))
	case uint64:
		val = T(encbin.LittleEndian.Uint64(buf))
	}

	return val, nil
}

func sizeOf[T uint8 | uint16 | uint32 | uint64](zero T) int {
	switch any(zero).(type) {
	case uint8:
		return 1
	case uint16:
		return 2
	case uint32:
		return 4
	default:
		return 8
	}
}

// Reader provides sequential reading with automatic offset tracking.
type Reader struct {
	*SafeReader
	offset int64
}

// NewReader creates a new Reader starting at the given offset.
func NewReader(sr *SafeReader, offset int64) *Reader {
	return &Reader{
		SafeReader: sr,
		offset:     offset,
	}
}

// ReadValue reads a little-endian numeric value and advances the offset.
func ReadValue[T uint8 | uint16 | uint32 | uint64](r *Reader, what string) (T, error) {
	val, err := Read[T](r.SafeReader, r.offset, what)
	if err != nil {
		var zero T
		return zero, err
	}

	var zero T
	r.offset += int64(sizeOf(zero))
	return val, nil
}

// ReadBytes reads n raw bytes and advances the offset.
func (r *Reader) ReadBytes(n int, what string) ([]byte, error) {
	buf := make([]byte, n)
	if err := r.SafeReader.ReadAt(buf, r.offset, what); err != nil {
		return nil, err
	}

	r.offset += int64(n)
	return buf, nil
}

// ReadString reads a length-prefixed string (uint16 byte length followed
// by UTF-8 bytes) and advances the offset.
func (r *Reader) ReadString(what string) (string, error) {
	length, err := ReadValue[uint16](r, what+" length")
	if err != nil {
		return "", err
	}
	if length == 0 {
		return "", nil
	}

	buf, err := r.ReadBytes(int(length), what)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// Skip advances the offset by n bytes.
func (r *Reader) Skip(n int64) {
	r.offset += n
}

// Offset returns the current offset.
func (r *Reader) Offset() int64 {
	return r.offset
}

// ChainReader allows chaining multiple reads with deferred error checking.
// This avoids repetitive "if err != nil" checks when decoding the fixed
// header and tables.
type ChainReader struct {
	*Reader
	err error
}

// NewChainReader creates a new ChainReader.
func NewChainReader(r *Reader) *ChainReader {
	return &ChainReader{Reader: r}
}

// ReadChained reads a value with deferred error checking.
// If a previous read failed, returns zero value without attempting read.
func ReadChained[T uint8 | uint16 | uint32 | uint64](cr *ChainReader, what string) T {
	if cr.err != nil {
		var zero T
		return zero
	}

	val, err := ReadValue[T](cr.Reader, what)
	if err != nil {
		cr.err = err
		var zero T
		return zero
	}

	return val
}

// Float64 reads an IEEE-754 double, accumulating any error. The bit
// pattern is preserved verbatim.
func (cr *ChainReader) Float64(what string) float64 {
	bits := ReadChained[uint64](cr, what)
	return math.Float64frombits(bits)
}

// Int64 reads a signed 64-bit integer, accumulating any error.
func (cr *ChainReader) Int64(what string) int64 {
	return int64(ReadChained[uint64](cr, what))
}

// Int32 reads a signed 32-bit integer, accumulating any error.
func (cr *ChainReader) Int32(what string) int32 {
	return int32(ReadChained[uint32](cr, what))
}

// String reads a length-prefixed string, accumulating any error.
func (cr *ChainReader) String(what string) string {
	if cr.err != nil {
		return ""
	}

	val, err := cr.Reader.ReadString(what)
	if err != nil {
		cr.err = err
		return ""
	}

	return val
}

// Bytes reads n raw bytes, accumulating any error.
func (cr *ChainReader) Bytes(n int, what string) []byte {
	if cr.err != nil {
		return nil
	}

	val, err := cr.Reader.ReadBytes(n, what)
	if err != nil {
		cr.err = err
		return nil
	}

	return val
}

// Err returns the accumulated error, if any.
func (cr *ChainReader) Err() error {
	return cr.err
}
