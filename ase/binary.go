package ase

import (
	"math"
	"unicode/utf8"

	"github.com/google/uuid"
)

// byteReader is a little-endian cursor over an in-memory byte slice. The
// format is length-prefixed at file, frame and chunk granularity (spec §1
// Non-goals rule out streaming/unknown-size input), so the whole input is
// held in memory and addressed by position, the same way rac.Parser treats
// its ReadSeeker: random access, not a stream.
type byteReader struct {
	buf []byte
	off int
}

func newByteReader(buf []byte) *byteReader {
	return &byteReader{buf: buf}
}

// pos returns the current absolute read position.
func (r *byteReader) pos() int { return r.off }

// len returns the total number of bytes in the source.
func (r *byteReader) len() int { return len(r.buf) }

// seek moves the cursor to an absolute position. It does not validate that
// pos is in range; a subsequent read past the end reports ErrUnexpectedEOF.
func (r *byteReader) seek(pos int) {
	r.off = pos
}

// skip advances the cursor by n bytes, which may be negative.
func (r *byteReader) skip(n int) {
	r.off += n
}

func (r *byteReader) take(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.buf) {
		return nil, errUnexpectedEOF()
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *byteReader) readBytes(n int) ([]byte, error) {
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// readByte reads an unsigned 8-bit integer (the format's BYTE).
func (r *byteReader) readByte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// readWord reads an unsigned 16-bit little-endian integer (WORD).
func (r *byteReader) readWord() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0]) | uint16(b[1])<<8, nil
}

// readShort reads a signed 16-bit little-endian integer (SHORT).
func (r *byteReader) readShort() (int16, error) {
	v, err := r.readWord()
	return int16(v), err
}

// readDWord reads an unsigned 32-bit little-endian integer (DWORD).
func (r *byteReader) readDWord() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

// readLong reads a signed 32-bit little-endian integer (LONG).
func (r *byteReader) readLong() (int32, error) {
	v, err := r.readDWord()
	return int32(v), err
}

// readQWord reads an unsigned 64-bit little-endian integer (QWORD).
func (r *byteReader) readQWord() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	v := uint64(0)
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

// readFixed reads a 16.16 signed fixed-point number (FIXED), returning its
// decoded floating-point value.
func (r *byteReader) readFixed() (float64, error) {
	raw, err := r.readLong()
	if err != nil {
		return 0, err
	}
	return float64(raw) / 65536.0, nil
}

// readFloat32 reads an IEEE-754 single-precision float (FLOAT).
func (r *byteReader) readFloat32() (float32, error) {
	v, err := r.readDWord()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// readFloat64 reads an IEEE-754 double-precision float (DOUBLE).
func (r *byteReader) readFloat64() (float64, error) {
	v, err := r.readQWord()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// readString reads a STRING: a WORD length followed by that many UTF-8
// bytes with no terminator.
func (r *byteReader) readString() (string, error) {
	n, err := r.readWord()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errInvalidData("string is not valid UTF-8")
	}
	return string(b), nil
}

// readUUID reads a UUID: 16 raw bytes, unscrambled.
func (r *byteReader) readUUID() (uuid.UUID, error) {
	b, err := r.take(16)
	if err != nil {
		return uuid.UUID{}, err
	}
	var u uuid.UUID
	copy(u[:], b)
	return u, nil
}

// byteWriter accumulates output in memory so that chunk and frame sizes can
// be back-patched after the fact, the way rac.Writer stages output through
// an internal buffer (or TempFile) before a final Close flushes it. The
// staged bytes are only ever handed to the real sink once, in full, by the
// exported Encode functions.
type byteWriter struct {
	buf []byte
}

func newByteWriter() *byteWriter {
	return &byteWriter{}
}

// pos returns the current write position, i.e. the number of bytes written
// so far.
func (w *byteWriter) pos() int { return len(w.buf) }

// bytes returns the accumulated output. The caller must not retain it across
// further writes, which may reallocate the backing array.
func (w *byteWriter) bytes() []byte { return w.buf }

func (w *byteWriter) write(b []byte) {
	w.buf = append(w.buf, b...)
}

// writeAt overwrites previously written bytes in place, the mechanism every
// back-patched size field in §4.2 relies on. start+len(data) must not exceed
// the current length.
func (w *byteWriter) writeAt(start int, data []byte) {
	copy(w.buf[start:start+len(data)], data)
}

// writeZeros appends n zero bytes, used for reserved/padding fields.
func (w *byteWriter) writeZeros(n int) {
	for i := 0; i < n; i++ {
		w.buf = append(w.buf, 0)
	}
}

func (w *byteWriter) writeByte(v byte) {
	w.buf = append(w.buf, v)
}

func (w *byteWriter) writeWord(v uint16) {
	w.buf = append(w.buf, byte(v), byte(v>>8))
}

func (w *byteWriter) writeShort(v int16) {
	w.writeWord(uint16(v))
}

func (w *byteWriter) writeDWord(v uint32) {
	w.buf = append(w.buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (w *byteWriter) writeLong(v int32) {
	w.writeDWord(uint32(v))
}

func (w *byteWriter) writeQWord(v uint64) {
	for i := 0; i < 8; i++ {
		w.buf = append(w.buf, byte(v>>(8*uint(i))))
	}
}

// writeFixed writes a 16.16 signed fixed-point number.
func (w *byteWriter) writeFixed(v float64) {
	w.writeLong(int32(math.Round(v * 65536.0)))
}

func (w *byteWriter) writeFloat32(v float32) {
	w.writeDWord(math.Float32bits(v))
}

func (w *byteWriter) writeFloat64(v float64) {
	w.writeQWord(math.Float64bits(v))
}

// writeString writes a WORD length followed by the UTF-8 bytes of s. Per
// §4.1, writers never fail on content; a string longer than 0xFFFF bytes
// (the document model's text fields are plain, unbounded Go strings) is
// truncated to fit the WORD length prefix.
func (w *byteWriter) writeString(s string) {
	b := []byte(s)
	if len(b) > 0xFFFF {
		b = b[:0xFFFF]
	}
	w.writeWord(uint16(len(b)))
	w.write(b)
}

// writeUUID writes 16 raw bytes, unscrambled.
func (w *byteWriter) writeUUID(u uuid.UUID) {
	w.write(u[:])
}
