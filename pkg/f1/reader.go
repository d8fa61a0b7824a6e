package f1

import (
	"encoding/binary"
	"math"
)

// reader is a little-endian cursor over a datagram. The first read past the end of the buffer
// sets err and every later read returns a zero value, so decoders can read a whole record and
// check the error once.
type reader struct {
	buf []byte
	off int
	err error
}

func newReader(b []byte) *reader {
	return &reader{buf: b}
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}

	if n < 0 || len(r.buf)-r.off < n {
		r.err = ErrPacketTooShort
		return nil
	}

	b := r.buf[r.off : r.off+n]
	r.off += n

	return b
}

func (r *reader) skip(n int) {
	r.take(n)
}

func (r *reader) offset() int {
	return r.off
}

func (r *reader) ReadUint8() uint8 {
	b := r.take(1)

	if b == nil {
		return 0
	}

	return b[0]
}

func (r *reader) ReadInt8() int8 {
	return int8(r.ReadUint8())
}

func (r *reader) ReadUint16() uint16 {
	b := r.take(2)

	if b == nil {
		return 0
	}

	return binary.LittleEndian.Uint16(b)
}

func (r *reader) ReadUint32() uint32 {
	b := r.take(4)

	if b == nil {
		return 0
	}

	return binary.LittleEndian.Uint32(b)
}

func (r *reader) ReadUint64() uint64 {
	b := r.take(8)

	if b == nil {
		return 0
	}

	return binary.LittleEndian.Uint64(b)
}

func (r *reader) ReadFloat32() float32 {
	return math.Float32frombits(r.ReadUint32())
}

func (r *reader) ReadUint8x4() [4]uint8 {
	return [4]uint8{r.ReadUint8(), r.ReadUint8(), r.ReadUint8(), r.ReadUint8()}
}

func (r *reader) ReadUint16x4() [4]uint16 {
	return [4]uint16{r.ReadUint16(), r.ReadUint16(), r.ReadUint16(), r.ReadUint16()}
}

func (r *reader) ReadFloat32x4() [4]float32 {
	return [4]float32{r.ReadFloat32(), r.ReadFloat32(), r.ReadFloat32(), r.ReadFloat32()}
}

// ReadString reads a fixed width, null terminated string field.
func (r *reader) ReadString(width int) string {
	b := r.take(width)

	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}

	return string(b)
}
