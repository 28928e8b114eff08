package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/openpredict/settler/internal/ledger"
)

// maxStringLen bounds length-prefixed strings (e.g. cancellation reasons) so
// a hostile payload cannot force a large allocation.
const maxStringLen = 1024

// encoder appends little-endian fields to a buffer.
type encoder struct {
	buf []byte
}

func newEncoder(op Opcode) *encoder {
	return &encoder{buf: []byte{byte(op)}}
}

func (e *encoder) u8(v uint8)   { e.buf = append(e.buf, v) }
func (e *encoder) u16(v uint16) { e.buf = binary.LittleEndian.AppendUint16(e.buf, v) }
func (e *encoder) u64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }
func (e *encoder) i64(v int64)  { e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(v)) }

func (e *encoder) bool(v bool) {
	if v {
		e.u8(1)
	} else {
		e.u8(0)
	}
}

func (e *encoder) addr(a ledger.Address) {
	e.buf = append(e.buf, a[:]...)
}

func (e *encoder) hash(h [32]byte) {
	e.buf = append(e.buf, h[:]...)
}

// str writes a u16 length prefix followed by the raw bytes.
func (e *encoder) str(s string) {
	e.u16(uint16(len(s)))
	e.buf = append(e.buf, s...)
}

// u64s writes a u16 count prefix followed by the values.
func (e *encoder) u64s(vs []uint64) {
	e.u16(uint16(len(vs)))
	for _, v := range vs {
		e.u64(v)
	}
}

// decoder consumes little-endian fields from a buffer. The first failure
// sticks; every later read returns zero values.
type decoder struct {
	buf []byte
	off int
	err error
}

func newDecoder(buf []byte) *decoder {
	return &decoder{buf: buf}
}

func (d *decoder) fail(what string) {
	if d.err == nil {
		d.err = fmt.Errorf("wire: truncated payload reading %s at offset %d", what, d.off)
	}
}

func (d *decoder) take(n int, what string) []byte {
	if d.err != nil {
		return nil
	}
	if d.off+n > len(d.buf) {
		d.fail(what)
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) u8(what string) uint8 {
	b := d.take(1, what)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) u16(what string) uint16 {
	b := d.take(2, what)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (d *decoder) u64(what string) uint64 {
	b := d.take(8, what)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (d *decoder) i64(what string) int64 {
	return int64(d.u64(what))
}

func (d *decoder) bool(what string) bool {
	return d.u8(what) != 0
}

func (d *decoder) addr(what string) ledger.Address {
	var a ledger.Address
	b := d.take(len(a), what)
	if b != nil {
		copy(a[:], b)
	}
	return a
}

func (d *decoder) hash(what string) [32]byte {
	var h [32]byte
	b := d.take(len(h), what)
	if b != nil {
		copy(h[:], b)
	}
	return h
}

func (d *decoder) str(what string) string {
	n := int(d.u16(what))
	if n > maxStringLen {
		if d.err == nil {
			d.err = fmt.Errorf("wire: %s length %d exceeds limit %d", what, n, maxStringLen)
		}
		return ""
	}
	b := d.take(n, what)
	return string(b)
}

func (d *decoder) u64s(what string) []uint64 {
	n := int(d.u16(what))
	if d.err != nil {
		return nil
	}
	vs := make([]uint64, 0, n)
	for i := 0; i < n; i++ {
		vs = append(vs, d.u64(what))
	}
	if d.err != nil {
		return nil
	}
	return vs
}

// finish rejects trailing bytes so two distinct encodings never decode to
// the same instruction.
func (d *decoder) finish() error {
	if d.err != nil {
		return d.err
	}
	if d.off != len(d.buf) {
		return fmt.Errorf("wire: %d trailing bytes after payload", len(d.buf)-d.off)
	}
	return nil
}
