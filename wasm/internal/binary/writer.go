package binary

import "encoding/binary"

// Writer appends binary module output to a growing slice.
type Writer struct {
	buf []byte
}

// NewWriter creates an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the written bytes. The slice aliases the writer's buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.buf) }

// Byte appends b.
func (w *Writer) Byte(b byte) { w.buf = append(w.buf, b) }

// WriteBytes appends data verbatim.
func (w *Writer) WriteBytes(data []byte) { w.buf = append(w.buf, data...) }

// WriteU32 appends v as unsigned LEB128, which is the uvarint encoding.
func (w *Writer) WriteU32(v uint32) {
	w.buf = binary.AppendUvarint(w.buf, uint64(v))
}

// WriteS64 appends v as signed LEB128. Used for constant expressions.
func (w *Writer) WriteS64(v int64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		sign := b&0x40 != 0
		if (v == 0 && !sign) || (v == -1 && sign) {
			w.buf = append(w.buf, b)
			return
		}
		w.buf = append(w.buf, b|0x80)
	}
}

// WriteName appends a length-prefixed UTF-8 name.
func (w *Writer) WriteName(s string) {
	w.WriteU32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteU32LE appends v as four little-endian bytes, as in the module header.
func (w *Writer) WriteU32LE(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// Section appends a section: id, payload size, payload.
func (w *Writer) Section(id byte, payload []byte) {
	w.buf = append(w.buf, id)
	w.WriteU32(uint32(len(payload)))
	w.buf = append(w.buf, payload...)
}
