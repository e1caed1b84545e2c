// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedEOF is returned when a serialized object ends before all
	// of its fields could be read.
	ErrUnexpectedEOF = errors.New("unexpected end of serialized data")

	// ErrTrailingBytes is returned when a serialized object is followed by
	// data that does not belong to it.
	ErrTrailingBytes = errors.New("trailing bytes after serialized object")
)

// writer accumulates the little endian serialization of ledger objects.
type writer struct {
	buf bytes.Buffer
}

func (w *writer) u8(v uint8) {
	w.buf.WriteByte(v)
}

func (w *writer) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) raw(b []byte) {
	w.buf.Write(b)
}

// prefixed8 writes b preceded by its length as a single byte.
func (w *writer) prefixed8(b []byte) {
	w.u8(uint8(len(b)))
	w.buf.Write(b)
}

// prefixed16 writes b preceded by its length as a little endian uint16.
func (w *writer) prefixed16(b []byte) {
	w.u16(uint16(len(b)))
	w.buf.Write(b)
}

func (w *writer) bytes() []byte {
	return w.buf.Bytes()
}

// reader consumes a serialized ledger object.  The first failure is sticky,
// every subsequent read returns zero values so that callers only need to
// check err once at the end.
type reader struct {
	b   []byte
	off int
	err error
}

func newReader(b []byte) *reader {
	return &reader{b: b}
}

func (r *reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.b) {
		r.err = ErrUnexpectedEOF
		return nil
	}
	b := r.b[r.off : r.off+n]
	r.off += n

	return b
}

func (r *reader) u8() uint8 {
	b := r.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.next(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.next(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.next(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// copyInto reads len(dst) bytes into dst.
func (r *reader) copyInto(dst []byte) {
	b := r.next(len(dst))
	if b != nil {
		copy(dst, b)
	}
}

func (r *reader) prefixed8() []byte {
	n := int(r.u8())
	b := r.next(n)
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

func (r *reader) prefixed16() []byte {
	n := int(r.u16())
	b := r.next(n)
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

func (r *reader) fail(format string, args ...interface{}) {
	if r.err == nil {
		r.err = fmt.Errorf(format, args...)
	}
}

// done returns the sticky error, or ErrTrailingBytes if the whole input was
// not consumed.
func (r *reader) done() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.b) {
		return ErrTrailingBytes
	}
	return nil
}
