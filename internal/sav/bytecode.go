package sav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	opSkip    = 0
	opEOF     = 252
	opRaw     = 253
	opSpaces  = 254
	opSysmis  = 255
	opMaxBias = 251
)

var spaces8 = [elementSize]byte{' ', ' ', ' ', ' ', ' ', ' ', ' ', ' '}

// elementReader yields the case data one 8-byte element at a time. It
// returns io.EOF at the end of data.
type elementReader interface {
	next(dst []byte) error
}

type rawReader struct {
	r io.Reader
}

func (r *rawReader) next(dst []byte) error {
	_, err := io.ReadFull(r.r, dst[:elementSize])
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated data element", ErrCorrupt)
	}
	return err
}

type bytecodeReader struct {
	r     io.Reader
	order binary.ByteOrder
	bias  float64
	ops   [elementSize]byte
	pos   int
	done  bool
}

func newBytecodeReader(r io.Reader, order binary.ByteOrder, bias float64) *bytecodeReader {
	return &bytecodeReader{r: r, order: order, bias: bias, pos: elementSize}
}

func (b *bytecodeReader) next(dst []byte) error {
	for {
		if b.done {
			return io.EOF
		}
		if b.pos >= elementSize {
			if _, err := io.ReadFull(b.r, b.ops[:]); err != nil {
				if errors.Is(err, io.ErrUnexpectedEOF) {
					return fmt.Errorf("%w: truncated compression block", ErrCorrupt)
				}
				return err
			}
			b.pos = 0
		}
		op := b.ops[b.pos]
		b.pos++
		switch op {
		case opSkip:
			continue
		case opEOF:
			b.done = true
			return io.EOF
		case opRaw:
			if _, err := io.ReadFull(b.r, dst[:elementSize]); err != nil {
				return fmt.Errorf("%w: truncated raw element", ErrCorrupt)
			}
		case opSpaces:
			copy(dst, spaces8[:])
		case opSysmis:
			b.order.PutUint64(dst, math.Float64bits(sysmis))
		default:
			b.order.PutUint64(dst, math.Float64bits(float64(op)-b.bias))
		}
		return nil
	}
}

// elementWriter emits case data one 8-byte element at a time.
type elementWriter interface {
	number(v float64)
	chunk(p []byte)
	close() error
}

type rawWriter struct {
	w   io.Writer
	buf [elementSize]byte
	err error
}

func (r *rawWriter) number(v float64) {
	binary.LittleEndian.PutUint64(r.buf[:], math.Float64bits(v))
	r.write(r.buf[:])
}

func (r *rawWriter) chunk(p []byte) {
	r.write(p[:elementSize])
}

func (r *rawWriter) write(p []byte) {
	if r.err != nil {
		return
	}
	_, r.err = r.w.Write(p)
}

func (r *rawWriter) close() error {
	return r.err
}

type bytecodeWriter struct {
	w    io.Writer
	bias float64
	ops  [elementSize]byte
	n    int
	data []byte
	err  error
}

func newBytecodeWriter(w io.Writer, bias float64) *bytecodeWriter {
	return &bytecodeWriter{w: w, bias: bias, data: make([]byte, 0, elementSize*elementSize)}
}

func (c *bytecodeWriter) number(v float64) {
	switch {
	case v == sysmis:
		c.op(opSysmis, nil)
	case v == math.Trunc(v) && v >= 1-c.bias && v <= opMaxBias-c.bias:
		c.op(byte(v+c.bias), nil)
	default:
		var raw [elementSize]byte
		binary.LittleEndian.PutUint64(raw[:], math.Float64bits(v))
		c.op(opRaw, raw[:])
	}
}

func (c *bytecodeWriter) chunk(p []byte) {
	if [elementSize]byte(p[:elementSize]) == spaces8 {
		c.op(opSpaces, nil)
		return
	}
	c.op(opRaw, p[:elementSize])
}

func (c *bytecodeWriter) op(code byte, raw []byte) {
	c.ops[c.n] = code
	c.n++
	c.data = append(c.data, raw...)
	if c.n == elementSize {
		c.flush()
	}
}

func (c *bytecodeWriter) flush() {
	for i := c.n; i < elementSize; i++ {
		c.ops[i] = opSkip
	}
	if c.err == nil {
		_, c.err = c.w.Write(c.ops[:])
	}
	if c.err == nil && len(c.data) > 0 {
		_, c.err = c.w.Write(c.data)
	}
	c.n = 0
	c.data = c.data[:0]
}

func (c *bytecodeWriter) close() error {
	if c.n > 0 {
		c.flush()
	}
	return c.err
}
