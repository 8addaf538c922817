package chunk

import (
	"github.com/pkg/errors"
)

// Encoder mirrors Decoder: a two-phase estimate/commit protocol so a
// header buffer can be sized exactly before any chunk is written (spec
// §4.4/§4.5), grounded on util/buffer_writer.go's WriteUB2..WriteUB8/
// WriteLength style.
type Encoder struct {
	buf []byte
	pos int
}

// NewEncoder wraps a caller-sized destination buffer (typically sized by
// summing EstimateNumber/EstimateString/EstimateList calls beforehand).
func NewEncoder(dst []byte) *Encoder { return &Encoder{buf: dst} }

func (e *Encoder) Pos() int    { return e.pos }
func (e *Encoder) Bytes() []byte { return e.buf[:e.pos] }

// EstimateNumber returns the byte count PutNumber(v) will consume.
func EstimateNumber(v int64) int {
	switch {
	case v >= 0 && v <= 7:
		return 1
	case v >= midRangeMin && v <= midRangeMax:
		return 1
	case v >= -8 && v <= -1:
		return 1
	case v > midRangeMax:
		return 1 + runLen(uint32(v-bigIntBias))
	default: // v < -8
		return 1 + runLen(uint32(bigNegativeBias-v))
	}
}

// midRangeMin..midRangeMax is a one-byte biased form (low 6 bits = v-8);
// 0..7 uses the separate sub-typed small-int form instead (see PutNumber).

func runLen(mag uint32) int {
	switch {
	case mag <= 0xFF:
		return 1
	case mag <= 0xFFFF:
		return 2
	case mag <= 0xFFFFFF:
		return 3
	default:
		return 4
	}
}

// PutNumber writes v using the smallest applicable form and advances the cursor.
func (e *Encoder) PutNumber(v int64) error {
	n := EstimateNumber(v)
	if e.pos+n > len(e.buf) {
		return errors.New("chunk: encoder buffer too small for number")
	}
	switch {
	case v >= 0 && v <= 7:
		e.buf[e.pos] = byte(TypeSubTyped)<<leadTypeShift | byte(SubSmallInt)<<3 | byte(v)
		e.pos++
	case v >= midRangeMin && v <= midRangeMax:
		e.buf[e.pos] = byte(TypeSmallInt)<<leadTypeShift | byte(v-midRangeMin)
		e.pos++
	case v >= -8 && v <= -1:
		mag := byte(-1 - v)
		e.buf[e.pos] = byte(TypeSubTyped)<<leadTypeShift | byte(SubSmallNegative)<<3 | mag
		e.pos++
	case v > midRangeMax:
		mag := uint32(v - bigIntBias)
		nb := runLen(mag)
		e.buf[e.pos] = byte(TypeSubTyped)<<leadTypeShift | byte(SubBigInt)<<3 | byte(nb-1)
		e.pos++
		for i := 0; i < nb; i++ {
			e.buf[e.pos+i] = byte(mag >> (8 * uint(i)))
		}
		e.pos += nb
	default: // v < -8
		mag := uint32(bigNegativeBias - v)
		nb := runLen(mag)
		e.buf[e.pos] = byte(TypeSubTyped)<<leadTypeShift | byte(SubBigNegative)<<3 | byte(nb-1)
		e.pos++
		for i := 0; i < nb; i++ {
			e.buf[e.pos+i] = byte(mag >> (8 * uint(i)))
		}
		e.pos += nb
	}
	return nil
}

// EstimateString returns the byte count PutString(s) will consume.
func EstimateString(s []byte) int {
	n := len(s)
	switch {
	case n <= 7:
		return 1 + n
	case n <= midRangeMax:
		return 1 + n
	default:
		return 1 + runLen(uint32(n-bigIntBias)) + n
	}
}

// PutString writes s using the tiny (0..7), mid-range (8..71, biased top-
// two-bits form) or long form and advances the cursor.
func (e *Encoder) PutString(s []byte) error {
	total := EstimateString(s)
	if e.pos+total > len(e.buf) {
		return errors.New("chunk: encoder buffer too small for string")
	}
	n := len(s)
	switch {
	case n <= 7:
		e.buf[e.pos] = byte(TypeSubTyped)<<leadTypeShift | byte(SubShortString)<<3 | byte(n)
		e.pos++
	case n <= midRangeMax:
		e.buf[e.pos] = byte(TypeShortString)<<leadTypeShift | byte(n-midRangeMin)
		e.pos++
	default:
		mag := uint32(n - bigIntBias)
		nb := runLen(mag)
		e.buf[e.pos] = byte(TypeSubTyped)<<leadTypeShift | byte(SubLongString)<<3 | byte(nb-1)
		e.pos++
		for i := 0; i < nb; i++ {
			e.buf[e.pos+i] = byte(mag >> (8 * uint(i)))
		}
		e.pos += nb
	}
	copy(e.buf[e.pos:], s)
	e.pos += n
	return nil
}

// EstimateList returns the byte count of the list header PutList(count)
// will consume (not including its elements, sized separately with
// EstimateListElement).
func EstimateList(count int) int {
	switch {
	case count <= 7:
		return 1
	case count <= midRangeMax:
		return 1
	default:
		return 1 + runLen(uint32(count-bigIntBias))
	}
}

// PutList writes a list header for count elements and advances the cursor;
// the caller writes each element immediately after via PutListElement.
func (e *Encoder) PutList(count int) error {
	total := EstimateList(count)
	if e.pos+total > len(e.buf) {
		return errors.New("chunk: encoder buffer too small for list header")
	}
	if count <= 7 {
		e.buf[e.pos] = byte(TypeSubTyped)<<leadTypeShift | byte(SubShortList)<<3 | byte(count)
		e.pos++
		return nil
	}
	if count <= midRangeMax {
		e.buf[e.pos] = byte(TypeShortList)<<leadTypeShift | byte(count-midRangeMin)
		e.pos++
		return nil
	}
	mag := uint32(count - bigIntBias)
	nb := runLen(mag)
	e.buf[e.pos] = byte(TypeSubTyped)<<leadTypeShift | byte(SubLongList)<<3 | byte(nb-1)
	e.pos++
	for i := 0; i < nb; i++ {
		e.buf[e.pos+i] = byte(mag >> (8 * uint(i)))
	}
	e.pos += nb
	return nil
}

// EstimateListElement returns the byte count PutListElement(s) will
// consume: a 255-byte run length prefix terminated by the residual byte,
// followed by the raw bytes.
func EstimateListElement(s []byte) int {
	n := len(s)
	return n/255 + 1 + n
}

// PutListElement writes one length-prefixed list element and advances the cursor.
func (e *Encoder) PutListElement(s []byte) error {
	total := EstimateListElement(s)
	if e.pos+total > len(e.buf) {
		return errors.New("chunk: encoder buffer too small for list element")
	}
	n := len(s)
	for n >= 255 {
		e.buf[e.pos] = 255
		e.pos++
		n -= 255
	}
	e.buf[e.pos] = byte(n)
	e.pos++
	copy(e.buf[e.pos:], s)
	e.pos += len(s)
	return nil
}

// Check asserts the cursor matches an expected total, per §4.5's
// estimate/commit protocol ("violating the order or count is a
// programming error").
func (e *Encoder) Check(expected int) error {
	if e.pos != expected {
		return errors.Errorf("chunk: encoder cursor %d does not match estimate %d", e.pos, expected)
	}
	return nil
}
