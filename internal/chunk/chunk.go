// Package chunk implements CyberCache's self-describing binary encoding
// (spec §4.4) used inside command/response headers and payload-list bodies:
// small integers, short/long strings, short/long lists, all tagged by the
// lead byte's top two bits.
package chunk

import (
	"github.com/pkg/errors"
)

// Type is the lead-byte top-two-bits tag.
type Type byte

const (
	TypeSmallInt Type = iota
	TypeShortString
	TypeShortList
	TypeSubTyped
)

// SubType enumerates the §4.4 sub-typed forms (top bits == 11).
type SubType byte

const (
	SubSmallNegative SubType = iota // -1..-8
	SubBigNegative                  // 1..4 trailing bytes, biased -9
	SubSmallInt                     // 0..7, redundant with mid-range form
	SubShortString                  // 0..7 bytes
	SubShortList                    // 0..7 items
	SubBigInt                       // 72..u32::MAX, 1..4 trailing bytes, biased 72
	SubLongString
	SubLongList
)

const (
	leadTypeShift = 6
	leadTypeMask  = 0x03

	midRangeMin = 8
	midRangeMax = 71

	bigNegativeBias = -9
	bigIntBias      = 72
)

// Decoder is a one-pass cursor over a byte range, mirroring §4.4's
// peek_type/next_number/next_string/next_list iterator, grounded on
// util/buffer_reader.go's ReadUB2..ReadUB8 cursor style.
type Decoder struct {
	buf []byte
	pos int
}

func NewDecoder(buf []byte) *Decoder { return &Decoder{buf: buf} }

func (d *Decoder) Pos() int  { return d.pos }
func (d *Decoder) Len() int  { return len(d.buf) }
func (d *Decoder) Done() bool { return d.pos >= len(d.buf) }

// PeekType returns the Type of the next chunk without advancing the cursor.
func (d *Decoder) PeekType() (Type, error) {
	if d.pos >= len(d.buf) {
		return 0, errors.New("chunk: PeekType at end of buffer")
	}
	return Type(d.buf[d.pos] >> leadTypeShift & leadTypeMask), nil
}

// NextNumber decodes the next chunk as a signed 64-bit integer (range
// i32::MIN..=u32::MAX per spec §4.4) and advances the cursor.
func (d *Decoder) NextNumber() (int64, error) {
	if d.pos >= len(d.buf) {
		return 0, errors.New("chunk: NextNumber at end of buffer")
	}
	lead := d.buf[d.pos]
	top := Type(lead >> leadTypeShift & leadTypeMask)

	if top != TypeSubTyped {
		// Mid-range (8..71): top-two-bits small-int form, low 6 bits hold
		// (value - 8) per §4.4's biased one-byte encoding.
		if top == TypeSmallInt {
			v := int64(lead&^(leadTypeMask<<leadTypeShift)) + midRangeMin
			d.pos++
			return v, nil
		}
		return 0, errors.Errorf("chunk: chunk at pos %d is not a number (type %v)", d.pos, top)
	}

	sub := SubType(lead & 0x3F >> 3)
	switch sub {
	case SubSmallNegative:
		v := -1 - int64(lead&0x07)
		d.pos++
		return v, nil
	case SubSmallInt:
		v := int64(lead & 0x07)
		d.pos++
		return v, nil
	case SubBigNegative:
		n := int(lead&0x07) + 1
		if n > 4 {
			return 0, errors.New("chunk: big-negative trailing-byte count out of range")
		}
		if d.pos+1+n > len(d.buf) {
			return 0, errors.New("chunk: truncated big-negative number")
		}
		var mag uint32
		for i := 0; i < n; i++ {
			mag |= uint32(d.buf[d.pos+1+i]) << (8 * uint(i))
		}
		d.pos += 1 + n
		return int64(bigNegativeBias) - int64(mag), nil
	case SubBigInt:
		n := int(lead&0x07) + 1
		if n > 4 {
			return 0, errors.New("chunk: big-int trailing-byte count out of range")
		}
		if d.pos+1+n > len(d.buf) {
			return 0, errors.New("chunk: truncated big-int number")
		}
		var mag uint32
		for i := 0; i < n; i++ {
			mag |= uint32(d.buf[d.pos+1+i]) << (8 * uint(i))
		}
		d.pos += 1 + n
		return int64(bigIntBias) + int64(mag), nil
	default:
		return 0, errors.Errorf("chunk: sub-type %v is not a number", sub)
	}
}

// NextString decodes the next chunk as a string, returning a slice that
// borrows the underlying buffer (no copy), and advances the cursor.
func (d *Decoder) NextString() ([]byte, error) {
	if d.pos >= len(d.buf) {
		return nil, errors.New("chunk: NextString at end of buffer")
	}
	lead := d.buf[d.pos]
	top := Type(lead >> leadTypeShift & leadTypeMask)

	if top == TypeShortString {
		// Mid-range (8..71): top-two-bits form, low 6 bits hold (length - 8).
		n := int(lead&^(leadTypeMask<<leadTypeShift)) + midRangeMin
		if d.pos+1+n > len(d.buf) {
			return nil, errors.New("chunk: truncated short string")
		}
		s := d.buf[d.pos+1 : d.pos+1+n]
		d.pos += 1 + n
		return s, nil
	}
	if top != TypeSubTyped {
		return nil, errors.Errorf("chunk: chunk at pos %d is not a string (type %v)", d.pos, top)
	}
	sub := SubType(lead & 0x3F >> 3)
	switch sub {
	case SubShortString:
		n := int(lead & 0x07)
		if d.pos+1+n > len(d.buf) {
			return nil, errors.New("chunk: truncated short string")
		}
		s := d.buf[d.pos+1 : d.pos+1+n]
		d.pos += 1 + n
		return s, nil
	case SubLongString:
		n, hdr, err := d.readRunLength(lead)
		if err != nil {
			return nil, err
		}
		start := d.pos + hdr
		if start+n > len(d.buf) {
			return nil, errors.New("chunk: truncated long string")
		}
		s := d.buf[start : start+n]
		d.pos = start + n
		return s, nil
	default:
		return nil, errors.Errorf("chunk: sub-type %v is not a string", sub)
	}
}

// List is an iterator over a short/long list chunk's elements, each a
// length-prefixed binary string per §4.4.
type List struct {
	d     *Decoder
	count int
	index int
}

// NextList decodes the next chunk as a list header, returning an iterator
// over its count elements, and advances the cursor past the list header.
func (d *Decoder) NextList() (*List, error) {
	if d.pos >= len(d.buf) {
		return nil, errors.New("chunk: NextList at end of buffer")
	}
	lead := d.buf[d.pos]
	top := Type(lead >> leadTypeShift & leadTypeMask)

	if top == TypeShortList {
		// Mid-range (8..71): top-two-bits form, low 6 bits hold (count - 8).
		n := int(lead&^(leadTypeMask<<leadTypeShift)) + midRangeMin
		d.pos++
		return &List{d: d, count: n}, nil
	}
	if top != TypeSubTyped {
		return nil, errors.Errorf("chunk: chunk at pos %d is not a list (type %v)", d.pos, top)
	}
	sub := SubType(lead & 0x3F >> 3)
	switch sub {
	case SubShortList:
		n := int(lead & 0x07)
		d.pos++
		return &List{d: d, count: n}, nil
	case SubLongList:
		n, hdr, err := d.readRunLength(lead)
		if err != nil {
			return nil, err
		}
		d.pos += hdr
		return &List{d: d, count: n}, nil
	default:
		return nil, errors.Errorf("chunk: sub-type %v is not a list", sub)
	}
}

func (l *List) Count() int { return l.count }
func (l *List) Done() bool { return l.index >= l.count }

// Next reads one length-prefixed element string, advancing the underlying
// Decoder's cursor.
func (l *List) Next() ([]byte, error) {
	if l.index >= l.count {
		return nil, errors.New("chunk: list iterator exhausted")
	}
	n, err := readLengthRun(l.d)
	if err != nil {
		return nil, err
	}
	if l.d.pos+n > len(l.d.buf) {
		return nil, errors.New("chunk: truncated list element")
	}
	s := l.d.buf[l.d.pos : l.d.pos+n]
	l.d.pos += n
	l.index++
	return s, nil
}

// readRunLength decodes a big-int-style length run embedded in a
// sub-typed lead byte (used by long-string/long-list headers), returning
// the decoded length and the number of header bytes consumed (including
// the lead byte).
func (d *Decoder) readRunLength(lead byte) (length, headerLen int, err error) {
	n := int(lead&0x07) + 1
	if n > 4 {
		return 0, 0, errors.New("chunk: run-length trailing-byte count out of range")
	}
	if d.pos+1+n > len(d.buf) {
		return 0, 0, errors.New("chunk: truncated run-length header")
	}
	var mag uint32
	for i := 0; i < n; i++ {
		mag |= uint32(d.buf[d.pos+1+i]) << (8 * uint(i))
	}
	return int(bigIntBias) + int(mag), 1 + n, nil
}

// readLengthRun decodes a list element's length, emitted as a sequence of
// 255-valued bytes terminated by a residual byte (e.g. length 517 is
// `255, 255, 7`), per §4.4.
func readLengthRun(d *Decoder) (int, error) {
	total := 0
	for {
		if d.pos >= len(d.buf) {
			return 0, errors.New("chunk: truncated length run")
		}
		b := d.buf[d.pos]
		d.pos++
		total += int(b)
		if b != 255 {
			return total, nil
		}
	}
}
