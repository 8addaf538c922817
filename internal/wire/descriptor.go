package wire

import (
	"github.com/pingcap/errors"

	"github.com/cyberhull/cybercache-cluster-sub001/internal/auth"
)

// Width is a size-field byte width, encoded in 2 descriptor bits
// (spec §4.5: "header-size width (2 bits: none/1/2/4)").
type Width byte

const (
	WidthNone Width = iota
	Width1
	Width2
	Width4
)

func (w Width) Bytes() int {
	switch w {
	case WidthNone:
		return 0
	case Width1:
		return 1
	case Width2:
		return 2
	case Width4:
		return 4
	default:
		return 0
	}
}

// WidthFor returns the smallest Width that can hold n.
func WidthFor(n uint64) Width {
	switch {
	case n == 0:
		return WidthNone
	case n <= 0xFF:
		return Width1
	case n <= 0xFFFF:
		return Width2
	default:
		return Width4
	}
}

// Descriptor bit layout (one byte, spec §4.5): bits 7-6 carry the auth
// level on a command frame or the response-type pair on a response
// frame; bits 5-4 the header-size width; bits 3-2 the payload-size
// width; bit 1 payload-compressed; bit 0 integrity-marker-present.
const (
	descTopShift     = 6
	descHeaderShift  = 4
	descPayloadShift = 2
	descCompressedBit = 1 << 1
	descMarkerBit     = 1 << 0
	descWidthMask     = 0x03
)

// CommandDescriptor is the decoded form of a command frame's descriptor
// byte.
type CommandDescriptor struct {
	AuthLevel         auth.Level
	HeaderSizeWidth   Width
	PayloadSizeWidth  Width
	PayloadCompressed bool
	MarkerPresent     bool
}

func (d CommandDescriptor) Encode() byte {
	b := byte(d.AuthLevel)<<descTopShift | byte(d.HeaderSizeWidth)<<descHeaderShift | byte(d.PayloadSizeWidth)<<descPayloadShift
	if d.PayloadCompressed {
		b |= descCompressedBit
	}
	if d.MarkerPresent {
		b |= descMarkerBit
	}
	return b
}

func DecodeCommandDescriptor(b byte) CommandDescriptor {
	return CommandDescriptor{
		AuthLevel:         auth.Level((b >> descTopShift) & descWidthMask),
		HeaderSizeWidth:   Width((b >> descHeaderShift) & descWidthMask),
		PayloadSizeWidth:  Width((b >> descPayloadShift) & descWidthMask),
		PayloadCompressed: b&descCompressedBit != 0,
		MarkerPresent:     b&descMarkerBit != 0,
	}
}

// ResponseDescriptor is the decoded form of a response frame's
// descriptor byte: identical layout, but the top two bits are a
// ResponseType instead of an auth level (spec §4.5).
type ResponseDescriptor struct {
	Type              ResponseType
	HeaderSizeWidth   Width
	PayloadSizeWidth  Width
	PayloadCompressed bool
	MarkerPresent     bool
}

func (d ResponseDescriptor) Encode() byte {
	b := byte(d.Type)<<descTopShift | byte(d.HeaderSizeWidth)<<descHeaderShift | byte(d.PayloadSizeWidth)<<descPayloadShift
	if d.PayloadCompressed {
		b |= descCompressedBit
	}
	if d.MarkerPresent {
		b |= descMarkerBit
	}
	return b
}

func DecodeResponseDescriptor(b byte) ResponseDescriptor {
	return ResponseDescriptor{
		Type:              ResponseType((b >> descTopShift) & descWidthMask),
		HeaderSizeWidth:   Width((b >> descHeaderShift) & descWidthMask),
		PayloadSizeWidth:  Width((b >> descPayloadShift) & descWidthMask),
		PayloadCompressed: b&descCompressedBit != 0,
		MarkerPresent:     b&descMarkerBit != 0,
	}
}

// putWidth writes a little-endian (spec §6: "endianness on the wire is
// little-endian for the multi-byte sizes") value of the given width into
// dst, which must be exactly width.Bytes() long.
func putWidthValue(dst []byte, w Width, v uint64) {
	n := w.Bytes()
	for i := 0; i < n; i++ {
		dst[i] = byte(v >> (8 * uint(i)))
	}
}

func readWidthValue(src []byte, w Width) (uint64, error) {
	n := w.Bytes()
	if len(src) < n {
		return 0, errors.New("wire: short size field")
	}
	var v uint64
	for i := 0; i < n; i++ {
		v |= uint64(src[i]) << (8 * uint(i))
	}
	return v, nil
}
