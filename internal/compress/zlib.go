package compress

import (
	"bytes"
	"compress/zlib"
	"io"
)

// zlibEngine wraps stdlib compress/zlib, the teacher's own choice for
// zlib-compatible framing (server/innodb/manager/compression_manager.go) —
// kept as stdlib because it is the corpus's choice, not a gap; see DESIGN.md.
type zlibEngine struct{}

func (zlibEngine) Name() Algorithm { return Zlib }

func (zlibEngine) MaxCompressedSize(n int) int { return n + n/1000 + 128 }

func (zlibEngine) Pack(dst, src []byte, level Level, hint Hint) (int, bool, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlibLevel(level))
	if err != nil {
		return 0, false, err
	}
	if _, err := w.Write(src); err != nil {
		return 0, false, err
	}
	if err := w.Close(); err != nil {
		return 0, false, err
	}
	if buf.Len() >= len(src) {
		return 0, false, nil
	}
	n := copy(dst, buf.Bytes())
	return n, true, nil
}

func (zlibEngine) Unpack(dst, src []byte) error {
	r, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return err
	}
	defer r.Close()
	_, err = io.ReadFull(r, dst)
	return err
}

func zlibLevel(l Level) int {
	switch l {
	case Fastest:
		return zlib.BestSpeed
	case Best, Extreme:
		return zlib.BestCompression
	default:
		return zlib.DefaultCompression
	}
}
