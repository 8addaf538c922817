package compress

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"
)

// brotliEngine wraps andybalholm/brotli's streaming codec (new dependency,
// grounded on manifests/caddyserver-caddy's go.mod — see DESIGN.md); there
// is no one-shot block API, so Pack/Unpack buffer through bytes.Buffer.
type brotliEngine struct{}

func (brotliEngine) Name() Algorithm { return Brotli }

func (brotliEngine) MaxCompressedSize(n int) int { return n + n/2 + 64 }

func (brotliEngine) Pack(dst, src []byte, level Level, hint Hint) (int, bool, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotliLevel(level))
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

func (brotliEngine) Unpack(dst, src []byte) error {
	r := brotli.NewReader(bytes.NewReader(src))
	_, err := io.ReadFull(r, dst)
	return err
}

func brotliLevel(l Level) int {
	switch l {
	case Fastest:
		return 1
	case Average:
		return 6
	case Best:
		return 9
	case Extreme:
		return 11
	default:
		return 6
	}
}
