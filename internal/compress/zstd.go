package compress

import (
	"github.com/DataDog/zstd"
)

// zstdEngine wraps DataDog/zstd's cgo-backed codec (new dependency,
// grounded on manifests/ghjramos-aistore and manifests/DataDog-datadog-agent
// go.mod entries — see DESIGN.md).
type zstdEngine struct{}

func (zstdEngine) Name() Algorithm { return Zstd }

func (zstdEngine) MaxCompressedSize(n int) int { return zstd.CompressBound(n) }

func (zstdEngine) Pack(dst, src []byte, level Level, hint Hint) (int, bool, error) {
	out, err := zstd.CompressLevel(dst[:0], src, zstdLevel(level))
	if err != nil {
		return 0, false, err
	}
	if len(out) >= len(src) {
		return 0, false, nil
	}
	return len(out), true, nil
}

func (zstdEngine) Unpack(dst, src []byte) error {
	_, err := zstd.Decompress(dst[:0], src)
	return err
}

func zstdLevel(l Level) int {
	switch l {
	case Fastest:
		return 1
	case Average:
		return 3
	case Best:
		return 12
	case Extreme:
		return 19
	default:
		return 3
	}
}
