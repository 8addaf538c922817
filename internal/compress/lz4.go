package compress

import (
	"github.com/pierrec/lz4/v4"
)

// lz4Engine wraps pierrec/lz4's block codec (a direct teacher dependency,
// see DESIGN.md).
type lz4Engine struct{}

func (lz4Engine) Name() Algorithm { return Lz4 }

func (lz4Engine) MaxCompressedSize(n int) int { return lz4.CompressBlockBound(n) }

func (lz4Engine) Pack(dst, src []byte, level Level, hint Hint) (int, bool, error) {
	var c lz4.Compressor
	n, err := c.CompressBlock(src, dst)
	if err != nil {
		return 0, false, err
	}
	if n == 0 || n >= len(src) {
		return 0, false, nil
	}
	return n, true, nil
}

func (lz4Engine) Unpack(dst, src []byte) error {
	_, err := lz4.UncompressBlock(src, dst)
	return err
}
