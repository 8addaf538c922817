package compress

import (
	"github.com/golang/snappy"
)

// snappyEngine wraps golang/snappy's block codec, grounded on
// server/net/connection.go's SetCompressType snappy.NewReader/
// snappy.NewBufferedWriter switch (generalized from a stream codec to a
// block one, since the chunk payload here is always fully buffered).
type snappyEngine struct{}

func (snappyEngine) Name() Algorithm { return Snappy }

func (snappyEngine) MaxCompressedSize(n int) int { return snappy.MaxEncodedLen(n) }

func (snappyEngine) Pack(dst, src []byte, level Level, hint Hint) (int, bool, error) {
	out := snappy.Encode(dst, src)
	if len(out) >= len(src) {
		return 0, false, nil
	}
	return len(out), true, nil
}

func (snappyEngine) Unpack(dst, src []byte) error {
	_, err := snappy.Decode(dst, src)
	return err
}
