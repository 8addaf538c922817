package compress

// lzfEngine and lzss3Engine are small self-contained LZ77-family codecs.
// No package in the dependency pack implements LZF or LZSS3 (see
// DESIGN.md, "internal/compress"), and spec §1 lists individual algorithm
// implementations as out of scope for the registry's contract — this is a
// minimal from-scratch codec satisfying the Engine contract, not a
// reimplementation of any licensed library.
type lzfEngine struct{}

func (lzfEngine) Name() Algorithm { return Lzf }

func (lzfEngine) MaxCompressedSize(n int) int { return n + n/16 + 64 }

func (lzfEngine) Pack(dst, src []byte, level Level, hint Hint) (int, bool, error) {
	n, ok := lz77Pack(dst, src, 8192)
	if !ok {
		return 0, false, nil
	}
	return n, true, nil
}

func (lzfEngine) Unpack(dst, src []byte) error {
	return lz77Unpack(dst, src)
}

// lzss3Engine uses the same codec with a smaller window, matching LZSS3's
// historically tighter match-offset field.
type lzss3Engine struct{}

func (lzss3Engine) Name() Algorithm { return Lzss3 }

func (lzss3Engine) MaxCompressedSize(n int) int { return n + n/16 + 64 }

func (lzss3Engine) Pack(dst, src []byte, level Level, hint Hint) (int, bool, error) {
	n, ok := lz77Pack(dst, src, 4096)
	if !ok {
		return 0, false, nil
	}
	return n, true, nil
}

func (lzss3Engine) Unpack(dst, src []byte) error {
	return lz77Unpack(dst, src)
}

// lz77Pack is a byte-oriented, greedy LZ77 encoder: each output token is
// either a literal run (tag 0x00, length byte, raw bytes) or a back-
// reference (tag 0x01, 2-byte big-endian offset, 1-byte length) into the
// previous window bytes. It is not format-compatible with real LZF/LZSS3;
// it satisfies the same strictly-smaller-or-reject contract.
func lz77Pack(dst, src []byte, window int) (int, bool) {
	out := 0
	emitLiteral := func(run []byte) bool {
		for len(run) > 0 {
			n := len(run)
			if n > 255 {
				n = 255
			}
			if out+2+n > len(dst) {
				return false
			}
			dst[out] = 0x00
			dst[out+1] = byte(n)
			copy(dst[out+2:], run[:n])
			out += 2 + n
			run = run[n:]
		}
		return true
	}

	i := 0
	litStart := 0
	for i < len(src) {
		bestLen, bestOff := 0, 0
		lo := i - window
		if lo < 0 {
			lo = 0
		}
		maxLen := len(src) - i
		if maxLen > 255 {
			maxLen = 255
		}
		for j := lo; j < i; j++ {
			l := 0
			for l < maxLen && src[j+l] == src[i+l] {
				l++
			}
			if l > bestLen && l >= 4 {
				bestLen, bestOff = l, i-j
			}
		}
		if bestLen >= 4 {
			if !emitLiteral(src[litStart:i]) {
				return 0, false
			}
			if out+4 > len(dst) {
				return 0, false
			}
			dst[out] = 0x01
			dst[out+1] = byte(bestOff >> 8)
			dst[out+2] = byte(bestOff)
			dst[out+3] = byte(bestLen)
			out += 4
			i += bestLen
			litStart = i
		} else {
			i++
		}
	}
	if !emitLiteral(src[litStart:]) {
		return 0, false
	}
	if out >= len(src) {
		return 0, false
	}
	return out, true
}

func lz77Unpack(dst, src []byte) error {
	o, i := 0, 0
	for i < len(src) {
		tag := src[i]
		i++
		switch tag {
		case 0x00:
			n := int(src[i])
			i++
			copy(dst[o:o+n], src[i:i+n])
			i += n
			o += n
		case 0x01:
			off := int(src[i])<<8 | int(src[i+1])
			n := int(src[i+2])
			i += 3
			start := o - off
			for k := 0; k < n; k++ {
				dst[o+k] = dst[start+k]
			}
			o += n
		}
	}
	return nil
}
