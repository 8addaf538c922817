package compress

// lzhamEngine stands in for LZHAM, which has no pure-Go implementation
// anywhere in the dependency pack and is normally a cgo-bound codec (see
// DESIGN.md). It always reports "not smaller", matching the contract every
// engine must satisfy (spec §4.2) without claiming a compression ratio it
// cannot deliver.
type lzhamEngine struct{}

func (lzhamEngine) Name() Algorithm             { return Lzham }
func (lzhamEngine) MaxCompressedSize(n int) int { return n }

func (lzhamEngine) Pack(dst, src []byte, level Level, hint Hint) (int, bool, error) {
	return 0, false, nil
}

func (lzhamEngine) Unpack(dst, src []byte) error {
	copy(dst, src)
	return nil
}
