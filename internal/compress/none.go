package compress

// noneEngine is the "no compression" engine: always reports that packing
// did not shrink the input, so the caller falls back to raw storage.
type noneEngine struct{}

func (noneEngine) Name() Algorithm             { return None }
func (noneEngine) MaxCompressedSize(n int) int { return n }

func (noneEngine) Pack(dst, src []byte, level Level, hint Hint) (int, bool, error) {
	return 0, false, nil
}

func (noneEngine) Unpack(dst, src []byte) error {
	copy(dst, src)
	return nil
}
