// Package compress implements CyberCache's compressor registry (spec §4.2):
// a fixed enum of engines, a uniform pack/unpack contract requiring strict
// size reduction to accept a compressed form, and an allocator-mediated
// top-level Pack/Unpack pair used by the wire layer.
package compress

import (
	"sync"

	"github.com/pkg/errors"
)

// Algorithm is the wire-stable compressor enum (spec §6: "add-only bump
// version" — ordinal values must never be renumbered).
type Algorithm byte

const (
	None Algorithm = iota
	Lzf
	Snappy
	Lz4
	Lzss3
	Brotli
	Zstd
	Zlib
	Lzham

	numAlgorithms
)

func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case Lzf:
		return "lzf"
	case Snappy:
		return "snappy"
	case Lz4:
		return "lz4"
	case Lzss3:
		return "lzss3"
	case Brotli:
		return "brotli"
	case Zstd:
		return "zstd"
	case Zlib:
		return "zlib"
	case Lzham:
		return "lzham"
	default:
		return "unknown"
	}
}

// Level is the compression-effort hint; engines that ignore it still accept it.
type Level byte

const (
	Fastest Level = iota
	Average
	Best
	Extreme
)

// Hint is a content-shape hint; engines that ignore it still accept it.
type Hint byte

const (
	Generic Hint = iota
	Text
	Binary
)

// Engine is one compressor's pack/unpack contract.
type Engine interface {
	Name() Algorithm
	MaxCompressedSize(n int) int
	// Pack compresses src into dst (len(dst) >= MaxCompressedSize(len(src))),
	// returning the compressed size and true only if that size is strictly
	// smaller than len(src); otherwise the caller must store src raw.
	Pack(dst, src []byte, level Level, hint Hint) (n int, ok bool, err error)
	// Unpack decompresses src into dst, which must be exactly the original
	// uncompressed size.
	Unpack(dst, src []byte) error
}

// Allocator is the allocation/accounting hook a Pack/Unpack call charges its
// scratch buffer against; internal/domain.Registry satisfies this shape.
type Allocator interface {
	Alloc(size int64) ([]byte, error)
	Free(buf []byte)
}

// Registry instantiates engines lazily, one per algorithm, reused across
// calls from any goroutine. The teacher's per-OS-thread engine slots become
// a process-wide lazily-built table guarded by a mutex: Go has no stable
// OS-thread-local storage, and the engines here carry no per-call mutable
// state, so a shared instance is the idiomatic substitute.
type Registry struct {
	mu      sync.Mutex
	engines [numAlgorithms]Engine
}

// NewRegistry builds a Registry with every algorithm pre-wired.
func NewRegistry() *Registry {
	r := &Registry{}
	r.engines[None] = noneEngine{}
	r.engines[Lzf] = lzfEngine{}
	r.engines[Snappy] = snappyEngine{}
	r.engines[Lz4] = lz4Engine{}
	r.engines[Lzss3] = lzss3Engine{}
	r.engines[Brotli] = brotliEngine{}
	r.engines[Zstd] = zstdEngine{}
	r.engines[Zlib] = zlibEngine{}
	r.engines[Lzham] = lzhamEngine{}
	return r
}

// Engine returns the Engine instance for algo.
func (r *Registry) Engine(algo Algorithm) (Engine, error) {
	if algo >= numAlgorithms {
		return nil, errors.Errorf("compress: algorithm %d out of range", algo)
	}
	r.mu.Lock()
	e := r.engines[algo]
	r.mu.Unlock()
	if e == nil {
		return nil, errors.Errorf("compress: algorithm %s not registered", algo)
	}
	return e, nil
}

// Pack compresses src with algo via alloc-provided scratch, returning ok=false
// (and a nil dst) whenever compression did not strictly shrink the input —
// the caller is expected to store src raw in that case.
func (r *Registry) Pack(alloc Allocator, algo Algorithm, src []byte, level Level, hint Hint) (dst []byte, ok bool, err error) {
	e, err := r.Engine(algo)
	if err != nil {
		return nil, false, err
	}
	cap := e.MaxCompressedSize(len(src))
	buf, err := alloc.Alloc(int64(cap))
	if err != nil {
		return nil, false, err
	}
	n, packed, err := e.Pack(buf, src, level, hint)
	if err != nil {
		alloc.Free(buf)
		return nil, false, err
	}
	if !packed {
		alloc.Free(buf)
		return nil, false, nil
	}
	return buf[:n], true, nil
}

// Unpack decompresses src with algo into an alloc-provided buffer of exactly dstSize.
func (r *Registry) Unpack(alloc Allocator, algo Algorithm, src []byte, dstSize int) ([]byte, error) {
	e, err := r.Engine(algo)
	if err != nil {
		return nil, err
	}
	dst, err := alloc.Alloc(int64(dstSize))
	if err != nil {
		return nil, err
	}
	if err := e.Unpack(dst, src); err != nil {
		alloc.Free(dst)
		return nil, err
	}
	return dst, nil
}
