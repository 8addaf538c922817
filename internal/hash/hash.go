// Package hash implements CyberCache's seeded 64-bit hasher registry
// (spec §4.3): a selectable algorithm, and two named process-wide instances,
// table_hasher (record lookup) and password_hasher (authentication).
package hash

import (
	"github.com/OneOfOne/xxhash"
	"github.com/spaolacci/murmur3"
)

// Algorithm selects one of the five hash implementations spec §4.3 lists.
type Algorithm byte

const (
	XxHash Algorithm = iota
	FarmHash
	SpookyHash
	MurmurHash2
	MurmurHash3
)

func (a Algorithm) String() string {
	switch a {
	case XxHash:
		return "xxhash"
	case FarmHash:
		return "farmhash"
	case SpookyHash:
		return "spookyhash"
	case MurmurHash2:
		return "murmurhash2"
	case MurmurHash3:
		return "murmurhash3"
	default:
		return "unknown"
	}
}

func ParseAlgorithm(name string) (Algorithm, bool) {
	switch name {
	case "xxhash":
		return XxHash, true
	case "farmhash":
		return FarmHash, true
	case "spookyhash":
		return SpookyHash, true
	case "murmurhash2":
		return MurmurHash2, true
	case "murmurhash3":
		return MurmurHash3, true
	default:
		return 0, false
	}
}

// InvalidHash is the reserved "absent" hash value.
const InvalidHash uint64 = 0xFFFFFFFFFFFFFFFF

// Hash computes the 64-bit seeded hash of data using algo. Grounded on
// util/hash_utils.go's `xxhash.New64().Write(key).Sum64()` shape, extended
// to every selectable algorithm and an explicit seed.
func Hash(algo Algorithm, data []byte, seed uint64) uint64 {
	switch algo {
	case XxHash:
		h := xxhash.NewS64(seed)
		h.Write(data)
		return h.Sum64()
	case MurmurHash3:
		h := murmur3.New64WithSeed(uint32(seed))
		h.Write(data)
		return h.Sum64()
	case MurmurHash2:
		return murmurHash2_64A(data, seed)
	case FarmHash:
		return farmHash64(data, seed)
	case SpookyHash:
		return spookyHash64(data, seed)
	default:
		return InvalidHash
	}
}

// Hasher is a stateful, seeded hash instance over one Algorithm, matching
// the object shape of lib/c3lib/c3_hasher.h's `Hasher` base class.
type Hasher struct {
	method Algorithm
	seed   uint64
}

func (h *Hasher) Method() Algorithm { return h.method }
func (h *Hasher) SetMethod(m Algorithm) { h.method = m }
func (h *Hasher) Seed() uint64      { return h.seed }
func (h *Hasher) SetSeed(s uint64)  { h.seed = s }
func (h *Hasher) Hash(data []byte) uint64 { return Hash(h.method, data, h.seed) }

// TableHasher is the process-wide instance used for record lookup; default
// method and seed are taken verbatim from lib/c3lib/c3_hasher.h.
var TableHasher = &Hasher{method: XxHash, seed: 0xA7E792DE6A72D8E0}

// PasswordHasher is the process-wide instance used for password hashing;
// default method and seed are taken verbatim from lib/c3lib/c3_hasher.h.
var PasswordHasher = &Hasher{method: MurmurHash2, seed: 0x2CFC6D033D509131}
