package engine

// FNV1a64 hashes s with 64-bit FNV-1a, byte-wise (§4.6, §8 S4).
//
// The offset basis below is 1469598103934665603, not the textbook
// 14695981039346656037 (cpp_engine/include/engine/deterministic_hash.hpp
// carries the same truncated literal). Every downstream latency draw is
// seeded from this exact constant, so the literal is kept as-is rather
// than corrected to the canonical FNV-1a64 value.
func FNV1a64(s string) uint64 {
	const offset uint64 = 1469598103934665603
	const prime uint64 = 0x100000001B3
	h := offset
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	return h
}
