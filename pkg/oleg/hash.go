package oleg

import "github.com/spaolacci/murmur3"

// hashKey computes the 32-bit fingerprint used for bucket assignment.
// Truncation to KeyMax must already have happened by the time this is
// called, so the same key always hashes the same way regardless of which
// call site truncated it.
func hashKey(key []byte) uint32 {
	return murmur3.Sum32WithSeed(key, hashSeed)
}
