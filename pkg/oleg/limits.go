package oleg

// KeyMax is the maximum number of key bytes the store retains. Longer keys
// are silently truncated, matching the reference format: truncation, not
// rejection, keeps Put infallible on key length alone.
const KeyMax = 250

// DefaultContentType is substituted whenever Put/PutCT is given an empty
// content type.
const DefaultContentType = "application/octet-stream"

// DefaultSlotCapacity is the initial bucket count used when
// Options.InitialCapacity is zero. It is a power of two and is stable
// across open/close cycles for a given store directory (growth is driven
// purely by load factor, not by any size recorded on disk).
const DefaultSlotCapacity = 1024

// hashSeed seeds the Murmur3 hasher. It is part of the persisted format in
// spirit (it determines slot assignment, which determines on-disk record
// order in a dump) even though the hash itself is never written to disk.
// Changing it does not corrupt existing dump/AOL files, but it does change
// bucket-array iteration order, which tests that assert exact record order
// would need to account for.
const hashSeed uint32 = 0x4F4C4547 // ASCII "OLEG"
