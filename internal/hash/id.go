package hash

import "github.com/cespare/xxhash/v2"

// DiveID computes the xxHash64 fingerprint of a dive blob. Logbook
// tooling uses it to spot duplicate downloads of the same dive.
func DiveID(data []byte) uint64 {
	return xxhash.Sum64(data)
}
