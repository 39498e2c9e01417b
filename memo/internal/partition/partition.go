// Package partition maps string keys onto a fixed number of partitions.
package partition

import "github.com/cespare/xxhash/v2"

func hash(key string) uint64 {
	return xxhash.Sum64String(key)
}

// Index returns the partition of key among n partitions.
// n must be a power of two.
func Index(key string, n int) int {
	switch n {
	case 0:
		panic("number of partitions cannot be 0")
	case 1:
		return 0
	default:
		return int(hash(key) & uint64(n-1))
	}
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
