// Package fallback provides the deterministic, network-free content source:
// versioned pools of pre-authored forecasts and a stable hash selector that
// picks the same entry for the same date and target on every platform.
package fallback

import (
	"crypto/sha256"
	"fmt"
	"math/big"
)

// StableHash returns the SHA-256 digest of key read as a big-endian unsigned
// integer. The value depends only on the bytes of key.
func StableHash(key string) *big.Int {
	sum := sha256.Sum256([]byte(key))
	return new(big.Int).SetBytes(sum[:])
}

// SelectionKey joins a date key and a target the way Select hashes them.
func SelectionKey(dateKey, target string) string {
	return dateKey + ":" + target
}

// Select picks an index in [0, poolSize) for the date and target.
// Identical inputs always produce the identical index.
func Select(dateKey, target string, poolSize int) int {
	if poolSize < 1 {
		panic(fmt.Sprintf("fallback: pool size must be positive, got %d", poolSize))
	}
	h := StableHash(SelectionKey(dateKey, target))
	return int(new(big.Int).Mod(h, big.NewInt(int64(poolSize))).Int64())
}
