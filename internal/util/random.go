package util

import "math/rand"

// PickRandom returns a random element from the pool, or "" for an empty pool.
// Uses math/rand; phrase variation is not a cryptographic concern.
func PickRandom(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[rand.Intn(len(pool))]
}
