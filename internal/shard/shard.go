// Package shard maps item keys onto a fixed number of shards.
package shard

import "hash/fnv"

// MaxShards is the largest supported shard count.
const MaxShards = 256

// Clamp bounds n to [1, MaxShards].
func Clamp(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxShards {
		return MaxShards
	}
	return n
}

// Index returns the shard that key belongs to. With numShards <= 1 every key
// goes to shard 0.
func Index(key string, numShards int) int {
	numShards = Clamp(numShards)
	if numShards == 1 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(numShards))
}
