package ruleset

import "github.com/haukened/rr-callguard/internal/callguard/domain"

// BloomSizer computes Bloom filter parameters from capacity (n) and target FP rate (p).
// It returns m (number of bits) and k (number of hash functions).
type BloomSizer interface {
	Size(n uint64, p float64) (m uint64, k uint8)
}

// BloomFilter is the minimal interface the snapshot needs from Bloom filters.
type BloomFilter interface {
	Add(key []byte)
	MightContain(key []byte) bool
}

// BloomFactory builds filters sized for a dataset.
type BloomFactory interface {
	New(capacity uint64, fpRate float64) BloomFilter
}

// DecisionCache caches screening decisions with basic metrics.
type DecisionCache interface {
	Get(key string) (domain.Decision, bool)
	Put(key string, d domain.Decision)
	Len() int
	Purge()
	Stats() CacheStats
}

// Repository serves the enabled-rule snapshot read by the decision path.
// Snapshot never blocks on writers once a snapshot is loaded.
// Refresh reloads from the Rule Store and atomically swaps the snapshot.
type Repository interface {
	Snapshot() (Snapshot, error)
	Refresh() error
}
