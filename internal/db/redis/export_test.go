package redis

import "github.com/redis/rueidis"

// NewStoreForTest creates a Store with the provided rueidis client (test-only).
func NewStoreForTest(c rueidis.Client) *Store {
	return newStore(c, "", 0)
}

// newPrefixedStoreForTest creates a Store with a key prefix and batch size.
func newPrefixedStoreForTest(c rueidis.Client, prefix string, batchSize int) *Store {
	return newStore(c, prefix, batchSize)
}
