package pipeline

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// keyLock serializes upserts per canonical key. Striping bounds memory while
// still guaranteeing that two workers holding the same key cannot interleave
// their read-then-write sequences.
type keyLock struct {
	stripes [lockStripes]sync.Mutex
}

func newKeyLock() *keyLock {
	return &keyLock{}
}

// Lock acquires the stripe for the key and returns its unlock function.
func (k *keyLock) Lock(key string) func() {
	h := fnv.New32a()
	h.Write([]byte(key)) //nolint:errcheck
	mu := &k.stripes[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}
