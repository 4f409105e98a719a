// Package keypool manages the set of API credentials a collection run draws
// from. Each shard picks one key at random when it starts and sticks with it,
// which spreads a big run across accounts without any per-request bookkeeping.
package keypool

import (
	"errors"
	"math/rand"
	"sync"
	"time"
)

// ErrNoKeys is returned when the pool is constructed with no credentials.
var ErrNoKeys = errors.New("no API keys available")

// Pool is a fixed set of API keys with thread-safe selection.
type Pool struct {
	mu   sync.Mutex
	keys []string
	next int
	rng  *rand.Rand
}

// New creates a pool from the given keys. At least one key is required.
func New(keys []string) (*Pool, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}
	cloned := make([]string, len(keys))
	copy(cloned, keys)

	return &Pool{
		keys: cloned,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Pick returns a uniformly random key from the pool.
func (p *Pool) Pick() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.keys[p.rng.Intn(len(p.keys))]
}

// Next returns keys in round-robin order. Useful when an even spread matters
// more than independence between shards.
func (p *Pool) Next() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := p.keys[p.next]
	p.next = (p.next + 1) % len(p.keys)
	return key
}

// Size returns the number of keys in the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}
