package filesystem

import (
	"sync"

	"github.com/spaolacci/murmur3"
)

const (
	nodeStripes = 256
	dirStripes  = 64
)

// nodeLocks serializes writers per node. A node's stripe guards its record
// file and both of its edge subtrees. Stripe selection: id % nodeStripes.
type nodeLocks struct {
	stripes [nodeStripes]sync.RWMutex
}

func stripeOf(id int64) int {
	return int(uint64(id) % nodeStripes)
}

// lock acquires id's stripe for writing
func (l *nodeLocks) lock(id int64) func() {
	mu := &l.stripes[stripeOf(id)]
	mu.Lock()
	return mu.Unlock
}

// rlock acquires id's stripe for reading
func (l *nodeLocks) rlock(id int64) func() {
	mu := &l.stripes[stripeOf(id)]
	mu.RLock()
	return mu.RUnlock
}

// lockPair acquires the stripes of both endpoints for writing, lowest
// stripe first, so concurrent pair locks never deadlock
func (l *nodeLocks) lockPair(a, b int64) func() {
	sa, sb := stripeOf(a), stripeOf(b)
	if sa == sb {
		l.stripes[sa].Lock()
		return l.stripes[sa].Unlock
	}
	if sb < sa {
		sa, sb = sb, sa
	}
	l.stripes[sa].Lock()
	l.stripes[sb].Lock()
	return func() {
		l.stripes[sb].Unlock()
		l.stripes[sa].Unlock()
	}
}

// dirLocks makes each manifest read-modify-write a critical section.
// Stripe selection: murmur3(dir) % dirStripes. Never held while acquiring
// another lock.
type dirLocks struct {
	stripes [dirStripes]sync.Mutex
}

func (l *dirLocks) lock(dir string) func() {
	mu := &l.stripes[murmur3.Sum32([]byte(dir))%dirStripes]
	mu.Lock()
	return mu.Unlock
}
