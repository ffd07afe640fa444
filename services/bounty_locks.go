// services/bounty_locks.go
package services

import "sync"

// bountyLocks serializes mutations per bounty id. Submit, decide, claim and
// expire on the same bounty take the same mutex, so two concurrent deciders
// can never both observe a Submitted solution and both accept. Unrelated
// bounties never contend.
//
// Locks are never removed; a finished bounty's mutex is a few dozen idle
// bytes and removal would race with late claim attempts.
type bountyLocks struct {
	mu sync.Map // bountyID → *sync.Mutex
}

func (l *bountyLocks) lock(bountyID uint64) *sync.Mutex {
	v, _ := l.mu.LoadOrStore(bountyID, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m
}

// ledgerLocks is shared by every service touching bounty state. The DB
// transaction is still the source of truth; the mutex only narrows the
// interleavings a single process can produce.
var ledgerLocks bountyLocks
