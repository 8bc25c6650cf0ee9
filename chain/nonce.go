package chain

import (
	"context"
	"sync"
)

// nonceManager owns the signing account's transaction nonce. It is internal
// to the client and lock-guarded; callers reserve a slot before building a
// transaction and either keep it (broadcast accepted) or roll it back so a
// failed submission does not waste the slot.
type nonceManager struct {
	mu     sync.Mutex
	next   uint64
	synced bool
	fetch  func(ctx context.Context) (uint64, error)
}

func newNonceManager(fetch func(ctx context.Context) (uint64, error)) *nonceManager {
	return &nonceManager{fetch: fetch}
}

// reserve returns the next nonce and advances the counter, syncing with the
// node on first use.
func (m *nonceManager) reserve(ctx context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.synced {
		n, err := m.fetch(ctx)
		if err != nil {
			return 0, err
		}
		m.next = n
		m.synced = true
	}
	n := m.next
	m.next++
	return n, nil
}

// rollback returns a reserved nonce if no later one has been handed out.
// Otherwise the counter is marked stale so the next reserve re-syncs.
func (m *nonceManager) rollback(n uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.next == n+1 {
		m.next = n
		return
	}
	m.synced = false
}

// resync drops the local counter and fetches a fresh nonce from the node.
// Used after a nonce-conflict rejection.
func (m *nonceManager) resync(ctx context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.fetch(ctx)
	if err != nil {
		m.synced = false
		return 0, err
	}
	m.next = n + 1
	m.synced = true
	return n, nil
}
