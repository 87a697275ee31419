package datastore

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"namechain.dev/registry/types"
)

type slotKey struct {
	registry common.Address
	id       types.TokenID
}

// MemStore is the in-memory NameStore.
type MemStore struct {
	mu       sync.RWMutex
	entries  map[slotKey]Record
	subs     map[slotKey]common.Address
	resolver map[slotKey]common.Address
}

var _ NameStore = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		entries:  make(map[slotKey]Record),
		subs:     make(map[slotKey]common.Address),
		resolver: make(map[slotKey]common.Address),
	}
}

func (m *MemStore) Entry(registry common.Address, id types.TokenID) (Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.entries[slotKey{registry, id.Canonical()}]
	return r, ok
}

func (m *MemStore) SetEntry(registry common.Address, id types.TokenID, r Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[slotKey{registry, id.Canonical()}] = r
}

func (m *MemStore) Subregistry(registry common.Address, id types.TokenID) common.Address {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.subs[slotKey{registry, id.Canonical()}]
}

func (m *MemStore) SetSubregistry(registry common.Address, id types.TokenID, sub common.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[slotKey{registry, id.Canonical()}] = sub
}

func (m *MemStore) Resolver(registry common.Address, id types.TokenID) common.Address {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resolver[slotKey{registry, id.Canonical()}]
}

func (m *MemStore) SetResolver(registry common.Address, id types.TokenID, resolver common.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolver[slotKey{registry, id.Canonical()}] = resolver
}
