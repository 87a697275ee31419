package legacy

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// MemRegistrar is an in-memory legacy registrar double.
type MemRegistrar struct {
	mu      sync.RWMutex
	owners  map[common.Hash]common.Address
	expires map[common.Hash]uint64
}

var _ Registrar = (*MemRegistrar)(nil)

func NewMemRegistrar() *MemRegistrar {
	return &MemRegistrar{
		owners:  make(map[common.Hash]common.Address),
		expires: make(map[common.Hash]uint64),
	}
}

func (m *MemRegistrar) Set(labelHash common.Hash, owner common.Address, expiry uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[labelHash] = owner
	m.expires[labelHash] = expiry
}

func (m *MemRegistrar) NameExpires(labelHash common.Hash) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.expires[labelHash]
}

func (m *MemRegistrar) OwnerOf(labelHash common.Hash) common.Address {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.owners[labelHash]
}

type wrappedName struct {
	owner    common.Address
	fuses    Fuses
	expiry   uint64
	resolver common.Address
}

// MemWrapper is an in-memory legacy name-wrapper double. It enforces fuse
// monotonicity itself, so a buggy migration path cannot clear a fuse even
// in tests.
type MemWrapper struct {
	addr  common.Address
	mu    sync.RWMutex
	names map[common.Hash]*wrappedName
}

var _ NameWrapper = (*MemWrapper)(nil)

func NewMemWrapper(addr common.Address) *MemWrapper {
	return &MemWrapper{addr: addr, names: make(map[common.Hash]*wrappedName)}
}

func (m *MemWrapper) Address() common.Address { return m.addr }

// Wrap seeds a wrapped name.
func (m *MemWrapper) Wrap(node common.Hash, owner common.Address, fuses Fuses, expiry uint64, resolver common.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[node] = &wrappedName{owner: owner, fuses: fuses, expiry: expiry, resolver: resolver}
}

func (m *MemWrapper) GetData(node common.Hash) (common.Address, Fuses, uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.names[node]
	if !ok {
		return common.Address{}, 0, 0
	}
	return n.owner, n.fuses, n.expiry
}

func (m *MemWrapper) OwnerOf(node common.Hash) common.Address {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.names[node]
	if !ok {
		return common.Address{}
	}
	return n.owner
}

func (m *MemWrapper) Resolver(node common.Hash) common.Address {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.names[node]
	if !ok {
		return common.Address{}
	}
	return n.resolver
}

func (m *MemWrapper) BurnFuses(node common.Hash, f Fuses) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.names[node]
	if !ok {
		return fmt.Errorf("legacy: node %s not wrapped", node)
	}
	if n.fuses.Has(CannotBurnFuses) && f&^n.fuses != 0 {
		return fmt.Errorf("legacy: fuses frozen for node %s", node)
	}
	n.fuses |= f
	return nil
}

func (m *MemWrapper) SetResolver(node common.Hash, resolver common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.names[node]
	if !ok {
		return fmt.Errorf("legacy: node %s not wrapped", node)
	}
	if n.fuses.Has(CannotSetResolver) {
		return fmt.Errorf("legacy: resolver locked for node %s", node)
	}
	n.resolver = resolver
	return nil
}
