// Package factory deploys subregistry instances at deterministic addresses.
//
// Instances form an arena keyed by the derived address, created on demand:
// migrating one locked name deploys one subregistry, and the rest of its
// subtree migrates lazily into it later. AddressOf is pure, so both chains
// and off-chain tooling agree on an address before anything is deployed.
package factory

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"namechain.dev/registry/registry"
)

// AddressOf derives the deployment address for (deployer, salt).
func AddressOf(deployer common.Address, salt [32]byte) common.Address {
	buf := make([]byte, 0, 1+20+32)
	buf = append(buf, 0xff)
	buf = append(buf, deployer[:]...)
	buf = append(buf, salt[:]...)
	return common.BytesToAddress(crypto.Keccak256(buf)[12:])
}

// SubregistryFactory creates registry nodes on demand.
type SubregistryFactory struct {
	env *registry.Env

	mu        sync.Mutex
	instances map[common.Address]*registry.Registry
}

func New(env *registry.Env) *SubregistryFactory {
	return &SubregistryFactory{env: env, instances: make(map[common.Address]*registry.Registry)}
}

// Deploy creates (or returns) the subregistry at AddressOf(deployer, salt).
// admin receives the full root-scoped bitmap on first deployment; repeat
// deployments with the same key return the existing instance untouched.
func (f *SubregistryFactory) Deploy(deployer common.Address, salt [32]byte, admin common.Address) *registry.Registry {
	addr := AddressOf(deployer, salt)
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.instances[addr]; ok {
		return r
	}
	r := registry.New(f.env, addr, admin)
	f.instances[addr] = r
	return r
}

// Instance returns a previously deployed subregistry.
func (f *SubregistryFactory) Instance(addr common.Address) (*registry.Registry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.instances[addr]
	return r, ok
}
