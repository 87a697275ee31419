// Package roles implements the per-resource capability table used by every
// registry node.
//
// A Bitmap carries capability bits in its low half and the paired admin bits
// (the right to grant or revoke that capability) in its high half. Roles are
// scoped to a resource (a canonical token id); the zero resource scopes a
// grant registry-wide.
package roles

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"namechain.dev/registry/types"
)

// Bitmap is a set of capability and admin bits.
type Bitmap uint64

// AdminShift is the distance between a capability bit and its admin bit.
const AdminShift = 32

const (
	// Registrar may register fresh names under the resource's subregistry.
	Registrar Bitmap = 1 << iota
	// Renew may extend a name's expiry.
	Renew
	// SetResolver may repoint a name's resolver.
	SetResolver
	// SetSubregistry may repoint a name's subregistry.
	SetSubregistry
	// SetTokenObserver may install the renew/relinquish observer.
	SetTokenObserver
	// Burn may destroy a name entry.
	Burn
	// Upgrade may migrate a name to a successor registry implementation.
	Upgrade
)

const (
	RegistrarAdmin        = Registrar << AdminShift
	RenewAdmin            = Renew << AdminShift
	SetResolverAdmin      = SetResolver << AdminShift
	SetSubregistryAdmin   = SetSubregistry << AdminShift
	SetTokenObserverAdmin = SetTokenObserver << AdminShift
	BurnAdmin             = Burn << AdminShift
	UpgradeAdmin          = Upgrade << AdminShift
)

const capabilityMask Bitmap = (1 << AdminShift) - 1

// All is every capability with its admin bit.
const All = capabilityMask | capabilityMask<<AdminShift

// RootResource scopes a grant to the whole registry.
var RootResource types.TokenID

// AdminOf returns the admin bits paired with the capability bits of b.
// Admin bits already present in b pass through unchanged, so a grant of
// (role|roleAdmin) requires only roleAdmin of the caller.
func AdminOf(b Bitmap) Bitmap {
	return (b&capabilityMask)<<AdminShift | (b &^ capabilityMask)
}

// Capabilities strips admin bits.
func (b Bitmap) Capabilities() Bitmap { return b & capabilityMask }

// Admins strips capability bits.
func (b Bitmap) Admins() Bitmap { return b &^ capabilityMask }

// HasAll reports whether every bit of want is present.
func (b Bitmap) HasAll(want Bitmap) bool { return b&want == want }

type key struct {
	resource types.TokenID
	account  common.Address
}

// Store is the assignment table: (resource, account) -> Bitmap.
//
// Writes are guarded; per-chain execution is sequential but the store is
// shared between a registry and its controllers.
type Store struct {
	mu     sync.RWMutex
	grants map[key]Bitmap
}

func NewStore() *Store {
	return &Store{grants: make(map[key]Bitmap)}
}

// Get returns the bitmap granted to account on resource, excluding
// root-scoped grants.
func (s *Store) Get(resource types.TokenID, account common.Address) Bitmap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grants[key{resource.Canonical(), account}]
}

// Effective returns the resource-scoped bitmap merged with the account's
// root-scoped bitmap.
func (s *Store) Effective(resource types.TokenID, account common.Address) Bitmap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grants[key{resource.Canonical(), account}] | s.grants[key{RootResource, account}]
}

// Has reports whether account holds every bit of want on resource, counting
// root-scoped grants.
func (s *Store) Has(resource types.TokenID, account common.Address, want Bitmap) bool {
	return s.Effective(resource, account).HasAll(want)
}

// Seed installs a bitmap without an admin check. Used when a registry
// creates a fresh entry; never exposed to callers.
func (s *Store) Seed(resource types.TokenID, account common.Address, b Bitmap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{resource.Canonical(), account}
	if b == 0 {
		delete(s.grants, k)
		return
	}
	s.grants[k] = b
}

// Grant adds bits to account's bitmap on resource. The caller must hold the
// admin bit paired with every bit granted.
func (s *Store) Grant(caller common.Address, resource types.TokenID, account common.Address, b Bitmap) error {
	if !s.Has(resource, caller, AdminOf(b)) {
		return types.Errorf(types.ErrAccessDenied, "%s lacks admin over %#x on %s", caller, uint64(b), resource)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{resource.Canonical(), account}
	s.grants[k] |= b
	return nil
}

// Revoke removes bits from account's bitmap on resource under the same
// admin rule as Grant.
func (s *Store) Revoke(caller common.Address, resource types.TokenID, account common.Address, b Bitmap) error {
	if !s.Has(resource, caller, AdminOf(b)) {
		return types.Errorf(types.ErrAccessDenied, "%s lacks admin over %#x on %s", caller, uint64(b), resource)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{resource.Canonical(), account}
	next := s.grants[k] &^ b
	if next == 0 {
		delete(s.grants, k)
		return nil
	}
	s.grants[k] = next
	return nil
}

// ClearResource drops every grant scoped to resource. Used on burn.
func (s *Store) ClearResource(resource types.TokenID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resource = resource.Canonical()
	for k := range s.grants {
		if k.resource == resource {
			delete(s.grants, k)
		}
	}
}
