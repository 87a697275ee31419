// Package registry implements the permissioned, hierarchical name registry.
//
// One Registry type serves every node of the tree: the root, TLD registries
// and per-name subregistries are all instances of it, composed by reference
// through subregistry pointers in the datastore. A registry never stores
// another registry; it stores the address of one.
package registry

import (
	"github.com/ethereum/go-ethereum/common"

	"namechain.dev/registry/datastore"
	"namechain.dev/registry/namehash"
	"namechain.dev/registry/roles"
	"namechain.dev/registry/types"
)

// NameData is the external view of one registry entry.
type NameData struct {
	Owner       common.Address
	Subregistry common.Address
	Resolver    common.Address
	Expiry      uint64
}

// TokenReceiver is implemented by contracts that accept name-token
// transfers carrying a payload. Ejection and migration are both triggered
// through this hook.
type TokenReceiver interface {
	OnTokenReceived(from common.Address, id types.TokenID, amount uint64, payload []byte) error
	OnBatchTokensReceived(from common.Address, ids []types.TokenID, amounts []uint64, payload []byte) error
}

// TokenObserver is notified of expiry-affecting events on a name it is
// installed for.
type TokenObserver interface {
	OnRenew(id types.TokenID, newExpiry uint64, renewedBy common.Address)
	OnRelinquish(id types.TokenID, relinquishedBy common.Address)
}

// Registry is one node of the registry tree.
type Registry struct {
	env   *Env
	addr  common.Address
	roles *roles.Store

	// approvals are keyed by the full versioned token id, so a version
	// bump on re-registration strands any stale approval.
	approvals map[types.TokenID]common.Address
	observers map[types.TokenID]TokenObserver
}

// New creates a registry node at addr, backed by the chain environment's
// datastore namespace for addr. rootAdmin receives the full root-scoped
// bitmap.
func New(env *Env, addr common.Address, rootAdmin common.Address) *Registry {
	r := &Registry{
		env:       env,
		addr:      addr,
		roles:     roles.NewStore(),
		approvals: make(map[types.TokenID]common.Address),
		observers: make(map[types.TokenID]TokenObserver),
	}
	if rootAdmin != (common.Address{}) {
		r.roles.Seed(roles.RootResource, rootAdmin, roles.All)
	}
	env.nodes[addr] = r
	return r
}

func (r *Registry) Address() common.Address { return r.addr }

// Roles exposes the node's role table for grant/revoke and predicates.
func (r *Registry) Roles() *roles.Store { return r.roles }

// resolve loads the record for id, treating empty records as absent and
// enforcing that a versioned id matches the current version.
func (r *Registry) resolve(id types.TokenID) (datastore.Record, bool) {
	rec, ok := r.env.Store.Entry(r.addr, id)
	if !ok || rec.Owner() == (common.Address{}) {
		return datastore.Record{}, false
	}
	if v := id.Version(); v != 0 && v != rec.Version() {
		return datastore.Record{}, false
	}
	return rec, true
}

func (r *Registry) expired(rec datastore.Record) bool {
	return r.env.Now() > rec.Expiry()
}

// Available reports whether label is open for fresh registration.
func (r *Registry) Available(label string) bool {
	rec, ok := r.resolve(namehash.CanonicalID(label))
	return !ok || r.expired(rec)
}

// Register creates or re-creates the entry for label. The caller must hold
// the root-scoped Registrar role. A re-registration of an expired label
// bumps the version sub-field of the token id; the canonical id is stable.
func (r *Registry) Register(caller common.Address, label string, owner common.Address, sub, resolver common.Address, bm roles.Bitmap, expiry uint64) (types.TokenID, error) {
	if !r.roles.Has(roles.RootResource, caller, roles.Registrar) {
		return types.ZeroTokenID, types.Errorf(types.ErrAccessDenied, "%s lacks registrar role", caller)
	}
	if owner == (common.Address{}) {
		return types.ZeroTokenID, types.NewError(types.ErrZeroRecipient, "owner must be non-zero")
	}
	canonical := namehash.CanonicalID(label)
	version := uint32(1)
	if rec, ok := r.env.Store.Entry(r.addr, canonical); ok && rec.Owner() != (common.Address{}) {
		if !r.expired(rec) {
			return types.ZeroTokenID, types.Errorf(types.ErrNameNotAvailable, "label %q is registered until %d", label, rec.Expiry())
		}
		version = rec.Version() + 1
		// Strand anything still pointing at the previous incarnation.
		delete(r.approvals, canonical.WithVersion(rec.Version()))
		r.roles.ClearResource(canonical)
		delete(r.observers, canonical)
	}
	r.env.Store.SetEntry(r.addr, canonical, datastore.NewRecord(owner, expiry, version))
	r.env.Store.SetSubregistry(r.addr, canonical, sub)
	r.env.Store.SetResolver(r.addr, canonical, resolver)
	r.roles.Seed(canonical, owner, bm)
	return canonical.WithVersion(version), nil
}

// Renew extends a name's expiry. Requires the Renew role on the resource and
// a strictly larger expiry.
func (r *Registry) Renew(caller common.Address, id types.TokenID, newExpiry uint64) error {
	rec, ok := r.resolve(id)
	if !ok || r.expired(rec) {
		return types.Errorf(types.ErrNameNotAvailable, "token %s is not live", id)
	}
	if !r.roles.Has(id, caller, roles.Renew) {
		return types.Errorf(types.ErrAccessDenied, "%s lacks renew role on %s", caller, id)
	}
	if newExpiry <= rec.Expiry() {
		return types.Errorf(types.ErrExpiryNotExtended, "new expiry %d <= current %d", newExpiry, rec.Expiry())
	}
	r.env.Store.SetEntry(r.addr, id, rec.WithExpiry(newExpiry))
	if obs := r.observers[id.Canonical()]; obs != nil {
		obs.OnRenew(id.Canonical().WithVersion(rec.Version()), newExpiry, caller)
	}
	return nil
}

// SetResolver repoints the resolver. Requires the SetResolver role.
func (r *Registry) SetResolver(caller common.Address, id types.TokenID, resolver common.Address) error {
	if _, ok := r.resolve(id); !ok {
		return types.Errorf(types.ErrNameNotAvailable, "token %s is not registered", id)
	}
	if !r.roles.Has(id, caller, roles.SetResolver) {
		return types.Errorf(types.ErrAccessDenied, "%s lacks set-resolver role on %s", caller, id)
	}
	r.env.Store.SetResolver(r.addr, id, resolver)
	return nil
}

// SetSubregistry repoints the subregistry. Requires the SetSubregistry role.
func (r *Registry) SetSubregistry(caller common.Address, id types.TokenID, sub common.Address) error {
	if _, ok := r.resolve(id); !ok {
		return types.Errorf(types.ErrNameNotAvailable, "token %s is not registered", id)
	}
	if !r.roles.Has(id, caller, roles.SetSubregistry) {
		return types.Errorf(types.ErrAccessDenied, "%s lacks set-subregistry role on %s", caller, id)
	}
	r.env.Store.SetSubregistry(r.addr, id, sub)
	return nil
}

// SetTokenObserver installs the observer notified on renew/relinquish.
func (r *Registry) SetTokenObserver(caller common.Address, id types.TokenID, obs TokenObserver) error {
	if _, ok := r.resolve(id); !ok {
		return types.Errorf(types.ErrNameNotAvailable, "token %s is not registered", id)
	}
	if !r.roles.Has(id, caller, roles.SetTokenObserver) {
		return types.Errorf(types.ErrAccessDenied, "%s lacks set-token-observer role on %s", caller, id)
	}
	if obs == nil {
		delete(r.observers, id.Canonical())
		return nil
	}
	r.observers[id.Canonical()] = obs
	return nil
}

// Burn destroys the entry and every role scoped to it.
func (r *Registry) Burn(caller common.Address, id types.TokenID) error {
	rec, ok := r.resolve(id)
	if !ok {
		return types.Errorf(types.ErrNameNotAvailable, "token %s is not registered", id)
	}
	if !r.roles.Has(id, caller, roles.Burn) {
		return types.Errorf(types.ErrAccessDenied, "%s lacks burn role on %s", caller, id)
	}
	r.env.Store.SetEntry(r.addr, id, datastore.Record{})
	r.env.Store.SetSubregistry(r.addr, id, common.Address{})
	r.env.Store.SetResolver(r.addr, id, common.Address{})
	r.roles.ClearResource(id)
	delete(r.approvals, id.Canonical().WithVersion(rec.Version()))
	if obs := r.observers[id.Canonical()]; obs != nil {
		obs.OnRelinquish(id.Canonical().WithVersion(rec.Version()), caller)
	}
	delete(r.observers, id.Canonical())
	return nil
}

// NameData returns the external view of id's entry.
func (r *Registry) NameData(id types.TokenID) (NameData, bool) {
	rec, ok := r.resolve(id)
	if !ok {
		return NameData{}, false
	}
	return NameData{
		Owner:       rec.Owner(),
		Subregistry: r.env.Store.Subregistry(r.addr, id),
		Resolver:    r.env.Store.Resolver(r.addr, id),
		Expiry:      rec.Expiry(),
	}, true
}

// OwnerOf returns the owner, or the zero address for unregistered or
// expired names.
func (r *Registry) OwnerOf(id types.TokenID) common.Address {
	rec, ok := r.resolve(id)
	if !ok || r.expired(rec) {
		return common.Address{}
	}
	return rec.Owner()
}

// Resolver returns the resolver pointer for id.
func (r *Registry) Resolver(id types.TokenID) common.Address {
	if _, ok := r.resolve(id); !ok {
		return common.Address{}
	}
	return r.env.Store.Resolver(r.addr, id)
}

// Subregistry returns the subregistry pointer for id.
func (r *Registry) Subregistry(id types.TokenID) common.Address {
	if _, ok := r.resolve(id); !ok {
		return common.Address{}
	}
	return r.env.Store.Subregistry(r.addr, id)
}

// LatestTokenID maps a canonical id to the currently live versioned id.
func (r *Registry) LatestTokenID(id types.TokenID) (types.TokenID, bool) {
	rec, ok := r.resolve(id.Canonical())
	if !ok {
		return types.ZeroTokenID, false
	}
	return id.Canonical().WithVersion(rec.Version()), true
}
