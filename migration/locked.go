// Package migration converts legacy name holdings into v2 registrations.
//
// Two one-way paths exist. The unlocked path trusts the mover: the legacy
// name was still fully mutable, so the caller-supplied role bitmask is used
// verbatim. The locked path trusts nothing but the fuses: the role bitmask
// is derived purely from the legacy lock state, and the legacy token is
// frozen afterwards so it can never diverge from its v2 counterpart.
package migration

import (
	"github.com/ethereum/go-ethereum/common"

	"namechain.dev/registry/factory"
	"namechain.dev/registry/legacy"
	"namechain.dev/registry/namehash"
	"namechain.dev/registry/registry"
	"namechain.dev/registry/roles"
	"namechain.dev/registry/types"
	"namechain.dev/registry/wire"
)

// RolesFromFuses derives the destination role bitmap from the legacy fuse
// bitmask. This is the locked path's trust boundary: nothing the mover
// supplies enters the result.
func RolesFromFuses(f legacy.Fuses) roles.Bitmap {
	bm := roles.Upgrade | roles.UpgradeAdmin
	if f.Has(legacy.CanExtendExpiry) {
		bm |= roles.Renew
	}
	if !f.Has(legacy.CannotApprove) {
		bm |= roles.RenewAdmin
	}
	if !f.Has(legacy.CannotSetResolver) {
		bm |= roles.SetResolver | roles.SetResolverAdmin
	}
	if !f.Has(legacy.CannotCreateSubdomain) {
		bm |= roles.Registrar | roles.RegistrarAdmin
	}
	return bm
}

// LockedController migrates wrapped names whose cannot-unwrap fuse is
// already burned. It runs on the chain the legacy system lives on.
type LockedController struct {
	addr    common.Address
	wrapper legacy.NameWrapper
	dest    *registry.Registry
	factory *factory.SubregistryFactory
}

func NewLockedController(addr common.Address, wrapper legacy.NameWrapper, dest *registry.Registry, f *factory.SubregistryFactory) *LockedController {
	return &LockedController{addr: addr, wrapper: wrapper, dest: dest, factory: f}
}

func (c *LockedController) Address() common.Address { return c.addr }

type lockedItem struct {
	ld     wire.LockedMigrationData
	label  string
	fuses  legacy.Fuses
	expiry uint64
}

// validate checks one payload item against the token that carried it.
// Nothing is mutated here.
func (c *LockedController) validate(node common.Hash, amount uint64, ld wire.LockedMigrationData) (lockedItem, error) {
	if amount != 1 {
		return lockedItem{}, types.Errorf(types.ErrInvalidAmount, "locked migration moves exactly one token, got %d", amount)
	}
	name, err := namehash.DNSDecode(ld.Name)
	if err != nil {
		return lockedItem{}, err
	}
	label, ok := legacy.Is2LD(name)
	if !ok {
		return lockedItem{}, types.Errorf(types.ErrNameNotETH2LD, "%q is not a second-level name under .%s", name, legacy.TLD)
	}
	want := legacy.Node(label)
	if common.Hash(ld.Node) != want || node != want {
		return lockedItem{}, types.Errorf(types.ErrTokenNodeMismatch,
			"payload node %s does not match node %s for %q", common.Hash(ld.Node), want, name)
	}
	if ld.Owner == (common.Address{}) {
		return lockedItem{}, types.NewError(types.ErrZeroRecipient, "owner must be non-zero")
	}
	_, fuses, expiry := c.wrapper.GetData(node)
	if !fuses.Has(legacy.CannotUnwrap) {
		return lockedItem{}, types.Errorf(types.ErrNameNotLocked, "%q is not locked; use the unlocked path", name)
	}
	if !fuses.Has(legacy.IsDotEth) {
		return lockedItem{}, types.Errorf(types.ErrNotDotEthName, "%q lacks the two-level-eth fuse", name)
	}
	if fuses.Has(legacy.CannotBurnFuses) {
		return lockedItem{}, types.Errorf(types.ErrInconsistentFuses,
			"%q already has cannot-burn-fuses set; the freeze step cannot run", name)
	}
	if !c.dest.Available(label) {
		return lockedItem{}, types.Errorf(types.ErrNameNotAvailable, "label %q already live in the destination registry", label)
	}
	return lockedItem{ld: ld, label: label, fuses: fuses, expiry: expiry}, nil
}

// apply registers the v2 entry and freezes the legacy token. The freeze is
// idempotent with respect to pre-existing lock state: the resolver is
// cleared only while the resolver fuse is still clear.
func (c *LockedController) apply(item lockedItem) error {
	sub := c.factory.Deploy(c.addr, item.ld.Salt, item.ld.Owner)
	bm := RolesFromFuses(item.fuses)
	if _, err := c.dest.Register(c.addr, item.label, item.ld.Owner, sub.Address(), item.ld.Resolver, bm, item.expiry); err != nil {
		return err
	}
	node := legacy.Node(item.label)
	if !item.fuses.Has(legacy.CannotSetResolver) {
		if err := c.wrapper.SetResolver(node, common.Address{}); err != nil {
			return err
		}
	}
	return c.wrapper.BurnFuses(node, legacy.LockFuses)
}

// Migrate processes a batch of locked tokens transferred in by the legacy
// wrapper. caller must be the wrapper contract itself; everything is
// validated before any token is registered, so a bad batch applies nothing.
func (c *LockedController) Migrate(caller common.Address, nodes []common.Hash, amounts []uint64, payload []byte) error {
	if caller != c.wrapper.Address() {
		return types.Errorf(types.ErrUnauthorizedCaller, "%s is not the legacy wrapper", caller)
	}
	items, err := wire.DecodeBatch(payload)
	if err != nil {
		return err
	}
	if len(items) != len(nodes) || len(nodes) != len(amounts) {
		return types.Errorf(types.ErrLengthMismatch,
			"batch of %d tokens with %d payloads and %d amounts", len(nodes), len(items), len(amounts))
	}
	validated := make([]lockedItem, len(nodes))
	for i, raw := range items {
		ld, err := wire.DecodeLockedMigrationData(raw)
		if err != nil {
			return err
		}
		item, err := c.validate(nodes[i], amounts[i], ld)
		if err != nil {
			return err
		}
		validated[i] = item
	}
	for _, item := range validated {
		if err := c.apply(item); err != nil {
			return err
		}
	}
	return nil
}
