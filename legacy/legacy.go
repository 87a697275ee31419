// Package legacy models the read-side of the pre-v2 name system: the
// registrar that tracks second-level expiries, and the wrapper whose fuse
// bits encode immutable permissions. Migration consumes these; nothing else
// in the module touches them.
package legacy

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"namechain.dev/registry/namehash"
)

// Fuses is the legacy permission bitmask. A set bit never clears.
type Fuses uint32

const (
	CannotUnwrap Fuses = 1 << iota
	CannotBurnFuses
	CannotTransfer
	CannotSetResolver
	CannotSetTTL
	CannotCreateSubdomain
	CannotApprove
)

const (
	ParentCannotControl Fuses = 1 << 16
	IsDotEth            Fuses = 1 << 17
	CanExtendExpiry     Fuses = 1 << 18
)

// LockFuses is the fixed set burned by the terminal migration freeze.
const LockFuses = CannotUnwrap | CannotBurnFuses | CannotTransfer |
	CannotSetResolver | CannotSetTTL | CannotCreateSubdomain | CannotApprove

func (f Fuses) Has(want Fuses) bool { return f&want == want }

// TLD is the legacy namespace all migratable names live under.
const TLD = "eth"

// EthNode is the namehash of the legacy TLD.
var EthNode = namehash.NameHash(TLD)

// Node returns the wrapper node for a second-level label.
func Node(label string) common.Hash {
	return namehash.Subnode(EthNode, label)
}

// Is2LD reports whether name is exactly a second-level name under the
// legacy TLD, returning its label.
func Is2LD(name string) (string, bool) {
	label, rest, ok := strings.Cut(name, ".")
	if !ok || rest != TLD || label == "" {
		return "", false
	}
	return label, true
}

// Registrar is the legacy second-level registrar, keyed by label hash.
type Registrar interface {
	NameExpires(labelHash common.Hash) uint64
	OwnerOf(labelHash common.Hash) common.Address
}

// NameWrapper is the legacy wrapped-name registry.
type NameWrapper interface {
	// GetData returns the wrapped owner, the fuse bitmask and the expiry
	// for a node.
	GetData(node common.Hash) (common.Address, Fuses, uint64)
	// BurnFuses sets fuse bits. Bits only ever accumulate.
	BurnFuses(node common.Hash, f Fuses) error
	// SetResolver repoints the legacy resolver. Rejected once
	// CannotSetResolver is burned.
	SetResolver(node common.Hash, resolver common.Address) error
	OwnerOf(node common.Hash) common.Address
	// Address identifies the wrapper for caller checks.
	Address() common.Address
}
