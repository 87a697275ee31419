// Package datastore decouples registry storage from registry logic.
//
// Every read and write is keyed on the owning registry's address, so a
// registry implementation can be replaced without migrating records: the
// successor addresses the same namespace.
package datastore

import (
	"github.com/ethereum/go-ethereum/common"

	"namechain.dev/registry/types"
)

// NameStore is the minimal storage surface a registry needs.
//
// Contract:
//   - A namespace is written only by the registry it belongs to; callers
//     MUST pass their own address.
//   - Entry MUST report ok=false for ids never written in the namespace.
//   - Stored records are opaque to the store; all business rules live above.
type NameStore interface {
	Entry(registry common.Address, id types.TokenID) (Record, bool)
	SetEntry(registry common.Address, id types.TokenID, r Record)

	Subregistry(registry common.Address, id types.TokenID) common.Address
	SetSubregistry(registry common.Address, id types.TokenID, sub common.Address)

	Resolver(registry common.Address, id types.TokenID) common.Address
	SetResolver(registry common.Address, id types.TokenID, resolver common.Address)
}

// Record is one packed storage word: owner (20 bytes), expiry (6 bytes,
// seconds), version (4 bytes), flags (2 bytes). Bit packing stays behind
// these accessors.
type Record [32]byte

// Flags stored in a Record.
const (
	// FlagNonTransferable marks an entry parked with a controller pending
	// cross-chain relay.
	FlagNonTransferable uint16 = 1 << iota
)

func NewRecord(owner common.Address, expiry uint64, version uint32) Record {
	var r Record
	copy(r[:20], owner[:])
	return r.WithExpiry(expiry).WithVersion(version)
}

func (r Record) Owner() common.Address {
	var a common.Address
	copy(a[:], r[:20])
	return a
}

func (r Record) WithOwner(owner common.Address) Record {
	copy(r[:20], owner[:])
	return r
}

// Expiry is a unix timestamp; the packed field is 48 bits wide.
func (r Record) Expiry() uint64 {
	var v uint64
	for i := 0; i < 6; i++ {
		v = v<<8 | uint64(r[20+i])
	}
	return v
}

func (r Record) WithExpiry(expiry uint64) Record {
	for i := 5; i >= 0; i-- {
		r[20+i] = byte(expiry)
		expiry >>= 8
	}
	return r
}

// Version is the registration version of the canonical id this record
// belongs to.
func (r Record) Version() uint32 {
	return uint32(r[26])<<24 | uint32(r[27])<<16 | uint32(r[28])<<8 | uint32(r[29])
}

func (r Record) WithVersion(v uint32) Record {
	r[26] = byte(v >> 24)
	r[27] = byte(v >> 16)
	r[28] = byte(v >> 8)
	r[29] = byte(v)
	return r
}

func (r Record) Flags() uint16 {
	return uint16(r[30])<<8 | uint16(r[31])
}

func (r Record) WithFlags(flags uint16) Record {
	r[30] = byte(flags >> 8)
	r[31] = byte(flags)
	return r
}

func (r Record) HasFlag(flag uint16) bool { return r.Flags()&flag == flag }

func (r Record) WithFlag(flag uint16, on bool) Record {
	f := r.Flags()
	if on {
		f |= flag
	} else {
		f &^= flag
	}
	return r.WithFlags(f)
}
