// Package types holds the value types shared across the registry core.
package types

import (
	"encoding/hex"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ChainID names one of the two chains a registry lives on.
type ChainID string

const (
	ChainL1 ChainID = "l1"
	ChainL2 ChainID = "l2"
)

// Other returns the opposite chain.
func (c ChainID) Other() ChainID {
	if c == ChainL1 {
		return ChainL2
	}
	return ChainL1
}

func (c ChainID) Valid() bool { return c == ChainL1 || c == ChainL2 }

// versionBits is the width of the version sub-field in a token id.
// The canonical id is the token id with these low bits masked off, so it is
// stable across re-registrations of the same label.
const versionBits = 32

// TokenID is a 256-bit name token identifier. The low 32 bits carry the
// registration version; the remaining bits are the canonical id derived from
// the label hash.
type TokenID [32]byte

var ZeroTokenID TokenID

// TokenIDFromHash derives the canonical token id for a label hash
// (version zero).
func TokenIDFromHash(h common.Hash) TokenID {
	return TokenID(h).Canonical()
}

func TokenIDFromBig(v *big.Int) TokenID {
	var id TokenID
	v.FillBytes(id[:])
	return id
}

func (id TokenID) Big() *big.Int { return new(big.Int).SetBytes(id[:]) }

func (id TokenID) Hash() common.Hash { return common.Hash(id) }

// Canonical masks off the version sub-field.
func (id TokenID) Canonical() TokenID {
	out := id
	for i := 32 - versionBits/8; i < 32; i++ {
		out[i] = 0
	}
	return out
}

// Version reads the version sub-field.
func (id TokenID) Version() uint32 {
	return uint32(id[28])<<24 | uint32(id[29])<<16 | uint32(id[30])<<8 | uint32(id[31])
}

// WithVersion returns the token id carrying version v.
func (id TokenID) WithVersion(v uint32) TokenID {
	out := id.Canonical()
	out[28] = byte(v >> 24)
	out[29] = byte(v >> 16)
	out[30] = byte(v >> 8)
	out[31] = byte(v)
	return out
}

func (id TokenID) IsZero() bool { return id == ZeroTokenID }

func (id TokenID) String() string { return "0x" + hex.EncodeToString(id[:]) }
